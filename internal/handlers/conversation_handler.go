package handlers

import (
	"errors"
	"strconv"
	"strings"

	"github.com/codye1/chat.online.api/internal/handlers/ws"
	"github.com/codye1/chat.online.api/internal/httpx"
	"github.com/codye1/chat.online.api/internal/models"
	"github.com/codye1/chat.online.api/internal/service"
	"github.com/codye1/chat.online.api/internal/validation"
	"github.com/gofiber/fiber/v2"
)

type ConversationHandler struct {
	conversationService *service.ConversationService
	messageService      *service.MessageService
	userService         *service.UserService
	presenceService     *service.PresenceService
	readReceiptService  *service.ReadReceiptService
	broadcaster         ws.Broadcaster
}

func NewConversationHandler(
	conversationService *service.ConversationService,
	messageService *service.MessageService,
	userService *service.UserService,
	presenceService *service.PresenceService,
	readReceiptService *service.ReadReceiptService,
	broadcaster ws.Broadcaster,
) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		messageService:      messageService,
		userService:         userService,
		presenceService:     presenceService,
		readReceiptService:  readReceiptService,
		broadcaster:         broadcaster,
	}
}

func (h *ConversationHandler) GetConversations(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	summaries, err := h.conversationService.ListForUser(userID)
	if err != nil {
		return httpx.Internal(c, "list_conversations_failed")
	}
	return c.JSON(summaries)
}

// GetConversation resolves a single conversation either by id or by
// recipient. With a recipient and no existing conversation it answers with
// a synthetic detail (null id, recipient profile) so the client can render
// a chat screen before the first message.
func (h *ConversationHandler) GetConversation(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	conversationIDStr := c.Query("conversationId")
	recipientIDStr := c.Query("recipientId")
	if conversationIDStr == "" && recipientIDStr == "" {
		return httpx.BadRequest(c, "invalid_input", "conversationId or recipientId is required")
	}

	if conversationIDStr != "" {
		conversationID, err := strconv.ParseUint(conversationIDStr, 10, 32)
		if err != nil {
			return httpx.BadRequest(c, "invalid_input", "Invalid conversationId")
		}
		detail, err := h.conversationService.GetByID(uint(conversationID), userID)
		if err != nil {
			if errors.Is(err, service.ErrNotFound) {
				return httpx.NotFound(c, "not_found", "Conversation not found")
			}
			return httpx.Internal(c, "get_conversation_failed")
		}
		return c.JSON(detail)
	}

	recipientID, err := strconv.ParseUint(recipientIDStr, 10, 32)
	if err != nil {
		return httpx.BadRequest(c, "invalid_input", "Invalid recipientId")
	}

	detail, err := h.conversationService.GetByParticipantPair([]uint{userID, uint(recipientID)}, userID)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			return httpx.BadRequest(c, "invalid_input", "Invalid recipientId")
		}
		return httpx.Internal(c, "get_conversation_failed")
	}
	if detail != nil {
		return c.JSON(detail)
	}

	recipient, err := h.userService.GetByID(uint(recipientID))
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return httpx.NotFound(c, "not_found", "Recipient user not found")
		}
		return httpx.Internal(c, "get_conversation_failed")
	}

	peer := recipient.ToResponse()
	if lastSeen, err := h.presenceService.Get(recipient.ID); err == nil {
		peer.LastSeen = lastSeen
	}
	return c.JSON(fiber.Map{
		"id":                nil,
		"type":              models.DirectConversation,
		"title":             recipient.Nickname,
		"avatar_url":        recipient.AvatarURL,
		"other_participant": peer,
	})
}

func (h *ConversationHandler) CreateConversation(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	var input service.CreateConversationInput
	if err := c.BodyParser(&input); err != nil {
		return httpx.BadRequest(c, "invalid_input", "Invalid request body")
	}
	input.CreatorID = userID
	if input.Title != nil {
		title := validation.TrimAndLimit(*input.Title, validation.MaxTitleLength())
		if title == "" {
			input.Title = nil
		} else {
			input.Title = &title
		}
	}

	detail, err := h.conversationService.Create(input)
	if err != nil {
		if errors.Is(err, service.ErrInvalidInput) {
			return httpx.BadRequest(c, "invalid_input", "participantIds must contain the creator and at least one other user")
		}
		return httpx.Internal(c, "create_conversation_failed")
	}

	return c.Status(fiber.StatusCreated).JSON(detail)
}

// GetMessages is the paged read path: cursor/direction steps, jumpToLatest,
// or the resume load when neither is given. Page size is fixed.
func (h *ConversationHandler) GetMessages(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	conversationID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return httpx.BadRequest(c, "invalid_input", "Invalid conversation id")
	}

	isParticipant, err := h.conversationService.IsParticipant(uint(conversationID), userID)
	if err != nil {
		return httpx.Internal(c, "fetch_messages_failed")
	}
	if !isParticipant {
		return httpx.Forbidden(c, "unauthorized", "You are not a participant of this conversation")
	}

	opts := service.PageOptions{Take: service.PageSize}
	if cursorStr := c.Query("cursor"); cursorStr != "" {
		cursor, err := strconv.ParseUint(cursorStr, 10, 32)
		if err != nil {
			return httpx.BadRequest(c, "invalid_input", "Invalid cursor")
		}
		cursorID := uint(cursor)
		opts.Cursor = &cursorID

		switch service.PageDirection(strings.ToUpper(c.Query("direction"))) {
		case service.DirectionUp:
			opts.Direction = service.DirectionUp
		case service.DirectionDown:
			opts.Direction = service.DirectionDown
		default:
			return httpx.BadRequest(c, "invalid_input", "direction must be UP or DOWN")
		}
	}
	opts.JumpToLatest = strings.EqualFold(c.Query("jumpToLatest"), "true")

	page, err := h.messageService.Page(uint(conversationID), userID, opts)
	if err != nil {
		return httpx.Internal(c, "fetch_messages_failed")
	}
	return c.JSON(page)
}

type sendMessageBody struct {
	Text     string `json:"text"`
	ClientID string `json:"clientId"`
}

func (h *ConversationHandler) SendMessage(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	conversationID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return httpx.BadRequest(c, "invalid_input", "Invalid conversation id")
	}

	var body sendMessageBody
	if err := c.BodyParser(&body); err != nil {
		return httpx.BadRequest(c, "invalid_input", "Invalid request body")
	}
	body.Text = validation.TrimAndLimit(body.Text, validation.MaxMessageLength())
	if body.Text == "" {
		return httpx.BadRequest(c, "invalid_input", "text is required")
	}

	isParticipant, err := h.conversationService.IsParticipant(uint(conversationID), userID)
	if err != nil {
		return httpx.Internal(c, "send_message_failed")
	}
	if !isParticipant {
		return httpx.Forbidden(c, "unauthorized", "You are not a participant of this conversation")
	}

	message, err := h.messageService.Append(uint(conversationID), userID, body.ClientID, body.Text)
	if err != nil {
		return httpx.Internal(c, "send_message_failed")
	}
	h.conversationService.InvalidateSummaries(uint(conversationID))

	// Live peers see REST-sent messages the same way as socket-sent ones.
	h.broadcaster.EmitToRoom(ws.ConversationRoom(uint(conversationID)), "message:new", message.ToResponse())

	return c.Status(fiber.StatusCreated).JSON(message.ToResponse())
}

type markReadBody struct {
	LastReadMessageID uint `json:"lastReadMessageId"`
}

func (h *ConversationHandler) MarkRead(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	conversationID, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil {
		return httpx.BadRequest(c, "invalid_input", "Invalid conversation id")
	}

	var body markReadBody
	if err := c.BodyParser(&body); err != nil || body.LastReadMessageID == 0 {
		return httpx.BadRequest(c, "invalid_input", "lastReadMessageId is required")
	}

	receipt, err := h.readReceiptService.MarkRead(uint(conversationID), userID, body.LastReadMessageID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotParticipant):
			return httpx.Forbidden(c, "unauthorized", "You are not a participant of this conversation")
		case errors.Is(err, service.ErrNotFound):
			return httpx.NotFound(c, "not_found", "Message not found")
		case errors.Is(err, service.ErrInvalidInput):
			return httpx.BadRequest(c, "invalid_input", "Message does not belong to this conversation")
		}
		return httpx.Internal(c, "mark_read_failed")
	}

	h.broadcaster.EmitToRoom(ws.ConversationRoom(uint(conversationID)), "message:read", receipt)

	return c.JSON(receipt)
}

// Search matches the caller's conversations by title and all users by
// nickname prefix.
func (h *ConversationHandler) Search(c *fiber.Ctx) error {
	userID, err := httpx.LocalUint(c, "userID")
	if err != nil {
		return httpx.Unauthorized(c, "unauthorized", "Unauthorized")
	}

	query := validation.NormalizeQuery(c.Query("query"))
	if query == "" {
		return httpx.BadRequest(c, "invalid_input", "query is required")
	}

	summaries, err := h.conversationService.ListForUser(userID)
	if err != nil {
		return httpx.Internal(c, "search_failed")
	}
	matched := make([]models.ConversationSummary, 0)
	for _, summary := range summaries {
		if strings.Contains(strings.ToLower(summary.Title), strings.ToLower(query)) {
			matched = append(matched, summary)
		}
	}

	users, err := h.userService.Search(query, 20)
	if err != nil {
		return httpx.Internal(c, "search_failed")
	}

	return c.JSON(fiber.Map{
		"conversations": matched,
		"global":        users,
	})
}
