package ws

import (
	"errors"

	"github.com/codye1/chat.online.api/internal/service"
	"github.com/codye1/chat.online.api/internal/validation"
)

// MessageSend appends a message and fans it out to the conversation room.
// With no conversation id but a recipient id it runs the find-or-create
// path: resolve or atomically create the direct conversation, notify the
// recipient's private channel when it is new, join the sender into the
// room, then append and broadcast.
type MessageSend struct {
	ConversationID *uint  `json:"conversationId"`
	RecipientID    *uint  `json:"recipientId"`
	ClientID       string `json:"clientId"`
	Text           string `json:"text"`
}

func (msg *MessageSend) GetType() string {
	return "message:send"
}

func (msg *MessageSend) Process(ctx *MessageContext) error {
	text := validation.TrimAndLimit(msg.Text, validation.MaxMessageLength())
	if text == "" {
		return SendError(ctx.Caller, "invalid_input", "text is required", "")
	}

	if msg.ConversationID != nil {
		return msg.sendToExisting(ctx, *msg.ConversationID, text)
	}
	if msg.RecipientID == nil || *msg.RecipientID == ctx.UserID {
		return SendError(ctx.Caller, "invalid_input", "conversationId or recipientId is required", "")
	}
	return msg.sendToRecipient(ctx, *msg.RecipientID, text)
}

func (msg *MessageSend) sendToExisting(ctx *MessageContext, conversationID uint, text string) error {
	// Membership is re-validated at event time, not assumed from join time.
	ok, err := ctx.Conversations.IsParticipant(conversationID, ctx.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return SendError(ctx.Caller, "unauthorized", "You are not a participant of this conversation", "")
	}

	message, err := ctx.Messages.Append(conversationID, ctx.UserID, msg.ClientID, text)
	if err != nil {
		return err
	}
	ctx.Conversations.InvalidateSummaries(conversationID)

	ctx.Broadcaster.EmitToRoom(ConversationRoom(conversationID), "message:new", message.ToResponse())
	return nil
}

func (msg *MessageSend) sendToRecipient(ctx *MessageContext, recipientID uint, text string) error {
	if _, err := ctx.Users.GetByID(recipientID); err != nil {
		if errors.Is(err, service.ErrNotFound) {
			return SendError(ctx.Caller, "not_found", "Recipient user not found", "")
		}
		return err
	}

	conversation, created, err := ctx.Conversations.FindOrCreateDirect(ctx.UserID, recipientID)
	if err != nil {
		return err
	}

	room := ConversationRoom(conversation.ID)
	ctx.Broadcaster.JoinRoom(room, ctx.Caller)

	if created {
		// The recipient has not joined the room yet; their private channel
		// carries the push, rendered from their point of view.
		if recipientView, err := ctx.Conversations.GetByID(conversation.ID, recipientID); err == nil {
			ctx.Broadcaster.EmitToRoom(UserRoom(recipientID), "conversation:new", recipientView)
		}
	}
	ctx.Broadcaster.EmitToRoom(room, "conversation:update", conversation)

	message, err := ctx.Messages.Append(conversation.ID, ctx.UserID, msg.ClientID, text)
	if err != nil {
		return err
	}
	ctx.Conversations.InvalidateSummaries(conversation.ID)

	ctx.Broadcaster.EmitToRoom(room, "message:new", message.ToResponse())
	return nil
}
