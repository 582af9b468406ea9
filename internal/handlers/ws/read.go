package ws

import (
	"errors"

	"github.com/codye1/chat.online.api/internal/service"
)

// MessageRead advances the caller's read cursor and broadcasts the new
// seam to the room. Peers receive the boundary id and its sender, enough
// to render "seen up to here" without refetching.
type MessageRead struct {
	ConversationID    uint `json:"conversationId"`
	LastReadMessageID uint `json:"lastReadMessageId"`
}

func (msg *MessageRead) GetType() string {
	return "message:read"
}

func (msg *MessageRead) Process(ctx *MessageContext) error {
	receipt, err := ctx.ReadReceipts.MarkRead(msg.ConversationID, ctx.UserID, msg.LastReadMessageID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotParticipant):
			return SendError(ctx.Caller, "unauthorized", "You are not a participant of this conversation", "")
		case errors.Is(err, service.ErrNotFound):
			return SendError(ctx.Caller, "not_found", "Message not found", "")
		case errors.Is(err, service.ErrInvalidInput):
			return SendError(ctx.Caller, "invalid_input", "Message does not belong to this conversation", "")
		}
		return err
	}

	ctx.Broadcaster.EmitToRoom(ConversationRoom(msg.ConversationID), "message:read", receipt)
	return nil
}
