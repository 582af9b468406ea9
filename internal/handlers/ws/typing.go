package ws

// TypingEvent is relayed to the room verbatim; typing state is ephemeral
// and never persisted.
type TypingEvent struct {
	ConversationID uint   `json:"conversationId"`
	UserID         uint   `json:"userId"`
	Nickname       string `json:"nickname"`
}

type MessageTypingStart struct {
	ConversationID uint   `json:"conversationId"`
	Nickname       string `json:"nickname"`
}

func (msg *MessageTypingStart) GetType() string {
	return "typing:start"
}

func (msg *MessageTypingStart) Process(ctx *MessageContext) error {
	return relayTyping(ctx, msg.GetType(), msg.ConversationID, msg.Nickname)
}

type MessageTypingStop struct {
	ConversationID uint   `json:"conversationId"`
	Nickname       string `json:"nickname"`
}

func (msg *MessageTypingStop) GetType() string {
	return "typing:stop"
}

func (msg *MessageTypingStop) Process(ctx *MessageContext) error {
	return relayTyping(ctx, msg.GetType(), msg.ConversationID, msg.Nickname)
}

func relayTyping(ctx *MessageContext, event string, conversationID uint, nickname string) error {
	ok, err := ctx.Conversations.IsParticipant(conversationID, ctx.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return SendError(ctx.Caller, "unauthorized", "You are not a participant of this conversation", "")
	}

	ctx.Broadcaster.EmitToRoom(ConversationRoom(conversationID), event, TypingEvent{
		ConversationID: conversationID,
		UserID:         ctx.UserID,
		Nickname:       nickname,
	})
	return nil
}
