package ws

// MessageConversationJoin subscribes the connection to one or more
// conversation rooms, optionally leaving a previous one first. Every
// requested id is authorized against current membership; the connection
// joins only the authorized subset.
type MessageConversationJoin struct {
	ConversationID    IDList `json:"conversationId"`
	OldConversationID *uint  `json:"oldConversationId"`
}

func (msg *MessageConversationJoin) GetType() string {
	return "conversation:join"
}

func (msg *MessageConversationJoin) Process(ctx *MessageContext) error {
	if msg.OldConversationID != nil {
		// Leaving is membership-checked too; an unauthorized old id is
		// simply ignored rather than used as a membership probe.
		if ok, err := ctx.Conversations.IsParticipant(*msg.OldConversationID, ctx.UserID); err == nil && ok {
			ctx.Broadcaster.LeaveRoom(ConversationRoom(*msg.OldConversationID), ctx.Caller)
		}
	}

	if len(msg.ConversationID) == 0 {
		return SendError(ctx.Caller, "invalid_input", "conversationId is required", "")
	}

	joined := 0
	for _, conversationID := range msg.ConversationID {
		ok, err := ctx.Conversations.IsParticipant(conversationID, ctx.UserID)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		ctx.Broadcaster.JoinRoom(ConversationRoom(conversationID), ctx.Caller)
		joined++
	}

	if joined == 0 {
		// Denial notice, not a disconnect.
		return SendError(ctx.Caller, "unauthorized", "You are not a participant of the requested conversations", "")
	}
	return nil
}

// MessageConversationLeave unsubscribes the connection from a conversation
// room.
type MessageConversationLeave struct {
	ConversationID uint `json:"conversationId"`
}

func (msg *MessageConversationLeave) GetType() string {
	return "conversation:leave"
}

func (msg *MessageConversationLeave) Process(ctx *MessageContext) error {
	ok, err := ctx.Conversations.IsParticipant(msg.ConversationID, ctx.UserID)
	if err != nil {
		return err
	}
	if !ok {
		return SendError(ctx.Caller, "unauthorized", "You are not a participant of this conversation", "")
	}
	ctx.Broadcaster.LeaveRoom(ConversationRoom(msg.ConversationID), ctx.Caller)
	return nil
}
