package ws

import "time"

// LastSeenEvent is pushed to a user's presence subscribers on every
// heartbeat.
type LastSeenEvent struct {
	UserID     uint      `json:"userId"`
	LastSeenAt time.Time `json:"lastSeenAt"`
}

// MessageLastSeenUpdate is the explicit heartbeat: it records "now" as the
// caller's last-seen time and pushes it to anyone subscribed.
type MessageLastSeenUpdate struct {
}

func (msg *MessageLastSeenUpdate) GetType() string {
	return "lastSeenAt:update"
}

func (msg *MessageLastSeenUpdate) Process(ctx *MessageContext) error {
	lastSeen, err := ctx.Presence.Touch(ctx.UserID)
	if err != nil {
		return err
	}

	ctx.Broadcaster.EmitToRoom(PresenceRoom(ctx.UserID), msg.GetType(), LastSeenEvent{
		UserID:     ctx.UserID,
		LastSeenAt: lastSeen,
	})
	return nil
}

// MessageSubscribeLastSeen opts the connection into a target user's
// presence pushes. Presence is readable by anyone who subscribes; there is
// no membership gate here.
type MessageSubscribeLastSeen struct {
	UserID uint `json:"userId"`
}

func (msg *MessageSubscribeLastSeen) GetType() string {
	return "subscribe:lastSeenAt"
}

func (msg *MessageSubscribeLastSeen) Process(ctx *MessageContext) error {
	if msg.UserID == 0 {
		return SendError(ctx.Caller, "invalid_input", "userId is required", "")
	}
	ctx.Broadcaster.JoinRoom(PresenceRoom(msg.UserID), ctx.Caller)
	return nil
}

// MessageUnsubscribeLastSeen stops presence pushes for a target user.
// Subscriptions have no automatic expiry; this is the only way out short
// of disconnecting.
type MessageUnsubscribeLastSeen struct {
	UserID uint `json:"userId"`
}

func (msg *MessageUnsubscribeLastSeen) GetType() string {
	return "unsubscribe:lastSeenAt"
}

func (msg *MessageUnsubscribeLastSeen) Process(ctx *MessageContext) error {
	ctx.Broadcaster.LeaveRoom(PresenceRoom(msg.UserID), ctx.Caller)
	return nil
}
