package ws

import (
	"encoding/json"
	"fmt"
	"reflect"

	"github.com/codye1/chat.online.api/internal/service"
)

// MessageContext provides all dependencies needed for message processing.
// Every handler runs with the connection's verified user id; nothing in a
// payload can impersonate another sender.
type MessageContext struct {
	UserID        uint
	Caller        Caller
	Broadcaster   Broadcaster
	Conversations *service.ConversationService
	Messages      *service.MessageService
	Users         *service.UserService
	Presence      *service.PresenceService
	ReadReceipts  *service.ReadReceiptService
}

// Message interface for all WebSocket message types
type Message interface {
	GetType() string
	Process(ctx *MessageContext) error
}

// SerializedMessage is the wire format wrapper
type SerializedMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Event is the outbound envelope
type Event struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

// ErrorResponse is sent when message processing fails. Domain denials are
// caller-scoped: the connection and its other room memberships stay intact.
type ErrorResponse struct {
	Type    string `json:"type"`
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// IDList accepts either a single id or an array of ids on the wire.
type IDList []uint

func (l *IDList) UnmarshalJSON(data []byte) error {
	var single uint
	if err := json.Unmarshal(data, &single); err == nil {
		*l = IDList{single}
		return nil
	}
	var many []uint
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = IDList(many)
	return nil
}

func ToJson(msg Message) ([]byte, error) {
	return json.Marshal(msg)
}

func FromJson(jsonBytes []byte, msg Message) error {
	return json.Unmarshal(jsonBytes, msg)
}

func CreateMessage(msgType string, typeRegistry map[string]reflect.Type) (Message, error) {
	msgTypeReflect, ok := typeRegistry[msgType]
	if !ok {
		return nil, fmt.Errorf("unknown message type: %s", msgType)
	}

	instance := reflect.New(msgTypeReflect).Interface()
	return instance.(Message), nil
}

// SendError sends an error response to the caller
func SendError(c Caller, code, message, details string) error {
	return c.SendJSON(ErrorResponse{
		Type:    "error",
		Error:   message,
		Code:    code,
		Details: details,
	})
}
