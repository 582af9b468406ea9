package ws

import (
	"reflect"
)

var typeRegistry = map[string]reflect.Type{}

func init() {
	// Register all message types
	RegisterType(&MessageConversationJoin{})
	RegisterType(&MessageConversationLeave{})
	RegisterType(&MessageSend{})
	RegisterType(&MessageRead{})
	RegisterType(&MessageTypingStart{})
	RegisterType(&MessageTypingStop{})
	RegisterType(&MessageLastSeenUpdate{})
	RegisterType(&MessageSubscribeLastSeen{})
	RegisterType(&MessageUnsubscribeLastSeen{})
	RegisterType(&MessagePing{})
	RegisterType(&MessagePong{})
}

func RegisterType(msg Message) {
	typeRegistry[msg.GetType()] = reflect.TypeOf(msg).Elem()
}

// GetTypeRegistry returns the type registry for testing
func GetTypeRegistry() map[string]reflect.Type {
	return typeRegistry
}
