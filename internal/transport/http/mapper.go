package http

import (
	"encoding/json"

	"github.com/beaconchat/beacon-server/internal/core"
	"github.com/beaconchat/beacon-server/internal/proto"
)

func inboundToCommand(inbound proto.Inbound) (*core.Command, *proto.Error) {
	switch inbound.Type {
	case proto.InboundTypeAuthenticate:
		var data proto.AuthenticateData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, badPayload()
		}
		return &core.Command{
			Kind:   core.CommandAuthenticate,
			UserID: data.UserID,
			Token:  data.Token,
		}, nil
	case proto.InboundTypeJoinConversation, proto.InboundTypeLeaveConversation:
		var data proto.ConversationData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, badPayload()
		}
		if data.ConversationID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "conversationId is required"}
		}
		kind := core.CommandJoinConversation
		if inbound.Type == proto.InboundTypeLeaveConversation {
			kind = core.CommandLeaveConversation
		}
		return &core.Command{Kind: kind, Conversation: data.ConversationID}, nil
	case proto.InboundTypeTyping:
		var data proto.TypingData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, badPayload()
		}
		if data.ConversationID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "conversationId is required"}
		}
		return &core.Command{
			Kind:         core.CommandTyping,
			Conversation: data.ConversationID,
			IsTyping:     data.IsTyping,
		}, nil
	case proto.InboundTypeCallSignal:
		var target proto.CallSignalTarget
		if err := json.Unmarshal(inbound.Data, &target); err != nil {
			return nil, badPayload()
		}
		if target.To == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "to is required"}
		}
		// The payload travels untouched; only the routing field is read.
		return &core.Command{
			Kind:   core.CommandCallSignal,
			To:     target.To,
			Signal: inbound.Data,
		}, nil
	case proto.InboundTypeMessageDelivered, proto.InboundTypeMessageRead:
		var data proto.ReceiptData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, badPayload()
		}
		if data.ConversationID == "" {
			return nil, &proto.Error{Code: core.ErrCodeBadRequest, Msg: "conversationId is required"}
		}
		kind := core.CommandMessageDelivered
		if inbound.Type == proto.InboundTypeMessageRead {
			kind = core.CommandMessageRead
		}
		return &core.Command{
			Kind:         kind,
			Conversation: data.ConversationID,
			MessageID:    data.MessageID,
		}, nil
	case proto.InboundTypeStatusUpdate:
		var data proto.StatusData
		if err := json.Unmarshal(inbound.Data, &data); err != nil {
			return nil, badPayload()
		}
		return &core.Command{
			Kind:   core.CommandStatusUpdate,
			Status: core.Status(data.Status),
		}, nil
	default:
		return nil, &proto.Error{Code: core.ErrCodeInvalidMessage, Msg: "unknown message type"}
	}
}

func badPayload() *proto.Error {
	return &proto.Error{Code: core.ErrCodeBadRequest, Msg: "malformed payload"}
}

func outboundFromEvent(event *core.Event) proto.Outbound {
	switch event.Kind {
	case core.EventAuthenticated:
		return proto.Outbound{
			Type: proto.OutboundTypeAuthenticated,
			Data: proto.AuthenticatedData{Success: true, UserID: event.User},
		}
	case core.EventAuthError:
		return proto.Outbound{
			Type: proto.OutboundTypeAuthError,
			Data: proto.AuthErrorData{Error: errorMessage(event)},
		}
	case core.EventCallSignal:
		return proto.Outbound{
			Type: proto.OutboundTypeCallSignal,
			Data: callSignalPayload(event),
		}
	case core.EventCallSignalError:
		return proto.Outbound{
			Type: proto.OutboundTypeCallSignalError,
			Data: proto.CallSignalErrorData{Error: errorMessage(event)},
		}
	case core.EventTyping:
		return proto.Outbound{
			Type: proto.OutboundTypeTyping,
			Data: proto.TypingEvent{
				UserID:         event.User,
				ConversationID: event.Conversation,
				IsTyping:       event.IsTyping,
			},
		}
	case core.EventMessageDelivered, core.EventMessageRead:
		outType := proto.OutboundTypeMessageDelivered
		if event.Kind == core.EventMessageRead {
			outType = proto.OutboundTypeMessageRead
		}
		return proto.Outbound{
			Type: outType,
			Data: proto.ReceiptEvent{
				UserID:         event.User,
				ConversationID: event.Conversation,
				MessageID:      event.MessageID,
				TS:             event.TS,
			},
		}
	case core.EventUserStatusChanged:
		return proto.Outbound{
			Type: proto.OutboundTypeUserStatusChanged,
			Data: proto.StatusEvent{
				UserID: event.User,
				Status: string(event.Status),
				TS:     event.TS,
			},
		}
	case core.EventError:
		if event.Error == nil {
			return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown error"}}
		}
		return proto.Outbound{
			Type:  proto.OutboundTypeError,
			Error: &proto.Error{Code: event.Error.Code, Msg: event.Error.Message},
		}
	default:
		return proto.Outbound{Type: proto.OutboundTypeError, Error: &proto.Error{Code: "unknown", Msg: "unknown event"}}
	}
}

// callSignalPayload re-emits the opaque negotiation payload with the
// sender's identity attached and the routing field stripped.
func callSignalPayload(event *core.Event) map[string]any {
	payload := make(map[string]any)
	if len(event.Signal) > 0 {
		if err := json.Unmarshal(event.Signal, &payload); err != nil {
			payload = make(map[string]any)
		}
	}
	delete(payload, "to")
	payload["from"] = event.User
	return payload
}

func errorMessage(event *core.Event) string {
	if event.Error != nil {
		return event.Error.Message
	}
	return "unknown error"
}
