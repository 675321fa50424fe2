package event

import (
	"encoding/json"
	"fmt"

	"realtime-hub/errors"
)

// Every frame is a single-key object: the key names the variant, the value holds its fields.
// {"Chat":{"to_user_id":2,"content":"hi"}}

var requiredFields = map[Kind][]string{
	ChatKind:         {"to_user_id", "content"},
	PresenceKind:     {"user_id", "online"},
	CallOfferKind:    {"to_user_id", "sdp"},
	CallAnswerKind:   {"to_user_id", "sdp"},
	IceCandidateKind: {"to_user_id", "candidate"},
	EndCallKind:      {"to_user_id"},
	ErrorKind:        {"message"},
}

func Encode(e RealtimeEvent) ([]byte, error) {
	return json.Marshal(map[Kind]RealtimeEvent{e.Kind(): e})
}

// Decode parses one text frame. Every failure wraps errors.ErrProtocolViolation.
func Decode(data []byte) (RealtimeEvent, error) {
	var envelope map[Kind]json.RawMessage
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrProtocolViolation, err)
	}
	if len(envelope) != 1 {
		return nil, fmt.Errorf("%w: expected exactly one variant, got %d", errors.ErrProtocolViolation, len(envelope))
	}
	for kind, body := range envelope {
		return decodeVariant(kind, body)
	}
	return nil, errors.ErrProtocolViolation
}

func decodeVariant(kind Kind, body json.RawMessage) (RealtimeEvent, error) {
	required, ok := requiredFields[kind]
	if !ok {
		return nil, fmt.Errorf("%w: unknown variant `%s`", errors.ErrProtocolViolation, kind)
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrProtocolViolation, kind, err)
	}
	for _, name := range required {
		if raw, present := fields[name]; !present || string(raw) == "null" {
			return nil, fmt.Errorf("%w: %s: missing field `%s`", errors.ErrProtocolViolation, kind, name)
		}
	}

	var (
		evt RealtimeEvent
		err error
	)
	switch kind {
	case ChatKind:
		evt, err = unmarshalAs[Chat](body)
	case PresenceKind:
		evt, err = unmarshalAs[Presence](body)
	case CallOfferKind:
		evt, err = unmarshalAs[CallOffer](body)
	case CallAnswerKind:
		evt, err = unmarshalAs[CallAnswer](body)
	case IceCandidateKind:
		evt, err = unmarshalAs[IceCandidate](body)
	case EndCallKind:
		evt, err = unmarshalAs[EndCall](body)
	case ErrorKind:
		evt, err = unmarshalAs[Error](body)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", errors.ErrProtocolViolation, kind, err)
	}
	if addressed, ok := evt.(Addressed); ok && addressed.Recipient() <= 0 {
		return nil, fmt.Errorf("%w: %s: `to_user_id` must be positive", errors.ErrProtocolViolation, kind)
	}
	return evt, nil
}

func unmarshalAs[T RealtimeEvent](body json.RawMessage) (RealtimeEvent, error) {
	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, err
	}
	return v, nil
}
