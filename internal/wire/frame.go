package wire

import (
	"encoding/json"
	"fmt"
)

// Envelope and transport metadata keys shared by every frame.
const (
	KeyDomain   = "domain"
	KeyType     = "type"
	KeyChannel  = "channel"
	KeyClientID = "client_id"
)

// Frame is one parsed inbound frame: the multiplexing channel id plus the
// full payload map ready for Decode.
type Frame struct {
	Channel string
	Payload map[string]any
}

// MarshalFrame serializes msg for transmission on channelID. The channel id
// and client instance id are transport metadata injected here, not part of
// the message's own fields.
func MarshalFrame(msg Message, channelID, clientID string) ([]byte, error) {
	payload := Encode(msg)
	payload[KeyChannel] = channelID
	payload[KeyClientID] = clientID
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("wire: marshal frame (%s, %s): %w", msg.Domain(), msg.Type(), err)
	}
	return data, nil
}

// UnmarshalFrame parses one inbound frame and validates the minimal envelope:
// domain, type and channel must be present as strings. Anything less is a
// malformed frame, reported with ErrMalformedFrame for the caller to log and
// drop.
func UnmarshalFrame(data []byte) (Frame, error) {
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return Frame{}, fmt.Errorf("%w: invalid json: %v", ErrMalformedFrame, err)
	}
	for _, key := range []string{KeyDomain, KeyType, KeyChannel} {
		if _, err := stringField(payload, key); err != nil {
			return Frame{}, fmt.Errorf("%w: %v", ErrMalformedFrame, err)
		}
	}
	channel, _ := payload[KeyChannel].(string)
	return Frame{Channel: channel, Payload: payload}, nil
}
