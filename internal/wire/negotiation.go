package wire

import "fmt"

// NegotiationChannel is the reserved channel id carrying channel-start
// traffic. It is agreed out-of-band with the server and never collides with
// server-issued channel ids, which are UUID strings.
const NegotiationChannel = "channel_communication_negotiation"

const (
	DomainNegotiation = "negotiation"

	TypeChannelStartRequest  = "channel_start_request"
	TypeChannelStartResponse = "channel_start_response"
	TypeChannelEnd           = "channel_end"
)

const (
	keyRequestID       = "request_id"
	keyRequestedDomain = "requested_domain"
	keyAccepted        = "accepted"
	keyGeneratedUUID   = "generated_uuid"
)

// ChannelStartRequest asks the server to open a channel for RequestedDomain.
// RequestID correlates the eventual response; it is scoped to one dispatcher
// instance.
type ChannelStartRequest struct {
	RequestID       string
	RequestedDomain string
}

func (ChannelStartRequest) Domain() string { return DomainNegotiation }
func (ChannelStartRequest) Type() string   { return TypeChannelStartRequest }

func (m ChannelStartRequest) EncodePayload() map[string]any {
	return map[string]any{
		keyRequestID:       m.RequestID,
		keyRequestedDomain: m.RequestedDomain,
	}
}

// ChannelStartResponse answers a ChannelStartRequest. ChannelID carries the
// server-issued channel id only when Accepted is true.
type ChannelStartResponse struct {
	RequestID string
	Accepted  bool
	ChannelID string
}

func (ChannelStartResponse) Domain() string { return DomainNegotiation }
func (ChannelStartResponse) Type() string   { return TypeChannelStartResponse }

func (m ChannelStartResponse) EncodePayload() map[string]any {
	payload := map[string]any{
		keyRequestID: m.RequestID,
		keyAccepted:  m.Accepted,
	}
	if m.Accepted {
		payload[keyGeneratedUUID] = m.ChannelID
	}
	return payload
}

// ChannelEnd signals channel teardown in either direction. It carries no
// payload beyond its tags.
type ChannelEnd struct{}

func (ChannelEnd) Domain() string { return DomainNegotiation }
func (ChannelEnd) Type() string   { return TypeChannelEnd }

func (ChannelEnd) EncodePayload() map[string]any { return map[string]any{} }

func decodeChannelStartRequest(payload map[string]any) (Message, error) {
	requestID, err := stringField(payload, keyRequestID)
	if err != nil {
		return nil, fmt.Errorf("channel_start_request: %w", err)
	}
	domain, err := stringField(payload, keyRequestedDomain)
	if err != nil {
		return nil, fmt.Errorf("channel_start_request: %w", err)
	}
	return ChannelStartRequest{RequestID: requestID, RequestedDomain: domain}, nil
}

func decodeChannelStartResponse(payload map[string]any) (Message, error) {
	requestID, err := stringField(payload, keyRequestID)
	if err != nil {
		return nil, fmt.Errorf("channel_start_response: %w", err)
	}
	accepted, err := boolField(payload, keyAccepted)
	if err != nil {
		return nil, fmt.Errorf("channel_start_response: %w", err)
	}
	// The channel id is carried only on acceptance; a refusal may omit it.
	var channelID string
	if accepted {
		channelID, err = stringField(payload, keyGeneratedUUID)
		if err != nil {
			return nil, fmt.Errorf("channel_start_response: %w", err)
		}
	}
	return ChannelStartResponse{RequestID: requestID, Accepted: accepted, ChannelID: channelID}, nil
}

func decodeChannelEnd(map[string]any) (Message, error) {
	return ChannelEnd{}, nil
}

func init() {
	Register(DomainNegotiation, TypeChannelStartRequest, decodeChannelStartRequest)
	Register(DomainNegotiation, TypeChannelStartResponse, decodeChannelStartResponse)
	Register(DomainNegotiation, TypeChannelEnd, decodeChannelEnd)
}
