package wire

import "fmt"

// DomainRooms is the application protocol family carried over negotiated
// channels: chat traffic within a room.
const DomainRooms = "rooms"

const (
	TypeRoomMessage = "room_message"
	TypeUserJoined  = "user_joined"
	TypeUserLeft    = "user_left"
)

const (
	keySender = "sender"
	keyBody   = "body"
	keyUser   = "user"
)

// RoomMessage is one chat line sent to or received from a room channel.
type RoomMessage struct {
	Sender string
	Body   string
}

func (RoomMessage) Domain() string { return DomainRooms }
func (RoomMessage) Type() string   { return TypeRoomMessage }

func (m RoomMessage) EncodePayload() map[string]any {
	return map[string]any{
		keySender: m.Sender,
		keyBody:   m.Body,
	}
}

// UserJoined announces a user entering the room this channel is bound to.
type UserJoined struct {
	User string
}

func (UserJoined) Domain() string { return DomainRooms }
func (UserJoined) Type() string   { return TypeUserJoined }

func (m UserJoined) EncodePayload() map[string]any {
	return map[string]any{keyUser: m.User}
}

// UserLeft announces a user leaving the room this channel is bound to.
type UserLeft struct {
	User string
}

func (UserLeft) Domain() string { return DomainRooms }
func (UserLeft) Type() string   { return TypeUserLeft }

func (m UserLeft) EncodePayload() map[string]any {
	return map[string]any{keyUser: m.User}
}

func decodeRoomMessage(payload map[string]any) (Message, error) {
	sender, err := stringField(payload, keySender)
	if err != nil {
		return nil, fmt.Errorf("room_message: %w", err)
	}
	body, err := stringField(payload, keyBody)
	if err != nil {
		return nil, fmt.Errorf("room_message: %w", err)
	}
	return RoomMessage{Sender: sender, Body: body}, nil
}

func decodeUserJoined(payload map[string]any) (Message, error) {
	user, err := stringField(payload, keyUser)
	if err != nil {
		return nil, fmt.Errorf("user_joined: %w", err)
	}
	return UserJoined{User: user}, nil
}

func decodeUserLeft(payload map[string]any) (Message, error) {
	user, err := stringField(payload, keyUser)
	if err != nil {
		return nil, fmt.Errorf("user_left: %w", err)
	}
	return UserLeft{User: user}, nil
}

func init() {
	Register(DomainRooms, TypeRoomMessage, decodeRoomMessage)
	Register(DomainRooms, TypeUserJoined, decodeUserJoined)
	Register(DomainRooms, TypeUserLeft, decodeUserLeft)
}
