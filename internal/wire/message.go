package wire

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

var (
	ErrUnknownType    = errors.New("wire: unknown message type")
	ErrMalformedFrame = errors.New("wire: malformed frame")
)

// Message is one wire entity. Domain and Type are fixed per concrete type and
// identify its decoder; EncodePayload returns the type's own fields without
// the domain/type tags or any transport metadata.
type Message interface {
	Domain() string
	Type() string
	EncodePayload() map[string]any
}

// DecodeFunc builds a concrete Message from a decoded frame payload. The map
// includes the envelope tags; implementations read only their own fields.
type DecodeFunc func(payload map[string]any) (Message, error)

// Key identifies one registered message shape.
type Key struct {
	Domain string
	Type   string
}

var (
	registryMu sync.RWMutex
	registry   = make(map[Key]DecodeFunc)
)

// Register associates a (domain, type) pair with a decoder. It panics on a
// duplicate pair: registration runs from init functions and a collision means
// two types claim the same wire identity.
func Register(domain, typ string, decode DecodeFunc) {
	if domain == "" || typ == "" {
		panic("wire: Register requires non-empty domain and type")
	}
	key := Key{Domain: domain, Type: typ}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, exists := registry[key]; exists {
		panic(fmt.Sprintf("wire: duplicate registration for (%s, %s)", domain, typ))
	}
	registry[key] = decode
}

// Decode resolves the payload's (domain, type) tags to a registered decoder
// and invokes it. Returns ErrUnknownType when no decoder matches.
func Decode(payload map[string]any) (Message, error) {
	domain, _ := payload[KeyDomain].(string)
	typ, _ := payload[KeyType].(string)

	registryMu.RLock()
	decode, ok := registry[Key{Domain: domain, Type: typ}]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: (%s, %s)", ErrUnknownType, domain, typ)
	}
	return decode(payload)
}

// Encode merges the message's payload fields with its fixed domain/type tags.
func Encode(msg Message) map[string]any {
	payload := msg.EncodePayload()
	out := make(map[string]any, len(payload)+2)
	for k, v := range payload {
		out[k] = v
	}
	out[KeyDomain] = msg.Domain()
	out[KeyType] = msg.Type()
	return out
}

// RegisteredKeys returns every registered (domain, type) pair, sorted.
func RegisteredKeys() []Key {
	registryMu.RLock()
	defer registryMu.RUnlock()
	keys := make([]Key, 0, len(registry))
	for k := range registry {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].Domain != keys[j].Domain {
			return keys[i].Domain < keys[j].Domain
		}
		return keys[i].Type < keys[j].Type
	})
	return keys
}

func stringField(payload map[string]any, key string) (string, error) {
	raw, ok := payload[key]
	if !ok {
		return "", fmt.Errorf("missing field %q", key)
	}
	s, ok := raw.(string)
	if !ok {
		return "", fmt.Errorf("field %q is not a string", key)
	}
	return s, nil
}

func boolField(payload map[string]any, key string) (bool, error) {
	raw, ok := payload[key]
	if !ok {
		return false, fmt.Errorf("missing field %q", key)
	}
	b, ok := raw.(bool)
	if !ok {
		return false, fmt.Errorf("field %q is not a bool", key)
	}
	return b, nil
}
