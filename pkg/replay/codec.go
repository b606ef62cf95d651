package replay

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sync"

	"github.com/aretw0/stately/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

// Entry is one recorded dispatch.
type Entry struct {
	Action any
	// Err is the text of the error the dispatch returned, or empty.
	Err string
}

// envelope is the stored form of an Entry.
type envelope struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Codec turns entries into strings and back.
// Action types must be registered before they can be recorded or replayed.
type Codec struct {
	mu     sync.RWMutex
	names  map[reflect.Type]string
	decode map[string]func(payload any) (any, error)
}

// NewCodec returns an empty codec.
func NewCodec() *Codec {
	return &Codec{
		names:  make(map[reflect.Type]string),
		decode: make(map[string]func(payload any) (any, error)),
	}
}

// Register makes actions of type T recordable under name.
// An empty name falls back to domain.ActionType of the zero value.
func Register[T any](c *Codec, name string) {
	var zero T
	if name == "" {
		name = domain.ActionType(zero)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.names[reflect.TypeOf(zero)] = name
	c.decode[name] = func(payload any) (any, error) {
		var out T
		if payload == nil {
			return out, nil
		}
		dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
			TagName:          "json",
			WeaklyTypedInput: true,
			Result:           &out,
		})
		if err != nil {
			return nil, err
		}
		if err := dec.Decode(payload); err != nil {
			return nil, err
		}
		return out, nil
	}
}

// Encode serializes an entry.
func (c *Codec) Encode(e Entry) (string, error) {
	c.mu.RLock()
	name, ok := c.names[reflect.TypeOf(e.Action)]
	c.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnknownAction, domain.ActionType(e.Action))
	}

	raw, err := json.Marshal(envelope{Type: name, Payload: e.Action, Error: e.Err})
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return string(raw), nil
}

// Decode parses an entry produced by Encode.
func (c *Codec) Decode(raw string) (Entry, error) {
	var env envelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return Entry{}, fmt.Errorf("failed to parse entry: %w", err)
	}

	c.mu.RLock()
	decode, ok := c.decode[env.Type]
	c.mu.RUnlock()
	if !ok {
		return Entry{}, fmt.Errorf("%w: %s", domain.ErrUnknownAction, env.Type)
	}

	action, err := decode(env.Payload)
	if err != nil {
		return Entry{}, fmt.Errorf("failed to decode %s payload: %w", env.Type, err)
	}
	return Entry{Action: action, Err: env.Error}, nil
}
