// Package demo is the counter model driven by the CLI.
package demo

import (
	"errors"

	"github.com/aretw0/stately/pkg/replay"
)

// ErrNegative is returned when a decrement would take the counter below zero.
var ErrNegative = errors.New("counter cannot go negative")

// Counter is the demo state. It is replaced on every change.
type Counter struct {
	Count   int `json:"count"`
	Updates int `json:"updates"`
}

// Increment adds By to the counter.
type Increment struct {
	By int `json:"by"`
}

// Decrement subtracts By from the counter.
type Decrement struct {
	By int `json:"by"`
}

// Reset brings the counter back to zero.
type Reset struct{}

// Initial returns a fresh counter.
func Initial() *Counter {
	return &Counter{}
}

// Reduce is the counter reducer.
func Reduce(s *Counter, action any) (*Counter, error) {
	switch a := action.(type) {
	case Increment:
		if a.By == 0 {
			return s, nil
		}
		return &Counter{Count: s.Count + a.By, Updates: s.Updates + 1}, nil
	case Decrement:
		if s.Count-a.By < 0 {
			return s, ErrNegative
		}
		if a.By == 0 {
			return s, nil
		}
		return &Counter{Count: s.Count - a.By, Updates: s.Updates + 1}, nil
	case Reset:
		return Initial(), nil
	}
	return s, nil
}

// Codec registers the counter actions for replay.
func Codec() *replay.Codec {
	c := replay.NewCodec()
	replay.Register[Increment](c, "increment")
	replay.Register[Decrement](c, "decrement")
	replay.Register[Reset](c, "reset")
	return c
}
