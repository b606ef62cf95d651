package store_test

import (
	"errors"

	"github.com/aretw0/stately/pkg/store"
)

type counter struct {
	Count int
	Tags  []string
}

type increment struct{ By int }

type tag struct{ Name string }

type noop struct{}

type boom struct{}

var errBoom = errors.New("boom")

func counterReducer(s counter, action any) (counter, error) {
	switch a := action.(type) {
	case increment:
		s.Count += a.By
		return s, nil
	case tag:
		next := make([]string, len(s.Tags), len(s.Tags)+1)
		copy(next, s.Tags)
		s.Tags = append(next, a.Name)
		return s, nil
	case boom:
		return s, errBoom
	default:
		return s, nil
	}
}

func newCounter(opts ...store.Option[counter]) *store.Store[counter] {
	s, err := store.New(counterReducer, counter{}, opts...)
	if err != nil {
		panic(err)
	}
	return s
}
