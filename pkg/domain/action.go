package domain

import (
	"fmt"
	"reflect"
)

// Typed lets an action choose its own recorded/logged name.
type Typed interface {
	ActionType() string
}

// ActionType returns a stable name for an action.
// Actions implementing Typed choose their own; everything else is named after its Go type.
func ActionType(action any) string {
	if action == nil {
		return "<nil>"
	}
	if t, ok := action.(Typed); ok {
		return t.ActionType()
	}
	rt := reflect.TypeOf(action)
	for rt.Kind() == reflect.Pointer {
		rt = rt.Elem()
	}
	if rt.Name() == "" {
		return rt.String()
	}
	if rt.PkgPath() == "" {
		return rt.Name()
	}
	return fmt.Sprintf("%s.%s", lastSegment(rt.PkgPath()), rt.Name())
}

func lastSegment(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
