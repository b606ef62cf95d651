package store

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/aretw0/stately/pkg/domain"
	"github.com/pmezard/go-difflib/difflib"
)

// Report renders an action and the state diff it caused.
func Report(action any, before, after any) string {
	var b strings.Builder
	fmt.Fprintf(&b, "action %s %s\n", domain.ActionType(action), render(action))
	d := Diff(before, after)
	if d == "" {
		b.WriteString("(no state change)\n")
		return b.String()
	}
	b.WriteString(d)
	return b.String()
}

// Diff returns a unified diff between the JSON renderings of two states.
// It is empty when the renderings are identical.
func Diff(before, after any) string {
	a, b := render(before), render(after)
	if a == b {
		return ""
	}
	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(a + "\n"),
		B:        difflib.SplitLines(b + "\n"),
		FromFile: "before",
		ToFile:   "after",
		Context:  1,
	})
	if err != nil {
		return fmt.Sprintf("- %s\n+ %s\n", a, b)
	}
	return text
}

func render(v any) string {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Sprintf("%+v", v)
	}
	return string(data)
}
