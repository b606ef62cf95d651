package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/aretw0/stately/pkg/domain"
	"github.com/charmbracelet/glamour"
)

// RunReplay resets the store and replays the first steps entries (all when steps < 0).
func RunReplay(ctx context.Context, s *Session, steps int, p *Printer) error {
	err := s.Recorder.ReplayStore(ctx, s.Store, steps)
	var mismatch *domain.ReplayMismatchError
	if errors.As(err, &mismatch) {
		p.Failure("%v", mismatch)
		return err
	}
	if err != nil {
		return err
	}
	st := s.Store.GetState()
	p.Success("replay reproduced the recording: count=%d updates=%d", st.Count, st.Updates)
	return nil
}

// LogMarkdown renders the recorded entries as a markdown table.
func LogMarkdown(ctx context.Context, s *Session) (string, error) {
	entries, err := s.Recorder.Entries(ctx)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Action log\n\n%d entries\n\n", len(entries))
	if len(entries) == 0 {
		return b.String(), nil
	}
	b.WriteString("| # | action | payload | error |\n|---|---|---|---|\n")
	for i, e := range entries {
		payload, err := json.Marshal(e.Action)
		if err != nil {
			payload = []byte("?")
		}
		fmt.Fprintf(&b, "| %d | %s | `%s` | %s |\n", i, domain.ActionType(e.Action), payload, e.Err)
	}
	return b.String(), nil
}

// PrintLog writes the log, rendered with glamour on terminals.
func PrintLog(ctx context.Context, s *Session, p *Printer) error {
	md, err := LogMarkdown(ctx, s)
	if err != nil {
		return err
	}
	if !p.TTY() {
		_, err = fmt.Fprint(p.Writer(), md)
		return err
	}

	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(p.Width()),
	)
	if err != nil {
		return err
	}
	out, err := r.Render(md)
	if err != nil {
		return err
	}
	_, err = fmt.Fprint(p.Writer(), out)
	return err
}
