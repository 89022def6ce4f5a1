package reconcile

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"
)

// Status is the overall outcome of a run
type Status string

const (
	StatusOK          Status = "ok"
	StatusNothingToDo Status = "nothing_to_do"
	StatusDegraded    Status = "degraded"
)

// Exit codes of a completed run
const (
	ExitOK       = 0
	ExitDegraded = 1
)

// Report summarizes one reconciliation run
type Report struct {
	RunID     string        `json:"run_id"`
	Source    string        `json:"source"`
	Store     string        `json:"store"`
	Before    int           `json:"before"`
	After     int           `json:"after"`
	New       int           `json:"new"`
	Updated   int           `json:"updated"`
	Unchanged int           `json:"unchanged"`
	Deleted   int           `json:"deleted"`
	Failed    int           `json:"failed"`
	Truncated []string      `json:"truncated"`
	Skipped   []string      `json:"skipped,omitempty"`
	Duration  time.Duration `json:"-"`
	Status    Status        `json:"status"`
}

// finalize derives After and Status from the counters
func (r *Report) finalize() {
	r.After = r.Before + r.New - r.Deleted
	r.Failed = len(r.Skipped)
	if r.Truncated == nil {
		r.Truncated = []string{}
	}
	switch {
	case r.Status == StatusNothingToDo:
	case len(r.Truncated) > 0 || r.Failed > 0:
		r.Status = StatusDegraded
	default:
		r.Status = StatusOK
	}
}

// ExitCode maps the status to a process exit code
func (r *Report) ExitCode() int {
	if r.Status == StatusDegraded {
		return ExitDegraded
	}
	return ExitOK
}

// MarshalJSON adds the duration in milliseconds
func (r *Report) MarshalJSON() ([]byte, error) {
	type alias Report
	return json.Marshal(struct {
		*alias
		DurationMS int64 `json:"duration_ms"`
	}{
		alias:      (*alias)(r),
		DurationMS: r.Duration.Milliseconds(),
	})
}

// WriteJSON writes the report as indented JSON
func (r *Report) WriteJSON(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

// Render writes a human-readable summary
func (r *Report) Render(w io.Writer) error {
	var b strings.Builder

	if r.Status == StatusNothingToDo {
		fmt.Fprintf(&b, "No documents found in %s, nothing to do\n", r.Source)
		fmt.Fprintf(&b, "Store %s holds %d records\n", r.Store, r.After)
		_, err := io.WriteString(w, b.String())
		return err
	}

	fmt.Fprintf(&b, "Synchronized %s -> %s\n", r.Source, r.Store)
	fmt.Fprintf(&b, "  new:       %d\n", r.New)
	fmt.Fprintf(&b, "  updated:   %d\n", r.Updated)
	fmt.Fprintf(&b, "  unchanged: %d\n", r.Unchanged)
	fmt.Fprintf(&b, "  deleted:   %d\n", r.Deleted)
	if r.Failed > 0 {
		fmt.Fprintf(&b, "  failed:    %d\n", r.Failed)
	}
	fmt.Fprintf(&b, "Records: %d -> %d (%s)\n", r.Before, r.After, r.Duration.Round(time.Millisecond))

	if len(r.Truncated) > 0 {
		fmt.Fprintf(&b, "Truncated %d document(s):\n", len(r.Truncated))
		for _, identity := range r.Truncated {
			fmt.Fprintf(&b, "  %s\n", identity)
		}
	}
	if len(r.Skipped) > 0 {
		fmt.Fprintf(&b, "Skipped %d document(s) after embedding failures:\n", len(r.Skipped))
		for _, identity := range r.Skipped {
			fmt.Fprintf(&b, "  %s\n", identity)
		}
	}
	fmt.Fprintf(&b, "Status: %s\n", r.Status)

	_, err := io.WriteString(w, b.String())
	return err
}
