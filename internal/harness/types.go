package harness

import (
	"github.com/vulfram/vulfram-core/internal/journal"
	"github.com/vulfram/vulfram-core/internal/protocol"
)

// StepReport is what one step did, as the host saw it.
type StepReport struct {
	Index  int
	Op     string
	Thread string
	Result string

	// Events holds the drained events decoded to plain values, when the
	// step copied any out.
	Events any

	// Data holds the downloaded bytes, when the step copied any out.
	Data []byte
}

// Result is the outcome of a scenario run.
type Result struct {
	// Pass is true when every step returned its expected code and every
	// assertion held.
	Pass bool

	Steps []StepReport

	// Events are all drained events in order.
	Events []protocol.Event

	// Errors contains failure messages. Empty if Pass is true.
	Errors []string

	// Calls is the journal of the session.
	Calls []journal.Call
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepReport{},
		Events: []protocol.Event{},
		Errors: []string{},
	}
}

// AddError records a failure and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// EventTypes lists the drained event types in order.
func (r *Result) EventTypes() []string {
	out := make([]string, len(r.Events))
	for i, e := range r.Events {
		out[i] = string(e.Type())
	}
	return out
}

// Report renders the result as a plain value for canonical JSON.
// Byte lengths of encoded payloads are left out; they are covered by the
// journal trace.
func (r *Result) Report(name string) map[string]any {
	steps := make([]any, len(r.Steps))
	for i, s := range r.Steps {
		m := map[string]any{
			"step":   int64(s.Index),
			"op":     s.Op,
			"result": s.Result,
		}
		if s.Thread != "" && s.Thread != ThreadOwner {
			m["thread"] = s.Thread
		}
		if s.Events != nil {
			m["events"] = s.Events
		}
		if s.Data != nil {
			m["data"] = s.Data
		}
		steps[i] = m
	}

	errs := make([]any, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}

	return map[string]any{
		"scenario": name,
		"pass":     r.Pass,
		"steps":    steps,
		"errors":   errs,
	}
}
