package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/vulfram/vulfram-core/internal/core"
	"github.com/vulfram/vulfram-core/internal/engine"
	"github.com/vulfram/vulfram-core/internal/journal"
	"github.com/vulfram/vulfram-core/internal/osthread"
	"github.com/vulfram/vulfram-core/internal/result"
)

// AssertionError is returned when an assertion fails.
// It includes the drained events to help debug the failure.
type AssertionError struct {
	Type     string
	Expected string
	Actual   string
	Events   []string
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Events) > 0 {
		fmt.Fprintf(&buf, "\nDrained events:\n")
		for i, ev := range e.Events {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, ev)
		}
	}
	return buf.String()
}

// EvaluateAssertions checks every assertion and returns one message per
// failure.
func EvaluateAssertions(h *Harness, res *Result, assertions []Assertion) []string {
	var errs []string
	for i, a := range assertions {
		var err error
		switch a.Type {
		case AssertEvents:
			err = assertEvents(res, a)
		case AssertEventCount:
			err = assertEventCount(res, a)
		case AssertWindowCount:
			err = h.assertWindowCount(res, a)
		case AssertBuffer:
			err = h.assertBuffer(res, a)
		case AssertReplay:
			err = h.assertReplay(res)
		default:
			err = fmt.Errorf("unknown assertion type %q", a.Type)
		}
		if err != nil {
			errs = append(errs, fmt.Sprintf("assertion %d (%s): %v", i, a.Type, err))
		}
	}
	return errs
}

func assertEvents(res *Result, a Assertion) error {
	got := res.EventTypes()
	want := a.Events
	if want == nil {
		want = []string{}
	}
	if slices.Equal(got, want) {
		return nil
	}
	return &AssertionError{
		Type:     AssertEvents,
		Expected: fmt.Sprintf("%v", want),
		Actual:   fmt.Sprintf("%v", got),
		Events:   got,
	}
}

func assertEventCount(res *Result, a Assertion) error {
	types := res.EventTypes()
	count := 0
	for _, t := range types {
		if t == a.Event {
			count++
		}
	}
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertEventCount,
		Expected: fmt.Sprintf("%d occurrences of %s", a.Count, a.Event),
		Actual:   fmt.Sprintf("%d occurrences", count),
		Events:   types,
	}
}

// inspect runs fn against the live engine on the owner thread. A core that
// is not initialized reports false.
func (h *Harness) inspect(fn func(s *engine.State)) bool {
	var code result.Code
	if err := h.owner.Do(func() { code = h.core.Inspect(fn) }); err != nil {
		return false
	}
	return code == result.Success
}

func (h *Harness) assertWindowCount(res *Result, a Assertion) error {
	count := 0
	h.inspect(func(s *engine.State) { count = s.WindowCount() })
	if count == a.Count {
		return nil
	}
	return &AssertionError{
		Type:     AssertWindowCount,
		Expected: fmt.Sprintf("%d live windows", a.Count),
		Actual:   fmt.Sprintf("%d live windows", count),
		Events:   res.EventTypes(),
	}
}

func (h *Harness) assertBuffer(res *Result, a Assertion) error {
	var (
		data  []byte
		found bool
	)
	h.inspect(func(s *engine.State) { data, found = s.Buffers().Get(a.Buffer) })

	switch {
	case a.Absent && !found:
		return nil
	case a.Absent:
		return &AssertionError{
			Type:     AssertBuffer,
			Expected: fmt.Sprintf("buffer %d absent", a.Buffer),
			Actual:   fmt.Sprintf("buffer %d holds %d bytes", a.Buffer, len(data)),
		}
	case !found:
		return &AssertionError{
			Type:     AssertBuffer,
			Expected: fmt.Sprintf("buffer %d = %q", a.Buffer, a.Data),
			Actual:   fmt.Sprintf("buffer %d absent", a.Buffer),
		}
	case string(data) != a.Data:
		return &AssertionError{
			Type:     AssertBuffer,
			Expected: fmt.Sprintf("buffer %d = %q", a.Buffer, a.Data),
			Actual:   fmt.Sprintf("buffer %d = %q", a.Buffer, data),
		}
	}
	return nil
}

// assertReplay re-issues the journal against a fresh core on a fresh
// thread and reports any divergence.
func (h *Harness) assertReplay(res *Result) error {
	w := osthread.New()
	defer w.Close()

	fresh := core.New(core.WithConfig(h.core.Config()))
	var rr journal.ReplayResult
	err := w.Do(func() {
		rr = journal.Replay(res.Calls, fresh)
		fresh.Dispose()
	})
	if err != nil {
		return err
	}
	if rr.OK() {
		return nil
	}

	lines := make([]string, len(rr.Mismatches))
	for i, m := range rr.Mismatches {
		lines[i] = m.String()
	}
	return &AssertionError{
		Type:     AssertReplay,
		Expected: fmt.Sprintf("%d calls reproduced", rr.Calls),
		Actual:   strings.Join(lines, "; "),
	}
}
