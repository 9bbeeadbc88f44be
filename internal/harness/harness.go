package harness

import (
	"context"
	"encoding/hex"
	"fmt"
	"log/slog"

	"github.com/vulfram/vulfram-core/internal/config"
	"github.com/vulfram/vulfram-core/internal/core"
	"github.com/vulfram/vulfram-core/internal/engine"
	"github.com/vulfram/vulfram-core/internal/journal"
	"github.com/vulfram/vulfram-core/internal/osthread"
	"github.com/vulfram/vulfram-core/internal/platform"
	"github.com/vulfram/vulfram-core/internal/protocol"
	"github.com/vulfram/vulfram-core/internal/result"
	"github.com/vulfram/vulfram-core/internal/testutil"
)

// Harness drives one scenario.
//
// Every host call goes through a worker locked to an OS thread, so the core
// sees the same thread ids a real host would produce.
type Harness struct {
	scenario *Scenario
	logger   *slog.Logger

	core    *core.Core
	win     *platform.Headless
	owner   *osthread.Worker
	foreign *osthread.Worker
	clock   *testutil.TickClock
}

// Option configures a run.
type Option func(*runConfig)

type runConfig struct {
	logger      *slog.Logger
	journalPath string
}

// WithLogger sets the logger handed to the core.
func WithLogger(l *slog.Logger) Option {
	return func(c *runConfig) { c.logger = l }
}

// WithJournalPath records the session to a journal file instead of an
// in-memory database.
func WithJournalPath(path string) Option {
	return func(c *runConfig) { c.journalPath = path }
}

// Run executes a scenario and returns the result.
//
// Execution flow:
//  1. Open the journal and start a session named after the scenario
//  2. Run each step on its thread and check its result code
//  3. Evaluate assertions against the live core
//  4. Dispose the core if the scenario left it initialized
//
// An error is returned only when the run itself could not be set up.
// Failed steps and assertions are reported in the Result.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	rc := runConfig{journalPath: ":memory:"}
	for _, opt := range opts {
		opt(&rc)
	}

	st, err := journal.Open(rc.journalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	defer st.Close()

	cfg := config.Default()
	if scenario.Graphics != "" {
		cfg.Graphics = scenario.Graphics
	}

	ctx := context.Background()
	rec, err := journal.NewRecorder(ctx, st, journal.NewFixedGenerator(scenario.Name),
		core.Version, cfg.Graphics, rc.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to start journal session: %w", err)
	}

	h := &Harness{
		scenario: scenario,
		logger:   config.OrNop(rc.logger),
		owner:    osthread.New(),
		foreign:  osthread.New(),
		clock:    testutil.NewTickClock(scenario.FrameDelta),
	}
	defer h.owner.Close()
	defer h.foreign.Close()

	h.core = core.New(
		core.WithConfig(cfg),
		core.WithLogger(h.logger),
		core.WithFactory(h.factory),
		core.WithRecorder(rec),
	)

	res := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(i, step, res); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Op, err)
		}
	}

	calls, err := st.ReadCalls(ctx, rec.Session().ID)
	if err != nil {
		return nil, fmt.Errorf("failed to read journal: %w", err)
	}
	res.Calls = calls

	for _, msg := range EvaluateAssertions(h, res, scenario.Assertions) {
		res.AddError(msg)
	}

	// Leave nothing live. This dispose happens after the journal was read,
	// so it is not part of the session.
	_ = h.owner.Do(func() { h.core.Dispose() })

	h.logger.Info("scenario completed",
		"scenario", scenario.Name,
		"steps", len(scenario.Steps),
		"pass", res.Pass,
	)
	return res, nil
}

// factory builds headless collaborators and keeps the windowing so inject
// steps can reach it.
func (h *Harness) factory(cfg config.Config, logger *slog.Logger) (engine.Collaborators, error) {
	collab, err := core.DefaultFactory(cfg, logger)
	if err != nil {
		return engine.Collaborators{}, err
	}
	h.win = collab.Windowing.(*platform.Headless)
	return collab, nil
}

// execute runs one step on its thread and records its report.
func (h *Harness) execute(index int, step Step, res *Result) error {
	worker := h.owner
	if step.Thread == ThreadForeign {
		worker = h.foreign
	}

	report := StepReport{Index: index, Op: step.Op, Thread: step.Thread}
	var (
		code   result.Code
		runErr error
	)
	err := worker.Do(func() {
		code, runErr = h.call(step, &report, res)
	})
	if err != nil {
		return err
	}
	if runErr != nil {
		return runErr
	}

	report.Result = code.String()
	res.Steps = append(res.Steps, report)

	want := result.Success
	if step.Expect != "" {
		want, _ = result.Parse(step.Expect)
	}
	if code != want {
		res.AddError(fmt.Sprintf("step %d (%s): want %s, got %s", index, step.Op, want, code))
	}
	return nil
}

func (h *Harness) call(step Step, report *StepReport, res *Result) (result.Code, error) {
	switch step.Op {
	case OpInit:
		return h.core.Init(), nil
	case OpDispose:
		return h.core.Dispose(), nil
	case OpSend:
		batch, err := encodeStepBatch(step)
		if err != nil {
			return 0, err
		}
		return h.core.Send(batch), nil
	case OpReceive:
		return h.receive(step, report, res)
	case OpUpload:
		return h.core.Upload(step.Buffer, []byte(step.Data)), nil
	case OpDownload:
		code, out := h.exchange(step.Capacity, func(out []byte, n *uint64) result.Code {
			return h.core.Download(step.Buffer, out, n)
		})
		report.Data = out
		return code, nil
	case OpClear:
		return h.core.Clear(step.Buffer), nil
	case OpTick:
		time, delta := h.tickArgs(step)
		return h.core.Tick(time, delta), nil
	case OpInject:
		return h.inject(step.Event)
	default:
		return 0, fmt.Errorf("unknown op %q", step.Op)
	}
}

func (h *Harness) receive(step Step, report *StepReport, res *Result) (result.Code, error) {
	code, out := h.exchange(step.Capacity, h.core.Receive)
	if out == nil {
		return code, nil
	}

	events, err := protocol.DecodeEvents(out)
	if err != nil {
		return 0, fmt.Errorf("decode received events: %w", err)
	}
	generic, err := protocol.Generic(out)
	if err != nil {
		return 0, fmt.Errorf("decode received events: %w", err)
	}
	res.Events = append(res.Events, events...)
	report.Events = generic
	return code, nil
}

// exchange performs a retrieval. With no capacity it is the host's full
// two-phase exchange; otherwise it is one call with a buffer of that size.
// The copied bytes are returned when the call copied any.
func (h *Harness) exchange(capacity *int64, fn func(out []byte, length *uint64) result.Code) (result.Code, []byte) {
	var length uint64
	if capacity != nil {
		var out []byte
		if *capacity >= 0 {
			out = make([]byte, *capacity)
		}
		code := fn(out, &length)
		if code != result.Success || out == nil {
			return code, nil
		}
		return code, out[:length]
	}

	if code := fn(nil, &length); code != result.Success {
		return code, nil
	}
	out := make([]byte, length)
	code := fn(out, &length)
	if code != result.Success {
		return code, nil
	}
	return code, out[:length]
}

func (h *Harness) tickArgs(step Step) (uint64, uint32) {
	if step.Time == nil {
		time, delta := h.clock.Next()
		if step.Delta != nil {
			delta = *step.Delta
		}
		return time, delta
	}
	h.clock.Set(*step.Time)
	delta := testutil.DefaultFrameDelta
	if h.scenario.FrameDelta != 0 {
		delta = h.scenario.FrameDelta
	}
	if step.Delta != nil {
		delta = *step.Delta
	}
	return *step.Time, delta
}

// inject feeds a platform event for an engine window to the windowing.
// It is not a host call, so it is neither guarded nor journaled.
func (h *Harness) inject(ev *InjectEvent) (result.Code, error) {
	var (
		native platform.NativeID
		found  bool
	)
	code := h.core.Inspect(func(s *engine.State) {
		w, ok := s.Window(ev.Window)
		if ok {
			native, found = w.Native.ID(), true
		}
	})
	if code != result.Success {
		return code, nil
	}
	if !found {
		return result.WindowNotFound, nil
	}

	h.win.Inject(platform.Event{
		Kind:     eventKinds[ev.Kind],
		Window:   native,
		Size:     ev.Size,
		Position: ev.Position,
		Focused:  ev.Focused,
		State:    protocol.WindowState(ev.State),
	})
	return result.Success, nil
}

func encodeStepBatch(step Step) ([]byte, error) {
	if step.Raw != "" {
		b, err := hex.DecodeString(step.Raw)
		if err != nil {
			return nil, fmt.Errorf("raw batch: %w", err)
		}
		return b, nil
	}
	return EncodeBatch(step.Batch)
}

// EncodeBatch encodes loosely typed envelopes as a CBOR command batch.
func EncodeBatch(envs []Envelope) ([]byte, error) {
	out := make([]any, len(envs))
	for i, e := range envs {
		m := map[string]any{
			"id":   e.ID,
			"type": e.Type,
		}
		if e.Content != nil {
			m["content"] = e.Content
		}
		out[i] = m
	}
	return protocol.Marshal(out)
}
