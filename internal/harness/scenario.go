package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/vulfram/vulfram-core/internal/platform"
	"github.com/vulfram/vulfram-core/internal/result"
)

// Scenario is one scripted host session.
type Scenario struct {
	// Name uniquely identifies this scenario. It is also the journal
	// session id and the golden file name.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Graphics selects the graphics backend. Empty means headless.
	Graphics string `yaml:"graphics,omitempty"`

	// FrameDelta is the delta used by ticks without explicit time.
	FrameDelta uint32 `yaml:"frame_delta,omitempty"`

	// Steps run in order.
	Steps []Step `yaml:"steps"`

	// Assertions validate the session after the last step.
	Assertions []Assertion `yaml:"assertions"`
}

// Step operations.
const (
	OpInit     = "init"
	OpDispose  = "dispose"
	OpSend     = "send"
	OpReceive  = "receive"
	OpUpload   = "upload"
	OpDownload = "download"
	OpClear    = "clear"
	OpTick     = "tick"
	OpInject   = "inject"
)

// Threads a step can run on.
const (
	ThreadOwner   = "owner"
	ThreadForeign = "foreign"
)

// Step is one host call, or one injected platform event.
type Step struct {
	Op string `yaml:"op"`

	// Thread is owner (default) or foreign.
	Thread string `yaml:"thread,omitempty"`

	// Batch is sent as a CBOR array of envelopes (send).
	Batch []Envelope `yaml:"batch,omitempty"`

	// Raw is sent verbatim as hex instead of Batch (send), for malformed input.
	Raw string `yaml:"raw,omitempty"`

	// Buffer is the buffer id (upload, download, clear).
	Buffer uint64 `yaml:"buffer,omitempty"`

	// Data is uploaded as text (upload).
	Data string `yaml:"data,omitempty"`

	// Capacity makes receive or download a single call with a buffer of
	// this size. -1 probes with no buffer.
	Capacity *int64 `yaml:"capacity,omitempty"`

	// Time and Delta override the tick clock (tick).
	Time  *uint64 `yaml:"time,omitempty"`
	Delta *uint32 `yaml:"delta,omitempty"`

	// Event is fed to the headless windowing (inject).
	Event *InjectEvent `yaml:"event,omitempty"`

	// Expect names the expected result code. Empty means Success.
	Expect string `yaml:"expect,omitempty"`
}

// Envelope is a loosely typed command envelope. Content is encoded as is,
// so scenarios can carry fields the engine does not know.
type Envelope struct {
	ID      uint64         `yaml:"id"`
	Type    string         `yaml:"type"`
	Content map[string]any `yaml:"content"`
}

// InjectEvent is a platform event addressed by engine window id.
type InjectEvent struct {
	Kind     string    `yaml:"kind"`
	Window   uint32    `yaml:"window"`
	Size     [2]uint32 `yaml:"size,omitempty"`
	Position [2]int32  `yaml:"position,omitempty"`
	Focused  bool      `yaml:"focused,omitempty"`
	State    uint32    `yaml:"state,omitempty"`
}

var eventKinds = map[string]platform.EventKind{
	"resized":         platform.EventResized,
	"moved":           platform.EventMoved,
	"focused":         platform.EventFocused,
	"close_requested": platform.EventCloseRequested,
	"destroyed":       platform.EventDestroyed,
	"state_changed":   platform.EventStateChanged,
}

// Assertion validates the session.
type Assertion struct {
	// Type is one of events, event_count, window_count, buffer, replay.
	Type string `yaml:"type"`

	// Events is the expected drained event type sequence (events).
	Events []string `yaml:"events,omitempty"`

	// Event is the counted event type (event_count).
	Event string `yaml:"event,omitempty"`

	// Count is the expected count (event_count, window_count).
	Count int `yaml:"count,omitempty"`

	// Buffer, Data and Absent describe a buffer (buffer).
	Buffer uint64 `yaml:"buffer,omitempty"`
	Data   string `yaml:"data,omitempty"`
	Absent bool   `yaml:"absent,omitempty"`
}

// Assertion type constants.
const (
	AssertEvents      = "events"
	AssertEventCount  = "event_count"
	AssertWindowCount = "window_count"
	AssertBuffer      = "buffer"
	AssertReplay      = "replay"
)

// LoadScenario reads a scenario file. Files ending in .cue are evaluated
// with CUE first; anything else is parsed as YAML. Unknown fields are
// rejected either way.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".cue") {
		data, err = cueToJSON(path, data)
		if err != nil {
			return nil, err
		}
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates YAML (or JSON) scenario bytes.
func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse scenario: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// cueToJSON evaluates a CUE scenario to concrete JSON.
func cueToJSON(path string, data []byte) ([]byte, error) {
	ctx := cuecontext.New()
	v := ctx.CompileBytes(data, cue.Filename(path))
	if err := v.Err(); err != nil {
		return nil, fmt.Errorf("failed to compile CUE scenario: %s", cueerrors.Details(err, nil))
	}
	if err := v.Validate(cue.Concrete(true)); err != nil {
		return nil, fmt.Errorf("CUE scenario is not concrete: %s", cueerrors.Details(err, nil))
	}
	out, err := v.MarshalJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to export CUE scenario: %w", err)
	}
	return out, nil
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	for i := range s.Steps {
		if err := validateStep(i, &s.Steps[i]); err != nil {
			return err
		}
	}
	for i := range s.Assertions {
		if err := validateAssertion(i, &s.Assertions[i]); err != nil {
			return err
		}
		if s.Assertions[i].Type == AssertReplay && s.injects() {
			return fmt.Errorf("assertions[%d]: replay cannot reproduce injected platform events", i)
		}
	}
	return nil
}

func (s *Scenario) injects() bool {
	for _, st := range s.Steps {
		if st.Op == OpInject {
			return true
		}
	}
	return false
}

func validateStep(index int, st *Step) error {
	switch st.Thread {
	case "", ThreadOwner, ThreadForeign:
	default:
		return fmt.Errorf("steps[%d]: unknown thread %q", index, st.Thread)
	}
	if st.Expect != "" {
		if _, ok := result.Parse(st.Expect); !ok {
			return fmt.Errorf("steps[%d]: unknown result %q", index, st.Expect)
		}
	}

	switch st.Op {
	case OpInit, OpDispose, OpTick, OpUpload, OpClear:
	case OpSend:
		if st.Raw != "" && len(st.Batch) > 0 {
			return fmt.Errorf("steps[%d]: batch and raw are exclusive", index)
		}
	case OpReceive, OpDownload:
		if st.Capacity != nil && *st.Capacity < -1 {
			return fmt.Errorf("steps[%d]: capacity must be >= -1", index)
		}
	case OpInject:
		if st.Event == nil {
			return fmt.Errorf("steps[%d]: event is required for inject", index)
		}
		if _, ok := eventKinds[st.Event.Kind]; !ok {
			return fmt.Errorf("steps[%d]: unknown event kind %q", index, st.Event.Kind)
		}
	case "":
		return fmt.Errorf("steps[%d]: op is required", index)
	default:
		return fmt.Errorf("steps[%d]: unknown op %q", index, st.Op)
	}
	return nil
}

func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertEvents, AssertReplay:
	case AssertEventCount:
		if a.Event == "" {
			return fmt.Errorf("assertions[%d]: event is required for event_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertWindowCount:
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative", index)
		}
	case AssertBuffer:
		if a.Absent && a.Data != "" {
			return fmt.Errorf("assertions[%d]: absent buffer cannot have data", index)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
