package protocol

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/fxamacker/cbor/v2"

	"github.com/vulfram/vulfram-core/internal/result"
)

// cborArrayMajor is the CBOR major type of arrays (high three bits).
const cborArrayMajor = 4

var (
	// encMode produces deterministic output so a size probe and the
	// following copy of the same events agree byte for byte.
	encMode = mustEncMode(cbor.CoreDetEncOptions())

	// decMode rejects duplicate map keys; unknown fields are ignored.
	decMode = mustDecMode(cbor.DecOptions{
		DupMapKey:       cbor.DupMapKeyEnforcedAPF,
		MaxNestedLevels: 32,
	})

	// genericDecMode decodes into map[string]any for rendering.
	genericDecMode = mustDecMode(cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	})
)

func mustEncMode(opts cbor.EncOptions) cbor.EncMode {
	m, err := opts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("protocol: invalid cbor encode options: %v", err))
	}
	return m
}

func mustDecMode(opts cbor.DecOptions) cbor.DecMode {
	m, err := opts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("protocol: invalid cbor decode options: %v", err))
	}
	return m
}

// DecodeError locates a malformed envelope. Index is -1 when the batch as a
// whole is malformed.
type DecodeError struct {
	Index int
	Err   error
}

func (e *DecodeError) Error() string {
	if e.Index < 0 {
		return fmt.Sprintf("malformed batch: %v", e.Err)
	}
	return fmt.Sprintf("malformed envelope %d: %v", e.Index, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

func malformed(index int, err error) error {
	return &result.Error{
		Code: result.CmdInvalidCborError,
		Op:   "decode batch",
		Err:  &DecodeError{Index: index, Err: err},
	}
}

type wireEnvelope struct {
	ID      *uint64         `cbor:"id"`
	Type    *string         `cbor:"type"`
	Content cbor.RawMessage `cbor:"content"`
}

type outEnvelope struct {
	ID      uint64 `cbor:"id"`
	Type    string `cbor:"type"`
	Content any    `cbor:"content"`
}

type wireEvent struct {
	Type          EventType `cbor:"type"`
	CorrelationID *uint64   `cbor:"correlation_id,omitempty"`
	Content       any       `cbor:"content"`
}

type rawEvent struct {
	Type          string          `cbor:"type"`
	CorrelationID *uint64         `cbor:"correlation_id"`
	Content       cbor.RawMessage `cbor:"content"`
}

// DecodeBatch decodes a CBOR array of envelopes.
//
// Decoding is all-or-nothing. Any malformed envelope fails the whole batch
// with a *result.Error coded CmdInvalidCborError wrapping a *DecodeError.
// A batch longer than maxCommands (when > 0) fails with CmdBatchTooLarge.
func DecodeBatch(data []byte, maxCommands int) ([]Envelope, error) {
	if len(data) == 0 {
		return nil, malformed(-1, errors.New("empty input"))
	}
	if data[0]>>5 != cborArrayMajor {
		return nil, malformed(-1, errors.New("batch must be a CBOR array"))
	}

	var raws []wireEnvelope
	if err := decMode.Unmarshal(data, &raws); err != nil {
		return nil, malformed(-1, err)
	}

	if maxCommands > 0 && len(raws) > maxCommands {
		return nil, &result.Error{
			Code: result.CmdBatchTooLarge,
			Op:   "decode batch",
			Err:  fmt.Errorf("%d commands exceeds limit of %d", len(raws), maxCommands),
		}
	}

	envs := make([]Envelope, 0, len(raws))
	for i, raw := range raws {
		env, err := raw.decode()
		if err != nil {
			return nil, malformed(i, err)
		}
		envs = append(envs, env)
	}
	return envs, nil
}

func (w wireEnvelope) decode() (Envelope, error) {
	if w.ID == nil {
		return Envelope{}, errors.New(`missing "id"`)
	}
	if w.Type == nil || *w.Type == "" {
		return Envelope{}, errors.New(`missing "type"`)
	}

	cmd := newCommand(CommandType(*w.Type))
	if cmd == nil {
		return Envelope{
			ID:      *w.ID,
			Command: UnknownCommand{Type: *w.Type, Content: w.Content},
		}, nil
	}

	if len(w.Content) == 0 {
		return Envelope{}, fmt.Errorf(`%s: missing "content"`, *w.Type)
	}
	if err := decMode.Unmarshal(w.Content, cmd); err != nil {
		return Envelope{}, fmt.Errorf("%s: %w", *w.Type, err)
	}
	return Envelope{ID: *w.ID, Command: deref(cmd)}, nil
}

// EncodeBatch encodes envelopes in the wire layout DecodeBatch reads.
func EncodeBatch(envs []Envelope) ([]byte, error) {
	out := make([]outEnvelope, 0, len(envs))
	for i, env := range envs {
		if env.Command == nil {
			return nil, fmt.Errorf("envelope %d: nil command", i)
		}
		var content any = env.Command
		if u, ok := env.Command.(UnknownCommand); ok {
			content = u.Content
		}
		out = append(out, outEnvelope{
			ID:      env.ID,
			Type:    string(env.Command.Kind()),
			Content: content,
		})
	}
	return encMode.Marshal(out)
}

// EncodeEvents encodes an event batch. An empty or nil slice encodes as an
// empty CBOR array.
func EncodeEvents(events []Event) ([]byte, error) {
	out := make([]wireEvent, 0, len(events))
	for i, e := range events {
		if e.Content == nil {
			return nil, fmt.Errorf("event %d: nil content", i)
		}
		out = append(out, wireEvent{
			Type:          e.Type(),
			CorrelationID: e.CorrelationID,
			Content:       e.Content,
		})
	}
	return encMode.Marshal(out)
}

// DecodeEvents decodes an event batch produced by EncodeEvents.
func DecodeEvents(data []byte) ([]Event, error) {
	var raws []rawEvent
	if err := decMode.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("decode events: %w", err)
	}

	events := make([]Event, 0, len(raws))
	for i, raw := range raws {
		content := newEventContent(EventType(raw.Type))
		if content == nil {
			return nil, fmt.Errorf("event %d: unknown type %q", i, raw.Type)
		}
		if err := decMode.Unmarshal(raw.Content, content); err != nil {
			return nil, fmt.Errorf("event %d (%s): %w", i, raw.Type, err)
		}
		events = append(events, Event{
			CorrelationID: raw.CorrelationID,
			Content:       derefEvent(content),
		})
	}
	return events, nil
}

// Marshal encodes an arbitrary value with the deterministic encoder.
// Used by tooling that builds batches from YAML or CUE documents.
func Marshal(v any) ([]byte, error) {
	return encMode.Marshal(v)
}

// Generic decodes any CBOR document into plain Go values
// (map[string]any, []any, uint64, int64, string, bool, []byte).
func Generic(data []byte) (any, error) {
	var v any
	if err := genericDecMode.Unmarshal(data, &v); err != nil {
		return nil, fmt.Errorf("decode cbor: %w", err)
	}
	return v, nil
}
