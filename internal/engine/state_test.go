package engine

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vulfram/vulfram-core/internal/platform"
	"github.com/vulfram/vulfram-core/internal/protocol"
	"github.com/vulfram/vulfram-core/internal/result"
	"github.com/vulfram/vulfram-core/internal/shader"
)

// fakeSPIRV is a minimal module header: magic plus four zero words.
var fakeSPIRV = []byte{0x03, 0x02, 0x23, 0x07, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}

type testEngine struct {
	*State
	win *platform.Headless
	gfx *platform.HeadlessGraphics
}

func setupTestState(t *testing.T, opts ...Option) *testEngine {
	t.Helper()
	win := platform.NewHeadless()
	gfx := platform.NewHeadlessGraphics()
	compiler := shader.Func(func(src string) ([]byte, error) {
		if src == "bad" {
			return nil, errors.New("parse error at 1:1")
		}
		return fakeSPIRV, nil
	})

	s, err := New(Collaborators{Windowing: win, Graphics: gfx, Shader: compiler}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return &testEngine{State: s, win: win, gfx: gfx}
}

func send(t *testing.T, s *State, envs ...protocol.Envelope) {
	t.Helper()
	data, err := protocol.EncodeBatch(envs)
	require.NoError(t, err)
	require.NoError(t, s.Send(data))
}

// drain takes every pending event the way a host would: probe, allocate, copy.
func drain(t *testing.T, s *State) []protocol.Event {
	t.Helper()
	probe, err := s.Receive(nil)
	require.NoError(t, err)
	require.Equal(t, protocol.NeedsSize, probe.Outcome)

	out := make([]byte, probe.Length)
	n, err := s.Receive(out)
	require.NoError(t, err)
	require.Equal(t, protocol.Copied, n.Outcome)

	events, err := protocol.DecodeEvents(out[:n.Length])
	require.NoError(t, err)
	return events
}

func create(title string, w, h uint32) protocol.WindowCreate {
	return protocol.WindowCreate{Title: title, Size: [2]uint32{w, h}, Resizable: true}
}

func TestState_NewRequiresCollaborators(t *testing.T) {
	_, err := New(Collaborators{Graphics: platform.NewHeadlessGraphics()})
	assert.Equal(t, result.WindowingInitError, result.FromError(err))

	_, err = New(Collaborators{Windowing: platform.NewHeadless()})
	assert.Equal(t, result.GraphicsInstanceError, result.FromError(err))
}

func TestState_CreateWindowEmitsOneEvent(t *testing.T) {
	e := setupTestState(t)
	send(t, e.State, protocol.Envelope{ID: 77, Command: create("main", 800, 600)})

	events := drain(t, e.State)
	require.Len(t, events, 1)
	assert.Equal(t, protocol.Caused(77, protocol.WindowCreated{ID: 1}), events[0])

	h, ok := e.Window(1)
	require.True(t, ok)
	assert.Equal(t, protocol.WindowWindowed, h.State)
	assert.Equal(t, uint32(800), h.Config.Size.Width)
	assert.Equal(t, 1, e.gfx.Configures(h.Native.ID()))
}

func TestState_WindowIDsAreNeverReused(t *testing.T) {
	e := setupTestState(t)
	send(t, e.State,
		protocol.Envelope{ID: 1, Command: create("a", 10, 10)},
		protocol.Envelope{ID: 2, Command: protocol.WindowClose{WindowID: 1}},
		protocol.Envelope{ID: 3, Command: create("b", 10, 10)},
	)

	events := drain(t, e.State)
	assert.Equal(t, []protocol.Event{
		protocol.Caused(1, protocol.WindowCreated{ID: 1}),
		protocol.Caused(2, protocol.WindowClosed{ID: 1}),
		protocol.Caused(3, protocol.WindowCreated{ID: 2}),
	}, events)
	assert.Equal(t, []uint32{2}, e.WindowIDs())
}

func TestState_FailedCreateDoesNotConsumeID(t *testing.T) {
	e := setupTestState(t)
	e.win.FailCreate(errors.New("no display"))
	send(t, e.State, protocol.Envelope{ID: 1, Command: create("a", 10, 10)})
	e.win.FailCreate(nil)
	send(t, e.State, protocol.Envelope{ID: 2, Command: create("b", 10, 10)})

	events := drain(t, e.State)
	require.Len(t, events, 2)
	failed, ok := events[0].Content.(protocol.CommandFailed)
	require.True(t, ok)
	assert.Equal(t, uint32(result.WindowCreateError), failed.Code)
	assert.Contains(t, failed.Message, "no display")
	assert.Equal(t, protocol.Caused(2, protocol.WindowCreated{ID: 1}), events[1])
}

func TestState_SurfaceFailureClosesNativeWindow(t *testing.T) {
	e := setupTestState(t)
	e.gfx.FailSurface(errors.New("no adapter"))
	send(t, e.State, protocol.Envelope{ID: 1, Command: create("a", 10, 10)})

	events := drain(t, e.State)
	require.Len(t, events, 1)
	assert.Equal(t, uint32(result.SurfaceCreateError), events[0].Content.(protocol.CommandFailed).Code)
	assert.Zero(t, e.win.Len())
	assert.Zero(t, e.WindowCount())
}

func TestState_ContinueOnError(t *testing.T) {
	e := setupTestState(t)
	send(t, e.State,
		protocol.Envelope{ID: 1, Command: protocol.WindowClose{WindowID: 9}},
		protocol.Envelope{ID: 2, Command: protocol.UnknownCommand{Type: "cmd-teleport"}},
		protocol.Envelope{ID: 3, Command: create("ok", 10, 10)},
		protocol.Envelope{ID: 4, Command: create("zero", 0, 10)},
	)

	events := drain(t, e.State)
	require.Len(t, events, 4)

	codes := map[uint64]uint32{}
	for _, ev := range events {
		if f, ok := ev.Content.(protocol.CommandFailed); ok {
			codes[*ev.CorrelationID] = f.Code
		}
	}
	assert.Equal(t, map[uint64]uint32{
		1: uint32(result.WindowNotFound),
		2: uint32(result.CmdUnknownType),
		4: uint32(result.InvalidParameter),
	}, codes)
	assert.Equal(t, protocol.Caused(3, protocol.WindowCreated{ID: 1}), events[2])

	failed := events[1].Content.(protocol.CommandFailed)
	assert.Equal(t, "cmd-teleport", failed.Command)
}

func TestState_CreateZeroSize(t *testing.T) {
	e := setupTestState(t)
	send(t, e.State,
		protocol.Envelope{ID: 1, Command: create("wide", 10, 0)},
		protocol.Envelope{ID: 2, Command: create("tall", 0, 10)},
		protocol.Envelope{ID: 3, Command: create("ok", 10, 10)},
	)

	events := drain(t, e.State)
	require.Len(t, events, 3)
	for i, ev := range events[:2] {
		failed, ok := ev.Content.(protocol.CommandFailed)
		require.True(t, ok, "event %d: %v", i, ev)
		assert.Equal(t, uint32(result.InvalidParameter), failed.Code)
		assert.Equal(t, string(protocol.CmdWindowCreate), failed.Command)
	}
	// Rejected before the platform is touched, so no id is consumed.
	assert.Equal(t, protocol.Caused(3, protocol.WindowCreated{ID: 1}), events[2])
	assert.Equal(t, 1, e.win.Len())
}

func TestState_InvalidInitialState(t *testing.T) {
	e := setupTestState(t)
	bad := protocol.WindowState(12)
	c := create("a", 10, 10)
	c.InitialState = &bad
	send(t, e.State, protocol.Envelope{ID: 1, Command: c})

	events := drain(t, e.State)
	require.Len(t, events, 1)
	assert.Equal(t, uint32(result.InvalidParameter), events[0].Content.(protocol.CommandFailed).Code)
}

func TestState_MalformedBatchAppliesNothing(t *testing.T) {
	e := setupTestState(t)

	good, err := protocol.EncodeBatch([]protocol.Envelope{{ID: 1, Command: create("a", 10, 10)}})
	require.NoError(t, err)
	bad, err := protocol.Marshal([]any{
		map[string]any{"id": 1, "type": "cmd-window-create", "content": map[string]any{"title": "a", "size": []uint32{10, 10}}},
		map[string]any{"id": 2, "type": "cmd-window-close", "content": map[string]any{"window_id": "x"}},
		map[string]any{"id": 3, "type": "cmd-window-create", "content": map[string]any{"title": "c", "size": []uint32{10, 10}}},
	})
	require.NoError(t, err)

	err = e.Send(bad)
	assert.Equal(t, result.CmdInvalidCborError, result.FromError(err))
	assert.Zero(t, e.WindowCount())
	assert.Zero(t, e.Queue().Len())
	assert.Zero(t, e.win.Len())

	require.NoError(t, e.Send(good))
	assert.Equal(t, 1, e.WindowCount())
}

func TestState_BatchLimit(t *testing.T) {
	e := setupTestState(t, WithMaxBatchCommands(1))
	data, err := protocol.EncodeBatch([]protocol.Envelope{
		{ID: 1, Command: create("a", 10, 10)},
		{ID: 2, Command: create("b", 10, 10)},
	})
	require.NoError(t, err)

	err = e.Send(data)
	assert.Equal(t, result.CmdBatchTooLarge, result.FromError(err))
	assert.Zero(t, e.WindowCount())
}

func TestState_WindowCommands(t *testing.T) {
	e := setupTestState(t)
	send(t, e.State, protocol.Envelope{ID: 1, Command: create("a", 100, 100)})
	drain(t, e.State)

	send(t, e.State,
		protocol.Envelope{ID: 2, Command: protocol.WindowSetTitle{WindowID: 1, Title: "renamed"}},
		protocol.Envelope{ID: 3, Command: protocol.WindowSetSize{WindowID: 1, Size: [2]uint32{300, 200}}},
		protocol.Envelope{ID: 4, Command: protocol.WindowSetState{WindowID: 1, State: protocol.WindowMaximized}},
	)
	assert.Zero(t, e.Queue().Len(), "setters acknowledge through platform events")

	h, ok := e.Window(1)
	require.True(t, ok)
	native := h.Native.(*platform.HeadlessWindow)
	assert.Equal(t, "renamed", native.Title())
	assert.Equal(t, [2]uint32{300, 200}, native.Size())
	assert.Equal(t, uint32(300), h.Config.Size.Width)
	assert.Equal(t, protocol.WindowMaximized, h.State)
	assert.Equal(t, 2, e.gfx.Configures(native.ID()))

	require.NoError(t, e.Tick(16, 16))
	events := drain(t, e.State)
	assert.Equal(t, []protocol.Event{
		protocol.Platform(protocol.WindowResized{ID: 1, Size: [2]uint32{300, 200}}),
		protocol.Platform(protocol.WindowStateChanged{ID: 1, State: protocol.WindowMaximized}),
	}, events)
	assert.Equal(t, 2, e.gfx.Configures(native.ID()), "echoed resize does not reconfigure again")
}

func TestState_SettersOnMissingWindow(t *testing.T) {
	e := setupTestState(t)
	send(t, e.State,
		protocol.Envelope{ID: 1, Command: protocol.WindowSetTitle{WindowID: 5, Title: "x"}},
		protocol.Envelope{ID: 2, Command: protocol.WindowSetSize{WindowID: 5, Size: [2]uint32{1, 1}}},
		protocol.Envelope{ID: 3, Command: protocol.WindowSetState{WindowID: 5, State: protocol.WindowWindowed}},
	)

	events := drain(t, e.State)
	require.Len(t, events, 3)
	for i, ev := range events {
		assert.Equal(t, uint64(i+1), *ev.CorrelationID)
		assert.Equal(t, uint32(result.WindowNotFound), ev.Content.(protocol.CommandFailed).Code)
	}
}

func TestState_CloseReleasesSurface(t *testing.T) {
	e := setupTestState(t)
	send(t, e.State, protocol.Envelope{ID: 1, Command: create("a", 10, 10)})
	h, _ := e.Window(1)
	nid := h.Native.ID()

	send(t, e.State, protocol.Envelope{ID: 2, Command: protocol.WindowClose{WindowID: 1}})
	assert.True(t, e.gfx.Released(nid))
	assert.Zero(t, e.win.Len())

	send(t, e.State, protocol.Envelope{ID: 3, Command: protocol.WindowClose{WindowID: 1}})
	events := drain(t, e.State)
	require.Len(t, events, 3)
	assert.Equal(t, uint32(result.WindowNotFound), events[2].Content.(protocol.CommandFailed).Code)
}

func TestState_TickFoldsPlatformEvents(t *testing.T) {
	e := setupTestState(t)
	send(t, e.State, protocol.Envelope{ID: 1, Command: create("a", 10, 10)})
	drain(t, e.State)
	h, _ := e.Window(1)
	nid := h.Native.ID()

	e.win.Inject(
		platform.Event{Kind: platform.EventMoved, Window: nid, Position: [2]int32{4, 5}},
		platform.Event{Kind: platform.EventFocused, Window: nid, Focused: true},
		platform.Event{Kind: platform.EventResized, Window: nid, Size: [2]uint32{40, 30}},
		platform.Event{Kind: platform.EventCloseRequested, Window: nid},
		platform.Event{Kind: platform.EventFocused, Window: 999, Focused: true},
	)
	require.NoError(t, e.Tick(100, 16))

	events := drain(t, e.State)
	assert.Equal(t, []protocol.Event{
		protocol.Platform(protocol.WindowMoved{ID: 1, Position: [2]int32{4, 5}}),
		protocol.Platform(protocol.WindowFocused{ID: 1, Focused: true}),
		protocol.Platform(protocol.WindowResized{ID: 1, Size: [2]uint32{40, 30}}),
		protocol.Platform(protocol.WindowCloseRequested{ID: 1}),
	}, events)

	h, ok := e.Window(1)
	require.True(t, ok, "close-requested leaves the window open")
	assert.True(t, h.Focused)
	assert.Equal(t, [2]int32{4, 5}, h.Position)
	assert.Equal(t, uint32(40), h.Config.Size.Width)
	assert.Equal(t, 1, h.Native.(*platform.HeadlessWindow).Redraws())
	assert.Equal(t, uint64(1), e.Clock().Frame())
	assert.Equal(t, uint64(100), e.Clock().Time())
}

func TestState_TickDestroyedUnregisters(t *testing.T) {
	e := setupTestState(t)
	send(t, e.State, protocol.Envelope{ID: 1, Command: create("a", 10, 10)})
	drain(t, e.State)
	h, _ := e.Window(1)
	nid := h.Native.ID()

	e.win.Inject(platform.Event{Kind: platform.EventDestroyed, Window: nid})
	require.NoError(t, e.Tick(1, 1))

	assert.Equal(t, []protocol.Event{protocol.Platform(protocol.WindowClosed{ID: 1})}, drain(t, e.State))
	assert.Zero(t, e.WindowCount())
	assert.True(t, e.gfx.Released(nid))
}

func TestState_TickZeroResizeKeepsSurfaceConfig(t *testing.T) {
	e := setupTestState(t)
	send(t, e.State, protocol.Envelope{ID: 1, Command: create("a", 10, 10)})
	h, _ := e.Window(1)

	e.win.Inject(platform.Event{Kind: platform.EventResized, Window: h.Native.ID(), Size: [2]uint32{0, 0}})
	require.NoError(t, e.Tick(1, 1))

	h, _ = e.Window(1)
	assert.Equal(t, uint32(10), h.Config.Size.Width)
}

func TestState_TickPumpFailure(t *testing.T) {
	e := setupTestState(t)
	e.win.FailPump(errors.New("display lost"))

	err := e.Tick(1, 1)
	assert.Equal(t, result.WindowingPumpError, result.FromError(err))
}

func TestState_TickRedrawsEveryWindow(t *testing.T) {
	e := setupTestState(t)
	send(t, e.State,
		protocol.Envelope{ID: 1, Command: create("a", 10, 10)},
		protocol.Envelope{ID: 2, Command: create("b", 10, 10)},
	)
	require.NoError(t, e.Tick(1, 1))
	require.NoError(t, e.Tick(2, 1))

	for _, id := range e.WindowIDs() {
		h, _ := e.Window(id)
		assert.Equal(t, 2, h.Native.(*platform.HeadlessWindow).Redraws())
	}
}

func TestState_ReceiveNegotiation(t *testing.T) {
	e := setupTestState(t)
	send(t, e.State,
		protocol.Envelope{ID: 1, Command: create("a", 10, 10)},
		protocol.Envelope{ID: 2, Command: create("b", 10, 10)},
	)

	probe, err := e.Receive(nil)
	require.NoError(t, err)
	assert.Equal(t, protocol.NeedsSize, probe.Outcome)
	assert.Equal(t, 2, e.Queue().Len(), "probe does not mutate")

	small := make([]byte, probe.Length-1)
	n, err := e.Receive(small)
	require.NoError(t, err)
	assert.Equal(t, protocol.Overflow, n.Outcome)
	assert.Equal(t, probe.Length, n.Length)
	assert.Equal(t, result.BufferOverflow, n.Code())
	assert.Equal(t, 2, e.Queue().Len(), "overflow does not mutate")

	events := drain(t, e.State)
	assert.Len(t, events, 2, "retry drains the same events")
	assert.Zero(t, e.Queue().Len())

	probe, err = e.Receive(nil)
	require.NoError(t, err)
	assert.Equal(t, 1, probe.Length, "empty queue is an empty array")
}

func TestState_UploadDownload(t *testing.T) {
	e := setupTestState(t)
	e.Upload(5, []byte("hello"))

	probe, err := e.Download(5, nil)
	require.NoError(t, err)
	assert.Equal(t, protocol.Negotiation{Outcome: protocol.NeedsSize, Length: 5}, probe)

	n, err := e.Download(5, make([]byte, 2))
	require.NoError(t, err)
	assert.Equal(t, protocol.Overflow, n.Outcome)

	out := make([]byte, 5)
	n, err = e.Download(5, out)
	require.NoError(t, err)
	assert.Equal(t, protocol.Copied, n.Outcome)
	assert.Equal(t, "hello", string(out))

	_, ok := e.Buffers().Get(5)
	assert.True(t, ok, "download keeps the buffer")

	e.Clear(5)
	e.Clear(5)
	_, err = e.Download(5, nil)
	assert.Equal(t, result.UnknownError, result.FromError(err))
	_, err = e.Download(5, out)
	assert.Equal(t, result.UnknownError, result.FromError(err))
}

func TestState_ShaderCompile(t *testing.T) {
	e := setupTestState(t)
	e.Upload(10, []byte("@compute fn main() {}"))
	e.Upload(12, []byte("bad"))

	send(t, e.State,
		protocol.Envelope{ID: 1, Command: protocol.ShaderCompile{SourceBuffer: 10, TargetBuffer: 11}},
		protocol.Envelope{ID: 2, Command: protocol.ShaderCompile{SourceBuffer: 12, TargetBuffer: 13}},
		protocol.Envelope{ID: 3, Command: protocol.ShaderCompile{SourceBuffer: 99, TargetBuffer: 14}},
	)

	events := drain(t, e.State)
	require.Len(t, events, 3)
	assert.Equal(t, protocol.Caused(1, protocol.ShaderCompiled{Buffer: 11, Size: uint64(len(fakeSPIRV))}), events[0])
	assert.Equal(t, uint32(result.ShaderCompileError), events[1].Content.(protocol.CommandFailed).Code)
	assert.Equal(t, uint32(result.UnknownError), events[2].Content.(protocol.CommandFailed).Code)

	spirv, ok := e.Buffers().Get(11)
	require.True(t, ok)
	assert.Equal(t, fakeSPIRV, spirv)
	_, ok = e.Buffers().Get(13)
	assert.False(t, ok)
}

func TestState_ShaderValidate(t *testing.T) {
	e := setupTestState(t)
	e.Upload(10, []byte("@compute fn main() {}"))
	e.Upload(12, []byte("bad"))

	send(t, e.State,
		protocol.Envelope{ID: 1, Command: protocol.ShaderValidate{SourceBuffer: 10}},
		protocol.Envelope{ID: 2, Command: protocol.ShaderValidate{SourceBuffer: 12}},
		protocol.Envelope{ID: 3, Command: protocol.ShaderValidate{SourceBuffer: 99}},
	)

	events := drain(t, e.State)
	require.Len(t, events, 3)
	assert.Equal(t, protocol.Caused(1, protocol.ShaderValidated{Buffer: 10, Valid: true}), events[0])
	assert.Equal(t, protocol.Caused(2, protocol.ShaderValidated{Buffer: 12, Message: "parse error at 1:1"}), events[1])
	assert.Equal(t, uint32(result.UnknownError), events[2].Content.(protocol.CommandFailed).Code)

	// Validation stores nothing.
	assert.Equal(t, 2, e.Buffers().Len())
}

func TestState_PanickingCommandIsReported(t *testing.T) {
	win := platform.NewHeadless()
	s, err := New(Collaborators{
		Windowing: win,
		Graphics:  platform.NewHeadlessGraphics(),
		Shader:    shader.Func(func(string) ([]byte, error) { panic("translator crashed") }),
	})
	require.NoError(t, err)
	s.Upload(1, []byte("x"))

	send(t, s,
		protocol.Envelope{ID: 1, Command: protocol.ShaderCompile{SourceBuffer: 1, TargetBuffer: 2}},
		protocol.Envelope{ID: 2, Command: create("after", 10, 10)},
	)

	events := drain(t, s)
	require.Len(t, events, 2)
	failed := events[0].Content.(protocol.CommandFailed)
	assert.Equal(t, uint32(result.UnknownError), failed.Code)
	assert.Contains(t, failed.Message, "translator crashed")
	assert.Equal(t, protocol.EvtWindowCreated, events[1].Type())
}

func TestState_CloseReleasesEverything(t *testing.T) {
	win := platform.NewHeadless()
	gfx := platform.NewHeadlessGraphics()
	s, err := New(Collaborators{Windowing: win, Graphics: gfx, Shader: shader.Naga{}})
	require.NoError(t, err)

	send(t, s,
		protocol.Envelope{ID: 1, Command: create("a", 10, 10)},
		protocol.Envelope{ID: 2, Command: create("b", 10, 10)},
	)
	require.NoError(t, s.Close())

	assert.Zero(t, s.WindowCount())
	assert.Zero(t, win.Len())
	_, err = win.Pump(0)
	assert.ErrorIs(t, err, platform.ErrClosed)
}
