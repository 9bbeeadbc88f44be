package engine

import (
	"errors"
	"slices"

	"github.com/vulfram/vulfram-core/internal/platform"
	"github.com/vulfram/vulfram-core/internal/protocol"
)

// WindowHandle is the engine's record of one open window.
type WindowHandle struct {
	ID       uint32
	Native   platform.Window
	Surface  platform.Surface
	Config   platform.SurfaceConfig
	State    protocol.WindowState
	Position [2]int32
	Focused  bool
}

var errIDsExhausted = errors.New("window ids exhausted")

// windowRegistry assigns engine ids and maps native ids back to them.
//
// INVARIANTS:
//   - ids start at 1 and increase by one per registration
//   - an id is never reused within one registry, even after removal
type windowRegistry struct {
	nextID   uint32
	byID     map[uint32]*WindowHandle
	byNative map[platform.NativeID]uint32
}

func newWindowRegistry() *windowRegistry {
	return &windowRegistry{
		nextID:   1,
		byID:     make(map[uint32]*WindowHandle),
		byNative: make(map[platform.NativeID]uint32),
	}
}

// reserve checks an id is available without consuming it.
func (r *windowRegistry) reserve() error {
	if r.nextID == 0 {
		return errIDsExhausted
	}
	return nil
}

// add registers h under the next id and returns it.
func (r *windowRegistry) add(h *WindowHandle) (uint32, error) {
	if err := r.reserve(); err != nil {
		return 0, err
	}
	id := r.nextID
	r.nextID++
	h.ID = id
	r.byID[id] = h
	r.byNative[h.Native.ID()] = id
	return id, nil
}

func (r *windowRegistry) get(id uint32) (*WindowHandle, bool) {
	h, ok := r.byID[id]
	return h, ok
}

func (r *windowRegistry) native(nid platform.NativeID) (*WindowHandle, bool) {
	id, ok := r.byNative[nid]
	if !ok {
		return nil, false
	}
	return r.get(id)
}

func (r *windowRegistry) remove(id uint32) {
	h, ok := r.byID[id]
	if !ok {
		return
	}
	delete(r.byNative, h.Native.ID())
	delete(r.byID, id)
}

// ids returns live ids in ascending order so iteration is deterministic.
func (r *windowRegistry) ids() []uint32 {
	ids := make([]uint32, 0, len(r.byID))
	for id := range r.byID {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func (r *windowRegistry) count() int { return len(r.byID) }
