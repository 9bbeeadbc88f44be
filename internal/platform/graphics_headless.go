package platform

// BackendHeadless is the name of the headless graphics backend.
const BackendHeadless = "headless"

// HeadlessGraphics hands out bookkeeping surfaces.
type HeadlessGraphics struct {
	surfaces map[NativeID]*recordSurface
	surfErr  error
	closed   bool
}

// NewHeadlessGraphics returns a headless graphics backend.
func NewHeadlessGraphics() *HeadlessGraphics {
	return &HeadlessGraphics{surfaces: make(map[NativeID]*recordSurface)}
}

func (g *HeadlessGraphics) Name() string { return BackendHeadless }

func (g *HeadlessGraphics) CreateSurface(w Window) (Surface, error) {
	if g.closed {
		return nil, ErrClosed
	}
	if g.surfErr != nil {
		return nil, g.surfErr
	}
	s := &recordSurface{window: w.ID()}
	g.surfaces[w.ID()] = s
	return s, nil
}

func (g *HeadlessGraphics) Close() error {
	g.closed = true
	for _, s := range g.surfaces {
		s.Release()
	}
	g.surfaces = nil
	return nil
}

// FailSurface makes CreateSurface fail with err until called with nil.
func (g *HeadlessGraphics) FailSurface(err error) { g.surfErr = err }

// Configures reports how many times the surface of a window was configured.
func (g *HeadlessGraphics) Configures(id NativeID) int {
	if s, ok := g.surfaces[id]; ok {
		return s.configures
	}
	return 0
}

// Released reports whether the surface of a window has been released.
func (g *HeadlessGraphics) Released(id NativeID) bool {
	s, ok := g.surfaces[id]
	return ok && s.released
}
