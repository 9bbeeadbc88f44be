package journal

import "github.com/vulfram/vulfram-core/internal/result"

// Op names a boundary operation.
type Op string

const (
	OpInit     Op = "init"
	OpDispose  Op = "dispose"
	OpSend     Op = "send"
	OpReceive  Op = "receive"
	OpUpload   Op = "upload"
	OpDownload Op = "download"
	OpClear    Op = "clear"
	OpTick     Op = "tick"
)

// Probe is the Capacity of a receive or download that passed no buffer.
const Probe int64 = -1

// Session describes one recorded core lifetime.
type Session struct {
	ID            string
	EngineVersion string
	Graphics      string
}

// Call is one recorded boundary call. Fields unused by Op are zero.
type Call struct {
	Seq      int64
	Op       Op
	BufferID uint64
	Time     uint64
	Delta    uint32
	// Capacity of the host buffer for receive and download, or Probe.
	Capacity int64
	// Payload holds bytes the host passed in (send, upload).
	Payload []byte
	// Output holds bytes copied out to the host (receive, download).
	Output []byte
	// Length is the value written to the host's length cell.
	Length uint64
	// NilLength marks a receive or download whose length cell was null.
	NilLength bool
	Result    result.Code
}
