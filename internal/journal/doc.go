// Package journal records boundary calls to SQLite and replays them.
//
// A journal holds sessions. A session starts when a core is constructed
// with a recorder and lasts until the process exits. Each call across the
// boundary becomes one row: the operation, its arguments, any bytes the host
// passed in or received, the length cell value and the result code. Calls
// rejected by the thread guard are recorded too.
//
// # Ordering
//
// Rows are ordered by seq, a per-session counter. Nothing reads the wall
// clock, so a replayed session compares byte for byte with the original.
//
// # Database Configuration
//
//   - WAL mode: readers (the CLI) can inspect a journal while a host writes it
//   - synchronous=NORMAL
//   - busy_timeout=5000
//   - foreign_keys=ON
//
// Journal failures are logged and never change a call's result code.
package journal
