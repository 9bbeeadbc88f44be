package cli

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/vulfram/vulfram-core/internal/journal"
)

// TraceOptions holds flags for the trace command.
type TraceOptions struct {
	*RootOptions
	Database string
	Session  string // latest session when empty
	List     bool
}

// TraceResult holds the trace of one session.
type TraceResult struct {
	Session       string   `json:"session"`
	EngineVersion string   `json:"engine_version"`
	Graphics      string   `json:"graphics"`
	Calls         int      `json:"calls"`
	Trace         []string `json:"trace"` // canonical JSON, one call each
}

// SessionList is the JSON output of trace --list.
type SessionList struct {
	Sessions []SessionInfo `json:"sessions"`
}

// SessionInfo describes one journaled session.
type SessionInfo struct {
	ID            string `json:"id"`
	EngineVersion string `json:"engine_version"`
	Graphics      string `json:"graphics"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TraceOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Print the calls of a journaled session",
		Long: `Print every boundary call of a journaled session as canonical JSON,
one call per line. Command batches and event batches are decoded from CBOR;
buffer bytes are shown as hex.

Examples:
  vulfram trace --db ./session.db
  vulfram trace --db ./session.db --session window_lifecycle
  vulfram trace --db ./session.db --list`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTrace(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to journal database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "session to trace (default: latest)")
	cmd.Flags().BoolVar(&opts.List, "list", false, "list sessions instead of tracing one")

	return cmd
}

func runTrace(opts *TraceOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	if opts.List {
		return listSessions(ctx, opts, st, cmd)
	}

	sess, err := findSession(ctx, st, opts.Session)
	if err != nil {
		return err
	}

	calls, err := st.ReadCalls(ctx, sess.ID)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read calls", err)
	}

	trace, err := journal.TraceJSON(calls)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to render trace", err)
	}

	if opts.Format == "json" {
		lines := strings.Split(strings.TrimSuffix(string(trace), "\n"), "\n")
		if len(trace) == 0 {
			lines = []string{}
		}
		return opts.formatter(cmd).Success(TraceResult{
			Session:       sess.ID,
			EngineVersion: sess.EngineVersion,
			Graphics:      sess.Graphics,
			Calls:         len(calls),
			Trace:         lines,
		})
	}

	out := cmd.OutOrStdout()
	if opts.Verbose {
		fmt.Fprintf(out, "Session: %s (engine %s, %s graphics)\n",
			sess.ID, sess.EngineVersion, sess.Graphics)
	}
	_, err = out.Write(trace)
	return err
}

func listSessions(ctx context.Context, opts *TraceOptions, st *journal.Store, cmd *cobra.Command) error {
	sessions, err := st.ReadSessions(ctx)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read sessions", err)
	}

	if opts.Format == "json" {
		list := SessionList{Sessions: make([]SessionInfo, 0, len(sessions))}
		for _, s := range sessions {
			list.Sessions = append(list.Sessions, SessionInfo(s))
		}
		return opts.formatter(cmd).Success(list)
	}

	out := cmd.OutOrStdout()
	if len(sessions) == 0 {
		fmt.Fprintln(out, "No sessions found.")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(out, "%s\t%s\t%s\n", s.ID, s.EngineVersion, s.Graphics)
	}
	return nil
}

func openJournal(path string) (*journal.Store, error) {
	st, err := journal.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	return st, nil
}

// findSession returns the named session, or the latest one when id is empty.
func findSession(ctx context.Context, st *journal.Store, id string) (journal.Session, error) {
	var (
		sess journal.Session
		err  error
	)
	if id == "" {
		sess, err = st.LatestSession(ctx)
	} else {
		sess, err = st.ReadSession(ctx, id)
	}

	switch {
	case errors.Is(err, sql.ErrNoRows) && id == "":
		return journal.Session{}, NewExitError(ExitCommandError, "journal has no sessions")
	case errors.Is(err, sql.ErrNoRows):
		return journal.Session{}, NewExitError(ExitCommandError, fmt.Sprintf("session not found: %s", id))
	case err != nil:
		return journal.Session{}, WrapExitError(ExitCommandError, "failed to read session", err)
	}
	return sess, nil
}
