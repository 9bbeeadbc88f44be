package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vulfram/vulfram-core/internal/config"
	"github.com/vulfram/vulfram-core/internal/core"
	"github.com/vulfram/vulfram-core/internal/journal"
	"github.com/vulfram/vulfram-core/internal/osthread"
)

// ReplayOptions holds flags for the replay command.
type ReplayOptions struct {
	*RootOptions
	Database string
	Session  string // every session when empty
}

// ReplaySessionResult holds the replay result for one session.
type ReplaySessionResult struct {
	Session    string   `json:"session"`
	Calls      int      `json:"calls"`
	Reproduced bool     `json:"reproduced"`
	Mismatches []string `json:"mismatches,omitempty"`
}

// ReplayResult holds the overall replay result.
type ReplayResult struct {
	Sessions      []ReplaySessionResult `json:"sessions"`
	TotalSessions int                   `json:"total_sessions"`
	AllReproduced bool                  `json:"all_reproduced"`
}

// NewReplayCommand creates the replay command.
func NewReplayCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReplayOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "replay",
		Short: "Replay journaled sessions and verify they reproduce",
		Long: `Re-issue every journaled call against a fresh engine core and
compare result codes, length cells and copied bytes with the recording.

Each session is replayed on its own OS thread with the graphics backend it
was recorded with. Calls recorded as WrongThread are skipped.

Exit codes:
  0 - Every session reproduced
  1 - At least one call diverged
  2 - Command error (journal not found, unknown session)

Examples:
  vulfram replay --db ./session.db
  vulfram replay --db ./session.db --session window_lifecycle
  vulfram replay --db ./session.db --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to journal database (required)")
	_ = cmd.MarkFlagRequired("db")
	cmd.Flags().StringVar(&opts.Session, "session", "", "replay this session only")

	return cmd
}

func runReplay(opts *ReplayOptions, cmd *cobra.Command) error {
	ctx := context.Background()

	st, err := openJournal(opts.Database)
	if err != nil {
		return err
	}
	defer st.Close()

	var sessions []journal.Session
	if opts.Session != "" {
		sess, err := findSession(ctx, st, opts.Session)
		if err != nil {
			return err
		}
		sessions = []journal.Session{sess}
	} else {
		sessions, err = st.ReadSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to read sessions", err)
		}
	}

	logger, err := opts.logger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	result := ReplayResult{
		Sessions:      make([]ReplaySessionResult, 0, len(sessions)),
		TotalSessions: len(sessions),
		AllReproduced: true,
	}
	for _, sess := range sessions {
		calls, err := st.ReadCalls(ctx, sess.ID)
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to read session %s", sess.ID), err)
		}

		sr, err := replaySession(sess, calls, core.WithLogger(logger))
		if err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("failed to replay session %s", sess.ID), err)
		}
		result.Sessions = append(result.Sessions, sr)
		if !sr.Reproduced {
			result.AllReproduced = false
		}
	}

	if opts.Format == "json" {
		if err := opts.formatter(cmd).Success(result); err != nil {
			return err
		}
	} else {
		outputReplayText(cmd, result)
	}

	if !result.AllReproduced {
		return NewExitError(ExitFailure, "replay diverged from the journal")
	}
	return nil
}

// replaySession drives a fresh core from a dedicated OS thread.
func replaySession(sess journal.Session, calls []journal.Call, opts ...core.Option) (ReplaySessionResult, error) {
	cfg := config.Default()
	if sess.Graphics != "" {
		cfg.Graphics = sess.Graphics
	}

	w := osthread.New()
	defer w.Close()

	c := core.New(append([]core.Option{core.WithConfig(cfg)}, opts...)...)
	var rr journal.ReplayResult
	err := w.Do(func() {
		rr = journal.Replay(calls, c)
		c.Dispose()
	})
	if err != nil {
		return ReplaySessionResult{}, err
	}

	sr := ReplaySessionResult{
		Session:    sess.ID,
		Calls:      rr.Calls,
		Reproduced: rr.OK(),
	}
	for _, m := range rr.Mismatches {
		sr.Mismatches = append(sr.Mismatches, m.String())
	}
	return sr, nil
}

func outputReplayText(cmd *cobra.Command, result ReplayResult) {
	out := cmd.OutOrStdout()
	if result.TotalSessions == 0 {
		fmt.Fprintln(out, "No sessions found in journal.")
		return
	}
	for _, s := range result.Sessions {
		if s.Reproduced {
			fmt.Fprintf(out, "✓ %s (%d calls)\n", s.Session, s.Calls)
			continue
		}
		fmt.Fprintf(out, "✗ %s (%d calls)\n", s.Session, s.Calls)
		for _, m := range s.Mismatches {
			fmt.Fprintf(out, "  %s\n", m)
		}
	}
}
