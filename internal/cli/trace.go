package cli

import (
	"cmp"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"

	"github.com/spf13/cobra"

	"github.com/roach88/mimic/internal/call"
	"github.com/roach88/mimic/internal/harness"
	"github.com/roach88/mimic/internal/store"
	"github.com/roach88/mimic/internal/verify"
)

// TraceResult is the JSON payload of a traced session.
type TraceResult struct {
	Session  string               `json:"session"`
	Scenario string               `json:"scenario"`
	Digest   string               `json:"digest"`
	Calls    int                  `json:"calls"`
	Timeline []harness.TraceEvent `json:"timeline"`
}

// NewTraceCommand creates the trace command.
func NewTraceCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "trace <db> [session]",
		Short: "Show recorded call histories",
		Long: `Show the call histories persisted by "mimic run --db".

Without a session, lists the recorded sessions. With a session, reloads
its calls and prints every event in clock order.

Examples:
  mimic trace histories.db
  mimic trace histories.db session-generator_duality
  mimic trace histories.db session-generator_duality --format json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			session := ""
			if len(args) == 2 {
				session = args[1]
			}
			return runTrace(rootOpts, args[0], session, cmd)
		},
	}

	return cmd
}

func runTrace(opts *RootOptions, dbPath, session string, cmd *cobra.Command) error {
	formatter := newFormatter(opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
	ctx := cmd.Context()

	// store.Open would create a fresh database.
	if _, err := os.Stat(dbPath); errors.Is(err, fs.ErrNotExist) {
		return NewExitError(ExitCommandError, fmt.Sprintf("database not found: %s", dbPath))
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to open database", err)
	}
	defer st.Close()

	if session == "" {
		sessions, err := st.ListSessions(ctx)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to list sessions", err)
		}
		return outputSessions(formatter, sessions)
	}

	sess, err := st.ReadSession(ctx, session)
	if errors.Is(err, sql.ErrNoRows) {
		message := fmt.Sprintf("no session %q", session)
		if err := formatter.Error(ErrCodeNoSession, message, nil); err != nil {
			return err
		}
		return NewExitError(ExitCommandError, message)
	}
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read session", err)
	}

	calls, err := st.ReadCalls(ctx, session)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to read calls", err)
	}
	formatter.VerboseLog("Reloaded %d call(s) for %s", len(calls), session)

	if opts.Format == "json" {
		return formatter.Success(TraceResult{
			Session:  sess.ID,
			Scenario: sess.Scenario,
			Digest:   sess.Digest,
			Calls:    len(calls),
			Timeline: harness.BuildTrace(calls),
		})
	}
	return outputTraceText(formatter, sess, calls)
}

func outputSessions(f *OutputFormatter, sessions []store.Session) error {
	if f.Format == "json" {
		return f.Success(sessions)
	}
	if len(sessions) == 0 {
		fmt.Fprintln(f.Writer, "No sessions recorded.")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(f.Writer, "%s  %s  %.12s\n", s.ID, s.Scenario, s.Digest)
	}
	return nil
}

type timelineEntry struct {
	index int
	event call.Event
}

func outputTraceText(f *OutputFormatter, sess store.Session, calls []*call.Call) error {
	fmt.Fprintf(f.Writer, "Session: %s\n", sess.ID)
	fmt.Fprintf(f.Writer, "Scenario: %s\n", sess.Scenario)
	fmt.Fprintf(f.Writer, "Calls: %d\n", len(calls))
	fmt.Fprintln(f.Writer)

	var timeline []timelineEntry
	for _, c := range calls {
		for _, e := range c.Events() {
			timeline = append(timeline, timelineEntry{index: c.Index(), event: e})
		}
	}
	slices.SortStableFunc(timeline, func(a, b timelineEntry) int {
		return cmp.Compare(a.event.Sequence(), b.event.Sequence())
	})

	for _, entry := range timeline {
		fmt.Fprintf(f.Writer, "%4d  #%d  %s\n", entry.event.Sequence(), entry.index, verify.FormatEvent(entry.event))
	}
	return nil
}
