package cmd

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/karmanspace/tracker/internal/errors"
	"github.com/karmanspace/tracker/internal/logging"
	"github.com/karmanspace/tracker/internal/styles"
)

type logsOptions struct {
	tail      int
	level     string
	team      string
	requestID int32
	since     time.Duration
	grep      string
	export    string
	format    string
}

func registerLogsCmd(parent *cobra.Command, env *environment) {
	o := &logsOptions{}
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "View the debug log",
		Long: `View, filter and export the tracker's debug log.

Entries are read from debug.log in the data directory together with its
rotated backups.

Examples:
  # Show the last 50 entries
  tracker logs

  # Everything that happened to request 4
  tracker logs --request 4 -n 0

  # Failed saves in the last hour
  tracker logs --level warn --since 1h

  # Export to CSV
  tracker logs -n 0 --export tracker.csv --format csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			return runLogs(cmd.OutOrStdout(), cfg.Storage.ResolveDir(), o, time.Now())
		},
	}

	f := cmd.Flags()
	f.IntVarP(&o.tail, "tail", "n", 50, "Number of entries to show (0 for all)")
	f.StringVar(&o.level, "level", "", "Filter by minimum level (debug/info/warn/error)")
	f.StringVar(&o.team, "for-team", "", "Only entries about this team")
	f.Int32Var(&o.requestID, "request", 0, "Only entries about this request id")
	f.DurationVar(&o.since, "since", 0, "Show entries newer than this (e.g., 1h, 30m)")
	f.StringVar(&o.grep, "grep", "", "Filter entries matching pattern (regex)")
	f.StringVar(&o.export, "export", "", "Write entries to this file instead of the terminal")
	f.StringVar(&o.format, "format", "text", "Output format: text, json or csv")
	parent.AddCommand(cmd)
}

func runLogs(out io.Writer, dir string, o *logsOptions, now time.Time) error {
	var grep *regexp.Regexp
	if o.grep != "" {
		var err error
		if grep, err = regexp.Compile(o.grep); err != nil {
			return fmt.Errorf("invalid grep pattern: %w", err)
		}
	}

	entries, err := logging.AggregateLogs(dir)
	if errors.Is(err, os.ErrNotExist) {
		fmt.Fprintln(out, styles.Info("No logs found."))
		fmt.Fprintln(out, "Logs are stored at:", filepath.Join(dir, logging.LogFileName))
		return nil
	}
	if err != nil {
		return err
	}

	filter := logging.LogFilter{
		Team:      o.team,
		RequestID: o.requestID,
	}
	if o.level != "" {
		filter.Level = logging.ParseLevel(o.level)
	}
	if o.since > 0 {
		filter.StartTime = now.Add(-o.since)
	}
	entries = logging.FilterLogs(entries, filter)

	if grep != nil {
		kept := entries[:0:0]
		for _, e := range entries {
			if grep.MatchString(logging.FormatEntry(e)) {
				kept = append(kept, e)
			}
		}
		entries = kept
	}

	if o.tail > 0 && len(entries) > o.tail {
		entries = entries[len(entries)-o.tail:]
	}

	if o.export != "" {
		if err := logging.ExportLogEntries(entries, o.export, o.format); err != nil {
			return err
		}
		fmt.Fprintln(out, styles.Success(fmt.Sprintf("Exported %d entries to %s", len(entries), o.export)))
		return nil
	}

	if len(entries) == 0 {
		fmt.Fprintln(out, styles.Info("No matching log entries found."))
		return nil
	}
	if !strings.EqualFold(o.format, "text") {
		return logging.WriteLogEntries(out, entries, o.format)
	}
	for _, e := range entries {
		fmt.Fprintln(out, formatLogEntry(e))
	}
	return nil
}

// levelStyle returns the style for a log level
func levelStyle(level string) lipgloss.Style {
	switch strings.ToUpper(level) {
	case logging.LevelDebug:
		return styles.Muted
	case logging.LevelWarn:
		return styles.Score
	case logging.LevelError:
		return styles.ErrorMsg
	default:
		return styles.InfoMsg
	}
}

// formatLogEntry colors the level of a formatted entry for terminal output
func formatLogEntry(e logging.LogEntry) string {
	line := logging.FormatEntry(e)
	return strings.Replace(line, " "+e.Level+" ", " "+styles.Render(levelStyle(e.Level), e.Level)+" ", 1)
}
