package cmd

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/karmanspace/tracker/internal/config"
	"github.com/karmanspace/tracker/internal/errors"
	"github.com/karmanspace/tracker/internal/event"
	"github.com/karmanspace/tracker/internal/logging"
	"github.com/karmanspace/tracker/internal/notify"
	"github.com/karmanspace/tracker/internal/prompt"
	"github.com/karmanspace/tracker/internal/request"
	"github.com/karmanspace/tracker/internal/store"
	"github.com/karmanspace/tracker/internal/styles"
	"github.com/karmanspace/tracker/internal/team"
	"github.com/karmanspace/tracker/internal/tracker"
	"github.com/karmanspace/tracker/internal/util"
)

// environment is shared by every command of one tree.
type environment struct {
	prompter prompt.Prompter
}

// app is the state a command works on. It is opened per invocation.
type app struct {
	cfg      *config.Config
	logger   *logging.Logger
	teams    *team.Directory
	trk      *tracker.Tracker
	outbox   *notify.Outbox
	opened   store.Opened
	loadErr  error
	closer   io.Closer
	prompter prompt.Prompter
	out      io.Writer
	errOut   io.Writer
}

func loadConfig() (*config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func openLogger(cfg *config.Config) (*logging.Logger, error) {
	if !cfg.Logging.Enabled {
		return logging.NopLogger(), nil
	}
	return logging.NewLoggerWithRotation(cfg.Storage.ResolveDir(), cfg.Logging.Level, logging.RotationConfig{
		MaxSizeMB:  cfg.Logging.MaxSizeMB,
		MaxBackups: cfg.Logging.MaxBackups,
		Compress:   cfg.Logging.Compress,
	})
}

func loadTeams(cfg *config.Config) (*team.Directory, error) {
	if cfg.Teams.File == "" {
		return team.Default(), nil
	}
	return team.LoadFile(cfg.Teams.File)
}

// open loads the configuration and the stored state. A state that fails to
// load is reported on stderr; the app stays usable for reading.
func (e *environment) open(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	teams, err := loadTeams(cfg)
	if err != nil {
		return nil, err
	}
	logger, err := openLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}

	ctx := cmd.Context()
	gw, closer, opened, err := store.OpenWithInfo(ctx, cfg.Storage, logger)
	if err != nil {
		_ = logger.Close()
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		teams:    teams,
		opened:   opened,
		closer:   closer,
		prompter: e.prompter,
		out:      cmd.OutOrStdout(),
		errOut:   cmd.ErrOrStderr(),
	}

	bus := event.NewBus(logger)
	if cfg.Notifications.Enabled {
		dir := cfg.Storage.ResolveDir()
		if opened.Backend == config.BackendMemory {
			dir = ""
		}
		a.outbox = notify.NewOutbox(notify.NewStore(dir), teams, notify.WithLogger(logger))
		a.outbox.Attach(bus)
	}

	a.trk, err = tracker.New(ctx, gw,
		tracker.WithLogger(logger),
		tracker.WithBus(bus),
		tracker.WithSaveTimeout(cfg.Storage.SaveTimeout),
		tracker.WithTeams(teams),
	)
	if err != nil {
		if a.trk == nil {
			_ = a.Close()
			return nil, err
		}
		a.loadErr = err
		fmt.Fprintln(a.errOut, styles.Failure("could not load stored requests: "+err.Error()))
	}
	return a, nil
}

// Close releases the backend and the log.
func (a *app) Close() error {
	err := a.closer.Close()
	if lerr := a.logger.Close(); err == nil {
		err = lerr
	}
	return err
}

// mutable refuses changes when the stored state failed to load, because the
// next save would overwrite it with an empty forest.
func (a *app) mutable() error {
	if a.loadErr != nil {
		return fmt.Errorf("refusing to change requests that could not be loaded: %w", a.loadErr)
	}
	return nil
}

// saved turns a persistence failure into a clear message. The change was made
// but this process is about to exit, so it is lost.
func (a *app) saved(err error) error {
	if err == nil {
		return nil
	}
	if errors.IsPersistence(err) {
		return fmt.Errorf("change was not saved: %w", err)
	}
	return err
}

// sessionTeam returns the team the user acts as: --team, the team config
// key, or an interactive choice.
func (a *app) sessionTeam() (team.Team, error) {
	if name := a.cfg.Team; name != "" {
		return a.teams.Parse(name)
	}
	choice, err := a.prompter.Select("Which team are you?", a.teams.Names())
	if errors.Is(err, prompt.ErrNotInteractive) {
		return "", errors.NewValidationError("no team set: pass --team or set team in the config file").WithField("team")
	}
	if err != nil {
		return "", err
	}
	return a.teams.Parse(choice)
}

func (a *app) println(s string) {
	fmt.Fprintln(a.out, s)
}

func (a *app) success(msg string) {
	a.println(styles.Success(msg))
}

func (a *app) info(msg string) {
	a.println(styles.Info(msg))
}

// block prints multi-line output truncated to the configured width.
func (a *app) block(s string) {
	a.println(util.TruncateLines(strings.TrimRight(s, "\n"), a.cfg.Display.DetailsWidth))
}

// parseID reads a request id, with or without a leading "#".
func parseID(field, s string) (request.ID, error) {
	n, err := strconv.ParseInt(strings.TrimPrefix(strings.TrimSpace(s), "#"), 10, 32)
	if err != nil || n <= 0 {
		return request.NoID, errors.NewValidationError("request ids are positive numbers").
			WithField(field).WithValue(s).WithCause(errors.ErrInvalidInput)
	}
	return request.ID(n), nil
}

// withApp opens the app for the duration of fn.
func (e *environment) withApp(fn func(cmd *cobra.Command, a *app, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := e.open(cmd)
		if err != nil {
			return err
		}
		defer func() { _ = a.Close() }()
		return fn(cmd, a, args)
	}
}
