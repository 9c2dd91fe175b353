package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/karmanspace/tracker/internal/errors"
	"github.com/karmanspace/tracker/internal/prompt"
	"github.com/karmanspace/tracker/internal/request"
	"github.com/karmanspace/tracker/internal/styles"
	"github.com/karmanspace/tracker/internal/team"
	"github.com/karmanspace/tracker/internal/tracker"
)

func registerRequestCmd(parent *cobra.Command, env *environment) {
	var branches []string

	cmd := &cobra.Command{
		Use:   "request <query> <team> [source-id]",
		Short: "Ask another team a question",
		Long: `Ask another team a question.

The request is sent from your team (--team) to <team>. Give a source id to
make it a branch of an existing request; your team must then be the team that
request was sent to. Without --team the requester defaults to that team.

Examples:
  tracker request --team Systems "How many CPUs are you using?" Avionics
  tracker request "What is the inner tube diameter?" Structures 1
  tracker request --team Avionics "Who supplies the boards?" Systems --branch 4`,
		Args: cobra.RangeArgs(2, 3),
		RunE: env.withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.mutable(); err != nil {
				return err
			}
			requestee, err := a.teams.Parse(args[1])
			if err != nil {
				return err
			}

			spec := tracker.Spec{Requestee: requestee, Details: args[0]}
			if len(args) == 3 {
				if spec.Source, err = parseID("source", args[2]); err != nil {
					return err
				}
			}
			for _, b := range branches {
				id, err := parseID("branch", b)
				if err != nil {
					return err
				}
				spec.Branches = append(spec.Branches, id)
			}

			if spec.Requester, err = requesterFor(a, spec.Source); err != nil {
				return err
			}

			req, err := a.trk.Create(cmd.Context(), spec)
			if err != nil && req.ID == request.NoID {
				return err
			}
			a.success(fmt.Sprintf("Request %s sent to %s", req.ID, req.Requestee))
			a.block(req.Headline())
			return a.saved(err)
		}),
	}
	cmd.Flags().StringSliceVarP(&branches, "branch", "b", nil, "existing request the new one waits on (repeatable)")
	parent.AddCommand(cmd)
}

// requesterFor picks the requester of a new request. A branch defaults to
// the team its source was sent to.
func requesterFor(a *app, source request.ID) (team.Team, error) {
	if a.cfg.Team == "" && source != request.NoID {
		var (
			src request.Request
			ok  bool
		)
		a.trk.View(func(g *request.Graph) { src, ok = g.Get(source) })
		if ok {
			return src.Requestee, nil
		}
	}
	return a.sessionTeam()
}

func registerSolveCmd(parent *cobra.Command, env *environment) {
	cmd := &cobra.Command{
		Use:   "solve <id> <solution>",
		Short: "Answer a request and archive it",
		Long: `Answer a request and archive it with its solution.

Requests the solved one was still waiting on are no longer needed; they are
removed from the forest and listed in the archive record.`,
		Args: cobra.MinimumNArgs(2),
		RunE: env.withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.mutable(); err != nil {
				return err
			}
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			rec, err := a.trk.Resolve(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil && rec.RecordID == "" {
				return err
			}
			a.success(fmt.Sprintf("Request %s solved", id))
			a.block(rec.String())
			if len(rec.Cascaded) > 0 {
				dropped := make([]string, len(rec.Cascaded))
				for i, c := range rec.Cascaded {
					dropped[i] = c.ID.String()
				}
				a.info("No longer needed: " + strings.Join(dropped, ", "))
			}
			return a.saved(err)
		}),
	}
	parent.AddCommand(cmd)
}

func registerEditCmd(parent *cobra.Command, env *environment) {
	cmd := &cobra.Command{
		Use:   "edit <id> <details>",
		Short: "Replace the question of a request",
		Args:  cobra.MinimumNArgs(2),
		RunE: env.withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.mutable(); err != nil {
				return err
			}
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			err = a.trk.Edit(cmd.Context(), id, strings.Join(args[1:], " "))
			if err != nil && !errors.IsPersistence(err) {
				return err
			}
			a.success(fmt.Sprintf("Request %s updated", id))
			return a.saved(err)
		}),
	}
	parent.AddCommand(cmd)
}

func registerMoveCmd(parent *cobra.Command, env *environment) {
	var (
		to   string
		root bool
	)
	cmd := &cobra.Command{
		Use:   "move <id> (--to <parent-id> | --root)",
		Short: "Make a request wait under another, or make it a root",
		Args:  cobra.ExactArgs(1),
		RunE: env.withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.mutable(); err != nil {
				return err
			}
			id, err := parseID("id", args[0])
			if err != nil {
				return err
			}
			parentID := request.NoID
			if !root {
				if parentID, err = parseID("to", to); err != nil {
					return err
				}
			}
			err = a.trk.Reparent(cmd.Context(), id, parentID)
			if err != nil && !errors.IsPersistence(err) {
				return err
			}
			if root {
				a.success(fmt.Sprintf("Request %s is now a root", id))
			} else {
				a.success(fmt.Sprintf("Request %s now waits under %s", id, parentID))
			}
			return a.saved(err)
		}),
	}
	cmd.Flags().StringVar(&to, "to", "", "new parent request id")
	cmd.Flags().BoolVar(&root, "root", false, "detach the request from its parent")
	cmd.MarkFlagsMutuallyExclusive("to", "root")
	cmd.MarkFlagsOneRequired("to", "root")
	parent.AddCommand(cmd)
}

func registerLinkCmds(parent *cobra.Command, env *environment) {
	link := &cobra.Command{
		Use:   "link <parent-id> <child-id>",
		Short: "Make an existing request a branch of another",
		Args:  cobra.ExactArgs(2),
		RunE: env.withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.mutable(); err != nil {
				return err
			}
			p, c, err := parsePair(args)
			if err != nil {
				return err
			}
			err = a.trk.AddBranch(cmd.Context(), p, c)
			if err != nil && !errors.IsPersistence(err) {
				return err
			}
			a.success(fmt.Sprintf("Request %s now waits on %s", p, c))
			return a.saved(err)
		}),
	}

	unlink := &cobra.Command{
		Use:   "unlink <parent-id> <child-id>",
		Short: "Detach a branch from its parent, making it a root",
		Args:  cobra.ExactArgs(2),
		RunE: env.withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.mutable(); err != nil {
				return err
			}
			p, c, err := parsePair(args)
			if err != nil {
				return err
			}
			changed, err := a.trk.RemoveBranch(cmd.Context(), p, c)
			if !changed {
				a.info(fmt.Sprintf("Request %s is not a branch of %s", c, p))
				return nil
			}
			a.success(fmt.Sprintf("Request %s no longer waits on %s", p, c))
			return a.saved(err)
		}),
	}
	parent.AddCommand(link, unlink)
}

func parsePair(args []string) (request.ID, request.ID, error) {
	p, err := parseID("parent", args[0])
	if err != nil {
		return request.NoID, request.NoID, err
	}
	c, err := parseID("child", args[1])
	if err != nil {
		return request.NoID, request.NoID, err
	}
	return p, c, nil
}

func registerClearCmd(parent *cobra.Command, env *environment) {
	var yes bool
	cmd := &cobra.Command{
		Use:       "clear <graph|archive|metadata>",
		Short:     "Delete all live requests, all archive records, or reset id numbering",
		ValidArgs: []string{tracker.ScopeGraph, tracker.ScopeArchive, tracker.ScopeMetadata},
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		RunE: env.withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if err := a.mutable(); err != nil {
				return err
			}
			scope := args[0]
			if !yes {
				ok, err := a.prompter.Confirm(fmt.Sprintf("Clear the %s? This cannot be undone.", scope))
				if errors.Is(err, prompt.ErrNotInteractive) {
					return fmt.Errorf("refusing to clear the %s without confirmation: pass --yes", scope)
				}
				if err != nil {
					return err
				}
				if !ok {
					a.info("Nothing cleared.")
					return nil
				}
			}

			run := map[string]func(*tracker.Tracker) error{
				tracker.ScopeGraph:    func(t *tracker.Tracker) error { return t.ClearGraph(cmd.Context()) },
				tracker.ScopeArchive:  func(t *tracker.Tracker) error { return t.ClearArchive(cmd.Context()) },
				tracker.ScopeMetadata: func(t *tracker.Tracker) error { return t.ClearMetadata(cmd.Context()) },
			}[scope]
			err := run(a.trk)
			a.println(styles.Success("Cleared " + scope))
			return a.saved(err)
		}),
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	parent.AddCommand(cmd)
}
