package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/karmanspace/tracker/internal/notify"
	"github.com/karmanspace/tracker/internal/request"
	"github.com/karmanspace/tracker/internal/styles"
	"github.com/karmanspace/tracker/internal/util"
)

const noMatches = "No matches found."

func registerDisplayCmd(parent *cobra.Command, env *environment) {
	cmd := &cobra.Command{
		Use:   "display <all|sent|pending|immediate|ID>",
		Short: "Show requests",
		Long: `Show requests.

  all        every request tree
  sent       requests your team asked, with what they wait on
  pending    requests sent to your team
  immediate  requests that wait on nothing and can be answered now
  ID         one request and everything it waits on`,
		Args: cobra.ExactArgs(1),
		RunE: env.withApp(func(cmd *cobra.Command, a *app, args []string) error {
			var out string
			switch what := strings.ToLower(args[0]); what {
			case "all":
				a.trk.View(func(g *request.Graph) { out = g.String() })
				if out == "" {
					a.info("No requests.")
					return nil
				}

			case "sent", "pending":
				t, err := a.sessionTeam()
				if err != nil {
					return err
				}
				dir := request.Sent
				if what == "pending" {
					dir = request.Received
				}
				a.trk.View(func(g *request.Graph) { out = renderEach(g, g.FindByDirection(dir, t)) })

			case "immediate":
				a.trk.View(func(g *request.Graph) { out = headlines(g.ImmediateProblems()) })

			default:
				id, err := parseID("id", args[0])
				if err != nil {
					return err
				}
				a.trk.View(func(g *request.Graph) {
					if r, ok := g.FindByID(id); ok {
						out = g.Render(r.ID)
					}
				})
			}

			if out == "" {
				a.info(noMatches)
				return nil
			}
			a.block(out)
			return nil
		}),
	}
	parent.AddCommand(cmd)
}

// renderEach renders the tree under each request, separated by blank lines.
func renderEach(g *request.Graph, reqs []request.Request) string {
	parts := make([]string, len(reqs))
	for i, r := range reqs {
		parts[i] = g.Render(r.ID)
	}
	return strings.Join(parts, "\n\n")
}

func headlines(reqs []request.Request) string {
	lines := make([]string, len(reqs))
	for i, r := range reqs {
		lines[i] = r.Headline()
	}
	return strings.Join(lines, "\n")
}

func registerSearchCmd(parent *cobra.Command, env *environment) {
	var archive, solutions bool
	cmd := &cobra.Command{
		Use:   "search <keywords...>",
		Short: "Find requests by keywords",
		Long: `Find requests whose text contains the keywords, best match first.

The score is the share of keywords found. Use --archive to search solved
requests by their question, or --solutions to search by their answer.`,
		Args: cobra.MinimumNArgs(1),
		RunE: env.withApp(func(cmd *cobra.Command, a *app, args []string) error {
			query := strings.Join(args, " ")
			var lines []string
			a.trk.View(func(g *request.Graph) {
				if archive || solutions {
					for _, s := range g.SearchArchive(query, solutions) {
						lines = append(lines, scoreLine(s.Score, s.Item.Archived.Headline()))
						if solutions {
							lines = append(lines, "      Solution: "+s.Item.Solution)
						}
					}
					return
				}
				for _, s := range g.SearchRequests(query) {
					lines = append(lines, scoreLine(s.Score, s.Item.Headline()))
				}
			})
			if len(lines) == 0 {
				a.info(noMatches)
				return nil
			}
			a.block(strings.Join(lines, "\n"))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&archive, "archive", false, "search solved requests")
	cmd.Flags().BoolVar(&solutions, "solutions", false, "search the answers of solved requests")
	cmd.MarkFlagsMutuallyExclusive("archive", "solutions")
	parent.AddCommand(cmd)
}

func scoreLine(score int, text string) string {
	return styles.Render(styles.Score, fmt.Sprintf("%3d%%", score)) + "  " + text
}

func registerArchiveCmd(parent *cobra.Command, env *environment) {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "List solved requests",
		Args:  cobra.NoArgs,
		RunE: env.withApp(func(cmd *cobra.Command, a *app, args []string) error {
			var records []request.ArchiveRecord
			a.trk.View(func(g *request.Graph) { records = g.Archive() })
			if len(records) == 0 {
				a.info("The archive is empty.")
				return nil
			}
			parts := make([]string, len(records))
			for i, r := range records {
				parts[i] = r.String()
			}
			a.block(strings.Join(parts, "\n\n"))
			a.println(styles.Render(styles.Muted, util.Plural(len(records), "record")))
			return nil
		}),
	}
	parent.AddCommand(cmd)
}

func registerTeamsCmd(parent *cobra.Command, env *environment) {
	var asYAML bool
	cmd := &cobra.Command{
		Use:   "teams",
		Short: "List the teams requests can be sent between",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			teams, err := loadTeams(cfg)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asYAML {
				data, err := teams.Marshal()
				if err != nil {
					return err
				}
				_, err = out.Write(data)
				return err
			}
			for i, info := range teams.Teams() {
				name := styles.Team(string(info.Name), i)
				if pad := 14 - len(info.Name); pad > 0 {
					name += strings.Repeat(" ", pad)
				}
				fmt.Fprintf(out, "%s %s\n", name, styles.Render(styles.Muted, info.Email))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "print in the team file format")
	parent.AddCommand(cmd)
}

func registerOutboxCmd(parent *cobra.Command, env *environment) {
	var forTeam string
	cmd := &cobra.Command{
		Use:   "outbox",
		Short: "List notices waiting to be sent to teams",
		Long: `List the notices recorded when requests were solved.

Each solved request leaves a notice for the team that asked it and for the
team waiting on the request it helped answer. Notices are not sent; forward
them to the listed address.`,
		Args: cobra.NoArgs,
		RunE: env.withApp(func(cmd *cobra.Command, a *app, args []string) error {
			if a.outbox == nil {
				a.info("Notifications are disabled.")
				return nil
			}
			var (
				notices []notify.Notice
				err     error
			)
			if forTeam != "" {
				t, perr := a.teams.Parse(forTeam)
				if perr != nil {
					return perr
				}
				notices, err = a.outbox.Pending(t)
			} else {
				notices, err = a.outbox.All()
			}
			if err != nil {
				return err
			}
			if len(notices) == 0 {
				a.info("No notices.")
				return nil
			}
			for _, n := range notices {
				a.println(fmt.Sprintf("%s  %s <%s>  %s",
					n.Timestamp.Format("2006-01-02 15:04"),
					n.Team, n.Email,
					styles.Render(styles.Title, n.Subject)))
				a.println(util.Wrap("    "+strings.ReplaceAll(n.Body, "\n", "\n    "), 100))
			}
			return nil
		}),
	}
	cmd.Flags().StringVar(&forTeam, "for", "", "only notices for this team")
	parent.AddCommand(cmd)
}
