package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/urfave/cli/v3"
	gcal "google.golang.org/api/calendar/v3"

	"github.com/kestrelab/issuecal/internal/auth"
	"github.com/kestrelab/issuecal/internal/calendar"
	"github.com/kestrelab/issuecal/internal/config"
	"github.com/kestrelab/issuecal/internal/linker"
)

func main() {
	cmd := &cli.Command{
		Name:  "issuecal",
		Usage: "link issue-tracker issues to Google Calendar events",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to the YAML config file",
			},
		},
		Commands: []*cli.Command{
			authorizeCommand(),
			addCommand(),
			addRecurringCommand(),
			deleteCommand(),
			seriesCommand(),
			instancesCommand(),
			linkCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

// stdinPrompter collects the authorization code from the terminal during the
// one-time bootstrap.
type stdinPrompter struct{}

func (stdinPrompter) Prompt(authURL string) (string, error) {
	fmt.Printf("Open the following URL in your browser and authorize access:\n\n  %s\n\nPaste the authorization code: ", authURL)

	code, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil {
		return "", err
	}
	return code, nil
}

func loadConfig(cmd *cli.Command) (*config.Config, error) {
	return config.Load(cmd.String("config"))
}

// newLinker wires the steady-state stack: stored credentials, an
// authenticated Calendar client, and a linker bound to the configured
// calendar and timezone.
func newLinker(ctx context.Context, cfg *config.Config) (*linker.Linker, error) {
	secret, err := auth.LoadClientSecret(cfg.CredentialsPath)
	if err != nil {
		return nil, err
	}

	oauthCfg, err := auth.OAuthConfig(secret)
	if err != nil {
		return nil, err
	}

	httpClient, err := auth.Client(ctx, oauthCfg, cfg.TokenPath)
	if err != nil {
		return nil, err
	}

	api, err := calendar.NewClient(ctx, httpClient, cfg.APIEndpoint)
	if err != nil {
		return nil, err
	}

	return linker.New(api, cfg.CalendarID, cfg.Timezone, linker.Options{
		IssueTrackerURL: cfg.IssueTrackerURL,
		Retry:           linker.DefaultRetryPolicy(),
	})
}

func authorizeCommand() *cli.Command {
	return &cli.Command{
		Name:  "authorize",
		Usage: "run the one-time OAuth bootstrap and store the refresh token",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if err := config.EnsureDir(); err != nil {
				return err
			}

			secret, err := auth.LoadClientSecret(cfg.CredentialsPath)
			if err != nil {
				return err
			}

			oauthCfg, err := auth.OAuthConfig(secret)
			if err != nil {
				return err
			}

			if err := auth.Authorize(ctx, oauthCfg, stdinPrompter{}, cfg.TokenPath); err != nil {
				return err
			}

			fmt.Printf("Token saved to %s\n", cfg.TokenPath)
			return nil
		},
	}
}

func meetingFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "title", Usage: "event title", Required: true},
		&cli.StringFlag{Name: "description", Usage: "event description"},
		&cli.StringFlag{Name: "meeting-url", Usage: "video conference link"},
		&cli.StringFlag{Name: "start", Usage: "start time (RFC3339, defaults to the top of the next hour)"},
		&cli.StringFlag{Name: "end", Usage: "end time (RFC3339, defaults to one hour after start)"},
	}
}

func meetingFromFlags(cmd *cli.Command) (linker.Meeting, error) {
	m := linker.Meeting{
		Title:       cmd.String("title"),
		Description: cmd.String("description"),
		MeetingURL:  cmd.String("meeting-url"),
	}

	if raw := cmd.String("start"); raw != "" {
		start, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return linker.Meeting{}, fmt.Errorf("invalid start time (expected RFC3339): %w", err)
		}
		m.Start = start
	}
	if raw := cmd.String("end"); raw != "" {
		end, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return linker.Meeting{}, fmt.Errorf("invalid end time (expected RFC3339): %w", err)
		}
		m.End = end
	}

	return m, nil
}

func addCommand() *cli.Command {
	return &cli.Command{
		Name:  "add",
		Usage: "create a one-off event linked to an issue",
		Flags: append(meetingFlags(),
			&cli.StringFlag{Name: "issue", Usage: "issue identifier", Required: true},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			l, err := newLinker(ctx, cfg)
			if err != nil {
				return err
			}

			meeting, err := meetingFromFlags(cmd)
			if err != nil {
				return err
			}

			event, err := l.AddEvent(ctx, meeting, cmd.String("issue"))
			if err != nil {
				return err
			}

			printEvent(event)
			return nil
		},
	}
}

func addRecurringCommand() *cli.Command {
	return &cli.Command{
		Name:  "add-recurring",
		Usage: "create a recurring series template (no issue link)",
		Flags: append(meetingFlags(),
			&cli.StringSliceFlag{
				Name:     "rule",
				Usage:    "RFC 5545 recurrence rule (repeatable), e.g. 'RRULE:FREQ=WEEKLY;COUNT=4'",
				Required: true,
			},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			l, err := newLinker(ctx, cfg)
			if err != nil {
				return err
			}

			meeting, err := meetingFromFlags(cmd)
			if err != nil {
				return err
			}

			event, err := l.AddRecurringEvent(ctx, meeting, cmd.StringSlice("rule"))
			if err != nil {
				return err
			}

			printEvent(event)
			return nil
		},
	}
}

func deleteCommand() *cli.Command {
	return &cli.Command{
		Name:  "delete",
		Usage: "delete the event linked to an issue",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "issue", Usage: "issue identifier", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			l, err := newLinker(ctx, cfg)
			if err != nil {
				return err
			}

			return l.DeleteEvent(ctx, cmd.String("issue"))
		},
	}
}

func seriesCommand() *cli.Command {
	return &cli.Command{
		Name:  "series",
		Usage: "list recurring series templates",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			l, err := newLinker(ctx, cfg)
			if err != nil {
				return err
			}

			series, err := l.ListSeries(ctx)
			if err != nil {
				return err
			}

			for _, ev := range series {
				printEvent(ev)
			}
			return nil
		},
	}
}

func instancesCommand() *cli.Command {
	return &cli.Command{
		Name:      "instances",
		Usage:     "list the future occurrences of a series",
		ArgsUsage: "<series-id>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			seriesID := cmd.Args().First()
			if seriesID == "" {
				return fmt.Errorf("a series ID argument is required")
			}

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			l, err := newLinker(ctx, cfg)
			if err != nil {
				return err
			}

			instances, err := l.ListInstances(ctx, seriesID)
			if err != nil {
				return err
			}

			for _, ev := range instances {
				printEvent(ev)
			}
			return nil
		},
	}
}

func linkCommand() *cli.Command {
	return &cli.Command{
		Name:  "link",
		Usage: "link an issue to a single occurrence of a series",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "occurrence", Usage: "occurrence event identifier", Required: true},
			&cli.StringFlag{Name: "issue", Usage: "issue identifier", Required: true},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			l, err := newLinker(ctx, cfg)
			if err != nil {
				return err
			}

			event, err := l.LinkInstanceByID(ctx, cmd.String("occurrence"), cmd.String("issue"))
			if err != nil {
				return err
			}

			printEvent(event)
			return nil
		},
	}
}

func printEvent(ev *gcal.Event) {
	start := ""
	if ev.Start != nil {
		start = ev.Start.DateTime
		if start == "" {
			start = ev.Start.Date
		}
	}

	issueID := ""
	if ev.ExtendedProperties != nil {
		issueID = ev.ExtendedProperties.Private["ISSUE_ID"]
	}

	line := fmt.Sprintf("%s  %s  %s", ev.Id, start, ev.Summary)
	if issueID != "" {
		line += fmt.Sprintf("  (issue #%s)", issueID)
	}
	fmt.Println(line)
}
