package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/Jeffail/gabs/v2"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/wesm/redmine-tracker/config"
	"github.com/wesm/redmine-tracker/internal/api"
	"github.com/wesm/redmine-tracker/internal/models"
	"github.com/wesm/redmine-tracker/internal/session"
)

var (
	green  = color.New(color.FgGreen).SprintFunc()
	red    = color.New(color.FgRed).SprintFunc()
	yellow = color.New(color.FgYellow).SprintFunc()
	bold   = color.New(color.Bold).SprintFunc()
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create a default configuration file if it doesn't exist",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.CreateDefaultConfig(configPath); err != nil {
			return fmt.Errorf("failed to create default configuration: %w", err)
		}
		fmt.Printf("Created default configuration at %s\n", configPath)
		return nil
	},
}

var loginCmd = &cobra.Command{
	Use:   "login",
	Short: "Verify the credentials and optionally remember them",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withApp(cmd.Context(), true, func(ctx context.Context, a *app) error {
			user := a.session.User()
			fmt.Printf("Logged in to %s as %s (%s %s)\n", a.client.URL(), bold(user.Login), user.Firstname, user.Lastname)
			return nil
		})
	},
}

var projectsCmd = &cobra.Command{
	Use:   "projects [filter]",
	Short: "List projects, optionally filtered by name",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := ""
		if len(args) == 1 {
			filter = args[0]
		}
		return withApp(cmd.Context(), false, func(ctx context.Context, a *app) error {
			projects, err := a.session.Projects(ctx, filter)
			if err != nil {
				return err
			}
			if jsonOutput {
				items := make([]*gabs.Container, 0, len(projects))
				for _, p := range projects {
					items = append(items, api.EncodeProject(p))
				}
				fmt.Println(api.EncodeList("projects", items).StringIndent("", "  "))
				return nil
			}
			for _, p := range projects {
				fmt.Printf("%5d  %-20s  %s\n", p.ID, p.Identifier, bold(p.Name))
			}
			return nil
		})
	},
}

var issuesCmd = &cobra.Command{
	Use:   "issues <project-id>",
	Short: "List all issues of a project",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		projectID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid project id %q: %w", args[0], err)
		}
		return withApp(cmd.Context(), false, func(ctx context.Context, a *app) error {
			issues, err := a.session.Issues(ctx, projectID)
			if err != nil {
				return err
			}
			printIssues(issues)
			return nil
		})
	},
}

var overviewWorkers int

var overviewCmd = &cobra.Command{
	Use:   "overview [filter]",
	Short: "Count the issues of every project matching the filter",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		filter := ""
		if len(args) == 1 {
			filter = args[0]
		}
		return withApp(cmd.Context(), false, func(ctx context.Context, a *app) error {
			projects, err := a.session.Projects(ctx, filter)
			if err != nil {
				return err
			}
			a.session.SetWorkers(overviewWorkers)
			results, loadErr := a.session.IssuesByProject(ctx, projects)
			for _, r := range results {
				fmt.Printf("%5d  %-40s  %d issues\n", r.Project.ID, bold(r.Project.Name), len(r.Issues))
			}
			return loadErr
		})
	},
}

var statusTimeout time.Duration

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check whether the Redmine server is reachable",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp()
		if err != nil {
			return err
		}
		defer a.Close()

		creds, err := a.credentials()
		if err != nil {
			return err
		}

		changed := make(chan api.Connectivity, 1)
		a.client.OnConnectionChanged(func(state api.Connectivity) {
			select {
			case changed <- state:
			default:
			}
		})

		// Configuring the client triggers the first connection check
		a.client.SetURL(creds.URL)
		session.Authenticate(a.client, creds)

		var state api.Connectivity
		select {
		case state = <-changed:
		case <-time.After(statusTimeout):
			state = api.NotAccessible
		}

		if state == api.Accessible {
			fmt.Printf("%s %s\n", green("●"), "Connected to "+creds.URL)
		} else {
			fmt.Printf("%s %s\n", red("●"), "Cannot reach "+creds.URL)
		}

		when, login, err := a.database.GetLastLoginTime(creds.URL)
		if err != nil {
			return err
		}
		if !when.IsZero() {
			fmt.Printf("  last login: %s as %s\n", when.Local().Format(time.RFC1123), login)
		}
		if state != api.Accessible {
			return fmt.Errorf("redmine server is %s", state)
		}
		return nil
	},
}

var (
	logActivity int
	logComment  string
	logSpentOn  string
)

var logTimeCmd = &cobra.Command{
	Use:   "log-time <issue-id> <hours|h:mm>",
	Short: "Log time spent on an issue",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		issueID, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid issue id %q: %w", args[0], err)
		}
		hours, err := parseHours(args[1])
		if err != nil {
			return err
		}

		te := models.TimeEntry{
			Issue:   &models.Item{ID: issueID},
			Hours:   hours,
			Comment: logComment,
		}
		if logActivity > 0 {
			te.Activity = &models.Item{ID: logActivity}
		}
		if logSpentOn != "" {
			te.SpentOn, err = time.Parse("2006-01-02", logSpentOn)
			if err != nil {
				return fmt.Errorf("invalid date %q: %w", logSpentOn, err)
			}
		}

		return withApp(cmd.Context(), false, func(ctx context.Context, a *app) error {
			id, err := a.session.LogTime(ctx, te)
			if err != nil {
				return err
			}
			fmt.Printf("Logged %.2f hours on #%d (time entry %d)\n", hours, issueID, id)
			return nil
		})
	},
}

// parseHours accepts decimal hours ("1.5") or a duration written as a time
// of day ("1:30", "0:45:10")
func parseHours(s string) (float64, error) {
	if h, err := strconv.ParseFloat(s, 64); err == nil {
		return h, nil
	}
	t, ok := api.ParseTimeOfDay(s)
	if !ok {
		return 0, fmt.Errorf("invalid duration %q", s)
	}
	return float64(t.Hour()) + float64(t.Minute())/60 + float64(t.Second())/3600, nil
}

func printIssues(issues []models.Issue) {
	if jsonOutput {
		items := make([]*gabs.Container, 0, len(issues))
		for _, issue := range issues {
			items = append(items, api.EncodeIssue(issue))
		}
		fmt.Println(api.EncodeList("issues", items).StringIndent("", "  "))
		return
	}
	for _, issue := range issues {
		status := ""
		if issue.Status != nil {
			status = issue.Status.Name
		}
		assignee := "-"
		if issue.AssignedTo != nil {
			assignee = issue.AssignedTo.Name
		}
		fmt.Printf("#%-6d %-12s %-20s %s\n", issue.ID, yellow(status), assignee, issue.Subject)
	}
}

func init() {
	loginCmd.Flags().BoolVar(&remember, "remember", false, "Remember the credentials for later runs")
	overviewCmd.Flags().IntVar(&overviewWorkers, "workers", 5, "Number of projects loaded in parallel")
	statusCmd.Flags().DurationVar(&statusTimeout, "timeout", 10*time.Second, "How long to wait for the server")
	logTimeCmd.Flags().IntVar(&logActivity, "activity", 0, "Time entry activity id")
	logTimeCmd.Flags().StringVarP(&logComment, "comment", "m", "", "Comment")
	logTimeCmd.Flags().StringVar(&logSpentOn, "spent-on", "", "Date the time was spent (YYYY-MM-DD), defaults to today")
}
