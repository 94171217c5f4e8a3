package app

import (
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/partrack/partrack/internal/crawl"
	"github.com/partrack/partrack/internal/drafts"
	"github.com/partrack/partrack/internal/sheet"
)

// NewSpreadsheetCommand creates the spreadsheet sync command.
func (a *App) NewSpreadsheetCommand() *cobra.Command {
	var (
		update         bool
		deleteExisting bool
		people         bool
		taskGroups     bool
	)

	cmd := &cobra.Command{
		Use:   "spreadsheet FILE",
		Short: "Sync projects from the status spreadsheet",
		Long: `Spreadsheet reads the committee's status workbook and creates the
projects, people, and task groups it describes. Existing projects are
left alone unless --update is given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			rec, err := a.Reconciler(ctx)
			if err != nil {
				return err
			}
			wb, err := sheet.OpenWorkbook(args[0])
			if err != nil {
				return err
			}
			defer wb.Close()

			opts := sheet.Options{
				People:         people,
				TaskGroups:     taskGroups,
				Update:         update,
				DeleteExisting: deleteExisting,
			}
			return sheet.New(rec, a.RunFor("spreadsheet")).Run(ctx, wb, opts)
		},
	}

	cmd.Flags().BoolVarP(&update, "update", "u", false, "update projects that already exist")
	cmd.Flags().BoolVarP(&deleteExisting, "delete-existing", "x", false, "delete existing projects before recreating them")
	cmd.Flags().BoolVarP(&people, "people", "p", false, "sync the People tab")
	cmd.Flags().BoolVarP(&taskGroups, "task-groups", "t", false, "sync the TaskGroups tab")
	return cmd
}

// NewParsCommand creates the Active PARs sync command.
func (a *App) NewParsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pars",
		Short: "Update projects from the Active PARs listing",
		Long: `Pars walks the development server's Active PARs pages, follows each
project's PAR detail page, and records titles, PAR URLs, and
authorization milestone events.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rec, err := a.Reconciler(ctx)
			if err != nil {
				return err
			}
			p, err := a.Portal(ctx)
			if err != nil {
				return err
			}
			return crawl.NewActivePARs(rec, p, a.RunFor("active-pars")).Run(ctx, a.config.DevHost)
		},
	}
}

// NewReportCommand creates the PAR report sync command.
func (a *App) NewReportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "report APPROVED_LIST",
		Short: "Create missing projects from the PAR report",
		Long: `Report walks the development server's full PAR report and creates a
tracker project for every approved designation that is missing. The
required argument is a YAML file mapping approved designations to the
abbreviation of their task group; designations not on the list are
never created.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			approved, err := crawl.LoadApprovedList(args[0])
			if err != nil {
				return err
			}
			rec, err := a.Reconciler(ctx)
			if err != nil {
				return err
			}
			groups, err := rec.ListTaskGroups(ctx)
			if err != nil {
				return err
			}
			p, err := a.Portal(ctx)
			if err != nil {
				return err
			}
			return crawl.NewPARReport(rec, p, a.RunFor("par-report"), approved, groups).Run(ctx, a.config.DevHost)
		},
	}
}

// NewBallotsCommand creates the sponsor ballot sync command.
func (a *App) NewBallotsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ballots",
		Short: "Add sponsor ballot events from development server notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rec, err := a.Reconciler(ctx)
			if err != nil {
				return err
			}
			p, err := a.Portal(ctx)
			if err != nil {
				return err
			}
			return crawl.NewSponsorBallots(rec, p, a.RunFor("ballots")).Run(ctx, a.config.DevHost)
		},
	}
}

// NewMailCommand creates the mail archive scan command.
func (a *App) NewMailCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mail",
		Short: "Add ballot events from the mailing-list archive",
		Long: `Mail walks the mailing-list archive month by month, starting from the
email_start page, and records working group and task group ballot
events from the announcements it finds. A summary tally is printed
when the scan finishes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rec, err := a.Reconciler(ctx)
			if err != nil {
				return err
			}
			run := a.RunFor("mail")
			if run.PageLimit == 0 {
				run.PageLimit = a.config.EmailLimit
			}
			// The tally covers whatever was scanned before an error,
			// so print it even when the crawl fails partway.
			tally, err := crawl.NewMailArchive(rec, a.Archive(), run).Run(ctx, a.config.EmailArchive, a.config.EmailStart)
			printSummary(cmd, tally.Summary())
			return err
		},
	}
}

// NewDraftsCommand creates the draft scan command.
func (a *App) NewDraftsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "drafts",
		Short: "Scan the file archive for the latest draft of each project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			rec, err := a.Reconciler(ctx)
			if err != nil {
				return err
			}
			return drafts.New(rec, a.Archive(), a.RunFor("drafts")).Run(ctx)
		},
	}
}

// NewVersionCommand creates the version command.
func (a *App) NewVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			cmd.Printf("partrack %s (commit %s, built %s by %s)\n",
				a.version, a.commit, a.date, a.builtBy)
		},
	}
}

// printSummary writes a tally summary with title-cased labels.
func printSummary(cmd *cobra.Command, summary string) {
	caser := cases.Title(language.English)
	for _, line := range strings.Split(strings.TrimSpace(summary), "\n") {
		label, value, found := strings.Cut(line, ":")
		if !found {
			cmd.Println(line)
			continue
		}
		cmd.Printf("%s:%s\n", caser.String(label), value)
	}
}
