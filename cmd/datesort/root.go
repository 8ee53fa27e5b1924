package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"datesort/internal/batch"
	"datesort/internal/config"
	"datesort/internal/datetime"
	"datesort/internal/discovery"
	derrors "datesort/internal/errors"
	"datesort/internal/logging"
	"datesort/internal/placement"
	"datesort/internal/report"
	"datesort/internal/resolve"
)

// eventBuffer sizes the reporter channel. Events beyond it are replayed after
// the run.
const eventBuffer = 256

type rootFlags struct {
	configPath   string
	verbosity    int
	dryRun       bool
	template     string
	minYear      int
	workers      int
	useFileTimes bool
}

func newRootCommand() *cobra.Command {
	flags := &rootFlags{}

	rootCmd := &cobra.Command{
		Use:   "datesort [flags] SOURCE...",
		Short: "Organize photos and videos into date-named directories",
		Long: `datesort moves every media file under each SOURCE into a directory named
after its capture date, inside that same SOURCE. The date comes from embedded
EXIF metadata, then from a date written in the file name. Files whose date
cannot be determined are left alone, and an existing file is never
overwritten.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOrganize(cmd, flags, args)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().CountVarP(&flags.verbosity, "verbose", "v", "Print per-file outcomes (-v), debug logs (-vv), trace logs (-vvv)")

	fl := rootCmd.Flags()
	fl.BoolVarP(&flags.dryRun, "dry-run", "n", false, "Decide where files would go without moving anything")
	fl.StringVarP(&flags.template, "template", "t", "", "strftime directory template (default \"%Y/%B\")")
	fl.IntVar(&flags.minYear, "min-year", 0, "Reject dates before this year (default 1960)")
	fl.IntVarP(&flags.workers, "workers", "w", 0, "Number of files placed concurrently (default 1)")
	fl.BoolVar(&flags.useFileTimes, "use-file-times", false, "Fall back to file birth/modification time")

	rootCmd.AddCommand(newConfigCommand(flags))
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}

func runOrganize(cmd *cobra.Command, flags *rootFlags, args []string) error {
	closeLog := logging.Setup(flags.verbosity, cmd.ErrOrStderr())
	defer closeLog()

	runID := uuid.NewString()
	logging.WithRun(runID)
	logger := logging.GetLogger("cli")

	cfg, cfgPath, cfgExists, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	logger.Debug().Str("path", cfgPath).Bool("exists", cfgExists).Msg("Configuration loaded")

	if err := applyOverrides(cfg, cmd.Flags(), flags); err != nil {
		return err
	}
	roots, err := sourceRoots(cfg, args)
	if err != nil {
		return err
	}

	tmpl, err := placement.NewTemplate(cfg.Organize.Template)
	if err != nil {
		return err
	}

	fs := afero.NewOsFs()
	parser := datetime.New(cfg.Organize.MinYear)
	chain := resolve.NewDefaultChain(fs, parser, cfg.Organize.UseFileTimes)
	engine := placement.NewEngine(fs, tmpl)

	logger.Info().
		Strs("roots", roots).
		Str("template", tmpl.Pattern()).
		Strs("resolvers", chain.Names()).
		Int("minYear", parser.MinYear).
		Bool("dryRun", cfg.Organize.DryRun).
		Msg("Starting run")

	out := cmd.OutOrStdout()
	rep := report.New(out, report.Options{
		Verbose:     flags.verbosity > 0,
		Progress:    isTerminal(cmd.ErrOrStderr()),
		ProgressOut: cmd.ErrOrStderr(),
		Color:       isTerminal(out),
		DryRun:      cfg.Organize.DryRun,
	})

	coordinator := batch.New(fs, chain, engine, batch.Options{
		DryRun:  cfg.Organize.DryRun,
		Workers: cfg.Organize.Workers,
		Discovery: discovery.Options{
			Extensions: cfg.Discovery.Extensions,
			SkipDirs:   cfg.Discovery.SkipDirs,
		},
		LockDir:     filepath.Join(xdg.StateHome, "datesort", "locks"),
		OnRootStart: rep.RootStarted,
	})

	events := make(chan batch.Outcome, eventBuffer)
	coordinator.SetEvents(events)
	done := rep.Consume(events)
	summary, runErr := coordinator.Run(cmd.Context(), roots)
	close(events)
	<-done

	if len(summary.Dropped) > 0 {
		logger.Warn().Int("dropped", len(summary.Dropped)).Msg("Reporter fell behind, listing the remaining outcomes after the run")
		rep.Replay(summary.Dropped)
	}
	if len(summary.Roots) > 0 {
		fmt.Fprintln(out, rep.Summary(summary))
	}
	if runErr != nil {
		return runErr
	}
	if summary.Total.Failed > 0 {
		return fmt.Errorf("%d of %d file(s) could not be placed", summary.Total.Failed, summary.Total.Total)
	}
	return nil
}

// applyOverrides lets explicitly set flags win over the config file.
func applyOverrides(cfg *config.Config, fl *pflag.FlagSet, flags *rootFlags) error {
	if fl.Changed("dry-run") {
		cfg.Organize.DryRun = flags.dryRun
	}
	if fl.Changed("template") {
		cfg.Organize.Template = flags.template
	}
	if fl.Changed("min-year") {
		cfg.Organize.MinYear = flags.minYear
	}
	if fl.Changed("workers") {
		cfg.Organize.Workers = flags.workers
	}
	if fl.Changed("use-file-times") {
		cfg.Organize.UseFileTimes = flags.useFileTimes
	}
	return cfg.Validate()
}

// sourceRoots returns the command line roots, or the configured ones when
// none were given.
func sourceRoots(cfg *config.Config, args []string) ([]string, error) {
	if len(args) == 0 {
		if len(cfg.Sources) == 0 {
			return nil, derrors.New(derrors.ErrSourceInvalid, "no source directories given and none configured")
		}
		return cfg.Sources, nil
	}
	roots := make([]string, 0, len(args))
	for _, arg := range args {
		expanded, err := config.ExpandPath(arg)
		if err != nil {
			return nil, derrors.Wrapf(err, derrors.ErrSourceInvalid, "resolve source %s", arg)
		}
		roots = append(roots, expanded)
	}
	return roots, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && report.Interactive(f)
}
