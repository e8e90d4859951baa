package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mathematic-inc/if-changed/pkg/check"
	"github.com/mathematic-inc/if-changed/pkg/config"
	"github.com/mathematic-inc/if-changed/pkg/git"
)

const version = "0.1.0-dev"

func main() {
	root := newRootCmd()
	root.AddCommand(newVersionCmd())
	if err := root.Execute(); err != nil {
		var exit *exitCodeError
		if errors.As(err, &exit) {
			os.Exit(exit.code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

// exitCodeError carries an exit status for findings that were already
// printed: 1 for violations, 2 for malformed directives.
type exitCodeError struct{ code int }

func (e *exitCodeError) Error() string { return fmt.Sprintf("exit status %d", e.code) }

func newRootCmd() *cobra.Command {
	var (
		fromRef string
		toRef   string
		jobs    int
		color   string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "if-changed [patterns...]",
		Short: "Check that files changed together as their directives demand",
		Long: `if-changed scans changed files for if-changed/then-change blocks and
verifies that every file such a block points at was changed too.
Patterns select which changed files are checked; all of them by default.`,
		Args:          cobra.ArbitraryArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			setupLogging(cmd.ErrOrStderr(), verbose)
			if strings.TrimSpace(fromRef) == "" {
				return errors.New("--from-ref must name a revision")
			}
			ctx := cmd.Context()
			repo, err := git.Open(ctx, ".")
			if err != nil {
				return err
			}
			cfg, err := config.Load(repo.Root())
			if err != nil {
				return err
			}

			patterns := args
			if len(patterns) == 0 {
				patterns = cfg.Patterns
			}
			if jobs == 0 {
				jobs = cfg.Jobs
			}
			if color == "" {
				color = cfg.Report.Color
			}
			switch color {
			case "auto", "always", "never":
			default:
				return fmt.Errorf("--color %q is not one of auto, always, never", color)
			}
			configureColor(color)

			to := check.Worktree()
			if strings.TrimSpace(toRef) != "" {
				to = check.Rev(toRef)
			}
			checker := &check.Checker{Repo: repo, From: check.Rev(fromRef), To: to, Jobs: jobs}
			report, err := checker.Run(ctx, patterns)
			if err != nil {
				return err
			}
			renderReport(cmd.OutOrStdout(), report)
			if len(report.ParseErrors) > 0 {
				return &exitCodeError{code: 2}
			}
			if len(report.Violations) > 0 {
				return &exitCodeError{code: 1}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&fromRef, "from-ref", envDefault("PRE_COMMIT_FROM_REF", "HEAD"), "revision the changes are compared against")
	cmd.Flags().StringVar(&toRef, "to-ref", os.Getenv("PRE_COMMIT_TO_REF"), "revision holding the changes; the working tree when empty")
	cmd.Flags().IntVar(&jobs, "jobs", 0, "number of files checked concurrently (0 uses the configuration, then all CPUs)")
	cmd.Flags().StringVar(&color, "color", "", "colorize findings: auto, always or never")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "log what is being checked")

	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "if-changed "+version)
		},
	}
}

func envDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func setupLogging(w io.Writer, verbose bool) {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
}
