// Command maptss operates a MAPTSS Digital+ portal store: seeding, backups,
// index maintenance, reports and certificate checks.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"maptss.ao/internal/app"
	"maptss.ao/internal/config"
	"maptss.ao/internal/errs"
	"maptss.ao/internal/obs"
)

var (
	version = "dev"
	commit  = "none"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		color.New(color.FgRed).Fprintln(os.Stderr, "error:", err)
		os.Exit(exitCode(err))
	}
}

// exitCode maps an error kind onto a process status.
func exitCode(err error) int {
	switch errs.KindOf(err) {
	case errs.KindNone:
		return 0
	case errs.KindValidation:
		return 2
	case errs.KindAuth:
		return 3
	case errs.KindNotFound:
		return 4
	case errs.KindConflict:
		return 5
	default:
		return 1
	}
}

type rootOptions struct {
	configPath string
	envFiles   []string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:           "maptss",
		Short:         "MAPTSS Digital+ portal operations",
		Version:       version + " (" + commit + ")",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVarP(&opts.configPath, "config", "c", os.Getenv("MAPTSS_CONFIG"), "path to a TOML config file")
	root.PersistentFlags().StringSliceVar(&opts.envFiles, "env-file", nil, "env files to load (default ./.env when present)")

	root.AddCommand(
		newSeedCmd(opts),
		newExportCmd(opts),
		newImportCmd(opts),
		newRebuildIndexesCmd(opts),
		newStatsCmd(opts),
		newReportCmd(opts),
		newNearbyCmd(opts),
		newVerifyCertificateCmd(opts),
		newMetricsCmd(),
	)
	return root
}

// openApp loads configuration and wires the portal. The caller must Close it.
func openApp(cmd *cobra.Command, opts *rootOptions) (*app.App, error) {
	cfg, err := config.Load(opts.configPath, opts.envFiles...)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}
	obs.SetLogger(obs.NewLogger(cmd.ErrOrStderr(), cfg.LogLevel))
	obs.InitBuildInfo(version, commit)

	a, err := app.New(cmd.Context(), cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing app: %w", err)
	}
	return a, nil
}

// withApp runs fn against a freshly opened app and closes it afterwards.
func withApp(opts *rootOptions, fn func(cmd *cobra.Command, args []string, a *app.App) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) (err error) {
		a, err := openApp(cmd, opts)
		if err != nil {
			return err
		}
		defer func() {
			if cerr := a.Close(); cerr != nil {
				err = errors.Join(err, fmt.Errorf("closing storage: %w", cerr))
			}
		}()
		return fn(cmd, args, a)
	}
}
