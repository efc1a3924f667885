package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"maptss.ao/internal/app"
	"maptss.ao/internal/backup"
	"maptss.ao/internal/errs"
	"maptss.ao/internal/model"
	"maptss.ao/internal/obs"
	"maptss.ao/internal/portal"
	"maptss.ao/internal/store"
)

const dateLayout = "2006-01-02"

var (
	okColor   = color.New(color.FgGreen)
	warnColor = color.New(color.FgYellow)
	badColor  = color.New(color.FgRed)
	headColor = color.New(color.FgCyan, color.Bold)
)

func newSeedCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Load default users and the demo catalogue into empty storage",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, _ []string, a *app.App) error {
			users, catalogue, err := a.Seed(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if users == 0 && !catalogue {
				warnColor.Fprintln(out, "Storage already populated, nothing seeded")
				return nil
			}
			okColor.Fprintf(out, "Seeded %d users, catalogue loaded: %t\n", users, catalogue)
			return nil
		}),
	}
}

type backupFlags struct {
	passphrase string
	recipients []string
	identities []string
}

func (f *backupFlags) options() backup.Options {
	pass := f.passphrase
	if pass == "" {
		pass = os.Getenv("MAPTSS_BACKUP_PASSPHRASE")
	}
	return backup.Options{Passphrase: pass, Recipients: f.recipients, Identities: f.identities}
}

func newExportCmd(opts *rootOptions) *cobra.Command {
	var (
		bf  backupFlags
		out string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every collection to a backup file",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, _ []string, a *app.App) error {
			if out == "" || out == "-" {
				return backup.Write(cmd.Context(), a.Repos.DB, cmd.OutOrStdout(), bf.options())
			}
			f, err := os.Create(out)
			if err != nil {
				return fmt.Errorf("creating %s: %w", out, err)
			}
			if err := writeAndClose(cmd.Context(), a.Repos.DB, f, bf.options()); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			okColor.Fprintf(cmd.ErrOrStderr(), "Backup written to %s\n", out)
			return nil
		}),
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default stdout)")
	cmd.Flags().StringVar(&bf.passphrase, "passphrase", "", "encrypt with a passphrase (or MAPTSS_BACKUP_PASSPHRASE)")
	cmd.Flags().StringSliceVar(&bf.recipients, "recipient", nil, "encrypt to an age X25519 recipient")
	return cmd
}

// writeAndClose writes a backup to w and closes it. A failed close fails the
// export, since the file may be incomplete.
func writeAndClose(ctx context.Context, db *store.DB, w io.WriteCloser, opts backup.Options) error {
	if err := backup.Write(ctx, db, w, opts); err != nil {
		return errors.Join(err, w.Close())
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("closing backup: %w", err)
	}
	return nil
}

func newImportCmd(opts *rootOptions) *cobra.Command {
	var (
		bf backupFlags
		in string
	)
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Replace every collection with the contents of a backup file",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, _ []string, a *app.App) error {
			var r io.Reader = cmd.InOrStdin()
			if in != "" && in != "-" {
				f, err := os.Open(in)
				if err != nil {
					return fmt.Errorf("opening %s: %w", in, err)
				}
				defer f.Close()
				r = f
			}
			env, err := backup.Restore(cmd.Context(), a.Repos.DB, r, bf.options())
			if err != nil {
				return err
			}
			total := 0
			for _, records := range env.Collections {
				total += len(records)
			}
			okColor.Fprintf(cmd.OutOrStdout(), "Imported %d records from backup taken %s\n",
				total, env.ExportedAt.Format(time.RFC3339))
			return nil
		}),
	}
	cmd.Flags().StringVarP(&in, "in", "i", "", "input file (default stdin)")
	cmd.Flags().StringVar(&bf.passphrase, "passphrase", "", "passphrase for an encrypted backup (or MAPTSS_BACKUP_PASSPHRASE)")
	cmd.Flags().StringSliceVar(&bf.identities, "identity", nil, "age X25519 identity for an encrypted backup")
	return cmd
}

func newRebuildIndexesCmd(opts *rootOptions) *cobra.Command {
	var verifyOnly bool
	cmd := &cobra.Command{
		Use:   "rebuild-indexes",
		Short: "Rebuild every secondary index from the primary collections",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, _ []string, a *app.App) error {
			out := cmd.OutOrStdout()
			if verifyOnly {
				stale, err := a.Repos.DB.VerifyIndexes(cmd.Context())
				if err != nil {
					return err
				}
				if len(stale) == 0 {
					okColor.Fprintln(out, "All indexes consistent")
					return nil
				}
				for _, name := range stale {
					warnColor.Fprintf(out, "stale: %s\n", name)
				}
				return fmt.Errorf("%w: %d stale indexes", errs.ErrConflict, len(stale))
			}
			if err := a.Repos.DB.RebuildAllIndexes(cmd.Context()); err != nil {
				return err
			}
			okColor.Fprintf(out, "Rebuilt %d indexes\n", len(a.Repos.DB.Indexes()))
			return nil
		}),
	}
	cmd.Flags().BoolVar(&verifyOnly, "verify", false, "only report indexes that disagree with the collections")
	return cmd
}

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show record counts and sizes per collection",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, _ []string, a *app.App) error {
			ctx := cmd.Context()
			stats, err := a.Repos.DB.Stats(ctx)
			if err != nil {
				return err
			}
			info, err := a.Repos.DB.StorageInfo(ctx)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			headColor.Fprintf(out, "Storage: %s\n", a.Config.Storage.Type)

			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Collection", "Records", "Bytes", "Last Updated"})
			for _, name := range a.Repos.DB.Collections() {
				st := stats[name]
				last := "-"
				if st.LastUpdated != nil {
					last = st.LastUpdated.Format(time.RFC3339)
				}
				table.Append([]string{name, strconv.Itoa(st.Count), strconv.Itoa(info.Collections[name]), last})
			}
			table.SetFooter([]string{"total", "", strconv.Itoa(info.TotalSize), ""})
			table.Render()
			return nil
		}),
	}
}

func newReportCmd(opts *rootOptions) *cobra.Command {
	var from, to, province string
	cmd := &cobra.Command{
		Use:       "report TYPE",
		Short:     "Generate a tabular report",
		Long:      "Generate a report. Types: " + fmt.Sprint(portal.ReportTypes),
		Args:      cobra.ExactArgs(1),
		ValidArgs: portal.ReportTypes,
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, a *app.App) error {
			params := portal.ReportParams{Province: province}
			var err error
			if params.From, err = parseDate(from); err != nil {
				return err
			}
			if params.To, err = parseDate(to); err != nil {
				return err
			}
			report, err := a.Portal.GenerateReport(cmd.Context(), args[0], params)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			headColor.Fprintf(out, "%s (%s)\n", report.Type, report.GeneratedAt.Format(time.RFC3339))
			table := tablewriter.NewWriter(out)
			table.SetHeader(report.Columns)
			table.AppendBulk(report.Rows)
			table.Render()
			return nil
		}),
	}
	cmd.Flags().StringVar(&from, "from", "", "first day included (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "first day excluded (YYYY-MM-DD)")
	cmd.Flags().StringVar(&province, "province", "", "restrict to one province")
	return cmd
}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: want YYYY-MM-DD", errs.ErrValidation, s)
	}
	return t, nil
}

func newNearbyCmd(opts *rootOptions) *cobra.Command {
	var lat, lng, radius float64
	cmd := &cobra.Command{
		Use:   "nearby",
		Short: "List training centers near a point, nearest first",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, _ []string, a *app.App) error {
			centers, err := a.Portal.NearbyCenters(cmd.Context(), model.GeoPoint{Latitude: lat, Longitude: lng}, radius)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(centers) == 0 {
				warnColor.Fprintln(out, "No centers in range")
				return nil
			}
			table := tablewriter.NewWriter(out)
			table.SetHeader([]string{"Center", "Province", "Status", "Distance (km)"})
			for _, c := range centers {
				table.Append([]string{c.Name, c.Province, c.Status, strconv.FormatFloat(c.DistanceKm, 'f', 2, 64)})
			}
			table.Render()
			return nil
		}),
	}
	cmd.Flags().Float64Var(&lat, "lat", 0, "latitude in degrees")
	cmd.Flags().Float64Var(&lng, "lng", 0, "longitude in degrees")
	cmd.Flags().Float64Var(&radius, "radius", 0, "search radius in km (default from config)")
	_ = cmd.MarkFlagRequired("lat")
	_ = cmd.MarkFlagRequired("lng")
	return cmd
}

func newVerifyCertificateCmd(opts *rootOptions) *cobra.Command {
	var employer string
	cmd := &cobra.Command{
		Use:   "verify-certificate CODE",
		Short: "Check that a certificate code is genuine",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, a *app.App) error {
			res, err := a.Portal.VerifyCertificate(cmd.Context(), args[0], employer)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !res.Valid {
				badColor.Fprintln(out, res.Error)
				return fmt.Errorf("%w: certificate %s rejected", errs.ErrValidation, args[0])
			}
			c := res.Certificate
			okColor.Fprintf(out, "Certificado válido: %s\n", c.Code)
			fmt.Fprintf(out, "  formando %s, %s\n", c.StudentID, c.CourseName)
			fmt.Fprintf(out, "  emitido em %s\n", c.IssuedAt.Format(dateLayout))
			return nil
		}),
	}
	cmd.Flags().StringVar(&employer, "employer", "", "employer id recorded against the verification")
	return cmd
}

func newMetricsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "Print process metrics in Prometheus text format",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			obs.InitBuildInfo(version, commit)
			return obs.WriteText(cmd.OutOrStdout())
		},
	}
}
