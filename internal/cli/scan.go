package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sqlspectre/internal/aggregate"
	"github.com/ppiankov/sqlspectre/internal/analyzer"
	"github.com/ppiankov/sqlspectre/internal/config"
	"github.com/ppiankov/sqlspectre/internal/reporter"
	"github.com/ppiankov/sqlspectre/internal/scanner"
	"github.com/ppiankov/sqlspectre/internal/store"
	"github.com/ppiankov/sqlspectre/internal/techstack"
)

// outputFlags are the rendering and export flags shared by scan and check.
type outputFlags struct {
	format     string
	output     string
	sqlitePath string
	parallel   int
	noTech     bool
}

func addOutputFlags(cmd *cobra.Command, of *outputFlags) {
	cmd.Flags().StringVar(&of.format, "format", "text", "output format: text, json, sarif, spectrehub or markdown")
	cmd.Flags().StringVarP(&of.output, "output", "o", "", "write the report to a file instead of stdout")
	cmd.Flags().StringVar(&of.sqlitePath, "sqlite", "", "also export the run to a SQLite database")
	cmd.Flags().IntVar(&of.parallel, "parallel", 0, "number of scanner goroutines (0=NumCPU, 1=sequential)")
	cmd.Flags().BoolVar(&of.noTech, "no-tech", false, "skip tech-stack detection")
}

func addFindingFlags(cmd *cobra.Command, ff *findingFlags) {
	cmd.Flags().StringVar(&ff.baselinePath, "baseline", "", "path to baseline file (suppress known findings)")
	cmd.Flags().StringVar(&ff.updateBaseline, "update-baseline", "", "save current findings as new baseline")
	cmd.Flags().StringVar(&ff.failOn, "fail-on", "", "exit 2 if findings match (comma-separated types or severity: high,medium)")
	cmd.Flags().StringVar(&ff.minSeverity, "min-severity", "", "only report findings at or above this severity")
	cmd.Flags().StringVar(&ff.types, "type", "", "only report these finding types (comma-separated)")
}

// applyDefaults fills flags the user did not set from the config file.
func applyDefaults(cmd *cobra.Command, of *outputFlags, ff *findingFlags) {
	if !cmd.Flags().Changed("format") && cfg.Defaults.Format != "" {
		of.format = cfg.Defaults.Format
	}
	if !cmd.Flags().Changed("fail-on") && cfg.Defaults.FailOn != "" {
		ff.failOn = cfg.Defaults.FailOn
	}
}

func newScanCmd(info BuildInfo) *cobra.Command {
	var (
		repo string
		of   outputFlags
		ff   findingFlags
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Inventory embedded SQL in a code repository (no database required)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if repo == "" {
				return fmt.Errorf("--repo is required")
			}
			applyDefaults(cmd, &of, &ff)
			format, err := reporter.ParseFormat(of.format)
			if err != nil {
				return err
			}
			started := time.Now().UTC()

			stats, rep, err := scanRepo(cmd.Context(), repo, of, cmd.Flags().Changed("parallel"))
			if err != nil {
				return err
			}

			report := reporter.NewReport("scan", nil, info.Version)
			report.AttachScan(stats, rep)
			if !of.noTech {
				if report.Technologies, err = detectTech(cmd.Context(), repo); err != nil {
					return err
				}
			}

			findings, err := ff.process(analyzer.Analyze(rep), repo)
			if err != nil {
				return err
			}
			report.SetFindings(findings)

			if err := finish(cmd, &report, rep, of, format, info, started); err != nil {
				return err
			}
			return ff.exitError(findings)
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "path to code repository to scan (required)")
	addOutputFlags(cmd, &of)
	addFindingFlags(cmd, &ff)

	return cmd
}

// scanRepo runs the pipeline over every file under repo.
func scanRepo(ctx context.Context, repo string, of outputFlags, parallelSet bool) (scanner.Stats, aggregate.Report, error) {
	opts, err := cfg.ScanOptions()
	if err != nil {
		return scanner.Stats{}, aggregate.Report{}, fmt.Errorf("config: %w", err)
	}
	if parallelSet {
		opts.Workers = of.parallel
	}

	if cfg.Path == "" && config.Exists(repo) {
		slog.Warn("repository has its own config file that is not loaded, pass --config to use it",
			"path", filepath.Join(repo, config.FileName))
	}
	slog.Debug("scanning repo", "path", repo, "workers", opts.Workers)
	agg := aggregate.New()
	stats, err := scanner.Scan(ctx, repo, opts, agg)
	if err != nil {
		return stats, aggregate.Report{}, fmt.Errorf("scan: %w", err)
	}
	rep := agg.Snapshot()
	slog.Info("scan complete",
		"files", stats.FilesScanned,
		"skipped", stats.FilesSkipped,
		"statements", rep.Summary.Statements,
		"unparsed", rep.Summary.Unparsed)
	return stats, rep, nil
}

func detectTech(ctx context.Context, repo string) ([]techstack.Technology, error) {
	techs, err := techstack.Detect(ctx, repo, techstack.Options{
		SkipDirs:     cfg.Scan.SkipDirs,
		ImportSample: cfg.Scan.ImportSample,
	})
	if err != nil {
		return nil, fmt.Errorf("detect tech stack: %w", err)
	}
	slog.Debug("tech stack detected", "technologies", len(techs))
	return techs, nil
}

// finish renders the report and exports the run when --sqlite is set.
func finish(cmd *cobra.Command, report *reporter.Report, rep aggregate.Report, of outputFlags, format reporter.Format, info BuildInfo, started time.Time) error {
	if of.sqlitePath != "" {
		if err := exportRun(cmd.Context(), of.sqlitePath, report, rep, info, started); err != nil {
			return err
		}
	}
	return writeReport(cmd.OutOrStdout(), of.output, report, format)
}

func writeReport(stdout io.Writer, output string, report *reporter.Report, format reporter.Format) error {
	w := stdout
	if output != "" {
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create output: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := reporter.Write(w, report, format); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	return nil
}

func exportRun(ctx context.Context, path string, report *reporter.Report, rep aggregate.Report, info BuildInfo, started time.Time) error {
	st, err := store.Open(ctx, path)
	if err != nil {
		return err
	}
	defer st.Close()

	err = st.Export(ctx, store.Run{
		ID:           report.Metadata.RunID,
		Repo:         report.Metadata.Repo,
		ToolVersion:  info.Version,
		StartedAt:    started,
		Report:       rep,
		Technologies: report.Technologies,
		Findings:     report.Findings,
	})
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	slog.Info("run exported", "path", st.Path(), "run", report.Metadata.RunID)
	return nil
}
