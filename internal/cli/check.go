package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sqlspectre/internal/analyzer"
	"github.com/ppiankov/sqlspectre/internal/postgres"
	"github.com/ppiankov/sqlspectre/internal/reporter"
)

func newCheckCmd(info BuildInfo) *cobra.Command {
	var (
		repo    string
		dbURL   string
		schemas []string
		of      outputFlags
		ff      findingFlags
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Scan a repository and compare its table and column references with a live PostgreSQL catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if repo == "" {
				return fmt.Errorf("--repo is required")
			}
			url := resolveDBURL(dbURL)
			if url == "" {
				return fmt.Errorf("--db-url is required (or set %s)", dbURLEnv)
			}
			applyDefaults(cmd, &of, &ff)
			format, err := reporter.ParseFormat(of.format)
			if err != nil {
				return err
			}
			started := time.Now().UTC()

			// The walk is local and has no timeout; only the database does.
			stats, rep, err := scanRepo(cmd.Context(), repo, of, cmd.Flags().Changed("parallel"))
			if err != nil {
				return err
			}

			cat, version, err := inspectCatalog(cmd.Context(), url, schemas)
			if err != nil {
				return err
			}

			report := reporter.NewReport("check", nil, info.Version)
			report.AttachScan(stats, rep)
			report.Metadata.URIHash = reporter.HashURI(url)
			report.Metadata.Database = version
			if !of.noTech {
				if report.Technologies, err = detectTech(cmd.Context(), repo); err != nil {
					return err
				}
			}

			findings := append(analyzer.Analyze(rep), analyzer.Diff(rep, cat)...)
			analyzer.Sort(findings)
			findings, err = ff.process(findings, repo)
			if err != nil {
				return err
			}
			report.SetFindings(findings)

			if err := finish(cmd, &report, rep, of, format, info, started); err != nil {
				return err
			}
			if err := ff.exitError(findings); err != nil {
				return err
			}
			if code := analyzer.ExitCode(report.MaxSeverity); code != 0 {
				return &ExitError{Code: code}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "path to code repository to scan (required)")
	cmd.Flags().StringVar(&dbURL, "db-url", "", "PostgreSQL connection URL (or set "+dbURLEnv+")")
	cmd.Flags().StringSliceVar(&schemas, "schema", nil, "only compare against these schemas (default all)")
	addOutputFlags(cmd, &of)
	addFindingFlags(cmd, &ff)

	return cmd
}

// inspectCatalog reads the catalog within the configured timeout and
// applies the schema filters.
func inspectCatalog(ctx context.Context, url string, schemas []string) (*postgres.Catalog, string, error) {
	ctx, cancel := context.WithTimeout(ctx, cfg.TimeoutDuration())
	defer cancel()

	inspector, err := postgres.Connect(ctx, postgres.Config{URL: url})
	if err != nil {
		return nil, "", err
	}
	defer inspector.Close()

	cat, err := inspector.Inspect(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("inspect: %w", err)
	}
	version := cat.ServerVersion
	cat = postgres.Filter(cat, postgres.ResolveSchemas(schemas))
	cat = postgres.Exclude(cat, cfg.Exclude.Schemas)
	slog.Info("inspected", "version", version, "relations", len(cat.Relations), "columns", len(cat.Columns))
	return cat, version, nil
}
