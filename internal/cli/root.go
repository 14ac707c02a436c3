package cli

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ppiankov/sqlspectre/internal/config"
	"github.com/ppiankov/sqlspectre/internal/logging"
)

// dbURLEnv overrides db_url from the config file.
const dbURLEnv = "SQLSPECTRE_DB_URL"

var (
	verbose    bool
	logFormat  string
	configPath string
	cfg        config.Config
)

// BuildInfo identifies the running binary.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

func (b BuildInfo) String() string {
	s := "sqlspectre " + b.Version
	if b.Commit != "" {
		s += " (commit " + b.Commit
		if b.Date != "" {
			s += ", built " + b.Date
		}
		s += ")"
	}
	return s
}

// ExitError asks main to exit with Code without printing an error.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

func newRootCmd(info BuildInfo) *cobra.Command {
	root := &cobra.Command{
		Use:           "sqlspectre",
		Short:         "Embedded SQL inventory for Java and .NET repositories",
		Long:          "Finds SQL embedded in Java, C#, VB.NET, MyBatis/Hibernate XML and .sql files, classifies every statement, extracts the tables and columns it touches, fingerprints the tech stack and optionally checks the references against a live PostgreSQL catalog.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := logging.Init(logging.Options{
				Verbose: verbose,
				Format:  logFormat,
				Output:  cmd.ErrOrStderr(),
			}); err != nil {
				return err
			}

			if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("load .env: %w", err)
			}

			var err error
			if configPath != "" {
				cfg, err = config.LoadFile(configPath)
			} else {
				cwd, wdErr := os.Getwd()
				if wdErr != nil {
					cwd = "."
				}
				cfg, err = config.Load(cwd)
			}
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			slog.Debug("config loaded", "path", cfg.Path)
			return nil
		},
	}

	root.PersistentFlags().BoolVar(&verbose, "verbose", false, "enable debug-level logging")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format: text or json")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ./"+config.FileName+" or ~/"+config.FileName+")")

	root.AddCommand(newVersionCmd(info))
	root.AddCommand(newScanCmd(info))
	root.AddCommand(newCheckCmd(info))
	root.AddCommand(newExtractCmd())
	root.AddCommand(newTechCmd())

	return root
}

func newVersionCmd(info BuildInfo) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), info.String())
			return err
		},
	}
}

// resolveDBURL picks the connection URL: flag, then environment, then config.
func resolveDBURL(flag string) string {
	if flag != "" {
		return flag
	}
	if env := os.Getenv(dbURLEnv); env != "" {
		return env
	}
	return cfg.DBURL
}

// Execute runs the root command. Interrupts cancel the command context.
func Execute(version, commit, date string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	root := newRootCmd(BuildInfo{Version: version, Commit: commit, Date: date})
	err := root.ExecuteContext(ctx)
	var ee *ExitError
	if err != nil && !errors.As(err, &ee) {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
	}
	return err
}
