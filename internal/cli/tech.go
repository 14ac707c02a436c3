package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sqlspectre/internal/reporter"
)

func newTechCmd() *cobra.Command {
	var (
		repo   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "tech",
		Short: "Detect the build tools, frameworks, servers and database drivers of a repository",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if repo == "" {
				return fmt.Errorf("--repo is required")
			}
			f, err := reporter.ParseFormat(format)
			if err != nil {
				return err
			}
			techs, err := detectTech(cmd.Context(), repo)
			if err != nil {
				return err
			}
			return reporter.WriteTechnologies(cmd.OutOrStdout(), techs, f)
		},
	}

	cmd.Flags().StringVar(&repo, "repo", "", "path to code repository (required)")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json or markdown")

	return cmd
}
