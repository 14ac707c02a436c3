package cli

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/ppiankov/sqlspectre/internal/reporter"
	"github.com/ppiankov/sqlspectre/internal/scanner"
	"github.com/ppiankov/sqlspectre/internal/source"
)

func newExtractCmd() *cobra.Command {
	var (
		lang   string
		format string
	)

	cmd := &cobra.Command{
		Use:   "extract FILE",
		Short: "Print the SQL statements found in one file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			f, err := reporter.ParseFormat(format)
			if err != nil {
				return err
			}

			language := source.ParseLanguage(lang)
			if lang != "" && language == source.LanguageUnknown {
				return fmt.Errorf("unknown language %q (valid: java, csharp, vb, xml, sql)", lang)
			}
			if language == source.LanguageUnknown {
				exts, err := cfg.ExtensionTable()
				if err != nil {
					return fmt.Errorf("config: %w", err)
				}
				language = source.LanguageForPath(path, exts)
			}
			if language == source.LanguageUnknown {
				return fmt.Errorf("cannot tell the language of %s, use --lang", path)
			}

			text, err := scanner.ReadText(path)
			if err != nil {
				return fmt.Errorf("read %s: %w", path, err)
			}
			opts, err := cfg.ScanOptions()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}

			res := scanner.ProcessUnit(source.Unit{
				Path:     filepath.ToSlash(path),
				Language: language,
				Text:     text,
			}, opts.Limits)
			return reporter.WriteStatements(cmd.OutOrStdout(), res, f)
		},
	}

	cmd.Flags().StringVar(&lang, "lang", "", "source language: java, csharp, vb, xml or sql (default from extension)")
	cmd.Flags().StringVar(&format, "format", "text", "output format: text, json or markdown")

	return cmd
}
