package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"aireviewer/internal/app"
	"aireviewer/internal/archive"
	"aireviewer/internal/util/jsonutil"
)

func (h *Handler) analyzeCmd() *cobra.Command {
	var (
		repoDir      string
		zipFile      string
		requirements string
		problem      string
		outputFile   string
		artifacts    string
		dumpPrompts  string
		fake         bool
		timeout      time.Duration
	)

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Analyze a repository against a requirements description",
		Long:  "Selects, summarizes and reports on the source files of a directory or zip archive",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (repoDir == "") == (zipFile == "") {
				return errors.New("exactly one of --repo or --zip is required")
			}
			reqText, err := requirementsText(requirements, problem)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			a, err := app.New(ctx, h.cfg, app.Options{Fake: fake, DumpPrompts: dumpPrompts})
			if err != nil {
				return err
			}
			defer a.Close()

			root := repoDir
			if zipFile != "" {
				data, err := os.ReadFile(zipFile)
				if err != nil {
					return fmt.Errorf("read archive: %w", err)
				}
				dir, cleanup, err := archive.Unpack(ctx, data)
				defer cleanup()
				if err != nil {
					return err
				}
				root = dir
			}

			runID := uuid.NewString()
			fmt.Fprintf(cmd.ErrOrStderr(), "run %s: analyzing %s\n", runID, root)

			art, err := a.Analyzer.Gather(ctx, root, reqText)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}
			if artifacts != "" {
				if err := writeJSONFile(artifacts, art); err != nil {
					return err
				}
			}
			rep, err := a.Analyzer.Report(ctx, reqText, art)
			if err != nil {
				return fmt.Errorf("analysis failed: %w", err)
			}

			if outputFile != "" {
				if err := writeJSONFile(outputFile, rep); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Report written to %s\n", outputFile)
			} else {
				out, err := jsonutil.MarshalNoEscapeIndent(rep, "  ")
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "run %s: %d candidates, %d summaries\n", runID, len(art.Candidates), len(art.Summaries))
			return nil
		},
	}

	cmd.Flags().StringVarP(&repoDir, "repo", "r", "", "Repository directory")
	cmd.Flags().StringVarP(&zipFile, "zip", "z", "", "Zip archive of the repository")
	cmd.Flags().StringVar(&requirements, "requirements", "", "File holding the requirements text")
	cmd.Flags().StringVarP(&problem, "problem", "p", "", "Requirements text")
	cmd.Flags().StringVarP(&outputFile, "out", "o", "", "Write the report to this file instead of stdout")
	cmd.Flags().StringVar(&artifacts, "artifacts", "", "Also write candidates, summaries and overview as JSON")
	cmd.Flags().StringVar(&dumpPrompts, "dump-prompts", "", "Directory receiving every prompt and response")
	cmd.Flags().BoolVar(&fake, "fake", false, "Use the offline fake model")
	cmd.Flags().DurationVarP(&timeout, "timeout", "t", 30*time.Minute, "Analysis timeout")

	return cmd
}

func requirementsText(file, text string) (string, error) {
	if file != "" && text != "" {
		return "", errors.New("use either --requirements or --problem, not both")
	}
	if file != "" {
		b, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read requirements: %w", err)
		}
		text = string(b)
	}
	if strings.TrimSpace(text) == "" {
		return "", errors.New("--requirements or --problem is required")
	}
	return text, nil
}

func writeJSONFile(path string, v any) error {
	b, err := jsonutil.MarshalNoEscapeIndent(v, "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, append(b, '\n'), 0o644)
}
