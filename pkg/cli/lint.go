package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"postdesk/pkg/config"
	"postdesk/pkg/models"
	"postdesk/pkg/services"

	"github.com/spf13/cobra"
)

var (
	lintFormat   string
	lintStrict   bool
	lintDisabled []string
	lintWatch    bool
)

var lintCmd = &cobra.Command{
	Use:   "lint [post...]",
	Short: "Check posts for front matter, naming, link and code fence problems",
	Long: `Check posts for front matter, naming, link and code fence problems.

Paths are relative to the content directory (posts/2024-01-02-slug.md) or to
the working directory. Without paths every post is checked.

Rules: ` + strings.Join(services.Rules, ", "),
	RunE: func(cmd *cobra.Command, args []string) error {
		if unknown := services.UnknownRules(lintDisabled); len(unknown) > 0 {
			return fmt.Errorf("unknown rule(s): %s", strings.Join(unknown, ", "))
		}
		if lintFormat != "text" && lintFormat != "json" {
			return fmt.Errorf("unknown format %q", lintFormat)
		}

		linter := services.NewLinter(services.LintOptions{
			Strict:   lintStrict,
			Disabled: lintDisabled,
		})
		targets := contentRelative(args)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		failed, err := lintOnce(ctx, cmd.OutOrStdout(), linter, targets)
		if err != nil {
			return err
		}
		if !lintWatch {
			if failed {
				return ErrLintFailed
			}
			return nil
		}

		w, err := services.NewWatcher(config.PostsDir(), services.DefaultDebounce, func(paths []string) {
			log.Info("re-linting", "changed", len(paths))
			if _, err := lintOnce(ctx, cmd.OutOrStdout(), linter, targets); err != nil {
				log.Error("lint", "error", err)
			}
		}, log)
		if err != nil {
			return fmt.Errorf("watch %s: %w", config.PostsDir(), err)
		}
		log.Info("watching for changes", "dir", config.PostsDir())
		return w.Run(ctx)
	},
}

func lintOnce(ctx context.Context, out io.Writer, linter *services.Linter, targets []string) (bool, error) {
	var (
		report *models.Report
		err    error
	)
	if len(targets) > 0 {
		report, err = linter.LintFile(ctx, targets...)
	} else {
		report, err = linter.Lint(ctx)
	}
	if err != nil {
		return false, err
	}

	if lintFormat == "json" {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return false, err
		}
	} else if err := writeReport(out, report); err != nil {
		return false, err
	}
	return linter.Failed(report), nil
}

// contentRelative maps CLI paths to paths relative to the content root.
// Paths already relative to it are kept.
func contentRelative(args []string) []string {
	root, _ := filepath.Abs(config.ContentRoot())
	out := make([]string, 0, len(args))
	for _, arg := range args {
		if abs, err := filepath.Abs(arg); err == nil {
			if rel, err := filepath.Rel(root, abs); err == nil && !strings.HasPrefix(rel, "..") {
				out = append(out, filepath.ToSlash(rel))
				continue
			}
		}
		out = append(out, filepath.ToSlash(filepath.Clean(arg)))
	}
	return out
}

func writeReport(w io.Writer, report *models.Report) error {
	for _, issue := range report.Issues {
		loc := issue.Path
		if issue.Line > 0 {
			loc = fmt.Sprintf("%s:%d", issue.Path, issue.Line)
		}
		if _, err := fmt.Fprintf(w, "%s: %s: %s [%s]\n", loc, issue.Severity, issue.Message, issue.Rule); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d file(s) checked, %d error(s), %d warning(s)\n", report.Files, report.Errors(), report.Warnings())
	return err
}

func init() {
	lintCmd.Flags().StringVarP(&lintFormat, "format", "f", "text", "output format (text, json)")
	lintCmd.Flags().BoolVar(&lintStrict, "strict", false, "fail on warnings too")
	lintCmd.Flags().StringSliceVar(&lintDisabled, "disable", nil, "rules to skip (comma separated)")
	lintCmd.Flags().BoolVarP(&lintWatch, "watch", "w", false, "re-lint whenever a post changes")
}
