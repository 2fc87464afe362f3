// Package cli implements the postdesk command line.
package cli

import (
	"errors"

	"postdesk/pkg/config"
	"postdesk/pkg/logger"

	"github.com/spf13/cobra"
)

// ErrLintFailed is returned when a lint run finds failing issues. The report
// has already been printed.
var ErrLintFailed = errors.New("lint failed")

var (
	repoFlag     string
	logLevelFlag string
	log          = logger.New("info")
)

var rootCmd = &cobra.Command{
	Use:   "postdesk",
	Short: "Content desk for a Hugo post collection",
	Long: `postdesk indexes, lints and edits the Markdown posts of a Hugo site.

Posts live in content/posts/ as YYYY-MM-DD-slug.md files with YAML front
matter (title, date, draft, tags).

  postdesk lint              check every post
  postdesk list --tag redis  list posts with a tag
  postdesk new "Title"       scaffold a draft
  postdesk serve             run the editing API`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		dotenv := config.Init()
		if repoFlag != "" {
			config.SetRepoPath(repoFlag)
		}
		if logLevelFlag != "" {
			config.LogLevel = logLevelFlag
		}
		log.SetLevel(config.LogLevel)
		log.Debug("configuration loaded", "repo", config.RepoPath, "dotenv", dotenv)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// NewRootCommand exposes the command tree, mainly for tests.
func NewRootCommand() *cobra.Command {
	return rootCmd
}

func init() {
	rootCmd.PersistentFlags().StringVar(&repoFlag, "repo", "", "Hugo site root (default $REPO_PATH or ./repo)")
	rootCmd.PersistentFlags().StringVarP(&logLevelFlag, "log-level", "l", "", "log level (debug, info, warn, error)")

	rootCmd.AddCommand(lintCmd, listCmd, tagsCmd, newCmd, renderCmd, buildCmd, previewCmd, serveCmd)
}
