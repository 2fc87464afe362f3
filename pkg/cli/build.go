package cli

import (
	"fmt"
	"os/signal"
	"syscall"

	"postdesk/pkg/config"
	"postdesk/pkg/services"

	"github.com/spf13/cobra"
)

var renderCmd = &cobra.Command{
	Use:   "render POST",
	Short: "Print the HTML of a post body",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		art, err := services.ReadPost(contentRelative(args)[0])
		if err != nil {
			return err
		}
		body := art.Body
		if art.FrontMatter == nil {
			body = art.Content
		}
		html, err := services.RenderHTML([]byte(body))
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(html)
		return err
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the preview site with hugo, drafts included",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		log.Info("building site", "source", config.RepoPath)
		out, err := services.BuildSite(cmd.Context())
		fmt.Fprint(cmd.OutOrStdout(), out)
		if err != nil {
			return fmt.Errorf("hugo: %w", err)
		}
		return nil
	},
}

var previewCmd = &cobra.Command{
	Use:   "preview",
	Short: "Run hugo server with drafts on HUGO_SERVER_BIND:HUGO_SERVER_PORT",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.Info("starting hugo server", "bind", config.HugoServerBind, "port", config.HugoServerPort)
		err := services.ServeSite(ctx, cmd.OutOrStdout(), cmd.ErrOrStderr())
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			return fmt.Errorf("hugo server: %w", err)
		}
		return nil
	},
}
