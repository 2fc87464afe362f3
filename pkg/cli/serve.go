package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"postdesk/pkg/config"
	"postdesk/pkg/server"
	"postdesk/pkg/services"

	"github.com/gin-contrib/sessions/cookie"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the editing API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if config.SessionSecret == "" {
			return errors.New("SESSION_SECRET must be set")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		watcher, err := services.NewWatcher(config.ContentRoot(), services.DefaultDebounce, func(paths []string) {
			log.Debug("invalidating index", "changed", len(paths))
			services.InvalidateCache()
		}, log)
		if err != nil {
			log.Warn("content watcher disabled", "error", err)
		} else {
			go func() {
				if err := watcher.Run(ctx); err != nil {
					log.Error("content watcher stopped", "error", err)
				}
			}()
		}

		store := cookie.NewStore([]byte(config.SessionSecret))
		srv := &http.Server{
			Addr:              config.ListenAddr,
			Handler:           server.NewRouter(store),
			ReadHeaderTimeout: 10 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info("listening", "addr", config.ListenAddr, "repo", config.RepoPath)
			errCh <- srv.ListenAndServe()
		}()

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		log.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	},
}
