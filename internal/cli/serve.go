package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/anime-shed/tea-leaf-inspector-go/internal/container"
	"github.com/anime-shed/tea-leaf-inspector-go/internal/logger"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func newServeCmd(flags *globalFlags) *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the diagnosis HTTP API",
		Long: `Starts the HTTP API. Images are accepted as multipart uploads or as
http(s) and Azure blob URLs; local paths are not served.`,
		Example: `  # Start on the configured PORT (default 8080)
  teadoctor serve

  # Start in demo mode on a custom port
  teadoctor serve --mode demo --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.loadConfig()
			if err != nil {
				return err
			}
			if port != "" {
				cfg.Port = port
				if err := cfg.Validate(); err != nil {
					return err
				}
			}
			if cfg.LogLevel != "debug" {
				gin.SetMode(gin.ReleaseMode)
			}

			c, err := container.NewContainer(cfg, container.Options{})
			if err != nil {
				return err
			}
			defer c.Close()

			server := &http.Server{
				Addr:         cfg.ServerAddress(),
				Handler:      c.Handler(),
				ReadTimeout:  cfg.RequestTimeout,
				WriteTimeout: cfg.RequestTimeout,
			}

			serverErr := make(chan error, 1)
			go func() {
				logger.WithFields(logrus.Fields{
					"address": cfg.ServerAddress(),
					"timeout": cfg.RequestTimeout,
					"mode":    cfg.PredictionMode,
				}).Info("Starting HTTP server")

				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			select {
			case <-cmd.Context().Done():
				logger.Info("Shutting down server...")
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				if err := server.Shutdown(ctx); err != nil {
					logger.WithError(err).Error("Server forced to shutdown")
					return err
				}
				logger.Info("Server exited")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (default from PORT)")

	return cmd
}
