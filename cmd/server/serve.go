package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/sakif/docrunner/internal/server"
)

var (
	servePort  int
	serveWatch bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the book with the interactive page runtime",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("port") {
			cfg.Server.Port = servePort
		}
		if cmd.Flags().Changed("watch") {
			cfg.Book.Watch = serveWatch
		}

		logger := newLogger(cfg)

		// Without a configured secret, viewer cookies only live as long as
		// this process.
		if cfg.Auth.Secret == "" {
			secret, err := randomSecret()
			if err != nil {
				return err
			}
			cfg.Auth.Secret = secret
			logger.Warn("auth.secret not set; viewer preferences will not survive a restart")
		}

		srv, err := server.New(cfg, logger)
		if err != nil {
			logger.Error("failed to create server", slog.String("error", err.Error()))
			return err
		}

		// Annotate everything up front so broken pages show up at startup.
		if n, err := srv.Library().Rescan(); err != nil {
			logger.Warn("initial scan failed; pages load on demand", slog.String("error", err.Error()))
		} else {
			logger.Info("book ready", slog.Int("pages", n))
		}

		// Start blocks until the server is shut down (Ctrl+C or SIGTERM).
		return srv.Start()
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8080, "listen port (overrides server.port)")
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reload pages when their files change (overrides book.watch)")
	rootCmd.AddCommand(serveCmd)
}
