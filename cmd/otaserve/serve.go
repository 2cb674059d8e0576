package main

import (
	"errors"
	"net/http"

	"github.com/rs/cors"
	"github.com/spf13/cobra"

	"github.com/otakit/otaserve/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve [package.zip]",
	Short: "Locate the payload and serve it over HTTP",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		if cfg.Package == "" && cfg.Payload == "" {
			return errors.New("a package argument or --payload is required")
		}

		logger := newLogger()
		loc, err := locate(cfg, logger)
		if err != nil {
			return err
		}

		handler := server.New(loc, server.WithLogger(logger)).Handler()
		if cfg.CORS {
			handler = cors.AllowAll().Handler(handler)
		}

		logger.Info("serving payload", "listen", cfg.Listen,
			"source", loc.ContainerPath, "offset", loc.Offset, "size", loc.Size)
		return http.ListenAndServe(cfg.Listen, handler)
	},
}

func init() {
	serveCmd.Flags().StringVar(&flags.listen, "listen", "127.0.0.1:8080", "address to listen on")
	serveCmd.Flags().BoolVar(&flags.cors, "cors", false, "allow cross-origin requests")
	rootCmd.AddCommand(serveCmd)
}
