package main

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/otakit/otaserve"
)

var rootCmd = &cobra.Command{
	Use:           "otaserve",
	Short:         "Serve an OTA payload over HTTP for local update testing",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var flags struct {
	config     string
	listen     string
	secondary  bool
	strict     bool
	payload    string
	properties string
	cors       bool
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&flags.config, "config", "", "YAML config file")
	pf.BoolVar(&flags.secondary, "secondary", false, "serve the secondary payload entries")
	pf.BoolVar(&flags.strict, "strict", false, "treat magic/compression warnings as errors")
	pf.StringVar(&flags.payload, "payload", "", "serve a bare payload file instead of a package")
	pf.StringVar(&flags.properties, "properties", "", "properties file for --payload")
}

func newLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, nil))
}

// loadConfig merges the config file (if any) with command-line flags.
// Flags win.
func loadConfig(cmd *cobra.Command, args []string) (otaserve.Config, error) {
	cfg := otaserve.DefaultConfig()
	if flags.config != "" {
		var err error
		if cfg, err = otaserve.LoadConfig(flags.config); err != nil {
			return cfg, err
		}
	}
	if len(args) > 0 {
		cfg.Package = args[0]
	}
	if cmd.Flags().Changed("listen") {
		cfg.Listen = flags.listen
	}
	if cmd.Flags().Changed("secondary") {
		cfg.Secondary = flags.secondary
	}
	if cmd.Flags().Changed("strict") {
		cfg.Strict = flags.strict
	}
	if cmd.Flags().Changed("payload") {
		cfg.Payload = flags.payload
	}
	if cmd.Flags().Changed("properties") {
		cfg.Properties = flags.properties
	}
	if cmd.Flags().Changed("cors") {
		cfg.CORS = flags.cors
	}
	return cfg, cfg.Validate()
}

// locate resolves the payload from the merged configuration.
func locate(cfg otaserve.Config, logger *slog.Logger) (*otaserve.PayloadLocation, error) {
	opts := []otaserve.LocateOption{otaserve.WithLogger(logger)}
	if cfg.Strict {
		opts = append(opts, otaserve.WithStrict())
	}
	if cfg.Payload != "" {
		return otaserve.LocateRaw(cfg.Payload, cfg.Properties, opts...)
	}
	if cfg.Secondary {
		opts = append(opts, otaserve.WithSecondary())
	}
	return otaserve.Locate(cfg.Package, opts...)
}
