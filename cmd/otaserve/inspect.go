package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/otakit/otaserve"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [package.zip]",
	Short: "Print the located payload's offset, size and properties",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd, args)
		if err != nil {
			return err
		}
		if cfg.Package == "" && cfg.Payload == "" {
			return errors.New("a package argument or --payload is required")
		}

		loc, err := locate(cfg, newLogger())
		if err != nil {
			return err
		}
		props := otaserve.ParseProperties(loc.Properties)

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "source:        %s\n", loc.ContainerPath)
		fmt.Fprintf(out, "offset:        %d\n", loc.Offset)
		fmt.Fprintf(out, "size:          %d\n", loc.Size)
		fmt.Fprintf(out, "modified:      %s\n", loc.ModTime.UTC().Format("2006-01-02 15:04:05 MST"))
		if props.FileHash != "" {
			fmt.Fprintf(out, "file hash:     %s\n", props.FileHash)
		}
		if props.MetadataHash != "" {
			fmt.Fprintf(out, "metadata hash: %s\n", props.MetadataHash)
		}
		fmt.Fprintf(out, "metadata size: %d\n", props.MetadataSize)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
