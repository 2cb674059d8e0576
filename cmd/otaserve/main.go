// Command otaserve serves an OTA payload embedded in a package zip over HTTP,
// standing in for a production download server during local testing.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
