// Command devdefend scans source files for insecure code patterns and gates
// CI pipelines on the result. It also runs as a long-lived service exposing
// health checks and live scan progress.
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		if errors.Is(err, errGateFailed) {
			os.Exit(1)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(2)
	}
}
