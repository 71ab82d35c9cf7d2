package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes per the external-interface convention: 0 success, 1
// generic failure, 2 security/authorization failure, 3 timeout/coupling
// failure.
const (
	ExitSuccess  = 0
	ExitGeneric  = 1
	ExitSecurity = 2
	ExitCoupling = 3
)

var rootCmd = &cobra.Command{
	Use:   "missionctl",
	Short: "missionctl - dual-channel mission transfer CLI",
	Long: `missionctl drives the secure dual-channel mission transfer protocol:
encrypting a mission for a drone, emitting its visual and acoustic
witnesses, coupling them, authorizing the operator, and completing the
transfer end to end.

It also exposes read-only access to a transfer's signed audit log and
the alerts its compliance rules raised.`,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
