package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dronelink-project/dronelink/audit"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect a signed audit log export",
}

var (
	auditQueryFile       string
	auditQuerySeverity   string
	auditQueryEventKind  string
	auditQueryVerifyOnly bool
)

var auditQueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Verify and print entries from an audit log export",
	Long: `query imports an audit log export produced by "missionctl run
--audit-out", verifying its signature chain before anything else runs:
a tampered or truncated export is rejected wholesale rather than
printing whatever entries happen to still check out.`,
	Example: `  missionctl audit query --file audit.log --severity high
  missionctl audit query --file audit.log --event-kind mission.rejected`,
	RunE: runAuditQuery,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditQueryCmd)

	auditQueryCmd.Flags().StringVar(&auditQueryFile, "file", "", "Audit log export file (required)")
	auditQueryCmd.Flags().StringVar(&auditQuerySeverity, "severity", "", "Only show entries at or above this severity")
	auditQueryCmd.Flags().StringVar(&auditQueryEventKind, "event-kind", "", "Only show entries with this event_kind")
	auditQueryCmd.Flags().BoolVar(&auditQueryVerifyOnly, "verify-only", false, "Verify the export and exit without printing entries")
}

func runAuditQuery(cmd *cobra.Command, args []string) error {
	if auditQueryFile == "" {
		return fmt.Errorf("--file is required")
	}

	data, err := os.ReadFile(auditQueryFile)
	if err != nil {
		return fmt.Errorf("read audit export: %w", err)
	}

	// The signer here never appends to the log; Import verifies the
	// export against the verifying key embedded in its own header, so
	// the log's own signer is irrelevant to that check.
	log := audit.New(nil, audit.DefaultRetentionPolicy())
	if err := log.Import(data); err != nil {
		return fmt.Errorf("import audit export: %w", err)
	}

	out := cmd.OutOrStdout()
	if auditQueryVerifyOnly {
		fmt.Fprintf(out, "ok: %d entries, signature chain verified\n", len(log.Entries()))
		return nil
	}

	minSeverity := audit.Severity(auditQuerySeverity)
	shown := 0
	for _, e := range log.Entries() {
		if auditQuerySeverity != "" && !e.Severity.AtLeast(minSeverity) {
			continue
		}
		if auditQueryEventKind != "" && e.EventKind != auditQueryEventKind {
			continue
		}
		fmt.Fprintf(out, "%d\t%s\t%-9s %-28s actor=%-8s result=%s\n",
			e.SequenceNumber, e.Timestamp.Format("2006-01-02T15:04:05Z"), e.Severity, e.EventKind, e.Actor, e.Result)
		shown++
	}
	fmt.Fprintf(out, "%d entries shown\n", shown)
	return nil
}
