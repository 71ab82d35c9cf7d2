package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dronelink-project/dronelink/alert"
)

var alertCmd = &cobra.Command{
	Use:   "alert",
	Short: "Inspect and transition alerts from an exported snapshot",
}

var alertListFile string

var alertListCmd = &cobra.Command{
	Use:   "list",
	Short: "List alerts from an alert snapshot file",
	Example: `  missionctl alert list --file alerts.json`,
	RunE: runAlertList,
}

var (
	alertAckFile    string
	alertAckID      string
	alertAckStatus  string
	alertAckActor   string
)

var alertAckCmd = &cobra.Command{
	Use:   "ack",
	Short: "Transition one alert's status within a snapshot file",
	Long: `ack moves a single alert to a new status and rewrites the snapshot
file in place. It validates the transition against the same state
machine the live alert.Engine enforces, so a snapshot edited this way
never drifts from what a live Engine would have accepted.

This does not touch the audit log: a snapshot transition made after
the originating process has exited has nowhere live to record itself
into. Record that decision through the system that owns the log.`,
	Example: `  missionctl alert ack --file alerts.json --id 3f9c... --status investigating --actor reviewer-1`,
	RunE:    runAlertAck,
}

func init() {
	rootCmd.AddCommand(alertCmd)
	alertCmd.AddCommand(alertListCmd, alertAckCmd)

	alertListCmd.Flags().StringVar(&alertListFile, "file", "", "Alert snapshot file (required)")

	alertAckCmd.Flags().StringVar(&alertAckFile, "file", "", "Alert snapshot file (required)")
	alertAckCmd.Flags().StringVar(&alertAckID, "id", "", "alert_id to transition (required)")
	alertAckCmd.Flags().StringVar(&alertAckStatus, "status", "", "New status (required)")
	alertAckCmd.Flags().StringVar(&alertAckActor, "actor", "", "Reviewer performing the transition")
}

func runAlertList(cmd *cobra.Command, args []string) error {
	if alertListFile == "" {
		return fmt.Errorf("--file is required")
	}
	alerts, err := readAlertSnapshot(alertListFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, a := range alerts {
		fmt.Fprintf(out, "%s\t%-9s %-22s status=%-14s reviewer=%s\n",
			a.AlertID, a.Severity, a.Kind, a.Status, a.Reviewer)
	}
	fmt.Fprintf(out, "%d alerts\n", len(alerts))
	return nil
}

func runAlertAck(cmd *cobra.Command, args []string) error {
	if alertAckFile == "" || alertAckID == "" || alertAckStatus == "" {
		return fmt.Errorf("--file, --id, and --status are required")
	}
	newStatus := alert.Status(alertAckStatus)

	alerts, err := readAlertSnapshot(alertAckFile)
	if err != nil {
		return err
	}

	found := -1
	for i, a := range alerts {
		if a.AlertID == alertAckID {
			found = i
			break
		}
	}
	if found == -1 {
		return fmt.Errorf("%w: %s", alert.ErrNotFound, alertAckID)
	}

	current := alerts[found]
	oldStatus := current.Status
	if !alert.IsValidTransition(oldStatus, newStatus) {
		return fmt.Errorf("%w: %s -> %s", alert.ErrInvalidTransition, oldStatus, newStatus)
	}
	current.Status = newStatus
	if alertAckActor != "" {
		current.Reviewer = alertAckActor
	}
	alerts[found] = current

	b, err := json.MarshalIndent(alerts, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal updated snapshot: %w", err)
	}
	if err := os.WriteFile(alertAckFile, b, 0600); err != nil {
		return fmt.Errorf("write updated snapshot: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "alert %s: %s -> %s\n", current.AlertID, oldStatus, newStatus)
	return nil
}

func readAlertSnapshot(path string) ([]alert.SecurityAlert, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read alert snapshot: %w", err)
	}
	alerts, err := alert.DecodeAlerts(data)
	if err != nil {
		return nil, err
	}
	return alerts, nil
}
