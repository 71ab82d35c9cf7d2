package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/dronelink-project/dronelink/alert"
	"github.com/dronelink-project/dronelink/audit"
	"github.com/dronelink-project/dronelink/auth"
	"github.com/dronelink-project/dronelink/channel/acoustic"
	"github.com/dronelink-project/dronelink/channel/validator"
	"github.com/dronelink-project/dronelink/config"
	dronecrypto "github.com/dronelink-project/dronelink/crypto"
	"github.com/dronelink-project/dronelink/internal/logger"
	"github.com/dronelink-project/dronelink/mission"
	"github.com/dronelink-project/dronelink/transfer"
)

var (
	runMissionPath  string
	runStationKey   string
	runOperator     string
	runPin          string
	runScopes       string
	runContext      string
	runCouplingWait time.Duration
	runAuditOut     string
	runAlertOut     string
	runConfigPath   string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Drive one mission transfer end to end in a single process",
	Long: `run wires up a station and a drone in this process and drives the
full dual-channel transfer: prepare, emit, ingest the visual and
acoustic witnesses, await coupling, authorize the operator, decrypt,
and acknowledge.

Because a Station and a Drone each hold private in-memory session
state (derived key material, coupling backlog), the protocol is not
driven across separate missionctl invocations. Use --audit-out and
--alert-out to capture the resulting audit trail and any alerts raised
for later inspection with "missionctl audit query" and
"missionctl alert list".`,
	Example: `  missionctl run --mission plan.json --pin 4821 --operator operator-7 \
      --audit-out audit.log --alert-out alerts.json`,
	RunE: runTransfer,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runMissionPath, "mission", "", "Mission plan JSON file (required)")
	runCmd.Flags().StringVar(&runStationKey, "station-key", "", "Station signing key file; generated in-memory if omitted")
	runCmd.Flags().StringVar(&runOperator, "operator", "operator-1", "Operator ID to authorize")
	runCmd.Flags().StringVar(&runPin, "pin", "", "Operator PIN (required)")
	runCmd.Flags().StringVar(&runScopes, "scopes", "", "Comma-separated scopes to grant; defaults to the mission's required_scopes")
	runCmd.Flags().StringVar(&runContext, "context", "missionctl-run", "Operator context bytes bound into the envelope AAD")
	runCmd.Flags().DurationVar(&runCouplingWait, "coupling-timeout", 200*time.Millisecond, "How long to wait for channel coupling")
	runCmd.Flags().StringVar(&runAuditOut, "audit-out", "", "Write the signed audit log export to this file")
	runCmd.Flags().StringVar(&runAlertOut, "alert-out", "", "Write the active alert snapshot to this file")
	runCmd.Flags().StringVar(&runConfigPath, "config", "", "YAML or JSON config file overriding session TTLs, acoustic spacing, audit retention, and log level")
}

func runTransfer(cmd *cobra.Command, args []string) error {
	if runMissionPath == "" {
		return fmt.Errorf("--mission is required")
	}
	if runPin == "" {
		return fmt.Errorf("--pin is required")
	}

	cfg, err := loadRunConfig()
	if err != nil {
		return err
	}
	applyLoggingConfig(cfg)
	logger.Info("missionctl run starting", logger.String("mission_path", runMissionPath), logger.String("operator_id", runOperator))

	plan, err := loadMissionPlan(runMissionPath)
	if err != nil {
		return err
	}

	scopes := plan.RequiredScopes
	if runScopes != "" {
		scopes = strings.Split(runScopes, ",")
	}

	signer, err := resolveStationSigner()
	if err != nil {
		return err
	}

	retention := audit.DefaultRetentionPolicy()
	if cfg.Audit != nil {
		retention.MaxEntries = cfg.Audit.MaxEntries
		retention.MaxAge = cfg.Audit.MaxAge
		for _, kind := range cfg.Audit.PrioritizedKinds {
			retention.PrioritizedKinds[kind] = true
		}
	}
	log := audit.New(signer, retention)
	alerts := alert.New(log)
	for _, r := range alert.DefaultRules() {
		alerts.AddRule(r)
	}

	station := transfer.NewStation(signer, log)
	if cfg.Station != nil && cfg.Station.SessionTTL > 0 {
		station.SessionTTL = cfg.Station.SessionTTL
	}

	minSpacing := acoustic.MinInterFrameSpacing
	if cfg.Channel != nil && cfg.Channel.AcousticMinSpacing > 0 {
		minSpacing = cfg.Channel.AcousticMinSpacing
	}
	station.Spacer = acoustic.NewSpacer(minSpacing)

	v := validator.New(func(sessionID [16]byte, reason string) {
		fmt.Fprintf(cmd.ErrOrStderr(), "coupling backlog drop session=%x reason=%s\n", sessionID, reason)
	})
	tracker := acoustic.NewTracker()
	gate := auth.NewGate()
	drone := transfer.NewDrone(signer.Public, v, tracker, gate, log, alerts)
	drone.Spacer = acoustic.NewSpacer(minSpacing)
	if cfg.Drone != nil && cfg.Drone.SessionTTL > 0 {
		drone.SessionTTL = cfg.Drone.SessionTTL
	}

	now := time.Now().UTC()
	gate.Pins.SetPin(runOperator, runPin)
	for _, scope := range scopes {
		gate.Scopes.Grant(runOperator, scope, now, auth.DefaultGrantTTL)
	}

	out := cmd.OutOrStdout()
	sessionID, err := driveTransfer(cmd, station, drone, plan, scopes, now)
	writeArtifacts(cmd, log, alerts)
	if err != nil {
		return err
	}

	logger.Info("missionctl run complete", logger.SessionID(sessionID), logger.String("mission_id", plan.Header.ID.String()))
	fmt.Fprintf(out, "transfer complete: session=%x mission=%s\n", sessionID, plan.Header.ID)
	return nil
}

// loadRunConfig loads --config if given, otherwise returns a bare
// Config whose nested sections are all nil so every override below is
// a no-op and the existing CLI-flag defaults apply unchanged.
func loadRunConfig() (*config.Config, error) {
	if runConfigPath == "" {
		return &config.Config{}, nil
	}
	cfg, err := config.LoadFromFile(runConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return cfg, nil
}

// applyLoggingConfig points the package-level default logger at cfg's
// level before any component grabs a reference via GetDefaultLogger.
func applyLoggingConfig(cfg *config.Config) {
	if cfg.Logging == nil || cfg.Logging.Level == "" {
		return
	}
	l := logger.NewLogger(os.Stdout, parseLogLevel(cfg.Logging.Level))
	logger.SetDefaultLogger(l)
}

func parseLogLevel(level string) logger.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return logger.DebugLevel
	case "WARN":
		return logger.WarnLevel
	case "ERROR":
		return logger.ErrorLevel
	default:
		return logger.InfoLevel
	}
}

func driveTransfer(cmd *cobra.Command, station *transfer.Station, drone *transfer.Drone, plan mission.Plan, scopes []string, now time.Time) ([16]byte, error) {
	out := cmd.OutOrStdout()

	dronePub, err := drone.PrimeEphemeral()
	if err != nil {
		return [16]byte{}, fmt.Errorf("prime drone ephemeral keypair: %w", err)
	}

	envelope, sessionID, err := station.Prepare(now, plan, []byte(runContext), dronePub)
	if err != nil {
		return [16]byte{}, fmt.Errorf("station prepare: %w", err)
	}
	fmt.Fprintf(out, "prepared session=%x\n", sessionID)

	vf, bf, err := station.Emit(now, sessionID)
	if err != nil {
		return sessionID, fmt.Errorf("station emit: %w", err)
	}

	raw, err := envelope.Encode()
	if err != nil {
		return sessionID, fmt.Errorf("encode envelope: %w", err)
	}

	if err := drone.IngestVisual(now, vf, now); err != nil {
		return sessionID, fmt.Errorf("drone ingest visual: %w", err)
	}
	if err := drone.IngestEncryptedMission(now, raw); err != nil {
		return sessionID, fmt.Errorf("drone ingest encrypted mission: %w", err)
	}
	if err := drone.IngestBinding(now, bf, now); err != nil {
		return sessionID, fmt.Errorf("drone ingest binding: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), runCouplingWait+500*time.Millisecond)
	defer cancel()
	if err := drone.AwaitCoupled(ctx, now, sessionID, runCouplingWait); err != nil {
		return sessionID, fmt.Errorf("await coupled: %w", err)
	}
	fmt.Fprintf(out, "channels coupled session=%x\n", sessionID)

	if err := drone.Authorize(now, sessionID, runOperator, runPin, scopes); err != nil {
		return sessionID, fmt.Errorf("authorize: %w", err)
	}

	plaintext, err := drone.Decrypt(now, sessionID)
	if err != nil {
		return sessionID, fmt.Errorf("decrypt: %w", err)
	}
	var decoded mission.Plan
	if err := mission.Decode(plaintext, &decoded); err != nil {
		return sessionID, fmt.Errorf("decode recovered plan: %w", err)
	}
	fmt.Fprintf(out, "decrypted mission=%s waypoints=%d\n", decoded.Header.Name, len(decoded.Waypoints))

	ack, err := drone.SendAck(now, sessionID)
	if err != nil {
		return sessionID, fmt.Errorf("send ack: %w", err)
	}
	if err := station.ReceiveAck(now, sessionID, ack.PayloadHash[:]); err != nil {
		return sessionID, fmt.Errorf("receive ack: %w", err)
	}

	return sessionID, nil
}

func resolveStationSigner() (*dronecrypto.SigningKeyPair, error) {
	if runStationKey == "" {
		return dronecrypto.GenerateSigningKeyPair()
	}
	return readSigningKey(runStationKey)
}

func loadMissionPlan(path string) (mission.Plan, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return mission.Plan{}, fmt.Errorf("read mission file: %w", err)
	}
	var plan mission.Plan
	if err := mission.Decode(data, &plan); err != nil {
		return mission.Plan{}, fmt.Errorf("parse mission file: %w", err)
	}
	return plan, nil
}

func writeArtifacts(cmd *cobra.Command, log *audit.Log, alerts *alert.Engine) {
	out := cmd.OutOrStdout()
	if runAuditOut != "" {
		exported, err := log.Export()
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "export audit log: %v\n", err)
		} else if err := os.WriteFile(runAuditOut, exported, 0600); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "write audit export: %v\n", err)
		} else {
			fmt.Fprintf(out, "wrote audit export to %s\n", runAuditOut)
		}
	}

	if runAlertOut != "" {
		exported, err := alerts.ExportActive()
		if err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "export alerts: %v\n", err)
		} else if err := os.WriteFile(runAlertOut, exported, 0600); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "write alert export: %v\n", err)
		} else {
			fmt.Fprintf(out, "wrote alert export to %s\n", runAlertOut)
		}
	}
}
