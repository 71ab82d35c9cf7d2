package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dronelink-project/dronelink/config"
	dronecrypto "github.com/dronelink-project/dronelink/crypto"
)

var (
	keygenOut        string
	keygenConfigPath string
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate an Ed25519 signing keypair",
	Long: `Generate a fresh Ed25519 signing keypair for use as a station's
long-lived audit-signing key, or as the key a drone trusts to verify
envelope signatures against.

The keypair is written to --out as JSON with base64-encoded private and
public halves. Treat the file as a secret: anyone holding it can sign
audit entries and mission envelopes as this identity.`,
	Example: `  missionctl keygen --out station.key`,
	RunE:    runKeygen,
}

func init() {
	rootCmd.AddCommand(keygenCmd)
	keygenCmd.Flags().StringVarP(&keygenOut, "out", "o", "", "Output key file path (required unless --config sets station.signing_key_path)")
	keygenCmd.Flags().StringVar(&keygenConfigPath, "config", "", "YAML or JSON config file supplying a default --out from station.signing_key_path")
}

func runKeygen(cmd *cobra.Command, args []string) error {
	if keygenOut == "" && keygenConfigPath != "" {
		cfg, err := config.LoadFromFile(keygenConfigPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if cfg.Station != nil && cfg.Station.SigningKeyPath != "" {
			keygenOut = cfg.Station.SigningKeyPath
		}
	}
	if keygenOut == "" {
		return fmt.Errorf("--out is required (or set station.signing_key_path via --config)")
	}

	kp, err := dronecrypto.GenerateSigningKeyPair()
	if err != nil {
		return fmt.Errorf("generate signing keypair: %w", err)
	}
	if err := writeSigningKey(keygenOut, kp); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "wrote signing keypair to %s\n", keygenOut)
	return nil
}
