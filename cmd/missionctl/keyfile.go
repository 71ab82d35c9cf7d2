package main

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	dronecrypto "github.com/dronelink-project/dronelink/crypto"
)

// keyFile is the on-disk JSON representation of an Ed25519 signing
// keypair, written by keygen and read back by run.
type keyFile struct {
	Private string `json:"private"`
	Public  string `json:"public"`
}

func writeSigningKey(path string, kp *dronecrypto.SigningKeyPair) error {
	kf := keyFile{
		Private: base64.StdEncoding.EncodeToString(kp.Private),
		Public:  base64.StdEncoding.EncodeToString(kp.Public),
	}
	b, err := json.MarshalIndent(kf, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal key file: %w", err)
	}
	if err := os.WriteFile(path, b, 0600); err != nil {
		return fmt.Errorf("write key file: %w", err)
	}
	return nil
}

func readSigningKey(path string) (*dronecrypto.SigningKeyPair, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}
	var kf keyFile
	if err := json.Unmarshal(b, &kf); err != nil {
		return nil, fmt.Errorf("parse key file: %w", err)
	}
	priv, err := base64.StdEncoding.DecodeString(kf.Private)
	if err != nil {
		return nil, fmt.Errorf("decode private key: %w", err)
	}
	pub, err := base64.StdEncoding.DecodeString(kf.Public)
	if err != nil {
		return nil, fmt.Errorf("decode public key: %w", err)
	}
	return &dronecrypto.SigningKeyPair{Private: ed25519.PrivateKey(priv), Public: ed25519.PublicKey(pub)}, nil
}

// readVerifyingKey reads only the public half of a key file, for a peer
// that trusts the key but must not hold its private half.
func readVerifyingKey(path string) (ed25519.PublicKey, error) {
	kp, err := readSigningKey(path)
	if err != nil {
		return nil, err
	}
	return kp.Public, nil
}
