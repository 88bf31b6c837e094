package main

import (
	"crypto/ecdsa"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/keystore"

	"github.com/eth2030/example-l2/crypto"
)

// loadOperatorKey returns the key that signs proof submissions.
func loadOperatorKey(cfg L1Config) (*ecdsa.PrivateKey, error) {
	if cfg.Keystore != "" {
		return loadKeystore(cfg.Keystore, cfg.KeystorePasswordFile)
	}
	key, err := crypto.HexToECDSA(strings.TrimSpace(cfg.PrivateKey))
	if err != nil {
		return nil, fmt.Errorf("operator private key: %w", err)
	}
	return key, nil
}

func loadKeystore(path, passwordFile string) (*ecdsa.PrivateKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read keystore: %w", err)
	}
	var password string
	if passwordFile != "" {
		pw, err := os.ReadFile(passwordFile)
		if err != nil {
			return nil, fmt.Errorf("read keystore password: %w", err)
		}
		password = strings.TrimRight(string(pw), "\r\n")
	}
	key, err := keystore.DecryptKey(data, password)
	if err != nil {
		return nil, fmt.Errorf("unlock keystore %s: %w", path, err)
	}
	return key.PrivateKey, nil
}
