package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v2"

	"github.com/eth2030/example-l2/api"
	"github.com/eth2030/example-l2/executor"
	"github.com/eth2030/example-l2/log"
	"github.com/eth2030/example-l2/store"
)

// Configuration errors.
var (
	ErrConfigFileNotFound = errors.New("config file not found")
	ErrInvalidConfig      = errors.New("invalid configuration")
)

// Block range sources.
const (
	RangeSourceHotShot     = "hotshot"
	RangeSourceLightClient = "light-client"
)

// devOperatorKey is the second account of the "test test ... junk" dev
// mnemonic, funded on local dev chains.
const devOperatorKey = "59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

// L1Config selects the settlement chain endpoints, contracts and operator
// account.
type L1Config struct {
	HTTPProvider string `yaml:"http_provider"`
	WSProvider   string `yaml:"ws_provider"`

	// LightClientAddress is passed to a newly deployed rollup contract.
	LightClientAddress string `yaml:"light_client_address"`
	// HotShotAddress records block commitments. Defaults to
	// LightClientAddress.
	HotShotAddress string `yaml:"hotshot_address"`
	// RollupAddress is the rollup contract. Empty deploys a new one.
	RollupAddress string `yaml:"rollup_address"`

	// The operator key is read from PrivateKey, or from Keystore unlocked
	// with the password in KeystorePasswordFile.
	PrivateKey           string `yaml:"private_key"`
	Keystore             string `yaml:"keystore"`
	KeystorePasswordFile string `yaml:"keystore_password_file"`

	// RangeSource is "hotshot" (NewBlocks events) or "light-client"
	// (NewState events).
	RangeSource string `yaml:"range_source"`
	// FromBlock is the first L1 block scanned for range events.
	FromBlock uint64 `yaml:"from_block"`
}

// StoreConfig enables the snapshot archive.
type StoreConfig struct {
	Enabled      bool `yaml:"enabled"`
	store.Config `yaml:",inline"`
}

// Config is the complete process configuration: defaults, then the YAML
// file, then flags and environment variables.
type Config struct {
	SequencerURL string          `yaml:"sequencer_url"`
	L1           L1Config        `yaml:"l1"`
	Executor     executor.Config `yaml:"executor"`
	API          api.Config      `yaml:"api"`
	Store        StoreConfig     `yaml:"store"`
	Log          log.Config      `yaml:"log"`
}

func defaultConfig() Config {
	return Config{
		SequencerURL: "http://0.0.0.0:24000/v0/",
		L1: L1Config{
			HTTPProvider:       "http://localhost:8545",
			WSProvider:         "ws://localhost:8546",
			LightClientAddress: "0x0c8e79f3534b00d9a3d4a856b665bf4ebc22f2ba",
			PrivateKey:         devOperatorKey,
			RangeSource:        RangeSourceHotShot,
		},
		Executor: executor.DefaultConfig(),
		API:      api.DefaultConfig(),
		Store:    StoreConfig{Config: store.DefaultConfig()},
		Log:      log.DefaultConfig(),
	}
}

// loadConfigFile overlays the YAML file at path onto cfg. Unknown keys are
// rejected.
func loadConfigFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s", ErrConfigFileNotFound, path)
		}
		return fmt.Errorf("read config: %w", err)
	}
	if err := yaml.UnmarshalStrict(data, cfg); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
	}
	return nil
}

func parseAddress(name, s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%w: %s %q is not an address", ErrInvalidConfig, name, s)
	}
	return common.HexToAddress(s), nil
}

// validate checks cross-field consistency before anything is dialed.
func (c *Config) validate() error {
	if c.SequencerURL == "" {
		return fmt.Errorf("%w: sequencer URL is required", ErrInvalidConfig)
	}
	if c.L1.HTTPProvider == "" || c.L1.WSProvider == "" {
		return fmt.Errorf("%w: both L1 HTTP and WebSocket providers are required", ErrInvalidConfig)
	}
	if _, err := parseAddress("light client address", c.L1.LightClientAddress); err != nil {
		return err
	}
	if c.L1.HotShotAddress != "" {
		if _, err := parseAddress("hotshot address", c.L1.HotShotAddress); err != nil {
			return err
		}
	}
	if c.L1.RollupAddress != "" {
		if _, err := parseAddress("rollup address", c.L1.RollupAddress); err != nil {
			return err
		}
	}
	if c.L1.PrivateKey == "" && c.L1.Keystore == "" {
		return fmt.Errorf("%w: an operator private key or keystore is required", ErrInvalidConfig)
	}
	switch c.L1.RangeSource {
	case RangeSourceHotShot, RangeSourceLightClient:
	default:
		return fmt.Errorf("%w: unknown range source %q", ErrInvalidConfig, c.L1.RangeSource)
	}
	if c.Store.Enabled && c.Store.Path == "" {
		return fmt.Errorf("%w: snapshot store enabled without a path", ErrInvalidConfig)
	}
	if _, err := log.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return c.Executor.Validate()
}

// hotShotAddress returns the commitment registry address.
func (c *L1Config) hotShotAddress() common.Address {
	if strings.TrimSpace(c.HotShotAddress) != "" {
		return common.HexToAddress(c.HotShotAddress)
	}
	return common.HexToAddress(c.LightClientAddress)
}
