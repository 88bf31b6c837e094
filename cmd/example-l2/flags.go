package main

import (
	"fmt"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/eth2030/example-l2/sequencer"
)

const (
	catL1       = "L1"
	catExecutor = "EXECUTOR"
	catAPI      = "API"
	catStore    = "SNAPSHOT STORE"
	catLogging  = "LOGGING"
)

var (
	configFlag = &cli.StringFlag{
		Name:    "config",
		Usage:   "YAML config file; flags and environment variables override it",
		EnvVars: []string{"EXAMPLE_L2_CONFIG"},
	}
	apiPortFlag = &cli.UintFlag{
		Name:     "api-port",
		Aliases:  []string{"p"},
		Usage:    "port where the rollup API is served",
		Value:    8084,
		EnvVars:  []string{"ESPRESSO_DEMO_ROLLUP_PORT"},
		Category: catAPI,
	}
	submitRateFlag = &cli.Float64Flag{
		Name:     "api.submit-rate",
		Usage:    "transaction submissions per second allowed per client, 0 disables the limit",
		Value:    10,
		Category: catAPI,
	}
	sequencerURLFlag = &cli.StringFlag{
		Name:    "sequencer-url",
		Usage:   "URL of a sequencer query service",
		Value:   "http://0.0.0.0:24000/v0/",
		EnvVars: []string{"ESPRESSO_SEQUENCER_URL"},
	}
	l1HTTPFlag = &cli.StringFlag{
		Name:     "l1-http-provider",
		Usage:    "L1 JSON-RPC HTTP endpoint",
		Value:    "http://localhost:8545",
		EnvVars:  []string{"ESPRESSO_DEMO_L1_HTTP_PROVIDER"},
		Category: catL1,
	}
	l1WSFlag = &cli.StringFlag{
		Name:     "l1-ws-provider",
		Usage:    "L1 JSON-RPC WebSocket endpoint",
		Value:    "ws://localhost:8546",
		EnvVars:  []string{"ESPRESSO_DEMO_L1_WS_PROVIDER"},
		Category: catL1,
	}
	lightClientFlag = &cli.StringFlag{
		Name:     "light-client-address",
		Usage:    "address of the light client contract on L1",
		Value:    "0x0c8e79f3534b00d9a3d4a856b665bf4ebc22f2ba",
		EnvVars:  []string{"ESPRESSO_DEMO_LIGHT_CLIENT_ADDRESS"},
		Category: catL1,
	}
	hotshotFlag = &cli.StringFlag{
		Name:     "hotshot-address",
		Usage:    "address of the block commitment contract (default: the light client address)",
		EnvVars:  []string{"ESPRESSO_DEMO_HOTSHOT_ADDRESS"},
		Category: catL1,
	}
	rollupAddressFlag = &cli.StringFlag{
		Name:     "rollup-address",
		Usage:    "address of an existing rollup contract; a new one is deployed when empty",
		EnvVars:  []string{"ESPRESSO_DEMO_ROLLUP_ADDRESS"},
		Category: catL1,
	}
	privateKeyFlag = &cli.StringFlag{
		Name:     "rollup-private-key",
		Usage:    "hex private key of the funded L1 account that submits proofs",
		EnvVars:  []string{"ESPRESSO_DEMO_ROLLUP_PRIVATE_KEY"},
		Category: catL1,
	}
	keystoreFlag = &cli.StringFlag{
		Name:     "rollup-keystore",
		Usage:    "encrypted keystore file of the proof submitting account",
		EnvVars:  []string{"ESPRESSO_DEMO_ROLLUP_KEYSTORE"},
		Category: catL1,
	}
	keystorePasswordFlag = &cli.StringFlag{
		Name:     "rollup-keystore-password-file",
		Usage:    "file holding the keystore password",
		EnvVars:  []string{"ESPRESSO_DEMO_ROLLUP_KEYSTORE_PASSWORD_FILE"},
		Category: catL1,
	}
	rangeSourceFlag = &cli.StringFlag{
		Name:     "range-source",
		Usage:    fmt.Sprintf("L1 events announcing sequenced blocks: %s or %s", RangeSourceHotShot, RangeSourceLightClient),
		Value:    RangeSourceHotShot,
		Category: catL1,
	}
	l1FromBlockFlag = &cli.Uint64Flag{
		Name:     "l1-from-block",
		Usage:    "first L1 block scanned for range events",
		Category: catL1,
	}
	namespaceFlag = &cli.Uint64Flag{
		Name:     "namespace",
		Usage:    "sequencer namespace of the rollup",
		Value:    1,
		EnvVars:  []string{"ESPRESSO_DEMO_ROLLUP_NAMESPACE"},
		Category: catExecutor,
	}
	startBlockFlag = &cli.Uint64Flag{
		Name:     "start-block",
		Usage:    "first sequenced block to execute",
		Category: catExecutor,
	}
	retryIntervalFlag = &cli.DurationFlag{
		Name:     "retry-interval",
		Usage:    "wait between proof submission attempts",
		Value:    time.Second,
		Category: catExecutor,
	}
	maxAttemptsFlag = &cli.IntFlag{
		Name:     "max-submit-attempts",
		Usage:    "submission attempts per batch before giving up, 0 retries until accepted or stale",
		Category: catExecutor,
	}
	snapshotDBFlag = &cli.StringFlag{
		Name:     "snapshot-db",
		Usage:    "LevelDB directory archiving per-block ledger snapshots; disabled when empty",
		EnvVars:  []string{"ESPRESSO_DEMO_SNAPSHOT_DB"},
		Category: catStore,
	}
	snapshotRetainFlag = &cli.Uint64Flag{
		Name:     "snapshot-retain",
		Usage:    "number of newest snapshots kept, 0 keeps all",
		Category: catStore,
	}
	logLevelFlag = &cli.StringFlag{
		Name:     "log.level",
		Usage:    "log level: debug, info, warn, error",
		Value:    "info",
		EnvVars:  []string{"EXAMPLE_L2_LOG_LEVEL"},
		Category: catLogging,
	}
	logFormatFlag = &cli.StringFlag{
		Name:     "log.format",
		Usage:    "log encoding: json or text",
		Value:    "json",
		Category: catLogging,
	}
	logFileFlag = &cli.StringFlag{
		Name:     "log.file",
		Usage:    "write logs to a rotating file instead of stderr",
		Category: catLogging,
	}
)

var runFlags = []cli.Flag{
	configFlag,
	sequencerURLFlag,
	apiPortFlag,
	submitRateFlag,
	l1HTTPFlag,
	l1WSFlag,
	lightClientFlag,
	hotshotFlag,
	rollupAddressFlag,
	privateKeyFlag,
	keystoreFlag,
	keystorePasswordFlag,
	rangeSourceFlag,
	l1FromBlockFlag,
	namespaceFlag,
	startBlockFlag,
	retryIntervalFlag,
	maxAttemptsFlag,
	snapshotDBFlag,
	snapshotRetainFlag,
	logLevelFlag,
	logFormatFlag,
	logFileFlag,
}

// buildConfig resolves the configuration: defaults, then --config, then
// every flag set on the command line or through its environment variable.
func buildConfig(c *cli.Context) (*Config, error) {
	cfg := defaultConfig()
	if path := c.String(configFlag.Name); path != "" {
		if err := loadConfigFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	set := func(f cli.Flag, apply func()) {
		if c.IsSet(f.Names()[0]) {
			apply()
		}
	}
	set(sequencerURLFlag, func() { cfg.SequencerURL = c.String(sequencerURLFlag.Name) })
	set(apiPortFlag, func() { cfg.API.Addr = fmt.Sprintf(":%d", c.Uint(apiPortFlag.Name)) })
	set(submitRateFlag, func() { cfg.API.SubmitRatePerSec = c.Float64(submitRateFlag.Name) })
	set(l1HTTPFlag, func() { cfg.L1.HTTPProvider = c.String(l1HTTPFlag.Name) })
	set(l1WSFlag, func() { cfg.L1.WSProvider = c.String(l1WSFlag.Name) })
	set(lightClientFlag, func() { cfg.L1.LightClientAddress = c.String(lightClientFlag.Name) })
	set(hotshotFlag, func() { cfg.L1.HotShotAddress = c.String(hotshotFlag.Name) })
	set(rollupAddressFlag, func() { cfg.L1.RollupAddress = c.String(rollupAddressFlag.Name) })
	set(privateKeyFlag, func() { cfg.L1.PrivateKey = c.String(privateKeyFlag.Name) })
	set(keystoreFlag, func() {
		cfg.L1.Keystore = c.String(keystoreFlag.Name)
		cfg.L1.PrivateKey = ""
	})
	set(keystorePasswordFlag, func() { cfg.L1.KeystorePasswordFile = c.String(keystorePasswordFlag.Name) })
	set(rangeSourceFlag, func() { cfg.L1.RangeSource = c.String(rangeSourceFlag.Name) })
	set(l1FromBlockFlag, func() { cfg.L1.FromBlock = c.Uint64(l1FromBlockFlag.Name) })
	set(namespaceFlag, func() { cfg.Executor.Namespace = sequencer.NamespaceID(c.Uint64(namespaceFlag.Name)) })
	set(startBlockFlag, func() { cfg.Executor.StartBlock = c.Uint64(startBlockFlag.Name) })
	set(retryIntervalFlag, func() { cfg.Executor.RetryInterval = c.Duration(retryIntervalFlag.Name) })
	set(maxAttemptsFlag, func() { cfg.Executor.MaxSubmitAttempts = c.Int(maxAttemptsFlag.Name) })
	set(snapshotDBFlag, func() {
		cfg.Store.Path = c.String(snapshotDBFlag.Name)
		cfg.Store.Enabled = cfg.Store.Path != ""
	})
	set(snapshotRetainFlag, func() { cfg.Store.Retain = c.Uint64(snapshotRetainFlag.Name) })
	set(logLevelFlag, func() { cfg.Log.Level = c.String(logLevelFlag.Name) })
	set(logFormatFlag, func() { cfg.Log.Format = c.String(logFormatFlag.Name) })
	set(logFileFlag, func() { cfg.Log.File = c.String(logFileFlag.Name) })

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
