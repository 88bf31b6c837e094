package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/event"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	"github.com/eth2030/example-l2/api"
	"github.com/eth2030/example-l2/crypto"
	"github.com/eth2030/example-l2/executor"
	"github.com/eth2030/example-l2/l1"
	"github.com/eth2030/example-l2/log"
	"github.com/eth2030/example-l2/rollup"
	"github.com/eth2030/example-l2/sequencer"
	"github.com/eth2030/example-l2/store"
)

// runNode connects to L1 and the sequencer, deploys the rollup contract if
// none is configured and runs the executor, REST API and snapshot store
// until ctx is cancelled or one of them fails.
func runNode(ctx context.Context, cfg *Config, logger *log.Logger) error {
	key, err := loadOperatorKey(cfg.L1)
	if err != nil {
		return err
	}
	httpClient, err := ethclient.DialContext(ctx, cfg.L1.HTTPProvider)
	if err != nil {
		return fmt.Errorf("dial L1 HTTP provider: %w", err)
	}
	defer httpClient.Close()
	wsClient, err := ethclient.DialContext(ctx, cfg.L1.WSProvider)
	if err != nil {
		return fmt.Errorf("dial L1 WebSocket provider: %w", err)
	}
	defer wsClient.Close()

	chainID, err := httpClient.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("read L1 chain ID: %w", err)
	}
	auth, err := l1.NewTransactor(key, chainID)
	if err != nil {
		return err
	}
	seq, err := sequencer.NewClient(cfg.SequencerURL, sequencer.DefaultClientConfig())
	if err != nil {
		return err
	}

	signers := crypto.NewSignerCache(0)
	genesis := rollup.NewGenesisLedger(cfg.Executor.Namespace)
	genesis.SetSignerCache(signers)
	genesis.SetLogger(logger.Module("ledger"))
	ledger := rollup.NewSharedLedger(genesis)

	lightClient := common.HexToAddress(cfg.L1.LightClientAddress)
	var contract *l1.RollupContract
	if cfg.L1.RollupAddress == "" {
		logger.Info("deploying rollup contract", "light_client", lightClient, "initial_state", ledger.Commit(),
			"operator", auth.From)
		contract, err = l1.DeployRollup(ctx, auth, httpClient, lightClient, ledger.Commit())
		if err != nil {
			return fmt.Errorf("deploy rollup contract: %w", err)
		}
		logger.Info("deployed rollup contract", "address", contract.Address())
	} else {
		contract = l1.NewRollupContract(common.HexToAddress(cfg.L1.RollupAddress), httpClient, auth)
	}

	hotshot := l1.NewHotShot(cfg.L1.hotShotAddress(), httpClient, wsClient)
	var ranges executor.RangeSource
	switch cfg.L1.RangeSource {
	case RangeSourceLightClient:
		lc := l1.NewLightClient(lightClient, wsClient)
		ranges = executor.RangeSourceFunc(func(sink chan<- l1.BlockRange) event.Subscription {
			return lc.WatchRanges(cfg.L1.FromBlock, cfg.Executor.StartBlock, sink)
		})
	default:
		ranges = executor.RangeSourceFunc(func(sink chan<- l1.BlockRange) event.Subscription {
			return hotshot.WatchRanges(cfg.L1.FromBlock, sink)
		})
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	exec := executor.New(cfg.Executor, ledger, seq, contract, hotshot, ranges)
	exec.SetMetrics(executor.NewMetrics(reg))
	exec.SetLogger(logger.Module("executor"))

	apiOpts := []api.Option{
		api.WithMetrics(reg, api.NewMetrics(reg)),
		api.WithSignerCache(signers),
		api.WithLogger(logger.Module("api")),
	}

	g, gctx := errgroup.WithContext(ctx)
	if cfg.Store.Enabled {
		archive, err := store.Open(cfg.Store.Config)
		if err != nil {
			return err
		}
		defer archive.Close()
		archive.SetLogger(logger.Module("store"))
		apiOpts = append(apiOpts, api.WithArchive(archive, store.ErrNotFound))
		g.Go(func() error { return archive.Run(gctx, exec) })
	}
	server := api.New(cfg.API, ledger, seq, apiOpts...)
	g.Go(func() error { return server.Run(gctx) })
	g.Go(func() error { return exec.Run(gctx) })

	logger.Info("rollup running", "namespace", cfg.Executor.Namespace, "rollup", contract.Address(),
		"api", cfg.API.Addr, "sequencer", cfg.SequencerURL)
	err = g.Wait()
	if ctx.Err() != nil && (err == nil || errors.Is(err, context.Canceled)) {
		return nil
	}
	return err
}
