// Command example-l2 runs the example rollup: it executes the rollup's
// namespace of the sequenced block stream, settles batch proofs on L1 and
// serves the rollup REST API.
//
// Usage:
//
//	example-l2 [flags]
//	example-l2 identities
//	example-l2 sign --from Alice --to Bob --amount 100 --nonce 1
//
// Every flag of the main command can also be set through its environment
// variable or a YAML file given with --config.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ethereum/go-ethereum/common"
	gethlog "github.com/ethereum/go-ethereum/log"
	"github.com/urfave/cli/v2"

	"github.com/eth2030/example-l2/log"
	"github.com/eth2030/example-l2/rollup"
)

// Build-time version info, overridable with ldflags:
//
//	go build -ldflags "-X main.version=v0.2.0 -X main.commit=abc1234"
var (
	version = "v0.1.0-dev"
	commit  = "unknown"
)

// usageError marks configuration mistakes, reported with exit code 2. It
// must not implement cli.ExitCoder: App.Run calls os.Exit for those.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }
func (e *usageError) Unwrap() error { return e.err }

// startFunc runs the node with a resolved configuration.
type startFunc func(ctx context.Context, cfg *Config, logger *log.Logger) error

func main() {
	os.Exit(run(os.Args, os.Stdout, os.Stderr))
}

// run executes the CLI and returns the process exit code. args includes the
// program name.
func run(args []string, stdout, stderr io.Writer) int {
	app := newApp(runNode, stdout, stderr)
	if err := app.Run(args); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		var usage *usageError
		if errors.As(err, &usage) {
			return 2
		}
		return 1
	}
	return 0
}

func newApp(start startFunc, stdout, stderr io.Writer) *cli.App {
	return &cli.App{
		Name:      "example-l2",
		Usage:     "example rollup executing a sequencer namespace and settling proofs on L1",
		Version:   fmt.Sprintf("%s (commit %s)", version, commit),
		Writer:    stdout,
		ErrWriter: stderr,
		Flags:     runFlags,
		Action: func(c *cli.Context) error {
			cfg, err := buildConfig(c)
			if err != nil {
				return &usageError{err}
			}
			return startNode(c.Context, cfg, start)
		},
		Commands: []*cli.Command{
			identitiesCommand,
			signCommand,
		},
	}
}

// startNode configures logging and runs start until SIGINT or SIGTERM.
func startNode(parent context.Context, cfg *Config, start startFunc) error {
	logger, closer, err := log.Setup(cfg.Log)
	if err != nil {
		return &usageError{err}
	}
	defer closer.Close()
	log.SetDefault(logger)
	gethlog.SetDefault(gethlog.NewLogger(logger.Handler()))

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger.Info("example-l2 starting", "version", version, "commit", commit)
	if err := start(ctx, cfg, logger); err != nil {
		logger.Error("example-l2 stopped", "err", err)
		return err
	}
	logger.Info("shutdown complete")
	return nil
}

var identitiesCommand = &cli.Command{
	Name:  "identities",
	Usage: "list the genesis identities and their addresses",
	Action: func(c *cli.Context) error {
		for _, id := range rollup.SeedIdentities {
			fmt.Fprintf(c.App.Writer, "%-8s %s %d\n", id, id.Address().Hex(), rollup.InitialBalance)
		}
		return nil
	},
}

var signCommand = &cli.Command{
	Name:  "sign",
	Usage: "print a signed transfer from a genesis identity, ready for POST /rollup/submit",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "from", Usage: "sending identity (Bob, Alice, Charlie)", Required: true},
		&cli.StringFlag{Name: "to", Usage: "destination identity name or address", Required: true},
		&cli.Uint64Flag{Name: "amount", Usage: "amount to transfer", Required: true},
		&cli.Uint64Flag{Name: "nonce", Usage: "sender nonce, one more than its current nonce", Value: 1},
	},
	Action: func(c *cli.Context) error {
		from, ok := rollup.ParseSeedIdentity(c.String("from"))
		if !ok {
			return &usageError{fmt.Errorf("unknown identity %q", c.String("from"))}
		}
		to, err := parseDestination(c.String("to"))
		if err != nil {
			return &usageError{err}
		}
		stx, err := rollup.SignTransaction(rollup.Transaction{
			Amount:      rollup.Amount(c.Uint64("amount")),
			Destination: to,
			Nonce:       rollup.Nonce(c.Uint64("nonce")),
		}, from.Key())
		if err != nil {
			return err
		}
		enc := json.NewEncoder(c.App.Writer)
		return enc.Encode(stx)
	},
}

func parseDestination(s string) (common.Address, error) {
	if id, ok := rollup.ParseSeedIdentity(s); ok {
		return id.Address(), nil
	}
	if common.IsHexAddress(s) {
		return common.HexToAddress(s), nil
	}
	return common.Address{}, fmt.Errorf("destination %q is neither an identity nor an address", s)
}
