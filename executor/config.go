package executor

import (
	"errors"
	"fmt"
	"time"

	"github.com/eth2030/example-l2/sequencer"
)

// ErrInvalidConfig is returned by Config.Validate.
var ErrInvalidConfig = errors.New("executor: invalid config")

// Config holds executor configuration.
type Config struct {
	// Namespace is the sequencer namespace whose transactions the rollup
	// executes.
	Namespace sequencer.NamespaceID `yaml:"namespace"`

	// StartBlock is the first sequenced block to execute. The header stream
	// is opened at this height.
	StartBlock uint64 `yaml:"start_block"`

	// RetryInterval is the fixed wait between proof submission attempts.
	RetryInterval time.Duration `yaml:"retry_interval"`

	// MaxSubmitAttempts bounds submission attempts per batch. Zero retries
	// until the batch is accepted or becomes stale.
	MaxSubmitAttempts int `yaml:"max_submit_attempts"`

	// SnapshotBuffer is the channel capacity given to each snapshot
	// subscriber by SubscribeSnapshots helpers.
	SnapshotBuffer int `yaml:"snapshot_buffer"`
}

// DefaultConfig returns the executor defaults: namespace 1, retries every
// second without limit.
func DefaultConfig() Config {
	return Config{
		Namespace:      1,
		RetryInterval:  time.Second,
		SnapshotBuffer: 16,
	}
}

// Validate checks the config for values the executor cannot run with.
func (c Config) Validate() error {
	if c.RetryInterval < 0 {
		return fmt.Errorf("%w: negative retry interval", ErrInvalidConfig)
	}
	if c.MaxSubmitAttempts < 0 {
		return fmt.Errorf("%w: negative max submit attempts", ErrInvalidConfig)
	}
	if c.SnapshotBuffer < 0 {
		return fmt.Errorf("%w: negative snapshot buffer", ErrInvalidConfig)
	}
	return nil
}
