package retry

import (
	"context"
	"time"

	"github.com/avast/retry-go/v4"
)

// RetryConfig is the backoff policy for idempotent storage calls
type RetryConfig struct {
	Attempts uint          `env:"ATTEMPTS" envDefault:"3"`
	Delay    time.Duration `env:"DELAY" envDefault:"100ms"`
	MaxDelay time.Duration `env:"MAX_DELAY" envDefault:"2s"`
}

func (rc RetryConfig) options() []retry.Option {
	return []retry.Option{
		retry.Attempts(rc.Attempts),
		retry.Delay(rc.Delay),
		retry.MaxDelay(rc.MaxDelay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
	}
}

// Do runs fn with the configured policy, stopping early when ctx is done.
// extra options are applied last, e.g. retry.RetryIf.
func (rc RetryConfig) Do(ctx context.Context, fn func() error, extra ...retry.Option) error {
	opts := append(rc.options(), retry.Context(ctx))
	opts = append(opts, extra...)
	return retry.Do(fn, opts...)
}
