package remote

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"

	"github.com/Justype/modules/pkg/runner"
	"github.com/Justype/modules/pkg/telemetry"
)

// ErrNotFound reports that a lookup completed but found no such package.
var ErrNotFound = errors.New("package not found on remote channels")

// Versions is the result of a version search.
type Versions struct {
	// Channel is the channel of the first matching package.
	Channel string

	// List holds the distinct versions, newest first.
	List []string
}

// Description is the human-readable metadata of a remote package.
type Description struct {
	Text     string
	Homepage string
}

// Fetcher looks up remote package metadata.
type Fetcher interface {
	Versions(ctx context.Context, name string) (*Versions, error)
	Describe(ctx context.Context, name, channel string) (*Description, error)
}

// Options configures a Client.
type Options struct {
	// Micromamba is the package manager binary.
	Micromamba string

	// RootPrefix is passed as --root-prefix to the package manager.
	RootPrefix string

	Channels []string

	// PageBaseURL hosts the package overview pages.
	PageBaseURL string

	UserAgent string

	// Retries is the number of attempts per lookup.
	Retries int

	RetryDelay time.Duration

	// Timeout bounds each HTTP request.
	Timeout time.Duration
}

// Client implements Fetcher with the package manager CLI and HTTP.
type Client struct {
	opts   Options
	runner runner.Runner
	http   *http.Client
	logger zerolog.Logger
	tel    *telemetry.Telemetry
}

// NewClient creates a client. A nil tel disables metrics and tracing.
func NewClient(opts Options, r runner.Runner, tel *telemetry.Telemetry) *Client {
	if opts.Retries < 1 {
		opts.Retries = 1
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "modman"
	}
	if tel == nil {
		tel = telemetry.Nop()
	}
	return &Client{
		opts:   opts,
		runner: r,
		http:   &http.Client{Timeout: opts.Timeout},
		logger: tel.Logger.Component("remote"),
		tel:    tel,
	}
}

// retry runs op up to the configured number of attempts. Errors wrapped with
// backoff.Permanent stop the loop immediately.
func (c *Client) retry(ctx context.Context, what, name string, op func() error) error {
	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(c.opts.RetryDelay), uint64(c.opts.Retries-1)),
		ctx,
	)

	attempt := 0
	return backoff.RetryNotify(func() error {
		attempt++
		return op()
	}, policy, func(err error, wait time.Duration) {
		c.logger.Warn().
			Err(err).
			Str("package", name).
			Int("attempt", attempt).
			Dur("retry_in", wait).
			Msgf("Failed to %s, retrying", what)
	})
}

// record counts one lookup outcome.
func (c *Client) record(operation string, err error) {
	status := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		status = "not_found"
	case err != nil:
		status = "error"
	}
	c.tel.Metrics.RecordRemoteFetch(operation, status)
}
