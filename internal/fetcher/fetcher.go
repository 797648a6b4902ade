// Package fetcher turns a source URL into a local mp3 file.
package fetcher

import (
	"context"
	"os"
	"time"

	"mixer/internal/pkg/errors"
	"mixer/internal/pkg/logger"
	"mixer/internal/retry"
)

// AudioExt is the extension every fetched track ends up with.
const AudioExt = ".mp3"

// Downloader performs one download attempt, writing the track to
// prefix+AudioExt.
type Downloader interface {
	Download(ctx context.Context, source, prefix string) error
}

// Fetcher retries a Downloader under a retry.Policy.
type Fetcher struct {
	dl     Downloader
	policy retry.Policy
	log    *logger.Logger
}

func New(dl Downloader, policy retry.Policy, log *logger.Logger) *Fetcher {
	if log == nil {
		log = logger.NewDefault()
	}
	return &Fetcher{
		dl:     dl,
		policy: policy,
		log:    log.WithComponent("fetcher"),
	}
}

// Fetch downloads source to prefix.mp3 and returns that path. An attempt
// that reports success without leaving the file counts as failed. Files left
// by failed attempts are not removed.
func (f *Fetcher) Fetch(ctx context.Context, source, prefix string) (string, error) {
	path := prefix + AudioExt
	log := f.log.FromContext(ctx).With("source", source)

	policy := f.policy
	policy.OnRetry = func(attempt int, err error, wait time.Duration) {
		log.Warn("fetch attempt failed",
			"attempt", attempt,
			"error", err.Error(),
			"backoff_ms", wait.Milliseconds(),
		)
	}

	start := time.Now()
	err := policy.Do(ctx, func(ctx context.Context, attempt int) error {
		log.Debug("fetch attempt", "attempt", attempt)
		if err := f.dl.Download(ctx, source, prefix); err != nil {
			return err
		}
		if _, err := os.Stat(path); err != nil {
			return errors.Newf(errors.CodeFetchFailed, "download reported success but %s is missing", path)
		}
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", errors.WrapWithCode(err, errors.CodeTimeout, "fetcher.fetch", "fetch cancelled").
				WithField("source", source)
		}

		attempts := policy.MaxAttempts
		var exhausted *retry.ExhaustedError
		if errors.As(err, &exhausted) {
			attempts = exhausted.Attempts
		}
		return "", errors.WrapWithCode(err, errors.CodeFetchFailed, "fetcher.fetch", "audio download failed").
			WithField("source", source).
			WithField("attempts", attempts)
	}

	log.Info("audio fetched", "path", path, "duration_ms", time.Since(start).Milliseconds())
	return path, nil
}
