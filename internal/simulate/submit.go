package simulate

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/foosrank/pkg/logger"
)

const progressInterval = time.Second

// submitMatches posts matches with cfg.Workers concurrent workers.
func submitMatches(ctx context.Context, cfg *Config, c *client, matches []MatchRequest, stats *Stats) {
	log := logger.Get().Named("simulate")
	log.Info(ctx, "submitting matches", logger.Int("matches", len(matches)), logger.Int("workers", cfg.Workers))

	var submitted, accepted, duplicate, rejected, failed atomic.Int64

	matchCh := make(chan MatchRequest, cfg.Workers*2)
	var wg sync.WaitGroup
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for m := range matchCh {
				switch c.submit(ctx, m) {
				case submitAccepted:
					accepted.Add(1)
				case submitDuplicate:
					duplicate.Add(1)
				case submitRejected:
					rejected.Add(1)
				case submitFailed:
					failed.Add(1)
				}
				submitted.Add(1)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(progressInterval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				log.Info(ctx, "submission progress",
					logger.Int64("submitted", submitted.Load()),
					logger.Int("total", len(matches)),
					logger.Int64("failed", failed.Load()))
			}
		}
	}()

	go func() {
		defer close(matchCh)
		for _, m := range matches {
			select {
			case <-ctx.Done():
				return
			case matchCh <- m:
			}
		}
	}()

	wg.Wait()
	close(done)

	stats.MatchesSubmitted = int(submitted.Load())
	stats.MatchesAccepted = int(accepted.Load())
	stats.MatchesDuplicate = int(duplicate.Load())
	stats.MatchesRejected = int(rejected.Load())
	stats.MatchesFailed = int(failed.Load())

	log.Info(ctx, "match submission completed",
		logger.Int("accepted", stats.MatchesAccepted),
		logger.Int("duplicate", stats.MatchesDuplicate),
		logger.Int("rejected", stats.MatchesRejected),
		logger.Int("failed", stats.MatchesFailed))
}

// waitForProcessing polls /stats until the service has settled want more
// matches than it had before submission.
func waitForProcessing(ctx context.Context, cfg *Config, c *client, before serviceStats, want int64) error {
	ctx, cancel := context.WithTimeout(ctx, cfg.ProcessTimeout)
	defer cancel()

	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		st, err := c.stats(ctx)
		if err == nil && st.settled()-before.settled() >= want {
			return nil
		}
		select {
		case <-ctx.Done():
			return ErrProcessingTimeout
		case <-ticker.C:
		}
	}
}
