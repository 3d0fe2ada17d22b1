package loadcheck

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/okian/marquee/pkg/logger"
)

// randIntn returns a uniform integer in [0, n) using crypto/rand.
func randIntn(n int) int {
	if n <= 1 {
		return 0
	}
	v, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// planComments assigns each of n comments to a movie index. The product of
// two uniform draws skews toward low indexes, so counts spread out while
// ties still occur.
func planComments(n, movies int) []int {
	plan := make([]int, n)
	for i := range plan {
		plan[i] = randIntn(movies) * randIntn(movies) / max(movies-1, 1)
	}
	return plan
}

// ensureMovies creates or reuses one movie per title.
func ensureMovies(ctx context.Context, client *HTTPClient, titles []string, stats *Stats) ([]Movie, error) {
	log := logger.Get()
	movies := make([]Movie, 0, len(titles))
	for _, title := range titles {
		m, created, err := client.EnsureMovie(ctx, title)
		if err != nil {
			log.Warn(ctx, "skipping title", logger.String("title", title), logger.Error(err))
			continue
		}
		if created {
			stats.MoviesCreated++
		} else {
			stats.MoviesReused++
		}
		movies = append(movies, m)
	}
	if len(movies) == 0 {
		return nil, ErrNoMovies
	}
	log.Info(ctx, "movies ready",
		logger.Int("created", stats.MoviesCreated),
		logger.Int("reused", stats.MoviesReused))
	return movies, nil
}

// submitComments posts the planned comments concurrently and returns the
// number of accepted comments per movie id.
func submitComments(ctx context.Context, config *Config, client *HTTPClient, movies []Movie, stats *Stats) map[int64]int {
	log := logger.Get()
	plan := planComments(config.Comments, len(movies))
	stats.CommentsPlanned = len(plan)
	log.Info(ctx, "submitting comments",
		logger.Int("comments", len(plan)),
		logger.Int("workers", config.Workers))

	accepted := make([]atomic.Int64, len(movies))
	var submitted, failed atomic.Int64

	var lastReport atomic.Int64
	reportInterval := time.Second

	work := make(chan int, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range work {
				if ctx.Err() != nil {
					return
				}
				m := movies[idx]
				err := client.PostComment(ctx, m.ID, "loadcheck "+uuid.NewString())

				submitted.Add(1)
				if err != nil {
					failed.Add(1)
					if config.Verbose {
						log.Warn(ctx, "comment failed", logger.Int64("movie_id", m.ID), logger.Error(err))
					}
				} else {
					accepted[idx].Add(1)
				}

				now := time.Now().UnixNano()
				last := lastReport.Load()
				if now-last >= int64(reportInterval) && lastReport.CompareAndSwap(last, now) {
					log.Info(ctx, "progress",
						logger.Int64("submitted", submitted.Load()),
						logger.Int("total", len(plan)),
						logger.Int64("failed", failed.Load()))
				}
			}
		}()
	}

	go func() {
		defer close(work)
		for _, idx := range plan {
			select {
			case <-ctx.Done():
				return
			case work <- idx:
			}
		}
	}()

	wg.Wait()

	stats.CommentsSubmitted = int(submitted.Load())
	stats.CommentsFailed = int(failed.Load())

	out := make(map[int64]int, len(movies))
	for i, m := range movies {
		n := int(accepted[i].Load())
		out[m.ID] += n
		stats.CommentsSuccessful += n
	}
	log.Info(ctx, "comment submission completed",
		logger.Int("successful", stats.CommentsSuccessful),
		logger.Int("failed", stats.CommentsFailed))
	return out
}

// seedWindow returns the inclusive window used for the windowed check,
// widened by skew on both sides.
func seedWindow(start, end time.Time, skew time.Duration) (time.Time, time.Time, error) {
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("window end %s before start %s", end, start)
	}
	from := start.UTC().Add(-skew).Truncate(time.Second)
	to := end.UTC().Add(skew).Truncate(time.Second).Add(time.Second)
	return from, to, nil
}
