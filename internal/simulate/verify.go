package simulate

import (
	"context"
	"fmt"
	"math"
	"slices"
	"sync"

	"github.com/okian/foosrank/internal/domain/types"
	"github.com/okian/foosrank/pkg/logger"
)

// verifyBoard checks ordering and dense ranking of a leaderboard page.
func verifyBoard(entries []types.Entry) error {
	for i, e := range entries {
		if i == 0 {
			if e.Rank != 1 {
				return fmt.Errorf("%w: first entry has rank %d", ErrInconsistent, e.Rank)
			}
			continue
		}
		prev := entries[i-1]
		switch {
		case e.Rating > prev.Rating:
			return fmt.Errorf("%w: entry %d (%s) rated above entry %d", ErrInconsistent, i, e.ParticipantID, i-1)
		case e.Rating == prev.Rating && e.ParticipantID < prev.ParticipantID:
			return fmt.Errorf("%w: tie at %v not ordered by ID", ErrInconsistent, e.Rating)
		case e.Rating == prev.Rating && e.Rank != prev.Rank:
			return fmt.Errorf("%w: tied entries have ranks %d and %d", ErrInconsistent, prev.Rank, e.Rank)
		case e.Rating < prev.Rating && e.Rank != prev.Rank+1:
			return fmt.Errorf("%w: rank jumps from %d to %d", ErrInconsistent, prev.Rank, e.Rank)
		}
	}
	return nil
}

// verifyRanks checks that single-participant lookups agree with the board.
func verifyRanks(board []types.Entry, ratings map[string]types.Entry) error {
	for _, e := range board {
		got, ok := ratings[e.ParticipantID]
		if !ok {
			continue
		}
		if got.Rank != e.Rank || got.Rating != e.Rating {
			return fmt.Errorf("%w: %s is #%d (%v) on the board but #%d (%v) by lookup",
				ErrInconsistent, e.ParticipantID, e.Rank, e.Rating, got.Rank, got.Rating)
		}
	}
	return nil
}

// fetchRatings looks up the solo rating of every player concurrently.
// Players without a solo rating are skipped.
func fetchRatings(ctx context.Context, cfg *Config, c *client, players []Player) map[string]types.Entry {
	var (
		mu  sync.Mutex
		out = make(map[string]types.Entry, len(players))
		wg  sync.WaitGroup
	)
	idCh := make(chan string)
	for range cfg.Workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range idCh {
				e, err := c.rating(ctx, "solo", id)
				if err != nil {
					continue
				}
				mu.Lock()
				out[id] = e
				mu.Unlock()
			}
		}()
	}
feed:
	for _, p := range players {
		select {
		case <-ctx.Done():
			break feed
		case idCh <- p.ID:
		}
	}
	close(idCh)
	wg.Wait()
	return out
}

// skillCorrelation is the Spearman correlation between hidden skill and
// rating over the players that have a rating.
func skillCorrelation(players []Player, ratings map[string]types.Entry) float64 {
	var skills, rs []float64
	for _, p := range players {
		if e, ok := ratings[p.ID]; ok {
			skills = append(skills, p.Skill)
			rs = append(rs, e.Rating)
		}
	}
	return spearman(skills, rs)
}

// spearman returns Spearman's rank correlation of x and y, using average
// ranks for ties. It returns NaN when either side has no variance.
func spearman(x, y []float64) float64 {
	if len(x) != len(y) || len(x) < 2 {
		return math.NaN()
	}
	return pearson(fractionalRanks(x), fractionalRanks(y))
}

func fractionalRanks(v []float64) []float64 {
	idx := make([]int, len(v))
	for i := range idx {
		idx[i] = i
	}
	slices.SortFunc(idx, func(a, b int) int {
		switch {
		case v[a] < v[b]:
			return -1
		case v[a] > v[b]:
			return 1
		default:
			return 0
		}
	})
	ranks := make([]float64, len(v))
	for i := 0; i < len(idx); {
		j := i
		for j+1 < len(idx) && v[idx[j+1]] == v[idx[i]] {
			j++
		}
		avg := float64(i+j)/2 + 1
		for k := i; k <= j; k++ {
			ranks[idx[k]] = avg
		}
		i = j + 1
	}
	return ranks
}

func pearson(x, y []float64) float64 {
	n := float64(len(x))
	var mx, my float64
	for i := range x {
		mx += x[i]
		my += y[i]
	}
	mx /= n
	my /= n
	var cov, vx, vy float64
	for i := range x {
		dx, dy := x[i]-mx, y[i]-my
		cov += dx * dy
		vx += dx * dx
		vy += dy * dy
	}
	if vx == 0 || vy == 0 {
		return math.NaN()
	}
	return cov / math.Sqrt(vx*vy)
}

func logTopPlayers(ctx context.Context, board []types.Entry, players []Player) {
	skill := make(map[string]float64, len(players))
	for _, p := range players {
		skill[p.ID] = p.Skill
	}
	log := logger.Get().Named("simulate")
	for _, e := range board[:min(10, len(board))] {
		log.Info(ctx, "leaderboard",
			logger.Int("rank", e.Rank),
			logger.String("participant_id", e.ParticipantID),
			logger.Float64("rating", e.Rating),
			logger.Float64("hidden_skill", math.Round(skill[e.ParticipantID])),
			logger.Int("games", e.GamesPlayed))
	}
}
