package engine

import (
	"context"
	"runtime"
	"sync"
	"wmsdash/internal/models"
)

// Source yields the current records of one dataset.
type Source interface {
	Name() string
	Title() string
	Snapshot(ctx context.Context) Snapshot
}

// Summarize builds the dashboard cards, loading every source concurrently.
// Cards keep the order of sources.
func Summarize(ctx context.Context, sources []Source) *models.DashboardData {
	// 1. Setup Workers
	numWorkers := min(runtime.NumCPU(), len(sources))
	if numWorkers == 0 {
		return &models.DashboardData{Cards: []models.DatasetCard{}}
	}

	type partial struct {
		idx  int
		card models.DatasetCard
	}

	jobs := make(chan int)
	results := make(chan partial, len(sources))
	var wg sync.WaitGroup

	// 2. Parallel Loop
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				src := sources[idx]
				snap := src.Snapshot(ctx)
				results <- partial{idx, models.DatasetCard{
					Name:  src.Name(),
					Title: src.Title(),
					Count: snap.Count(),
					Error: snap.ErrorText(),
				}}
			}
		}()
	}

	go func() {
		for i := range sources {
			jobs <- i
		}
		close(jobs)
	}()
	go func() { wg.Wait(); close(results) }()

	// 3. Merge Phase
	cards := make([]models.DatasetCard, len(sources))
	for p := range results {
		cards[p.idx] = p.card
	}
	return &models.DashboardData{Cards: cards}
}
