// Package pagination provides parallel batch fetching over the
// backend's offset/limit list endpoints.
//
// The first page reports the total result count; the remaining pages
// are distributed across a worker pool and collected as they land.
// Cancellation is cooperative: workers observe the context between
// pages and stop, and partial results are returned with the error.
package pagination

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Config holds batch fetcher configuration.
type Config struct {
	// MaxConcurrency is the maximum number of parallel page fetches.
	MaxConcurrency int

	// PageSize is the limit sent per page request.
	PageSize int

	// Timeout per page fetch.
	Timeout time.Duration
}

// DefaultConfig returns safe defaults for the Pokédex backend.
func DefaultConfig() Config {
	return Config{
		MaxConcurrency: 5,
		PageSize:       100,
		Timeout:        15 * time.Second,
	}
}

// PageFetcher fetches a single page of a listable resource and reports
// the total result count.
type PageFetcher interface {
	FetchPage(ctx context.Context, resource string, limit, offset int) (data [][]byte, total int, err error)
}

// PageResult is one fetched page.
type PageResult struct {
	Offset int
	Data   [][]byte
	Error  error
}

// BatchFetcher fetches every page of a resource in parallel.
type BatchFetcher struct {
	fetcher PageFetcher
	config  Config
}

// NewBatchFetcher creates a batch fetcher.
func NewBatchFetcher(fetcher PageFetcher, config Config) *BatchFetcher {
	if config.MaxConcurrency <= 0 {
		config.MaxConcurrency = 5
	}
	if config.PageSize <= 0 {
		config.PageSize = 100
	}
	if config.Timeout <= 0 {
		config.Timeout = 15 * time.Second
	}

	return &BatchFetcher{
		fetcher: fetcher,
		config:  config,
	}
}

// FetchAll fetches all pages of resource. Returns the concatenated raw
// entries ordered by offset. On a worker error the successfully fetched
// entries are returned alongside the error.
func (bf *BatchFetcher) FetchAll(ctx context.Context, resource string) ([][]byte, error) {
	start := time.Now()

	firstPage, total, err := bf.fetcher.FetchPage(ctx, resource, bf.config.PageSize, 0)
	if err != nil {
		return nil, fmt.Errorf("fetch first page: %w", err)
	}

	if total <= bf.config.PageSize {
		log.Debug().
			Str("resource", resource).
			Int("total", total).
			Dur("duration", time.Since(start)).
			Msg("Fetch complete (single page)")
		return firstPage, nil
	}

	offsets := make(chan int, total/bf.config.PageSize+1)
	results := make(chan PageResult, total/bf.config.PageSize+1)
	errs := make(chan error, bf.config.MaxConcurrency)

	go func() {
		for offset := bf.config.PageSize; offset < total; offset += bf.config.PageSize {
			offsets <- offset
		}
		close(offsets)
	}()

	var wg sync.WaitGroup
	for i := 0; i < bf.config.MaxConcurrency; i++ {
		wg.Add(1)
		go bf.worker(ctx, resource, offsets, results, errs, &wg)
	}

	go func() {
		wg.Wait()
		close(results)
		close(errs)
	}()

	pages := map[int][][]byte{0: firstPage}
	for result := range results {
		pages[result.Offset] = result.Data
	}

	var all [][]byte
	for offset := 0; offset < total; offset += bf.config.PageSize {
		all = append(all, pages[offset]...)
	}

	select {
	case err := <-errs:
		if err != nil {
			log.Warn().
				Err(err).
				Str("resource", resource).
				Int("fetched", len(all)).
				Int("total", total).
				Msg("Worker error, returning partial results")
			return all, fmt.Errorf("fetch %s (partial data: %d/%d entries): %w", resource, len(all), total, err)
		}
	default:
	}

	log.Debug().
		Str("resource", resource).
		Int("entries", len(all)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return all, nil
}

// worker drains the offset queue until it is empty or the context ends.
func (bf *BatchFetcher) worker(ctx context.Context, resource string, offsets <-chan int, results chan<- PageResult, errs chan<- error, wg *sync.WaitGroup) {
	defer wg.Done()

	for offset := range offsets {
		select {
		case <-ctx.Done():
			return
		default:
		}

		pageCtx, cancel := context.WithTimeout(ctx, bf.config.Timeout)
		data, _, err := bf.fetcher.FetchPage(pageCtx, resource, bf.config.PageSize, offset)
		cancel()

		if err != nil {
			select {
			case errs <- err:
			default:
			}
			return
		}

		results <- PageResult{Offset: offset, Data: data}
	}
}
