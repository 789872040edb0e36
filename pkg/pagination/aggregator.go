package pagination

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Sternrassler/bitrix24-client/pkg/client"
	"github.com/Sternrassler/bitrix24-client/pkg/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var pagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "bitrix24_pagination_pages_total",
	Help: "Total pages fetched by the pagination aggregator by remote method",
}, []string{"method"})

// Config holds aggregator configuration.
type Config struct {
	// PageTimeout bounds each page call. Zero means no per-page timeout.
	PageTimeout time.Duration
}

// DefaultConfig returns the default aggregator configuration.
func DefaultConfig() Config {
	return Config{
		PageTimeout: 30 * time.Second,
	}
}

// PageFetcher performs a single remote call. *client.Client implements it.
type PageFetcher interface {
	Call(ctx context.Context, httpMethod, method string, body, query map[string]any) (*client.Response, error)
}

// PartialResultError reports a failed page together with the items
// collected from the pages before it.
type PartialResultError struct {
	Items  []any
	Pages  int
	Cursor int
	Err    error
}

// Error implements the error interface.
func (e *PartialResultError) Error() string {
	return fmt.Sprintf("page at start=%d failed after %d pages (%d items collected): %v",
		e.Cursor, e.Pages, len(e.Items), e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *PartialResultError) Unwrap() error {
	return e.Err
}

// Aggregator walks the "next" cursor of a list method.
type Aggregator struct {
	fetcher PageFetcher
	config  Config
	logger  zerolog.Logger
}

// NewAggregator creates a new aggregator.
func NewAggregator(fetcher PageFetcher, config Config) *Aggregator {
	if config.PageTimeout < 0 {
		config.PageTimeout = 0
	}
	return &Aggregator{
		fetcher: fetcher,
		config:  config,
		logger:  log.With().Str("component", logging.ComponentPagination).Logger(),
	}
}

// FetchAll returns the concatenated results of every page. body is not
// modified.
func (a *Aggregator) FetchAll(ctx context.Context, httpMethod, method string, body map[string]any) ([]any, error) {
	start := time.Now()
	items := []any{}
	cursor := 0
	pages := 0

	for {
		page := make(map[string]any, len(body)+1)
		for k, v := range body {
			page[k] = v
		}
		page["start"] = cursor

		resp, err := a.fetchPage(ctx, httpMethod, method, page)
		if err != nil {
			a.logger.Warn().
				Err(err).
				Str("method", method).
				Int("pages", pages).
				Int("items", len(items)).
				Msg("Page fetch failed - discarding partial results")
			return nil, &PartialResultError{
				Items:  items,
				Pages:  pages,
				Cursor: cursor,
				Err:    err,
			}
		}
		pages++
		pagesTotal.WithLabelValues(method).Inc()

		var batch []any
		if err := json.Unmarshal(resp.Result, &batch); err == nil {
			items = append(items, batch...)
		}

		if resp.Next == nil {
			break
		}
		cursor = *resp.Next

		if pages%20 == 0 {
			a.logger.Debug().
				Str("method", method).
				Int("pages", pages).
				Int("items", len(items)).
				Msg("Fetch progress")
		}
	}

	a.logger.Debug().
		Str("method", method).
		Int("pages", pages).
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Fetch complete")

	return items, nil
}

func (a *Aggregator) fetchPage(ctx context.Context, httpMethod, method string, body map[string]any) (*client.Response, error) {
	if a.config.PageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.PageTimeout)
		defer cancel()
	}
	return a.fetcher.Call(ctx, httpMethod, method, body, nil)
}
