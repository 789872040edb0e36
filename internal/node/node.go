// Package node runs a workflow batch: a list of resource operations
// executed one after another against the same portal.
package node

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/bitrix24-client/internal/resources"
	"github.com/Sternrassler/bitrix24-client/pkg/client"
	"github.com/Sternrassler/bitrix24-client/pkg/logging"
	"github.com/Sternrassler/bitrix24-client/pkg/params"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Item is one operation in a batch.
type Item struct {
	Resource  string        `json:"resource"`
	Operation string        `json:"operation"`
	Params    params.Params `json:"params"`
}

// Executor runs batches on a resources runtime.
type Executor struct {
	rt     *resources.Runtime
	logger zerolog.Logger
}

// NewExecutor creates an executor.
func NewExecutor(rt *resources.Runtime) *Executor {
	return &Executor{
		rt:     rt,
		logger: logging.NewLogger(logging.ComponentNode),
	}
}

// Execute runs items in order and returns one output per item. When an item
// fails and continueOnFail is set, its output is {"error": message} and the
// batch goes on; otherwise the batch stops and the error is returned.
func (e *Executor) Execute(ctx context.Context, items []Item, continueOnFail bool) ([]map[string]any, error) {
	requestID := uuid.NewString()
	logger := e.logger.With().Str("request_id", requestID).Logger()
	start := time.Now()

	outputs := make([]map[string]any, 0, len(items))
	for i, item := range items {
		itemLogger := logger.With().
			Int("item", i).
			Str("resource", item.Resource).
			Str("operation", item.Operation).
			Logger()

		out, err := resources.Execute(ctx, e.rt, item.Resource, item.Operation, item.Params)
		if err != nil {
			batchItems.WithLabelValues(resourceLabel(item), "error").Inc()
			if !continueOnFail {
				itemLogger.Error().Err(err).Msg("Item failed - aborting batch")
				return nil, fmt.Errorf("item %d (%s.%s): %w", i, item.Resource, item.Operation, err)
			}
			itemLogger.Warn().Err(err).Msg("Item failed - continuing")
			outputs = append(outputs, map[string]any{"error": errorMessage(err)})
			continue
		}

		batchItems.WithLabelValues(resourceLabel(item), "ok").Inc()
		outputs = append(outputs, out)
	}

	logger.Info().
		Int("items", len(items)).
		Dur("duration", time.Since(start)).
		Msg("Batch completed")
	return outputs, nil
}

// errorMessage is the text captured for a failed item: the remote error
// when there is one, without the pagination or batch context around it.
func errorMessage(err error) string {
	var apiErr *client.ApiError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return err.Error()
}

func resourceLabel(item Item) string {
	if _, err := resources.Lookup(item.Resource, item.Operation); err != nil {
		return "unknown"
	}
	return item.Resource
}
