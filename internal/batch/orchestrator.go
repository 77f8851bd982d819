// Package batch drives the cataloging pipeline over an ordered set of
// pending items, strictly one at a time.
package batch

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/oldleaf/shelfscan/internal/models"
	"github.com/oldleaf/shelfscan/internal/pipeline"
	"github.com/oldleaf/shelfscan/internal/textutil"
)

// ErrRunActive is returned by Run while a previous run has not finished.
var ErrRunActive = errors.New("a batch run is already active")

// failedNote marks items whose pipeline invocation failed.
const failedNote = "processing failed"

// Processor is the per-item transformation. *pipeline.Pipeline satisfies it.
type Processor interface {
	Process(ctx context.Context, image []byte, autoCrop bool, progress func(string)) (*pipeline.Result, error)
}

// Orchestrator owns the batch item list and its lifecycle state machine
// (pending -> processing -> done|failed). One item's failure never stops
// the rest of the run. There is no mid-item cancellation: an item that
// entered processing always settles to done or failed.
type Orchestrator struct {
	mu        sync.Mutex
	items     []*models.BatchItem
	running   bool
	processor Processor
}

func New(processor Processor) *Orchestrator {
	return &Orchestrator{processor: processor}
}

// Add appends a new pending item and returns a copy of it. The price field
// is pre-filled from the filename; pipeline output never overwrites it.
func (o *Orchestrator) Add(filename string, data []byte) models.BatchItem {
	item := &models.BatchItem{
		ID:       uuid.NewString(),
		Filename: filename,
		Source:   data,
		Status:   models.StatusPending,
		Record:   models.BookRecord{Price: textutil.PriceFromFilename(filename)},
	}
	o.mu.Lock()
	o.items = append(o.items, item)
	o.mu.Unlock()
	return *item
}

// Items returns a value snapshot of the current batch in insertion order.
// Copies are taken under the lock so observers never share mutable state
// with a run in flight.
func (o *Orchestrator) Items() []models.BatchItem {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]models.BatchItem, len(o.items))
	for i, item := range o.items {
		out[i] = *item
	}
	return out
}

// Item returns a copy of the item with the given id.
func (o *Orchestrator) Item(id string) (models.BatchItem, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, item := range o.items {
		if item.ID == id {
			return *item, true
		}
	}
	return models.BatchItem{}, false
}

// Running reports whether a run is in flight. Callers use it to refuse
// re-entrant starts.
func (o *Orchestrator) Running() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.running
}

// Run processes every item that is pending at the moment of invocation,
// strictly sequentially. Items already done, failed, or processing are left
// alone. A second Run while one is active returns ErrRunActive.
func (o *Orchestrator) Run(ctx context.Context, autoCrop bool) error {
	o.mu.Lock()
	if o.running {
		o.mu.Unlock()
		return ErrRunActive
	}
	o.running = true
	pending := make([]*models.BatchItem, 0, len(o.items))
	for _, item := range o.items {
		if item.Status == models.StatusPending {
			pending = append(pending, item)
		}
	}
	o.mu.Unlock()

	defer func() {
		o.mu.Lock()
		o.running = false
		o.mu.Unlock()
	}()

	slog.Info("Batch run started", "pending", len(pending))

	for _, item := range pending {
		// Visible to observers before the slow work starts.
		o.setStatus(item, models.StatusProcessing)

		result, err := o.processor.Process(ctx, item.Source, autoCrop, nil)

		o.mu.Lock()
		if err != nil {
			item.Status = models.StatusFailed
			item.ErrorNote = failedNote
			o.mu.Unlock()
			slog.Error("Batch item failed", "id", item.ID, "filename", item.Filename, "err", err)
			continue
		}
		item.Record = models.BookRecord{
			Title:    result.Title,
			Author:   result.Author,
			Category: result.Category,
			Synopsis: result.Synopsis,
			// Operator/filename controlled, never AI controlled.
			Price: item.Record.Price,
		}
		item.Processed = result.Image
		item.Status = models.StatusDone
		item.ErrorNote = ""
		o.mu.Unlock()
		slog.Info("Batch item done", "id", item.ID, "title", result.Title)
	}

	slog.Info("Batch run finished")
	return nil
}

func (o *Orchestrator) setStatus(item *models.BatchItem, status models.Status) {
	o.mu.Lock()
	item.Status = status
	o.mu.Unlock()
}

// EditField hand-edits one record field of a batch item. Allowed at any
// status; unknown ids are a no-op.
func (o *Orchestrator) EditField(id, field, value string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, item := range o.items {
		if item.ID == id {
			item.Record.SetField(field, value)
			return
		}
	}
}

// Remove deletes the item with the given id. Unknown ids are a no-op.
func (o *Orchestrator) Remove(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i, item := range o.items {
		if item.ID == id {
			o.items = append(o.items[:i], o.items[i+1:]...)
			return
		}
	}
}

// Reset puts a failed item back to pending so the next run picks it up.
func (o *Orchestrator) Reset(id string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	for _, item := range o.items {
		if item.ID == id && item.Status == models.StatusFailed {
			item.Status = models.StatusPending
			item.ErrorNote = ""
			return
		}
	}
}

// TakeCompleted removes and returns copies of every done item, in batch
// order.
func (o *Orchestrator) TakeCompleted() []models.BatchItem {
	o.mu.Lock()
	defer o.mu.Unlock()
	var done []models.BatchItem
	rest := o.items[:0]
	for _, item := range o.items {
		if item.Status == models.StatusDone {
			done = append(done, *item)
		} else {
			rest = append(rest, item)
		}
	}
	o.items = rest
	return done
}
