package batch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/oldleaf/shelfscan/internal/models"
	"github.com/oldleaf/shelfscan/internal/pipeline"
)

// scriptedProcessor fails for images whose payload matches failOn and
// records the order items were processed in.
type scriptedProcessor struct {
	failOn    string
	processed []string
}

func (p *scriptedProcessor) Process(ctx context.Context, image []byte, autoCrop bool, progress func(string)) (*pipeline.Result, error) {
	payload := string(image)
	p.processed = append(p.processed, payload)
	if payload == p.failOn {
		return nil, errors.New("boom")
	}
	return &pipeline.Result{
		Title:    "Title " + payload,
		Author:   "Author",
		Category: "History",
		Synopsis: "Synopsis",
		Image:    append([]byte("cropped-"), image...),
	}, nil
}

func TestRunIsolatesFailures(t *testing.T) {
	proc := &scriptedProcessor{failOn: "item-2"}
	o := New(proc)

	var failing models.BatchItem
	for i := 0; i < 5; i++ {
		item := o.Add(fmt.Sprintf("item-%d.jpg", i), []byte(fmt.Sprintf("item-%d", i)))
		if i == 2 {
			failing = item
		}
	}

	if err := o.Run(context.Background(), false); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	for _, item := range o.Items() {
		if item.Status == models.StatusProcessing {
			t.Errorf("item %s remains processing after the run", item.Filename)
		}
		switch {
		case item.ID == failing.ID:
			if item.Status != models.StatusFailed {
				t.Errorf("failing item status = %q, want failed", item.Status)
			}
			if item.ErrorNote == "" {
				t.Error("failing item should carry an error note")
			}
			if item.Record.Title != "" {
				t.Error("failed item's record must be left untouched")
			}
		default:
			if item.Status != models.StatusDone {
				t.Errorf("item %s status = %q, want done", item.Filename, item.Status)
			}
			if len(item.Processed) == 0 {
				t.Error("done item should carry a processed image")
			}
		}
	}

	if len(proc.processed) != 5 {
		t.Errorf("processed %d items, want all 5 despite the failure", len(proc.processed))
	}
	if o.Running() {
		t.Error("Running() must be false after the run completes")
	}
}

func TestRunPreservesPriceAndOrder(t *testing.T) {
	proc := &scriptedProcessor{}
	o := New(proc)

	o.Add("380.front.jpg", []byte("a"))
	o.Add("cover.jpg", []byte("b"))

	items := o.Items()
	if items[0].Record.Price != "380" {
		t.Errorf("price from filename = %q, want \"380\"", items[0].Record.Price)
	}

	if err := o.Run(context.Background(), false); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	items = o.Items()
	if items[0].Record.Price != "380" {
		t.Errorf("price after run = %q, pipeline output must not overwrite it", items[0].Record.Price)
	}
	if items[1].Record.Price != "" {
		t.Errorf("price with no filename digits = %q, want empty", items[1].Record.Price)
	}

	want := []string{"a", "b"}
	for i, payload := range want {
		if proc.processed[i] != payload {
			t.Errorf("processing order[%d] = %q, want %q", i, proc.processed[i], payload)
		}
	}
}

func TestRunSkipsNonPendingItems(t *testing.T) {
	proc := &scriptedProcessor{failOn: "bad"}
	o := New(proc)

	o.Add("bad.jpg", []byte("bad"))
	o.Add("ok.jpg", []byte("ok"))

	if err := o.Run(context.Background(), false); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if err := o.Run(context.Background(), false); err != nil {
		t.Fatalf("second run: %v", err)
	}

	// Failed and done items are excluded from the second run.
	if len(proc.processed) != 2 {
		t.Errorf("processed %d times, want 2: failed items stay failed until reset", len(proc.processed))
	}

	o.Reset(o.Items()[0].ID)
	if o.Items()[0].Status != models.StatusPending {
		t.Fatalf("reset item status = %q, want pending", o.Items()[0].Status)
	}
	if err := o.Run(context.Background(), false); err != nil {
		t.Fatalf("third run: %v", err)
	}
	if len(proc.processed) != 3 {
		t.Errorf("processed %d times after reset, want 3", len(proc.processed))
	}
}

// blockingProcessor parks inside Process until released.
type blockingProcessor struct {
	started chan struct{}
	release chan struct{}
}

func (p *blockingProcessor) Process(ctx context.Context, image []byte, autoCrop bool, progress func(string)) (*pipeline.Result, error) {
	p.started <- struct{}{}
	<-p.release
	return &pipeline.Result{Title: "t", Image: image}, nil
}

func TestRunRefusesReentrantStart(t *testing.T) {
	proc := &blockingProcessor{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	o := New(proc)
	o.Add("one.jpg", []byte("one"))

	done := make(chan error, 1)
	go func() {
		done <- o.Run(context.Background(), false)
	}()

	<-proc.started
	if !o.Running() {
		t.Error("Running() must report true while an item is in flight")
	}
	if err := o.Run(context.Background(), false); !errors.Is(err, ErrRunActive) {
		t.Errorf("re-entrant Run error = %v, want ErrRunActive", err)
	}

	close(proc.release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("first run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}

	if o.Running() {
		t.Error("Running() must be false once the run settles")
	}
	if got := o.Items()[0].Status; got != models.StatusDone {
		t.Errorf("item status = %q, want done", got)
	}
}

// Items hands out copies, so observers polling the batch while a run is in
// flight never share mutable state with it.
func TestItemsSnapshotDuringRun(t *testing.T) {
	proc := &blockingProcessor{
		started: make(chan struct{}),
		release: make(chan struct{}),
	}
	o := New(proc)
	added := o.Add("one.jpg", []byte("one"))

	done := make(chan error, 1)
	go func() {
		done <- o.Run(context.Background(), false)
	}()
	<-proc.started

	// Observed mid-run, exactly like the list endpoint does.
	snapshot := o.Items()
	if _, err := json.Marshal(snapshot); err != nil {
		t.Fatalf("snapshot does not marshal: %v", err)
	}
	if snapshot[0].Status != models.StatusProcessing {
		t.Errorf("mid-run status = %q, want processing", snapshot[0].Status)
	}

	// Writing through the snapshot must not reach the orchestrator.
	snapshot[0].Status = models.StatusFailed
	snapshot[0].Record.Title = "scribble"

	close(proc.release)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("run did not finish")
	}

	item, ok := o.Item(added.ID)
	if !ok {
		t.Fatal("item disappeared")
	}
	if item.Status != models.StatusDone {
		t.Errorf("item status = %q, want done despite snapshot writes", item.Status)
	}
	if item.Record.Title == "scribble" {
		t.Error("snapshot writes must not leak into the batch")
	}
	if snapshot[0].Status != models.StatusFailed {
		t.Error("the caller's snapshot must stay the caller's")
	}
}

func TestEditRemoveTakeCompleted(t *testing.T) {
	proc := &scriptedProcessor{failOn: "bad"}
	o := New(proc)

	a := o.Add("a.jpg", []byte("a"))
	b := o.Add("bad.jpg", []byte("bad"))
	c := o.Add("c.jpg", []byte("c"))

	// Hand edits are allowed at any status.
	o.EditField(a.ID, "price", "1500")
	if edited, ok := o.Item(a.ID); !ok || edited.Record.Price != "1500" {
		t.Errorf("edited price = %q, want \"1500\"", edited.Record.Price)
	}
	o.EditField("no-such-id", "price", "9") // no-op

	if err := o.Run(context.Background(), false); err != nil {
		t.Fatalf("Run returned error: %v", err)
	}

	completed := o.TakeCompleted()
	if len(completed) != 2 {
		t.Fatalf("TakeCompleted returned %d items, want 2", len(completed))
	}
	if completed[0].ID != a.ID || completed[1].ID != c.ID {
		t.Error("TakeCompleted must preserve batch order")
	}

	remaining := o.Items()
	if len(remaining) != 1 || remaining[0].ID != b.ID {
		t.Fatalf("remaining items = %d, want just the failed one", len(remaining))
	}

	o.Remove(b.ID)
	o.Remove("unknown") // no-op
	if len(o.Items()) != 0 {
		t.Error("Remove should delete the failed item")
	}
}
