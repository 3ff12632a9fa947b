package searchindex

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/blevesearch/bleve/v2"
	"github.com/stretchr/testify/require"
)

// ErrInjected is the default failure of a FailingBatchWriter.
var ErrInjected = errors.New("injected batch failure")

// FailingBatchWriter fails every batch that contains a configured document
// id and delegates all other batches. Exported for use in tests of packages
// built on the engine.
type FailingBatchWriter struct {
	mu      sync.Mutex
	next    BatchWriter
	failIDs map[string]error
	batches [][]Operation
}

// NewFailingBatchWriter creates a writer that delegates to next.
func NewFailingBatchWriter(next BatchWriter) *FailingBatchWriter {
	return &FailingBatchWriter{
		next:    next,
		failIDs: make(map[string]error),
	}
}

// FailOn makes batches containing id fail with err, or ErrInjected when
// err is nil.
func (w *FailingBatchWriter) FailOn(id string, err error) {
	if err == nil {
		err = ErrInjected
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failIDs[id] = err
}

// Reset removes every configured failure.
func (w *FailingBatchWriter) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.failIDs = make(map[string]error)
}

// Submit fails the whole batch if any operation matches a configured id.
func (w *FailingBatchWriter) Submit(ops []Operation) []OperationResult {
	w.mu.Lock()
	w.batches = append(w.batches, ops)
	failed, failErr := -1, error(nil)
	for i, op := range ops {
		if err, ok := w.failIDs[op.ID]; ok {
			failed, failErr = i, err
			break
		}
	}
	next := w.next
	w.mu.Unlock()

	if failed < 0 {
		if next == nil {
			return make([]OperationResult, len(ops))
		}
		return next.Submit(ops)
	}

	results := make([]OperationResult, len(ops))
	for i, op := range ops {
		results[i].ID = op.ID
	}
	return abort(results, failed, failErr)
}

// Batches returns every batch submitted so far.
func (w *FailingBatchWriter) Batches() [][]Operation {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([][]Operation(nil), w.batches...)
}

// WriterFactory returns a factory for Options.NewWriter that wraps the
// engine's index writer with w.
func (w *FailingBatchWriter) WriterFactory() WriterFactory {
	return func(index bleve.Index) BatchWriter {
		w.mu.Lock()
		defer w.mu.Unlock()
		w.next = NewIndexBatchWriter(index)
		return w
	}
}

// NewTestEngine opens an engine for site and closes it when the test ends.
// Without opts.Dir the index is kept in memory.
func NewTestEngine(t *testing.T, site string, opts Options) *Engine {
	t.Helper()
	if opts.Dir == "" {
		opts.InMemory = true
	}
	e := NewEngine(site, opts)
	require.NoError(t, e.Open(context.Background()), "open index for %s", site)
	t.Cleanup(func() {
		_ = e.Close()
	})
	return e
}
