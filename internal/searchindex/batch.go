package searchindex

import (
	"errors"
	"fmt"

	"github.com/blevesearch/bleve/v2"
)

// ErrBatchAborted marks operations that were not applied because another
// operation of the same batch failed.
var ErrBatchAborted = errors.New("batch aborted")

// OpKind is the kind of a batch operation.
type OpKind int

const (
	OpIndex OpKind = iota
	OpDelete
)

func (k OpKind) String() string {
	if k == OpDelete {
		return "delete"
	}
	return "index"
}

// Operation is a single document write of a batch.
type Operation struct {
	Kind     OpKind
	ID       string
	Document map[string]any
}

// OperationResult reports the outcome of one operation of a batch.
type OperationResult struct {
	ID  string
	Err error
}

// BatchWriter applies all operations of one logical mutation together and
// reports a result per operation, in submission order.
type BatchWriter interface {
	Submit(ops []Operation) []OperationResult
}

// WriterFactory creates the batch writer of an opened index.
type WriterFactory func(index bleve.Index) BatchWriter

// IndexBatchWriter writes operations to a bleve index as a single batch.
// If any operation cannot be added to the batch, nothing is written.
type IndexBatchWriter struct {
	index bleve.Index
}

// NewIndexBatchWriter creates a batch writer for index.
func NewIndexBatchWriter(index bleve.Index) BatchWriter {
	return &IndexBatchWriter{index: index}
}

// Submit applies ops in one bleve batch.
func (w *IndexBatchWriter) Submit(ops []Operation) []OperationResult {
	results := make([]OperationResult, len(ops))
	for i, op := range ops {
		results[i].ID = op.ID
	}

	batch := w.index.NewBatch()
	for i, op := range ops {
		var err error
		switch op.Kind {
		case OpIndex:
			err = batch.Index(op.ID, op.Document)
		case OpDelete:
			batch.Delete(op.ID)
		default:
			err = fmt.Errorf("unknown operation kind %d", op.Kind)
		}
		if err != nil {
			return abort(results, i, err)
		}
	}

	if err := w.index.Batch(batch); err != nil {
		for i := range results {
			results[i].Err = err
		}
	}
	return results
}

// FirstFailure returns the first failure reason of a batch, preferring the
// operation that caused an abort over the operations it aborted.
func FirstFailure(results []OperationResult) error {
	var aborted error
	for _, r := range results {
		if r.Err == nil {
			continue
		}
		if errors.Is(r.Err, ErrBatchAborted) {
			if aborted == nil {
				aborted = fmt.Errorf("%s: %w", r.ID, r.Err)
			}
			continue
		}
		return fmt.Errorf("%s: %w", r.ID, r.Err)
	}
	return aborted
}

func abort(results []OperationResult, failed int, err error) []OperationResult {
	for i := range results {
		if i == failed {
			results[i].Err = err
		} else {
			results[i].Err = ErrBatchAborted
		}
	}
	return results
}
