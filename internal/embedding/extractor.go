// Package embedding turns raw photo bytes into fixed-length feature
// vectors using a pretrained convolutional model.
package embedding

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math"
	"sync"
)

// Dim is the embedding dimension produced by the configured model.
// Every stored and queried vector must have exactly this length.
const Dim = 1024

// ExtractionError wraps failures of the extraction pipeline: image
// decode errors, model load errors, and invalid model output.
type ExtractionError struct {
	Stage string // "decode", "model" or "output"
	Err   error
}

func (e *ExtractionError) Error() string {
	return fmt.Sprintf("extraction failed (%s): %v", e.Stage, e.Err)
}

func (e *ExtractionError) Unwrap() error { return e.Err }

// IsExtractionError reports whether err is (or wraps) an ExtractionError.
func IsExtractionError(err error) bool {
	var ee *ExtractionError
	return errors.As(err, &ee)
}

// Extractor produces embeddings from image bytes. The underlying model
// is loaded lazily on first use; concurrent callers arriving before the
// load completes all wait on the same attempt. A failed attempt is
// reported to every waiter and retried on the next call.
type Extractor struct {
	model     Model
	inputSize int
	dim       int
	sem       chan struct{} // bounds concurrent inference calls

	mu      sync.Mutex
	ready   bool
	loading chan struct{} // non-nil while a load attempt is in flight
	loadErr error
}

// NewExtractor creates an extractor around the given model.
// maxConcurrent bounds simultaneous inference calls; values < 1 mean
// unbounded.
func NewExtractor(model Model, inputSize, dim, maxConcurrent int) *Extractor {
	if inputSize <= 0 {
		inputSize = 224
	}
	if dim <= 0 {
		dim = Dim
	}
	var sem chan struct{}
	if maxConcurrent > 0 {
		sem = make(chan struct{}, maxConcurrent)
	}
	return &Extractor{
		model:     model,
		inputSize: inputSize,
		dim:       dim,
		sem:       sem,
	}
}

// ensureLoaded triggers or joins the single in-flight model load.
// The first caller performs the load; everyone else blocks on the same
// completion channel and observes the same result.
func (e *Extractor) ensureLoaded(ctx context.Context) error {
	e.mu.Lock()
	if e.ready {
		e.mu.Unlock()
		return nil
	}
	if e.loading != nil {
		done := e.loading
		e.mu.Unlock()
		select {
		case <-done:
		case <-ctx.Done():
			return ctx.Err()
		}
		e.mu.Lock()
		defer e.mu.Unlock()
		if e.ready {
			return nil
		}
		return e.loadErr
	}

	done := make(chan struct{})
	e.loading = done
	e.mu.Unlock()

	err := e.model.Load(ctx)

	e.mu.Lock()
	e.loadErr = err
	e.ready = err == nil
	e.loading = nil
	e.mu.Unlock()
	close(done)

	return err
}

// Extract converts image bytes into an embedding. Identical bytes and
// an identical model version always yield an identical vector.
func (e *Extractor) Extract(ctx context.Context, imageData []byte) ([]float32, error) {
	if len(imageData) == 0 {
		return nil, &ExtractionError{Stage: "decode", Err: errors.New("empty image data")}
	}

	if e.sem != nil {
		select {
		case e.sem <- struct{}{}:
			defer func() { <-e.sem }()
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if err := e.ensureLoaded(ctx); err != nil {
		return nil, &ExtractionError{Stage: "model", Err: err}
	}

	pixels, err := Preprocess(imageData, e.inputSize)
	if err != nil {
		return nil, &ExtractionError{Stage: "decode", Err: err}
	}

	emb, err := e.model.Infer(ctx, pixels)
	if err != nil {
		return nil, &ExtractionError{Stage: "model", Err: err}
	}

	if len(emb) == 0 {
		return nil, &ExtractionError{Stage: "output", Err: errors.New("empty embedding returned")}
	}
	for _, v := range emb {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, &ExtractionError{Stage: "output", Err: errors.New("embedding contains non-finite values")}
		}
	}
	if len(emb) != e.dim {
		// Warn only: the catalog rejects wrong-sized vectors on insert,
		// so a mismatch here surfaces there rather than failing extraction.
		log.Printf("Warning: expected %d dimensions, got %d", e.dim, len(emb))
	}

	return emb, nil
}
