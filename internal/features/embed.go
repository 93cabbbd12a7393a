package features

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultBatchSize is the number of descriptions sent per Encode call.
const DefaultBatchSize = 32

// Encoder turns a batch of texts into one vector per text, in input order.
type Encoder interface {
	Encode(ctx context.Context, batch []string) ([][]float32, error)
}

// EncoderFunc adapts a function to Encoder.
type EncoderFunc func(ctx context.Context, batch []string) ([][]float32, error)

// Encode calls fn.
func (fn EncoderFunc) Encode(ctx context.Context, batch []string) ([][]float32, error) {
	return fn(ctx, batch)
}

// EmbedOptions controls batched embedding generation.
type EmbedOptions struct {
	// BatchSize is the number of texts per Encode call. Defaults to DefaultBatchSize.
	BatchSize int

	// Workers is the number of batches encoded concurrently. Defaults to 1.
	Workers int

	// Progress, if set, is called after each batch with the number of rows
	// processed so far. Calls are serialized and done is non-decreasing.
	Progress func(done, total int)

	// OnBatch, if set, receives the duration of every successful Encode call.
	OnBatch func(d time.Duration)
}

func (o EmbedOptions) withDefaults() EmbedOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Workers <= 0 {
		o.Workers = 1
	}
	return o
}

type batch struct {
	n          int
	start, end int
}

// GenerateEmbeddings encodes texts in contiguous batches and returns the
// vectors in input order. The first encoder failure aborts the run; no
// partial result is returned.
func GenerateEmbeddings(ctx context.Context, texts []string, enc Encoder, opts EmbedOptions) ([][]float32, error) {
	opts = opts.withDefaults()
	out := make([][]float32, len(texts))
	if len(texts) == 0 {
		return out, nil
	}

	var batches []batch
	for start := 0; start < len(texts); start += opts.BatchSize {
		end := min(start+opts.BatchSize, len(texts))
		batches = append(batches, batch{n: len(batches), start: start, end: end})
	}

	slog.Debug("generating embeddings", "rows", len(texts), "batches", len(batches), "batch_size", opts.BatchSize, "workers", opts.Workers)

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var (
		mu       sync.Mutex
		done     int
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		if firstErr == nil {
			firstErr = err
			cancel()
		}
		mu.Unlock()
	}

	work := make(chan batch)
	var wg sync.WaitGroup
	for i := 0; i < min(opts.Workers, len(batches)); i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for b := range work {
				if ctx.Err() != nil {
					continue
				}

				start := time.Now()
				vectors, err := enc.Encode(ctx, texts[b.start:b.end])
				if err != nil {
					fail(fmt.Errorf("%w: encode batch %d: %w", ErrExternalService, b.n, err))
					continue
				}
				if len(vectors) != b.end-b.start {
					fail(fmt.Errorf("%w: encode batch %d: got %d vectors for %d texts",
						ErrExternalService, b.n, len(vectors), b.end-b.start))
					continue
				}
				if opts.OnBatch != nil {
					opts.OnBatch(time.Since(start))
				}

				copy(out[b.start:b.end], vectors)

				mu.Lock()
				done += b.end - b.start
				if opts.Progress != nil && firstErr == nil {
					opts.Progress(done, len(texts))
				}
				mu.Unlock()
			}
		}()
	}

	for _, b := range batches {
		if ctx.Err() != nil {
			break
		}
		work <- b
	}
	close(work)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("generate embeddings: %w", err)
	}
	return out, nil
}
