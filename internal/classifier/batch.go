package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"
)

const DefaultBatchSize = 50

// Result is a task-specific result decoded from one response object.
type Result interface {
	ResultIndex() int
	Validate() error
}

type RunOptions struct {
	BatchSize int
	// Timeout bounds each batch call; zero means no extra bound.
	Timeout time.Duration
}

// Outcome merges the batches of one Run. Failed lists the indexes of items
// whose batch failed; Errs holds one error per failed batch.
type Outcome[T Result] struct {
	Results map[int]T
	Failed  []int
	Errs    []*ServiceError
}

func (o *Outcome[T]) OK() bool {
	return len(o.Errs) == 0
}

// Run sends items in batches and validates every returned object. A batch
// with any invalid, duplicated or foreign index fails as a whole.
func Run[T Result](ctx context.Context, c Classifier, task Task, items []Item, options map[string]any, opts RunOptions) *Outcome[T] {
	if c == nil {
		c = None{}
	}

	size := opts.BatchSize
	if size <= 0 {
		size = DefaultBatchSize
	}

	out := &Outcome[T]{Results: make(map[int]T, len(items))}

	for start := 0; start < len(items); start += size {
		batch := items[start:min(start+size, len(items))]

		results, err := runBatch[T](ctx, c, Request{Task: task, Items: batch, Options: options}, opts.Timeout)
		if err != nil {
			out.Errs = append(out.Errs, err)
			for _, it := range batch {
				out.Failed = append(out.Failed, it.Index)
			}

			continue
		}

		for idx, r := range results {
			out.Results[idx] = r
		}
	}

	return out
}

func runBatch[T Result](ctx context.Context, c Classifier, req Request, timeout time.Duration) (map[int]T, *ServiceError) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	resp, err := c.Classify(ctx, req)
	if err != nil {
		return nil, AsServiceError(err)
	}

	if resp == nil {
		return nil, &ServiceError{Kind: KindMalformed, Err: fmt.Errorf("empty response")}
	}

	want := make(map[int]bool, len(req.Items))
	for _, it := range req.Items {
		want[it.Index] = true
	}

	results := make(map[int]T, len(resp.Results))

	for i, raw := range resp.Results {
		var r T

		dec := json.NewDecoder(bytes.NewReader(raw))
		dec.DisallowUnknownFields()

		if err := dec.Decode(&r); err != nil {
			return nil, &ServiceError{Kind: KindMalformed, Err: fmt.Errorf("result %d: %w", i, err)}
		}

		if err := r.Validate(); err != nil {
			return nil, &ServiceError{Kind: KindMalformed, Err: fmt.Errorf("result %d: %w", i, err)}
		}

		idx := r.ResultIndex()
		if !want[idx] {
			return nil, &ServiceError{Kind: KindMalformed, Err: fmt.Errorf("result %d: unknown index %d", i, idx)}
		}

		if _, dup := results[idx]; dup {
			return nil, &ServiceError{Kind: KindMalformed, Err: fmt.Errorf("result %d: duplicate index %d", i, idx)}
		}

		results[idx] = r
	}

	return results, nil
}
