package scanner

import (
	"context"
	"errors"
	"sync"
)

// MultiLister concatenates the output of several listers in order. It fails
// only when every lister fails.
type MultiLister []Lister

// List queries every lister concurrently.
func (m MultiLister) List(ctx context.Context) ([]Record, error) {
	results := make([][]Record, len(m))
	errs := make([]error, len(m))
	var wg sync.WaitGroup
	for i, l := range m {
		wg.Go(func() {
			results[i], errs[i] = l.List(ctx)
		})
	}
	wg.Wait()

	var (
		out    []Record
		failed []error
	)
	for i := range m {
		if errs[i] != nil {
			failed = append(failed, errs[i])
			continue
		}
		out = append(out, results[i]...)
	}
	if len(m) > 0 && len(failed) == len(m) {
		return nil, errors.Join(failed...)
	}
	return out, nil
}
