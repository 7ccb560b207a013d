package distance

import (
	"context"
	"fmt"
	"sync"
)

// Target is one destination in a batch. A non-nil Location skips geocoding.
type Target struct {
	ID       string
	Address  string
	Location *Point
}

// Result is the outcome for one target. Err is set when that target alone failed.
type Result struct {
	ID    string  `json:"id"`
	Miles float64 `json:"distance"`
	Err   error   `json:"-"`
}

// Results preserves the order of the submitted targets.
type Results []Result

// Distances returns the successful results keyed by target id.
func (rs Results) Distances() map[string]float64 {
	out := make(map[string]float64, len(rs))
	for _, r := range rs {
		if r.Err == nil {
			out[r.ID] = r.Miles
		}
	}
	return out
}

// Failed counts results with an error.
func (rs Results) Failed() int {
	n := 0
	for _, r := range rs {
		if r.Err != nil {
			n++
		}
	}
	return n
}

// FailedIDs lists the ids of failed results in submission order.
func (rs Results) FailedIDs() []string {
	out := []string{}
	for _, r := range rs {
		if r.Err != nil {
			out = append(out, r.ID)
		}
	}
	return out
}

// Calculator runs distance batches with a bounded number of concurrent lookups.
type Calculator struct {
	geocoder Geocoder
	workers  int
}

func NewCalculator(g Geocoder, workers int) *Calculator {
	if workers < 1 {
		workers = 1
	}
	return &Calculator{geocoder: g, workers: workers}
}

// Batch geocodes origin once and then every target concurrently.
// An origin failure is returned as the error; target failures are reported per result.
func (c *Calculator) Batch(ctx context.Context, origin string, targets []Target) (Results, error) {
	from, err := c.geocoder.Geocode(ctx, origin)
	if err != nil {
		return nil, fmt.Errorf("failed to geocode origin: %w", err)
	}

	results := make(Results, len(targets))
	jobs := make(chan int)
	var wg sync.WaitGroup

	workers := min(c.workers, len(targets))
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results[i] = c.one(ctx, from, targets[i])
			}
		}()
	}

	for i := range targets {
		jobs <- i
	}
	close(jobs)
	wg.Wait()

	return results, nil
}

func (c *Calculator) one(ctx context.Context, from Point, t Target) Result {
	r := Result{ID: t.ID}
	if err := ctx.Err(); err != nil {
		r.Err = err
		return r
	}
	to := t.Location
	if to == nil {
		p, err := c.geocoder.Geocode(ctx, t.Address)
		if err != nil {
			r.Err = fmt.Errorf("geocode %q: %w", t.Address, err)
			return r
		}
		to = &p
	}
	r.Miles = Haversine(from, *to)
	return r
}
