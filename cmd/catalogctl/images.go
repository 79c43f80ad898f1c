package main

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"ebike_tours/internal/domain"
)

// imageResult is one probe. Skipped is set for empty and relative paths,
// which the site serves itself.
type imageResult struct {
	TourID  string
	URL     string
	Status  int
	Err     error
	Skipped bool
}

func (r imageResult) OK() bool {
	return r.Skipped || (r.Err == nil && r.Status >= 200 && r.Status < 400)
}

// checkImages probes every tour image with at most workers requests in
// flight. Unreachable images are reported in the results, not as an error;
// the error is only set when ctx is cancelled.
func checkImages(ctx context.Context, hc *http.Client, tours []domain.Tour, workers int) ([]imageResult, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([]imageResult, len(tours))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, t := range tours {
		raw := strings.TrimSpace(t.Image)
		u, err := url.Parse(raw)
		if raw == "" || err != nil || !u.IsAbs() {
			results[i] = imageResult{TourID: t.ID, URL: raw, Skipped: true}
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			results[i] = probe(ctx, hc, t.ID, raw)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// probe tries HEAD first and falls back to GET for hosts that refuse it.
func probe(ctx context.Context, hc *http.Client, id, u string) imageResult {
	res := imageResult{TourID: id, URL: u}
	for _, method := range []string{http.MethodHead, http.MethodGet} {
		req, err := http.NewRequestWithContext(ctx, method, u, nil)
		if err != nil {
			res.Err = err
			return res
		}
		resp, err := hc.Do(req)
		if err != nil {
			res.Err = err
			return res
		}
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 512))
		_ = resp.Body.Close()
		res.Status = resp.StatusCode
		if resp.StatusCode != http.StatusMethodNotAllowed {
			return res
		}
	}
	return res
}
