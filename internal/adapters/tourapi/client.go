// internal/adapters/tourapi/client.go
package tourapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"ebike_tours/internal/adapters/observability"
	"ebike_tours/internal/domain"
)

// maxBody caps the catalog payload; the sheet export is a few hundred KB.
const maxBody = 8 << 20

type Client struct {
	url string
	hc  *http.Client
	rl  *rate.Limiter
}

var _ domain.CatalogSource = (*Client)(nil)

func New(endpoint string, timeout time.Duration, rps int) (*Client, error) {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("catalog URL %q is not absolute", endpoint)
	}
	if rps <= 0 {
		rps = 1
	}
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Client{
		url: endpoint,
		hc:  &http.Client{Timeout: timeout},
		rl:  rate.NewLimiter(rate.Limit(rps), rps),
	}, nil
}

// FetchTours issues exactly one GET against the catalog endpoint. It never
// retries: a failed attempt is reported to the caller, which decides whether
// a user asked to try again.
func (c *Client) FetchTours(ctx context.Context) ([]domain.Tour, error) {
	if err := c.rl.Wait(ctx); err != nil {
		return nil, &domain.TransportError{Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, &domain.TransportError{Err: err}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "ebike-tours/1.0")

	start := time.Now()
	resp, err := c.hc.Do(req)
	if err != nil {
		observability.ObserveExternal("catalog", "tours", 0, time.Since(start))
		log.Warn().Err(err).Str("err_type", observability.LabelErr(err)).Msg("catalog request failed")
		return nil, &domain.TransportError{Err: err}
	}
	defer resp.Body.Close()
	observability.ObserveExternal("catalog", "tours", resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// drain a little so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return nil, domain.StatusError(resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &domain.TransportError{Err: err}
	}
	tours, skipped, err := decodeCatalog(body)
	if err != nil {
		return nil, err
	}
	if skipped > 0 {
		log.Warn().Int("skipped", skipped).Int("kept", len(tours)).Msg("catalog contained non-object entries")
	}
	return tours, nil
}

// decodeCatalog turns the payload into tours. The top-level value must be an
// array; entries that are not objects are skipped and counted.
func decodeCatalog(body []byte) ([]domain.Tour, int, error) {
	kind := jsonKind(body)
	if kind == "invalid" {
		return nil, 0, &domain.ProtocolError{Reason: "Invalid JSON in catalog response"}
	}
	if kind != "array" {
		return nil, 0, domain.NotArrayError(kind)
	}

	var elems []json.RawMessage
	if err := json.Unmarshal(body, &elems); err != nil {
		var se *json.SyntaxError
		if errors.As(err, &se) {
			return nil, 0, &domain.ProtocolError{Reason: "Invalid JSON in catalog response"}
		}
		return nil, 0, &domain.ProtocolError{Reason: "Invalid catalog response: " + err.Error()}
	}

	tours := make([]domain.Tour, 0, len(elems))
	skipped := 0
	for _, e := range elems {
		if jsonKind(e) != "object" {
			skipped++
			continue
		}
		var w wireTour
		if err := json.Unmarshal(e, &w); err != nil {
			skipped++
			continue
		}
		tours = append(tours, w.toDomain())
	}
	return tours, skipped, nil
}
