package httpserver

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"ebike_tours/internal/adapters/ratelimit"
	"ebike_tours/internal/app"
	"ebike_tours/internal/catalog"
	"ebike_tours/internal/domain"
	"ebike_tours/internal/view"
)

type stubSource struct {
	calls int32
	mu    sync.Mutex
	tours []domain.Tour
	err   error
}

func (s *stubSource) FetchTours(ctx context.Context) ([]domain.Tour, error) {
	atomic.AddInt32(&s.calls, 1)
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tours, s.err
}

func (s *stubSource) set(ts []domain.Tour, err error) {
	s.mu.Lock()
	s.tours, s.err = ts, err
	s.mu.Unlock()
}

func sampleTours() []domain.Tour {
	return []domain.Tour{
		{ID: "1", Name: "Ella Sunrise", Category: "Mountain", Price: "120", Featured: true},
		{ID: "2", Name: "Kandy Lakes", Category: "City", Price: "$90"},
	}
}

func newTestServer(t *testing.T, src domain.CatalogSource, lim domain.RetryLimiter) *httptest.Server {
	t.Helper()
	return newServer(t, src, lim, false)
}

func newServer(t *testing.T, src domain.CatalogSource, lim domain.RetryLimiter, trustProxy bool) *httptest.Server {
	t.Helper()
	views, err := view.New()
	if err != nil {
		t.Fatalf("view.New: %v", err)
	}
	store := catalog.New(src)
	svc := app.NewCatalogService(store, lim, nil, 2*time.Second)

	srv := New(trustProxy)
	srv.MountHandlers(&Handlers{Svc: svc, View: views})
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return ts
}

func noRedirect(*http.Request, []*http.Request) error { return http.ErrUseLastResponse }

func get(t *testing.T, ts *httptest.Server, path string, hdr ...string) (*http.Response, string) {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, ts.URL+path, nil)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("GET %s: %v", path, err)
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	return res, string(b)
}

func post(t *testing.T, ts *httptest.Server, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	cl := &http.Client{CheckRedirect: noRedirect}
	res, err := cl.PostForm(ts.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer res.Body.Close()
	b, _ := io.ReadAll(res.Body)
	return res, string(b)
}

func TestAPITours_ViewAndETag(t *testing.T) {
	src := &stubSource{tours: sampleTours()}
	ts := newTestServer(t, src, nil)

	res, body := get(t, ts, "/api/tours")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, body)
	}
	var v app.CatalogView
	if err := json.Unmarshal([]byte(body), &v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(v.Tours) != 2 || len(v.PopularTours) != 1 || v.PopularTours[0].ID != "1" || v.Loading || v.Error != nil {
		t.Fatalf("unexpected view: %+v", v)
	}

	etag := res.Header.Get("ETag")
	if etag == "" {
		t.Fatal("missing ETag")
	}
	res, _ = get(t, ts, "/api/tours", "If-None-Match", etag)
	if res.StatusCode != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", res.StatusCode)
	}
	if n := atomic.LoadInt32(&src.calls); n != 1 {
		t.Fatalf("expected one upstream read, got %d", n)
	}
}

func TestAPITours_FailureIsAView(t *testing.T) {
	src := &stubSource{err: domain.StatusError(500)}
	ts := newTestServer(t, src, nil)

	res, body := get(t, ts, "/api/tours")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	var v app.CatalogView
	_ = json.Unmarshal([]byte(body), &v)
	if v.Error == nil || *v.Error != "HTTP error! status: 500" || len(v.Tours) != 0 {
		t.Fatalf("unexpected view: %+v", v)
	}

	_, body = get(t, ts, "/api/tours/status")
	if !strings.Contains(body, `"state":"failed"`) {
		t.Fatalf("unexpected status: %s", body)
	}
}

func TestAPITour_FoundAndMissing(t *testing.T) {
	ts := newTestServer(t, &stubSource{tours: sampleTours()}, nil)

	res, body := get(t, ts, "/api/tours/2")
	if res.StatusCode != http.StatusOK || !strings.Contains(body, `"Kandy Lakes"`) {
		t.Fatalf("status %d: %s", res.StatusCode, body)
	}
	res, body = get(t, ts, "/api/tours/404")
	if res.StatusCode != http.StatusNotFound || res.Header.Get("Content-Type") != "application/problem+json" {
		t.Fatalf("status %d ct %q: %s", res.StatusCode, res.Header.Get("Content-Type"), body)
	}
}

func TestAPIRetry_RecoversAfterFailure(t *testing.T) {
	src := &stubSource{err: domain.StatusError(503)}
	ts := newTestServer(t, src, ratelimit.NewMemory(5, time.Minute))

	get(t, ts, "/api/tours")
	src.set(sampleTours(), nil)

	res, body := post(t, ts, "/api/tours/retry", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d: %s", res.StatusCode, body)
	}
	var v app.CatalogView
	_ = json.Unmarshal([]byte(body), &v)
	if v.Error != nil || len(v.Tours) != 2 {
		t.Fatalf("unexpected view after retry: %+v", v)
	}
	if n := atomic.LoadInt32(&src.calls); n != 2 {
		t.Fatalf("expected exactly one more read, got %d total", n)
	}
}

func TestAPIRetry_RateLimited(t *testing.T) {
	src := &stubSource{err: domain.StatusError(503)}
	ts := newTestServer(t, src, ratelimit.NewMemory(1, time.Minute))

	if res, _ := post(t, ts, "/api/tours/retry", nil); res.StatusCode != http.StatusOK {
		t.Fatalf("first retry: %d", res.StatusCode)
	}
	res, body := post(t, ts, "/api/tours/retry", nil)
	if res.StatusCode != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d: %s", res.StatusCode, body)
	}
	if res.Header.Get("Retry-After") == "" {
		t.Fatal("missing Retry-After")
	}
}

func postFrom(t *testing.T, ts *httptest.Server, path, forwardedFor string) int {
	t.Helper()
	req, _ := http.NewRequest(http.MethodPost, ts.URL+path, nil)
	req.Header.Set("X-Forwarded-For", forwardedFor)
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	_ = res.Body.Close()
	return res.StatusCode
}

func TestAPIRetry_ForwardedHeadersShareOneBucket(t *testing.T) {
	src := &stubSource{err: domain.StatusError(503)}
	ts := newTestServer(t, src, ratelimit.NewMemory(1, time.Hour))

	for i := 0; i < 5; i++ {
		code := postFrom(t, ts, "/api/tours/retry", fmt.Sprintf("198.51.100.%d", i+1))
		want := http.StatusTooManyRequests
		if i == 0 {
			want = http.StatusOK
		}
		if code != want {
			t.Fatalf("retry %d: status %d, want %d", i, code, want)
		}
	}
	if n := atomic.LoadInt32(&src.calls); n != 1 {
		t.Fatalf("rotating X-Forwarded-For must not buy upstream reads, got %d", n)
	}
}

func TestAPIRetry_TrustedProxyKeysOnForwardedFor(t *testing.T) {
	src := &stubSource{err: domain.StatusError(503)}
	ts := newServer(t, src, ratelimit.NewMemory(1, time.Hour), true)

	if code := postFrom(t, ts, "/api/tours/retry", "198.51.100.1"); code != http.StatusOK {
		t.Fatalf("first client: %d", code)
	}
	if code := postFrom(t, ts, "/api/tours/retry", "198.51.100.2"); code != http.StatusOK {
		t.Fatalf("second client behind the proxy: %d", code)
	}
	if code := postFrom(t, ts, "/api/tours/retry", "198.51.100.1"); code != http.StatusTooManyRequests {
		t.Fatalf("first client again: %d", code)
	}
}

func TestFetches_DisabledWithoutLog(t *testing.T) {
	ts := newTestServer(t, &stubSource{}, nil)
	res, _ := get(t, ts, "/api/catalog/fetches")
	if res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.StatusCode)
	}
	res, _ = get(t, ts, "/api/catalog/fetches?limit=abc")
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
}

func TestPages(t *testing.T) {
	ts := newTestServer(t, &stubSource{tours: sampleTours()}, nil)

	cases := []struct {
		path   string
		status int
		want   []string
		not    []string
	}{
		{"/", 200, []string{"Ella Sunrise", "$120"}, []string{"Kandy Lakes"}},
		{"/tours", 200, []string{"Ella Sunrise", "Kandy Lakes", "category=City"}, nil},
		{"/tours?category=city", 200, []string{"Kandy Lakes"}, []string{"Ella Sunrise"}},
		{"/tours/1", 200, []string{"Ella Sunrise", "Most Popular"}, nil},
		{"/tours/nope", 404, []string{"couldn&#39;t find that escape"}, nil},
		{"/nowhere", 404, []string{"does not exist"}, nil},
		{"/static/site.css", 200, nil, nil},
	}
	for _, tc := range cases {
		t.Run(tc.path, func(t *testing.T) {
			res, body := get(t, ts, tc.path)
			if res.StatusCode != tc.status {
				t.Fatalf("status %d, want %d", res.StatusCode, tc.status)
			}
			for _, w := range tc.want {
				if !strings.Contains(body, w) {
					t.Errorf("missing %q", w)
				}
			}
			for _, n := range tc.not {
				if strings.Contains(body, n) {
					t.Errorf("unexpected %q", n)
				}
			}
		})
	}
}

func TestHome_ErrorStateOffersRetry(t *testing.T) {
	ts := newTestServer(t, &stubSource{err: &domain.TransportError{Err: io.ErrUnexpectedEOF}}, nil)
	res, body := get(t, ts, "/")
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	if !strings.Contains(body, "Failed to fetch tours") || !strings.Contains(body, `action="/tours/retry"`) {
		t.Fatalf("error state not rendered:\n%s", body)
	}
}

func TestRetryForm_Redirect(t *testing.T) {
	ts := newTestServer(t, &stubSource{tours: sampleTours()}, nil)

	res, _ := post(t, ts, "/tours/retry", url.Values{"next": {"/tours?category=City"}})
	if res.StatusCode != http.StatusSeeOther || res.Header.Get("Location") != "/tours?category=City" {
		t.Fatalf("status %d location %q", res.StatusCode, res.Header.Get("Location"))
	}
	res, _ = post(t, ts, "/tours/retry", url.Values{"next": {"//evil.example"}})
	if res.Header.Get("Location") != "/" {
		t.Fatalf("open redirect: %q", res.Header.Get("Location"))
	}
}

func TestSafeNext(t *testing.T) {
	for in, want := range map[string]string{
		"":                   "/",
		"/tours":             "/tours",
		"https://x.example/": "/",
		"//x.example":        "/",
		`/\x.example`:        "/",
	} {
		if got := safeNext(in); got != want {
			t.Errorf("safeNext(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestClientKey(t *testing.T) {
	var got string
	h := ClientKey(false)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) { got = clientKey(r) }))
	r := httptest.NewRequest(http.MethodPost, "/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	r.Header.Set("X-Forwarded-For", "203.0.113.7")
	h.ServeHTTP(httptest.NewRecorder(), r)
	if got != "10.0.0.9" {
		t.Fatalf("untrusted: got %q", got)
	}

	h = ClientKey(true)(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) { got = clientKey(r) }))
	h.ServeHTTP(httptest.NewRecorder(), r)
	if got != "203.0.113.7" {
		t.Fatalf("trusted: got %q", got)
	}
}

func TestRemoteIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.9:5555"
	if got := remoteIP(r); got != "10.0.0.9" {
		t.Fatalf("got %q", got)
	}
	r.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	if got := remoteIP(r); got != "203.0.113.7" {
		t.Fatalf("got %q", got)
	}
}
