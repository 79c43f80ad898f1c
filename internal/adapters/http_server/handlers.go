// internal/adapters/http_server/handlers.go
package httpserver

import (
	"bytes"
	"crypto/sha1"
	"encoding/hex"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"

	"ebike_tours/internal/app"
	"ebike_tours/internal/domain"
	"ebike_tours/internal/view"
)

type Handlers struct {
	Svc  *app.CatalogService
	View *view.Renderer
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	// pages
	s.mux.Get("/", h.home)
	s.mux.Get("/tours", h.tours)
	s.mux.Get("/tours/{id}", h.tour)
	s.mux.Post("/tours/retry", h.retryForm)
	s.mux.Handle("/static/*", http.StripPrefix("/static/", view.Static()))
	s.mux.NotFound(h.notFound)

	// JSON
	s.mux.Get("/api/tours", h.apiTours)
	s.mux.Get("/api/tours/status", h.apiStatus)
	s.mux.Get("/api/tours/{id}", h.apiTour)
	s.mux.Post("/api/tours/retry", h.apiRetry)
	s.mux.Get("/api/catalog/fetches", h.apiFetches)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeJSON sends v with a weak ETag and honours If-None-Match.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "could not encode response")
		return
	}
	if inm := r.Header.Get("If-None-Match"); status == http.StatusOK && inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(status)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write JSON body")
	}
}

func (h *Handlers) render(w http.ResponseWriter, r *http.Request, status int, page string, data any) {
	var buf bytes.Buffer
	if err := h.View.Render(&buf, page, data); err != nil {
		log.Error().Err(err).Str("page", page).Str("path", r.URL.Path).Msg("render failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := w.Write(buf.Bytes()); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write page")
	}
}

func catalogState(v app.CatalogView, retry string) view.CatalogState {
	st := view.CatalogState{Loading: v.Loading && len(v.Tours) == 0, Retry: retry}
	if v.Error != nil && len(v.Tours) == 0 {
		st.Error = *v.Error
	}
	return st
}

// ---- pages ----

func (h *Handlers) home(w http.ResponseWriter, r *http.Request) {
	v := h.Svc.View(r.Context())
	page := view.NewHomePage(view.NewCards(v.PopularTours), catalogState(v, "/"))
	h.render(w, r, http.StatusOK, "home", page)
}

func (h *Handlers) tours(w http.ResponseWriter, r *http.Request) {
	category := r.URL.Query().Get("category")
	all := h.Svc.View(r.Context())
	list := h.Svc.List(r.Context(), category)

	st := catalogState(list, r.URL.RequestURI())
	page := view.ToursPage{
		Page:         view.Page{Title: "All Escapes · " + view.Brand, Active: "tours"},
		CatalogState: st,
		Tours:        view.NewCards(list.Tours),
		Categories:   app.Categories(all.Tours),
		Category:     category,
	}
	if st.Loading {
		page.Refresh = 2
	}
	h.render(w, r, http.StatusOK, "tours", page)
}

func (h *Handlers) tour(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	t, v, err := h.Svc.Tour(r.Context(), id)
	if err != nil {
		st := catalogState(v, r.URL.RequestURI())
		if st.Loading || st.Error != "" {
			// the catalog is not available yet; show the list page state instead of a 404
			page := view.ToursPage{
				Page:         view.Page{Title: view.Brand, Active: "tours"},
				CatalogState: st,
			}
			if st.Loading {
				page.Refresh = 2
			}
			h.render(w, r, http.StatusServiceUnavailable, "tours", page)
			return
		}
		h.render(w, r, http.StatusNotFound, "notfound", view.NotFoundPage{
			Page:    view.Page{Title: "Not found · " + view.Brand},
			Message: "We couldn't find that escape. It may have been retired for the season.",
		})
		return
	}
	h.render(w, r, http.StatusOK, "tour", view.TourPage{
		Page: view.Page{Title: t.Name + " · " + view.Brand, Active: "tours"},
		Tour: view.NewCard(t),
	})
}

func (h *Handlers) notFound(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.URL.Path, "/api/") {
		writeProblem(w, http.StatusNotFound, "Not Found", "no such endpoint")
		return
	}
	h.render(w, r, http.StatusNotFound, "notfound", view.NotFoundPage{
		Page:    view.Page{Title: "Not found · " + view.Brand},
		Message: "That page does not exist.",
	})
}

// safeNext keeps the post-retry redirect on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

func (h *Handlers) retryForm(w http.ResponseWriter, r *http.Request) {
	if _, err := h.Svc.Retry(r.Context(), clientKey(r)); err != nil && !errors.Is(err, app.ErrRateLimited) {
		log.Error().Err(err).Msg("retry failed")
	}
	http.Redirect(w, r, safeNext(r.FormValue("next")), http.StatusSeeOther)
}

// ---- JSON ----

func (h *Handlers) apiTours(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.Svc.View(r.Context()))
}

func (h *Handlers) apiStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, h.Svc.Status())
}

func (h *Handlers) apiTour(w http.ResponseWriter, r *http.Request) {
	t, v, err := h.Svc.Tour(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrNotFound) {
		if v.Loading {
			w.Header().Set("Retry-After", "2")
			writeProblem(w, http.StatusServiceUnavailable, "Catalog Loading", "tours are still loading")
			return
		}
		if v.Error != nil && len(v.Tours) == 0 {
			writeProblem(w, http.StatusServiceUnavailable, "Catalog Unavailable", *v.Error)
			return
		}
		writeProblem(w, http.StatusNotFound, "Not Found", "tour not found")
		return
	}
	writeJSON(w, r, http.StatusOK, t)
}

func (h *Handlers) apiRetry(w http.ResponseWriter, r *http.Request) {
	v, err := h.Svc.Retry(r.Context(), clientKey(r))
	if errors.Is(err, app.ErrRateLimited) {
		w.Header().Set("Retry-After", "60")
		writeProblem(w, http.StatusTooManyRequests, "Too Many Requests", "retry limit reached, try again later")
		return
	}
	writeJSON(w, r, http.StatusOK, v)
}

func (h *Handlers) apiFetches(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > 500 {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 500")
			return
		}
		limit = l
	}
	out, err := h.Svc.Fetches(r.Context(), limit)
	if errors.Is(err, app.ErrFetchLogDisabled) {
		writeProblem(w, http.StatusNotFound, "Not Found", "fetch log is not configured")
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("list fetches failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "could not read fetch log")
		return
	}
	type row struct {
		ID         int64   `json:"id"`
		StartedAt  string  `json:"startedAt"`
		DurationMS int64   `json:"durationMs"`
		Trigger    string  `json:"trigger"`
		OK         bool    `json:"ok"`
		Tours      int     `json:"tours"`
		Featured   int     `json:"featured"`
		Duplicates int     `json:"duplicates"`
		Error      *string `json:"error"`
	}
	rows := make([]row, 0, len(out))
	for _, a := range out {
		rows = append(rows, row{
			ID:         a.ID,
			StartedAt:  a.StartedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
			DurationMS: a.Duration.Milliseconds(),
			Trigger:    a.Trigger,
			OK:         a.OK,
			Tours:      a.Tours,
			Featured:   a.Featured,
			Duplicates: a.Duplicates,
			Error:      a.Error,
		})
	}
	writeJSON(w, r, http.StatusOK, struct {
		Items []row `json:"items"`
	}{rows})
}
