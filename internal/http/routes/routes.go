package routes

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/fetchweather/internal/jobs"
	"github.com/briangreenhill/fetchweather/wttr"
)

const (
	headerSource    = "X-Weather-Source"
	headerErrorType = "X-Weather-Error-Type"
)

type Server struct {
	Router   *chi.Mux
	Weather  *wttr.Client
	Queue    jobs.Enqueuer // nil disables /v1/prefetch
	Prefetch []string      // locations warmed when the request names none
	Logger   zerolog.Logger
}

type ServerOptions struct {
	Weather           *wttr.Client
	Queue             jobs.Enqueuer
	Metrics           http.Handler
	PrefetchLocations []string
	Logger            zerolog.Logger
}

func New(opts ServerOptions) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(hlog.NewHandler(opts.Logger))
	r.Use(hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Str("request_id", chimw.GetReqID(r.Context())).
			Int("status", status).
			Int("size", size).
			Dur("duration", d).
			Msg("request")
	}))
	r.Use(chimw.Recoverer)

	s := &Server{
		Router:   r,
		Weather:  opts.Weather,
		Queue:    opts.Queue,
		Prefetch: opts.PrefetchLocations,
		Logger:   opts.Logger,
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("ok")); err != nil {
			hlog.FromRequest(r).Error().Err(err).Msg("write health check response")
		}
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/v1", func(v1 chi.Router) {
		v1.Get("/weather", s.handleWeather)
		v1.Get("/weather/{location}", s.handleWeather)
		v1.Get("/moon", s.handleMoon)
		v1.Delete("/cache", s.handleClearCache)
		v1.Put("/cache/ttl", s.handleSetTTL)
		v1.Put("/mock", s.handleSetMock)
		v1.Post("/prefetch", s.handlePrefetch)
	})

	return s
}

func (s *Server) handleWeather(w http.ResponseWriter, r *http.Request) {
	location, err := url.PathUnescape(chi.URLParam(r, "location"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid location")
		return
	}
	q := r.URL.Query()
	if location == "" {
		location = q.Get("location")
	}

	withMeta, err := parseBool(q.Get("metadata"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "metadata must be a boolean")
		return
	}

	req := wttr.NewRequest(location,
		wttr.WithFormat(wttr.Format(q.Get("format"))),
		wttr.WithViewOptions(q.Get("view")),
		wttr.WithUnits(wttr.Units(q.Get("units"))),
		wttr.WithLang(q.Get("lang")),
		wttr.WithMetadata(),
	)
	s.resolve(w, r, req, withMeta)
}

func (s *Server) handleMoon(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	withMeta, err := parseBool(q.Get("metadata"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "metadata must be a boolean")
		return
	}

	req := wttr.NewRequest("",
		wttr.WithMoon(q.Get("date")),
		wttr.WithFormat(wttr.Format(q.Get("format"))),
		wttr.WithLang(q.Get("lang")),
		wttr.WithMetadata(),
	)
	s.resolve(w, r, req, withMeta)
}

// resolve always asks the client for metadata so the provenance headers can
// be set; withMeta only controls whether it is part of the body.
func (s *Server) resolve(w http.ResponseWriter, r *http.Request, req wttr.Request, withMeta bool) {
	res, err := s.Weather.GetWeather(r.Context(), req)
	if err != nil {
		if isBadRequest(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		hlog.FromRequest(r).Error().Err(err).Msg("get weather")
		writeError(w, http.StatusInternalServerError, "could not get weather")
		return
	}

	if meta := res.Metadata; meta != nil {
		w.Header().Set(headerSource, string(meta.Source()))
		if meta.HasError() {
			w.Header().Set(headerErrorType, meta.ErrorType)
		}
	}

	format := res.Format()
	if withMeta && (format == wttr.FormatJSON || format == wttr.FormatRawJSON) {
		writeJSON(w, http.StatusOK, map[string]any{
			"data":     res.Payload,
			"metadata": res.Metadata,
		})
		return
	}

	body, err := wttr.MarshalPayload(res.Payload)
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("marshal payload")
		writeError(w, http.StatusInternalServerError, "could not encode weather")
		return
	}
	w.Header().Set("Content-Type", format.ContentType())
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("write weather response")
	}
}

func (s *Server) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := s.Weather.ClearCache(r.Context()); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("clear cache")
		writeError(w, http.StatusInternalServerError, "could not clear cache")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSetTTL(w http.ResponseWriter, r *http.Request) {
	seconds, err := strconv.Atoi(r.URL.Query().Get("seconds"))
	if err != nil || seconds < 0 {
		writeError(w, http.StatusBadRequest, "seconds must be a non-negative integer")
		return
	}

	prev := s.Weather.SetCacheDuration(time.Duration(seconds) * time.Second)
	hlog.FromRequest(r).Info().Int("seconds", seconds).Dur("previous", prev).Msg("cache ttl changed")
	writeJSON(w, http.StatusOK, map[string]any{
		"seconds":          seconds,
		"previous_seconds": int(prev / time.Second),
	})
}

func (s *Server) handleSetMock(w http.ResponseWriter, r *http.Request) {
	enabled, err := strconv.ParseBool(r.URL.Query().Get("enabled"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "enabled must be a boolean")
		return
	}

	s.Weather.SetMockMode(enabled)
	hlog.FromRequest(r).Info().Bool("enabled", enabled).Msg("mock mode changed")
	writeJSON(w, http.StatusOK, map[string]bool{"mock": enabled})
}

type prefetchRequest struct {
	Locations []string `json:"locations"`
	Format    string   `json:"format,omitempty"`
	Units     string   `json:"units,omitempty"`
	Lang      string   `json:"lang,omitempty"`
}

func (s *Server) handlePrefetch(w http.ResponseWriter, r *http.Request) {
	if s.Queue == nil {
		writeError(w, http.StatusServiceUnavailable, "background jobs are not configured")
		return
	}

	var body prefetchRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid JSON body")
			return
		}
	}
	locations := body.Locations
	if len(locations) == 0 {
		locations = s.Prefetch
	}
	if len(locations) == 0 {
		writeError(w, http.StatusBadRequest, "no locations to prefetch")
		return
	}

	payloads := make([]jobs.PrefetchPayload, 0, len(locations))
	for _, loc := range locations {
		payloads = append(payloads, jobs.PrefetchPayload{
			Location: strings.TrimSpace(loc),
			Format:   body.Format,
			Units:    body.Units,
			Lang:     body.Lang,
		})
	}

	queued, err := jobs.Enqueue(r.Context(), s.Queue, payloads)
	if err != nil {
		if isBadRequest(err) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		hlog.FromRequest(r).Error().Err(err).Msg("enqueue prefetch")
		writeError(w, http.StatusServiceUnavailable, "could not enqueue prefetch")
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]int{"queued": queued, "requested": len(payloads)})
}

func isBadRequest(err error) bool {
	return errors.Is(err, wttr.ErrInvalidFormat) ||
		errors.Is(err, wttr.ErrInvalidUnits) ||
		errors.Is(err, wttr.ErrInvalidMoonDate) ||
		errors.Is(err, wttr.ErrInvalidViewOptions)
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
