package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"hash/fnv"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"

	"github.com/EngageMedia-video/featured-storage/internal/metrics"
	"github.com/EngageMedia-video/featured-storage/internal/schedule"
)

const defaultPageLimit = 50

type Server struct {
	service  *Service
	versions *VersionCache
}

func NewServer(service *Service, versions *VersionCache) *Server {
	return &Server{
		service:  service,
		versions: versions,
	}
}

func (s *Server) Register(r *mux.Router) {
	r.HandleFunc("/media", s.createMedia).Methods(http.MethodPost)
	r.HandleFunc("/media", s.listMedia).Methods(http.MethodGet)
	r.HandleFunc("/media/{id}", s.getMedia).Methods(http.MethodGet)
	r.HandleFunc("/media/{id}/featured", s.setFeatured).Methods(http.MethodPut)
	r.HandleFunc("/media/{id}/schedules", s.createSchedule).Methods(http.MethodPost)
	r.HandleFunc("/media/{id}/schedules", s.listSchedules).Methods(http.MethodGet)
	r.HandleFunc("/schedules/{id}", s.updateSchedule).Methods(http.MethodPut)
	r.HandleFunc("/featured", s.visibleFeatured).Methods(http.MethodGet)
}

type mediaResponse struct {
	ID           uuid.UUID  `json:"id"`
	Title        string     `json:"title"`
	AddDate      time.Time  `json:"add_date"`
	Featured     bool       `json:"featured"`
	FeaturedDate *time.Time `json:"featured_date"`
}

func toMediaResponse(m Media) mediaResponse {
	return mediaResponse{
		ID:           m.ID,
		Title:        m.Title,
		AddDate:      m.AddDate,
		Featured:     m.Featured,
		FeaturedDate: m.FeaturedDate,
	}
}

type scheduleResponse struct {
	ID        uuid.UUID `json:"id"`
	MediaID   uuid.UUID `json:"media_id"`
	StartDate time.Time `json:"start_date"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

func toScheduleResponse(sc schedule.FeatureSchedule) scheduleResponse {
	return scheduleResponse{
		ID:        sc.ID,
		MediaID:   sc.MediaID,
		StartDate: sc.StartDate,
		IsActive:  sc.IsActive,
		CreatedAt: sc.CreatedAt,
	}
}

func (s *Server) createMedia(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title   string    `json:"title"`
		AddDate time.Time `json:"add_date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	item, err := s.service.Add(r.Context(), req.Title, req.AddDate)
	if err != nil {
		writeServiceError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, toMediaResponse(*item))
}

func (s *Server) getMedia(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	item, err := s.service.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, toMediaResponse(*item))
}

func (s *Server) listMedia(w http.ResponseWriter, r *http.Request) {
	filters := []Filter{
		OrderByAddDateFilter{Desc: true},
		pageFilterFromQuery(r),
	}
	if v := r.URL.Query().Get("featured"); v != "" {
		filters = append(filters, FeaturedFilter{Featured: v == "true"})
	}

	list, err := s.service.GetByFilters(r.Context(), filters)
	if err != nil {
		writeServiceError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, toMediaResponses(list))
}

func (s *Server) setFeatured(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	var req struct {
		Featured bool `json:"featured"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	item, err := s.service.SetFeatured(r.Context(), id, req.Featured)
	if err != nil {
		writeServiceError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, toMediaResponse(*item))
}

func (s *Server) createSchedule(w http.ResponseWriter, r *http.Request) {
	mediaID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	var req struct {
		StartDate time.Time `json:"start_date"`
		IsActive  bool      `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	sched, err := s.service.ApplySchedule(r.Context(), schedule.UpdateParams{
		MediaID:   mediaID,
		StartDate: req.StartDate,
		IsActive:  req.IsActive,
	})
	if err != nil {
		writeServiceError(w, err)

		return
	}

	writeJSON(w, http.StatusCreated, toScheduleResponse(*sched))
}

func (s *Server) updateSchedule(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	var req struct {
		StartDate *time.Time `json:"start_date"`
		IsActive  *bool      `json:"is_active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	current, err := s.service.GetSchedule(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)

		return
	}

	params := schedule.UpdateParams{
		ID:        &id,
		MediaID:   current.MediaID,
		StartDate: current.StartDate,
		IsActive:  current.IsActive,
	}
	if req.StartDate != nil {
		params.StartDate = *req.StartDate
	}
	if req.IsActive != nil {
		params.IsActive = *req.IsActive
	}

	sched, err := s.service.ApplySchedule(r.Context(), params)
	if err != nil {
		writeServiceError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, toScheduleResponse(*sched))
}

func (s *Server) listSchedules(w http.ResponseWriter, r *http.Request) {
	mediaID, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)

		return
	}

	list, err := s.service.GetSchedules(r.Context(), mediaID)
	if err != nil {
		writeServiceError(w, err)

		return
	}

	resp := make([]scheduleResponse, 0, len(list))
	for _, sc := range list {
		resp = append(resp, toScheduleResponse(sc))
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) visibleFeatured(w http.ResponseWriter, r *http.Request) {
	var now time.Time
	if v := r.URL.Query().Get("now"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("parse now: %w", err))

			return
		}
		now = parsed
	}

	list, err := s.service.VisibleFeatured(r.Context(), now)
	if err != nil {
		writeServiceError(w, err)

		return
	}

	// The tag has to cover the listing itself, not just the invalidation
	// counter: a pending schedule becomes visible by time passing alone,
	// without any write bumping the version.
	etag := s.listingETag(list)
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)

		return
	}

	writeJSON(w, http.StatusOK, toMediaResponses(list))
}

func (s *Server) listingETag(list []Media) string {
	h := fnv.New64a()
	for _, m := range list {
		_, _ = h.Write([]byte(m.ID.String()))
		if m.FeaturedDate != nil {
			_, _ = fmt.Fprintf(h, "%d", m.FeaturedDate.UnixNano())
		}
	}

	return fmt.Sprintf(`W/"%s-v%d-%x"`, FeaturedListKey, s.versions.Version(FeaturedListKey), h.Sum64())
}

func toMediaResponses(list []Media) []mediaResponse {
	resp := make([]mediaResponse, 0, len(list))
	for _, m := range list {
		resp = append(resp, toMediaResponse(m))
	}

	return resp
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		return uuid.Nil, fmt.Errorf("parse %s: %w", name, err)
	}

	return id, nil
}

func pageFilterFromQuery(r *http.Request) PageFilter {
	f := PageFilter{Limit: defaultPageLimit}
	if v := r.URL.Query().Get("limit"); v != "" {
		if limit, err := parsePositive(v); err == nil {
			f.Limit = limit
		}
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		if offset, err := parsePositive(v); err == nil {
			f.Offset = offset
		}
	}

	return f
}

func parsePositive(v string) (int, error) {
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.New("negative value")
	}

	return n, nil
}

// lock_not_available, raised when the row lock cannot be acquired
// within lock_timeout.
const pgLockNotAvailable = "55P03"

func writeServiceError(w http.ResponseWriter, err error) {
	var pgErr *pgconn.PgError

	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, schedule.ErrInvalidStartDate), errors.Is(err, schedule.ErrMediaMismatch):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusConflict, err)
	case errors.As(err, &pgErr) && pgErr.Code == pgLockNotAvailable:
		writeError(w, http.StatusConflict, err)
	default:
		log.Error().Err(err).Msg("internal error")
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	writeJSON(w, code, map[string]string{"error": err.Error()})
}

func writeJSON(w http.ResponseWriter, code int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Warn().Err(err).Msg("write response")
	}
}

// MetricsMiddleware reports request durations per route template.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(sw, r)

		handler := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tpl, err := route.GetPathTemplate(); err == nil {
				handler = tpl
			}
		}

		metrics.CollectRequestsMetric(handler, r.Method, sw.status, start)
	})
}

type statusWriter struct {
	http.ResponseWriter

	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
