package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"interview-tracker/internal/auth"
	"interview-tracker/internal/interview"
	"interview-tracker/internal/logging"
	"interview-tracker/internal/model"
)

// InterviewService 抽象面试记录服务。
type InterviewService interface {
	Create(ctx context.Context, ownerID string, in interview.Input) (*model.Interview, error)
	Get(ctx context.Context, ownerID, id string) (*model.Interview, error)
	Update(ctx context.Context, ownerID, id string, p interview.Patch) (*model.Interview, error)
	List(ctx context.Context, ownerID string, f interview.Filter) ([]model.Interview, error)
	Count(ctx context.Context, ownerID string, f interview.Filter) (int64, error)
	Delete(ctx context.Context, ownerID, id string) error
}

// OwnerResolver 从请求中解析用户。
type OwnerResolver interface {
	Owner(r *http.Request) (string, error)
}

// ErrorResponse 为错误响应体，校验失败时带上字段名。
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

const (
	defaultLimit = 20
	maxLimit     = 100
	// maxPage 保证 (page-1)*limit 不会溢出。
	maxPage      = math.MaxInt / maxLimit
	maxBodyBytes = 1 << 20
)

// NewHandler 构造 HTTP 多路复用器。
func NewHandler(svc InterviewService, owners OwnerResolver, logger *logging.Logger) http.Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	h := &handler{svc: svc, logger: logger}

	api := http.NewServeMux()
	api.HandleFunc("GET /api/interviews", h.list)
	api.HandleFunc("POST /api/interviews", h.create)
	api.HandleFunc("GET /api/interviews/{id}", h.get)
	api.HandleFunc("PATCH /api/interviews/{id}", h.update)
	api.HandleFunc("DELETE /api/interviews/{id}", h.delete)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	mux.Handle("/api/", requireOwner(owners, api))

	return logRequests(logger, mux)
}

type handler struct {
	svc    InterviewService
	logger *logging.Logger
}

func ownerFrom(r *http.Request) string {
	owner, _ := auth.OwnerFromContext(r.Context())
	return owner
}

func requireOwner(owners OwnerResolver, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner, err := owners.Owner(r)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithOwner(r.Context(), owner)))
	})
}

func (h *handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := defaultLimit
	if l := q.Get("limit"); l != "" {
		if v, err := strconv.Atoi(l); err == nil && v > 0 {
			if v > maxLimit {
				v = maxLimit
			}
			limit = v
		}
	}
	page := 1
	if p := q.Get("page"); p != "" {
		if v, err := strconv.Atoi(p); err == nil && v > 0 {
			page = v
		}
	}
	if page > maxPage {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "page is too large", Field: "page"})
		return
	}

	filter := interview.Filter{
		Company: q.Get("company"),
		Result:  q.Get("result"),
		Order:   interview.Order(q.Get("order")),
		Limit:   limit + 1,
		Offset:  (page - 1) * limit,
	}

	owner := ownerFrom(r)
	recs, err := h.svc.List(r.Context(), owner, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	total, err := h.svc.Count(r.Context(), owner, filter)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	hasMore := false
	if len(recs) > limit {
		hasMore = true
		recs = recs[:limit]
	}
	if recs == nil {
		recs = []model.Interview{}
	}

	w.Header().Set("X-Page", strconv.Itoa(page))
	w.Header().Set("X-Limit", strconv.Itoa(limit))
	w.Header().Set("X-Has-More", strconv.FormatBool(hasMore))
	w.Header().Set("X-Total", strconv.FormatInt(total, 10))
	writeJSON(w, http.StatusOK, recs)
}

func (h *handler) create(w http.ResponseWriter, r *http.Request) {
	var in interview.Input
	if !decodeBody(w, r, &in) {
		return
	}
	rec, err := h.svc.Create(r.Context(), ownerFrom(r), in)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	w.Header().Set("Location", "/api/interviews/"+rec.ID)
	writeJSON(w, http.StatusCreated, rec)
}

func (h *handler) get(w http.ResponseWriter, r *http.Request) {
	rec, err := h.svc.Get(r.Context(), ownerFrom(r), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) update(w http.ResponseWriter, r *http.Request) {
	var p interview.Patch
	if !decodeBody(w, r, &p) {
		return
	}
	rec, err := h.svc.Update(r.Context(), ownerFrom(r), r.PathValue("id"), p)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *handler) delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), ownerFrom(r), r.PathValue("id")); err != nil {
		h.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decodeBody 拒绝未知字段，避免客户端试图修改 id 或 createdAt。
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, ErrorResponse{Error: "request body too large"})
			return false
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid payload: " + err.Error()})
		return false
	}
	return true
}

func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var ve *interview.ValidationError
	var re *interview.RemoteError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: ve.Msg, Field: ve.Field})
	case errors.Is(err, interview.ErrNotFound):
		writeJSON(w, http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.As(err, &re):
		h.logger.Error("remote store failure", "op", re.Op, "path", r.URL.Path, "err", re.Err)
		writeJSON(w, http.StatusBadGateway, ErrorResponse{Error: "remote store unavailable"})
	default:
		h.logger.Error("request failed", "path", r.URL.Path, "err", err)
		writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func logRequests(logger *logging.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Debug("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
