package api

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"interview-tracker/internal/auth"
	"interview-tracker/internal/interview"
	"interview-tracker/internal/model"
	"interview-tracker/internal/storage"
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	store, err := storage.NewStore(filepath.Join(t.TempDir(), "interviews.db"))
	if err != nil {
		t.Fatalf("NewStore error: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	clock := func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
	svc := interview.NewService(store, interview.WithClock(clock))
	return NewHandler(svc, auth.NewResolver(auth.Config{}), nil)
}

func do(t *testing.T, h http.Handler, method, path, owner, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if owner != "" {
		req.Header.Set(auth.HeaderUserID, owner)
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

func TestHealth(t *testing.T) {
	t.Parallel()

	w := do(t, newTestHandler(t), http.MethodGet, "/health", "", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestRequiresOwner(t *testing.T) {
	t.Parallel()

	w := do(t, newTestHandler(t), http.MethodGet, "/api/interviews", "", "")
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestInterviewLifecycle(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)

	w := do(t, h, http.MethodPost, "/api/interviews", "u1", `{"company":"Acme","vacancyLink":"https://x","hrName":"Jo"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	created := decode[map[string]any](t, w)
	id, _ := created["id"].(string)
	if id == "" {
		t.Fatalf("expected generated id, got %v", created)
	}
	if _, ok := created["result"]; ok {
		t.Fatalf("result must be absent for a new record: %v", created)
	}
	if _, ok := created["stages"]; ok {
		t.Fatalf("stages must be absent for a new record: %v", created)
	}
	if w.Header().Get("Location") != "/api/interviews/"+id {
		t.Fatalf("unexpected Location %q", w.Header().Get("Location"))
	}

	w = do(t, h, http.MethodPatch, "/api/interviews/"+id, "u1",
		`{"salaryFrom":100,"salaryTo":200,"result":"Offer","stages":[{"name":"HR","date":"2024-02-01T10:00:00Z","description":""},{"name":"Tech","date":null,"description":"live coding"}]}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	updated := decode[model.Interview](t, w)
	if updated.Result != model.ResultOffer || len(updated.Stages) != 2 || updated.Stages[1].Date != nil {
		t.Fatalf("unexpected update result: %+v", updated)
	}

	w = do(t, h, http.MethodGet, "/api/interviews/"+id, "u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	got := decode[model.Interview](t, w)
	if got.SalaryTo == nil || *got.SalaryTo != 200 || got.Stages[0].Name != "HR" {
		t.Fatalf("unexpected record: %+v", got)
	}

	w = do(t, h, http.MethodGet, "/api/interviews/"+id, "u2", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("other owner must not see the record, got %d", w.Code)
	}

	w = do(t, h, http.MethodDelete, "/api/interviews/"+id, "u1", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
	w = do(t, h, http.MethodDelete, "/api/interviews/"+id, "u1", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 on second delete, got %d", w.Code)
	}
}

func TestValidationErrorsCarryField(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	w := do(t, h, http.MethodPost, "/api/interviews", "u1", `{"company":"Acme","vacancyLink":"https://x"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp := decode[ErrorResponse](t, w); resp.Field != "hrName" {
		t.Fatalf("expected hrName field, got %+v", resp)
	}

	w = do(t, h, http.MethodPost, "/api/interviews", "u1", `{"company":"Acme","vacancyLink":"https://x","hrName":"Jo","salaryFrom":10}`)
	id := decode[model.Interview](t, w).ID

	w = do(t, h, http.MethodPatch, "/api/interviews/"+id, "u1", `{"salaryTo":5}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
	if resp := decode[ErrorResponse](t, w); resp.Field != "salaryTo" {
		t.Fatalf("expected salaryTo field, got %+v", resp)
	}

	w = do(t, h, http.MethodPatch, "/api/interviews/"+id, "u1", `{"id":"other"}`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("patching id must be rejected, got %d", w.Code)
	}

	w = do(t, h, http.MethodPatch, "/api/interviews/missing", "u1", `{"company":"X"}`)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestListPaginationAndFilters(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	for _, body := range []string{
		`{"company":"Acme","vacancyLink":"https://x","hrName":"Jo"}`,
		`{"company":"Globex","vacancyLink":"https://x","hrName":"Jo","result":"Refusal"}`,
		`{"company":"Initech","vacancyLink":"https://x","hrName":"Jo"}`,
	} {
		if w := do(t, h, http.MethodPost, "/api/interviews", "u1", body); w.Code != http.StatusCreated {
			t.Fatalf("create failed: %d %s", w.Code, w.Body.String())
		}
	}

	w := do(t, h, http.MethodGet, "/api/interviews?limit=2", "u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	recs := decode[[]model.Interview](t, w)
	if len(recs) != 2 || recs[0].Company != "Acme" || recs[1].Company != "Globex" {
		t.Fatalf("unexpected first page: %+v", recs)
	}
	if w.Header().Get("X-Has-More") != "true" || w.Header().Get("X-Total") != "3" {
		t.Fatalf("unexpected paging headers: %v", w.Header())
	}

	w = do(t, h, http.MethodGet, "/api/interviews?limit=2&page=2", "u1", "")
	recs = decode[[]model.Interview](t, w)
	if len(recs) != 1 || recs[0].Company != "Initech" || w.Header().Get("X-Has-More") != "false" {
		t.Fatalf("unexpected second page: %+v", recs)
	}

	w = do(t, h, http.MethodGet, "/api/interviews?result=in_progress&order=desc", "u1", "")
	recs = decode[[]model.Interview](t, w)
	if len(recs) != 2 || recs[0].Company != "Initech" || recs[1].Company != "Acme" {
		t.Fatalf("unexpected filtered list: %+v", recs)
	}

	w = do(t, h, http.MethodGet, "/api/interviews?result=Hired", "u1", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown result filter, got %d", w.Code)
	}
}

func TestListRejectsOverflowingPage(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	if w := do(t, h, http.MethodPost, "/api/interviews", "u1", `{"company":"Acme","vacancyLink":"https://x","hrName":"Jo"}`); w.Code != http.StatusCreated {
		t.Fatalf("create failed: %d %s", w.Code, w.Body.String())
	}

	w := do(t, h, http.MethodGet, "/api/interviews?limit=100&page="+strconv.Itoa(math.MaxInt), "u1", "")
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for overflowing page, got %d: %s", w.Code, w.Body.String())
	}
	if resp := decode[ErrorResponse](t, w); resp.Field != "page" {
		t.Fatalf("expected page field, got %+v", resp)
	}

	w = do(t, h, http.MethodGet, "/api/interviews?limit=20&page="+strconv.Itoa(maxPage), "u1", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 for largest page, got %d", w.Code)
	}
	if recs := decode[[]model.Interview](t, w); len(recs) != 0 || w.Header().Get("X-Page") != strconv.Itoa(maxPage) {
		t.Fatalf("expected empty far page, got %d records, X-Page %q", len(recs), w.Header().Get("X-Page"))
	}
}

func TestCreateRejectsOversizedBody(t *testing.T) {
	t.Parallel()

	h := newTestHandler(t)
	body := `{"company":"Acme","vacancyLink":"https://x","hrName":"` + strings.Repeat("J", maxBodyBytes) + `"}`
	w := do(t, h, http.MethodPost, "/api/interviews", "u1", body)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("expected 413, got %d", w.Code)
	}

	w = do(t, h, http.MethodGet, "/api/interviews", "u1", "")
	if total := w.Header().Get("X-Total"); total != "0" {
		t.Fatalf("oversized body must not be stored, X-Total %q", total)
	}
}

func TestRemoteErrorMapsToBadGateway(t *testing.T) {
	t.Parallel()

	svc := &stubService{err: &interview.RemoteError{Op: "list", Err: errors.New("timeout")}}
	h := NewHandler(svc, auth.NewResolver(auth.Config{}), nil)

	w := do(t, h, http.MethodGet, "/api/interviews", "u1", "")
	if w.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "timeout") {
		t.Fatalf("remote cause must not leak to clients: %s", w.Body.String())
	}
	if svc.owner != "u1" {
		t.Fatalf("expected owner to be forwarded, got %q", svc.owner)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	t.Parallel()

	w := do(t, newTestHandler(t), http.MethodPut, "/api/interviews/abc", "u1", "{}")
	if w.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", w.Code)
	}
}

// --- stubs ---

type stubService struct {
	err   error
	owner string
}

func (s *stubService) Create(ctx context.Context, ownerID string, in interview.Input) (*model.Interview, error) {
	s.owner = ownerID
	return nil, s.err
}

func (s *stubService) Get(ctx context.Context, ownerID, id string) (*model.Interview, error) {
	s.owner = ownerID
	return nil, s.err
}

func (s *stubService) Update(ctx context.Context, ownerID, id string, p interview.Patch) (*model.Interview, error) {
	s.owner = ownerID
	return nil, s.err
}

func (s *stubService) List(ctx context.Context, ownerID string, f interview.Filter) ([]model.Interview, error) {
	s.owner = ownerID
	return nil, s.err
}

func (s *stubService) Count(ctx context.Context, ownerID string, f interview.Filter) (int64, error) {
	s.owner = ownerID
	return 0, s.err
}

func (s *stubService) Delete(ctx context.Context, ownerID, id string) error {
	s.owner = ownerID
	return s.err
}
