package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/dshills/querystorm/internal/assist"
	"github.com/dshills/querystorm/internal/console"
	"github.com/dshills/querystorm/internal/engine/patch"
	"github.com/dshills/querystorm/internal/store"
)

type testServer struct {
	srv   *Server
	store *store.Memory
}

func newTestServer(t *testing.T, producers ...assist.Producer) *testServer {
	t.Helper()

	seq := 0
	mem := store.NewMemory()
	reg := console.NewRegistry(
		console.WithDebounce(time.Hour),
		console.WithPersister(mem),
		console.WithVersionIDs(func() string {
			seq++
			return fmt.Sprintf("v%d", seq)
		}),
	)
	t.Cleanup(reg.CloseAll)

	cfg := Config{Registry: reg, Loader: mem}
	if len(producers) > 0 {
		cfg.Producers = assist.NewSet(producers...)
	}
	return &testServer{srv: New(cfg), store: mem}
}

func (ts *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	ts.srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", rec.Body.String(), err)
	}
	return v
}

// statusBody mirrors the fields of statusResponse the tests look at.
type statusBody struct {
	ConsoleID string `json:"console_id"`
	Content   string `json:"content"`
	CanUndo   bool   `json:"can_undo"`
	CanRedo   bool   `json:"can_redo"`
	Dirty     bool   `json:"dirty"`
	Preview   string `json:"preview"`
	Pending   bool   `json:"pending_edits"`
	Versions  int    `json:"versions"`
	Diff      *struct {
		Modified string `json:"modified"`
		Unified  string `json:"unified"`
	} `json:"diff"`
}

func expectCode(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("status = %d, want %d (body %s)", rec.Code, want, rec.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/healthz", "")
	expectCode(t, rec, http.StatusOK)
	if rec.Body.String() != "ok" {
		t.Errorf("body = %q, want ok", rec.Body.String())
	}
}

func TestOpenAndStatus(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(t, http.MethodPost, "/api/consoles/c1", `{"content":"select 1"}`)
	expectCode(t, rec, http.StatusCreated)
	st := decode[statusBody](t, rec)
	if st.ConsoleID != "c1" || st.Content != "select 1" || st.Versions != 1 {
		t.Errorf("open = %+v", st)
	}
	if st.Preview != "idle" {
		t.Errorf("Preview = %q, want idle", st.Preview)
	}

	rec = ts.do(t, http.MethodPost, "/api/consoles/c1", `{"content":"ignored"}`)
	expectCode(t, rec, http.StatusOK)
	if got := decode[statusBody](t, rec).Content; got != "select 1" {
		t.Errorf("reopen content = %q, want select 1", got)
	}

	rec = ts.do(t, http.MethodGet, "/api/consoles", "")
	expectCode(t, rec, http.StatusOK)
	if ids := decode[map[string][]string](t, rec)["consoles"]; len(ids) != 1 || ids[0] != "c1" {
		t.Errorf("list = %v", ids)
	}

	rec = ts.do(t, http.MethodGet, "/api/consoles/c1", "")
	expectCode(t, rec, http.StatusOK)
}

func TestUnknownConsole(t *testing.T) {
	ts := newTestServer(t)
	rec := ts.do(t, http.MethodGet, "/api/consoles/nope", "")
	expectCode(t, rec, http.StatusNotFound)
	if decode[errorResponse](t, rec).Error == "" {
		t.Error("error body should carry a message")
	}
}

func TestEditUndoRedo(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/consoles/c1", `{"content":"select 1"}`)

	rec := ts.do(t, http.MethodPut, "/api/consoles/c1/content", `{"text":"select 2"}`)
	expectCode(t, rec, http.StatusOK)
	st := decode[statusBody](t, rec)
	if !st.Pending || st.Content != "select 2" || !st.Dirty {
		t.Errorf("after edit = %+v", st)
	}

	rec = ts.do(t, http.MethodPost, "/api/consoles/c1/flush", "")
	expectCode(t, rec, http.StatusOK)
	if st := decode[statusBody](t, rec); st.Versions != 2 || st.Pending {
		t.Errorf("after flush = %+v", st)
	}

	rec = ts.do(t, http.MethodPost, "/api/consoles/c1/undo", "")
	expectCode(t, rec, http.StatusOK)
	if st := decode[statusBody](t, rec); st.Content != "select 1" || !st.CanRedo {
		t.Errorf("after undo = %+v", st)
	}

	rec = ts.do(t, http.MethodPost, "/api/consoles/c1/undo", "")
	expectCode(t, rec, http.StatusConflict)
	body := decode[errorResponse](t, rec)
	if body.Changed == nil || *body.Changed {
		t.Errorf("undo at bound body = %+v, want changed=false", body)
	}

	rec = ts.do(t, http.MethodPost, "/api/consoles/c1/redo", "")
	expectCode(t, rec, http.StatusOK)
	if st := decode[statusBody](t, rec); st.Content != "select 2" {
		t.Errorf("after redo = %+v", st)
	}
}

func TestSetContentRequiresText(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/consoles/c1", `{}`)
	rec := ts.do(t, http.MethodPut, "/api/consoles/c1/content", `{}`)
	expectCode(t, rec, http.StatusBadRequest)
}

func TestHistoryAndRestore(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/consoles/c1", `{"content":"a"}`)
	ts.do(t, http.MethodPut, "/api/consoles/c1/content", `{"text":"b"}`)
	ts.do(t, http.MethodPost, "/api/consoles/c1/flush", "")

	rec := ts.do(t, http.MethodGet, "/api/consoles/c1/history", "")
	expectCode(t, rec, http.StatusOK)
	versions := decode[map[string][]struct {
		ID      string `json:"id"`
		Current bool   `json:"current"`
	}](t, rec)["versions"]
	if len(versions) != 2 || versions[0].ID != "v1" || !versions[1].Current {
		t.Fatalf("history = %+v", versions)
	}

	rec = ts.do(t, http.MethodGet, "/api/consoles/c1/history/v1", "")
	expectCode(t, rec, http.StatusOK)
	if got := decode[map[string]any](t, rec)["content"]; got != "a" {
		t.Errorf("version content = %v, want a", got)
	}

	rec = ts.do(t, http.MethodPost, "/api/consoles/c1/restore/v1", "")
	expectCode(t, rec, http.StatusOK)
	if st := decode[statusBody](t, rec); st.Content != "a" || st.Versions != 2 {
		t.Errorf("after restore = %+v", st)
	}

	rec = ts.do(t, http.MethodPost, "/api/consoles/c1/restore/v99", "")
	expectCode(t, rec, http.StatusNotFound)
}

func TestPreviewAccept(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/consoles/c1", `{"content":"select *"}`)

	rec := ts.do(t, http.MethodPost, "/api/consoles/c1/preview", `{"type":"append","content":"LIMIT 10"}`)
	expectCode(t, rec, http.StatusOK)
	st := decode[statusBody](t, rec)
	if st.Preview != "previewing" || st.Diff == nil {
		t.Fatalf("after preview = %+v", st)
	}
	if st.Diff.Modified != "select *\nLIMIT 10" {
		t.Errorf("Modified = %q", st.Diff.Modified)
	}
	if !strings.Contains(st.Diff.Unified, "+LIMIT 10") {
		t.Errorf("Unified missing insertion:\n%s", st.Diff.Unified)
	}
	if st.Content != "select *" {
		t.Errorf("preview must not change content, got %q", st.Content)
	}

	rec = ts.do(t, http.MethodPut, "/api/consoles/c1/content", `{"text":"typing"}`)
	expectCode(t, rec, http.StatusConflict)

	rec = ts.do(t, http.MethodPost, "/api/consoles/c1/preview/accept", "")
	expectCode(t, rec, http.StatusOK)
	res := decode[struct {
		Result struct {
			Original string `json:"original"`
			Modified string `json:"modified"`
		} `json:"result"`
		Status statusBody `json:"status"`
	}](t, rec)
	if res.Result.Original != "select *" || res.Result.Modified != "select *\nLIMIT 10" {
		t.Errorf("result = %+v", res.Result)
	}
	if res.Status.Content != "select *\nLIMIT 10" || res.Status.Preview != "idle" {
		t.Errorf("status after accept = %+v", res.Status)
	}

	rec = ts.do(t, http.MethodPost, "/api/consoles/c1/preview/accept", "")
	expectCode(t, rec, http.StatusConflict)
}

func TestPreviewReject(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/consoles/c1", `{"content":"select 1"}`)
	ts.do(t, http.MethodPost, "/api/consoles/c1/preview", `{"type":"replace","content":"select 2"}`)

	rec := ts.do(t, http.MethodPost, "/api/consoles/c1/preview/reject", "")
	expectCode(t, rec, http.StatusOK)
	if st := decode[statusBody](t, rec); st.Content != "select 1" || st.Versions != 1 || st.Diff != nil {
		t.Errorf("after reject = %+v", st)
	}

	rec = ts.do(t, http.MethodPost, "/api/consoles/c1/preview/reject", "")
	expectCode(t, rec, http.StatusConflict)
}

func TestApplyDirect(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/consoles/c1", `{"content":"from t"}`)

	rec := ts.do(t, http.MethodPost, "/api/consoles/c1/apply", `{"type":"insert","content":"select * "}`)
	expectCode(t, rec, http.StatusOK)
	res := decode[struct {
		Status statusBody `json:"status"`
	}](t, rec)
	if res.Status.Content != "select * from t" || res.Status.Versions != 2 {
		t.Errorf("after apply = %+v", res.Status)
	}
}

func TestInvalidModification(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/consoles/c1", `{"content":"x"}`)

	for _, body := range []string{`{"type":"delete"}`, `{}`, `not json`} {
		rec := ts.do(t, http.MethodPost, "/api/consoles/c1/preview", body)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("preview %s: status = %d, want 400", body, rec.Code)
		}
	}
}

func TestPersistAndReload(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/consoles/c1", `{"content":"a"}`)
	ts.do(t, http.MethodPut, "/api/consoles/c1/content", `{"text":"saved text"}`)

	rec := ts.do(t, http.MethodPost, "/api/consoles/c1/persist", "")
	expectCode(t, rec, http.StatusOK)
	if st := decode[statusBody](t, rec); st.Dirty {
		t.Errorf("dirty after persist: %+v", st)
	}

	content, ok, err := ts.store.Load(context.Background(), "c1")
	if err != nil || !ok || content != "saved text" {
		t.Fatalf("store = %q, %v, %v", content, ok, err)
	}

	rec = ts.do(t, http.MethodDelete, "/api/consoles/c1", "")
	expectCode(t, rec, http.StatusNoContent)
	rec = ts.do(t, http.MethodDelete, "/api/consoles/c1", "")
	expectCode(t, rec, http.StatusNotFound)

	rec = ts.do(t, http.MethodPost, "/api/consoles/c1", "")
	expectCode(t, rec, http.StatusCreated)
	if st := decode[statusBody](t, rec); st.Content != "saved text" || st.Dirty {
		t.Errorf("reopened = %+v", st)
	}
}

type cannedProducer struct {
	mod patch.Modification
}

func (p cannedProducer) Name() string { return "canned" }

func (p cannedProducer) Suggest(context.Context, assist.Request) (patch.Modification, error) {
	return p.mod, nil
}

func TestSuggest(t *testing.T) {
	ts := newTestServer(t, cannedProducer{mod: patch.Append("LIMIT 5")})
	ts.do(t, http.MethodPost, "/api/consoles/c1", `{"content":"select *"}`)

	rec := ts.do(t, http.MethodPost, "/api/consoles/c1/suggest", `{"prompt":"limit"}`)
	expectCode(t, rec, http.StatusOK)
	resp := decode[struct {
		Producer string     `json:"producer"`
		Status   statusBody `json:"status"`
	}](t, rec)
	if resp.Producer != "canned" || resp.Status.Preview != "previewing" {
		t.Errorf("suggest = %+v", resp)
	}

	ts.do(t, http.MethodPost, "/api/consoles/c1/preview/reject", "")

	rec = ts.do(t, http.MethodPost, "/api/consoles/c1/suggest", `{"prompt":"limit","apply":"direct"}`)
	expectCode(t, rec, http.StatusOK)
	resp = decode[struct {
		Producer string     `json:"producer"`
		Status   statusBody `json:"status"`
	}](t, rec)
	if resp.Status.Content != "select *\nLIMIT 5" {
		t.Errorf("direct suggest content = %q", resp.Status.Content)
	}

	rec = ts.do(t, http.MethodPost, "/api/consoles/c1/suggest", `{"prompt":"x","producer":"missing"}`)
	expectCode(t, rec, http.StatusNotFound)

	rec = ts.do(t, http.MethodPost, "/api/consoles/c1/suggest", `{"prompt":"x","apply":"later"}`)
	expectCode(t, rec, http.StatusBadRequest)
}

func TestSuggestWithoutProducers(t *testing.T) {
	ts := newTestServer(t)
	ts.do(t, http.MethodPost, "/api/consoles/c1", `{}`)
	rec := ts.do(t, http.MethodPost, "/api/consoles/c1/suggest", `{"prompt":"x"}`)
	expectCode(t, rec, http.StatusServiceUnavailable)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{console.ErrConsoleNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", console.ErrVersionNotFound), http.StatusNotFound},
		{console.ErrPreviewActive, http.StatusConflict},
		{console.ErrNoPreview, http.StatusConflict},
		{console.ErrNothingToRedo, http.StatusConflict},
		{console.ErrInvalidModification, http.StatusBadRequest},
		{assist.ErrInvalidResponse, http.StatusBadGateway},
		{console.ErrNoPersister, http.StatusNotImplemented},
		{fmt.Errorf("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}
