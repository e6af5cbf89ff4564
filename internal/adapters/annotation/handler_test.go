package annotation_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aligncore/internal/adapters/annotation"
	"aligncore/internal/core"
	progressmemory "aligncore/internal/infra/progress/memory"
	recordsmemory "aligncore/internal/infra/records/memory"
	"aligncore/pkg/domain"
)

type sentence struct {
	ID              string `json:"id"`
	DoneInOtherLang bool   `json:"done_in_other_lang"`
	Source          string `json:"source"`
	Target          string `json:"target"`
	Done            bool   `json:"done"`
}

func testRecord(id, relation string) domain.Record {
	block := "# relation = " + relation + "\n"
	return domain.NewRecord(id, block+"src "+id, map[domain.Language]domain.TargetBlock{
		domain.LanguageRU: {Original: block + "ru " + id, Current: block + "ru " + id},
		domain.LanguageKO: {Original: block + "ko " + id, Current: block + "ko " + id},
	})
}

func setup(t *testing.T, req domain.Requirements, records ...domain.Record) (*core.Service, *progressmemory.Store, http.Handler) {
	t.Helper()
	store := recordsmemory.New(records...)
	catalog, err := core.LoadCatalog(context.Background(), store, req)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	progress := progressmemory.New(domain.NewProgress())
	svc := core.NewService(catalog, store, progress)
	reg := prometheus.NewRegistry()
	reg.MustRegister(core.NewProgressCollector(svc))
	h := annotation.NewHandler(svc, annotation.Options{Metrics: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})})
	return svc, progress, h
}

func do(h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	resp := httptest.NewRecorder()
	h.ServeHTTP(resp, req)
	return resp
}

func decodeSentence(t *testing.T, resp *httptest.ResponseRecorder) sentence {
	t.Helper()
	if resp.Code != http.StatusOK {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if ct := resp.Header().Get("Content-Type"); ct != "application/json" {
		t.Fatalf("unexpected content type %s", ct)
	}
	var s sentence
	if err := json.Unmarshal(resp.Body.Bytes(), &s); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return s
}

func TestHandler_UpdateThenNextReusesRecord(t *testing.T) {
	_, progress, h := setup(t, domain.Requirements{"a": 2}, testRecord("1", "a"), testRecord("2", "a"))
	resp := do(h, http.MethodPost, "/ru/updatesentence", `{"id": 1, "conllu": "# relation = a\nedited"}`)
	if resp.Code != http.StatusOK || resp.Body.String() != "Update successful" {
		t.Fatalf("update: %d %s", resp.Code, resp.Body.String())
	}
	s := decodeSentence(t, do(h, http.MethodGet, "/ko/nextsentence", ""))
	if s.ID != "1" || !s.DoneInOtherLang || s.Target != "# relation = a\nko 1" {
		t.Fatalf("unexpected next sentence %+v", s)
	}
	processed, _ := progress.LoadProcessed(context.Background())
	if !processed.Contains(domain.BucketRU, "1") {
		t.Fatalf("expected id 1 in ru bucket")
	}
	byID := decodeSentence(t, do(h, http.MethodGet, "/ru/byid/1", ""))
	if byID.Target != "# relation = a\nedited" || byID.DoneInOtherLang {
		t.Fatalf("unexpected byid %+v", byID)
	}
}

func TestHandler_NextReportsDone(t *testing.T) {
	_, progress, h := setup(t, domain.Requirements{"a": 1}, testRecord("1", "a"))
	p := domain.NewProgress()
	p.Processed[domain.BucketBoth].Add("1")
	if err := domain.SaveProgress(context.Background(), progress, p); err != nil {
		t.Fatalf("seed: %v", err)
	}
	resp := do(h, http.MethodGet, "/ru/nextsentence", "")
	if resp.Code != http.StatusOK || strings.TrimSpace(resp.Body.String()) != `{"done":true}` {
		t.Fatalf("unexpected done response %d %s", resp.Code, resp.Body.String())
	}
}

func TestHandler_Discard(t *testing.T) {
	_, progress, h := setup(t, domain.Requirements{"a": 1}, testRecord("1", "a"))
	resp := do(h, http.MethodPost, "/ko/discardsentence", `{"id": "1"}`)
	if resp.Code != http.StatusOK || resp.Body.String() != "Update successful" {
		t.Fatalf("discard: %d %s", resp.Code, resp.Body.String())
	}
	discarded, _ := progress.LoadDiscarded(context.Background())
	if !discarded.Has("1") {
		t.Fatalf("expected id discarded")
	}
}

func TestHandler_BadInput(t *testing.T) {
	_, progress, h := setup(t, domain.Requirements{"a": 1}, testRecord("1", "a"))
	cases := []struct {
		method, path, body string
		status             int
		text               string
	}{
		{http.MethodGet, "/en/nextsentence", "", http.StatusBadRequest, "Wrong language: en"},
		{http.MethodGet, "/ru/byid/7", "", http.StatusBadRequest, "Wrong id: 7"},
		{http.MethodGet, "/xx/byid/1", "", http.StatusBadRequest, "Wrong language: xx"},
		{http.MethodPost, "/de/discardsentence", `{"id": 1}`, http.StatusBadRequest, "Wrong language: de"},
		{http.MethodPost, "/ru/discardsentence", `{"id": 99}`, http.StatusBadRequest, "Wrong id: 99"},
		{http.MethodPost, "/ru/updatesentence", `{"id": 1}`, http.StatusBadRequest, "missing conllu"},
		{http.MethodPost, "/ru/updatesentence", `not json`, http.StatusBadRequest, "invalid payload"},
		{http.MethodPost, "/ru/discardsentence", `{}`, http.StatusBadRequest, "missing id"},
		{http.MethodGet, "/ru/updatesentence", "", http.StatusMethodNotAllowed, "method not allowed"},
		{http.MethodGet, "/ru/unknown", "", http.StatusNotFound, ""},
	}
	for _, tc := range cases {
		resp := do(h, tc.method, tc.path, tc.body)
		if resp.Code != tc.status || !strings.Contains(resp.Body.String(), tc.text) {
			t.Fatalf("%s %s: got %d %q", tc.method, tc.path, resp.Code, resp.Body.String())
		}
	}
	processed, _ := progress.LoadProcessed(context.Background())
	for _, b := range domain.Buckets {
		if len(processed[b]) != 0 {
			t.Fatalf("bad input changed bucket %s", b)
		}
	}
}

func TestHandler_StatsHeadersAndMetrics(t *testing.T) {
	_, _, h := setup(t, domain.Requirements{"a": 1}, testRecord("1", "a"))
	resp := do(h, http.MethodGet, "/stats", "")
	if resp.Code != http.StatusOK || !strings.HasPrefix(resp.Body.String(), "total\n\tru: 0\n\tko: 0\nout of 1\n") {
		t.Fatalf("unexpected stats %d %q", resp.Code, resp.Body.String())
	}
	if resp.Header().Get("Access-Control-Allow-Origin") != "*" || resp.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Fatalf("missing cors headers %v", resp.Header())
	}
	if resp.Header().Get("X-Request-ID") == "" {
		t.Fatalf("missing request id")
	}
	pre := do(h, http.MethodOptions, "/ru/updatesentence", "")
	if pre.Code != http.StatusNoContent {
		t.Fatalf("expected preflight 204, got %d", pre.Code)
	}
	metrics := do(h, http.MethodGet, "/metrics", "")
	if metrics.Code != http.StatusOK || !strings.Contains(metrics.Body.String(), "aligncore_required_records") {
		t.Fatalf("unexpected metrics %d", metrics.Code)
	}
	if health := do(h, http.MethodGet, "/healthz", ""); health.Code != http.StatusOK {
		t.Fatalf("unexpected health %d", health.Code)
	}
}

type failingService struct {
	annotation.Service
	err error
}

func (f failingService) SelectNext(context.Context, domain.Language) (core.NextSentence, error) {
	return core.NextSentence{}, f.err
}

func TestHandler_InternalErrors(t *testing.T) {
	for err, want := range map[error]int{
		domain.ErrNoEligibleRecord: http.StatusInternalServerError,
		domain.ErrIntegrity:        http.StatusInternalServerError,
		context.Canceled:           http.StatusServiceUnavailable,
		errors.New("disk"):         http.StatusInternalServerError,
	} {
		h := annotation.NewHandler(failingService{err: err}, annotation.Options{CORSOrigin: "https://annotate.example"})
		resp := do(h, http.MethodGet, "/ru/nextsentence", "")
		if resp.Code != want {
			t.Fatalf("%v: expected %d, got %d", err, want, resp.Code)
		}
		if resp.Header().Get("Access-Control-Allow-Origin") != "https://annotate.example" {
			t.Fatalf("expected configured origin")
		}
	}
	h := annotation.NewHandler(failingService{}, annotation.Options{})
	if resp := do(h, http.MethodGet, "/metrics", ""); resp.Code != http.StatusNotFound {
		t.Fatalf("expected 404 without metrics handler, got %d", resp.Code)
	}
}
