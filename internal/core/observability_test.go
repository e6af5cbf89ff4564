package core

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"expvar"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"aligncore/pkg/domain"
)

func TestExpvarMetricsRecorder(t *testing.T) {
	rec := NewExpvarMetricsRecorder("")
	rec.Observe(context.Background(), OpUpdate, true, 2*time.Millisecond)
	rec.Observe(context.Background(), OpUpdate, false, time.Millisecond)
	rec.Observe(context.Background(), "", true, time.Millisecond)
	snap := rec.Snapshot()
	st, ok := snap.Operations[OpUpdate]
	if !ok || st.Success != 1 || st.Error != 1 || st.DurationMS != 3 {
		t.Fatalf("unexpected snapshot %+v", snap)
	}
	if len(snap.Operations) != 1 {
		t.Fatalf("empty operation must be ignored")
	}
	v := expvar.Get(rec.Name())
	if v == nil || !strings.Contains(v.String(), OpUpdate) {
		t.Fatalf("expected published expvar %s", rec.Name())
	}
	if other := NewExpvarMetricsRecorder(""); other.Name() == rec.Name() {
		t.Fatalf("expected unique generated names")
	}
}

func TestJSONTracerWritesLines(t *testing.T) {
	var buf bytes.Buffer
	tracer := NewJSONTracer(&buf)
	_, span := tracer.Start(context.Background(), OpSelectNext)
	span.End(domain.ErrNoEligibleRecord)
	var entry JSONTraceEntry
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("decode trace line: %v", err)
	}
	if entry.Operation != OpSelectNext || entry.Status != "error" || entry.Code != CodeLiveness || entry.SpanID == "" {
		t.Fatalf("unexpected entry %+v", entry)
	}
}

func gather(t *testing.T, reg *prometheus.Registry) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	out := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		out[mf.GetName()] = mf
	}
	return out
}

func TestPrometheusMetricsRecorder(t *testing.T) {
	reg := prometheus.NewRegistry()
	rec, err := NewPrometheusMetricsRecorder(reg)
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	rec.Observe(context.Background(), OpDiscard, true, 10*time.Millisecond)
	rec.Observe(context.Background(), OpDiscard, false, 10*time.Millisecond)
	families := gather(t, reg)
	total := families["aligncore_operations_total"]
	if total == nil || len(total.GetMetric()) != 2 {
		t.Fatalf("expected two outcome series, got %v", total)
	}
	hist := families["aligncore_operation_duration_seconds"]
	if hist == nil || hist.GetMetric()[0].GetHistogram().GetSampleCount() != 2 {
		t.Fatalf("expected two histogram samples, got %v", hist)
	}
	if _, err := NewPrometheusMetricsRecorder(reg); err == nil {
		t.Fatalf("expected duplicate registration error")
	}
}

func TestProgressCollector(t *testing.T) {
	ctx := context.Background()
	metrics := &captureMetricsRecorder{}
	f := newFixture(t, domain.Requirements{"a": 1}, []domain.Record{record("1", "a")}, WithMetricsRecorder(metrics))
	if err := f.svc.Update(ctx, "1", domain.LanguageRU, "x"); err != nil {
		t.Fatalf("update: %v", err)
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(NewProgressCollector(f.svc))
	families := gather(t, reg)
	satisfied := families["aligncore_satisfied_records"]
	if satisfied == nil || len(satisfied.GetMetric()) != 3 {
		t.Fatalf("expected one series per bucket, got %v", satisfied)
	}
	for _, m := range satisfied.GetMetric() {
		var bucket string
		for _, lp := range m.GetLabel() {
			if lp.GetName() == "bucket" {
				bucket = lp.GetValue()
			}
		}
		want := 0.0
		if bucket == string(domain.BucketRU) {
			want = 1
		}
		if m.GetGauge().GetValue() != want {
			t.Fatalf("bucket %s = %v, want %v", bucket, m.GetGauge().GetValue(), want)
		}
	}
	if c := families["aligncore_selection_complete"]; c == nil || c.GetMetric()[0].GetGauge().GetValue() != 0 {
		t.Fatalf("expected incomplete gauge, got %v", c)
	}
	if metrics.has(OpEvaluateProgress, true) || metrics.has(OpEvaluateProgress, false) {
		t.Fatalf("scrapes must not be recorded as evaluate_progress operations")
	}

	f.progress.failErr = errors.New("boom")
	if _, err := reg.Gather(); err == nil {
		t.Fatalf("expected gather error when progress cannot load")
	}
	if metrics.has(OpEvaluateProgress, false) {
		t.Fatalf("failed scrape must not be recorded as an operation")
	}
}
