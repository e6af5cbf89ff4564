package core

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	progressmemory "aligncore/internal/infra/progress/memory"
	recordsmemory "aligncore/internal/infra/records/memory"
	"aligncore/pkg/domain"
)

func blockFor(relation, text string) string {
	return fmt.Sprintf("# relation = %s\n# text = %s\n1\t%s\n", relation, text, text)
}

func record(id, relation string) domain.Record {
	return domain.NewRecord(id, blockFor(relation, "src"+id), map[domain.Language]domain.TargetBlock{
		domain.LanguageRU: {Original: blockFor(relation, "ru"+id), Current: blockFor(relation, "ru"+id)},
		domain.LanguageKO: {Original: blockFor(relation, "ko"+id), Current: blockFor(relation, "ko"+id)},
	})
}

type fixture struct {
	svc      *Service
	records  *recordsmemory.Store
	progress *countingProgress
}

func newFixture(t *testing.T, req domain.Requirements, records []domain.Record, opts ...Option) *fixture {
	t.Helper()
	store := recordsmemory.New(records...)
	catalog, err := LoadCatalog(context.Background(), store, req)
	if err != nil {
		t.Fatalf("load catalog: %v", err)
	}
	progress := &countingProgress{ProgressStore: progressmemory.New(domain.NewProgress())}
	return &fixture{
		svc:      NewService(catalog, store, progress, opts...),
		records:  store,
		progress: progress,
	}
}

func (f *fixture) state(t *testing.T) domain.Progress {
	t.Helper()
	p, err := domain.LoadProgress(context.Background(), f.progress.ProgressStore)
	if err != nil {
		t.Fatalf("load progress: %v", err)
	}
	return p
}

func (f *fixture) seed(t *testing.T, p domain.Progress) {
	t.Helper()
	if err := domain.SaveProgress(context.Background(), f.progress.ProgressStore, p); err != nil {
		t.Fatalf("seed progress: %v", err)
	}
}

// countingProgress counts loads and saves so tests can assert that rejected
// input never reaches the store.
type countingProgress struct {
	domain.ProgressStore
	mu      sync.Mutex
	loads   int
	saves   int
	failErr error
}

func (c *countingProgress) LoadProcessed(ctx context.Context) (domain.Processed, error) {
	c.mu.Lock()
	c.loads++
	err := c.failErr
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.ProgressStore.LoadProcessed(ctx)
}

func (c *countingProgress) SaveProcessed(ctx context.Context, p domain.Processed) error {
	c.mu.Lock()
	c.saves++
	c.mu.Unlock()
	return c.ProgressStore.SaveProcessed(ctx, p)
}

func (c *countingProgress) touched() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loads > 0 || c.saves > 0
}

type fixedRand struct{ pick int }

func (r fixedRand) IntN(n int) int {
	if r.pick >= n {
		return n - 1
	}
	return r.pick
}

type captureAuditRecorder struct {
	mu      sync.Mutex
	entries []AuditEntry
}

func (c *captureAuditRecorder) Record(_ context.Context, entry AuditEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, entry)
}

type metricsCall struct {
	op      string
	success bool
}

type captureMetricsRecorder struct {
	mu    sync.Mutex
	calls []metricsCall
}

func (c *captureMetricsRecorder) Observe(_ context.Context, op string, success bool, _ time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls = append(c.calls, metricsCall{op: op, success: success})
}

func (c *captureMetricsRecorder) has(op string, success bool) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.calls {
		if call.op == op && call.success == success {
			return true
		}
	}
	return false
}

type logLine struct {
	level string
	msg   string
	args  []any
}

type captureLogger struct {
	mu    sync.Mutex
	lines []logLine
}

func (l *captureLogger) add(level, msg string, args []any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, logLine{level: level, msg: msg, args: args})
}

func (l *captureLogger) Debug(msg string, args ...any) { l.add("debug", msg, args) }
func (l *captureLogger) Info(msg string, args ...any)  { l.add("info", msg, args) }
func (l *captureLogger) Warn(msg string, args ...any)  { l.add("warn", msg, args) }
func (l *captureLogger) Error(msg string, args ...any) { l.add("error", msg, args) }

func (l *captureLogger) count(level string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, line := range l.lines {
		if line.level == level {
			n++
		}
	}
	return n
}
