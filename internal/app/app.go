// Package app assembles stores, the record catalog and the core service from
// configuration. Both binaries build on it.
package app

import (
	"context"
	"errors"
	"expvar"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"aligncore/docs/schema/openapi"
	"aligncore/internal/adapters/annotation"
	"aligncore/internal/config"
	"aligncore/internal/core"
	"aligncore/pkg/domain"
)

// App holds the wired service and the resources it owns.
type App struct {
	Config   config.Config
	Service  *core.Service
	Records  domain.RecordStore
	Progress domain.ProgressStore
	Registry *prometheus.Registry
	logger   core.Logger
}

// Build opens the configured stores, loads the requirements table and the
// record catalog, and constructs the service. extra options are appended
// after the ones derived from cfg.
func Build(ctx context.Context, cfg config.Config, logger core.Logger, extra ...core.Option) (*App, error) {
	if logger == nil {
		return nil, errors.New("app: logger required")
	}
	req, err := config.LoadRequirements(cfg.Requirements.Path)
	if err != nil {
		return nil, err
	}
	records, err := core.OpenRecordStore(ctx, cfg.Records)
	if err != nil {
		return nil, fmt.Errorf("open record store: %w", err)
	}
	progress, err := core.OpenProgressStore(ctx, cfg.Progress)
	if err != nil {
		_ = core.CloseStore(records)
		return nil, fmt.Errorf("open progress store: %w", err)
	}
	a := &App{Config: cfg, Records: records, Progress: progress, logger: logger}
	catalog, err := core.LoadCatalog(ctx, records, req)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	var recorders metricsFanout
	if cfg.Metrics.Prometheus {
		a.Registry = prometheus.NewRegistry()
		rec, err := core.NewPrometheusMetricsRecorder(a.Registry)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		recorders = append(recorders, rec)
	}
	if cfg.Metrics.Expvar {
		recorders = append(recorders, core.NewExpvarMetricsRecorder(cfg.Metrics.ExpvarName))
	}
	opts := []core.Option{core.WithLogger(logger)}
	if len(recorders) > 0 {
		opts = append(opts, core.WithMetricsRecorder(recorders))
	}
	a.Service = core.NewService(catalog, records, progress, append(opts, extra...)...)
	if a.Registry != nil {
		if err := a.Registry.Register(core.NewProgressCollector(a.Service)); err != nil {
			_ = a.Close()
			return nil, fmt.Errorf("register progress collector: %w", err)
		}
	}
	logger.Info("catalog loaded",
		"records", catalog.Len(),
		"relations", len(req),
		"records_driver", cfg.Records.Driver,
		"progress_driver", cfg.Progress.Driver)
	return a, nil
}

// Handler returns the annotation HTTP API with its OpenAPI document,
// /metrics when prometheus is enabled and /debug/vars when expvar is.
func (a *App) Handler() http.Handler {
	opts := annotation.Options{
		CORSOrigin: a.Config.Server.CORSOrigin,
		Logger:     a.logger,
		OpenAPI:    openapi.Spec(),
	}
	if a.Registry != nil {
		opts.Metrics = promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{ErrorHandling: promhttp.ContinueOnError})
	}
	h := annotation.NewHandler(a.Service, opts)
	if !a.Config.Metrics.Expvar {
		return h
	}
	mux := http.NewServeMux()
	mux.Handle("/debug/vars", expvar.Handler())
	mux.Handle("/", h)
	return mux
}

// Close releases both stores.
func (a *App) Close() error {
	return errors.Join(core.CloseStore(a.Records), core.CloseStore(a.Progress))
}

type metricsFanout []core.MetricsRecorder

func (m metricsFanout) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, r := range m {
		r.Observe(ctx, operation, success, duration)
	}
}
