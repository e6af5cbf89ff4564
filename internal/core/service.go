package core

import (
	"context"
	"fmt"
	"sync"

	"aligncore/pkg/domain"
)

// Operation names used for tracing, metrics and audit.
const (
	OpEvaluateProgress = "evaluate_progress"
	OpSelectNext       = "select_next"
	OpSentenceByID     = "sentence_by_id"
	OpNeed             = "need"
	OpDiscard          = "discard"
	OpUpdate           = "update"
)

// Service exposes the selection and progress operations. Every
// load-compute-save sequence runs under a single lock so concurrent requests
// cannot overwrite each other's progress.
type Service struct {
	catalog  *Catalog
	records  domain.RecordStore
	progress domain.ProgressStore

	mu sync.Mutex

	clock   Clock
	logger  Logger
	metrics MetricsRecorder
	tracer  Tracer
	audit   AuditRecorder
	rng     Rand
}

// NewService constructs a service over the supplied stores and catalog.
func NewService(catalog *Catalog, records domain.RecordStore, progress domain.ProgressStore, opts ...Option) *Service {
	o := defaultServiceOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return &Service{
		catalog:  catalog,
		records:  records,
		progress: progress,
		clock:    o.clock,
		logger:   o.logger,
		metrics:  o.metrics,
		tracer:   o.tracer,
		audit:    o.audit,
		rng:      o.rng,
	}
}

// Catalog returns the in-memory record view.
func (s *Service) Catalog() *Catalog { return s.catalog }

// Sentence is a record rendered for one target language.
type Sentence struct {
	ID              string `json:"id"`
	DoneInOtherLang bool   `json:"done_in_other_lang"`
	Source          string `json:"source"`
	Target          string `json:"target"`
	Discarded       bool   `json:"discarded,omitempty"`
}

// NextSentence is the result of SelectNext; Done is set once every quota is
// met.
type NextSentence struct {
	Sentence
	Done bool `json:"done,omitempty"`
}

func (s *Service) run(ctx context.Context, op string, fn func(context.Context) error) error {
	ctx, span := s.tracer.Start(ctx, op)
	start := s.clock.Now()
	err := fn(ctx)
	duration := s.clock.Now().Sub(start)
	span.End(err)
	s.metrics.Observe(ctx, op, err == nil, duration)
	if err != nil {
		args := []any{"operation", op, "code", string(Classify(err)), "error", err}
		if IsInvalidInput(err) {
			s.logger.Warn("operation rejected", args...)
		} else {
			s.logger.Error("operation failed", args...)
		}
		return err
	}
	s.logger.Debug("operation completed", "operation", op, "duration", duration)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, op, id string, lang domain.Language, start func() error) error {
	began := s.clock.Now()
	err := start()
	entry := AuditEntry{
		Operation: op,
		RecordID:  id,
		Language:  lang,
		Status:    AuditStatusSuccess,
		Duration:  s.clock.Now().Sub(began),
		Timestamp: began,
	}
	if err != nil {
		entry.Status = AuditStatusError
		entry.Error = err.Error()
	}
	s.audit.Record(ctx, entry)
	return err
}

func (s *Service) checkRecord(id string) error {
	if _, ok := s.catalog.Record(id); !ok {
		return fmt.Errorf("%w: %s", domain.ErrUnknownRecord, id)
	}
	return nil
}

func checkLanguage(lang domain.Language) error {
	if !lang.Valid() {
		return fmt.Errorf("%w: %s", domain.ErrInvalidLanguage, lang)
	}
	return nil
}

func (s *Service) loadProgress(ctx context.Context) (domain.Progress, error) {
	p, err := domain.LoadProgress(ctx, s.progress)
	if err != nil {
		return domain.Progress{}, fmt.Errorf("load progress: %w", err)
	}
	return p, nil
}

// EvaluateProgress compares the current satisfaction counts to the
// requirements table.
func (s *Service) EvaluateProgress(ctx context.Context) (ProgressReport, error) {
	var report ProgressReport
	err := s.run(ctx, OpEvaluateProgress, func(ctx context.Context) error {
		var err error
		report, err = s.progressReport(ctx)
		return err
	})
	return report, err
}

// progressReport builds the report without tracing or metrics, for scrapes.
func (s *Service) progressReport(ctx context.Context) (ProgressReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, err := s.loadProgress(ctx)
	if err != nil {
		return ProgressReport{}, err
	}
	satisfied, err := s.catalog.Satisfied(p.Processed)
	if err != nil {
		return ProgressReport{}, err
	}
	return NewProgressReport(s.catalog.requirements, satisfied, s.catalog.Complete(satisfied)), nil
}

// SelectNext picks the next record to serve for lang.
func (s *Service) SelectNext(ctx context.Context, lang domain.Language) (NextSentence, error) {
	var out NextSentence
	err := s.run(ctx, OpSelectNext, func(ctx context.Context) error {
		if err := checkLanguage(lang); err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		p, err := s.loadProgress(ctx)
		if err != nil {
			return err
		}
		sel, err := s.catalog.Select(lang, p, s.rng)
		if err != nil {
			return err
		}
		if sel.Done {
			out.Done = true
			return nil
		}
		rec, ok := s.catalog.Record(sel.ID)
		if !ok {
			return fmt.Errorf("%w: selected id %s missing from catalog", domain.ErrIntegrity, sel.ID)
		}
		out.Sentence = Sentence{
			ID:              rec.ID,
			DoneInOtherLang: sel.DoneInOtherLang,
			Source:          rec.Source,
			Target:          rec.Target(lang),
			Discarded:       p.Discarded.Has(rec.ID),
		}
		return nil
	})
	return out, err
}

// SentenceByID renders a specific record for lang.
func (s *Service) SentenceByID(ctx context.Context, lang domain.Language, id string) (Sentence, error) {
	var out Sentence
	err := s.run(ctx, OpSentenceByID, func(ctx context.Context) error {
		if err := checkLanguage(lang); err != nil {
			return err
		}
		if err := s.checkRecord(id); err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		p, err := s.loadProgress(ctx)
		if err != nil {
			return err
		}
		rec, _ := s.catalog.Record(id)
		out = Sentence{
			ID:              rec.ID,
			DoneInOtherLang: p.Processed.Contains(lang.Other().Bucket(), id),
			Source:          rec.Source,
			Target:          rec.Target(lang),
			Discarded:       p.Discarded.Has(id),
		}
		if out.Discarded {
			s.logger.Warn("discarded record requested", "id", id, "language", string(lang))
		}
		return nil
	})
	return out, err
}

// Need reports whether id still requires annotation in lang.
func (s *Service) Need(ctx context.Context, id string, lang domain.Language) (bool, error) {
	var needed bool
	err := s.run(ctx, OpNeed, func(ctx context.Context) error {
		if err := checkLanguage(lang); err != nil {
			return err
		}
		if err := s.checkRecord(id); err != nil {
			return err
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		p, err := s.loadProgress(ctx)
		if err != nil {
			return err
		}
		needed, err = s.catalog.Needed(id, lang, p)
		return err
	})
	return needed, err
}

// Discard excludes id from future selection.
func (s *Service) Discard(ctx context.Context, id string) error {
	return s.run(ctx, OpDiscard, func(ctx context.Context) error {
		if err := s.checkRecord(id); err != nil {
			return err
		}
		return s.recordAudit(ctx, OpDiscard, id, "", func() error {
			s.mu.Lock()
			defer s.mu.Unlock()
			p, err := s.loadProgress(ctx)
			if err != nil {
				return err
			}
			p.Discard(id)
			if err := domain.SaveProgress(ctx, s.progress, p); err != nil {
				return fmt.Errorf("save progress: %w", err)
			}
			s.logger.Info("record discarded", "id", id)
			return nil
		})
	})
}

// Update stores a new target block for id in lang and advances its progress.
func (s *Service) Update(ctx context.Context, id string, lang domain.Language, block string) error {
	return s.run(ctx, OpUpdate, func(ctx context.Context) error {
		if err := checkLanguage(lang); err != nil {
			return err
		}
		if err := s.checkRecord(id); err != nil {
			return err
		}
		if !BlockIsNFC(block) {
			s.logger.Warn("target block is not NFC normalised", "id", id, "language", string(lang))
		}
		return s.recordAudit(ctx, OpUpdate, id, lang, func() error {
			s.mu.Lock()
			defer s.mu.Unlock()
			p, err := s.loadProgress(ctx)
			if err != nil {
				return err
			}
			if err := s.records.SetTargetBlock(ctx, id, lang, block); err != nil {
				return fmt.Errorf("set target block: %w", err)
			}
			s.catalog.setTarget(id, lang, block)
			p.MarkUpdated(id, lang)
			if err := domain.SaveProgress(ctx, s.progress, p); err != nil {
				return fmt.Errorf("save progress: %w", err)
			}
			s.logger.Info("record updated", "id", id, "language", string(lang))
			return nil
		})
	})
}
