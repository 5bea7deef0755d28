// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package research cross-references a drug against public biomedical
// registries (PubMed, ClinicalTrials.gov, openFDA) and merges their
// heterogeneous responses into one envelope.
//
// Registry failures never reach the caller: each source that errors, times
// out, or returns a non-success status is logged and contributes an empty
// result, so one unreliable registry cannot block findings from the others.
package research

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/protocol-analyzer/internal/logging"
	"github.com/pdiddy/protocol-analyzer/pkg/types"
)

const (
	// DefaultTimeout bounds each registry request when the config leaves it unset.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent is sent when the config leaves it unset.
	DefaultUserAgent = "protocol-analyzer/0.1"
)

// Query is one research lookup: a drug and an optional condition.
type Query struct {
	Drug      string
	Condition string
}

func newQuery(drug, condition string) Query {
	return Query{Drug: strings.TrimSpace(drug), Condition: strings.TrimSpace(condition)}
}

// Source searches a single registry. Each registry client implements it
// for its own hit type.
type Source[T any] interface {
	Name() string
	Search(ctx context.Context, q Query) ([]T, error)
}

// Aggregator runs the three registry lookups. It holds no mutable state
// and is safe for concurrent use.
type Aggregator struct {
	Literature Source[types.LiteratureHit]
	Trials     Source[types.TrialHit]
	Regulatory Source[types.RegulatoryHit]
	Logger     *zap.Logger
}

// NewAggregator wires the PubMed, ClinicalTrials.gov and openFDA clients
// with a shared HTTP client bounded by cfg.Timeout.
func NewAggregator(cfg types.ResearchConfig, logger *zap.Logger) *Aggregator {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = DefaultUserAgent
	}
	client := &http.Client{Timeout: timeout}

	return &Aggregator{
		Literature: &PubMedBackend{
			Client:    client,
			UserAgent: userAgent,
			APIKey:    cfg.NCBIAPIKey,
			Email:     cfg.NCBIEmail,
		},
		Trials: &ClinicalTrialsBackend{
			Client:    client,
			UserAgent: userAgent,
		},
		Regulatory: &OpenFDABackend{
			Client:    client,
			UserAgent: userAgent,
			APIKey:    cfg.OpenFDAAPIKey,
		},
		Logger: logger,
	}
}

// LookupLiterature returns up to five PubMed publications for the drug,
// restricted to the condition when one is given.
func (a *Aggregator) LookupLiterature(ctx context.Context, drug, condition string) []types.LiteratureHit {
	return lookup(ctx, a.log(), a.Literature, newQuery(drug, condition))
}

// LookupTrials returns up to five registered clinical trials.
func (a *Aggregator) LookupTrials(ctx context.Context, drug, condition string) []types.TrialHit {
	return lookup(ctx, a.log(), a.Trials, newQuery(drug, condition))
}

// LookupRegulatory returns up to three approval applications whose active
// ingredient matches the drug. The condition is not used by this registry.
func (a *Aggregator) LookupRegulatory(ctx context.Context, drug string) []types.RegulatoryHit {
	return lookup(ctx, a.log(), a.Regulatory, newQuery(drug, ""))
}

// Aggregate queries all three registries concurrently and waits for every
// one of them before returning. Lookups are detached from ctx cancellation:
// once issued they run until they complete or hit the client timeout.
func (a *Aggregator) Aggregate(ctx context.Context, drug, condition string) types.ResearchEnvelope {
	ctx = context.WithoutCancel(ctx)
	q := newQuery(drug, condition)
	logger := a.log()

	var env types.ResearchEnvelope
	var g errgroup.Group
	g.Go(func() error {
		env.Literature = lookup(ctx, logger, a.Literature, q)
		return nil
	})
	g.Go(func() error {
		env.Trials = lookup(ctx, logger, a.Trials, q)
		return nil
	})
	g.Go(func() error {
		env.Regulatory = lookup(ctx, logger, a.Regulatory, Query{Drug: q.Drug})
		return nil
	})
	_ = g.Wait()

	logger.Debug("research aggregated",
		zap.String("drug", q.Drug),
		zap.String("condition", q.Condition),
		zap.Int("literature", len(env.Literature)),
		zap.Int("trials", len(env.Trials)),
		zap.Int("regulatory", len(env.Regulatory)),
	)
	return env
}

// AggregateDrugs runs Aggregate for each drug in turn, keyed by drug ID,
// using the English INN when known and the drug's target condition.
func (a *Aggregator) AggregateDrugs(ctx context.Context, drugs []types.DrugRecord) map[string]types.ResearchEnvelope {
	out := make(map[string]types.ResearchEnvelope, len(drugs))
	for _, d := range drugs {
		out[d.ID] = a.Aggregate(ctx, d.SearchName(), d.TargetCondition)
	}
	return out
}

func (a *Aggregator) log() *zap.Logger {
	return logging.OrNop(a.Logger)
}

// lookup runs one source and converts every failure into an empty,
// non-nil result.
func lookup[T any](ctx context.Context, logger *zap.Logger, src Source[T], q Query) (hits []T) {
	if src == nil {
		return []T{}
	}

	defer func() {
		if r := recover(); r != nil {
			logger.Error("research source panicked",
				zap.String("source", src.Name()),
				zap.String("drug", q.Drug),
				zap.Any("panic", r),
			)
			hits = []T{}
		}
	}()

	hits, err := src.Search(ctx, q)
	if err != nil {
		logger.Warn("research source failed",
			zap.String("source", src.Name()),
			zap.String("drug", q.Drug),
			zap.String("condition", q.Condition),
			zap.Error(err),
		)
		return []T{}
	}
	if hits == nil {
		return []T{}
	}
	return hits
}

// errEmptyDrug is returned by every source when the query has no drug name.
var errEmptyDrug = errors.New("drug name is empty")
