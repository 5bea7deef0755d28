// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/pdiddy/protocol-analyzer/pkg/types"
)

// stubSource is an in-memory Source. When started is set, Search signals it
// and then waits for release before answering.
type stubSource[T any] struct {
	name    string
	hits    []T
	err     error
	panics  bool
	calls   atomic.Int32
	gotQ    atomic.Value
	started *sync.WaitGroup
	release <-chan struct{}
}

func (s *stubSource[T]) Name() string { return s.name }

func (s *stubSource[T]) Search(ctx context.Context, q Query) ([]T, error) {
	s.calls.Add(1)
	s.gotQ.Store(q)
	if s.started != nil {
		s.started.Done()
		<-s.release
	}
	if s.panics {
		panic("boom")
	}
	return s.hits, s.err
}

func sampleLiterature() []types.LiteratureHit {
	return []types.LiteratureHit{{ID: "1", Title: "A randomized controlled trial", StudyType: types.StudyRCT}}
}

func sampleTrials() []types.TrialHit {
	return []types.TrialHit{{TrialID: "NCT00000001", Title: "Trial", Status: "Completed"}}
}

func sampleRegulatory() []types.RegulatoryHit {
	return []types.RegulatoryHit{{ApplicationNumber: "NDA000001", SponsorName: "ACME"}}
}

func TestAggregate_AllSourcesSucceed(t *testing.T) {
	lit := &stubSource[types.LiteratureHit]{name: "lit", hits: sampleLiterature()}
	trials := &stubSource[types.TrialHit]{name: "trials", hits: sampleTrials()}
	reg := &stubSource[types.RegulatoryHit]{name: "reg", hits: sampleRegulatory()}

	a := &Aggregator{Literature: lit, Trials: trials, Regulatory: reg}
	env := a.Aggregate(context.Background(), "  metformin ", " type 2 diabetes ")

	assert.Equal(t, sampleLiterature(), env.Literature)
	assert.Equal(t, sampleTrials(), env.Trials)
	assert.Equal(t, sampleRegulatory(), env.Regulatory)

	assert.Equal(t, Query{Drug: "metformin", Condition: "type 2 diabetes"}, lit.gotQ.Load())
	assert.Equal(t, Query{Drug: "metformin", Condition: "type 2 diabetes"}, trials.gotQ.Load())
	assert.Equal(t, Query{Drug: "metformin"}, reg.gotQ.Load(), "regulatory lookup ignores the condition")
}

func TestAggregate_FailuresBecomeEmpty(t *testing.T) {
	tests := []struct {
		name string
		lit  *stubSource[types.LiteratureHit]
	}{
		{"error", &stubSource[types.LiteratureHit]{name: "lit", err: errors.New("unreachable")}},
		{"panic", &stubSource[types.LiteratureHit]{name: "lit", panics: true}},
		{"nil result", &stubSource[types.LiteratureHit]{name: "lit"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			trials := &stubSource[types.TrialHit]{name: "trials", hits: sampleTrials()}
			reg := &stubSource[types.RegulatoryHit]{name: "reg", hits: sampleRegulatory()}

			a := &Aggregator{Literature: tt.lit, Trials: trials, Regulatory: reg}
			env := a.Aggregate(context.Background(), "metformin", "")

			require.NotNil(t, env.Literature)
			assert.Empty(t, env.Literature)
			assert.Equal(t, sampleTrials(), env.Trials)
			assert.Equal(t, sampleRegulatory(), env.Regulatory)
		})
	}
}

func TestAggregate_EveryFailureStillCallsEverySource(t *testing.T) {
	lit := &stubSource[types.LiteratureHit]{name: "lit", err: errors.New("down")}
	trials := &stubSource[types.TrialHit]{name: "trials", err: errors.New("down")}
	reg := &stubSource[types.RegulatoryHit]{name: "reg", err: errors.New("down")}

	a := &Aggregator{Literature: lit, Trials: trials, Regulatory: reg}
	env := a.Aggregate(context.Background(), "metformin", "diabetes")

	assert.Equal(t, int32(1), lit.calls.Load())
	assert.Equal(t, int32(1), trials.calls.Load())
	assert.Equal(t, int32(1), reg.calls.Load())
	assert.True(t, env.IsEmpty())

	data, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"literature":[],"trials":[],"regulatory":[]}`, string(data))
}

func TestAggregate_NilSources(t *testing.T) {
	a := &Aggregator{}
	env := a.Aggregate(context.Background(), "metformin", "")
	assert.NotNil(t, env.Literature)
	assert.NotNil(t, env.Trials)
	assert.NotNil(t, env.Regulatory)
}

func TestAggregate_RunsSourcesConcurrently(t *testing.T) {
	var started sync.WaitGroup
	started.Add(3)
	release := make(chan struct{})

	lit := &stubSource[types.LiteratureHit]{name: "lit", hits: sampleLiterature(), started: &started, release: release}
	trials := &stubSource[types.TrialHit]{name: "trials", hits: sampleTrials(), started: &started, release: release}
	reg := &stubSource[types.RegulatoryHit]{name: "reg", hits: sampleRegulatory(), started: &started, release: release}
	a := &Aggregator{Literature: lit, Trials: trials, Regulatory: reg}

	done := make(chan types.ResearchEnvelope, 1)
	go func() { done <- a.Aggregate(context.Background(), "metformin", "") }()

	// All three must be in flight at once before any is allowed to finish.
	allStarted := make(chan struct{})
	go func() {
		started.Wait()
		close(allStarted)
	}()
	select {
	case <-allStarted:
	case <-time.After(2 * time.Second):
		t.Fatal("sources were not run concurrently")
	}

	select {
	case <-done:
		t.Fatal("Aggregate returned before its sources finished")
	default:
	}

	close(release)
	env := <-done
	assert.Len(t, env.Literature, 1)
	assert.Len(t, env.Trials, 1)
	assert.Len(t, env.Regulatory, 1)
}

func TestAggregate_IgnoresCallerCancellation(t *testing.T) {
	lit := &stubSource[types.LiteratureHit]{name: "lit", hits: sampleLiterature()}
	trials := &ctxCheckingSource{}
	a := &Aggregator{Literature: lit, Trials: trials}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	env := a.Aggregate(ctx, "metformin", "")

	assert.NoError(t, trials.ctxErr)
	assert.Len(t, env.Literature, 1)
	assert.Len(t, env.Trials, 1)
}

type ctxCheckingSource struct{ ctxErr error }

func (s *ctxCheckingSource) Name() string { return "ctx" }

func (s *ctxCheckingSource) Search(ctx context.Context, q Query) ([]types.TrialHit, error) {
	s.ctxErr = ctx.Err()
	return sampleTrials(), nil
}

// TestAggregate_SlowLiteratureTimesOut drives the real HTTP clients: PubMed
// hangs past the client timeout while the other registries answer.
func TestAggregate_SlowLiteratureTimesOut(t *testing.T) {
	hang := make(chan struct{})
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-hang:
		case <-r.Context().Done():
		}
	}))
	defer slow.Close()
	defer close(hang)

	trials := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleStudyFieldsJSON)
	}))
	defer trials.Close()

	fda := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, sampleDrugsFDAJSON)
	}))
	defer fda.Close()

	oldSearch, oldSummary, oldTrials, oldFDA := pubmedSearchURL, pubmedSummaryURL, clinicalTrialsURL, openFDAURL
	pubmedSearchURL, pubmedSummaryURL = slow.URL, slow.URL
	clinicalTrialsURL, openFDAURL = trials.URL, fda.URL
	defer func() {
		pubmedSearchURL, pubmedSummaryURL, clinicalTrialsURL, openFDAURL = oldSearch, oldSummary, oldTrials, oldFDA
	}()

	core, logs := observer.New(zap.WarnLevel)
	cfg := types.ResearchConfig{HTTPConfig: types.HTTPConfig{Timeout: 200 * time.Millisecond}}
	a := NewAggregator(cfg, zap.New(core))

	start := time.Now()
	env := a.Aggregate(context.Background(), "metformin", "prediabetes")
	elapsed := time.Since(start)

	require.NotNil(t, env.Literature)
	assert.Empty(t, env.Literature)
	assert.Len(t, env.Trials, 2)
	assert.Len(t, env.Regulatory, 2)
	assert.Less(t, elapsed, 2*time.Second)

	warned := logs.FilterMessage("research source failed").All()
	require.Len(t, warned, 1)
	assert.Equal(t, "pubmed", warned[0].ContextMap()["source"])
}

func TestAggregateDrugs(t *testing.T) {
	lit := &stubSource[types.LiteratureHit]{name: "lit", hits: sampleLiterature()}
	a := &Aggregator{Literature: lit}

	drugs := []types.DrugRecord{
		{ID: "d1", Name: "Глюкофаж", InnEnglish: "metformin", TargetCondition: "diabetes"},
		{ID: "d2", Name: "Aspirin"},
	}
	got := a.AggregateDrugs(context.Background(), drugs)

	require.Len(t, got, 2)
	assert.Len(t, got["d1"].Literature, 1)
	assert.Empty(t, got["d2"].Trials)
	assert.Equal(t, Query{Drug: "Aspirin"}, lit.gotQ.Load())
}

func TestNewAggregator_Defaults(t *testing.T) {
	a := NewAggregator(types.ResearchConfig{NCBIAPIKey: "k", OpenFDAAPIKey: "f"}, nil)

	pm, ok := a.Literature.(*PubMedBackend)
	require.True(t, ok)
	assert.Equal(t, DefaultTimeout, pm.Client.Timeout)
	assert.Equal(t, DefaultUserAgent, pm.UserAgent)
	assert.Equal(t, "k", pm.APIKey)

	fda, ok := a.Regulatory.(*OpenFDABackend)
	require.True(t, ok)
	assert.Equal(t, "f", fda.APIKey)
	assert.Same(t, pm.Client, fda.Client)
}
