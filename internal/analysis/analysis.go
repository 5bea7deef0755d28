// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package analysis turns the plain text of a clinical protocol into a
// structured AnalysisResult by prompting a generative model and recovering
// the JSON object embedded in its free-text reply.
package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pdiddy/protocol-analyzer/internal/logging"
	"github.com/pdiddy/protocol-analyzer/pkg/types"
)

var (
	// ErrEmptyDocument is returned when the document text is empty or
	// whitespace only. The model is not called.
	ErrEmptyDocument = errors.New("document is empty or contains no text")

	// ErrAIUnavailable wraps every failure to obtain a reply from the model:
	// transport, authentication, quota, or a missing provider.
	ErrAIUnavailable = errors.New("AI service unavailable")

	// ErrMalformedAIResponse matches a *MalformedResponseError.
	ErrMalformedAIResponse = errors.New("malformed AI response")

	errNoJSONObject      = errors.New("no JSON object found in reply")
	errNotAnalysisObject = errors.New("JSON object has no protocolSummary, mainCondition or drugs")
)

// MalformedResponseError reports a model reply with no recoverable JSON
// object. Raw holds the reply for diagnostics.
type MalformedResponseError struct {
	Raw string
	Err error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("%s: %v", ErrMalformedAIResponse, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrMalformedAIResponse) match.
func (e *MalformedResponseError) Is(target error) bool {
	return target == ErrMalformedAIResponse
}

// Generator abstracts the generative model so tests can supply a mock.
// Generate sends one prompt and returns the reply text.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Extractor converts protocol text into an AnalysisResult with exactly one
// model call per document. It holds no per-request state.
type Extractor struct {
	Generator Generator
	Logger    *zap.Logger

	// now and newID are replaced in tests.
	now   func() time.Time
	newID func() string
}

// NewExtractor returns an Extractor backed by gen.
func NewExtractor(gen Generator, logger *zap.Logger) *Extractor {
	return &Extractor{Generator: gen, Logger: logger}
}

// Extract analyzes text and always returns a result. Failures are reported
// through Success=false and a human-readable Error.
func (e *Extractor) Extract(ctx context.Context, text string) types.AnalysisResult {
	res, _ := e.Analyze(ctx, text)
	return res
}

// Analyze analyzes text. On failure the returned result is the failure
// result Extract would return and err is one of ErrEmptyDocument,
// ErrAIUnavailable or a *MalformedResponseError.
func (e *Extractor) Analyze(ctx context.Context, text string) (types.AnalysisResult, error) {
	if strings.TrimSpace(text) == "" {
		return e.fail(ErrEmptyDocument)
	}

	prompt, err := RenderPrompt(text)
	if err != nil {
		return e.fail(fmt.Errorf("rendering prompt: %w", err))
	}

	if e.Generator == nil {
		return e.fail(fmt.Errorf("%w: no AI provider configured", ErrAIUnavailable))
	}
	reply, err := e.Generator.Generate(ctx, prompt)
	if err != nil {
		return e.fail(fmt.Errorf("%w: %w", ErrAIUnavailable, err))
	}

	payload, err := decodePayload(reply)
	if err != nil {
		e.log().Debug("unparseable AI reply", zap.String("reply", truncate(reply, 2000)))
		return e.fail(err)
	}

	res := types.AnalysisResult{
		Success:         true,
		ProtocolSummary: string(payload.ProtocolSummary),
		MainCondition:   string(payload.MainCondition),
		Drugs:           e.mapDrugs(payload.Drugs),
		Timestamp:       e.timestamp(),
	}
	e.log().Info("protocol analyzed",
		zap.Int("drugs", len(res.Drugs)),
		zap.String("main_condition", res.MainCondition),
	)
	return res, nil
}

func (e *Extractor) fail(err error) (types.AnalysisResult, error) {
	e.log().Warn("protocol analysis failed", zap.Error(err))
	return types.AnalysisResult{
		Success:   false,
		Error:     err.Error(),
		Timestamp: e.timestamp(),
	}, err
}

func (e *Extractor) timestamp() string {
	now := time.Now
	if e.now != nil {
		now = e.now
	}
	return now().Format(types.TimestampLayout)
}

func (e *Extractor) log() *zap.Logger {
	return logging.OrNop(e.Logger)
}

// mapDrugs decodes each drug entry independently. Entries that are not
// objects, or that name no drug at all, are dropped. Missing or repeated
// ids are replaced so every returned id is unique and non-empty.
func (e *Extractor) mapDrugs(entries []json.RawMessage) []types.DrugRecord {
	newID := uuid.NewString
	if e.newID != nil {
		newID = e.newID
	}

	drugs := make([]types.DrugRecord, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	for i, raw := range entries {
		var d aiDrug
		if err := json.Unmarshal(raw, &d); err != nil {
			e.log().Debug("skipping undecodable drug entry", zap.Int("index", i), zap.Error(err))
			continue
		}
		rec := d.record()
		if rec.Name == "" && rec.InnEnglish == "" && rec.InnRussian == "" {
			e.log().Debug("skipping unnamed drug entry", zap.Int("index", i))
			continue
		}
		if rec.ID == "" || seen[rec.ID] {
			rec.ID = newID()
		}
		seen[rec.ID] = true
		drugs = append(drugs, rec)
	}
	return drugs
}

// decodePayload recovers the JSON object from a model reply and decodes the
// top-level fields. An object with none of the analysis fields is malformed.
// A "drugs" value that is not an array yields no drugs.
func decodePayload(reply string) (aiPayload, error) {
	raw, ok := recoverPayload(reply)
	if !ok {
		return aiPayload{}, &MalformedResponseError{Raw: reply, Err: errNoJSONObject}
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keys); err != nil {
		return aiPayload{}, &MalformedResponseError{Raw: reply, Err: err}
	}
	if !hasPayloadKey(keys) {
		return aiPayload{}, &MalformedResponseError{Raw: reply, Err: errNotAnalysisObject}
	}

	var top struct {
		ProtocolSummary flexString      `json:"protocolSummary"`
		MainCondition   flexString      `json:"mainCondition"`
		Drugs           json.RawMessage `json:"drugs"`
	}
	if err := json.Unmarshal(raw, &top); err != nil {
		return aiPayload{}, &MalformedResponseError{Raw: reply, Err: err}
	}

	p := aiPayload{ProtocolSummary: top.ProtocolSummary, MainCondition: top.MainCondition}
	if len(top.Drugs) > 0 {
		if err := json.Unmarshal(top.Drugs, &p.Drugs); err != nil {
			p.Drugs = nil
		}
	}
	return p, nil
}

// recoverPayload finds the JSON object inside free text. The span from the
// first '{' to the last '}' is tried first. If it does not parse, each '{'
// that opens a top-level object is tried in turn and the first complete
// object wins. A '{' nested inside an object that never closes is never a
// candidate.
func recoverPayload(text string) (json.RawMessage, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end < start {
		return nil, false
	}

	span := text[start : end+1]
	if json.Valid([]byte(span)) {
		return json.RawMessage(span), true
	}

	for _, i := range topLevelOpenings(text) {
		var raw json.RawMessage
		dec := json.NewDecoder(strings.NewReader(text[i:]))
		if err := dec.Decode(&raw); err == nil {
			return raw, true
		}
	}
	return nil, false
}

// topLevelOpenings returns the offsets of every '{' that is not nested in an
// earlier '{'. Quoted strings inside braces are skipped so braces within
// them do not count.
func topLevelOpenings(text string) []int {
	var (
		offsets  []int
		depth    int
		inString bool
		escaped  bool
	)
	for i := 0; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				offsets = append(offsets, i)
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
		}
	}
	return offsets
}

// hasPayloadKey reports whether a decoded object carries at least one of
// the analysis fields at its top level.
func hasPayloadKey(keys map[string]json.RawMessage) bool {
	for _, k := range []string{"protocolSummary", "mainCondition", "drugs"} {
		if _, ok := keys[k]; ok {
			return true
		}
	}
	return false
}

// aiPayload is the decoded top level of a model reply.
type aiPayload struct {
	ProtocolSummary flexString
	MainCondition   flexString
	Drugs           []json.RawMessage
}

// aiDrug is one drug entry as the model returns it.
type aiDrug struct {
	ID              flexString `json:"id"`
	Name            flexString `json:"name"`
	InnEnglish      flexString `json:"innEnglish"`
	InnRussian      flexString `json:"innRussian"`
	Dosage          flexString `json:"dosage"`
	Route           flexString `json:"route"`
	Frequency       flexString `json:"frequency"`
	Duration        flexString `json:"duration"`
	Indication      flexString `json:"indication"`
	TargetCondition flexString `json:"targetCondition"`
}

func (d aiDrug) record() types.DrugRecord {
	return types.DrugRecord{
		ID:              strings.TrimSpace(string(d.ID)),
		Name:            strings.TrimSpace(string(d.Name)),
		InnEnglish:      strings.TrimSpace(string(d.InnEnglish)),
		InnRussian:      strings.TrimSpace(string(d.InnRussian)),
		Dosage:          string(d.Dosage),
		Route:           string(d.Route),
		Frequency:       string(d.Frequency),
		Duration:        string(d.Duration),
		Indication:      string(d.Indication),
		TargetCondition: strings.TrimSpace(string(d.TargetCondition)),
	}
}

// flexString accepts any JSON value. Strings decode as-is, null as "", and
// numbers, booleans, objects and arrays keep their JSON text.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	switch {
	case trimmed == "null":
		*f = ""
	case strings.HasPrefix(trimmed, `"`):
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = flexString(s)
	default:
		*f = flexString(trimmed)
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
