// Package parser lowers a free-text utterance into a structured
// domain.QueryPlan: an LLM extraction pass with a fixed instruction,
// backed by github.com/mozilla-ai/any-llm-go, and a deterministic
// rule-based fallback when the LLM is unavailable or returns
// unparseable output.
package parser

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/rs/zerolog"

	"github.com/jiyeon-yoon/picta-prototype/internal/logging"
	"github.com/jiyeon-yoon/picta-prototype/pkg/domain"
	"github.com/jiyeon-yoon/picta-prototype/pkg/geocoder"
)

// geocoderClient is the narrow capability the parser needs from the
// geocoder, so tests can substitute a fake without a live HTTP
// gazetteer.
type geocoderClient interface {
	Resolve(ctx context.Context, name string) *domain.GeoTarget
}

// Parser lowers utterances into QueryPlans.
type Parser struct {
	llm LLM // nil means fallback-only
	geo geocoderClient
	now func() time.Time
	log zerolog.Logger
}

// New returns a Parser backed by llm (pass nil to force
// fallback-only parsing) and geo for attaching resolved coordinates to
// a plan's location clause.
func New(llm LLM, geo geocoderClient) *Parser {
	return &Parser{llm: llm, geo: geo, now: time.Now, log: logging.Component("parser")}
}

// NewFromDefault returns a Parser using the process-wide default LLM
// provider (built from LLM_PROVIDER/LLM_MODEL configuration) and geo.
// If no provider is configured, the returned Parser runs fallback-only.
func NewFromDefault(geo geocoderClient) (*Parser, error) {
	llm, err := defaultProvider()
	if err != nil {
		return nil, fmt.Errorf("parser: default provider: %w", err)
	}
	return New(llm, geo), nil
}

// llmPlanJSON is the explicit, validated shape the LLM's JSON response
// is parsed into. Never an untyped map, so a malformed or
// unexpectedly-shaped response fails loudly and falls back rather than
// silently propagating garbage.
type llmPlanJSON struct {
	Intent    string `json:"intent"`
	TimeRange struct {
		Start string `json:"start"`
		End   string `json:"end"`
	} `json:"time_range"`
	LocationNames []string `json:"location_names"`
	IndoorOutdoor string   `json:"indoor_outdoor"`
	Keywords      []string `json:"keywords"`
	People        []string `json:"people"`
	SearchText    string   `json:"search_text"`
}

const systemPromptTemplate = `You extract a structured search plan from a photo-search query. Today's date is %s.
Respond with a single JSON object only, no surrounding prose, with exactly these fields:
  "intent": a short label for what the user wants
  "time_range": {"start": "YYYY-MM-DD or empty", "end": "YYYY-MM-DD or empty"}
  "location_names": array of place name variants, including the native-language name,
    an English/romanized alias, and the enclosing region (e.g. "광안리" -> ["광안리", "Gwangalli", "부산", "Busan"])
  "indoor_outdoor": "indoor", "outdoor", or ""
  "keywords": array of short topical keywords
  "people": array of named people or relations mentioned
  "search_text": a short English phrase describing the visual content to search for;
    it must NOT contain any place name

Resolve relative dates against today: "작년" means last calendar year; "작년 여름" means
June 1 to August 31 of last year; "올해" means the current year; "몇 년 전" means the
last five years.`

// Parse lowers utterance into a QueryPlan. It tries the LLM first (if
// configured); any failure (timeout, transport error, invalid JSON)
// is logged and recovered by falling back to the deterministic rule
// parser, never propagated to the caller.
func (p *Parser) Parse(ctx context.Context, utterance string) domain.QueryPlan {
	var plan domain.QueryPlan

	if p.llm != nil {
		parsed, err := p.parseWithLLM(ctx, utterance)
		if err != nil {
			p.log.Warn().Err(err).Msg("llm parse failed, falling back to rule-based parser")
			plan = fallbackPlan(utterance, p.now())
		} else {
			plan = parsed
		}
	} else {
		plan = fallbackPlan(utterance, p.now())
	}

	return p.attachGeocoding(ctx, plan)
}

func (p *Parser) parseWithLLM(ctx context.Context, utterance string) (domain.QueryPlan, error) {
	systemPrompt := fmt.Sprintf(systemPromptTemplate, p.now().Format("2006-01-02"))

	raw, err := p.llm.Complete(ctx, systemPrompt, utterance)
	if err != nil {
		return domain.QueryPlan{}, err
	}

	body := extractJSONObject(raw)
	if body == "" {
		return domain.QueryPlan{}, fmt.Errorf("llm response contained no JSON object: %q", raw)
	}

	var parsed llmPlanJSON
	if err := json.Unmarshal([]byte(body), &parsed); err != nil {
		return domain.QueryPlan{}, fmt.Errorf("invalid plan JSON: %w", err)
	}

	plan := domain.QueryPlan{
		SearchText: parsed.SearchText,
		Keywords:   parsed.Keywords,
		People:     parsed.People,
	}
	if parsed.TimeRange.Start != "" {
		s := parsed.TimeRange.Start
		plan.TimeRange.Start = &s
	}
	if parsed.TimeRange.End != "" {
		e := parsed.TimeRange.End
		plan.TimeRange.End = &e
	}
	if len(parsed.LocationNames) > 0 {
		plan.Location = &domain.LocationQuery{Names: parsed.LocationNames}
	}
	return plan, nil
}

// extractJSONObject returns the substring of s from its first '{' to
// its last '}', tolerating an LLM that wraps its JSON in prose or a
// markdown fence. Braces are not balanced: text between two separate
// objects is kept in the result.
func extractJSONObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// attachGeocoding chooses one of the plan's location name variants to
// hand to the geocoder, attaches the resolved coordinates, and
// enforces that search_text never contains a location name.
func (p *Parser) attachGeocoding(ctx context.Context, plan domain.QueryPlan) domain.QueryPlan {
	if plan.Location == nil || len(plan.Location.Names) == 0 {
		return plan
	}

	if p.geo != nil {
		name := chooseGeocodeName(plan.Location.Names)
		if name != "" {
			plan.Location.Coords = p.geo.Resolve(ctx, name)
		}
	}

	plan.SearchText = stripNames(plan.SearchText, plan.Location.Names)
	return plan
}

// chooseGeocodeName picks the name variant to geocode, preferring (1)
// an ASCII major-city alias, (2) any ASCII name longer than 2
// characters, (3) the first name in the list.
func chooseGeocodeName(names []string) string {
	for _, n := range names {
		if isASCII(n) && geocoder.IsMajorCity(n) {
			return n
		}
	}
	for _, n := range names {
		if isASCII(n) && len([]rune(n)) > 2 {
			return n
		}
	}
	if len(names) > 0 {
		return names[0]
	}
	return ""
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

// stripNames removes every occurrence (case-insensitive) of names from
// text and collapses the resulting whitespace, enforcing the
// search_text-excludes-place-names invariant regardless of what the
// LLM or the fallback produced.
func stripNames(text string, names []string) string {
	for _, n := range names {
		if n == "" {
			continue
		}
		text = replaceFold(text, n, "")
	}
	return strings.Join(strings.Fields(text), " ")
}

// replaceFold removes every case-insensitive occurrence of old in s.
func replaceFold(s, old, new string) string {
	lowerS := strings.ToLower(s)
	lowerOld := strings.ToLower(old)
	if lowerOld == "" {
		return s
	}

	var b strings.Builder
	i := 0
	for {
		idx := strings.Index(lowerS[i:], lowerOld)
		if idx < 0 {
			b.WriteString(s[i:])
			break
		}
		b.WriteString(s[i : i+idx])
		b.WriteString(new)
		i += idx + len(lowerOld)
	}
	return b.String()
}
