// Package mapper aligns subject names across catalogs.
//
// Catalogs name the same subject differently: one spells out
// "Applied Mathematics 1", another files it under "APM1". MapForward turns
// a name into a code by trying strategies in precedence order; MapBackward
// expands a code into candidate names.
package mapper

import (
	"sort"
	"strings"
	"sync"

	"engram/pkg/logger"
	"engram/pkg/models"
)

const (
	DefaultFuzzyThreshold = 0.6
	DefaultBranchBoost    = 0.2

	directConfidence    = 1.0
	patternConfidence   = 0.9
	expansionConfidence = 0.8
	maxFuzzyCandidates  = 3
)

type Options struct {
	Rules          *Rules  // nil uses the embedded rule set
	FuzzyThreshold float64 // fuzzy scores must be strictly above this
	BranchBoost    float64 // weight of the branch-context score; negative disables it
	Logger         *logger.Logger
}

// Strategy is one tier of forward mapping.
type Strategy interface {
	Method() models.MappingMethod
	Match(name, branch string) (models.SubjectMapping, bool)
}

type cacheKey struct{ name, branch string }

type Mapper struct {
	rules      *Rules
	strategies []Strategy
	threshold  float64
	log        *logger.Logger

	mu    sync.RWMutex
	cache map[cacheKey]models.SubjectMapping
}

func New(opts Options) *Mapper {
	if opts.Rules == nil {
		opts.Rules = DefaultRules()
	}
	if opts.FuzzyThreshold <= 0 {
		opts.FuzzyThreshold = DefaultFuzzyThreshold
	}
	if opts.BranchBoost < 0 {
		opts.BranchBoost = 0
	} else if opts.BranchBoost == 0 {
		opts.BranchBoost = DefaultBranchBoost
	}
	return &Mapper{
		rules: opts.Rules,
		strategies: []Strategy{
			directStrategy{rules: opts.Rules},
			patternStrategy{rules: opts.Rules},
			fuzzyStrategy{rules: opts.Rules, threshold: opts.FuzzyThreshold, boost: opts.BranchBoost},
		},
		threshold: opts.FuzzyThreshold,
		log:       logger.OrNop(opts.Logger),
		cache:     make(map[cacheKey]models.SubjectMapping),
	}
}

// Strategies returns the forward tiers in precedence order.
func (m *Mapper) Strategies() []Strategy { return m.strategies }

// MapForward resolves a subject name to a code. The semester is accepted
// for symmetry with the catalog API; no rule depends on it.
func (m *Mapper) MapForward(name, branch, semester string) models.SubjectMapping {
	key := cacheKey{name: name, branch: strings.ToUpper(branch)}

	m.mu.RLock()
	res, ok := m.cache[key]
	m.mu.RUnlock()
	if ok {
		return res
	}

	res = m.mapForward(name, key.branch)
	m.log.Debug("subject mapped", "subject", name, "branch", key.branch, "semester", semester,
		"code", res.Code, "method", res.Method, "confidence", res.Confidence)

	m.mu.Lock()
	m.cache[key] = res
	m.mu.Unlock()
	return res
}

func (m *Mapper) mapForward(name, branch string) models.SubjectMapping {
	for _, s := range m.strategies {
		if res, ok := s.Match(name, branch); ok {
			return res
		}
	}
	return models.SubjectMapping{
		Confidence: 0,
		Method:     models.MethodNone,
		Suggestion: Suggest(name),
	}
}

// MapBackward expands a code into subject names. When candidates are
// given, fuzzy matches are drawn from them.
func (m *Mapper) MapBackward(code string, candidates []string) models.ReverseMapping {
	if name, ok := m.rules.Reverse.Get(code); ok {
		return models.ReverseMapping{Names: []string{name}, Confidence: directConfidence, Method: models.MethodReverseDirect}
	}

	var direct []string
	for _, e := range m.rules.Direct.Entries {
		if e.Value == code {
			direct = append(direct, e.Key)
		}
	}
	if len(direct) > 0 {
		return models.ReverseMapping{Names: direct, Confidence: directConfidence, Method: models.MethodDirect}
	}

	if fuzzy, ok := m.backwardFuzzy(code, candidates); ok {
		return fuzzy
	}

	if name, ok := m.rules.Expansions.Get(code); ok {
		return models.ReverseMapping{Names: []string{name}, Confidence: expansionConfidence, Method: models.MethodReversePattern}
	}

	return models.ReverseMapping{Names: []string{}, Method: models.MethodNone}
}

func (m *Mapper) backwardFuzzy(code string, candidates []string) (models.ReverseMapping, bool) {
	keywords, ok := m.rules.Keywords.Get(code)
	if !ok || len(candidates) == 0 {
		return models.ReverseMapping{}, false
	}

	type scored struct {
		name  string
		score float64
	}
	var hits []scored
	for _, c := range candidates {
		if s := Score(Keywords(c), keywords); s > m.threshold {
			hits = append(hits, scored{c, s})
		}
	}
	if len(hits) == 0 {
		return models.ReverseMapping{}, false
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > maxFuzzyCandidates {
		hits = hits[:maxFuzzyCandidates]
	}

	names := make([]string, len(hits))
	for i, h := range hits {
		names[i] = h.name
	}
	return models.ReverseMapping{Names: names, Confidence: hits[0].score, Method: models.MethodFuzzy}, true
}

type directStrategy struct{ rules *Rules }

func (directStrategy) Method() models.MappingMethod { return models.MethodDirect }

func (s directStrategy) Match(name, _ string) (models.SubjectMapping, bool) {
	code, ok := s.rules.Direct.Get(Normalize(name))
	if !ok {
		return models.SubjectMapping{}, false
	}
	return models.SubjectMapping{Code: code, Confidence: directConfidence, Method: models.MethodDirect}, true
}

type patternStrategy struct{ rules *Rules }

func (patternStrategy) Method() models.MappingMethod { return models.MethodPattern }

func (s patternStrategy) Match(name, _ string) (models.SubjectMapping, bool) {
	for i := range s.rules.Patterns {
		p := &s.rules.Patterns[i]
		if p.Matches(name) {
			return models.SubjectMapping{Code: p.Code, Confidence: patternConfidence, Method: models.MethodPattern}, true
		}
	}
	return models.SubjectMapping{}, false
}

type fuzzyStrategy struct {
	rules     *Rules
	threshold float64
	boost     float64
}

func (fuzzyStrategy) Method() models.MappingMethod { return models.MethodFuzzy }

// Match keeps the first code with the strictly highest combined score.
// Combined scores can pass 1.0 with the branch boost; the reported
// confidence is capped at 1.0.
func (s fuzzyStrategy) Match(name, branch string) (models.SubjectMapping, bool) {
	words := Keywords(name)
	branchWords, hasContext := s.rules.Branches.Get(branch)

	best, bestScore := "", 0.0
	for _, e := range s.rules.Keywords.Entries {
		score := Score(words, e.Values)
		if hasContext {
			score += Score(words, branchWords) * s.boost
		}
		if score > bestScore && score > s.threshold {
			best, bestScore = e.Key, score
		}
	}
	if best == "" {
		return models.SubjectMapping{}, false
	}
	return models.SubjectMapping{Code: best, Confidence: min(bestScore, 1.0), Method: models.MethodFuzzy}, true
}
