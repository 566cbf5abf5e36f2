package mapper

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"engram/pkg/models"
)

func TestDefaultRulesLoad(t *testing.T) {
	r := DefaultRules()
	assert.NotEmpty(t, r.Direct.Entries)
	assert.NotEmpty(t, r.Patterns)
	assert.Len(t, r.Branches.Entries, 8)

	code, ok := r.Direct.Get("applied-mathematics-1")
	require.True(t, ok)
	assert.Equal(t, "APM1", code)
	assert.Equal(t, "APC", r.Keywords.Entries[0].Key, "document order is kept")
}

func TestNormalizeAndKeywords(t *testing.T) {
	assert.Equal(t, "applied-mathematics-1", Normalize("  Applied Mathematics - 1 "))
	assert.Equal(t, "object-oriented-programming-using-c", Normalize("Object Oriented Programming using C++"))
	assert.Equal(t, []string{"object", "oriented", "programming"}, Keywords("Object-Oriented Programming using C++"))
	assert.Equal(t, "MBL", Suggest("Marine Biology Lab Work"))
	assert.Equal(t, "", Suggest("C"))
}

func TestMapForwardDirect(t *testing.T) {
	m := New(Options{})
	cases := map[string]string{
		"Applied Mathematics 1":             "APM1",
		"applied-mathematics-1":             "APM1",
		"Data Structures":                   "DS",
		"Programming in C":                  "PIC",
		"Digital Logic and Computer Design": "DLCD",
		"Basic Chemistry":                   "APC",
	}
	for name, code := range cases {
		res := m.MapForward(name, "", "")
		assert.Equal(t, code, res.Code, name)
		assert.Equal(t, models.MethodDirect, res.Method, name)
		assert.Equal(t, 1.0, res.Confidence, name)
	}
}

// Every direct entry must resolve directly, even when a pattern also matches.
func TestDirectAlwaysWins(t *testing.T) {
	m := New(Options{})
	for _, e := range DefaultRules().Direct.Entries {
		res := m.MapForward(e.Key, "CSE", "SEM1")
		assert.Equal(t, models.MethodDirect, res.Method, e.Key)
		assert.Equal(t, e.Value, res.Code, e.Key)
	}
}

func TestMapForwardPattern(t *testing.T) {
	m := New(Options{})
	cases := map[string]string{
		"Applied Maths 1":             "APM1",
		"Intro to Programming with C": "PIC",
		"Object Oriented Programming": "OOPS",
		"Operating System Concepts":   "OS",
		"Design of Algorithms":        "DAA",
	}
	for name, code := range cases {
		res := m.MapForward(name, "", "")
		assert.Equal(t, code, res.Code, name)
		assert.Equal(t, models.MethodPattern, res.Method, name)
		assert.Equal(t, 0.9, res.Confidence, name)
	}
}

func TestPatternNotFollowedBy(t *testing.T) {
	var pic *PatternRule
	for i := range DefaultRules().Patterns {
		if DefaultRules().Patterns[i].Code == "PIC" {
			pic = &DefaultRules().Patterns[i]
			break
		}
	}
	require.NotNil(t, pic)

	assert.True(t, pic.Matches("Programming in C"))
	assert.True(t, pic.Matches("programming in cpp and c"))
	assert.False(t, pic.Matches("Programming in CSharp"))
	assert.False(t, pic.Matches("Programming in CPP"))
	assert.False(t, pic.Matches("C Programming"))
}

func TestMapForwardFuzzy(t *testing.T) {
	m := New(Options{})

	res := m.MapForward("Structures of Data", "", "")
	assert.Equal(t, "DS", res.Code)
	assert.Equal(t, models.MethodFuzzy, res.Method)
	assert.InDelta(t, 2.0/3.0, res.Confidence, 1e-9)

	res = m.MapForward("Structures of Data", "CSE", "")
	assert.Equal(t, "DS", res.Code)
	assert.InDelta(t, 2.0/3.0+0.2*0.2, res.Confidence, 1e-9)
}

func TestFuzzyThresholdIsStrict(t *testing.T) {
	m := New(Options{})
	name := "Artificial Zoology"

	ai, _ := DefaultRules().Keywords.Get("AI")
	require.Equal(t, 0.5, Score(Keywords(name), ai))

	res := m.MapForward(name, "", "")
	assert.False(t, res.Found())
	assert.Equal(t, models.MethodNone, res.Method)
	assert.Zero(t, res.Confidence)
	assert.Equal(t, "AZ", res.Suggestion)
}

const tinyRules = `
direct:
  alpha-beta: AB
keywords:
  AAA: [alpha, beta]
  XY: [xray, yankee]
branches:
  ONE: [alpha, gamma]
expansions:
  QQ: quick-quiz
`

func TestBranchBoostCanLiftAboveThreshold(t *testing.T) {
	rules, err := ParseRules([]byte(tinyRules))
	require.NoError(t, err)
	m := New(Options{Rules: rules})

	res := m.MapForward("Alpha Gamma", "", "")
	assert.Equal(t, models.MethodNone, res.Method, "base score 0.5 is rejected")

	res = m.MapForward("Alpha Gamma", "one", "")
	assert.Equal(t, "AAA", res.Code)
	assert.InDelta(t, 0.7, res.Confidence, 1e-9)

	noBoost := New(Options{Rules: rules, BranchBoost: -1})
	assert.False(t, noBoost.MapForward("Alpha Gamma", "ONE", "").Found())
}

func TestMapBackward(t *testing.T) {
	m := New(Options{})

	res := m.MapBackward("EG", nil)
	assert.Equal(t, models.MethodReverseDirect, res.Method)
	assert.Equal(t, []string{"engineering-graphics"}, res.Names)

	res = m.MapBackward("APC", nil)
	assert.Equal(t, models.MethodDirect, res.Method)
	assert.Equal(t, []string{"applied-chemistry", "basic-chemistry"}, res.Names)
	assert.Equal(t, 1.0, res.Confidence)

	res = m.MapBackward("NOPE", []string{"Data Structures"})
	assert.Equal(t, models.MethodNone, res.Method)
	assert.Empty(t, res.Names)
	assert.Zero(t, res.Confidence)
}

func TestMapBackwardFuzzyAndExpansion(t *testing.T) {
	rules, err := ParseRules([]byte(tinyRules))
	require.NoError(t, err)
	m := New(Options{Rules: rules})

	res := m.MapBackward("XY", []string{"Xray Yankee Zulu", "Xray Basics", "Yankee Xray"})
	assert.Equal(t, models.MethodFuzzy, res.Method)
	assert.Equal(t, []string{"Yankee Xray", "Xray Yankee Zulu"}, res.Names)
	assert.Equal(t, 1.0, res.Confidence)

	res = m.MapBackward("QQ", nil)
	assert.Equal(t, models.MethodReversePattern, res.Method)
	assert.Equal(t, []string{"quick-quiz"}, res.Names)
	assert.Equal(t, 0.8, res.Confidence)
}

func TestParseRulesRejectsBadTables(t *testing.T) {
	cases := map[string]string{
		"unnormalized key": "direct: {Applied Maths: AM}\nkeywords: {AM: [applied]}",
		"bad regex":        "direct: {a: A}\nkeywords: {A: [a]}\npatterns:\n  - {match: '(', code: A}",
		"lowercase code":   "direct: {a: A}\nkeywords: {A: [a]}\npatterns:\n  - {match: 'a', code: a}",
		"empty keywords":   "direct: {a: A}\nkeywords: {A: []}",
		"duplicate key":    "direct: {a: A, a: B}\nkeywords: {A: [a]}",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRules([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestMapForwardCachesByNameAndBranch(t *testing.T) {
	m := New(Options{})
	first := m.MapForward("Structures of Data", "cse", "SEM3")
	second := m.MapForward("Structures of Data", "CSE", "SEM4")
	assert.Equal(t, first, second)
	assert.Len(t, m.cache, 1)
}

func TestStrategiesRunInPrecedenceOrder(t *testing.T) {
	m := New(Options{})
	var methods []models.MappingMethod
	for _, s := range m.Strategies() {
		methods = append(methods, s.Method())
	}
	assert.Equal(t, []models.MappingMethod{models.MethodDirect, models.MethodPattern, models.MethodFuzzy}, methods)

	direct := m.Strategies()[0]
	res, ok := direct.Match("Data Structures", "CSE")
	require.True(t, ok)
	assert.Equal(t, "DS", res.Code)

	_, ok = direct.Match("Marine Biology Lab Work", "CSE")
	assert.False(t, ok)
}
