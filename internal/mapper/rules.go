package mapper

import (
	_ "embed"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

// Entry is one row of an ordered string table.
type Entry struct {
	Key   string `validate:"required"`
	Value string `validate:"required"`
}

// Table is a YAML mapping that keeps document order.
type Table struct {
	Entries []Entry `validate:"dive"`
	index   map[string]string
}

func (t *Table) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	t.Entries = make([]Entry, 0, len(node.Content)/2)
	t.index = make(map[string]string, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k, v := node.Content[i], node.Content[i+1]
		if v.Kind != yaml.ScalarNode {
			return fmt.Errorf("line %d: value of %q must be a scalar", v.Line, k.Value)
		}
		if _, dup := t.index[k.Value]; dup {
			return fmt.Errorf("line %d: duplicate key %q", k.Line, k.Value)
		}
		t.Entries = append(t.Entries, Entry{Key: k.Value, Value: v.Value})
		t.index[k.Value] = v.Value
	}
	return nil
}

func (t Table) Get(key string) (string, bool) {
	v, ok := t.index[key]
	return v, ok
}

// ListEntry is one row of an ordered key -> word list table.
type ListEntry struct {
	Key    string   `validate:"required"`
	Values []string `validate:"required,min=1,dive,required"`
}

// ListTable is a YAML mapping of sequences that keeps document order.
type ListTable struct {
	Entries []ListEntry `validate:"dive"`
	index   map[string][]string
}

func (t *ListTable) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: expected a mapping", node.Line)
	}
	t.Entries = make([]ListEntry, 0, len(node.Content)/2)
	t.index = make(map[string][]string, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		k := node.Content[i]
		var words []string
		if err := node.Content[i+1].Decode(&words); err != nil {
			return fmt.Errorf("line %d: %s: %w", k.Line, k.Value, err)
		}
		if _, dup := t.index[k.Value]; dup {
			return fmt.Errorf("line %d: duplicate key %q", k.Line, k.Value)
		}
		t.Entries = append(t.Entries, ListEntry{Key: k.Value, Values: words})
		t.index[k.Value] = words
	}
	return nil
}

func (t ListTable) Get(key string) ([]string, bool) {
	v, ok := t.index[key]
	return v, ok
}

// PatternRule maps any name matching Match onto Code. Matching is
// case-insensitive. A match whose end is directly followed by one of
// NotFollowedBy does not count.
type PatternRule struct {
	Match         string   `yaml:"match" validate:"required"`
	NotFollowedBy []string `yaml:"not_followed_by" validate:"dive,required"`
	Code          string   `yaml:"code" validate:"required,uppercase"`

	re   *regexp.Regexp
	tail *regexp.Regexp
}

func (p *PatternRule) compile() error {
	re, err := regexp.Compile("(?i)" + p.Match)
	if err != nil {
		return err
	}
	p.re = re
	if len(p.NotFollowedBy) > 0 {
		p.tail = regexp.MustCompile("(?i)(?:" + p.Match + ")$")
		for i, s := range p.NotFollowedBy {
			p.NotFollowedBy[i] = strings.ToLower(s)
		}
	}
	return nil
}

// Matches reports whether the rule accepts name.
func (p *PatternRule) Matches(name string) bool {
	if !p.re.MatchString(name) {
		return false
	}
	if p.tail == nil {
		return true
	}
	// try every position a match can end at
	for end := 1; end <= len(name); end++ {
		if !p.tail.MatchString(name[:end]) {
			continue
		}
		rest := strings.ToLower(name[end:])
		blocked := false
		for _, s := range p.NotFollowedBy {
			if strings.HasPrefix(rest, s) {
				blocked = true
				break
			}
		}
		if !blocked {
			return true
		}
	}
	return false
}

// Rules holds every table the mapper consults.
type Rules struct {
	Direct     Table         `yaml:"direct" validate:"required"`
	Reverse    Table         `yaml:"reverse"`
	Patterns   []PatternRule `yaml:"patterns" validate:"dive"`
	Keywords   ListTable     `yaml:"keywords" validate:"required"`
	Branches   ListTable     `yaml:"branches"`
	Expansions Table         `yaml:"expansions"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// ParseRules decodes and checks a rules document.
func ParseRules(data []byte) (*Rules, error) {
	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("mapper rules: %w", err)
	}
	if err := validate.Struct(&r); err != nil {
		return nil, fmt.Errorf("mapper rules: %w", err)
	}

	var errs []error
	for _, e := range r.Direct.Entries {
		if Normalize(e.Key) != e.Key {
			errs = append(errs, fmt.Errorf("direct key %q is not normalized", e.Key))
		}
	}
	for i := range r.Patterns {
		if err := r.Patterns[i].compile(); err != nil {
			errs = append(errs, fmt.Errorf("pattern %d (%s): %w", i, r.Patterns[i].Code, err))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("mapper rules: %w", err)
	}
	return &r, nil
}

var defaultRules = sync.OnceValues(func() (*Rules, error) {
	return ParseRules(defaultRulesYAML)
})

// DefaultRules returns the embedded rule set.
func DefaultRules() *Rules {
	r, err := defaultRules()
	if err != nil {
		panic(err)
	}
	return r
}
