package domain

import (
	"errors"
	"fmt"
	"regexp"
	"slices"
)

// Captures holds the named groups of a rule match. Groups that did not take
// part in the match are absent, which is different from an empty capture.
type Captures struct {
	values map[string]string
}

// Get returns the captured text for name and whether the group took part.
func (c Captures) Get(name string) (string, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Len returns the number of groups that took part in the match.
func (c Captures) Len() int {
	return len(c.values)
}

// extractFunc converts the captures of a matched rule into a spot.
type extractFunc func(Captures) (Spot, error)

// Rule binds a category and dialect to a line pattern and an extractor.
type Rule struct {
	Category Category
	Dialect  Dialect
	Pattern  *regexp.Regexp

	// guard, when set, must also accept the trimmed line. It carries layout
	// constraints a regular expression expresses poorly, such as line width.
	guard    func(line string) bool
	required []string
	extract  extractFunc
}

// Match is the outcome of a successful registry lookup.
type Match struct {
	Category Category
	Dialect  Dialect
	Captures Captures

	rule *Rule
}

// Registry is an ordered, read-only list of rules. It is safe for concurrent
// use once built.
type Registry struct {
	rules []Rule
}

// NewRegistry validates rules and returns a registry that evaluates them in
// the given order.
func NewRegistry(rules ...Rule) (*Registry, error) {
	if len(rules) == 0 {
		return nil, errors.New("registry needs at least one rule")
	}
	for i, r := range rules {
		if r.Pattern == nil {
			return nil, fmt.Errorf("rule %d (%s/%s): nil pattern", i, r.Category, r.Dialect)
		}
		if r.extract == nil {
			return nil, fmt.Errorf("rule %d (%s/%s): nil extractor", i, r.Category, r.Dialect)
		}
		names := r.Pattern.SubexpNames()
		for _, name := range r.required {
			if !slices.Contains(names, name) {
				return nil, fmt.Errorf("rule %d (%s/%s): pattern has no group %q", i, r.Category, r.Dialect, name)
			}
		}
	}
	return &Registry{rules: slices.Clone(rules)}, nil
}

// MustNewRegistry is like NewRegistry but panics on an invalid rule set. Use
// it for registries built at program start.
func MustNewRegistry(rules ...Rule) *Registry {
	r, err := NewRegistry(rules...)
	if err != nil {
		panic(err)
	}
	return r
}

// Rules returns a copy of the rules in evaluation order.
func (r *Registry) Rules() []Rule {
	return slices.Clone(r.rules)
}

// Match trims line and returns the first rule, in registration order, that
// matches all of it.
func (r *Registry) Match(line string) (Match, bool) {
	line = trimLine(line)
	if line == "" {
		return Match{}, false
	}
	for i := range r.rules {
		rule := &r.rules[i]
		if rule.guard != nil && !rule.guard(line) {
			continue
		}
		idx := rule.Pattern.FindStringSubmatchIndex(line)
		if idx == nil {
			continue
		}
		return Match{
			Category: rule.Category,
			Dialect:  rule.Dialect,
			Captures: capturesFrom(rule.Pattern, line, idx),
			rule:     rule,
		}, true
	}
	return Match{}, false
}

func capturesFrom(re *regexp.Regexp, line string, idx []int) Captures {
	values := make(map[string]string)
	for i, name := range re.SubexpNames() {
		if name == "" || idx[2*i] < 0 {
			continue
		}
		values[name] = line[idx[2*i]:idx[2*i+1]]
	}
	return Captures{values: values}
}

// newRule compiles pattern and panics if it is invalid, so a broken rule
// fails at program start rather than per line.
func newRule(category Category, dialect Dialect, pattern string, extract extractFunc, required ...string) Rule {
	return Rule{
		Category: category,
		Dialect:  dialect,
		Pattern:  regexp.MustCompile(pattern),
		required: required,
		extract:  extract,
	}
}

func (r Rule) withGuard(guard func(string) bool) Rule {
	r.guard = guard
	return r
}
