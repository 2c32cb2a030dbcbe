package externals

import (
	"fmt"
	"regexp"
)

// RuleSpec is the configuration form of a passthrough [Rule].
type RuleSpec struct {
	Pattern     string `toml:"pattern" json:"pattern"`
	Externalize bool   `toml:"externalize" json:"externalize"`
}

// DefaultRules externalize deep imports into known multi-entry libraries.
var DefaultRules = []RuleSpec{
	{Pattern: `^react-native-gesture-handler/[^/]+$`, Externalize: true},
}

// Rule decides the fate of module references matching Pattern.
// Externalize=false exempts matching references from every later rule and
// leaves them to the regular externals list, which lets an earlier rule
// carve an exception out of a broader later one.
type Rule struct {
	Pattern     *regexp.Regexp
	Externalize bool
}

// Rules is an ordered rule list; the first match wins.
type Rules []Rule

// CompileRules compiles specs in order.
func CompileRules(specs []RuleSpec) (Rules, error) {
	rules := make(Rules, 0, len(specs))
	for i, s := range specs {
		re, err := regexp.Compile(s.Pattern)
		if err != nil {
			return nil, fmt.Errorf("passthrough rule %d: %w", i, err)
		}
		rules = append(rules, Rule{Pattern: re, Externalize: s.Externalize})
	}
	return rules, nil
}

// DefaultPassthrough returns the compiled [DefaultRules].
func DefaultPassthrough() Rules {
	rules, err := CompileRules(DefaultRules)
	if err != nil {
		panic(err)
	}
	return rules
}

// Match evaluates ref against the rules in order. matched is false when no
// rule applies and the caller should fall back to its own externals set.
func (rs Rules) Match(ref string) (externalize, matched bool) {
	for _, r := range rs {
		if r.Pattern.MatchString(ref) {
			return r.Externalize, true
		}
	}
	return false, false
}
