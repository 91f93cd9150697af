package grading

import (
	"strings"
)

// OtherGroup collects courses no canonical group claims.
const OtherGroup = "OTHER"

// CanonicalGroups is the fixed emission order of the grade levels.
var CanonicalGroups = []string{"PRIMEROS", "SEGUNDOS", "TERCEROS", "CUARTOS", "QUINTOS", "SEXTOS"}

// GroupingStrategy maps a free-text course onto a group label.
// Groups listed by Order come first, in that order; any other label follows in first-seen order.
type GroupingStrategy interface {
	Key(course string) string
	Order() []string
}

// ExactMatch groups by the upper-cased course itself.
// Unknown courses form their own groups unless CollapseUnmatched folds them into OtherGroup.
type ExactMatch struct {
	Groups            []string
	CollapseUnmatched bool
}

func (s ExactMatch) Key(course string) string {
	key := strings.ToUpper(strings.TrimSpace(course))
	if key == "" {
		return OtherGroup
	}
	for _, g := range s.Groups {
		if g == key {
			return key
		}
	}
	if s.CollapseUnmatched {
		return OtherGroup
	}
	return key
}

func (s ExactMatch) Order() []string { return s.Groups }

type PrefixRule struct {
	Prefix string
	Group  string
}

// DefaultPrefixRules map the grade-level stems onto CanonicalGroups.
var DefaultPrefixRules = []PrefixRule{
	{Prefix: "PRIMER", Group: "PRIMEROS"},
	{Prefix: "SEGUND", Group: "SEGUNDOS"},
	{Prefix: "TERCER", Group: "TERCEROS"},
	{Prefix: "CUART", Group: "CUARTOS"},
	{Prefix: "QUINT", Group: "QUINTOS"},
	{Prefix: "SEXT", Group: "SEXTOS"},
}

// PrefixMatch groups by the first rule whose prefix starts the upper-cased course; no match gives OtherGroup.
type PrefixMatch struct {
	Rules []PrefixRule
}

func (s PrefixMatch) Key(course string) string {
	c := strings.ToUpper(strings.TrimSpace(course))
	for _, r := range s.Rules {
		if strings.HasPrefix(c, r.Prefix) {
			return r.Group
		}
	}
	return OtherGroup
}

func (s PrefixMatch) Order() []string {
	order := make([]string, 0, len(s.Rules))
	seen := make(map[string]bool, len(s.Rules))
	for _, r := range s.Rules {
		if !seen[r.Group] {
			seen[r.Group] = true
			order = append(order, r.Group)
		}
	}
	return order
}

// NewExactMatch returns an ExactMatch over CanonicalGroups.
func NewExactMatch(collapseUnmatched bool) ExactMatch {
	return ExactMatch{Groups: CanonicalGroups, CollapseUnmatched: collapseUnmatched}
}

// NewPrefixMatch returns a PrefixMatch using DefaultPrefixRules.
func NewPrefixMatch() PrefixMatch {
	return PrefixMatch{Rules: DefaultPrefixRules}
}
