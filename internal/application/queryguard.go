package application

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/ericfisherdev/patientreg/internal/domain/model"
)

// GuardMode selects how the query guard matches denied keywords.
type GuardMode string

const (
	// GuardLeading blocks statements whose normalized text starts with a
	// denied keyword.
	GuardLeading GuardMode = "leading"
	// GuardAnywhere blocks statements that mention a denied keyword as a
	// whole word anywhere, including inside string literals.
	GuardAnywhere GuardMode = "anywhere"
)

// ParseGuardMode converts a configuration value into a GuardMode.
func ParseGuardMode(s string) (GuardMode, error) {
	switch GuardMode(strings.ToLower(strings.TrimSpace(s))) {
	case GuardLeading:
		return GuardLeading, nil
	case GuardAnywhere:
		return GuardAnywhere, nil
	}
	return "", fmt.Errorf("unknown guard mode %q: must be %q or %q", s, GuardLeading, GuardAnywhere)
}

// QueryPolicy lists the statement keywords the console may not run.
type QueryPolicy struct {
	Denied []string
	Mode   GuardMode
}

// DefaultQueryPolicy denies drop, delete, update and truncate by leading keyword.
func DefaultQueryPolicy() QueryPolicy {
	return QueryPolicy{
		Denied: []string{"drop", "delete", "update", "truncate"},
		Mode:   GuardLeading,
	}
}

// QueryGuard screens ad-hoc statements before they reach the store. It is a
// syntactic filter: it can reject harmless statements and miss harmful ones
// (for example a second statement in a batch when matching by leading keyword).
// In leading mode a statement opening with a WITH clause is judged by the
// verb that follows its common table expressions.
type QueryGuard struct {
	denied   []string
	mode     GuardMode
	anywhere *regexp.Regexp
}

// NewQueryGuard builds a guard from policy. Keywords are matched case-insensitively.
func NewQueryGuard(policy QueryPolicy) *QueryGuard {
	g := &QueryGuard{mode: policy.Mode}
	if g.mode == "" {
		g.mode = GuardLeading
	}

	quoted := make([]string, 0, len(policy.Denied))
	for _, kw := range policy.Denied {
		kw = strings.ToLower(strings.TrimSpace(kw))
		if kw == "" {
			continue
		}
		g.denied = append(g.denied, kw)
		quoted = append(quoted, regexp.QuoteMeta(kw))
	}
	if len(quoted) > 0 {
		g.anywhere = regexp.MustCompile(`\b(` + strings.Join(quoted, "|") + `)\b`)
	}

	return g
}

// Check returns a *model.BlockedOperationError if stmt is denied, nil otherwise.
func (g *QueryGuard) Check(stmt string) error {
	normalized := model.NormalizeStatement(stmt)

	if g.mode == GuardAnywhere {
		if g.anywhere == nil {
			return nil
		}
		if m := g.anywhere.FindString(strings.ToLower(stmt)); m != "" {
			return &model.BlockedOperationError{Keyword: m}
		}
		return nil
	}

	verb := model.MainKeyword(stmt)
	for _, kw := range g.denied {
		if strings.HasPrefix(normalized, kw) || verb == kw {
			return &model.BlockedOperationError{Keyword: kw}
		}
	}
	return nil
}
