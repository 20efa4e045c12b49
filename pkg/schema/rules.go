package schema

import "path/filepath"

// resolve picks the best rule for field. Type rules beat common rules of
// equal priority and pattern length.
func resolve(field string, typeRules, common []FieldRule) *FieldRule {
	best := ByField(field, typeRules)
	if c := ByField(field, common); c != nil {
		if best == nil || c.Priority > best.Priority ||
			(c.Priority == best.Priority && len(c.Path) > len(best.Path)) {
			best = c
		}
	}
	return best
}

// ByField returns the rule with the highest priority matching field,
// breaking ties by pattern length and then by order.
func ByField(field string, rules []FieldRule) *FieldRule {
	var bestMatch *FieldRule
	bestPriority, bestLength := 0, -1

	for i, rule := range rules {
		if !MatchesPattern(field, rule.Path) {
			continue
		}
		patternLength := len(rule.Path)
		if bestMatch == nil || rule.Priority > bestPriority ||
			(rule.Priority == bestPriority && patternLength > bestLength) {
			bestMatch = &rules[i]
			bestPriority = rule.Priority
			bestLength = patternLength
		}
	}

	return bestMatch
}

// MatchesPattern checks if a field matches a pattern (supports * wildcards).
func MatchesPattern(field, pattern string) bool {
	if field == pattern {
		return true
	}

	if n := len(pattern); n > 0 && pattern[n-1] == '*' && !containsMeta(pattern[:n-1]) {
		prefix := pattern[:n-1]
		return len(field) >= len(prefix) && field[:len(prefix)] == prefix
	}

	matched, err := filepath.Match(pattern, field)
	if err != nil {
		return false
	}
	return matched
}

func containsMeta(s string) bool {
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '*', '?', '[', '\\':
			return true
		}
	}
	return false
}
