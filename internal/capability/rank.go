package capability

import (
	"sort"
	"strings"
)

// Match reports whether path contains at least one hint, ignoring case.
func (l Lexicon) Match(path string) bool {
	p := strings.ToLower(path)
	for _, h := range l.Hints {
		if strings.Contains(p, h) {
			return true
		}
	}
	return false
}

// Score rates a path: +1 for a direct member of the root, +2 per distinct
// hint present and +3 once if any strong term is present.
func (l Lexicon) Score(path string) int {
	p := strings.ToLower(path)
	score := 0
	if strings.Count(p, ".") == 1 {
		score++
	}
	seen := make(map[string]struct{}, len(l.Hints))
	for _, h := range l.Hints {
		if _, dup := seen[h]; dup {
			continue
		}
		seen[h] = struct{}{}
		if strings.Contains(p, h) {
			score += 2
		}
	}
	for _, s := range l.Strong {
		if strings.Contains(p, s) {
			score += 3
			break
		}
	}
	return score
}

// Rank filters callables through the lexicon and orders them by score.
// Ties keep their input order; repeated paths keep the first occurrence.
func Rank(callables []Capability, lex Lexicon) []Capability {
	out := make([]Capability, 0, len(callables))
	for _, c := range callables {
		if !lex.Match(c.Path) {
			continue
		}
		c.Score = lex.Score(c.Path)
		out = append(out, c)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })

	seen := make(map[string]struct{}, len(out))
	ranked := out[:0]
	for _, c := range out {
		if _, dup := seen[c.Path]; dup {
			continue
		}
		seen[c.Path] = struct{}{}
		ranked = append(ranked, c)
	}
	return ranked
}
