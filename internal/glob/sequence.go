package glob

import "strings"

// entry is one semicolon-separated member of a Sequence.
type entry struct {
	pattern  *Pattern
	negative bool
}

// Sequence is a semicolon-separated, order-sensitive list of positive and
// ("!"-prefixed) negative patterns, used for branch filters, tag filters,
// and MapBranch/MapTag source matching alike.
type Sequence struct {
	source  string
	entries []entry
}

// CompileSequence parses a semicolon-separated pattern sequence. An empty
// source compiles to a Sequence that matches everything (the implicit
// trailing "**" case).
func CompileSequence(source string) (*Sequence, error) {
	seq := &Sequence{source: source}
	if strings.TrimSpace(source) == "" {
		return seq, nil
	}
	for _, part := range strings.Split(source, ";") {
		negative := false
		if strings.HasPrefix(part, "!") {
			negative = true
			part = part[1:]
		}
		p, err := Compile(part)
		if err != nil {
			return nil, err
		}
		seq.entries = append(seq.entries, entry{pattern: p, negative: negative})
	}
	return seq, nil
}

// Source returns the sequence's original text.
func (s *Sequence) Source() string { return s.source }

// Match evaluates the full sequence against candidate: no-match if any
// negative entry matches, regardless of where it sits relative to a
// positive match; otherwise the first positive entry that matches wins
// and its captures are returned. If no entry matches and the sequence
// contains at least one positive entry, the overall result is no-match.
// A sequence with no positive entries (empty, or all-negative-and-none-
// matched) is treated as matching everything with no captures, per the
// implicit trailing "**" rule.
func (s *Sequence) Match(candidate string) (bool, []string) {
	hasPositive := false
	var firstPositive []string
	matchedPositive := false
	for _, e := range s.entries {
		if !e.negative {
			hasPositive = true
		}
		ok, caps := e.pattern.Match(candidate)
		if !ok {
			continue
		}
		if e.negative {
			return false, nil
		}
		if !matchedPositive {
			matchedPositive = true
			firstPositive = caps
		}
	}
	if matchedPositive {
		return true, firstPositive
	}
	if hasPositive {
		return false, nil
	}
	return true, nil
}
