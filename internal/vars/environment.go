// Package vars implements the layered variable environment used to resolve
// $NAME references inside glob patterns and refname templates, including
// the semicolon-list-to-brace-alternation rule that only applies inside
// pattern-compilation contexts.
package vars

import (
	"fmt"
	"strconv"
	"strings"
)

// Environment is a named→raw-value store with lazy, memoized substitution.
// Values are immutable once Define'd for a given name is done for the
// current layering pass; re-Define overwrites and invalidates the memo for
// that name (used by the config model's Default→Project layering, which
// defines variables in inheritance order before anything is resolved).
type Environment struct {
	raw             map[string]string
	resolvedLiteral map[string]string
	resolvedPattern map[string]string
}

// New returns an empty environment.
func New() *Environment {
	return &Environment{
		raw:             make(map[string]string),
		resolvedLiteral: make(map[string]string),
		resolvedPattern: make(map[string]string),
	}
}

// Define sets name's raw value, invalidating any memoized resolution for it.
func (e *Environment) Define(name, value string) {
	e.raw[name] = value
	delete(e.resolvedLiteral, name)
	delete(e.resolvedPattern, name)
}

// Has reports whether name has a defined raw value.
func (e *Environment) Has(name string) bool {
	_, ok := e.raw[name]
	return ok
}

// Clone returns an independent copy sharing no mutable state, so that a
// caller can bind a short-lived variable (e.g. a per-commit "$rev") without
// invalidating or polluting the parent's memoized resolutions.
func (e *Environment) Clone() *Environment {
	c := New()
	for k, v := range e.raw {
		c.raw[k] = v
	}
	for k, v := range e.resolvedLiteral {
		c.resolvedLiteral[k] = v
	}
	for k, v := range e.resolvedPattern {
		c.resolvedPattern[k] = v
	}
	return c
}

// CheckCycles eagerly resolves every defined variable in the literal
// (non-pattern) context, surfacing a reference cycle as an error without
// needing any captures. Call once after layering is complete.
func (e *Environment) CheckCycles() error {
	for name := range e.raw {
		if _, err := e.resolveVar(name, false, nil, map[string]bool{}); err != nil {
			return err
		}
	}
	return nil
}

// Substitute expands $NAME, ${NAME}, $(NAME), $n, ${n}, $(n) references in
// template against this environment and the given ordinal captures
// (1-indexed; out-of-range captures expand to ""). A variable whose value
// ends in '/' followed in template by a literal '/' yields a single '/'.
//
// When patternCtx is true, any variable whose resolved value contains a
// semicolon is wrapped as a brace alternation ("a;b" -> "{a,b}") at the
// point that variable is spliced in - including variables referenced
// transitively by other variables - since pattern contexts and refname
// (literal) contexts disagree about what a semicolon means.
func (e *Environment) Substitute(template string, captures []string, patternCtx bool) (string, error) {
	return e.expand(template, captures, patternCtx, map[string]bool{})
}

func (e *Environment) resolveVar(name string, patternCtx bool, captures []string, visiting map[string]bool) (string, error) {
	cache := e.resolvedLiteral
	if patternCtx {
		cache = e.resolvedPattern
	}
	if v, ok := cache[name]; ok {
		return v, nil
	}
	if visiting[name] {
		return "", fmt.Errorf("variable reference cycle involving %q", name)
	}
	raw, ok := e.raw[name]
	if !ok {
		return "", fmt.Errorf("undefined variable %q", name)
	}
	visiting[name] = true
	expanded, err := e.expand(raw, captures, patternCtx, visiting)
	visiting[name] = false
	if err != nil {
		return "", err
	}
	if patternCtx && strings.Contains(expanded, ";") {
		parts := strings.Split(expanded, ";")
		expanded = "{" + strings.Join(parts, ",") + "}"
	}
	cache[name] = expanded
	return expanded, nil
}

// expand does one left-to-right scan of template, splicing in variable and
// capture references as it goes.
func (e *Environment) expand(template string, captures []string, patternCtx bool, visiting map[string]bool) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(template) {
		c := template[i]
		if c != '$' || i+1 >= len(template) {
			out.WriteByte(c)
			i++
			continue
		}
		name, delta, isNumeric, ok := scanReference(template[i+1:])
		if !ok {
			out.WriteByte(c)
			i++
			continue
		}
		if isNumeric {
			n, _ := strconv.Atoi(name)
			if n >= 1 && n <= len(captures) {
				out.WriteString(captures[n-1])
			}
			i += 1 + delta
			continue
		}
		val, err := e.resolveVar(name, patternCtx, captures, visiting)
		if err != nil {
			return "", err
		}
		out.WriteString(val)
		i += 1 + delta
		// A value ending in '/' absorbs a '/' that immediately follows the
		// reference, so "$Branches/x" with "refs/heads/" gives "refs/heads/x".
		if strings.HasSuffix(val, "/") && i < len(template) && template[i] == '/' {
			i++
		}
	}
	return out.String(), nil
}

// scanReference reads one $-reference body (the part after '$') in one of
// the forms NAME, {NAME}, (NAME), n, {n}, (n). It returns the bare
// identifier, how many bytes of s it consumed, whether the identifier is
// purely numeric, and whether a reference was recognized at all.
func scanReference(s string) (name string, consumed int, numeric bool, ok bool) {
	if s == "" {
		return "", 0, false, false
	}
	switch s[0] {
	case '{':
		end := strings.IndexByte(s, '}')
		if end < 0 {
			return "", 0, false, false
		}
		name = s[1:end]
		return name, end + 1, isNumeric(name), name != ""
	case '(':
		end := strings.IndexByte(s, ')')
		if end < 0 {
			return "", 0, false, false
		}
		name = s[1:end]
		return name, end + 1, isNumeric(name), name != ""
	default:
		end := 0
		for end < len(s) && isIdentByte(s[end]) {
			end++
		}
		if end == 0 {
			return "", 0, false, false
		}
		name = s[:end]
		return name, end, isNumeric(name), true
	}
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= '0' && c <= '9') || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
