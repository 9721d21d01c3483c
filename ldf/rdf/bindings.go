package rdf

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrBindingConflict means a variable is already bound to another term.
	ErrBindingConflict = errors.New("binding conflict")
	// ErrUnboundValue means a variable or blank node was offered as value.
	ErrUnboundValue = errors.New("right-hand side must not be variable")
	// ErrTermMismatch means two constant terms differ.
	ErrTermMismatch = errors.New("terms do not match")
)

// Bindings maps variables (and blank nodes of a pattern) to terms.
type Bindings map[string]string

// Clone returns a copy of the bindings.
func (b Bindings) Clone() Bindings {
	c := make(Bindings, len(b)+3)
	for k, v := range b {
		c[k] = v
	}
	return c
}

// Key returns a canonical encoding of the bindings.
func (b Bindings) Key() string {
	keys := make([]string, 0, len(b))
	for k := range b {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	var sb strings.Builder
	for _, k := range keys {
		sb.WriteString(k)
		sb.WriteByte('=')
		sb.WriteString(b[k])
		sb.WriteByte('\x00')
	}
	return sb.String()
}

// Apply substitutes bound terms in the pattern.
func (b Bindings) Apply(pattern Triple) Triple {
	sub := func(term string) string {
		if v, ok := b[term]; ok && v != "" {
			return v
		}
		return term
	}
	return Triple{
		Subject:   sub(pattern.Subject),
		Predicate: sub(pattern.Predicate),
		Object:    sub(pattern.Object),
		Graph:     sub(pattern.Graph),
	}
}

// ApplyAll substitutes bound terms in every pattern.
func (b Bindings) ApplyAll(patterns []Triple) []Triple {
	out := make([]Triple, len(patterns))
	for i, p := range patterns {
		out[i] = b.Apply(p)
	}
	return out
}

// Extend returns a copy of the bindings extended so that pattern becomes
// triple.
func (b Bindings) Extend(pattern, triple Triple) (Bindings, error) {
	ext := b.Clone()
	if err := ext.Add(pattern.Subject, triple.Subject); err != nil {
		return nil, err
	}
	if err := ext.Add(pattern.Predicate, triple.Predicate); err != nil {
		return nil, err
	}
	if err := ext.Add(pattern.Object, triple.Object); err != nil {
		return nil, err
	}
	if pattern.Graph != "" && triple.Graph != "" {
		if err := ext.Add(pattern.Graph, triple.Graph); err != nil {
			return nil, err
		}
	}
	return ext, nil
}

// Add binds left to right in place. A variable or blank left side is bound
// unless it already holds a different term; constant sides must be equal.
func (b Bindings) Add(left, right string) error {
	if IsVariableOrBlank(right) {
		return fmt.Errorf("cannot bind %s to %s: %w", left, right, ErrUnboundValue)
	}
	if IsVariableOrBlank(left) {
		current, bound := b[left]
		if !bound {
			b[left] = right
			return nil
		}
		if current != right {
			return fmt.Errorf("cannot bind %s to %s because it was already bound to %s: %w",
				left, right, current, ErrBindingConflict)
		}
		return nil
	}
	if left != right {
		return fmt.Errorf("cannot bind %s to %s: %w", left, right, ErrTermMismatch)
	}
	return nil
}

// FindBindings returns the bindings that turn pattern into triple.
func FindBindings(pattern, triple Triple) (Bindings, error) {
	return Bindings(nil).Extend(pattern, triple)
}
