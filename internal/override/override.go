// Package override holds caller-supplied values that supersede or extend a
// profile's default headers, query parameters and body fields.
package override

import (
	"fmt"
	"strings"
)

// Kind tags where an override value is applied.
type Kind int

const (
	KindQuery Kind = iota
	KindHeader
	KindBody
)

func (k Kind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindQuery:
		return "query"
	case KindBody:
		return "body"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Pair is a single key/value override.
type Pair struct {
	Key   string
	Value string
}

// Set is an ordered collection of overrides grouped by destination.
// A Set is not safe for concurrent mutation; clone it per invocation.
type Set struct {
	Headers []Pair
	Query   []Pair
	Body    []Pair
}

// Add appends an override of the given kind.
func (s *Set) Add(kind Kind, key, value string) {
	p := Pair{Key: key, Value: value}
	switch kind {
	case KindHeader:
		s.Headers = append(s.Headers, p)
	case KindBody:
		s.Body = append(s.Body, p)
	default:
		s.Query = append(s.Query, p)
	}
}

// Clone returns a deep copy so appends on the copy never alias the original.
func (s Set) Clone() Set {
	return Set{
		Headers: clonePairs(s.Headers),
		Query:   clonePairs(s.Query),
		Body:    clonePairs(s.Body),
	}
}

// Len returns the total number of overrides.
func (s Set) Len() int {
	return len(s.Headers) + len(s.Query) + len(s.Body)
}

// Each visits headers, then query, then body overrides, in insertion order.
// Iteration stops at the first non-nil error, which is returned.
func (s Set) Each(fn func(kind Kind, p Pair) error) error {
	groups := []struct {
		kind  Kind
		pairs []Pair
	}{
		{KindHeader, s.Headers},
		{KindQuery, s.Query},
		{KindBody, s.Body},
	}
	for _, g := range groups {
		for _, p := range g.pairs {
			if err := fn(g.kind, p); err != nil {
				return err
			}
		}
	}
	return nil
}

func clonePairs(in []Pair) []Pair {
	if in == nil {
		return nil
	}
	out := make([]Pair, len(in))
	copy(out, in)
	return out
}

// ParseToken classifies a command-line token:
//
//	key=value   query parameter
//	%key=value  header
//	@key=value  body field
func ParseToken(token string) (Kind, Pair, error) {
	kind := KindQuery
	rest := token
	switch {
	case strings.HasPrefix(token, "%"):
		kind = KindHeader
		rest = token[1:]
	case strings.HasPrefix(token, "@"):
		kind = KindBody
		rest = token[1:]
	}

	key, value, ok := strings.Cut(rest, "=")
	if !ok {
		return kind, Pair{}, fmt.Errorf("invalid override %q: expected key=value", token)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return kind, Pair{}, fmt.Errorf("invalid override %q: key cannot be empty", token)
	}
	return kind, Pair{Key: key, Value: strings.TrimSpace(value)}, nil
}

// FromTokens builds a Set from command-line tokens.
func FromTokens(tokens []string) (Set, error) {
	var set Set
	for _, token := range tokens {
		kind, p, err := ParseToken(token)
		if err != nil {
			return Set{}, err
		}
		set.Add(kind, p.Key, p.Value)
	}
	return set, nil
}
