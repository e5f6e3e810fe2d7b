package auth

import (
	"encoding/json"
	"errors"
	"strings"
)

// Scopes understood by the measurements API. Write access implies read access.
const (
	ScopeMeasurementsWrite = "measurements:write"
	ScopeMeasurementsRead  = "measurements:read"
)

// ScopeSet is the set of scopes granted to a token.
type ScopeSet map[string]struct{}

// NewScopeSet builds a set from the given scopes, ignoring blanks.
func NewScopeSet(scopes ...string) ScopeSet {
	set := make(ScopeSet, len(scopes))
	for _, scope := range scopes {
		if scope = strings.TrimSpace(scope); scope != "" {
			set[scope] = struct{}{}
		}
	}
	return set
}

// Has reports whether the set includes scope.
func (s ScopeSet) Has(scope string) bool {
	_, ok := s[scope]
	return ok
}

// Any reports whether the set includes at least one of the accepted scopes.
func (s ScopeSet) Any(accepted ...string) bool {
	for _, scope := range accepted {
		if s.Has(scope) {
			return true
		}
	}
	return false
}

// UnmarshalJSON accepts either a space separated string or an array of strings.
func (s *ScopeSet) UnmarshalJSON(data []byte) error {
	var joined string
	if err := json.Unmarshal(data, &joined); err == nil {
		*s = NewScopeSet(strings.Fields(joined)...)
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return errors.New("scopes must be a string or a list of strings")
	}
	*s = NewScopeSet(list...)
	return nil
}
