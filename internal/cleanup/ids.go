// Package cleanup bulk-closes GitLab issues named by id lists and ranges.
package cleanup

import (
	"fmt"
	"strconv"
	"strings"
)

// MaxRangeIDs bounds how many ids a single "start-end" entry may name.
const MaxRangeIDs = 100000

// IDSpec is a single issue id (Start == End) or an inclusive range.
type IDSpec struct {
	Start int
	End   int
}

// IsRange reports whether s was written as "start-end".
func (s IDSpec) IsRange() bool { return s.Start != s.End }

func (s IDSpec) String() string {
	if s.IsRange() {
		return fmt.Sprintf("%d-%d", s.Start, s.End)
	}
	return strconv.Itoa(s.Start)
}

// ValidationError reports a malformed id token.
type ValidationError struct {
	Token  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid id %q: %s", e.Token, e.Reason)
}

// ParseIDs parses a comma-separated list of ids and "start-end" ranges.
// Whitespace around tokens is ignored; empty tokens are rejected.
func ParseIDs(arg string) ([]IDSpec, error) {
	if strings.TrimSpace(arg) == "" {
		return nil, &ValidationError{Token: arg, Reason: "no ids given"}
	}
	var specs []IDSpec
	for _, raw := range strings.Split(arg, ",") {
		tok := strings.TrimSpace(raw)
		if tok == "" {
			return nil, &ValidationError{Token: raw, Reason: "empty entry"}
		}
		spec, err := parseToken(tok)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func parseToken(tok string) (IDSpec, error) {
	lo, hi, isRange := strings.Cut(tok, "-")
	start, err := parseID(tok, lo)
	if err != nil {
		return IDSpec{}, err
	}
	if !isRange {
		return IDSpec{Start: start, End: start}, nil
	}
	end, err := parseID(tok, hi)
	if err != nil {
		return IDSpec{}, err
	}
	// Both ends are positive, so end-start cannot overflow.
	if end >= start && end-start >= MaxRangeIDs {
		return IDSpec{}, &ValidationError{Token: tok, Reason: fmt.Sprintf("range covers more than %d ids", MaxRangeIDs)}
	}
	return IDSpec{Start: start, End: end}, nil
}

func parseID(tok, s string) (int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, &ValidationError{Token: tok, Reason: "missing number"}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, &ValidationError{Token: tok, Reason: fmt.Sprintf("%q is not a number", s)}
	}
	if n < 1 {
		return 0, &ValidationError{Token: tok, Reason: "ids start at 1"}
	}
	return n, nil
}

// Expand flattens specs into ids, in order. Ranges are inclusive; a range
// whose start exceeds its end contributes nothing.
func Expand(specs []IDSpec) []int {
	var ids []int
	for _, s := range specs {
		if s.Start > s.End {
			continue
		}
		// Stop on equality so a range ending at math.MaxInt cannot wrap.
		for id := s.Start; ; id++ {
			ids = append(ids, id)
			if id == s.End {
				break
			}
		}
	}
	return ids
}

// ExpandIDs is ParseIDs followed by Expand.
func ExpandIDs(arg string) ([]int, error) {
	specs, err := ParseIDs(arg)
	if err != nil {
		return nil, err
	}
	return Expand(specs), nil
}
