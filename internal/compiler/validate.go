package compiler

import (
	"fmt"
	"strings"

	"github.com/roach88/thisme/internal/ir"
	"github.com/roach88/thisme/internal/operator"
)

// Validation error codes (E100-E199)
const (
	// Operator definition errors (E100-E109)
	ErrEmptyToken     = "E100" // token is empty or whitespace
	ErrReservedToken  = "E101" // "+" cannot be rebound
	ErrUnknownKind    = "E102" // kind is not one of the eight kinds
	ErrDottedToken    = "E103" // a token with "." can never be a path leaf
	ErrDuplicateToken = "E104" // token defined twice

	// Seed errors (E110-E119)
	ErrEmptySeedPath     = "E110" // seed path is required
	ErrMalformedSeedPath = "E111" // empty segment such as "a..b"
)

// ValidationError represents a profile validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled profile. Returns all errors found (does not
// fail-fast).
func Validate(p *ir.Profile) []ValidationError {
	var errs []ValidationError

	seen := make(map[string]bool)
	for _, def := range p.Operators {
		field := fmt.Sprintf("operators.%s", def.Token)
		token := strings.TrimSpace(def.Token)

		switch {
		case token == "":
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "operator token must be non-empty",
				Code:    ErrEmptyToken,
			})
		case token == ir.OpDefine:
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("%q is reserved for operator definitions", ir.OpDefine),
				Code:    ErrReservedToken,
			})
		case strings.Contains(token, "."):
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("token %q contains a path separator", token),
				Code:    ErrDottedToken,
			})
		}

		if !operator.ValidKinds[operator.Kind(def.Kind)] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("unknown kind %q", def.Kind),
				Code:    ErrUnknownKind,
			})
		}

		if token != "" && seen[token] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("token %q is defined more than once", token),
				Code:    ErrDuplicateToken,
			})
		}
		seen[token] = true
	}

	for i, w := range p.Seed {
		field := fmt.Sprintf("seed[%d].path", i)
		path := strings.TrimSpace(w.Path)
		if path == "" {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: "seed path is required",
				Code:    ErrEmptySeedPath,
			})
			continue
		}
		for _, seg := range strings.Split(path, ".") {
			if seg == "" {
				errs = append(errs, ValidationError{
					Field:   field,
					Message: fmt.Sprintf("path %q has an empty segment", w.Path),
					Code:    ErrMalformedSeedPath,
				})
				break
			}
		}
	}

	return errs
}
