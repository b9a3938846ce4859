package validators

import (
	"fmt"
	"regexp"
	"strings"
)

// MaxIdentifierLength is the longest name accepted anywhere a name is spliced into
// query text. It matches the Postgres identifier limit.
const MaxIdentifierLength = 63

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// IdentifierError describes why a name was refused.
type IdentifierError struct {
	Kind   string
	Name   string
	Reason string
}

func (e *IdentifierError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Kind, e.Name, e.Reason)
}

// ValidateIdentifier is the only gate a name passes before it becomes part of query
// text. kind is used for error messages only ("column", "label", ...).
func ValidateIdentifier(kind, name string) error {
	switch {
	case name == "":
		return &IdentifierError{Kind: kind, Name: name, Reason: "must not be empty"}
	case len(name) > MaxIdentifierLength:
		return &IdentifierError{Kind: kind, Name: name, Reason: fmt.Sprintf("must be at most %d characters", MaxIdentifierLength)}
	case !identifierPattern.MatchString(name):
		return &IdentifierError{Kind: kind, Name: name, Reason: "may only contain letters, digits and underscores and must not start with a digit"}
	}
	return nil
}

// QuoteSQL validates name and returns it as a double-quoted SQL identifier.
func QuoteSQL(kind, name string) (string, error) {
	if err := ValidateIdentifier(kind, name); err != nil {
		return "", err
	}
	return `"` + name + `"`, nil
}

// QuoteCypher validates name and returns it as a backtick-quoted Cypher name.
func QuoteCypher(kind, name string) (string, error) {
	if err := ValidateIdentifier(kind, name); err != nil {
		return "", err
	}
	return "`" + name + "`", nil
}

// EqualFold reports whether two identifiers name the same column on engines that
// fold case.
func EqualFold(a, b string) bool {
	return strings.EqualFold(a, b)
}
