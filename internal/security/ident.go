// Package security provides identifier hygiene for Qualis.
// Process field names and tags are machine keys that end up in query
// filters and exported column headers, so they are validated with the
// same rules as SQL identifiers.
package security

import (
	"fmt"
	"regexp"

	"github.com/lib/pq"
)

// ValidIdentifierRegex matches valid machine keys: lowercase letters,
// digits, and underscores, starting with a letter or underscore.
var ValidIdentifierRegex = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// ValidateIdentifier checks if a string is a valid machine key
func ValidateIdentifier(name string) error {
	if name == "" {
		return fmt.Errorf("identifier cannot be empty")
	}
	if len(name) > 63 {
		return fmt.Errorf("identifier too long (max 63 characters)")
	}
	if !ValidIdentifierRegex.MatchString(name) {
		return fmt.Errorf("invalid identifier: must contain only lowercase letters, numbers, and underscores, starting with a letter or underscore")
	}
	if isReservedWord(name) {
		return fmt.Errorf("'%s' is a reserved SQL keyword", name)
	}
	return nil
}

// QuoteIdentifier quotes a validated identifier for use in SQL
func QuoteIdentifier(name string) string {
	return pq.QuoteIdentifier(name)
}

// SafeIdentifier validates and quotes an identifier
func SafeIdentifier(name string) (string, error) {
	if err := ValidateIdentifier(name); err != nil {
		return "", err
	}
	return QuoteIdentifier(name), nil
}

// reservedWords are SQL keywords that cannot be machine keys even
// though they match the identifier pattern.
var reservedWords = map[string]bool{
	"all": true, "and": true, "any": true, "as": true, "asc": true,
	"between": true, "by": true, "case": true, "check": true,
	"column": true, "constraint": true, "create": true, "default": true,
	"delete": true, "desc": true, "distinct": true, "drop": true,
	"else": true, "end": true, "exists": true, "foreign": true,
	"from": true, "group": true, "having": true, "in": true,
	"index": true, "insert": true, "into": true, "is": true,
	"join": true, "key": true, "like": true, "limit": true,
	"not": true, "null": true, "on": true, "or": true, "order": true,
	"primary": true, "references": true, "select": true, "set": true,
	"table": true, "then": true, "union": true, "unique": true,
	"update": true, "user": true, "values": true, "when": true,
	"where": true,
}

func isReservedWord(name string) bool {
	return reservedWords[name]
}
