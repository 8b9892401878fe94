package article

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidArgument is returned when a user or article identifier is missing
// or is the string rendering of a non-primitive value.
var ErrInvalidArgument = errors.New("invalid argument")

// ID is the canonical article identifier. The API hands out ids as plain
// strings, as {"$oid": "..."} objects or as ObjectId("...") text; all of them
// decode to the same ID.
type ID string

func (id ID) String() string { return string(id) }

// Canonical normalizes a raw identifier to its canonical form.
func Canonical(raw string) ID {
	s := strings.TrimSpace(raw)
	if strings.HasPrefix(s, "ObjectId(") && strings.HasSuffix(s, ")") {
		s = strings.TrimSuffix(strings.TrimPrefix(s, "ObjectId("), ")")
		s = strings.Trim(s, `"'`)
	}
	return ID(strings.TrimSpace(s))
}

// bogusValues are what a client ends up sending when it stringifies a missing
// or structured value instead of an id.
var bogusValues = map[string]bool{
	"undefined":       true,
	"null":            true,
	"nil":             true,
	"nan":             true,
	"none":            true,
	"[object object]": true,
}

// Check validates a raw identifier. what names the argument in the error.
func Check(what, raw string) error {
	s := strings.TrimSpace(raw)
	if s == "" {
		return fmt.Errorf("%s is required: %w", what, ErrInvalidArgument)
	}
	if bogusValues[strings.ToLower(s)] {
		return fmt.Errorf("%s %q is not an identifier: %w", what, s, ErrInvalidArgument)
	}
	if strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[") {
		return fmt.Errorf("%s looks like an encoded object: %w", what, ErrInvalidArgument)
	}
	return nil
}

// Parse checks and canonicalizes an article identifier.
func Parse(raw string) (ID, error) {
	if err := Check("article id", raw); err != nil {
		return "", err
	}
	id := Canonical(raw)
	if id == "" {
		return "", fmt.Errorf("article id is required: %w", ErrInvalidArgument)
	}
	return id, nil
}

func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if data[0] == '{' {
		var oid struct {
			OID string `json:"$oid"`
		}
		if err := json.Unmarshal(data, &oid); err != nil {
			return fmt.Errorf("decoding object id: %w", err)
		}
		*id = Canonical(oid.OID)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("decoding article id: %w", err)
	}
	*id = Canonical(s)
	return nil
}
