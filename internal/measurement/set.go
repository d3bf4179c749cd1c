package measurement

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/Lixing-Zhang/tailortech/internal/models"
)

var (
	ErrIncomplete   = errors.New("please fill out all required fields")
	ErrUnknownField = errors.New("unknown measurement field")
	ErrInvalidValue = errors.New("invalid measurement value")
)

// Set maps field names to values. Text fields hold strings, boolean fields hold bools.
type Set map[string]any

// Clone returns a shallow copy of s; values are immutable scalars.
func (s Set) Clone() Set {
	out := make(Set, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// SetValue returns a copy of s with name set to value. s is never modified.
func SetValue(s Set, name string, value any) Set {
	out := s.Clone()
	out[name] = value
	return out
}

// present reports whether v satisfies field f
func present(f Field, v any, ok bool) bool {
	if !ok {
		return false
	}
	switch f.Kind {
	case KindBoolean:
		_, isBool := v.(bool)
		return isBool
	default:
		str, isString := v.(string)
		return isString && strings.TrimSpace(str) != ""
	}
}

// IsComplete reports whether every required field of c has a value in s.
// Booleans count as filled whenever present, false included.
func IsComplete(c models.Category, s Set) bool {
	if !c.Valid() {
		return false
	}
	return len(Missing(c, s)) == 0
}

// Missing returns the names of unfilled required fields in form order.
func Missing(c models.Category, s Set) []string {
	var missing []string
	for _, f := range fieldTable[c] {
		v, ok := s[f.Name]
		if !present(f, v, ok) {
			missing = append(missing, f.Name)
		}
	}
	return missing
}

// Validate checks s against c for storage: every field filled, no extras.
func Validate(c models.Category, s Set) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %d", models.ErrUnknownCategory, int(c))
	}

	var unknown []string
	for name := range s {
		if _, ok := Lookup(c, name); !ok {
			unknown = append(unknown, name)
		}
	}
	if len(unknown) > 0 {
		sort.Strings(unknown)
		return fmt.Errorf("%w: %s", ErrUnknownField, strings.Join(unknown, ", "))
	}

	if missing := Missing(c, s); len(missing) > 0 {
		return fmt.Errorf("%w: %s", ErrIncomplete, strings.Join(missing, ", "))
	}
	return nil
}

// ParseValue converts raw text input into the value type of field name.
func ParseValue(c models.Category, name, raw string) (any, error) {
	f, ok := Lookup(c, name)
	if !ok {
		return nil, fmt.Errorf("%w: %s is not a %s field", ErrUnknownField, name, c)
	}
	if f.Kind == KindBoolean {
		b, err := strconv.ParseBool(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("%w: %s expects true or false", ErrInvalidValue, name)
		}
		return b, nil
	}
	return raw, nil
}

// Payload builds the body of POST /measurements/{resource}: the category's
// fields from s plus the owning request ID. Fields outside the category are dropped.
func Payload(c models.Category, s Set, requestID int64) map[string]any {
	body := make(map[string]any, len(fieldTable[c])+1)
	for _, f := range fieldTable[c] {
		if v, ok := s[f.Name]; ok {
			body[f.Name] = v
		}
	}
	body["RequestID"] = requestID
	return body
}

// FromPayload splits a measurement body into its request ID and field set.
func FromPayload(body map[string]any) (int64, Set, error) {
	raw, ok := body["RequestID"]
	if !ok {
		return 0, nil, fmt.Errorf("%w: RequestID is required", ErrInvalidValue)
	}
	var id int64
	switch v := raw.(type) {
	case float64:
		id = int64(v)
	case int64:
		id = v
	case int:
		id = int64(v)
	default:
		return 0, nil, fmt.Errorf("%w: RequestID must be a number", ErrInvalidValue)
	}
	if id <= 0 {
		return 0, nil, fmt.Errorf("%w: RequestID must be positive", ErrInvalidValue)
	}

	set := make(Set, len(body)-1)
	for k, v := range body {
		if k != "RequestID" {
			set[k] = v
		}
	}
	return id, set, nil
}
