package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
)

// Category is the closed set of garment and accessory kinds a tailor can make.
// The numeric value is the RequestType sent to the API.
type Category int

const (
	CategoryTop Category = iota + 1
	CategoryBottom
	CategoryDress
	CategorySuit
	CategoryToteBag
)

// Categories lists every category in code order.
var Categories = []Category{
	CategoryTop,
	CategoryBottom,
	CategoryDress,
	CategorySuit,
	CategoryToteBag,
}

var ErrUnknownCategory = errors.New("unknown category")

var categoryLabels = map[Category]string{
	CategoryTop:     "Tops",
	CategoryBottom:  "Bottoms",
	CategoryDress:   "Dresses",
	CategorySuit:    "Suits",
	CategoryToteBag: "Tote Bags",
}

var categoryNames = map[Category]string{
	CategoryTop:     "Top",
	CategoryBottom:  "Bottom",
	CategoryDress:   "Dress",
	CategorySuit:    "Suit",
	CategoryToteBag: "ToteBag",
}

// lookup keys are folded with spaces, dashes and underscores removed
var categoryLookup = func() map[string]Category {
	m := make(map[string]Category, len(Categories)*3)
	for _, c := range Categories {
		m[categoryKey(categoryLabels[c])] = c
		m[categoryKey(categoryNames[c])] = c
		m[categoryKey(c.Resource())] = c
	}
	return m
}()

func categoryKey(s string) string {
	s = cases.Fold().String(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "", "_", "", "-", "").Replace(s)
}

// ParseCategory accepts display labels ("Tote Bags", "TOTE BAGS"),
// resource names ("totebags") and type names ("ToteBag").
func ParseCategory(s string) (Category, error) {
	if c, ok := categoryLookup[categoryKey(s)]; ok {
		return c, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCategory, s)
}

// CategoryFromCode maps a RequestType code back to its category.
func CategoryFromCode(code int) (Category, error) {
	c := Category(code)
	if !c.Valid() {
		return 0, fmt.Errorf("%w: code %d", ErrUnknownCategory, code)
	}
	return c, nil
}

func (c Category) Valid() bool {
	_, ok := categoryLabels[c]
	return ok
}

// Code returns the RequestType sent on the wire.
func (c Category) Code() int {
	return int(c)
}

// String returns the display label.
func (c Category) String() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return fmt.Sprintf("Category(%d)", int(c))
}

// Resource is the measurement sub-resource name, e.g. "tops" or "totebags".
func (c Category) Resource() string {
	label, ok := categoryLabels[c]
	if !ok {
		return ""
	}
	return strings.ToLower(strings.ReplaceAll(label, " ", ""))
}

// Unit is the display unit of measurement values. Tote bags have none.
func (c Category) Unit() string {
	if c == CategoryToteBag || !c.Valid() {
		return ""
	}
	return "cm"
}

func (c Category) MarshalJSON() ([]byte, error) {
	if !c.Valid() {
		return nil, fmt.Errorf("%w: code %d", ErrUnknownCategory, int(c))
	}
	return json.Marshal(c.String())
}

// UnmarshalJSON accepts either a label string or a numeric code.
func (c *Category) UnmarshalJSON(data []byte) error {
	var code int
	if err := json.Unmarshal(data, &code); err == nil {
		parsed, err := CategoryFromCode(code)
		if err != nil {
			return err
		}
		*c = parsed
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("category must be a string or number: %w", err)
	}
	parsed, err := ParseCategory(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
