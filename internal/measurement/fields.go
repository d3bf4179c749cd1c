// Package measurement holds the required-field tables for each category and
// the pure helpers that validate and build measurement sets.
package measurement

import "github.com/Lixing-Zhang/tailortech/internal/models"

// Kind is the value type of a field
type Kind int

const (
	KindText Kind = iota
	KindBoolean
)

func (k Kind) String() string {
	if k == KindBoolean {
		return "boolean"
	}
	return "text"
}

// Field describes one input of a category's measurement form
type Field struct {
	Name  string
	Label string
	Kind  Kind
	Unit  string
}

func text(name, label string) Field {
	return Field{Name: name, Label: label, Kind: KindText}
}

var fieldTable = map[models.Category][]Field{
	models.CategoryTop: {
		text("neck", "Neck"),
		text("shoulder", "Shoulder"),
		text("shoulderToWaist", "Shoulder to Waist"),
		text("chest", "Chest"),
		text("waist", "Waist"),
		text("sleeveLength", "Sleeve Length"),
		{Name: "collar", Label: "Collar", Kind: KindBoolean},
	},
	models.CategoryBottom: {
		text("waist", "Waist"),
		text("hip", "Hip"),
		text("thigh", "Thigh"),
		text("knee", "Knee"),
		text("ankle", "Ankle"),
		text("cuffWidth", "Cuff Width"),
		text("waistToAnkle", "Waist to Ankle"),
	},
	models.CategoryDress: {
		text("shoulder", "Shoulder"),
		text("chest", "Chest"),
		text("waist", "Waist"),
		text("hip", "Hip"),
		text("dressLength", "Dress Length"),
	},
	models.CategorySuit: {
		text("neck", "Neck"),
		text("shoulder", "Shoulder"),
		text("chest", "Chest"),
		text("waist", "Waist"),
		text("hip", "Hip"),
		text("sleeveLength", "Sleeve Length"),
		text("jacketLength", "Jacket Length"),
		text("inseam", "Inseam"),
		text("outseam", "Outseam"),
		text("thigh", "Thigh"),
		text("knee", "Knee"),
		text("ankle", "Ankle"),
	},
	models.CategoryToteBag: {
		text("color", "Color"),
		text("material", "Material"),
		text("writing", "Writing"),
		text("imageDesc", "Image Description"),
	},
}

// RequiredFields returns the ordered fields of c. Text fields carry the
// category's display unit; boolean fields have none. Unknown categories have
// no fields.
func RequiredFields(c models.Category) []Field {
	fields := fieldTable[c]
	out := make([]Field, len(fields))
	for i, f := range fields {
		if f.Kind == KindText {
			f.Unit = c.Unit()
		}
		out[i] = f
	}
	return out
}

// Lookup finds a field of c by name.
func Lookup(c models.Category, name string) (Field, bool) {
	for _, f := range RequiredFields(c) {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}
