// Package measurement defines body measurement records and the analytics computed over them.
package measurement

// Field names one tracked body dimension. The string value is the key used in persisted records.
type Field string

const (
	Weight Field = "Weight"
	Bicep  Field = "Bicep"
	Chest  Field = "Chest"
	Waist  Field = "Waist"
	Thigh  Field = "Thigh"
	Calf   Field = "Calf"
)

// Fields lists every tracked field in canonical order.
var Fields = []Field{Weight, Bicep, Chest, Waist, Thigh, Calf}

// ParseField maps a persisted key to a Field.
func ParseField(name string) (Field, bool) {
	for _, f := range Fields {
		if string(f) == name {
			return f, true
		}
	}
	return "", false
}

// Unit returns the unit the field is recorded in.
func (f Field) Unit() string {
	if f == Weight {
		return "kilograms"
	}
	return "centimeters"
}

// Label is the human readable name used in rendered reports.
func (f Field) Label() string {
	if f == Weight {
		return "Weight"
	}
	return string(f) + " Circumference"
}

func fieldIndex(f Field) int {
	for i, candidate := range Fields {
		if candidate == f {
			return i
		}
	}
	return -1
}
