package mmio

import (
	"fmt"
	"strconv"
	"strings"
)

// Layout is the declarative field table of one register type.
//
// A Layout is normally built once per register type at package
// initialization, from the same Field and Bit values the register's accessor
// methods use, so that the table and the accessors cannot drift apart.
type Layout[W Word] struct {
	name   string
	fields []FieldSpec
	sticky uint64
}

// NewLayout declares the fields of the register type name.
//
// NewLayout panics if a field lies outside the register width, has an
// inverted range, is wider than its value type, or overlaps another field. These are declaration bugs,
// detected when the package is initialized.
func NewLayout[W Word](name string, fields ...Specifier) *Layout[W] {
	width := widthOf[W]()
	l := &Layout[W]{name: name, fields: make([]FieldSpec, 0, len(fields))}
	var used uint64
	for _, f := range fields {
		s := f.Spec()
		if s.Hi < s.Lo || s.Hi >= width {
			panic(fmt.Sprintf("mmio: %s.%s: bit range [%d, %d] invalid for %d-bit register",
				name, s.Name, s.Lo, s.Hi, width))
		}
		if s.ValueBits != 0 && s.Width() > s.ValueBits {
			panic(fmt.Sprintf("mmio: %s.%s: %d-bit field does not fit a %d-bit value",
				name, s.Name, s.Width(), s.ValueBits))
		}
		if used&s.bits() != 0 {
			panic(fmt.Sprintf("mmio: %s.%s: bit range [%d, %d] overlaps another field",
				name, s.Name, s.Lo, s.Hi))
		}
		used |= s.bits()
		if s.Access.Sticky() {
			l.sticky |= s.bits()
		}
		l.fields = append(l.fields, s)
	}
	return l
}

// Name returns the register type name.
func (l *Layout[W]) Name() string {
	return l.name
}

// Fields returns a copy of the field table in declaration order.
func (l *Layout[W]) Fields() []FieldSpec {
	out := make([]FieldSpec, len(l.fields))
	copy(out, l.fields)
	return out
}

// Lookup returns the field with the given name.
func (l *Layout[W]) Lookup(name string) (FieldSpec, bool) {
	for _, f := range l.fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// PreserveMask returns the bits that may be written back with their current
// value without side effects. RW1C and RW1S bits are excluded. Reserved bits
// are included; software must preserve them.
func (l *Layout[W]) PreserveMask() W {
	return W(^l.sticky)
}

// FieldValue is one decoded field.
type FieldValue struct {
	Name  string
	Value uint64
	Flag  bool
}

// String formats the value the way Layout.Format does.
func (v FieldValue) String() string {
	if v.Flag {
		return strconv.FormatBool(v.Value != 0)
	}
	return strconv.FormatUint(v.Value, 10)
}

// Values decodes every declared field of raw.
func (l *Layout[W]) Values(raw W) []FieldValue {
	out := make([]FieldValue, len(l.fields))
	for i, f := range l.fields {
		out[i] = FieldValue{
			Name:  f.Name,
			Value: (uint64(raw) >> f.Lo) & mask(f.Width()),
			Flag:  f.Flag,
		}
	}
	return out
}

// Format renders raw as "name{field: value, ...}" for diagnostics.
func (l *Layout[W]) Format(raw W) string {
	var b strings.Builder
	b.WriteString(l.name)
	b.WriteByte('{')
	for i, v := range l.Values(raw) {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(v.Name)
		b.WriteString(": ")
		b.WriteString(v.String())
	}
	b.WriteByte('}')
	return b.String()
}
