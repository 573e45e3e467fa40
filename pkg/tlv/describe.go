package tlv

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/moov-io/bertlv"
)

// Report rendering for tlv-tagged structs. Each populated []byte field
// becomes one indented line; the catch-all []bertlv.TLV field becomes one
// line per unknown tag. Rendering honors the same struct tags the parser
// reads: `tlv` supplies the tag shown next to the field name, `fmt`
// selects how the value is displayed (hex by default, "ascii" or "int"
// when the element has a textual or numeric interpretation).

var unknownSliceType = reflect.TypeOf([]bertlv.TLV{})

// WriteStructFields renders the populated fields of s into sb, one line
// each, prefixed by a dot-path. Lines are newline-joined without a
// trailing newline; a separating newline is inserted when sb already
// holds content.
func WriteStructFields(sb *strings.Builder, prefix string, s interface{}) {
	val := reflect.ValueOf(s)
	if val.Kind() == reflect.Ptr {
		if val.IsNil() {
			return
		}
		val = val.Elem()
	}

	var lines []string
	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)

		switch {
		case field.Type() == unknownSliceType:
			if field.Len() == 0 {
				continue
			}
			for _, t := range field.Interface().([]bertlv.TLV) {
				lines = append(lines, fmt.Sprintf("    - %s.Unknown Tag %s: %s",
					prefix, t.Tag, strings.ToUpper(hex.EncodeToString(t.Value))))
			}

		case field.Kind() == reflect.Slice && field.Type().Elem().Kind() == reflect.Uint8:
			if field.Len() == 0 {
				continue
			}
			lines = append(lines, fieldLine(prefix, typ.Field(i), field.Bytes()))
		}
	}

	if len(lines) == 0 {
		return
	}
	if sb.Len() > 0 {
		sb.WriteString("\n")
	}
	sb.WriteString(strings.Join(lines, "\n"))
}

func fieldLine(prefix string, ft reflect.StructField, value []byte) string {
	name := ft.Name
	if tag := ft.Tag.Get("tlv"); tag != "" {
		name = fmt.Sprintf("%s (%s)", name, tag)
	}

	var display string
	switch ft.Tag.Get("fmt") {
	case "ascii":
		display = fmt.Sprintf("%X (%q)", value, MakeSafeASCII(value))
	case "int":
		var n int
		for _, b := range value {
			n = n<<8 | int(b)
		}
		display = fmt.Sprintf("%X (Dec: %d)", value, n)
	default:
		display = strings.ToUpper(hex.EncodeToString(value))
	}

	return fmt.Sprintf("    - %s.%s: %s", prefix, name, display)
}

// MakeSafeASCII replaces non-printable bytes with '.' for display.
func MakeSafeASCII(data []byte) string {
	return strings.Map(func(r rune) rune {
		if r >= 32 && r <= 126 {
			return r
		}
		return '.'
	}, string(data))
}
