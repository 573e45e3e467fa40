// Package tlv handles the BER-TLV (Basic Encoding Rules Tag-Length-Value)
// format used by payment cards. It contains two layers: a tolerant Node
// codec for accumulating arbitrary card data into the session database, and
// reflection-based mapping of decoded data into Go structs via struct tags
// (used for well-known templates such as the FCI and the PPSE directory).
package tlv

import (
	"encoding/hex"
	"fmt"
	"reflect"
	"strings"

	"github.com/moov-io/bertlv"
)

// Unmarshaler allows custom types to implement their own TLV parsing logic.
type Unmarshaler interface {
	UnmarshalTLV(data []byte) error
}

// Unmarshal parses raw BER-TLV data and maps it into a target Go struct.
func Unmarshal(data []byte, target interface{}) error {
	packets, err := bertlv.Decode(data)
	if err != nil {
		return fmt.Errorf("bertlv decode failed: %w", err)
	}
	return UnmarshalFromPackets(packets, target)
}

// UnmarshalFromPackets maps pre-decoded bertlv.TLV objects onto the
// fields of target by their `tlv:"XX"` tags. A tag occurring several
// times maps onto a slice field as repeated elements; packets no field
// claims land in the catch-all Unknown field when the struct has one.
func UnmarshalFromPackets(packets []bertlv.TLV, target interface{}) error {
	v := reflect.ValueOf(target)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return fmt.Errorf("target must be a non-nil pointer")
	}
	v = v.Elem()
	t := v.Type()

	consumed := make(map[int]bool)

	for i := 0; i < v.NumField(); i++ {
		field := v.Field(i)
		tagConfig := t.Field(i).Tag.Get("tlv")
		if tagConfig == "" || tagConfig == ",unknown" || t.Field(i).Name == "Unknown" {
			continue
		}
		want := strings.ToUpper(strings.Split(tagConfig, ",")[0])

		for idx, packet := range packets {
			if strings.ToUpper(packet.Tag) != want {
				continue
			}
			if err := mapPacketToField(packet, field); err != nil {
				return err
			}
			consumed[idx] = true
		}
	}

	return collectUnknown(v, t, packets, consumed)
}

// mapPacketToField grows slice-of-struct fields by one element per
// occurrence; everything else decodes in place.
func mapPacketToField(packet bertlv.TLV, field reflect.Value) error {
	if field.Kind() == reflect.Slice && !isByteSlice(field) {
		elem := reflect.New(field.Type().Elem()).Elem()
		if err := decodeToValue(packet, elem); err != nil {
			return err
		}
		field.Set(reflect.Append(field, elem))
		return nil
	}
	return decodeToValue(packet, field)
}

// decodeToValue writes one packet into a leaf field. Custom Unmarshalers
// win; then byte slices get raw bytes, strings get hex, and struct
// fields recurse into the constructed template.
func decodeToValue(packet bertlv.TLV, field reflect.Value) error {
	if field.CanAddr() {
		if u, ok := field.Addr().Interface().(Unmarshaler); ok {
			return u.UnmarshalTLV(rawBytes(packet))
		}
	}

	switch {
	case isByteSlice(field):
		field.SetBytes(rawBytes(packet))
		return nil

	case field.Kind() == reflect.String:
		field.SetString(hex.EncodeToString(packet.Value))
		return nil

	case isStructOrPtrToStruct(field):
		target := structTarget(field)
		if len(packet.TLVs) > 0 {
			return UnmarshalFromPackets(packet.TLVs, target.Interface())
		}
		return Unmarshal(packet.Value, target.Interface())
	}

	return nil
}

// collectUnknown parks every unconsumed packet in the struct's
// catch-all field, if it declares one.
func collectUnknown(v reflect.Value, t reflect.Type, packets []bertlv.TLV, consumed map[int]bool) error {
	var unknown reflect.Value
	for i := 0; i < v.NumField(); i++ {
		tag := t.Field(i).Tag.Get("tlv")
		if tag == ",unknown" || t.Field(i).Name == "Unknown" {
			unknown = v.Field(i)
			break
		}
	}
	if !unknown.IsValid() {
		return nil
	}

	var leftovers []bertlv.TLV
	for idx, packet := range packets {
		if !consumed[idx] {
			leftovers = append(leftovers, packet)
		}
	}
	if len(leftovers) > 0 && unknown.CanSet() {
		unknown.Set(reflect.ValueOf(leftovers))
	}
	return nil
}

// rawBytes returns the packet payload, re-encoding constructed packets
// so nested templates keep their original wire form.
func rawBytes(p bertlv.TLV) []byte {
	if len(p.TLVs) > 0 {
		if enc, err := bertlv.Encode(p.TLVs); err == nil {
			return enc
		}
	}
	return p.Value
}

// GetValue scans the raw data for a specific tag and returns its raw payload.
func GetValue(data []byte, tag uint) ([]byte, error) {
	packets, err := bertlv.Decode(data)
	if err != nil {
		return nil, err
	}

	want := strings.ToUpper(fmt.Sprintf("%X", tag))
	for _, p := range packets {
		if strings.ToUpper(p.Tag) == want {
			if len(p.TLVs) > 0 {
				return bertlv.Encode(p.TLVs)
			}
			return p.Value, nil
		}
	}
	return nil, fmt.Errorf("tag %s not found", want)
}

func isByteSlice(v reflect.Value) bool {
	return v.Kind() == reflect.Slice && v.Type().Elem().Kind() == reflect.Uint8
}

func isStructOrPtrToStruct(v reflect.Value) bool {
	if v.Kind() == reflect.Struct {
		return true
	}
	return v.Kind() == reflect.Ptr && v.Type().Elem().Kind() == reflect.Struct
}

func structTarget(field reflect.Value) reflect.Value {
	if field.Kind() == reflect.Ptr {
		if field.IsNil() {
			field.Set(reflect.New(field.Type().Elem()))
		}
		return field
	}
	return field.Addr()
}
