package tlv

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

// BER-TLV NODE CODEC:
// Card responses are BER-TLV encoded (ISO/IEC 8825-1 subset used by EMV).
// This codec decodes a raw buffer into a tree of Nodes and encodes it back.
//
// Tag rules:
//   - If the low 5 bits of the first tag byte are all set (0x1F), the tag
//     continues into subsequent bytes until one without the 0x80 bit.
//   - Bit 0x20 of the first tag byte marks a constructed object whose value
//     is itself a sequence of TLV objects.
//
// Length rules:
//   - A first length byte below 0x80 is the length itself (short form).
//   - Otherwise its low 7 bits give the count of following big-endian length
//     bytes (long form). A count of zero (indefinite form) is rejected.
//
// Cards under study intentionally return malformed data, so Decode never
// gives up wholesale: it returns every node decoded before the defect
// together with ErrMalformed, and the caller keeps the partial tree.

// ErrMalformed reports a truncated tag/length encoding or a declared length
// that exceeds the remaining buffer.
var ErrMalformed = errors.New("malformed TLV")

// Node is a single decoded BER-TLV object. It is not mutated after decoding.
type Node struct {
	Tag         []byte
	Constructed bool
	Value       []byte // raw value bytes, also populated for constructed nodes
	Children    []Node // populated only for constructed nodes
}

// TagString returns the canonical uppercase-hex identifier of the tag,
// the key format used by the session database.
func (n Node) TagString() string {
	return TagString(n.Tag)
}

// TagString converts raw tag bytes to their canonical uppercase-hex form.
func TagString(tag []byte) string {
	return strings.ToUpper(fmt.Sprintf("%x", tag))
}

// Decode parses a buffer into a sequence of Nodes.
// On a malformed encoding it returns the nodes decoded so far along with an
// error wrapping ErrMalformed; the partial result is always usable.
func Decode(buf []byte) ([]Node, error) {
	var nodes []Node

	rest := buf
	for len(rest) > 0 {
		// EMV permits 0x00 and 0xFF filler between objects.
		if rest[0] == 0x00 || rest[0] == 0xFF {
			rest = rest[1:]
			continue
		}

		node, remaining, err := decodeOne(rest)
		if err != nil {
			// A constructed node with a defect inside still carries its
			// raw value; keep it alongside the error.
			if node.Tag != nil {
				nodes = append(nodes, node)
			}
			return nodes, err
		}

		nodes = append(nodes, node)
		rest = remaining
	}

	return nodes, nil
}

// ParseTag reads one BER tag from the front of buf and returns it together
// with the remaining bytes. Shared with the DOL interpreter, which uses BER
// tags but its own length convention.
func ParseTag(buf []byte) (tag, rest []byte, err error) {
	if len(buf) == 0 {
		return nil, nil, fmt.Errorf("%w: empty tag", ErrMalformed)
	}

	end := 1
	if buf[0]&0x1F == 0x1F {
		// Multi-byte tag: 0x80 is the continuation bit.
		for {
			if end >= len(buf) {
				return nil, nil, fmt.Errorf("%w: tag truncated", ErrMalformed)
			}
			cont := buf[end]&0x80 != 0
			end++
			if !cont {
				break
			}
		}
	}

	return buf[:end], buf[end:], nil
}

func parseLength(buf []byte) (length int, rest []byte, err error) {
	if len(buf) == 0 {
		return 0, nil, fmt.Errorf("%w: missing length", ErrMalformed)
	}

	first := buf[0]
	if first < 0x80 {
		return int(first), buf[1:], nil
	}

	count := int(first & 0x7F)
	if count == 0 {
		return 0, nil, fmt.Errorf("%w: indefinite length not supported", ErrMalformed)
	}
	if count > len(buf)-1 {
		return 0, nil, fmt.Errorf("%w: length field truncated", ErrMalformed)
	}

	for _, b := range buf[1 : 1+count] {
		if length > (1<<24)-1 {
			return 0, nil, fmt.Errorf("%w: length overflow", ErrMalformed)
		}
		length = length<<8 | int(b)
	}

	return length, buf[1+count:], nil
}

func decodeOne(buf []byte) (Node, []byte, error) {
	tag, rest, err := ParseTag(buf)
	if err != nil {
		return Node{}, nil, err
	}

	length, rest, err := parseLength(rest)
	if err != nil {
		return Node{}, nil, fmt.Errorf("tag %s: %w", TagString(tag), err)
	}

	if length > len(rest) {
		return Node{}, nil, fmt.Errorf("tag %s: declared length %d exceeds %d remaining bytes: %w",
			TagString(tag), length, len(rest), ErrMalformed)
	}

	node := Node{
		Tag:         tag,
		Constructed: tag[0]&0x20 != 0,
		Value:       rest[:length],
	}

	if node.Constructed {
		// A defect inside a constructed value loses the children but keeps
		// the node itself; the raw Value is still available to the caller.
		children, err := Decode(node.Value)
		node.Children = children
		if err != nil {
			return node, rest[length:], err
		}
	}

	return node, rest[length:], nil
}

// Encode serializes a sequence of Nodes back to BER-TLV bytes.
// Constructed nodes are encoded from their Children; primitive nodes from
// their Value. Encode(Decode(x)) == x holds for any well-formed x.
func Encode(nodes []Node) []byte {
	var buf bytes.Buffer
	for _, n := range nodes {
		encodeOne(&buf, n)
	}
	return buf.Bytes()
}

func encodeOne(buf *bytes.Buffer, n Node) {
	value := n.Value
	if n.Constructed {
		value = Encode(n.Children)
	}

	buf.Write(n.Tag)
	writeLength(buf, len(value))
	buf.Write(value)
}

func writeLength(buf *bytes.Buffer, length int) {
	if length < 0x80 {
		buf.WriteByte(byte(length))
		return
	}

	var lenBytes []byte
	for v := length; v > 0; v >>= 8 {
		lenBytes = append([]byte{byte(v)}, lenBytes...)
	}

	buf.WriteByte(0x80 | byte(len(lenBytes)))
	buf.Write(lenBytes)
}

// Flatten walks the tree depth-first and returns every node: each
// constructed node is followed by its children. The session database is
// filled from this walk so that nested primitives are reachable by tag.
func Flatten(nodes []Node) []Node {
	var out []Node
	for _, n := range nodes {
		out = append(out, n)
		if n.Constructed {
			out = append(out, Flatten(n.Children)...)
		}
	}
	return out
}

// Find returns the first node carrying the given canonical tag, searching
// the tree depth-first.
func Find(nodes []Node, tag string) (Node, bool) {
	for _, n := range Flatten(nodes) {
		if n.TagString() == tag {
			return n, true
		}
	}
	return Node{}, false
}
