// Package tag implements the generic tagged-value container format used
// by structured persistence: named fields in a compound, ordered lists of
// opaque records, scalar leaves. Field and list order is preserved
// through a JSON round trip, which plain map-based decoding does not
// guarantee.
package tag

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Value is a leaf or nested container: string, float64, bool, nil,
// *Compound or List.
type Value any

// List is an ordered sequence of values.
type List []Value

// Compound is an order-preserving set of named values.
type Compound struct {
	keys   []string
	values map[string]Value
}

// NewCompound creates an empty compound.
func NewCompound() *Compound {
	return &Compound{values: make(map[string]Value)}
}

// Set stores v under name, appending the name to the field order on
// first use.
func (c *Compound) Set(name string, v Value) {
	if _, ok := c.values[name]; !ok {
		c.keys = append(c.keys, name)
	}
	c.values[name] = v
}

// Get returns the value stored under name.
func (c *Compound) Get(name string) (Value, bool) {
	v, ok := c.values[name]
	return v, ok
}

// Keys returns the field names in insertion order.
func (c *Compound) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Len returns the number of named fields.
func (c *Compound) Len() int {
	return len(c.keys)
}

// SetInt stores an integer leaf.
func (c *Compound) SetInt(name string, v int) {
	c.Set(name, float64(v))
}

// Int reads an integer leaf. JSON numbers decode as float64.
func (c *Compound) Int(name string) (int, bool) {
	v, ok := c.values[name]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return int(n), true
	case int:
		return n, true
	default:
		return 0, false
	}
}

// String reads a string leaf.
func (c *Compound) String(name string) (string, bool) {
	v, ok := c.values[name]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// SetList stores an ordered list under name.
func (c *Compound) SetList(name string, l List) {
	c.Set(name, l)
}

// ListField reads an ordered list field.
func (c *Compound) ListField(name string) (List, bool) {
	v, ok := c.values[name]
	if !ok {
		return nil, false
	}
	l, ok := v.(List)
	return l, ok
}

// MarshalJSON writes the compound as a JSON object with fields in
// insertion order.
func (c *Compound) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range c.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		name, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(name)
		buf.WriteByte(':')
		val, err := json.Marshal(c.values[k])
		if err != nil {
			return nil, fmt.Errorf("marshal field %q: %w", k, err)
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object token by token so field order
// survives decoding.
func (c *Compound) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("tag: expected object, got %v", tok)
	}
	c.keys = nil
	c.values = make(map[string]Value)
	return decodeObject(dec, c)
}

// Encode renders a compound to its serialized form.
func Encode(c *Compound) ([]byte, error) {
	return json.Marshal(c)
}

// Decode parses a serialized compound.
func Decode(data []byte) (*Compound, error) {
	c := NewCompound()
	if err := json.Unmarshal(data, c); err != nil {
		return nil, err
	}
	return c, nil
}

func decodeObject(dec *json.Decoder, c *Compound) error {
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("tag: expected field name, got %v", keyTok)
		}
		v, err := decodeValue(dec)
		if err != nil {
			return err
		}
		c.Set(key, v)
	}
	// consume closing '}'
	_, err := dec.Token()
	return err
}

func decodeList(dec *json.Decoder) (List, error) {
	var l List
	for dec.More() {
		v, err := decodeValue(dec)
		if err != nil {
			return nil, err
		}
		l = append(l, v)
	}
	// consume closing ']'
	if _, err := dec.Token(); err != nil {
		return nil, err
	}
	return l, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			nested := NewCompound()
			if err := decodeObject(dec, nested); err != nil {
				return nil, err
			}
			return nested, nil
		case '[':
			return decodeList(dec)
		default:
			return nil, fmt.Errorf("tag: unexpected delimiter %v", t)
		}
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, err
		}
		return f, nil
	default:
		// string, bool or nil
		return t, nil
	}
}
