package engine

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
)

// Kind tags the variant held by a Value.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	}
	return "unknown"
}

// Value is a JSON-compatible tagged union. The zero Value is Null.
//
// Numbers keep their source text so that reading a flattened leaf back
// returns exactly what the upstream API sent.
type Value struct {
	kind Kind
	b    bool
	text string // number literal or string contents
	arr  []Value
	obj  *Object
}

func Null() Value              { return Value{} }
func Bool(b bool) Value        { return Value{kind: KindBool, b: b} }
func String(s string) Value    { return Value{kind: KindString, text: s} }
func Array(vs ...Value) Value  { return Value{kind: KindArray, arr: vs} }
func ObjectOf(o *Object) Value { return Value{kind: KindObject, obj: o} }

// Number builds a numeric Value from a float. NaN and the infinities have
// no JSON form and become Null.
func Number(f float64) Value {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return Null()
	}
	return Value{kind: KindNumber, text: strconv.FormatFloat(f, 'f', -1, 64)}
}

// NumberLiteral builds a numeric Value from a JSON number literal, which is
// kept verbatim.
func NumberLiteral(lit string) Value {
	return Value{kind: KindNumber, text: lit}
}

func (v Value) Kind() Kind     { return v.kind }
func (v Value) IsNull() bool   { return v.kind == KindNull }
func (v Value) IsArray() bool  { return v.kind == KindArray }
func (v Value) IsObject() bool { return v.kind == KindObject }

// IsScalar reports whether v is Null, Bool, Number or String.
func (v Value) IsScalar() bool { return v.kind < KindArray }

func (v Value) Bool() (bool, bool) { return v.b, v.kind == KindBool }

func (v Value) Str() (string, bool) { return v.text, v.kind == KindString }

// Float returns the numeric value. ok is false for non-numbers.
func (v Value) Float() (float64, bool) {
	if v.kind != KindNumber {
		return 0, false
	}
	f, err := strconv.ParseFloat(v.text, 64)
	return f, err == nil
}

func (v Value) Elems() []Value {
	if v.kind != KindArray {
		return nil
	}
	return v.arr
}

func (v Value) Obj() *Object {
	if v.kind != KindObject {
		return nil
	}
	return v.obj
}

// Len is the element count of an array or the key count of an object.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return v.obj.Len()
	}
	return 0
}

// Text is the textual rendering used by filtering, sorting and measuring:
// Null is empty, scalars are their plain form, containers are JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber, KindString:
		return v.text
	case KindArray, KindObject:
		return v.JSON()
	}
	return ""
}

// JSON returns the canonical compact encoding of v. Object keys keep their
// insertion order and HTML characters are not escaped.
func (v Value) JSON() string {
	var buf bytes.Buffer
	v.writeJSON(&buf)
	return buf.String()
}

func (v Value) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	v.writeJSON(&buf)
	return buf.Bytes(), nil
}

func (v *Value) UnmarshalJSON(b []byte) error {
	parsed, err := ParseJSON(b)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

func (v Value) writeJSON(buf *bytes.Buffer) {
	switch v.kind {
	case KindNull:
		buf.WriteString("null")
	case KindBool:
		buf.WriteString(strconv.FormatBool(v.b))
	case KindNumber:
		buf.WriteString(v.text)
	case KindString:
		writeJSONString(buf, v.text)
	case KindArray:
		buf.WriteByte('[')
		for i, e := range v.arr {
			if i > 0 {
				buf.WriteByte(',')
			}
			e.writeJSON(buf)
		}
		buf.WriteByte(']')
	case KindObject:
		buf.WriteByte('{')
		for i, k := range v.obj.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSONString(buf, k)
			buf.WriteByte(':')
			v.obj.Get(k).writeJSON(buf)
		}
		buf.WriteByte('}')
	}
}

func writeJSONString(buf *bytes.Buffer, s string) {
	enc := json.NewEncoder(buf)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(s)
	// Encode always appends a newline.
	buf.Truncate(buf.Len() - 1)
}

// Indent returns a pretty-printed form of the canonical encoding.
func (v Value) Indent() string {
	var out bytes.Buffer
	if err := json.Indent(&out, []byte(v.JSON()), "", "  "); err != nil {
		return v.JSON()
	}
	return out.String()
}

// Object is an insertion-ordered string → Value mapping. Setting an existing
// key replaces its value but keeps its original position.
type Object struct {
	keys []string
	vals map[string]Value
}

func NewObject() *Object {
	return &Object{vals: map[string]Value{}}
}

func (o *Object) Len() int {
	if o == nil {
		return 0
	}
	return len(o.keys)
}

func (o *Object) Keys() []string {
	if o == nil {
		return nil
	}
	return o.keys
}

// Get returns Null for missing keys.
func (o *Object) Get(key string) Value {
	if o == nil {
		return Value{}
	}
	return o.vals[key]
}

func (o *Object) Lookup(key string) (Value, bool) {
	if o == nil {
		return Value{}, false
	}
	v, ok := o.vals[key]
	return v, ok
}

func (o *Object) Has(key string) bool {
	_, ok := o.Lookup(key)
	return ok
}

func (o *Object) Set(key string, v Value) *Object {
	if _, ok := o.vals[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.vals[key] = v
	return o
}

func (o *Object) Delete(key string) {
	if _, ok := o.vals[key]; !ok {
		return
	}
	delete(o.vals, key)
	for i, k := range o.keys {
		if k == key {
			o.keys = append(o.keys[:i], o.keys[i+1:]...)
			break
		}
	}
}

// Clone copies the key order and top-level values.
func (o *Object) Clone() *Object {
	c := &Object{keys: make([]string, len(o.Keys())), vals: make(map[string]Value, o.Len())}
	copy(c.keys, o.Keys())
	for _, k := range o.Keys() {
		c.vals[k] = o.vals[k]
	}
	return c
}

// Values returns the values in key order.
func (o *Object) Values() []Value {
	out := make([]Value, 0, o.Len())
	for _, k := range o.Keys() {
		out = append(out, o.vals[k])
	}
	return out
}

// --- JSON DECODING ---

// ParseJSON decodes a single JSON document, preserving object key order.
func ParseJSON(b []byte) (Value, error) {
	return DecodeJSON(bytes.NewReader(b))
}

// DecodeJSON reads one JSON document from r.
func DecodeJSON(r io.Reader) (Value, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()

	v, err := decodeValue(dec)
	if err != nil {
		return Value{}, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return Value{}, errors.New("json: trailing data after document")
	}
	return v, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return Value{}, err
	}
	return decodeToken(dec, tok)
}

func decodeToken(dec *json.Decoder, tok json.Token) (Value, error) {
	switch t := tok.(type) {
	case nil:
		return Null(), nil
	case bool:
		return Bool(t), nil
	case json.Number:
		return NumberLiteral(t.String()), nil
	case string:
		return String(t), nil
	case json.Delim:
		switch t {
		case '[':
			var elems []Value
			for dec.More() {
				e, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				elems = append(elems, e)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, fmt.Errorf("json: read array end: %w", err)
			}
			if elems == nil {
				elems = []Value{}
			}
			return Array(elems...), nil
		case '{':
			obj := NewObject()
			for dec.More() {
				kt, err := dec.Token()
				if err != nil {
					return Value{}, err
				}
				key, ok := kt.(string)
				if !ok {
					return Value{}, fmt.Errorf("json: expected object key, got %v", kt)
				}
				val, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				obj.Set(key, val)
			}
			if _, err := dec.Token(); err != nil {
				return Value{}, fmt.Errorf("json: read object end: %w", err)
			}
			return ObjectOf(obj), nil
		}
	}
	return Value{}, fmt.Errorf("json: unexpected token %v", tok)
}

// MustParseJSON is ParseJSON for literals known to be valid.
func MustParseJSON(s string) Value {
	v, err := ParseJSON([]byte(strings.TrimSpace(s)))
	if err != nil {
		panic(err)
	}
	return v
}
