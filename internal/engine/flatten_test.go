package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlattenBreakoutArrayPreserved(t *testing.T) {
	in := MustParseJSON(`{"order":1,"items":[{"sku":"A"}]}`).Obj()

	out := Flatten(in, NewKeySet("items"), "_")

	assert.Equal(t, []string{"order", "items"}, out.Keys())
	assert.True(t, out.Get("items").IsArray())
	assert.Equal(t, `{"order":1,"items":[{"sku":"A"}]}`, ObjectOf(out).JSON())
}

func TestFlattenArrayStringified(t *testing.T) {
	in := MustParseJSON(`{"order":1,"items":[{"sku":"A"}]}`).Obj()

	out := Flatten(in, NewKeySet(), "_")

	v := out.Get("items")
	s, ok := v.Str()
	assert.True(t, ok)
	assert.Equal(t, `[{"sku":"A"}]`, s)
	assert.Equal(t, `{"order":1,"items":"[{\"sku\":\"A\"}]"}`, ObjectOf(out).JSON())
}

func TestFlattenNested(t *testing.T) {
	in := MustParseJSON(`{
		"id": 9,
		"bin": {"code": "A1", "loc": {"name": "Main", "open": true}},
		"note": null
	}`).Obj()

	out := Flatten(in, NewKeySet(), "_")

	assert.Equal(t, []string{"id", "bin_code", "bin_loc_name", "bin_loc_open", "note"}, out.Keys())
	assert.Equal(t, "Main", out.Get("bin_loc_name").Text())
	assert.True(t, out.Get("note").IsNull())
}

func TestFlattenSuffixMatch(t *testing.T) {
	in := MustParseJSON(`{
		"a": {"b": {"itemData": [{"x": 1}], "netsuite_response": {"ok": true}}}
	}`).Obj()

	out := Flatten(in, NewKeySet("itemData", "netsuite_response"), "_")

	assert.True(t, out.Get("a_b_itemData").IsArray())
	assert.True(t, out.Get("a_b_netsuite_response").IsObject())
	assert.False(t, out.Has("a_b_netsuite_response_ok"))
}

func TestFlattenCollisionLaterWins(t *testing.T) {
	in := MustParseJSON(`{"a_b": 1, "a": {"b": 2}}`).Obj()

	out := Flatten(in, NewKeySet(), "_")

	assert.Equal(t, []string{"a_b"}, out.Keys())
	assert.Equal(t, "2", out.Get("a_b").Text())
}

func TestFlattenRoundTripsLeaves(t *testing.T) {
	in := MustParseJSON(`{"s": "x", "n": 3.25, "b": false, "z": null, "o": {"p": {"q": "deep"}}}`).Obj()

	out := Flatten(in, NewKeySet(), "_")

	leaves := map[string]Value{
		"s":     in.Get("s"),
		"n":     in.Get("n"),
		"b":     in.Get("b"),
		"z":     in.Get("z"),
		"o_p_q": in.Get("o").Obj().Get("p").Obj().Get("q"),
	}
	assert.Equal(t, len(leaves), out.Len())
	for k, want := range leaves {
		assert.Equal(t, want, out.Get(k), k)
	}
}

func TestFlattenCustomSeparator(t *testing.T) {
	in := MustParseJSON(`{"a": {"b": 1}}`).Obj()
	out := Flatten(in, NewKeySet(), ".")
	assert.Equal(t, []string{"a.b"}, out.Keys())
}

func TestKeySetMatch(t *testing.T) {
	ks := NewKeySet("itemData", "netsuite_response")

	assert.True(t, ks.Match("itemData", "_"))
	assert.True(t, ks.Match("bin_data_itemData", "_"))
	assert.True(t, ks.Match("x_netsuite_response", "_"))
	assert.False(t, ks.Match("myitemData", "_"))
	assert.False(t, ks.Match("itemData_count", "_"))
	assert.False(t, NewKeySet().Match("itemData", "_"))
}

func TestFlattenAllNonObjects(t *testing.T) {
	rows := FlattenAll([]Value{String("x"), MustParseJSON(`{"a": 1}`)}, NewKeySet(), "_")
	assert.Len(t, rows, 2)
	assert.Equal(t, 0, rows[0].Len())
	assert.Equal(t, 1, rows[1].Len())
}
