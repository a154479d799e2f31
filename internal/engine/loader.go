package engine

import (
	"fmt"
)

// Shape says how a dataset document holds its records.
type Shape string

const (
	// ShapeList is a plain array of records.
	ShapeList Shape = "list"
	// ShapeKeyed is an object of records keyed by id; arrays pass through.
	ShapeKeyed Shape = "keyed"
	// ShapeInventory is internal_id → location_id → {itemDetails, total_available},
	// exploded into item rows and grouped by item.
	ShapeInventory Shape = "inventory"
)

func ParseShape(s string) (Shape, error) {
	switch sh := Shape(s); sh {
	case ShapeList, ShapeKeyed, ShapeInventory:
		return sh, nil
	case "":
		return ShapeKeyed, nil
	}
	return "", fmt.Errorf("unknown dataset shape %q", s)
}

// Descriptor is the per-dataset shape passed in by the caller.
type Descriptor struct {
	// Envelope names a wrapping field to unwrap first, e.g. "data".
	Envelope string
	Shape    Shape
	// KeyField, for keyed documents, receives each record's key.
	KeyField string
}

// InventoryDetailsField holds the grouped rows of an inventory item.
const InventoryDetailsField = "_details"

// LoadRecords extracts the record sequence from a fetched document. Input
// that does not fit the shape yields no records.
func LoadRecords(doc Value, d Descriptor) []Value {
	// 1. Unwrap the envelope when present
	if d.Envelope != "" {
		if inner, ok := doc.Obj().Lookup(d.Envelope); ok {
			doc = inner
		}
	}

	// 2. Project by shape
	switch d.Shape {
	case ShapeList:
		if doc.IsArray() {
			return doc.Elems()
		}
	case ShapeKeyed, "":
		switch doc.Kind() {
		case KindArray:
			return doc.Elems()
		case KindObject:
			if d.KeyField != "" {
				return keyedRecords(doc.Obj(), d.KeyField)
			}
			return doc.Obj().Values()
		}
	case ShapeInventory:
		return groupInventory(explodeInventory(doc))
	}
	return []Value{}
}

// keyedRecords puts each key in front of its record. A field of the same
// name inside the record wins.
func keyedRecords(byKey *Object, field string) []Value {
	out := make([]Value, 0, byKey.Len())
	for _, key := range byKey.Keys() {
		v := byKey.Get(key)
		rec := v.Obj()
		if rec == nil {
			out = append(out, v)
			continue
		}
		row := NewObject().Set(field, String(key))
		for _, k := range rec.Keys() {
			row.Set(k, rec.Get(k))
		}
		out = append(out, ObjectOf(row))
	}
	return out
}

func explodeInventory(doc Value) []*Object {
	var rows []*Object
	byID := doc.Obj()
	for _, internalID := range byID.Keys() {
		byLocation := byID.Get(internalID).Obj()
		for _, locationID := range byLocation.Keys() {
			bin := byLocation.Get(locationID).Obj()
			details := bin.Get("itemDetails")
			if !details.IsArray() {
				continue
			}
			for _, item := range details.Elems() {
				row := NewObject()
				row.Set("internal_id", String(internalID))
				row.Set("location_id", String(locationID))
				itemObj := item.Obj()
				for _, k := range itemObj.Keys() {
					row.Set(k, itemObj.Get(k))
				}
				row.Set("total_available", bin.Get("total_available"))
				rows = append(rows, row)
			}
		}
	}
	return rows
}

// groupInventory keeps the first row per item, sums total_available over
// distinct locations and attaches the group under InventoryDetailsField.
func groupInventory(rows []*Object) []Value {
	var order []string
	groups := map[string][]*Object{}
	for _, r := range rows {
		key := r.Get("item").JSON()
		if _, ok := groups[key]; !ok {
			order = append(order, key)
		}
		groups[key] = append(groups[key], r)
	}

	out := make([]Value, 0, len(order))
	for _, key := range order {
		group := groups[key]

		seen := map[string]bool{}
		var total float64
		details := make([]Value, 0, len(group))
		for _, r := range group {
			details = append(details, ObjectOf(r))
			loc := r.Get("location_id").Text()
			if seen[loc] {
				continue
			}
			seen[loc] = true
			if f, ok := numericValue(r.Get("total_available")); ok {
				total += f
			}
		}

		head := group[0].Clone()
		head.Set("total_available", Number(total))
		head.Set(InventoryDetailsField, Array(details...))
		out = append(out, ObjectOf(head))
	}
	return out
}
