package common

import "sort"

// AnnotationMap maps image identifiers to exactly one bounding box.
//
// The map is built once and never mutated afterwards; the zero value is an empty map.
type AnnotationMap struct {
	boxes map[string]BoundingBox
	ids   []string
}

// NewAnnotationMap copies entries into a new immutable AnnotationMap.
//
// Arguments:
//   - entries: identifier to box mapping. The caller keeps ownership of it.
//
// Returns:
//   - An AnnotationMap whose identifiers are kept in ascending order.
func NewAnnotationMap(entries map[string]BoundingBox) *AnnotationMap {
	m := &AnnotationMap{
		boxes: make(map[string]BoundingBox, len(entries)),
		ids:   make([]string, 0, len(entries)),
	}
	for id, box := range entries {
		m.boxes[id] = box
		m.ids = append(m.ids, id)
	}
	sort.Strings(m.ids)
	return m
}

// Len returns the number of identifiers in the map.
func (m *AnnotationMap) Len() int {
	if m == nil {
		return 0
	}
	return len(m.ids)
}

// Lookup returns the box stored for id.
func (m *AnnotationMap) Lookup(id string) (BoundingBox, bool) {
	if m == nil {
		return BoundingBox{}, false
	}
	box, ok := m.boxes[id]
	return box, ok
}

// Contains reports whether id is present.
func (m *AnnotationMap) Contains(id string) bool {
	_, ok := m.Lookup(id)
	return ok
}

// IDs returns the identifiers sorted ascending. The returned slice is a copy.
func (m *AnnotationMap) IDs() []string {
	if m == nil {
		return nil
	}
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}
