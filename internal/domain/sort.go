package domain

import "strings"

// Direction is a sort direction.
type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

// ParseDirection accepts "asc" or "desc" in any case.
func ParseDirection(s string) (Direction, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(Asc):
		return Asc, true
	case string(Desc):
		return Desc, true
	}
	return "", false
}

// Opposite returns the reverse direction.
func (d Direction) Opposite() Direction {
	if d == Asc {
		return Desc
	}
	return Asc
}

// SortField is one (field, direction) pair.
type SortField struct {
	Field     string
	Direction Direction
}

// SortSpec is an ordered list of sort fields; earlier entries take precedence.
type SortSpec []SortField

// ParseSortSpec parses "lastName:asc,firstName:desc". Malformed entries and
// repeated fields are skipped; a missing direction means ascending.
func ParseSortSpec(s string) SortSpec {
	var spec SortSpec
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, dir, hasDir := strings.Cut(part, ":")
		field = strings.TrimSpace(field)
		if field == "" || spec.Has(field) {
			continue
		}
		d := Asc
		if hasDir {
			parsed, ok := ParseDirection(dir)
			if !ok {
				continue
			}
			d = parsed
		}
		spec = append(spec, SortField{Field: field, Direction: d})
	}
	return spec
}

// String is the inverse of ParseSortSpec.
func (s SortSpec) String() string {
	parts := make([]string, 0, len(s))
	for _, f := range s {
		parts = append(parts, f.Field+":"+string(f.Direction))
	}
	return strings.Join(parts, ",")
}

// Has reports whether field appears in the spec.
func (s SortSpec) Has(field string) bool {
	_, ok := s.DirectionOf(field)
	return ok
}

// DirectionOf returns the direction applied to field.
func (s SortSpec) DirectionOf(field string) (Direction, bool) {
	for _, f := range s {
		if f.Field == field {
			return f.Direction, true
		}
	}
	return "", false
}

// Primary returns the first sort field.
func (s SortSpec) Primary() (SortField, bool) {
	if len(s) == 0 {
		return SortField{}, false
	}
	return s[0], true
}

// Toggle returns a new spec with field moved to the front. A field that was
// already primary flips direction; otherwise it becomes primary ascending.
func (s SortSpec) Toggle(field string) SortSpec {
	dir := Asc
	if p, ok := s.Primary(); ok && p.Field == field {
		dir = p.Direction.Opposite()
	}
	out := make(SortSpec, 0, len(s)+1)
	out = append(out, SortField{Field: field, Direction: dir})
	for _, f := range s {
		if f.Field != field {
			out = append(out, f)
		}
	}
	return out
}

// Filter keeps only fields present in allowed, preserving order.
func (s SortSpec) Filter(allowed []string) SortSpec {
	var out SortSpec
	for _, f := range s {
		for _, a := range allowed {
			if f.Field == a {
				out = append(out, f)
				break
			}
		}
	}
	return out
}

// Equal reports whether both specs list the same pairs in the same order.
func (s SortSpec) Equal(o SortSpec) bool {
	if len(s) != len(o) {
		return false
	}
	for i := range s {
		if s[i] != o[i] {
			return false
		}
	}
	return true
}
