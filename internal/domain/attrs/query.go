package attrs

import (
	"slices"
	"strings"
)

// Direction is a sort direction.
type Direction uint8

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

// ParseDirection maps "desc" (any case) to Desc and everything else to Asc.
func ParseDirection(s string) Direction {
	if strings.EqualFold(strings.TrimSpace(s), "desc") {
		return Desc
	}
	return Asc
}

// Filter keeps records whose attribute Field is the string Value.
type Filter struct {
	Field string
	Value string
}

// Match reports whether bag passes the filter. The comparison is exact on the
// stored value: absent fields and non-string values never match.
func (f Filter) Match(bag Bag) bool {
	v, ok := bag[f.Field]
	if !ok {
		return false
	}
	s, isStr := v.Str()
	return isStr && s == f.Value
}

// Sort orders records by attribute Field.
//
// Present values follow jsonb ordering (null < string < number < bool <
// array < object). A missing field acts as SQL NULL: it sorts after every
// present value ascending and before every present value descending.
type Sort struct {
	Field string
	Dir   Direction
}

// Compare returns -1, 0 or 1 for the attribute ordering of a and b in the
// configured direction. It does not apply the id tiebreak.
func (s Sort) Compare(a, b Bag) int {
	av, aok := a[s.Field]
	bv, bok := b[s.Field]

	var c int
	switch {
	case !aok && !bok:
		c = 0
	case !aok:
		c = 1
	case !bok:
		c = -1
	default:
		c = compare(av, bv)
	}
	if s.Dir == Desc {
		c = -c
	}
	return c
}

// Query bundles the optional filter and sort stages of a listing.
type Query struct {
	Filter *Filter
	Sort   *Sort
}

// ParseQuery builds a Query from raw request parameters. The filter stage is
// enabled only when both filterBy and filter are non-empty; the sort stage is
// enabled whenever orderBy is non-empty.
func ParseQuery(filterBy, filter, orderBy, order string) Query {
	var q Query
	filterBy = strings.TrimSpace(filterBy)
	if filterBy != "" && filter != "" {
		q.Filter = &Filter{Field: filterBy, Value: filter}
	}
	if orderBy = strings.TrimSpace(orderBy); orderBy != "" {
		q.Sort = &Sort{Field: orderBy, Dir: ParseDirection(order)}
	}
	return q
}

// Record is anything carrying an attribute bag and a stable numeric id.
type Record interface {
	AttributeBag() Bag
	RecordID() int64
}

// Apply filters and orders items. The input slice is not modified. Without a
// sort stage the result is ordered by id ascending; with one, equal attribute
// values fall back to id ascending.
func Apply[T Record](items []T, q Query) []T {
	out := make([]T, 0, len(items))
	for _, it := range items {
		if q.Filter != nil && !q.Filter.Match(it.AttributeBag()) {
			continue
		}
		out = append(out, it)
	}
	slices.SortStableFunc(out, func(a, b T) int {
		if q.Sort != nil {
			if c := q.Sort.Compare(a.AttributeBag(), b.AttributeBag()); c != 0 {
				return c
			}
		}
		switch ai, bi := a.RecordID(), b.RecordID(); {
		case ai < bi:
			return -1
		case ai > bi:
			return 1
		}
		return 0
	})
	return out
}
