package tableservice

import (
	"slices"
)

type FilterFieldString = string

/***** Filter *****/

// Filter is implemented by anything that can describe a search as a list of column constraints.
//
// Definition must be a total function without side effects: calling it any number of times returns
// the same view until the owner of the filter mutates it.
type Filter interface {
	Definition() Definition
}

/***** Definition *****/

// Definition is the ordered field-to-constraint mapping a Filter produces.
// The query builder combines all constraints with AND. An empty Definition is unconstrained.
type Definition []Constraint

// Fields returns the field names in definition order.
func (d Definition) Fields() []FilterFieldString {
	fields := make([]FilterFieldString, 0, len(d))
	for _, c := range d {
		fields = append(fields, c.field)
	}

	return fields
}

/***** Constraint *****/

// Constraint restricts one field either to a single value (equality) or to a set of values (membership).
// Field names are in application case (e.g. "brandId"), see ToStorageName.
type Constraint struct {
	field      FilterFieldString
	value      any
	values     []any
	membership bool
}

// Equals builds an equality constraint.
func Equals(field FilterFieldString, value any) Constraint {
	return Constraint{field: field, value: value}
}

// MemberOf builds a set membership constraint. An empty set matches no rows.
func MemberOf(field FilterFieldString, values ...any) Constraint {
	return Constraint{field: field, values: slices.Clone(values), membership: true}
}

// In builds a set membership constraint from a typed slice.
func In[T any](field FilterFieldString, values ...T) Constraint {
	anyValues := make([]any, 0, len(values))
	for _, v := range values {
		anyValues = append(anyValues, v)
	}

	return Constraint{field: field, values: anyValues, membership: true}
}

func (c Constraint) Field() FilterFieldString {
	return c.field
}

func (c Constraint) IsMembership() bool {
	return c.membership
}

// Value returns the equality value, nil for membership constraints.
func (c Constraint) Value() any {
	return c.value
}

// Values returns a copy of the membership set, nil for equality constraints.
func (c Constraint) Values() []any {
	return slices.Clone(c.values)
}

/***** SimpleFilter *****/

// SimpleFilter is a dynamic key/value bag implementing Filter.
// It keeps insertion order so that the generated SQL is deterministic.
type SimpleFilter struct {
	order       []FilterFieldString
	constraints map[FilterFieldString]Constraint
}

// NewSimpleFilter creates an empty SimpleFilter.
func NewSimpleFilter() *SimpleFilter {
	return &SimpleFilter{
		constraints: make(map[FilterFieldString]Constraint),
	}
}

// Set creates or replaces an equality entry. A replaced entry keeps its position.
func (f *SimpleFilter) Set(key FilterFieldString, value any) *SimpleFilter {
	f.put(Equals(key, value))

	return f
}

// SetMemberOf creates or replaces a membership entry. A replaced entry keeps its position.
func (f *SimpleFilter) SetMemberOf(key FilterFieldString, values ...any) *SimpleFilter {
	f.put(MemberOf(key, values...))

	return f
}

// Get returns the stored value, or false if the key is unset.
// For membership entries the value is the []any set.
func (f *SimpleFilter) Get(key FilterFieldString) (any, bool) {
	c, ok := f.constraints[key]
	if !ok {
		return nil, false
	}

	if c.membership {
		return c.Values(), true
	}

	return c.value, true
}

// Unset removes an entry, unknown keys are ignored.
func (f *SimpleFilter) Unset(key FilterFieldString) {
	if _, ok := f.constraints[key]; !ok {
		return
	}

	delete(f.constraints, key)
	f.order = slices.DeleteFunc(f.order, func(k FilterFieldString) bool { return k == key })
}

// Len returns the number of entries.
func (f *SimpleFilter) Len() int {
	if f == nil {
		return 0
	}

	return len(f.order)
}

// Definition implements Filter.
func (f *SimpleFilter) Definition() Definition {
	if f == nil {
		return nil
	}

	definition := make(Definition, 0, len(f.order))
	for _, key := range f.order {
		definition = append(definition, f.constraints[key])
	}

	return definition
}

func (f *SimpleFilter) put(c Constraint) {
	if f.constraints == nil {
		f.constraints = make(map[FilterFieldString]Constraint)
	}

	if _, exists := f.constraints[c.field]; !exists {
		f.order = append(f.order, c.field)
	}

	f.constraints[c.field] = c
}
