package metadata

import (
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// ResourceMetadata is a named, ordered, multi-valued document field.
type ResourceMetadata struct {
	Name          string
	Values        []any
	AddToFulltext bool
	AddToText     bool
}

// Collection is an ordered set of ResourceMetadata with at most one entry
// per name. Entries keep the order in which their names were first added.
type Collection struct {
	names   []string
	entries map[string]*ResourceMetadata
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{entries: make(map[string]*ResourceMetadata)}
}

// AddValue appends value to the named entry, creating it on first use.
// Absent values (nil, typed nil pointers, blank strings, zero times) are
// ignored. The aggregation flags of the entry are those of the last call.
func (c *Collection) AddValue(name string, value any, fulltext, text bool) {
	if isAbsent(value) {
		return
	}
	m := c.entry(name)
	m.AddToFulltext = fulltext
	m.AddToText = text
	m.Values = append(m.Values, value)
}

// AddValues appends every present value of values to the named entry.
func (c *Collection) AddValues(name string, values []string, fulltext, text bool) {
	for _, v := range values {
		c.AddValue(name, v, fulltext, text)
	}
}

// Set replaces the entry registered under m.Name.
func (c *Collection) Set(m ResourceMetadata) {
	if _, ok := c.entries[m.Name]; !ok {
		c.names = append(c.names, m.Name)
	}
	cp := m
	cp.Values = append([]any(nil), m.Values...)
	c.entries[m.Name] = &cp
}

// Get returns the entry for name, or nil.
func (c *Collection) Get(name string) *ResourceMetadata {
	return c.entries[name]
}

// First returns the first value of the named entry.
func (c *Collection) First(name string) (any, bool) {
	m := c.entries[name]
	if m == nil || len(m.Values) == 0 {
		return nil, false
	}
	return m.Values[0], true
}

// Strings returns the values of the named entry formatted as strings.
func (c *Collection) Strings(name string) []string {
	m := c.entries[name]
	if m == nil {
		return nil
	}
	out := make([]string, 0, len(m.Values))
	for _, v := range m.Values {
		out = append(out, formatValue(v))
	}
	return out
}

// Remove drops the named entry. It reports whether an entry was removed.
func (c *Collection) Remove(name string) bool {
	if _, ok := c.entries[name]; !ok {
		return false
	}
	delete(c.entries, name)
	for i, n := range c.names {
		if n == name {
			c.names = append(c.names[:i], c.names[i+1:]...)
			break
		}
	}
	return true
}

// IsFulltext reports whether the named entry feeds the fulltext aggregate.
func (c *Collection) IsFulltext(name string) bool {
	m := c.entries[name]
	return m != nil && m.AddToFulltext
}

// Names returns the entry names in insertion order.
func (c *Collection) Names() []string {
	return append([]string(nil), c.names...)
}

// Entries returns the entries in insertion order.
func (c *Collection) Entries() []ResourceMetadata {
	out := make([]ResourceMetadata, 0, len(c.names))
	for _, n := range c.names {
		out = append(out, *c.entries[n])
	}
	return out
}

// Len returns the number of entries.
func (c *Collection) Len() int {
	return len(c.names)
}

// Document flattens the collection into the map indexed by the search
// engine. Single values stay scalar, multi-values become slices, and the
// fulltext and text aggregates are derived from the flagged entries.
// Dates are written as RFC 3339 strings with nanoseconds so that stored
// values keep their full precision.
func (c *Collection) Document() map[string]any {
	doc := make(map[string]any, len(c.names)+2)
	var fulltext, text []string
	for _, n := range c.names {
		m := c.entries[n]
		if len(m.Values) == 1 {
			doc[n] = indexValue(m.Values[0])
		} else {
			values := make([]any, len(m.Values))
			for i, v := range m.Values {
				values[i] = indexValue(v)
			}
			doc[n] = values
		}
		if !m.AddToFulltext && !m.AddToText {
			continue
		}
		for _, v := range m.Values {
			s, ok := v.(string)
			if !ok {
				continue
			}
			if m.AddToFulltext {
				fulltext = append(fulltext, s)
			}
			if m.AddToText {
				text = append(text, s)
			}
		}
	}
	if len(fulltext) > 0 {
		doc[FieldFulltext] = fulltext
	}
	if len(text) > 0 {
		doc[FieldText] = text
	}
	return doc
}

// FromStored rebuilds a collection from the stored fields of an indexed
// document. Aggregates are dropped since Document derives them again.
func FromStored(fields map[string]any) (*Collection, error) {
	names := make([]string, 0, len(fields))
	for n := range fields {
		if n == FieldFulltext || n == FieldText {
			continue
		}
		names = append(names, n)
	}
	sort.Strings(names)

	c := NewCollection()
	for _, n := range names {
		fulltext, text := AggregationFlags(n)
		for _, v := range flatten(fields[n]) {
			if IsDateField(n) {
				if s, ok := v.(string); ok {
					t, err := time.Parse(time.RFC3339Nano, s)
					if err != nil {
						return nil, fmt.Errorf("field %s: %w", n, err)
					}
					v = t
				}
			}
			c.AddValue(n, v, fulltext, text)
		}
	}
	return c, nil
}

func (c *Collection) entry(name string) *ResourceMetadata {
	m, ok := c.entries[name]
	if !ok {
		m = &ResourceMetadata{Name: name}
		c.entries[name] = m
		c.names = append(c.names, name)
	}
	return m
}

func flatten(v any) []any {
	switch t := v.(type) {
	case nil:
		return nil
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return []any{v}
	}
}

func isAbsent(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case time.Time:
		return t.IsZero()
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface, reflect.Map, reflect.Slice:
		return rv.IsNil()
	}
	return false
}

func indexValue(v any) any {
	if t, ok := v.(time.Time); ok {
		return t.UTC().Format(time.RFC3339Nano)
	}
	return v
}

func formatValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339Nano)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(v)
	}
}
