package container

import "strings"

// HeaderField is a single name/value pair as carried over the middleware RPC
// wire shape (spec.md §6: "headers: [{name, value}]").
type HeaderField struct {
	Name  string
	Value string
}

// Headers is an ordered, case-insensitive multimap. Insertion order is
// preserved because the spec requires header names stored lower-case and
// response-phase additions to append (not overwrite) rather than lose
// duplicates the way the reference implementation does.
type Headers struct {
	order  []string
	values map[string][]string
}

// NewHeaders builds an empty Headers set.
func NewHeaders() *Headers {
	return &Headers{values: make(map[string][]string)}
}

func key(name string) string { return strings.ToLower(name) }

// Set replaces all values for name with a single value, preserving the
// name's original insertion position if it already existed.
func (h *Headers) Set(name, value string) {
	k := key(name)
	if _, ok := h.values[k]; !ok {
		h.order = append(h.order, k)
	}
	h.values[k] = []string{value}
}

// Append adds value to name without removing existing values.
func (h *Headers) Append(name, value string) {
	k := key(name)
	if _, ok := h.values[k]; !ok {
		h.order = append(h.order, k)
	}
	h.values[k] = append(h.values[k], value)
}

// Remove deletes all values for name (exact case-insensitive match).
func (h *Headers) Remove(name string) {
	k := key(name)
	if _, ok := h.values[k]; !ok {
		return
	}
	delete(h.values, k)
	for i, existing := range h.order {
		if existing == k {
			h.order = append(h.order[:i], h.order[i+1:]...)
			break
		}
	}
}

// Get returns the first value for name, if any.
func (h *Headers) Get(name string) (string, bool) {
	vals, ok := h.values[key(name)]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// Values returns every value stored for name, in insertion order.
func (h *Headers) Values(name string) []string {
	return h.values[key(name)]
}

// Fields returns every name/value pair, in insertion order, one entry per
// value (a header with N appended values yields N entries with the same
// lower-cased name).
func (h *Headers) Fields() []HeaderField {
	fields := make([]HeaderField, 0, len(h.order))
	for _, k := range h.order {
		for _, v := range h.values[k] {
			fields = append(fields, HeaderField{Name: k, Value: v})
		}
	}
	return fields
}

// Clone returns a deep copy so Container snapshots never alias.
func (h *Headers) Clone() *Headers {
	clone := &Headers{
		order:  append([]string(nil), h.order...),
		values: make(map[string][]string, len(h.values)),
	}
	for k, v := range h.values {
		clone.values[k] = append([]string(nil), v...)
	}
	return clone
}

// Len reports the number of distinct header names stored.
func (h *Headers) Len() int { return len(h.order) }
