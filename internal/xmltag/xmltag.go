// Package xmltag models the small subset of XML structure the scanner and
// BSP transformer need: a single start/end/empty tag with order-preserving
// attributes, independent of any general-purpose XML/DOM library.
package xmltag

import "strings"

// Attr is one name/value pair in a tag's attribute list, kept in the order
// it was written so re-emitted tags round-trip attribute order.
type Attr struct {
	Name  string
	Value string
}

// Tag is a single XML start, end, or empty element tag.
type Tag struct {
	Name       string
	IsEnd      bool
	IsEmpty    bool
	Attributes []Attr
}

// New creates a start tag with no attributes.
func New(name string) *Tag {
	return &Tag{Name: name}
}

// Get returns the value of the named attribute and whether it was present.
func (t *Tag) Get(name string) (string, bool) {
	for _, a := range t.Attributes {
		if a.Name == name {
			return a.Value, true
		}
	}
	return "", false
}

// Set assigns an attribute value, appending it if not already present and
// overwriting in place (preserving position) if it is.
func (t *Tag) Set(name, value string) {
	for i, a := range t.Attributes {
		if a.Name == name {
			t.Attributes[i].Value = value
			return
		}
	}
	t.Attributes = append(t.Attributes, Attr{Name: name, Value: value})
}

// Remove deletes the named attribute if present.
func (t *Tag) Remove(name string) {
	for i, a := range t.Attributes {
		if a.Name == name {
			t.Attributes = append(t.Attributes[:i], t.Attributes[i+1:]...)
			return
		}
	}
}

// HasSID reports whether this tag carries an sID attribute (milestone open).
func (t *Tag) HasSID() bool {
	_, ok := t.Get("sID")
	return ok
}

// HasEID reports whether this tag carries an eID attribute (milestone close).
func (t *Tag) HasEID() bool {
	_, ok := t.Get("eID")
	return ok
}

// IsMilestoneEnd reports whether this tag should be treated as an end tag:
// it opens with </, or it carries an eID (a milestone close).
func (t *Tag) IsMilestoneEnd() bool {
	return t.IsEnd || t.HasEID()
}

// String re-serializes the tag, in the order attributes were recorded.
func (t *Tag) String() string {
	var b strings.Builder
	b.WriteByte('<')
	if t.IsEnd {
		b.WriteByte('/')
	}
	b.WriteString(t.Name)
	for _, a := range t.Attributes {
		b.WriteByte(' ')
		b.WriteString(a.Name)
		b.WriteString(`="`)
		b.WriteString(a.Value)
		b.WriteByte('"')
	}
	if t.IsEmpty {
		b.WriteString("/>")
	} else {
		b.WriteByte('>')
	}
	return b.String()
}

// Clone returns a deep copy so callers can mutate sID/eID without aliasing
// the original tag's attribute slice.
func (t *Tag) Clone() *Tag {
	attrs := make([]Attr, len(t.Attributes))
	copy(attrs, t.Attributes)
	return &Tag{Name: t.Name, IsEnd: t.IsEnd, IsEmpty: t.IsEmpty, Attributes: attrs}
}
