// Package bsp implements the BSP→BCV transformer (§4.2): it rewrites OSIS
// elements that legitimately cross verse boundaries into sID/eID milestone
// pairs so a per-verse slice of the event stream stays well-formed XML.
package bsp

import (
	"fmt"

	"github.com/swordtoolkit/osis2mod/internal/xmltag"
)

// milestoneElements rewrites to empty milestones using a generated gen<N>
// id, except verse/chapter/div[type=book] which use the tag's own osisID.
var milestoneElements = map[string]bool{
	"chapter": true, "closer": true, "div": true, "l": true, "lg": true,
	"q": true, "salute": true, "signed": true, "speech": true, "verse": true,
}

// osisIDKeyed elements use their own osisID as sID/eID instead of a
// generated counter.
var osisIDKeyed = map[string]bool{"verse": true, "chapter": true}

// Transformer holds the BSP tag stack (independent of the scanner's or the
// state machine's own stacks) and the process-monotonic gen<N> counter.
type Transformer struct {
	stack   []*xmltag.Tag
	counter int
}

// New creates a Transformer with its counter starting at 1.
func New() *Transformer {
	return &Transformer{}
}

// Diagnostic reports a fatal nesting mismatch (unmatched close) surfaced by
// the transformer; the caller logs it and continues per §4.2's rule that
// mismatched closers are "fatal... but processing continues."
type Diagnostic struct {
	Message string
}

// Transform applies the BSP rewrite rules to one tag exiting the scanner,
// returning the rewritten tag (or tags, for <p> which needs none extra — a
// single milestone suffices per direction) and any nesting diagnostic.
func (t *Transformer) Transform(tag *xmltag.Tag) (*xmltag.Tag, *Diagnostic) {
	if tag.IsEmpty {
		return tag, nil
	}

	if tag.Name == "p" {
		return t.transformP(tag)
	}

	if isColophon(tag) {
		return tag, nil
	}

	if !milestoneElements[tag.Name] {
		return tag, nil
	}

	if tag.IsMilestoneEnd() {
		return t.transformEnd(tag)
	}
	return t.transformStart(tag)
}

func isColophon(tag *xmltag.Tag) bool {
	if tag.Name != "div" {
		return false
	}
	v, _ := tag.Get("type")
	return v == "colophon"
}

func (t *Transformer) transformP(tag *xmltag.Tag) (*xmltag.Tag, *Diagnostic) {
	if tag.IsMilestoneEnd() {
		return t.transformEnd(rewriteAsDiv(tag))
	}
	return t.transformStart(rewriteAsDiv(tag))
}

func rewriteAsDiv(p *xmltag.Tag) *xmltag.Tag {
	div := &xmltag.Tag{Name: "div", IsEnd: p.IsEnd}
	div.Set("type", "x-p")
	return div
}

func (t *Transformer) transformStart(tag *xmltag.Tag) (*xmltag.Tag, *Diagnostic) {
	t.counter++
	id := fmt.Sprintf("gen%d", t.counter)
	if osisIDKeyed[tag.Name] || (tag.Name == "div" && isBookDiv(tag)) {
		if osisID, ok := tag.Get("osisID"); ok {
			id = osisID
		}
	}

	milestone := tag.Clone()
	milestone.IsEmpty = true
	milestone.IsEnd = false
	milestone.Set("sID", id)

	t.stack = append(t.stack, milestone)
	return milestone, nil
}

func isBookDiv(tag *xmltag.Tag) bool {
	v, _ := tag.Get("type")
	return v == "book"
}

func (t *Transformer) transformEnd(tag *xmltag.Tag) (*xmltag.Tag, *Diagnostic) {
	if len(t.stack) == 0 {
		return tag, &Diagnostic{Message: fmt.Sprintf("unmatched close for %q: BSP stack empty", tag.Name)}
	}
	top := t.stack[len(t.stack)-1]
	if top.Name != tag.Name {
		t.stack = t.stack[:len(t.stack)-1]
		return tag, &Diagnostic{Message: fmt.Sprintf("mismatched BSP close: expected %q, got %q", top.Name, tag.Name)}
	}
	t.stack = t.stack[:len(t.stack)-1]

	closer := top.Clone()
	sid, _ := closer.Get("sID")
	closer.Remove("sID")
	closer.Set("eID", sid)
	closer.IsEmpty = true
	return closer, nil
}
