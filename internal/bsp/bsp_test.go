package bsp

import (
	"testing"

	"github.com/swordtoolkit/osis2mod/internal/xmltag"
)

func TestParagraphRewrittenToMilestonePair(t *testing.T) {
	tr := New()
	p := xmltag.New("p")
	start, diag := tr.Transform(p)
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %v", diag)
	}
	if start.Name != "div" {
		t.Errorf("start.Name = %q, want div", start.Name)
	}
	if v, _ := start.Get("type"); v != "x-p" {
		t.Errorf("type = %q, want x-p", v)
	}
	sid, ok := start.Get("sID")
	if !ok {
		t.Fatal("expected sID on start milestone")
	}

	pEnd := &xmltag.Tag{Name: "p", IsEnd: true}
	end, diag := tr.Transform(pEnd)
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %v", diag)
	}
	eid, _ := end.Get("eID")
	if eid != sid {
		t.Errorf("eID = %q, want sID %q", eid, sid)
	}
}

func TestVerseUsesOsisIDAsMilestoneID(t *testing.T) {
	tr := New()
	verse := xmltag.New("verse")
	verse.Set("osisID", "Gen.1.1")
	start, _ := tr.Transform(verse)
	if sid, _ := start.Get("sID"); sid != "Gen.1.1" {
		t.Errorf("sID = %q, want Gen.1.1", sid)
	}
}

func TestColophonPassesThroughUnchanged(t *testing.T) {
	tr := New()
	div := xmltag.New("div")
	div.Set("type", "colophon")
	got, diag := tr.Transform(div)
	if diag != nil {
		t.Fatalf("unexpected diagnostic: %v", diag)
	}
	if got != div {
		t.Error("colophon div should pass through unchanged")
	}
}

func TestMismatchedCloseReportedButNotFatal(t *testing.T) {
	tr := New()
	tr.Transform(xmltag.New("q"))
	end := &xmltag.Tag{Name: "lg", IsEnd: true}
	_, diag := tr.Transform(end)
	if diag == nil {
		t.Fatal("expected mismatch diagnostic")
	}
}

func TestUnmatchedCloseReportsDiagnostic(t *testing.T) {
	tr := New()
	end := &xmltag.Tag{Name: "q", IsEnd: true}
	_, diag := tr.Transform(end)
	if diag == nil {
		t.Fatal("expected diagnostic for unmatched close")
	}
}

func TestEmptyTagPassesThrough(t *testing.T) {
	tr := New()
	tag := &xmltag.Tag{Name: "verse", IsEmpty: true}
	got, diag := tr.Transform(tag)
	if diag != nil || got != tag {
		t.Errorf("empty tag should pass through, got %+v diag=%v", got, diag)
	}
}
