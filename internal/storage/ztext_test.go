package storage

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/swordtoolkit/osis2mod/internal/storage/filters"
	"github.com/swordtoolkit/osis2mod/internal/versification"
)

func kjv(t *testing.T) *versification.Scheme {
	t.Helper()
	s, err := versification.Resolve("KJV")
	if err != nil {
		t.Fatalf("resolve KJV: %v", err)
	}
	return s
}

func TestSetEntryAndGetRawEntryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s := New(kjv(t), dir, BlockVerse)
	if err := s.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.SetKey("Gen", 1, 1); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if s.HasEntry() {
		t.Error("expected no entry before write")
	}
	if err := s.SetEntry([]byte("In the beginning")); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}
	if !s.HasEntry() {
		t.Error("expected entry after write")
	}
	got, err := s.GetRawEntry()
	if err != nil {
		t.Fatalf("GetRawEntry: %v", err)
	}
	if string(got) != "In the beginning" {
		t.Errorf("got %q", got)
	}
}

func TestFlushAndReopenRoundTrip(t *testing.T) {
	dir := t.TempDir()
	scheme := kjv(t)
	s := New(scheme, dir, BlockVerse)
	if err := s.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	s.AddRawFilter(&filters.ZlibFilter{Level: 6})

	for _, v := range []struct {
		book         string
		ch, vs       int
		text         string
	}{
		{"Gen", 1, 1, "In the beginning God created the heaven and the earth."},
		{"Gen", 1, 2, "And the earth was without form, and void."},
	} {
		if err := s.SetKey(v.book, v.ch, v.vs); err != nil {
			t.Fatalf("SetKey: %v", err)
		}
		if err := s.SetEntry([]byte(v.text)); err != nil {
			t.Fatalf("SetEntry: %v", err)
		}
	}

	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	for _, fname := range []string{"ot.bzs", "ot.bzv", "ot.bzz"} {
		if _, err := os.Stat(filepath.Join(dir, fname)); err != nil {
			t.Errorf("expected %s to exist: %v", fname, err)
		}
	}

	reopened := New(scheme, dir, BlockVerse)
	reopened.AddRawFilter(&filters.ZlibFilter{Level: 6})
	if err := reopened.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := reopened.SetKey("Gen", 1, 1); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	got, err := reopened.GetRawEntry()
	if err != nil {
		t.Fatalf("GetRawEntry: %v", err)
	}
	if string(got) != "In the beginning God created the heaven and the earth." {
		t.Errorf("got %q after reopen", got)
	}
}

func TestLinkEntrySharesData(t *testing.T) {
	dir := t.TempDir()
	scheme := kjv(t)
	s := New(scheme, dir, BlockVerse)
	if err := s.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.SetKey("Gen", 1, 1); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if err := s.SetEntry([]byte("source text")); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}
	if err := s.LinkEntry("Gen", 1, 2); err != nil {
		t.Fatalf("LinkEntry: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	reopened := New(scheme, dir, BlockVerse)
	if err := reopened.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := reopened.SetKey("Gen", 1, 2); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	got, err := reopened.GetRawEntry()
	if err != nil {
		t.Fatalf("GetRawEntry: %v", err)
	}
	if string(got) != "source text" {
		t.Errorf("linked entry got %q, want %q", got, "source text")
	}
}

func TestSetTestamentKeyRoundTrip(t *testing.T) {
	dir := t.TempDir()
	scheme := kjv(t)
	s := New(scheme, dir, BlockVerse)
	if err := s.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.SetTestamentKey(false); err != nil {
		t.Fatalf("SetTestamentKey: %v", err)
	}
	if err := s.SetEntry([]byte("Old Testament introduction")); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}
	if err := s.SetTestamentKey(true); err != nil {
		t.Fatalf("SetTestamentKey: %v", err)
	}
	if err := s.SetEntry([]byte("New Testament introduction")); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}
	if err := s.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	reopened := New(scheme, dir, BlockVerse)
	if err := reopened.Open(); err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := reopened.SetTestamentKey(false); err != nil {
		t.Fatalf("SetTestamentKey: %v", err)
	}
	got, err := reopened.GetRawEntry()
	if err != nil {
		t.Fatalf("GetRawEntry: %v", err)
	}
	if string(got) != "Old Testament introduction" {
		t.Errorf("OT intro got %q", got)
	}
	if err := reopened.SetTestamentKey(true); err != nil {
		t.Fatalf("SetTestamentKey: %v", err)
	}
	got, err = reopened.GetRawEntry()
	if err != nil {
		t.Fatalf("GetRawEntry: %v", err)
	}
	if string(got) != "New Testament introduction" {
		t.Errorf("NT intro got %q", got)
	}
}

func TestSetKeyUnknownBookFails(t *testing.T) {
	s := New(kjv(t), t.TempDir(), BlockVerse)
	if err := s.SetKey("Xyz", 1, 1); err == nil {
		t.Error("expected error for unknown book")
	}
}

func TestHasEntryAtDoesNotDisturbCurrentKey(t *testing.T) {
	dir := t.TempDir()
	s := New(kjv(t), dir, BlockVerse)
	if err := s.Create(); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := s.SetKey("Gen", 1, 1); err != nil {
		t.Fatalf("SetKey: %v", err)
	}
	if err := s.SetEntry([]byte("verse one")); err != nil {
		t.Fatalf("SetEntry: %v", err)
	}
	if !s.HasEntryAt("Gen", 1, 1) {
		t.Error("expected HasEntryAt true for Gen.1.1")
	}
	if s.HasEntryAt("Gen", 1, 2) {
		t.Error("expected HasEntryAt false for Gen.1.2")
	}
	if s.curChapter != 1 || s.curVerse != 1 {
		t.Error("HasEntryAt should not mutate current key")
	}
}
