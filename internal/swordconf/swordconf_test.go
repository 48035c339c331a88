package swordconf

import (
	"os"
	"path/filepath"
	"testing"
)

func TestParseAndWriteRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.conf")

	original := &Conf{
		ModuleName:    "MyBible",
		DataPath:      "./modules/texts/ztext/mybible/",
		ModDrv:        "zText",
		BlockType:     "BOOK",
		CompressType:  "ZIP",
		Encoding:      "UTF-8",
		Versification: "KJV",
		Description:   "My Bible\\ Translation",
		Properties:    map[string]string{},
	}

	if err := Write(path, original); err != nil {
		t.Fatalf("Write error: %v", err)
	}

	parsed, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if parsed.ModuleName != "MyBible" {
		t.Errorf("ModuleName = %q, want MyBible", parsed.ModuleName)
	}
	if parsed.ModDrv != "zText" {
		t.Errorf("ModDrv = %q, want zText", parsed.ModDrv)
	}
	if parsed.Versification != "KJV" {
		t.Errorf("Versification = %q, want KJV", parsed.Versification)
	}
	if !parsed.IsCompressed() {
		t.Error("expected IsCompressed() true for zText")
	}
	if parsed.ModuleType() != "Bible" {
		t.Errorf("ModuleType() = %q, want Bible", parsed.ModuleType())
	}
}

func TestParseMultilineContinuation(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "multi.conf")
	content := "[Test]\nModDrv=zText\nAbout=Line one\\\n continues here\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write test fixture: %v", err)
	}

	conf, err := Parse(path)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := "Line one continues here"
	if conf.About != want {
		t.Errorf("About = %q, want %q", conf.About, want)
	}
}

func TestIsEncrypted(t *testing.T) {
	conf := &Conf{CipherKey: "secret"}
	if !conf.IsEncrypted() {
		t.Error("expected IsEncrypted() true")
	}
	conf2 := &Conf{}
	if conf2.IsEncrypted() {
		t.Error("expected IsEncrypted() false")
	}
}
