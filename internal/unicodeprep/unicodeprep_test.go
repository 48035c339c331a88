package unicodeprep

import "testing"

func TestIsValidUTF8(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want bool
	}{
		{"ascii", []byte("hello"), true},
		{"valid 2-byte", []byte("caf\xc3\xa9"), true},
		{"valid 3-byte", []byte("\xe4\xb8\xad"), true},
		{"valid 4-byte", []byte("\xf0\x9f\x98\x80"), true},
		{"lone continuation byte", []byte{0x80}, false},
		{"truncated 2-byte", []byte{0xc3}, false},
		{"overlong lead 0xFE", []byte{0xfe, 0x80}, false},
		{"windows-1252 e9", []byte{0xe9}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsValidUTF8(tt.in); got != tt.want {
				t.Errorf("IsValidUTF8(%v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestProcessNormalizesValidUTF8(t *testing.T) {
	p := New()
	out := p.Process([]byte("hello"))
	if string(out) != "hello" {
		t.Errorf("got %q", out)
	}
	if p.Stats.Normalized != 1 {
		t.Errorf("Normalized = %d, want 1", p.Stats.Normalized)
	}
}

func TestProcessConvertsWindows1252(t *testing.T) {
	p := New()
	out := p.Process([]byte{0xe9}) // 'é' in Windows-1252
	if !IsValidUTF8(out) {
		t.Errorf("output not valid UTF-8: %v", out)
	}
	if p.Stats.Converted != 1 {
		t.Errorf("Converted = %d, want 1", p.Stats.Converted)
	}
}

func TestProcessWarnsWhenNormalizationDisabled(t *testing.T) {
	p := New()
	p.NormalizeEnabled = false
	out := p.Process([]byte{0xe9})
	if string(out) != string([]byte{0xe9}) {
		t.Error("expected unmodified bytes when normalization disabled")
	}
	if p.Stats.Warned != 1 {
		t.Errorf("Warned = %d, want 1", p.Stats.Warned)
	}
}
