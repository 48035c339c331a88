package versification

import "testing"

func TestResolve(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{name: "exact case-sensitive", in: "KJV", want: "KJV"},
		{name: "exact case-insensitive", in: "kjv", want: "KJV"},
		{name: "unique prefix", in: "Vul", want: "Vulg"},
		{name: "default empty", in: "", want: "KJV"},
		{name: "unknown", in: "Nope", wantErr: true},
		{name: "ambiguous prefix", in: "N", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Resolve(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("expected error, got scheme %v", s)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if s.Name != tt.want {
				t.Errorf("got %q, want %q", s.Name, tt.want)
			}
		})
	}
}

func TestResolveAmbiguousCandidates(t *testing.T) {
	_, err := Resolve("N")
	amb, ok := err.(*ErrAmbiguous)
	if !ok {
		t.Fatalf("expected *ErrAmbiguous, got %T", err)
	}
	if len(amb.Candidates) < 2 {
		t.Errorf("expected multiple candidates, got %v", amb.Candidates)
	}
}

func TestSchemeBookIndexAndTestament(t *testing.T) {
	s, _ := Resolve("KJV")
	if idx := s.BookIndex("Gen"); idx != 0 {
		t.Errorf("Gen index = %d, want 0", idx)
	}
	if idx := s.BookIndex("Xyz"); idx != -1 {
		t.Errorf("unknown book index = %d, want -1", idx)
	}
	if tm := s.Testament("Gen"); tm != TestamentOT {
		t.Errorf("Gen testament = %v, want OT", tm)
	}
	if tm := s.Testament("Matt"); tm != TestamentNT {
		t.Errorf("Matt testament = %v, want NT", tm)
	}
	if tm := s.Testament("Xyz"); tm != TestamentNone {
		t.Errorf("unknown book testament = %v, want None", tm)
	}
}

func TestSchemeChapterAndVerseCount(t *testing.T) {
	s, _ := Resolve("KJV")
	if c := s.ChapterCount("Gen"); c != 50 {
		t.Errorf("Gen chapter count = %d, want 50", c)
	}
	if v := s.VerseCount("Gen", 1); v != 31 {
		t.Errorf("Gen 1 verse count = %d, want 31", v)
	}
	if v := s.VerseCount("Gen", 99); v != 0 {
		t.Errorf("out-of-range chapter verse count = %d, want 0", v)
	}
}

func TestSchemeIsValid(t *testing.T) {
	s, _ := Resolve("KJV")
	tests := []struct {
		book         string
		chapter, vs  int
		want         bool
	}{
		{"Gen", 1, 1, true},
		{"Gen", 1, 31, true},
		{"Gen", 1, 32, false},
		{"Gen", 51, 1, false},
		{"Gen", 1, 0, true},
		{"Gen", 0, 0, true},
		{"Xyz", 1, 1, false},
	}
	for _, tt := range tests {
		if got := s.IsValid(tt.book, tt.chapter, tt.vs); got != tt.want {
			t.Errorf("IsValid(%s,%d,%d) = %v, want %v", tt.book, tt.chapter, tt.vs, got, tt.want)
		}
	}
}

func TestSchemeClamp(t *testing.T) {
	s, _ := Resolve("KJV")
	tests := []struct {
		name        string
		chapter, vs int
		wantCh, wantVs int
	}{
		{"chapter beyond last clamps down", 99, 1, 50, 1},
		{"verse beyond chapter max clamps down", 1, 999, 1, 31},
		{"zero chapter clamps to first", 0, 5, 1, 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, vs, ok := s.Clamp("Gen", tt.chapter, tt.vs)
			if !ok {
				t.Fatalf("Clamp returned ok=false")
			}
			if ch != tt.wantCh || vs != tt.wantVs {
				t.Errorf("Clamp(%d,%d) = (%d,%d), want (%d,%d)", tt.chapter, tt.vs, ch, vs, tt.wantCh, tt.wantVs)
			}
		})
	}
}

func TestNames(t *testing.T) {
	names := Names()
	if len(names) != 10 {
		t.Errorf("expected 10 registered schemes, got %d", len(names))
	}
}

func TestMTExcludesNewTestament(t *testing.T) {
	s, err := Resolve("MT")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx := s.BookIndex("Matt"); idx != -1 {
		t.Errorf("MT scheme should not contain Matt, got index %d", idx)
	}
}
