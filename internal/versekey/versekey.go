// Package versekey implements VerseKey/ListKey (§3), the osisID/osisRef
// mini-language parser, and the verse resolver's re-versification (§4.5).
// A small participle grammar validates/structures a reference after the
// byte-level prepare pass has rewritten it; prepare itself stays a
// tight byte-scan since participle does not fit a single-pass rewrite.
package versekey

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	cerrors "github.com/swordtoolkit/osis2mod/core/errors"
	"github.com/swordtoolkit/osis2mod/internal/versification"
)

// VerseKey is an ordered (testament, book, chapter, verse) tuple. Zero
// components denote intro levels: book==0 is a testament intro, chapter==0
// is a book intro, verse==0 is a chapter intro.
type VerseKey struct {
	Scheme    *versification.Scheme
	Testament versification.Testament
	Book      string // OSIS book ID, empty at testament-intro level
	Chapter   int
	Verse     int
	Strict    bool // true: preserve as-set; false: auto-normalize
}

// NewVerseKey creates a VerseKey bound to scheme, in auto-normalizing mode.
func NewVerseKey(scheme *versification.Scheme) *VerseKey {
	return &VerseKey{Scheme: scheme}
}

// OSISRef renders the canonical OSIS reference text for the key.
func (k *VerseKey) OSISRef() string {
	if k.Book == "" {
		return ""
	}
	if k.Chapter == 0 {
		return k.Book
	}
	if k.Verse == 0 {
		return k.Book + "." + strconv.Itoa(k.Chapter)
	}
	return k.Book + "." + strconv.Itoa(k.Chapter) + "." + strconv.Itoa(k.Verse)
}

// IsValid reports whether the key, as currently set, identifies a real
// verse/intro level in its scheme.
func (k *VerseKey) IsValid() bool {
	if k.Scheme == nil {
		return false
	}
	if k.Book == "" {
		return k.Chapter == 0 && k.Verse == 0
	}
	return k.Scheme.IsValid(k.Book, k.Chapter, k.Verse)
}

// ChapterMax returns the last chapter number of the key's book, or 0.
func (k *VerseKey) ChapterMax() int {
	if k.Scheme == nil || k.Book == "" {
		return 0
	}
	return k.Scheme.ChapterCount(k.Book)
}

// VerseMax returns the last verse number of the key's chapter, or 0.
func (k *VerseKey) VerseMax() int {
	if k.Scheme == nil || k.Book == "" {
		return 0
	}
	return k.Scheme.VerseCount(k.Book, k.Chapter)
}

// Normalize reconstructs a valid key from a possibly out-of-range one,
// clamping per §4.5 steps 1-2 (chapter then verse). It does not perform the
// has_entry backward walk — call ResolveWrite for that.
func (k *VerseKey) Normalize() {
	if k.Scheme == nil || k.Book == "" {
		return
	}
	ch, vs, ok := k.Scheme.Clamp(k.Book, k.Chapter, k.Verse)
	if ok {
		k.Chapter, k.Verse = ch, vs
	}
}

// Equal-after-normalize strict comparison per §4.5 "Validation": a
// reference is valid iff it equals its auto-normalized form.
func (k *VerseKey) equalsNormalized() bool {
	clone := *k
	clone.Normalize()
	return clone.Chapter == k.Chapter && clone.Verse == k.Verse
}

// Advance moves the key forward one verse, rolling into the next chapter or
// book as needed. Returns false if already at the scheme's last verse.
func (k *VerseKey) Advance() bool {
	if k.Scheme == nil || k.Book == "" {
		return false
	}
	max := k.VerseMax()
	if k.Verse < max {
		k.Verse++
		return true
	}
	chMax := k.ChapterMax()
	if k.Chapter < chMax {
		k.Chapter++
		k.Verse = 1
		return true
	}
	idx := k.Scheme.BookIndex(k.Book)
	if idx < 0 || idx+1 >= len(k.Scheme.Books) {
		return false
	}
	k.Book = k.Scheme.Books[idx+1].OSIS
	k.Chapter, k.Verse = 1, 1
	return true
}

// ListKey is an ordered, positionable sequence of VerseKeys parsed from a
// multi-reference OSIS string.
type ListKey struct {
	Keys []*VerseKey
	pos  int
	past bool
}

// Top resets the list's cursor to the first element.
func (l *ListKey) Top() *VerseKey {
	l.pos = 0
	l.past = len(l.Keys) == 0
	if l.past {
		return nil
	}
	return l.Keys[0]
}

// Next advances the cursor, returning the next key or nil and setting the
// past-end flag once the list is exhausted.
func (l *ListKey) Next() *VerseKey {
	l.pos++
	if l.pos >= len(l.Keys) {
		l.past = true
		return nil
	}
	return l.Keys[l.pos]
}

// Past reports whether the cursor has moved beyond the last element.
func (l *ListKey) Past() bool {
	return l.past
}

// --- participle grammar for structural validation ---

type refGrammar struct {
	Atoms []*atomRef `parser:"@@ (';' @@)*"`
}

type atomRef struct {
	Work  string   `parser:"(@Ident ':')?"`
	Start *idPath  `parser:"@@"`
	End   *idPath  `parser:"('-' @@)?"`
	Grain string   `parser:"('!' @Ident)?"`
}

type idPath struct {
	Parts []string `parser:"@Ident ('.' @Ident)*"`
}

var refLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[A-Za-z0-9]+`},
	{Name: "Dot", Pattern: `\.`},
	{Name: "Dash", Pattern: `-`},
	{Name: "Bang", Pattern: `!`},
	{Name: "Colon", Pattern: `:`},
	{Name: "Semi", Pattern: `;`},
	{Name: "Space", Pattern: `\s+`},
})

var refParser = participle.MustBuild[refGrammar](
	participle.Lexer(refLexer),
	participle.Elide("Space"),
	participle.UseLookahead(2),
)

// AtomicRef is one work:ID!grain atom (possibly a range) after parsing.
type AtomicRef struct {
	Work  string
	Start []string
	End   []string
	Grain string
}

// ParseStructured runs the byte-level Prepare pass on ref, validates the
// result against the mini-grammar and returns the parsed atoms. It exists to catch
// gross structural errors early with a clear diagnostic; Prepare is the
// source of truth for the actual rewrite.
func ParseStructured(ref string) ([]AtomicRef, error) {
	prepared := Prepare(ref)
	g, err := refParser.ParseString("", prepared)
	if err != nil {
		return nil, cerrors.NewParse("osisRef", "", err.Error())
	}
	var atoms []AtomicRef
	for _, a := range g.Atoms {
		atom := AtomicRef{Work: a.Work, Start: a.Start.Parts, Grain: a.Grain}
		if a.End != nil {
			atom.End = a.End.Parts
		}
		atoms = append(atoms, atom)
	}
	return atoms, nil
}

// Prepare implements the ground-truth prepareSWVerseKey byte-scan (§4.5
// "Parsing"): it strips work prefixes ("work:ID" -> "ID") and grain
// suffixes ("ID!grain" -> "ID") in place, and replaces whitespace between
// atomic references with ';' so the downstream key parser accepts ranges
// joined by '-' and multi-refs joined by ';'. A reference containing none
// of '!', ':', or whitespace is returned unchanged (the fast path), so
// prepare(ref) == ref for atomic osisIDs with neither a work prefix nor a
// grain suffix, per §8's round-trip law.
func Prepare(ref string) string {
	if !strings.ContainsAny(ref, "! :\t\n") {
		return ref
	}

	var out strings.Builder
	out.Grow(len(ref))

	tokens := splitPreservingDash(ref)
	for i, tok := range tokens {
		if i > 0 {
			out.WriteByte(';')
		}
		out.WriteString(stripWorkAndGrain(tok))
	}
	return out.String()
}

// splitPreservingDash splits ref on runs of ASCII whitespace, leaving '-'
// ranges intact as single tokens (the separator between atomic refs is
// whitespace, not '-').
func splitPreservingDash(ref string) []string {
	return strings.FieldsFunc(ref, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
}

// stripWorkAndGrain removes a "work:" prefix and a "!grain" suffix from one
// atomic reference (which may itself be a "-"-joined range, each side
// stripped independently).
func stripWorkAndGrain(tok string) string {
	parts := strings.SplitN(tok, "-", 2)
	for i, p := range parts {
		if idx := strings.IndexByte(p, ':'); idx >= 0 {
			p = p[idx+1:]
		}
		if idx := strings.IndexByte(p, '!'); idx >= 0 {
			p = p[:idx]
		}
		parts[i] = p
	}
	return strings.Join(parts, "-")
}

// ParseOSISID parses one dotted ID path ("Book.Chapter.Verse") into a
// VerseKey bound to scheme. Missing chapter/verse default to 0 (intro
// level).
func ParseOSISID(scheme *versification.Scheme, id string) (*VerseKey, error) {
	parts := strings.Split(id, ".")
	if len(parts) == 0 || parts[0] == "" {
		return nil, cerrors.NewParse("osisID", id, "empty book component")
	}
	key := &VerseKey{Scheme: scheme, Book: parts[0]}
	if len(parts) > 1 {
		ch, err := strconv.Atoi(parts[1])
		if err != nil {
			return nil, cerrors.NewParse("osisID", id, "non-numeric chapter")
		}
		key.Chapter = ch
	}
	if len(parts) > 2 {
		vs, err := strconv.Atoi(parts[2])
		if err != nil {
			return nil, cerrors.NewParse("osisID", id, "non-numeric verse")
		}
		key.Verse = vs
	}
	key.Testament = scheme.Testament(key.Book)
	return key, nil
}

// ParseList parses a prepared, ';'-joined, possibly '-'-ranged osisID/
// osisRef string into a ListKey. Each '-' range expands into every verse
// from start to end, walking across chapter and book boundaries (at most
// 500 keys); each ';'-joined atom contributes its own run.
func ParseList(scheme *versification.Scheme, prepared string) (*ListKey, error) {
	var keys []*VerseKey
	for _, atom := range strings.Split(prepared, ";") {
		atom = strings.TrimSpace(atom)
		if atom == "" {
			continue
		}
		if dash := strings.IndexByte(atom, '-'); dash >= 0 {
			startID, endID := atom[:dash], atom[dash+1:]
			start, err := ParseOSISID(scheme, startID)
			if err != nil {
				return nil, err
			}
			end, err := ParseOSISID(scheme, endID)
			if err != nil {
				return nil, err
			}
			keys = append(keys, expandRange(scheme, start, end)...)
			continue
		}
		key, err := ParseOSISID(scheme, atom)
		if err != nil {
			return nil, err
		}
		keys = append(keys, key)
	}
	return &ListKey{Keys: keys}, nil
}

// expandRange walks from start to end inclusive, advancing one verse at a
// time; an end with an empty book takes start's book, and an end with
// chapter 0 (a book-only ID) takes start's chapter.
func expandRange(scheme *versification.Scheme, start, end *VerseKey) []*VerseKey {
	if end.Book == "" {
		end.Book = start.Book
	}
	if end.Chapter == 0 {
		end.Chapter = start.Chapter
	}
	cur := &VerseKey{Scheme: scheme, Book: start.Book, Chapter: start.Chapter, Verse: start.Verse}
	var out []*VerseKey
	for i := 0; i < 500; i++ { // safety bound against a malformed open-ended range
		k := &VerseKey{Scheme: scheme, Book: cur.Book, Chapter: cur.Chapter, Verse: cur.Verse, Testament: scheme.Testament(cur.Book)}
		out = append(out, k)
		if cur.Book == end.Book && cur.Chapter == end.Chapter && cur.Verse >= end.Verse {
			break
		}
		if !cur.Advance() {
			break
		}
	}
	return out
}

// HasEntryFunc reports whether the storage module already has an entry at
// the given key; supplied by the caller (internal/importer) so this
// package has no dependency on internal/storage.
type HasEntryFunc func(book string, chapter, verse int) bool

// ResolveWrite implements the full §4.5 re-versification: clamp chapter,
// clamp verse, then walk backward one verse at a time while hasEntry
// reports false, stopping at the first key that already has content. It
// returns the resolved key and whether resolution succeeded (false if the
// book itself is unknown to the scheme).
func ResolveWrite(scheme *versification.Scheme, book string, chapter, verse int, hasEntry HasEntryFunc) (*VerseKey, bool) {
	key := &VerseKey{Scheme: scheme, Book: book, Chapter: chapter, Verse: verse, Testament: scheme.Testament(book)}
	if key.Testament == versification.TestamentNone {
		return key, false
	}
	if key.IsValid() {
		return key, true
	}
	key.Normalize()
	for hasEntry != nil && !hasEntry(key.Book, key.Chapter, key.Verse) {
		if !stepBackward(key) {
			break
		}
	}
	return key, true
}

// stepBackward moves key one step earlier within the same book: verse 1
// steps to the chapter's verse 0, verse 0 to the previous chapter's last
// verse, and chapter 1 verse 0 to the book intro (chapter 0). It returns
// false once the key is at chapter 0.
func stepBackward(k *VerseKey) bool {
	if k.Verse > 1 {
		k.Verse--
		return true
	}
	if k.Verse == 1 {
		k.Verse = 0
		return true
	}
	if k.Chapter > 1 {
		k.Chapter--
		k.Verse = k.Scheme.VerseCount(k.Book, k.Chapter)
		return true
	}
	if k.Chapter == 1 {
		k.Chapter = 0
		return true
	}
	return false
}
