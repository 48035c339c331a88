// Package versification implements the versification-manager interface: a
// catalog of named book/chapter/verse schemes, name resolution by
// case-sensitive/insensitive/prefix match, and the chapter/verse-limit
// queries the verse-key resolver needs to validate and re-versify
// references.
package versification

import (
	"fmt"
	"strings"
)

// Testament identifies which half of the canon a book belongs to.
// 0 is reserved for module/testament-level intros.
type Testament int

const (
	TestamentNone Testament = 0
	TestamentOT   Testament = 1
	TestamentNT   Testament = 2
)

// Book holds the chapter/verse layout for one book in one scheme.
type Book struct {
	Name     string
	OSIS     string
	Chapters []int // verse count per chapter, 1-indexed by position
}

// Scheme is a named versification: an ordered list of books split into OT
// and NT by the first NT-book boundary.
type Scheme struct {
	Name  string
	Books []Book
}

var registry = map[string]*Scheme{}
var registryOrder []string

func register(s *Scheme) {
	registry[strings.ToLower(s.Name)] = s
	registryOrder = append(registryOrder, s.Name)
}

func init() {
	register(kjvScheme())
	register(nrsvScheme())
	register(nrsvaScheme())
	register(vulgateScheme())
	register(lxxScheme())
	register(mtScheme())
	register(synodalScheme())
	register(germanScheme())
	register(ethiopianScheme())
	register(ldsScheme())
}

// Names returns the catalog's registered scheme names, in registration order.
func Names() []string {
	out := make([]string, len(registryOrder))
	copy(out, registryOrder)
	return out
}

// ErrAmbiguous reports an ambiguous -v prefix match, carrying the candidates
// so the CLI driver can list them in its usage error.
type ErrAmbiguous struct {
	Prefix     string
	Candidates []string
}

func (e *ErrAmbiguous) Error() string {
	return fmt.Sprintf("ambiguous versification %q: matches %s", e.Prefix, strings.Join(e.Candidates, ", "))
}

// ErrUnknown reports a -v value matching no registered scheme.
type ErrUnknown struct {
	Name string
}

func (e *ErrUnknown) Error() string {
	return fmt.Sprintf("unknown versification %q", e.Name)
}

// Resolve looks up a scheme by exact case-sensitive match, then exact
// case-insensitive match, then case-insensitive prefix match (per §4.6 of
// the importer's versification-selection rule). An empty name resolves to
// KJV, the default.
func Resolve(name string) (*Scheme, error) {
	if name == "" {
		name = "KJV"
	}
	for _, n := range registryOrder {
		if n == name {
			return registry[strings.ToLower(n)], nil
		}
	}
	lower := strings.ToLower(name)
	if s, ok := registry[lower]; ok {
		return s, nil
	}
	var candidates []string
	for _, n := range registryOrder {
		if strings.HasPrefix(strings.ToLower(n), lower) {
			candidates = append(candidates, n)
		}
	}
	switch len(candidates) {
	case 0:
		return nil, &ErrUnknown{Name: name}
	case 1:
		return registry[strings.ToLower(candidates[0])], nil
	default:
		return nil, &ErrAmbiguous{Prefix: name, Candidates: candidates}
	}
}

// BookIndex returns the 0-based index of an OSIS book ID within the scheme,
// or -1 if the book is not part of this scheme.
func (s *Scheme) BookIndex(osisID string) int {
	for i, b := range s.Books {
		if b.OSIS == osisID {
			return i
		}
	}
	return -1
}

// otCount is the number of books before the first New Testament book.
func (s *Scheme) otCount() int {
	for i, b := range s.Books {
		if ntBookSet[b.OSIS] {
			return i
		}
	}
	return len(s.Books)
}

// Testament returns which testament an OSIS book ID belongs to in this
// scheme, or TestamentNone if the book is not part of it.
func (s *Scheme) Testament(osisID string) Testament {
	idx := s.BookIndex(osisID)
	if idx < 0 {
		return TestamentNone
	}
	if idx < s.otCount() {
		return TestamentOT
	}
	return TestamentNT
}

// ChapterCount returns the number of chapters in book, or 0 if unknown.
func (s *Scheme) ChapterCount(osisID string) int {
	idx := s.BookIndex(osisID)
	if idx < 0 {
		return 0
	}
	return len(s.Books[idx].Chapters)
}

// VerseCount returns the number of verses in book/chapter, or 0 if the
// book or chapter is out of range.
func (s *Scheme) VerseCount(osisID string, chapter int) int {
	idx := s.BookIndex(osisID)
	if idx < 0 {
		return 0
	}
	chapters := s.Books[idx].Chapters
	if chapter < 1 || chapter > len(chapters) {
		return 0
	}
	return chapters[chapter-1]
}

// IsValid reports whether book/chapter/verse identifies an actual verse
// (or, with verse==0, an actual chapter/book intro level) in this scheme.
func (s *Scheme) IsValid(osisID string, chapter, verse int) bool {
	idx := s.BookIndex(osisID)
	if idx < 0 {
		return false
	}
	if chapter == 0 {
		return verse == 0
	}
	chapters := s.Books[idx].Chapters
	if chapter < 1 || chapter > len(chapters) {
		return false
	}
	if verse == 0 {
		return true
	}
	return verse >= 1 && verse <= chapters[chapter-1]
}

// Clamp re-versifies an out-of-range chapter/verse per §4.5 steps 1-2:
// clamp the chapter to the book's last chapter, then the verse to that
// chapter's maximum. It does not perform the backward has_entry walk
// (step 3), which requires the storage module and lives in internal/versekey.
func (s *Scheme) Clamp(osisID string, chapter, verse int) (int, int, bool) {
	idx := s.BookIndex(osisID)
	if idx < 0 {
		return chapter, verse, false
	}
	chapters := s.Books[idx].Chapters
	if len(chapters) == 0 {
		return chapter, verse, false
	}
	if chapter < 1 {
		chapter = 1
	}
	if chapter > len(chapters) {
		chapter = len(chapters)
	}
	max := chapters[chapter-1]
	if verse > max {
		verse = max
	}
	if verse < 1 {
		verse = 1
	}
	return chapter, verse, true
}

// ntBookSet contains all New Testament OSIS book IDs, used to locate the
// OT/NT boundary in a scheme's book list.
var ntBookSet = map[string]bool{
	"Matt": true, "Mark": true, "Luke": true, "John": true,
	"Acts": true, "Rom": true, "1Cor": true, "2Cor": true,
	"Gal": true, "Eph": true, "Phil": true, "Col": true,
	"1Thess": true, "2Thess": true, "1Tim": true, "2Tim": true,
	"Titus": true, "Phlm": true, "Heb": true, "Jas": true,
	"1Pet": true, "2Pet": true, "1John": true, "2John": true,
	"3John": true, "Jude": true, "Rev": true,
}
