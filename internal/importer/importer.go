// Package importer drives the OSIS-to-SWORD conversion pipeline: it reads
// scanner events, runs each tag through the BSP transformer, tracks
// document position (book/chapter/verse, testament, intro state), applies
// write-behind buffering, and calls into a storage module to persist
// entries. It is the component that owns state the scanner and BSP
// transformer deliberately don't: "where am I in the Bible right now."
package importer

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/zeebo/blake3"

	cerrors "github.com/swordtoolkit/osis2mod/core/errors"
	"github.com/swordtoolkit/osis2mod/internal/bsp"
	"github.com/swordtoolkit/osis2mod/internal/logging"
	"github.com/swordtoolkit/osis2mod/internal/scanner"
	"github.com/swordtoolkit/osis2mod/internal/unicodeprep"
	"github.com/swordtoolkit/osis2mod/internal/versekey"
	"github.com/swordtoolkit/osis2mod/internal/versification"
	"github.com/swordtoolkit/osis2mod/internal/xmltag"
)

// Store is the subset of the storage module the importer needs, kept
// narrow so importer doesn't import internal/storage's concrete type
// directly (the CLI wires a *storage.ZTextStore in).
type Store interface {
	SetKey(book string, chapter, verse int) error
	SetTestamentKey(nt bool) error
	HasEntry() bool
	HasEntryAt(book string, chapter, verse int) bool
	GetRawEntry() ([]byte, error)
	SetEntry(data []byte) error
	LinkEntry(book string, chapter, verse int) error
}

// Options configures one import run.
type Options struct {
	Scheme                 *versification.Scheme
	Append                 bool // -a; Run does not consult it and merges into any existing entry in either mode
	Normalize              bool // apply unicodeprep's NFC pass
	StripLeadingWhitespace bool
	Debug                  DebugFlags
}

// DebugFlags mirrors the "-d" bitmask categories relevant to the importer.
type DebugFlags uint32

const (
	DebugWOC      DebugFlags = 4   // -d 4: Words-of-Christ tracking
	DebugRevision DebugFlags = 64  // -d 64, DEBUG_REV11N: first-write revision milestone placement
	DebugLinks    DebugFlags = 128 // -d 128: link queue resolution
)

func (f DebugFlags) has(bit DebugFlags) bool { return f&bit != 0 }

// Stats summarizes one Run.
type Stats struct {
	VersesWritten     int
	CommentaryEntries int
	Links             int
	FatalCount        int
	Digest            string // blake3 hex digest over all written entry bytes, in write order
}

// position tracks "where in the Bible" the importer currently is; it is
// the concrete state the document state machine (§4.3) advances through
// module/testament/book/chapter/verse boundaries.
type position struct {
	inModuleIntro    bool // front matter before any bookGroup, written to the OT module header
	inTestamentIntro bool // a bookGroup's own introduction, before its first book
	testamentNT      bool

	inBook          bool
	inBookIntro     bool
	inCanonicalBook bool // false once an unknown book osisID has suppressed content
	inChapter       bool
	inChapterIntro  bool
	inVerse         bool
	inCommentary    bool // current span is a commentary entry keyed by annotateRef, not a verse
	inPreverse      bool // mid-chapter material before the first verse; text is diverted, not buffered

	book    string
	chapter int
	verse   int

	firstEntryWritten bool // for the DEBUG_REV11N first-write revision-milestone branch

	pendingLinks []string // extra osisIDs on the current verse's sID, queued at flush
}

// linkRequest is one queued link, resolved in a single pass after the
// stream ends (§4.8, §5's ordering guarantee) rather than inline per-verse.
type linkRequest struct {
	srcBook                string
	srcChapter, srcVerse   int
	destBook               string
	destChapter, destVerse int
}

// Importer converts one OSIS byte stream into storage-module entries.
type Importer struct {
	ctx   context.Context
	opts  Options
	store Store

	transform *bsp.Transformer
	prep      *unicodeprep.Prepper

	pos        position
	buf        strings.Builder
	preverse   strings.Builder // x-preverse material, carried forward to the next verse
	quoteStack []*xmltag.Tag   // Words-of-Christ <q who="Jesus"> nesting
	linkQueue  []linkRequest

	revisionEmitted bool // set once the x-importer header has been written, prepended to an intro or as its own entry

	digest *blake3.Hasher
	stats  Stats
}

const revisionMilestone = `<milestone type="x-importer" subType="x-osis2mod" n="1"/>`

// prependRevisionToIntro prepends the run's revision-identification
// milestone (§4.4 step 3) to an intro's data if this is the first entry
// written in the whole run.
func (imp *Importer) prependRevisionToIntro(data []byte) []byte {
	if imp.revisionEmitted {
		return data
	}
	imp.revisionEmitted = true
	return append([]byte(revisionMilestone), data...)
}

// emitRevisionIfFirst writes the run's revision-identification milestone
// (§4.4 step 3) as its own testament-level entry if the first-ever flush
// of the run turns out not to be a module/testament intro (an intro gets
// the milestone prepended inline instead, by prependRevisionToIntro).
func (imp *Importer) emitRevisionIfFirst(testamentNT bool) error {
	if imp.revisionEmitted {
		return nil
	}
	imp.revisionEmitted = true
	if err := imp.store.SetTestamentKey(testamentNT); err != nil {
		return err
	}
	data := []byte(revisionMilestone)
	if err := imp.store.SetEntry(data); err != nil {
		return err
	}
	imp.digest.Write(data)
	return nil
}

// New creates an Importer writing into store.
func New(ctx context.Context, store Store, opts Options) *Importer {
	return &Importer{
		ctx:       ctx,
		opts:      opts,
		store:     store,
		transform: bsp.New(),
		prep:      unicodeprep.New(),
		pos:       position{inModuleIntro: true},
		digest:    blake3.New(),
	}
}

// Run consumes r to EOF, writing verse/chapter/book-intro entries to the
// store as boundaries are crossed. It returns Stats describing what was
// written, and a non-nil error for a structural fatal (§7), a cancelled
// context, or a read or storage failure; other diagnostics are logged and
// processing continues.
func (imp *Importer) Run(r io.Reader) (*Stats, error) {
	sc := scanner.New(r)

	for {
		select {
		case <-imp.ctx.Done():
			return &imp.stats, cerrors.Wrap(imp.ctx.Err(), "import cancelled")
		default:
		}

		ev, err := sc.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return &imp.stats, cerrors.NewIO("scan", "", err)
		}

		switch ev.Kind {
		case scanner.EventText:
			if imp.pos.inPreverse {
				imp.preverse.WriteString(ev.Text)
			} else {
				imp.buf.WriteString(ev.Text)
			}
		case scanner.EventTag:
			if err := imp.handleTag(ev); err != nil {
				return &imp.stats, err
			}
		}
	}

	for _, d := range sc.Diagnostics() {
		if d.Fatal {
			return &imp.stats, imp.recordFatal(d.Line, d.Col, d.Message)
		}
		imp.logDiagnostic(d)
	}
	if err := imp.flushCurrent(); err != nil {
		return &imp.stats, err
	}
	if err := imp.resolveLinks(); err != nil {
		return &imp.stats, err
	}
	imp.stats.Digest = fmt.Sprintf("%x", imp.digest.Sum(nil))
	return &imp.stats, nil
}

// logDiagnostic reports a non-fatal scanner diagnostic. Fatal ones are
// intercepted in Run before reaching here (they abort the run instead).
func (imp *Importer) logDiagnostic(d scanner.Diagnostic) {
	logging.Diagnostic(imp.ctx, logging.LevelWarn, logging.CategoryStructure, d.Line, d.Col, imp.currentOsisID(), d.Message)
}

func (imp *Importer) recordFatal(line, col int, msg string) error {
	imp.stats.FatalCount++
	logging.Diagnostic(imp.ctx, logging.LevelError, logging.CategoryStructure, line, col, imp.currentOsisID(), msg)
	return cerrors.NewDiagnostic("STRUCT", line, col, imp.currentOsisID(), msg, cerrors.ErrStructuralFatal)
}

func (imp *Importer) currentOsisID() string {
	if imp.pos.book == "" {
		return ""
	}
	if imp.pos.chapter == 0 {
		return imp.pos.book
	}
	if imp.pos.verse == 0 {
		return fmt.Sprintf("%s.%d", imp.pos.book, imp.pos.chapter)
	}
	return fmt.Sprintf("%s.%d.%d", imp.pos.book, imp.pos.chapter, imp.pos.verse)
}

// drainPreverse primes the fresh buffer for the span about to start with any
// x-preverse material collected since the previous flush, so it lands in
// the entry that follows it rather than the one that preceded it.
func (imp *Importer) drainPreverse() {
	if imp.preverse.Len() == 0 {
		return
	}
	imp.buf.WriteString(imp.preverse.String())
	imp.preverse.Reset()
}

func (imp *Importer) handleTag(ev *scanner.Event) error {
	rawTag, err := scanner.ParseTag(ev.Text)
	if err != nil {
		logging.Diagnostic(imp.ctx, logging.LevelWarn, logging.CategoryParse, ev.Line, ev.Col, "", err.Error())
		return nil
	}

	tag, diag := imp.transform.Transform(rawTag)
	if diag != nil {
		imp.stats.FatalCount++
		logging.Diagnostic(imp.ctx, logging.LevelError, logging.CategoryXform, ev.Line, ev.Col, imp.currentOsisID(), diag.Message)
	}

	switch tag.Name {
	case "q":
		imp.handleQuote(tag)
		return nil
	case "div":
		return imp.handleDiv(tag, ev)
	case "chapter":
		return imp.handleChapter(tag, ev)
	case "verse":
		return imp.handleVerse(tag, ev)
	default:
		return imp.handlePreverseTag(tag)
	}
}

func (imp *Importer) handleQuote(tag *xmltag.Tag) {
	who, _ := tag.Get("who")
	if who != "Jesus" {
		return
	}
	if !tag.IsMilestoneEnd() {
		if imp.opts.Debug.has(DebugWOC) {
			logging.Diagnostic(imp.ctx, logging.LevelDebug, logging.CategoryQuote, 0, 0, imp.currentOsisID(), "words of Christ begin")
		}
		imp.quoteStack = append(imp.quoteStack, tag)
		imp.buf.WriteString(`<q who="Jesus" marker="">`)
		return
	}
	if len(imp.quoteStack) == 0 {
		logging.Diagnostic(imp.ctx, logging.LevelWarn, logging.CategoryQuote, 0, 0, imp.currentOsisID(), "unmatched words-of-Christ close")
		return
	}
	imp.quoteStack = imp.quoteStack[:len(imp.quoteStack)-1]
	imp.buf.WriteString(`</q>`)
	if imp.opts.Debug.has(DebugWOC) {
		logging.Diagnostic(imp.ctx, logging.LevelDebug, logging.CategoryQuote, 0, 0, imp.currentOsisID(), "words of Christ end")
	}
}

// handlePreverseTag recognizes x-preverse material (§4.3.9) on any element
// handleTag doesn't otherwise dispatch, most commonly a <title>.
func (imp *Importer) handlePreverseTag(tag *xmltag.Tag) error {
	imp.checkPreverseTrigger(tag)
	return nil
}

// checkPreverseTrigger opens x-preverse diversion (§4.3.9): mid-chapter
// material that precedes the first verse belongs with the verse that
// follows it, not with the chapter heading it textually sits next to. It
// fires either on an already-marked subType="x-preverse" span, or on the
// structural heuristic a source document actually uses to mark this
// material: a section-level div that isn't itself an introduction, or a
// <title> whose type isn't a plain heading. Once triggered it stays open
// (surviving the triggering element's own close, and any further titles or
// divs) until the next verse or commentary entry closes it.
func (imp *Importer) checkPreverseTrigger(tag *xmltag.Tag) {
	if imp.pos.inPreverse || !imp.pos.inChapterIntro || tag.IsMilestoneEnd() {
		return
	}
	if subType, _ := tag.Get("subType"); subType == "x-preverse" {
		imp.pos.inPreverse = true
		return
	}
	typ, hasType := tag.Get("type")
	switch tag.Name {
	case "div":
		switch typ {
		case "section", "subSection", "majorSection":
			if subType, _ := tag.Get("subType"); subType != "x-introduction" {
				imp.pos.inPreverse = true
			}
		}
	case "title":
		if hasType && typ != "main" && typ != "chapter" && typ != "sub" {
			imp.pos.inPreverse = true
		}
	}
}

func (imp *Importer) handleDiv(tag *xmltag.Tag, ev *scanner.Event) error {
	if ref, ok := tag.Get("annotateRef"); ok {
		return imp.handleCommentaryDiv(tag, ev, ref)
	}
	typ, _ := tag.Get("type")
	switch typ {
	case "bookGroup":
		return imp.handleBookGroupDiv(tag, ev)
	case "introduction":
		return imp.handleIntroductionDiv(tag, ev)
	case "book":
		return imp.handleBookDiv(tag, ev)
	default:
		imp.checkPreverseTrigger(tag)
		return nil
	}
}

func (imp *Importer) handleBookGroupDiv(tag *xmltag.Tag, ev *scanner.Event) error {
	if tag.IsMilestoneEnd() {
		return imp.flushCurrent()
	}
	if err := imp.flushCurrent(); err != nil {
		return err
	}
	imp.drainPreverse()
	osisID, _ := tag.Get("osisID")
	imp.pos = position{inTestamentIntro: true, testamentNT: strings.EqualFold(osisID, "NT")}
	return nil
}

// handleIntroductionDiv marks an explicit <div type="introduction">. Seen
// before any bookGroup or book div, its content is module- or
// testament-level front matter and position is already set up for that
// (inModuleIntro or inTestamentIntro); nested inside a book, chapter, or
// commentary entry it leaves position untouched, so its content belongs to
// whatever level it's already in.
func (imp *Importer) handleIntroductionDiv(tag *xmltag.Tag, ev *scanner.Event) error {
	if tag.IsMilestoneEnd() {
		return imp.flushCurrent()
	}
	if err := imp.flushCurrent(); err != nil {
		return err
	}
	imp.drainPreverse()
	return nil
}

func (imp *Importer) handleBookDiv(tag *xmltag.Tag, ev *scanner.Event) error {
	if tag.IsMilestoneEnd() {
		return imp.flushCurrent()
	}
	if err := imp.flushCurrent(); err != nil {
		return err
	}
	imp.drainPreverse()
	osisID, _ := tag.Get("osisID")
	if imp.opts.Scheme.BookIndex(osisID) < 0 {
		logging.Diagnostic(imp.ctx, logging.LevelWarn, logging.CategoryStructure, ev.Line, ev.Col, osisID,
			fmt.Sprintf("unknown book osisID %q, suppressing content until next canonical book", osisID))
		imp.pos = position{book: osisID, inBook: true}
		return nil
	}
	imp.pos = position{book: osisID, inBook: true, inBookIntro: true, inCanonicalBook: true}
	return nil
}

// handleCommentaryDiv segments a commentary entry (§4.3 events 6-7) into its
// own write-behind span, keyed by its annotateRef rather than by scripture
// position, instead of letting its text fall into whatever book/chapter
// bucket happens to be open.
func (imp *Importer) handleCommentaryDiv(tag *xmltag.Tag, ev *scanner.Event, ref string) error {
	if tag.IsMilestoneEnd() {
		return imp.flushCurrent()
	}
	if err := imp.flushCurrent(); err != nil {
		return err
	}
	imp.pos.inPreverse = false
	imp.drainPreverse()
	key, err := versekey.ParseOSISID(imp.opts.Scheme, ref)
	if err != nil || key.Book == "" || imp.opts.Scheme.BookIndex(key.Book) < 0 {
		logging.Diagnostic(imp.ctx, logging.LevelWarn, logging.CategoryRef, ev.Line, ev.Col, ref,
			fmt.Sprintf("unresolvable commentary annotateRef %q, content accumulated into previous verse", ref))
		return nil
	}
	imp.pos = position{
		book: key.Book, chapter: key.Chapter, verse: key.Verse,
		inCanonicalBook: true, inVerse: true, inCommentary: true,
	}
	return nil
}

func (imp *Importer) handleChapter(tag *xmltag.Tag, ev *scanner.Event) error {
	if tag.IsMilestoneEnd() {
		return imp.flushCurrent()
	}
	if err := imp.flushCurrent(); err != nil {
		return err
	}
	imp.drainPreverse()
	if !imp.pos.inCanonicalBook {
		return nil
	}
	osisID, _ := tag.Get("osisID")
	parts := strings.Split(osisID, ".")
	ch, err := strconv.Atoi(lastElem(parts))
	if len(parts) != 2 || err != nil {
		logging.Diagnostic(imp.ctx, logging.LevelWarn, logging.CategoryRef, ev.Line, ev.Col, osisID,
			fmt.Sprintf("malformed chapter osisID %q, content accumulated into previous chapter", osisID))
		return nil
	}
	imp.pos.book = parts[0]
	imp.pos.chapter = ch
	imp.pos.verse = 0
	imp.pos.inBookIntro = false
	imp.pos.inChapter = true
	imp.pos.inChapterIntro = true
	return nil
}

func (imp *Importer) handleVerse(tag *xmltag.Tag, ev *scanner.Event) error {
	if tag.IsMilestoneEnd() {
		return imp.flushCurrent()
	}
	if err := imp.flushCurrent(); err != nil {
		return err
	}
	imp.pos.inPreverse = false
	imp.drainPreverse()
	if !imp.pos.inCanonicalBook {
		return nil
	}

	osisID, _ := tag.Get("osisID")
	if osisID == "" {
		logging.Diagnostic(imp.ctx, logging.LevelWarn, logging.CategoryRef, ev.Line, ev.Col, imp.currentOsisID(),
			"verse tag with no osisID, content accumulated into previous verse")
		return nil
	}

	prepared := versekey.Prepare(osisID)
	list, err := versekey.ParseList(imp.opts.Scheme, prepared)
	if err != nil || len(list.Keys) == 0 {
		logging.Diagnostic(imp.ctx, logging.LevelWarn, logging.CategoryRef, ev.Line, ev.Col, osisID,
			fmt.Sprintf("malformed verse osisID %q, content accumulated into previous verse", osisID))
		return nil
	}

	primary := list.Keys[0]
	if primary.Book == "" || imp.opts.Scheme.BookIndex(primary.Book) < 0 {
		logging.Diagnostic(imp.ctx, logging.LevelWarn, logging.CategoryRef, ev.Line, ev.Col, osisID,
			fmt.Sprintf("unknown book in verse osisID %q, content accumulated into previous verse", osisID))
		return nil
	}

	imp.pos.book = primary.Book
	imp.pos.chapter = primary.Chapter
	imp.pos.verse = primary.Verse
	imp.pos.inChapterIntro = false
	imp.pos.inVerse = true

	var links []string
	for _, k := range list.Keys[1:] {
		links = append(links, k.OSISRef())
	}
	imp.pos.pendingLinks = links
	return nil
}

func lastElem(parts []string) string {
	if len(parts) == 0 {
		return ""
	}
	return parts[len(parts)-1]
}

// flushCurrent writes the accumulated text buffer to the current position
// (§4.4 write-behind), applying leading-whitespace trim and Unicode prep,
// then queues any pending links for resolution after the stream ends, then
// clears state for the next span.
func (imp *Importer) flushCurrent() error {
	text := imp.buf.String()
	imp.buf.Reset()

	if imp.opts.StripLeadingWhitespace {
		text = strings.TrimLeft(text, " \t\r\n")
	}
	data := []byte(text)
	if imp.opts.Normalize {
		data = imp.prep.Process(data)
	}

	if imp.pos.inModuleIntro || imp.pos.inTestamentIntro {
		return imp.flushTestamentIntro(data)
	}

	if imp.pos.book == "" || !imp.pos.inCanonicalBook {
		imp.pos.pendingLinks = nil
		imp.pos.inVerse = false
		return nil
	}

	if len(data) == 0 && !imp.pos.inVerse {
		return nil // don't create empty intro/heading entries for boundaries with no content
	}
	if err := imp.emitRevisionIfFirst(imp.opts.Scheme.Testament(imp.pos.book) == versification.TestamentNT); err != nil {
		return err
	}

	book, chapter, verse := imp.pos.book, imp.pos.chapter, imp.pos.verse
	if imp.pos.inVerse && !imp.pos.inCommentary {
		hasEntry := func(b string, c, v int) bool { return imp.store.HasEntryAt(b, c, v) }
		if key, ok := versekey.ResolveWrite(imp.opts.Scheme, book, chapter, verse, hasEntry); ok {
			book, chapter, verse = key.Book, key.Chapter, key.Verse
		}
	}

	if err := imp.store.SetKey(book, chapter, verse); err != nil {
		return err
	}

	if imp.store.HasEntry() {
		prior, err := imp.store.GetRawEntry()
		if err != nil {
			return err
		}
		data = append(append(prior, ' '), data...)
	} else if imp.opts.Debug.has(DebugRevision) && !imp.pos.firstEntryWritten {
		logging.Diagnostic(imp.ctx, logging.LevelDebug, logging.CategoryWrite, 0, 0, imp.currentOsisID(), "first write, no revision milestone to preserve")
		imp.pos.firstEntryWritten = true
	}

	if err := imp.store.SetEntry(data); err != nil {
		return err
	}
	imp.digest.Write(data)
	if imp.pos.inCommentary {
		imp.stats.CommentaryEntries++
	} else if imp.pos.inVerse {
		imp.stats.VersesWritten++
	}

	for _, extra := range imp.pos.pendingLinks {
		parts := strings.Split(extra, ".")
		if len(parts) != 3 {
			continue
		}
		lch, e1 := strconv.Atoi(parts[1])
		lvs, e2 := strconv.Atoi(parts[2])
		if e1 != nil || e2 != nil {
			continue
		}
		imp.linkQueue = append(imp.linkQueue, linkRequest{
			srcBook: book, srcChapter: chapter, srcVerse: verse,
			destBook: parts[0], destChapter: lch, destVerse: lvs,
		})
	}
	imp.pos.pendingLinks = nil
	imp.pos.inVerse = false
	return nil
}

// flushTestamentIntro writes module-level or testament-level front matter
// to testament nt's module-header entry (§4.3 items 2-4, §12). Module-level
// matter (before any bookGroup) and a bookGroup's own introduction share the
// same absolute index 1 slot, so a second flush within one run always
// concatenates onto the first rather than overwriting it; "-a" append onto
// a prior run's content goes through the same path.
func (imp *Importer) flushTestamentIntro(data []byte) error {
	if len(data) == 0 {
		return nil
	}
	data = imp.prependRevisionToIntro(data)
	if err := imp.store.SetTestamentKey(imp.pos.testamentNT); err != nil {
		return err
	}
	if imp.store.HasEntry() {
		prior, err := imp.store.GetRawEntry()
		if err != nil {
			return err
		}
		data = append(append(prior, ' '), data...)
	}
	if err := imp.store.SetEntry(data); err != nil {
		return err
	}
	imp.digest.Write(data)
	imp.pos.inModuleIntro = false
	imp.pos.inTestamentIntro = false
	return nil
}

// resolveLinks drains the link queue accumulated over the whole run in a
// single final pass (§4.8, §5's ordering guarantee), skipping any
// destination that isn't valid in the active versification or that crosses
// testaments from its source (§8's link testable properties).
func (imp *Importer) resolveLinks() error {
	for _, l := range imp.linkQueue {
		if !imp.opts.Scheme.IsValid(l.destBook, l.destChapter, l.destVerse) {
			logging.Diagnostic(imp.ctx, logging.LevelWarn, logging.CategoryRef, 0, 0, l.srcBook,
				fmt.Sprintf("link destination %s.%d.%d is not valid in the active versification, skipped", l.destBook, l.destChapter, l.destVerse))
			continue
		}
		if imp.opts.Scheme.Testament(l.destBook) != imp.opts.Scheme.Testament(l.srcBook) {
			logging.Diagnostic(imp.ctx, logging.LevelWarn, logging.CategoryRef, 0, 0, l.srcBook,
				fmt.Sprintf("link destination %s is in a different testament than source %s, skipped", l.destBook, l.srcBook))
			continue
		}
		if err := imp.store.SetKey(l.srcBook, l.srcChapter, l.srcVerse); err != nil {
			return err
		}
		if err := imp.store.LinkEntry(l.destBook, l.destChapter, l.destVerse); err != nil {
			return err
		}
		imp.stats.Links++
		if imp.opts.Debug.has(DebugLinks) {
			logging.Diagnostic(imp.ctx, logging.LevelDebug, logging.CategoryRef, 0, 0, l.srcBook,
				fmt.Sprintf("linked %s.%d.%d -> %s.%d.%d", l.srcBook, l.srcChapter, l.srcVerse, l.destBook, l.destChapter, l.destVerse))
		}
	}
	return nil
}
