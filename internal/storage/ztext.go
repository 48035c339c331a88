// Package storage implements the storage-module interface (§6): create/
// open a module, position a current key, test and read/write entries, link
// one key to another, flush buffered writes, and layer raw filters
// (compression, cipher) over entry bytes. The concrete backend here mirrors
// the real zText/zText4 on-disk shape (.bzs block index, .bzv verse index,
// .bzz compressed blocks), grounded on the read side in
// internal/formats/swordpure/ztext.go; the write side is new, built to the
// storage-module interface §6 names.
package storage

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	cerrors "github.com/swordtoolkit/osis2mod/core/errors"
	"github.com/swordtoolkit/osis2mod/internal/storage/filters"
	"github.com/swordtoolkit/osis2mod/internal/versification"
)

// BlockGrain selects how many verses share one compressed block, per the
// CLI's "-b" flag.
type BlockGrain int

const (
	BlockVerse   BlockGrain = 2
	BlockChapter BlockGrain = 3
	BlockBook    BlockGrain = 4
)

const (
	blockIndexEntrySize = 12
	verseIndexEntrySize = 10
)

// entry is one pending write for a given absolute index within a testament.
type entry struct {
	data   []byte
	linked []int // indices linked to this one; resolved to the same verse entry at flush
}

// ZTextStore is a storage module for one testament-pair of zText data
// files under a module's DataPath.
type ZTextStore struct {
	scheme   *versification.Scheme
	dataPath string
	grain    BlockGrain
	filters  filters.Chain

	otEntries map[int]*entry
	ntEntries map[int]*entry

	curBook    string
	curChapter int
	curVerse   int
	curNT      bool

	writable bool
}

// New creates a ZTextStore rooted at dataPath (a module's DataPath
// directory), bound to scheme, writing in grain-sized blocks.
func New(scheme *versification.Scheme, dataPath string, grain BlockGrain) *ZTextStore {
	return &ZTextStore{
		scheme:    scheme,
		dataPath:  dataPath,
		grain:     grain,
		otEntries: make(map[int]*entry),
		ntEntries: make(map[int]*entry),
		writable:  true,
	}
}

// AddRawFilter appends a filter to the chain applied to every entry's bytes
// on write (in chain order) and read (in reverse chain order).
func (s *ZTextStore) AddRawFilter(f filters.Filter) {
	s.filters = append(s.filters, f)
}

// Create ensures the data directory exists and that the store starts
// empty; it is the "create new module of requested shape" operation.
func (s *ZTextStore) Create() error {
	if err := os.MkdirAll(s.dataPath, 0o755); err != nil {
		s.writable = false
		return cerrors.NewIO("create", s.dataPath, err)
	}
	return nil
}

// Open loads any existing OT/NT index+block files so appends merge with
// prior content instead of overwriting it.
func (s *ZTextStore) Open() error {
	if err := s.loadTestament(false); err != nil {
		return err
	}
	if err := s.loadTestament(true); err != nil {
		return err
	}
	return nil
}

// IsWritable reports whether the data directory is writable.
func (s *ZTextStore) IsWritable() bool {
	if !s.writable {
		return false
	}
	info, err := os.Stat(s.dataPath)
	if err != nil {
		return os.IsNotExist(err) // not yet created is fine; Create() will make it
	}
	return info.IsDir()
}

// SetKey positions the store's current key; subsequent HasEntry/
// GetRawEntry/SetEntry/LinkEntry calls act on this key.
func (s *ZTextStore) SetKey(book string, chapter, verse int) error {
	if s.scheme.BookIndex(book) < 0 {
		return cerrors.NewValidation("book", fmt.Sprintf("unknown book %q in active versification", book))
	}
	s.curBook, s.curChapter, s.curVerse = book, chapter, verse
	s.curNT = s.scheme.Testament(book) == versification.TestamentNT
	return nil
}

// SetTestamentKey positions the store at testament nt's module-header entry
// (absolute index 1 of that testament's entry array), used for the
// module-level introduction and for a testament's own introduction, neither
// of which is attached to any one book.
func (s *ZTextStore) SetTestamentKey(nt bool) error {
	s.curBook, s.curChapter, s.curVerse = "", 0, 0
	s.curNT = nt
	return nil
}

func (s *ZTextStore) currentIndex() (int, error) {
	if s.curBook == "" {
		return 1, nil
	}
	if s.curChapter == 0 {
		return s.scheme.IntroIndex(s.curBook, 0)
	}
	if s.curVerse == 0 {
		return s.scheme.IntroIndex(s.curBook, s.curChapter)
	}
	return s.scheme.CalculateIndex(s.curBook, s.curChapter, s.curVerse)
}

func (s *ZTextStore) entries() map[int]*entry {
	if s.curNT {
		return s.ntEntries
	}
	return s.otEntries
}

// HasEntry reports whether the current key already has stored content.
func (s *ZTextStore) HasEntry() bool {
	idx, err := s.currentIndex()
	if err != nil {
		return false
	}
	e, ok := s.entries()[idx]
	return ok && len(e.data) > 0
}

// HasEntryAt reports whether book/chapter/verse has content, without
// disturbing the current key; used by internal/versekey's ResolveWrite
// backward walk.
func (s *ZTextStore) HasEntryAt(book string, chapter, verse int) bool {
	idx, err := s.scheme.CalculateIndex(book, chapter, verse)
	if err != nil {
		return false
	}
	nt := s.scheme.Testament(book) == versification.TestamentNT
	entries := s.otEntries
	if nt {
		entries = s.ntEntries
	}
	e, ok := entries[idx]
	return ok && len(e.data) > 0
}

// GetRawEntry returns the current key's stored bytes, or nil if absent.
func (s *ZTextStore) GetRawEntry() ([]byte, error) {
	idx, err := s.currentIndex()
	if err != nil {
		return nil, err
	}
	e, ok := s.entries()[idx]
	if !ok {
		return nil, nil
	}
	return e.data, nil
}

// SetEntry stores data at the current key, overwriting any prior content
// (callers wanting append-semantics read+concatenate before calling, per
// §4.4 step 5).
func (s *ZTextStore) SetEntry(data []byte) error {
	idx, err := s.currentIndex()
	if err != nil {
		return err
	}
	entries := s.entries()
	e, ok := entries[idx]
	if !ok {
		e = &entry{}
		entries[idx] = e
	}
	e.data = data
	return nil
}

// LinkEntry links destKey to the current key: both will read back the same
// bytes at flush time.
func (s *ZTextStore) LinkEntry(book string, chapter, verse int) error {
	idx, err := s.currentIndex()
	if err != nil {
		return err
	}
	destIdx, err := s.scheme.CalculateIndex(book, chapter, verse)
	if err != nil {
		return err
	}
	nt := s.scheme.Testament(book) == versification.TestamentNT
	if nt != s.curNT {
		return cerrors.NewValidation("link", "destination testament differs from source")
	}
	entries := s.entries()
	e, ok := entries[idx]
	if !ok {
		e = &entry{}
		entries[idx] = e
	}
	e.linked = append(e.linked, destIdx)
	return nil
}

// Flush writes the buffered OT and NT entries to their .bzs/.bzv/.bzz
// files, grouping verses into blocks per the configured grain.
func (s *ZTextStore) Flush() error {
	if err := os.MkdirAll(s.dataPath, 0o755); err != nil {
		return cerrors.NewIO("flush", s.dataPath, err)
	}
	if len(s.otEntries) > 0 {
		if err := s.flushTestament(false); err != nil {
			return err
		}
	}
	if len(s.ntEntries) > 0 {
		if err := s.flushTestament(true); err != nil {
			return err
		}
	}
	return nil
}

func (s *ZTextStore) prefix(nt bool) string {
	if nt {
		return "nt"
	}
	return "ot"
}

func (s *ZTextStore) flushTestament(nt bool) error {
	entries := s.otEntries
	if nt {
		entries = s.ntEntries
	}
	total := s.scheme.TotalEntries(nt)

	// resolve links: a linked index reads back the same data as its source
	resolved := make([][]byte, total)
	for idx, e := range entries {
		if idx < 0 || idx >= total {
			continue
		}
		resolved[idx] = e.data
		for _, dst := range e.linked {
			if dst >= 0 && dst < total {
				resolved[dst] = e.data
			}
		}
	}

	grainSize := grainEntryCount(s.grain)
	var blockIdx []byte
	var verseIdx []byte
	var blockData bytes.Buffer

	for start := 0; start < total; start += grainSize {
		end := start + grainSize
		if end > total {
			end = total
		}
		var buf bytes.Buffer
		offsets := make([]int, end-start)
		sizes := make([]int, end-start)
		for i := start; i < end; i++ {
			offsets[i-start] = buf.Len()
			data := resolved[i]
			sizes[i-start] = len(data)
			buf.Write(data)
		}
		uncompressed := buf.Bytes()
		compressed := uncompressed
		var err error
		if len(s.filters) > 0 {
			compressed, err = s.filters.Encode(uncompressed, "")
			if err != nil {
				return fmt.Errorf("compressing block: %w", err)
			}
		}

		blockOffset := uint32(blockData.Len())
		blockData.Write(compressed)
		blockIdx = append(blockIdx, encodeBlockEntry(blockOffset, uint32(len(compressed)), uint32(len(uncompressed)))...)

		blockNum := uint32(len(blockIdx)/blockIndexEntrySize - 1)
		for i := start; i < end; i++ {
			verseIdx = append(verseIdx, encodeVerseEntry(blockNum, uint32(offsets[i-start]), uint16(sizes[i-start]))...)
		}
	}

	pfx := s.prefix(nt)
	if err := os.WriteFile(filepath.Join(s.dataPath, pfx+".bzs"), blockIdx, 0o644); err != nil {
		return cerrors.NewIO("write", pfx+".bzs", err)
	}
	if err := os.WriteFile(filepath.Join(s.dataPath, pfx+".bzv"), verseIdx, 0o644); err != nil {
		return cerrors.NewIO("write", pfx+".bzv", err)
	}
	if err := os.WriteFile(filepath.Join(s.dataPath, pfx+".bzz"), blockData.Bytes(), 0o644); err != nil {
		return cerrors.NewIO("write", pfx+".bzz", err)
	}
	return nil
}

func grainEntryCount(g BlockGrain) int {
	switch g {
	case BlockVerse:
		return 1
	case BlockChapter:
		return 250 // fixed 250-entry blocks; boundaries are not aligned to chapters
	case BlockBook:
		return 1 << 20 // effectively "whole testament in one block" for BlockBook grain
	default:
		return 1
	}
}

func encodeBlockEntry(offset, compSize, uncompSize uint32) []byte {
	b := make([]byte, blockIndexEntrySize)
	binary.LittleEndian.PutUint32(b[0:], offset)
	binary.LittleEndian.PutUint32(b[4:], compSize)
	binary.LittleEndian.PutUint32(b[8:], uncompSize)
	return b
}

func encodeVerseEntry(blockNum, offset uint32, size uint16) []byte {
	b := make([]byte, verseIndexEntrySize)
	binary.LittleEndian.PutUint32(b[0:], blockNum)
	binary.LittleEndian.PutUint32(b[4:], offset)
	binary.LittleEndian.PutUint16(b[8:], size)
	return b
}

// loadTestament reads back an existing testament's index+block files, if
// present, decompressing each block and repopulating the in-memory entry
// map so an "-a" append merges with prior content.
func (s *ZTextStore) loadTestament(nt bool) error {
	pfx := s.prefix(nt)
	bzsPath := filepath.Join(s.dataPath, pfx+".bzs")
	if _, err := os.Stat(bzsPath); err != nil {
		return nil
	}
	bzs, err := os.ReadFile(bzsPath)
	if err != nil {
		return cerrors.NewIO("read", bzsPath, err)
	}
	bzv, err := os.ReadFile(filepath.Join(s.dataPath, pfx+".bzv"))
	if err != nil {
		return cerrors.NewIO("read", pfx+".bzv", err)
	}
	bzz, err := os.ReadFile(filepath.Join(s.dataPath, pfx+".bzz"))
	if err != nil {
		return cerrors.NewIO("read", pfx+".bzz", err)
	}

	entries := s.otEntries
	if nt {
		entries = s.ntEntries
	}

	blockCount := len(bzs) / blockIndexEntrySize
	blockCache := make(map[int][]byte, blockCount)

	verseCount := len(bzv) / verseIndexEntrySize
	for i := 0; i < verseCount; i++ {
		off := i * verseIndexEntrySize
		blockNum := binary.LittleEndian.Uint32(bzv[off:])
		voffset := binary.LittleEndian.Uint32(bzv[off+4:])
		size := binary.LittleEndian.Uint16(bzv[off+8:])
		if size == 0 {
			continue
		}
		block, ok := blockCache[int(blockNum)]
		if !ok {
			block, err = s.decodeBlock(bzs, bzz, int(blockNum))
			if err != nil {
				return err
			}
			blockCache[int(blockNum)] = block
		}
		if int(voffset)+int(size) > len(block) {
			continue
		}
		entries[i] = &entry{data: block[voffset : voffset+uint32(size)]}
	}
	return nil
}

func (s *ZTextStore) decodeBlock(bzs, bzz []byte, blockNum int) ([]byte, error) {
	off := blockNum * blockIndexEntrySize
	if off+blockIndexEntrySize > len(bzs) {
		return nil, fmt.Errorf("block %d out of range", blockNum)
	}
	blockOffset := binary.LittleEndian.Uint32(bzs[off:])
	compSize := binary.LittleEndian.Uint32(bzs[off+4:])
	if int(blockOffset)+int(compSize) > len(bzz) {
		return nil, fmt.Errorf("block %d exceeds data file", blockNum)
	}
	compressed := bzz[blockOffset : blockOffset+compSize]
	if len(s.filters) == 0 {
		return compressed, nil
	}
	return s.filters.Decode(compressed, "")
}
