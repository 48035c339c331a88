// Package unicodeprep implements §4.7's per-verse Unicode preparation:
// UTF-8 validity detection, a code-page-1252 fallback decode for non-UTF-8
// input, and canonical-composition (NFC) normalization.
package unicodeprep

import (
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/unicode/norm"
)

// Stats accumulates the counters §4.7 asks the write-behind to keep:
// entries normalized and entries transcoded from a non-UTF-8 code page.
type Stats struct {
	Normalized int
	Converted  int
	Warned     int
}

// Prepper runs §4.7's four-step algorithm. It calls golang.org/x/text's
// Windows-1252 decoder and NFC normalizer directly; the transforms are not
// injected and cannot be replaced by callers.
type Prepper struct {
	NormalizeEnabled bool
	Stats            Stats
}

// New creates a Prepper with normalization enabled. The importer always
// uses New and, under the CLI's "-N" flag, skips Process altogether.
func New() *Prepper {
	return &Prepper{NormalizeEnabled: true}
}

// Process applies the four steps to one verse's text at flush time,
// returning the prepared bytes.
func (p *Prepper) Process(text []byte) []byte {
	valid := IsValidUTF8(text)

	if !valid {
		if !p.NormalizeEnabled {
			p.Stats.Warned++
			return text
		}
		if decoded, err := charmap.Windows1252.NewDecoder().Bytes(text); err == nil {
			text = decoded
		}
		valid = IsValidUTF8(text)
		p.Stats.Converted++
	}

	if !valid {
		p.Stats.Warned++
		return text
	}

	if !p.NormalizeEnabled {
		return text
	}

	p.Stats.Normalized++
	return norm.NFC.Bytes(text)
}

// IsValidUTF8 scans for UTF-8 validity per RFC continuation-byte rules,
// rejecting lead bytes 0xF8-0xFF (the 5/6-byte lead patterns 111110xx and
// 1111110x, and 0xFE/0xFF) that a naive byte-range check would accept.
func IsValidUTF8(b []byte) bool {
	i := 0
	for i < len(b) {
		c := b[i]
		switch {
		case c < 0x80:
			i++
		case c&0xE0 == 0xC0:
			if !hasContinuation(b, i, 1) {
				return false
			}
			i += 2
		case c&0xF0 == 0xE0:
			if !hasContinuation(b, i, 2) {
				return false
			}
			i += 3
		case c&0xF8 == 0xF0:
			if !hasContinuation(b, i, 3) {
				return false
			}
			i += 4
		default:
			// 0x80-0xBF stray continuation, or 0xF8-0xFF 5/6-byte or
			// undefined lead: both invalid as a sequence start.
			return false
		}
	}
	return true
}

func hasContinuation(b []byte, start, n int) bool {
	if start+n >= len(b) {
		return false
	}
	for i := 1; i <= n; i++ {
		if b[start+i]&0xC0 != 0x80 {
			return false
		}
	}
	return true
}
