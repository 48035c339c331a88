// Package osisheader extracts the work metadata SWORD writes into a
// module's .conf from an OSIS document's <header> block: osisWork,
// refSystem, title, and any languages listed. It deliberately parses only
// the header, never the document body — the body is handled byte-at-a-time
// by internal/scanner, which would choke on xmlquery's whole-document DOM
// for anything book-sized.
//
// Grounded on the teacher's core/xml package (xmlquery/xpath wrapper);
// unlike that package this one exposes only the narrow header fields
// osis2mod needs, not a general XPath-query surface.
package osisheader

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
)

// Header holds the OSIS document metadata relevant to module creation.
type Header struct {
	OsisWork  string
	RefSystem string
	Title     string
	Languages []string
	Publisher string
	Rights    string
}

// Extract parses only the <header> element out of raw, tolerating a
// truncated or headerless document (returns a zero Header, no error, when
// no header is present). The osis2mod CLI does not call Extract.
func Extract(raw []byte) (*Header, error) {
	headerXML, ok := sliceHeader(raw)
	if !ok {
		return &Header{}, nil
	}

	doc, err := xmlquery.Parse(bytes.NewReader(headerXML))
	if err != nil {
		return nil, fmt.Errorf("parsing osis header: %w", err)
	}

	h := &Header{}
	if work := xmlquery.FindOne(doc, "//work"); work != nil {
		h.OsisWork = work.SelectAttr("osisWork")
		if title := xmlquery.FindOne(work, "./title"); title != nil {
			h.Title = strings.TrimSpace(title.InnerText())
		}
		if publisher := xmlquery.FindOne(work, "./publisher"); publisher != nil {
			h.Publisher = strings.TrimSpace(publisher.InnerText())
		}
		if rights := xmlquery.FindOne(work, "./rights"); rights != nil {
			h.Rights = strings.TrimSpace(rights.InnerText())
		}
		for _, lang := range xmlquery.Find(work, "./language") {
			if text := strings.TrimSpace(lang.InnerText()); text != "" {
				h.Languages = append(h.Languages, text)
			}
		}
	}
	if refSystem := xmlquery.FindOne(doc, "//refSystem"); refSystem != nil {
		h.RefSystem = strings.TrimSpace(refSystem.InnerText())
	}

	return h, nil
}

// sliceHeader returns the bytes from the first "<header" through the
// matching "</header>", without parsing the rest of the document; this
// keeps header extraction O(bytes-until-header) rather than requiring a
// full-document DOM.
func sliceHeader(raw []byte) ([]byte, bool) {
	start := bytes.Index(raw, []byte("<header"))
	if start < 0 {
		return nil, false
	}
	end := bytes.Index(raw[start:], []byte("</header>"))
	if end < 0 {
		return nil, false
	}
	end += start + len("</header>")
	return raw[start:end], true
}

// VersificationHint maps a refSystem value like "Bible.KJV" to the
// versification scheme name it names, or "" if refSystem doesn't follow
// that convention.
func (h *Header) VersificationHint() string {
	const prefix = "Bible."
	if strings.HasPrefix(h.RefSystem, prefix) {
		return strings.TrimPrefix(h.RefSystem, prefix)
	}
	return ""
}
