package search

import (
	"context"
	"encoding/xml"
	"fmt"
	"log"
	"strings"

	"github.com/fadbs/anidb-cache/internal/services/parser"
)

// Wire format of the anime-titles bulk dump

type titlesDump struct {
	XMLName xml.Name    `xml:"animetitles"`
	Entries []dumpEntry `xml:"anime"`
}

type dumpEntry struct {
	AID    int         `xml:"aid,attr"`
	Titles []dumpTitle `xml:"title"`
}

type dumpTitle struct {
	Lang string `xml:"lang,attr"`
	Type string `xml:"type,attr"`
	Name string `xml:",chardata"`
}

// RefreshTitleIndex fetches the bulk title dump when it is due (at most
// once per day) and merges it into the store. Returns the number of
// titles imported, zero when the dump is still fresh.
func (r *Resolver) RefreshTitleIndex(ctx context.Context) (int, error) {
	if !r.gate.TitlesDumpDue() {
		return 0, nil
	}
	raw, err := r.gate.FetchTitlesDump(ctx)
	if err != nil {
		return 0, err
	}
	return r.ImportTitlesDump(ctx, raw)
}

// ImportTitlesDump merges a raw anime-titles document into the store:
// unknown series get a bare placeholder row, unseen titles are appended,
// duplicates are skipped. Existing series data is never touched.
func (r *Resolver) ImportTitlesDump(ctx context.Context, raw []byte) (int, error) {
	var dump titlesDump
	if err := xml.Unmarshal(raw, &dump); err != nil {
		return 0, fmt.Errorf("%w: %v", parser.ErrMalformedDocument, err)
	}

	imported := 0
	for _, entry := range dump.Entries {
		if entry.AID == 0 {
			continue
		}
		for _, title := range entry.Titles {
			name := strings.TrimSpace(title.Name)
			if name == "" {
				continue
			}
			err := r.repo.ImportTitle(ctx, entry.AID, parser.ParsedTitle{
				Name:     name,
				Language: title.Lang,
				Kind:     title.Type,
			})
			if err != nil {
				return imported, fmt.Errorf("importing title for anime %d: %w", entry.AID, err)
			}
			imported++
		}
	}

	log.Printf("[INFO] title index refresh imported %d titles across %d series", imported, len(dump.Entries))
	return imported, nil
}
