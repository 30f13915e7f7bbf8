// Package parser turns raw AniDB XML documents into structured records.
// It performs no I/O and touches no storage; feeding the same bytes in
// always yields the same record out.
package parser

import (
	"encoding/xml"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformedDocument means the document has no anime root node; this
// usually signals an upstream contract change and is never retried here
var ErrMalformedDocument = errors.New("malformed anidb document")

// Wire format of the AniDB HTTP API anime response

type animeDocument struct {
	XMLName      xml.Name      `xml:"anime"`
	ID           int           `xml:"id,attr"`
	Type         string        `xml:"type"`
	EpisodeCount string        `xml:"episodecount"`
	StartDate    string        `xml:"startdate"`
	EndDate      string        `xml:"enddate"`
	Titles       []titleNode   `xml:"titles>title"`
	URL          string        `xml:"url"`
	Description  string        `xml:"description"`
	Ratings      *ratingsNode  `xml:"ratings"`
	Tags         []tagNode     `xml:"tags>tag"`
	Episodes     []episodeNode `xml:"episodes>episode"`
}

type titleNode struct {
	Lang string `xml:"lang,attr"`
	Type string `xml:"type,attr"`
	Name string `xml:",chardata"`
}

type ratingsNode struct {
	Permanent *ratingNode `xml:"permanent"`
	// AniDB calls the recent-votes mean "temporary"
	Temporary *ratingNode `xml:"temporary"`
}

type ratingNode struct {
	Count int    `xml:"count,attr"`
	Votes int    `xml:"votes,attr"`
	Value string `xml:",chardata"`
}

type tagNode struct {
	ID            int    `xml:"id,attr"`
	ParentID      int    `xml:"parentid,attr"`
	Weight        int    `xml:"weight,attr"`
	LocalSpoiler  bool   `xml:"localspoiler,attr"`
	GlobalSpoiler bool   `xml:"globalspoiler,attr"`
	Verified      bool   `xml:"verified,attr"`
	Name          string `xml:"name"`
}

type episodeNode struct {
	ID      int         `xml:"id,attr"`
	EpNo    *epnoNode   `xml:"epno"`
	Length  string      `xml:"length"`
	AirDate string      `xml:"airdate"`
	Rating  *ratingNode `xml:"rating"`
	Titles  []titleNode `xml:"title"`
}

type epnoNode struct {
	Type   string `xml:"type,attr"`
	Number string `xml:",chardata"`
}

// ParseSeries converts one raw series document into a ParsedSeries.
// Missing optional fields degrade to absent values; only a missing anime
// root is fatal.
func ParseSeries(raw []byte) (*ParsedSeries, error) {
	var doc animeDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}
	if doc.XMLName.Local != "anime" {
		return nil, ErrMalformedDocument
	}

	series := &ParsedSeries{
		AniDBID:     doc.ID,
		Type:        strings.TrimSpace(doc.Type),
		URL:         strings.TrimSpace(doc.URL),
		Description: strings.TrimSpace(doc.Description),
	}

	if count, err := strconv.Atoi(strings.TrimSpace(doc.EpisodeCount)); err == nil {
		series.EpisodeCount = count
	}

	if start, err := ParseDate(doc.StartDate); err == nil {
		series.StartDate = start.Date
		series.Year = start.Year
		series.Season = start.Season
	}
	if end, err := ParseDate(doc.EndDate); err == nil {
		series.EndDate = end.Date
	}

	for _, title := range doc.Titles {
		name := strings.TrimSpace(title.Name)
		if name == "" {
			continue
		}
		series.Titles = append(series.Titles, ParsedTitle{
			Name:     name,
			Language: title.Lang,
			Kind:     title.Type,
		})
	}

	if doc.Ratings != nil {
		series.PermanentRating = ratingValue(doc.Ratings.Permanent)
		series.MeanRating = ratingValue(doc.Ratings.Temporary)
	}

	for _, tag := range doc.Tags {
		series.Tags = append(series.Tags, ParsedTag{
			ID:            tag.ID,
			ParentID:      tag.ParentID,
			Name:          strings.TrimSpace(tag.Name),
			Weight:        tag.Weight,
			LocalSpoiler:  tag.LocalSpoiler,
			GlobalSpoiler: tag.GlobalSpoiler,
			Verified:      tag.Verified,
		})
	}

	for _, node := range doc.Episodes {
		series.Episodes = append(series.Episodes, parseEpisode(node))
	}

	return series, nil
}

func parseEpisode(node episodeNode) ParsedEpisode {
	episode := ParsedEpisode{AniDBID: node.ID}

	if node.EpNo != nil {
		episode.Number = strings.TrimSpace(node.EpNo.Number)
		episode.Type = node.EpNo.Type
	}

	if length, err := strconv.Atoi(strings.TrimSpace(node.Length)); err == nil {
		episode.Length = length
	}

	if airdate, err := ParseDate(node.AirDate); err == nil {
		episode.AirDate = airdate.Date
	}

	if node.Rating != nil {
		if value, err := strconv.ParseFloat(strings.TrimSpace(node.Rating.Value), 64); err == nil {
			episode.Rating = &value
			votes := node.Rating.Votes
			episode.Votes = &votes
		}
	}

	for _, title := range node.Titles {
		name := strings.TrimSpace(title.Name)
		if name == "" {
			continue
		}
		episode.Titles = append(episode.Titles, ParsedEpisodeTitle{
			Title:    name,
			Language: title.Lang,
		})
	}

	return episode
}

func ratingValue(node *ratingNode) *float64 {
	if node == nil {
		return nil
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(node.Value), 64)
	if err != nil {
		return nil
	}
	return &value
}
