// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package report

import (
	"io"
	"strconv"
	"strings"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/paper-survey/internal/aggregate"
	"github.com/pdiddy/paper-survey/pkg/types"
)

// CSLItem is a bibliographic entry in CSL (Citation Style Language) form.
// Field names follow the CSL-YAML schema so the output can be fed to Pandoc
// or a reference manager.
type CSLItem struct {
	ID             string    `yaml:"id"`
	Type           string    `yaml:"type"`
	Title          string    `yaml:"title"`
	Author         []CSLName `yaml:"author,omitempty"`
	Abstract       string    `yaml:"abstract,omitempty"`
	ContainerTitle string    `yaml:"container-title,omitempty"`
	Issued         *CSLDate  `yaml:"issued,omitempty"`
	DOI            string    `yaml:"DOI,omitempty"`
	URL            string    `yaml:"URL,omitempty"`
}

// CSLName is a person's name in CSL form.
type CSLName struct {
	Family  string `yaml:"family,omitempty"`
	Given   string `yaml:"given,omitempty"`
	Literal string `yaml:"literal,omitempty"`
}

// CSLDate is a CSL date expressed as date-parts.
type CSLDate struct {
	DateParts [][]int `yaml:"date-parts"`
}

// cslTypes maps lowercased source publication types to CSL item types.
var cslTypes = map[string]string{
	"journalarticle":      "article-journal",
	"article":             "article-journal",
	"journal-article":     "article-journal",
	"conference":          "paper-conference",
	"proceedings":         "paper-conference",
	"proceedings-article": "paper-conference",
	"book":                "book",
	"bookchapter":         "chapter",
	"book-chapter":        "chapter",
	"dataset":             "dataset",
	"dissertation":        "thesis",
	"preprint":            "article",
}

// FormatCSL writes the ranked records as a CSL-YAML list.
func FormatCSL(res aggregate.Result, w io.Writer) error {
	items := make([]CSLItem, len(res.Records))
	for i, r := range res.Records {
		items[i] = toCSLItem(r, i)
	}
	enc := yaml.NewEncoder(w)
	defer enc.Close()
	return enc.Encode(items)
}

func toCSLItem(r types.CanonicalRecord, idx int) CSLItem {
	item := CSLItem{
		ID:             cslID(r, idx),
		Type:           cslType(r.PublicationTypes),
		Title:          r.Title,
		Abstract:       r.Abstract,
		ContainerTitle: r.Venue,
		DOI:            r.DOI,
		URL:            r.URL,
	}
	for _, a := range r.Authors {
		item.Author = append(item.Author, parseAuthorName(a))
	}

	switch {
	case r.PublicationDate != nil:
		d := r.PublicationDate.UTC()
		item.Issued = &CSLDate{DateParts: [][]int{{d.Year(), int(d.Month()), d.Day()}}}
	case r.Year != nil:
		item.Issued = &CSLDate{DateParts: [][]int{{*r.Year}}}
	}
	return item
}

// cslID prefers the DOI, then the URL, then a positional id.
func cslID(r types.CanonicalRecord, idx int) string {
	switch {
	case r.DOI != "":
		return r.DOI
	case r.URL != "":
		return r.URL
	default:
		return "item-" + strconv.Itoa(idx+1)
	}
}

func cslType(pubTypes []string) string {
	for _, t := range pubTypes {
		if ct, ok := cslTypes[strings.ToLower(strings.TrimSpace(t))]; ok {
			return ct
		}
	}
	return "article"
}

// parseAuthorName splits on the last space: everything before is given,
// the last token is family. Single-token names use the literal field.
func parseAuthorName(name string) CSLName {
	name = strings.TrimSpace(name)
	if name == "" {
		return CSLName{}
	}
	idx := strings.LastIndex(name, " ")
	if idx < 0 {
		return CSLName{Literal: name}
	}
	return CSLName{
		Given:  name[:idx],
		Family: name[idx+1:],
	}
}
