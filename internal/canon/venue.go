// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package canon

import (
	"strings"
	"unicode"
)

// builtinSynonyms maps canonical venue names to their common long forms.
var builtinSynonyms = map[string][]string{
	"NeurIPS": {"NIPS", "Advances in Neural Information Processing Systems", "Neural Information Processing Systems"},
	"ICLR":    {"International Conference on Learning Representations"},
	"ICCV":    {"International Conference on Computer Vision", "IEEE International Conference on Computer Vision"},
	"CVPR":    {"IEEE Conference on Computer Vision and Pattern Recognition", "Computer Vision and Pattern Recognition"},
	"EMNLP":   {"Empirical Methods in Natural Language Processing", "Conference on Empirical Methods in Natural Language Processing"},
	"ACL":     {"Association for Computational Linguistics", "Annual Meeting of the Association for Computational Linguistics"},
	"ICML":    {"International Conference on Machine Learning"},
}

// topVenues lists venues that receive the full venue score when ranking.
var topVenues = []string{
	"NeurIPS", "NIPS", "ICLR", "ICML", "AAAI", "IJCAI", "JMLR",
	"CVPR", "ICCV", "ECCV", "TPAMI", "IJCV",
	"ACL", "EMNLP", "NAACL", "COLING", "TACL",
	"SIGIR", "WWW", "KDD", "VLDB", "SIGMOD", "ICDE",
}

// VenueTable resolves venue spellings to a normalized key.
type VenueTable struct {
	keys map[string]string // token -> canonical token
	top  map[string]bool
}

// NewVenueTable builds the table from the built-in synonyms plus extra.
func NewVenueTable(extra map[string][]string) *VenueTable {
	t := &VenueTable{keys: map[string]string{}, top: map[string]bool{}}
	add := func(m map[string][]string) {
		for canonical, alts := range m {
			ck := Token(canonical)
			if ck == "" {
				continue
			}
			t.keys[ck] = ck
			for _, a := range alts {
				if ak := Token(a); ak != "" {
					t.keys[ak] = ck
				}
			}
		}
	}
	add(builtinSynonyms)
	add(extra)
	for _, v := range topVenues {
		t.top[t.Key(v)] = true
	}
	return t
}

// Key returns the normalized key for a venue string: the canonical token
// when the spelling is a known synonym, otherwise the venue's own token.
func (t *VenueTable) Key(venue string) string {
	tok := Token(venue)
	if k, ok := t.keys[tok]; ok {
		return k
	}
	return tok
}

// Match reports whether a record's venue key matches any of the requested
// venues after synonym resolution. A requested acronym also matches venue
// strings that contain it as a word, e.g. "ICLR" matches "ICLR 2021".
func (t *VenueTable) Match(recordVenue string, wanted []string) bool {
	key := t.Key(recordVenue)
	words := venueWords(recordVenue)
	for _, w := range wanted {
		wk := t.Key(w)
		if wk == "" {
			continue
		}
		if wk == key {
			return true
		}
		for _, word := range words {
			if t.Key(word) == wk {
				return true
			}
		}
	}
	return false
}

// IsTop reports whether a venue key is one of the top venues.
func (t *VenueTable) IsTop(key string) bool {
	return key != "" && t.top[key]
}

// Token uppercases s and strips everything but letters and digits.
func Token(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func venueWords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}
