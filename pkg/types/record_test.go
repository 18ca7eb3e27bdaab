// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalRecord_EffectiveDate(t *testing.T) {
	d := time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC)

	got, ok := CanonicalRecord{PublicationDate: &d, Year: IntPtr(2019)}.EffectiveDate()
	require.True(t, ok)
	assert.Equal(t, d, got, "full date wins over year")

	got, ok = CanonicalRecord{Year: IntPtr(2019)}.EffectiveDate()
	require.True(t, ok)
	assert.Equal(t, time.Date(2019, time.July, 1, 0, 0, 0, 0, time.UTC), got)

	_, ok = CanonicalRecord{Year: IntPtr(0)}.EffectiveDate()
	assert.False(t, ok)
	_, ok = CanonicalRecord{}.EffectiveDate()
	assert.False(t, ok)
}

func TestCanonicalRecord_EffectiveYear(t *testing.T) {
	d := time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2018, CanonicalRecord{Year: IntPtr(2018), PublicationDate: &d}.EffectiveYear())
	assert.Equal(t, 2020, CanonicalRecord{PublicationDate: &d}.EffectiveYear())
	assert.Zero(t, CanonicalRecord{}.EffectiveYear())
}

func TestCanonicalRecord_IsOpenAccess(t *testing.T) {
	assert.False(t, CanonicalRecord{}.IsOpenAccess())
	assert.False(t, CanonicalRecord{OpenAccess: BoolPtr(false)}.IsOpenAccess())
	assert.True(t, CanonicalRecord{OpenAccess: BoolPtr(true)}.IsOpenAccess())
	assert.True(t, CanonicalRecord{OpenAccess: BoolPtr(false), PDFURL: "https://x.org/p.pdf"}.IsOpenAccess())
}

func TestCanonicalRecord_Clone(t *testing.T) {
	d := time.Date(2020, 3, 4, 0, 0, 0, 0, time.UTC)
	orig := CanonicalRecord{
		Title:            "P",
		Authors:          []string{"A"},
		PublicationDate:  &d,
		Year:             IntPtr(2020),
		CitationCount:    IntPtr(1),
		OpenAccess:       BoolPtr(true),
		PublicationTypes: []string{"Review"},
		Sources:          []string{"s2"},
	}
	c := orig.Clone()
	assert.Equal(t, orig, c)

	c.Authors[0] = "B"
	c.Sources[0] = "openalex"
	*c.CitationCount = 99
	*c.OpenAccess = false
	*c.PublicationDate = d.AddDate(1, 0, 0)

	assert.Equal(t, "A", orig.Authors[0])
	assert.Equal(t, "s2", orig.Sources[0])
	assert.Equal(t, 1, *orig.CitationCount)
	assert.True(t, *orig.OpenAccess)
	assert.Equal(t, d, *orig.PublicationDate)
	assert.Nil(t, CanonicalRecord{}.Clone().Authors)
}
