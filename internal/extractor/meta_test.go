package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMeta(t *testing.T) {
	tests := []struct {
		name          string
		html          string
		wantTitle     string
		wantDesc      string
		wantLang      string
		wantCanonical *string
	}{
		{
			name: "og title wins over title tag",
			html: `<html lang=" en "><head><title>Doc Title</title>
				<meta property="og:title" content="  OG Title ">
				<meta name="description" content=" A page. ">
				<link rel="canonical" href="/canonical/path"></head><body></body></html>`,
			wantTitle:     "OG Title",
			wantDesc:      "A page.",
			wantLang:      "en",
			wantCanonical: strPtr("https://x.com/canonical/path"),
		},
		{
			name:      "title tag fallback",
			html:      `<html><head><title>  Doc Title </title></head><body></body></html>`,
			wantTitle: "Doc Title",
		},
		{
			name:      "empty og title falls back",
			html:      `<html><head><meta property="og:title" content=""><title>T</title></head></html>`,
			wantTitle: "T",
		},
		{
			name: "nothing declared",
			html: `<html><body><p>hi</p></body></html>`,
		},
		{
			name: "blank canonical is none",
			html: `<html><head><link rel="canonical" href="  "></head></html>`,
		},
		{
			name:          "canonical among several rel values",
			html:          `<html><head><link rel="alternate canonical" href="https://y.org/a"></head></html>`,
			wantCanonical: strPtr("https://y.org/a"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc, err := Parse(tt.html)
			require.NoError(t, err)

			meta := New(0).Meta(doc, testSourceURL)
			assert.Equal(t, tt.wantTitle, meta.Title)
			assert.Equal(t, tt.wantDesc, meta.Description)
			assert.Equal(t, tt.wantLang, meta.Language)
			if tt.wantCanonical == nil {
				assert.Nil(t, meta.Canonical)
			} else {
				require.NotNil(t, meta.Canonical)
				assert.Equal(t, *tt.wantCanonical, *meta.Canonical)
			}
		})
	}
}

func strPtr(s string) *string { return &s }
