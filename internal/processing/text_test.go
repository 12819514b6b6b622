package processing_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"vidpipe/internal/processing"
)

func TestCleanText(t *testing.T) {
	input := "Watch more at https://example.com/promo &amp; subscribe!\n\n  #hashtag   content"
	clean := processing.CleanText(input)

	require.NotContains(t, clean, "https://")
	require.NotContains(t, clean, "&amp;")
	require.NotContains(t, clean, "\n")
	require.Contains(t, clean, "& subscribe!")
}

func TestCleanTextEmpty(t *testing.T) {
	require.Equal(t, "", processing.CleanText(""))
}

func TestTruncate(t *testing.T) {
	require.Equal(t, "short", processing.Truncate("short", 100))
	require.Equal(t, "ab...", processing.Truncate("abcdef", 2))
	require.Equal(t, "abcdef", processing.Truncate("abcdef", 0))
}

func TestBuildDocumentIDStable(t *testing.T) {
	a := processing.BuildDocumentID("https://www.youtube.com/watch?v=abc123")
	b := processing.BuildDocumentID("https://www.youtube.com/watch?v=abc123")
	require.Equal(t, a, b)
	require.Len(t, a, 40) // sha1 hex

	other := processing.BuildDocumentID("https://www.youtube.com/watch?v=xyz789")
	require.NotEqual(t, a, other)
}

func TestBuildDocumentIDIgnoresTrailingSlash(t *testing.T) {
	a := processing.BuildDocumentID("https://example.com/video")
	b := processing.BuildDocumentID("https://example.com/video/")
	require.Equal(t, a, b)
}
