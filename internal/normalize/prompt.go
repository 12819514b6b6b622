package normalize

import (
	"fmt"
	"strings"
	"time"

	"vidpipe/internal/models"
	"vidpipe/internal/processing"
)

// systemPrompt is the fixed instruction template for the transformation.
// The response contract mirrors the canonical record schema so validation
// can be mechanical.
const systemPrompt = `You are a metadata normalizer for a video knowledge base.
Given raw video metadata, respond with a single JSON object containing exactly these fields:

  "title": the cleaned-up video title (string),
  "publish_date": the publish date as "YYYY-MM-DD" (string),
  "duration": the video length in a human-readable form like "1h 23m" (string),
  "summary": an array of short bullet strings capturing the substantive content of the description,
  "stats": a one-line human-readable summary of view/like/comment counts, or null if none were given.

Rules:
- summary must always be a JSON array of strings. If the description contains no substantive
  content (only links, hashtags, sponsor messages, or promotional text), return an empty array.
- Never invent facts that are not present in the input.
- Respond with JSON only, no prose.`

const maxDescriptionRunes = 4000

// buildUserPrompt renders one raw record as the user message. The
// description is cleaned and truncated first so the payload stays small and
// free of link-farm noise.
func buildUserPrompt(rec models.RawRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "title: %s\n", strings.TrimSpace(rec.Title))
	fmt.Fprintf(&b, "channel: %s\n", rec.Channel)
	fmt.Fprintf(&b, "published_at: %s\n", rec.PublishedAt.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, "duration: %s\n", rec.Duration)
	if rec.Stats != nil {
		fmt.Fprintf(&b, "views: %d\nlikes: %d\ncomments: %d\n",
			rec.Stats.Views, rec.Stats.Likes, rec.Stats.Comments)
	}
	desc := processing.Truncate(processing.CleanText(rec.Description), maxDescriptionRunes)
	fmt.Fprintf(&b, "description: %s\n", desc)
	return b.String()
}
