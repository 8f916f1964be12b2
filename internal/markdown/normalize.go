// Package markdown cleans up page markdown returned by vision models.
package markdown

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"
)

// BoundingBox locates an embedded image on a page.
// Box is kept as raw JSON because providers disagree on the coordinate format.
type BoundingBox struct {
	Image string          `json:"image"`
	Box   json.RawMessage `json:"bounding_box"`
}

var (
	// Whole-answer fence with a lowercase info string (```markdown, ```html, ...).
	markdownFence = regexp.MustCompile("(?s)\\A```[a-z]*[ \\t]*\\r?\\n(.*?)\\r?\\n?```\\s*\\z")

	// Whole-answer bare ``` fence (no info string).
	codeFence = regexp.MustCompile("(?s)\\A```[ \\t]*\\r?\\n(.*?)\\r?\\n?```\\s*\\z")
)

// Normalize removes one layer of fence wrapping with any lowercase info
// string, then one layer of bare code fence wrapping, and appends a block
// for each bounding box.
func Normalize(raw string, boxes []BoundingBox) string {
	text := unwrap(markdownFence, raw)
	text = unwrap(codeFence, text)

	if len(boxes) == 0 {
		return text
	}

	blocks := make([]string, 0, len(boxes))
	for _, box := range boxes {
		blocks = append(blocks, FormatBoundingBox(box))
	}
	return text + "\n\n" + strings.Join(blocks, "\n\n")
}

// FormatBoundingBox renders a box as an inline image followed by its coordinates.
func FormatBoundingBox(box BoundingBox) string {
	return "![Image](data:image/png;base64," + box.Image + ")\n\nBounding Box: " + renderCoords(box.Box)
}

func unwrap(re *regexp.Regexp, s string) string {
	m := re.FindStringSubmatch(s)
	if m == nil {
		return s
	}
	return m[1]
}

func renderCoords(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "null"
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}
