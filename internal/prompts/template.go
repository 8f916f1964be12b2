package prompts

import (
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"strings"
	"text/template"
)

//go:embed continuity.tmpl
var continuityText string

var continuityTemplate = template.Must(template.New("continuity").Parse(continuityText))

// Continuity returns the instruction that asks the model to keep the formatting
// of the previous page. The prior page is embedded verbatim.
func Continuity(priorPage string) string {
	var b strings.Builder
	// Executing a parsed template into a strings.Builder only fails on
	// missing fields, and the data struct is fixed.
	_ = continuityTemplate.Execute(&b, struct{ PriorPage string }{PriorPage: priorPage})
	return b.String()
}

// HashText returns a SHA256 hash of the text for change detection.
func HashText(text string) string {
	h := sha256.Sum256([]byte(text))
	return hex.EncodeToString(h[:])
}
