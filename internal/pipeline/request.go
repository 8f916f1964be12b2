package pipeline

import (
	"github.com/jackzampolin/pagemark/internal/completion"
	"github.com/jackzampolin/pagemark/internal/prompts"
	"github.com/jackzampolin/pagemark/internal/providers"
)

// PageImage is a rendered page ready to send.
type PageImage struct {
	Index int    // 0-based position in the run
	Page  int    // 1-based page number in the source PDF
	Path  string // rendered image file
}

// ImageEncoder turns an image file into an inline payload.
type ImageEncoder interface {
	Encode(path string) (providers.Image, error)
}

// BuildRequest assembles the messages for one page: the system prompt, an
// optional continuity instruction carrying the prior page verbatim, and the
// page image last. Encoder errors are returned unchanged.
func BuildRequest(prompt prompts.SystemPrompt, enc ImageEncoder, page PageImage, maintainFormat bool, prior string) (completion.Request, error) {
	img, err := enc.Encode(page.Path)
	if err != nil {
		return completion.Request{}, err
	}

	msgs := make([]providers.Message, 0, 3)
	msgs = append(msgs, providers.Message{Role: providers.RoleSystem, Content: prompt.Text()})
	if maintainFormat && prior != "" {
		msgs = append(msgs, providers.Message{Role: providers.RoleSystem, Content: prompts.Continuity(prior)})
	}
	msgs = append(msgs, providers.Message{Role: providers.RoleUser, Images: []providers.Image{img}})

	return completion.Request{Messages: msgs}, nil
}
