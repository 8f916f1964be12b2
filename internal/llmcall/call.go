// Package llmcall provides model call recording and querying for traceability.
// Every page completion is recorded with its prompt key, response, and metrics.
package llmcall

import (
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/pagemark/internal/completion"
)

// Call represents a recorded model call.
type Call struct {
	// Unique identifier
	ID string `json:"id"`

	// Timing
	Timestamp time.Time `json:"timestamp"`
	LatencyMs int       `json:"latency_ms"`

	// Context references
	RunID     string `json:"run_id,omitempty"`
	Document  string `json:"document,omitempty"`
	Page      int    `json:"page"`
	RequestID string `json:"request_id,omitempty"`

	// Prompt traceability
	PromptKey  string `json:"prompt_key"`
	PromptHash string `json:"prompt_hash,omitempty"`
	Continuity bool   `json:"continuity,omitempty"`

	// Model info
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Token usage
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	// Response
	Response      string `json:"response,omitempty"`
	BoundingBoxes int    `json:"bounding_boxes,omitempty"`

	// Status
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RecordOptions provides context for recording a call.
type RecordOptions struct {
	// Context references (all optional)
	RunID    string
	Document string
	Page     int

	// Prompt identification (required for traceability)
	PromptKey  string
	PromptHash string
	Continuity bool

	// Used when the call failed before a result existed.
	Provider string
	Model    string

	// OmitResponse drops the response text from the record.
	OmitResponse bool
}

// FromResult creates a Call from a completion result or error.
// Returns nil if both are nil.
func FromResult(result *completion.Result, callErr error, opts RecordOptions) *Call {
	if result == nil && callErr == nil {
		return nil
	}

	call := &Call{
		ID:         uuid.New().String(),
		Timestamp:  time.Now(),
		RunID:      opts.RunID,
		Document:   opts.Document,
		Page:       opts.Page,
		PromptKey:  opts.PromptKey,
		PromptHash: opts.PromptHash,
		Continuity: opts.Continuity,
		Provider:   opts.Provider,
		Model:      opts.Model,
		Success:    callErr == nil,
	}

	if result != nil {
		call.LatencyMs = int(result.Latency.Milliseconds())
		call.RequestID = result.RequestID
		call.Provider = result.Provider
		call.Model = result.Model
		call.InputTokens = result.InputTokens
		call.OutputTokens = result.OutputTokens
		call.BoundingBoxes = len(result.BoundingBoxes)
		if !opts.OmitResponse {
			call.Response = result.Content
		}
	}

	if callErr != nil {
		call.Error = callErr.Error()
	}

	return call
}
