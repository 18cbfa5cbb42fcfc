package display

import (
	"thinkchat/internal/response"
)

// WaitingPlaceholder is shown when reasoning is hidden and no answer text
// has arrived yet, so the renderer never paints an empty block.
const WaitingPlaceholder = "Thinking..."

// Config is the per-render visibility configuration. It is supplied by the
// caller on every call and never mutated here.
type Config struct {
	ChainOfThoughtEnabled bool // marker protocol handling on/off
	ShowReasoning         bool // surface the reasoning segment to the user
}

// FormatForDisplay maps a classification and a visibility configuration to
// the exact string to show. The rules apply in order; the first match wins.
func FormatForDisplay(c response.Classification, cfg Config) string {
	// Chain of thought disabled, or the protocol never matched: the answer
	// passes through verbatim, even when empty.
	if !cfg.ChainOfThoughtEnabled || !c.Structured {
		return c.Answer
	}

	if cfg.ShowReasoning {
		switch {
		case c.Stage == response.StageReasoning:
			return response.ThinkingMarker + " " + c.Reasoning

		case c.Partial:
			// Malformed or partial without a proper reasoning stage: show
			// the salvaged reasoning bare.
			return c.Reasoning

		case c.Stage == response.StageComplete:
			return response.ThinkingMarker + " " + c.Reasoning +
				"\n\n" + response.AnswerMarker + " " + c.Answer
		}
	}

	if c.Answer != "" {
		return c.Answer
	}
	return WaitingPlaceholder
}
