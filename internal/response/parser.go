package response

import (
	"strings"
)

// ─── Marker protocol ────────────────────────────────────────────────────────

// The model delimits its output with two literal, case-sensitive prefixes.
// They are the entire wire format: everything between "Thinking:" and the
// first subsequent "Answer:" is the reasoning segment, everything after that
// "Answer:" is the final answer. First occurrence wins on both markers.
const (
	ThinkingMarker = "Thinking:"
	AnswerMarker   = "Answer:"
)

// ─── Classification ─────────────────────────────────────────────────────────

// Stage describes how far through the marker protocol a response has come.
type Stage int

const (
	StageNone      Stage = iota // unstructured text, no protocol detected
	StageReasoning              // reasoning marker seen, answer not yet
	StageComplete               // both markers resolved
)

func (s Stage) String() string {
	switch s {
	case StageReasoning:
		return "reasoning"
	case StageComplete:
		return "complete"
	default:
		return "none"
	}
}

// Classification is the structured view of one response snapshot.
// It is a value: produced once per ClassifyComplete/ClassifyPartial call
// and never mutated afterwards.
type Classification struct {
	Reasoning  string // trimmed reasoning text, empty if none detected
	Answer     string // trimmed answer text, empty if not yet emitted
	Structured bool   // the marker protocol was recognized
	Partial    bool   // no terminal answer section resolved yet
	Stage      Stage
}

// ─── ParserState ────────────────────────────────────────────────────────────

// ParserState carries the best-known segments across snapshots of a single
// in-flight request, so a snapshot that momentarily fails to match the
// protocol does not regress content already shown. One instance per request:
// concurrent requests must each call NewParserState, and a retry starts over
// with a fresh state.
type ParserState struct {
	lastReasoning  string
	lastAnswer     string
	awaitingAnswer bool
}

// NewParserState returns a fresh state for a new request.
func NewParserState() *ParserState {
	return &ParserState{}
}

// AwaitingAnswer reports whether a reasoning marker has been seen without a
// matching answer marker yet.
func (s *ParserState) AwaitingAnswer() bool {
	return s != nil && s.awaitingAnswer
}

// ─── Classification of complete responses ───────────────────────────────────

// ClassifyComplete classifies a finished response body. It is total over all
// inputs: no marker at all means the whole text is the answer, verbatim.
// A nil state is allowed for one-shot classification.
//
// Priority order:
//  1. both markers present: split at the first "Answer:" after the first
//     "Thinking:", both segments trimmed
//  2. text starts with "Thinking:" and has no "Answer:": reasoning only
//  3. "Thinking:" appears elsewhere without a following "Answer:": malformed,
//     reasoning salvaged from the marker onward, not treated as structured
//  4. no markers: the entire text is the answer
func ClassifyComplete(text string, state *ParserState) Classification {
	ti := strings.Index(text, ThinkingMarker)
	if ti < 0 {
		c := Classification{Answer: text, Stage: StageNone}
		record(state, c)
		return c
	}

	rest := text[ti+len(ThinkingMarker):]
	ai := strings.Index(rest, AnswerMarker)

	switch {
	case ai >= 0:
		return splitResolved(rest[:ai], rest[ai+len(AnswerMarker):], state)

	case ti == 0:
		c := Classification{
			Reasoning:  strings.TrimSpace(rest),
			Structured: true,
			Partial:    true,
			Stage:      StageReasoning,
		}
		if c.Answer == "" && state != nil {
			c.Answer = state.lastAnswer
		}
		record(state, c)
		if state != nil {
			state.awaitingAnswer = true
		}
		return c

	default:
		// Marker buried mid-text with no answer to pair it against. Salvage
		// the text from the marker onward but do not claim the protocol
		// matched.
		c := Classification{
			Reasoning: strings.TrimSpace(rest),
			Partial:   true,
			Stage:     StageNone,
		}
		if c.Reasoning == "" && state != nil {
			c.Reasoning = state.lastReasoning
		}
		record(state, c)
		return c
	}
}

// ─── Classification of streaming snapshots ──────────────────────────────────

// ClassifyPartial classifies one snapshot of an in-flight stream. Each
// snapshot is the full accumulated text so far, not a delta; the whole
// snapshot is re-evaluated every call. That is quadratic over a stream but
// responses are bounded by model output limits, and it makes the result
// independent of where chunk boundaries happened to fall.
func ClassifyPartial(text string, state *ParserState) Classification {
	ti := strings.Index(text, ThinkingMarker)
	if ti < 0 {
		// Unstructured running text: show it as the answer as it grows.
		c := Classification{Answer: text, Stage: StageNone}
		record(state, c)
		return c
	}

	rest := text[ti+len(ThinkingMarker):]
	ai := strings.Index(rest, AnswerMarker)
	if ai < 0 {
		c := Classification{
			Reasoning:  strings.TrimSpace(rest),
			Structured: true,
			Partial:    true,
			Stage:      StageReasoning,
		}
		if c.Reasoning == "" && state != nil {
			c.Reasoning = state.lastReasoning
		}
		if state != nil {
			c.Answer = state.lastAnswer
		}
		record(state, c)
		if state != nil {
			state.awaitingAnswer = true
		}
		return c
	}

	return splitResolved(rest[:ai], rest[ai+len(AnswerMarker):], state)
}

// ─── Internals ──────────────────────────────────────────────────────────────

// splitResolved handles the both-markers case shared by complete and partial
// classification. An answer that trims to nothing does not complete the
// response: the marker boundary is known but the answer has not been emitted
// yet, so the stage stays at reasoning.
func splitResolved(rawReasoning, rawAnswer string, state *ParserState) Classification {
	reasoning := strings.TrimSpace(rawReasoning)
	answer := strings.TrimSpace(rawAnswer)

	if answer == "" {
		c := Classification{
			Reasoning:  reasoning,
			Structured: true,
			Partial:    true,
			Stage:      StageReasoning,
		}
		if state != nil {
			c.Answer = state.lastAnswer
		}
		record(state, c)
		if state != nil {
			state.awaitingAnswer = true
		}
		return c
	}

	c := Classification{
		Reasoning:  reasoning,
		Answer:     answer,
		Structured: true,
		Stage:      StageComplete,
	}
	record(state, c)
	if state != nil {
		state.awaitingAnswer = false
	}
	return c
}

// record keeps the carry-forward fields current. Only non-empty segments are
// stored; an empty segment never overwrites a previously seen one.
func record(state *ParserState, c Classification) {
	if state == nil {
		return
	}
	if c.Reasoning != "" {
		state.lastReasoning = c.Reasoning
	}
	if c.Answer != "" {
		state.lastAnswer = c.Answer
	}
}
