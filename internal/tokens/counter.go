package tokens

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"
)

// fallbackEncoding covers models tiktoken has no mapping for.
const fallbackEncoding = "cl100k_base"

// Counter estimates token counts for a model's encoding. Used to keep the
// running usage total when the server omits usage data from a stream.
type Counter struct {
	enc *tiktoken.Tiktoken
}

// NewCounter builds a counter for the given model, falling back to the
// cl100k_base encoding when the model is unknown.
func NewCounter(model string) (*Counter, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("loading token encoding: %w", err)
		}
	}
	return &Counter{enc: enc}, nil
}

// Count returns the number of tokens in the text.
func (c *Counter) Count(text string) int {
	if text == "" {
		return 0
	}
	return len(c.enc.Encode(text, nil, nil))
}

// CountAll sums the token counts of several texts.
func (c *Counter) CountAll(texts ...string) int {
	total := 0
	for _, t := range texts {
		total += c.Count(t)
	}
	return total
}
