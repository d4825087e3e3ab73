package util

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"
)

var (
	encOnce sync.Once
	enc     *tiktoken.Tiktoken
	encErr  error
)

// CountTokens counts tokens with the cl100k_base encoding, matching the
// encoding used when chunk token totals were computed at ingestion.
// If the encoding cannot be loaded, falls back to a whitespace word count
// so the strategy selector still gets a usable signal.
func CountTokens(text string) int {
	encOnce.Do(func() {
		enc, encErr = tiktoken.GetEncoding("cl100k_base")
	})
	if encErr != nil || enc == nil {
		return len(strings.Fields(text))
	}
	return len(enc.Encode(text, nil, nil))
}
