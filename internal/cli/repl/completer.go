package repl

import (
	"strings"

	"github.com/xrash/smetrics"
)

// Keywords lists every REPL keyword.
var Keywords = []string{
	"SET", "CHANGE", "SETMULT", "CHANGEMULT",
	"GET", "GETALL", "DELETE", "DELMULT", "DELETEALL",
	"DUMP", "LOAD", "SHARDS", "STATUS",
	"HELP", "EXIT", "QUIT",
}

// minSimilarity is the lowest Jaro-Winkler score Suggest accepts.
const minSimilarity = 0.8

// Completer provides keyword completion and suggestions for the REPL.
type Completer struct {
	keywords []string
}

// NewCompleter creates a new Completer.
func NewCompleter() *Completer {
	return &Completer{keywords: Keywords}
}

// Complete returns the keywords starting with prefix, case-insensitively.
func (c *Completer) Complete(prefix string) []string {
	prefix = strings.ToUpper(prefix)
	var out []string
	for _, kw := range c.keywords {
		if strings.HasPrefix(kw, prefix) {
			out = append(out, kw)
		}
	}
	return out
}

// Suggest returns the keyword closest to word, or "" when nothing is
// similar enough.
func (c *Completer) Suggest(word string) string {
	word = strings.ToUpper(word)
	if word == "" {
		return ""
	}

	best, bestScore := "", minSimilarity
	for _, kw := range c.keywords {
		score := smetrics.JaroWinkler(word, kw, 0.7, 4)
		if score > bestScore {
			best, bestScore = kw, score
		}
	}
	return best
}
