// Package resolver extracts a ticker symbol from a free-text price question.
//
// Resolution is a heuristic, not a grammar. In order, first success wins:
//
//  1. lower-case the query and delete every occurrence of each filler phrase,
//     in list order, as plain substrings;
//  2. scan the upper-cased remainder for 2-5 letter words and return the first
//     one that is a known canonical symbol;
//  3. look up the final whitespace-separated token, trimmed of ?.,! as a
//     directory key.
package resolver

import (
	"regexp"
	"strings"

	"cryptoagent/internal/directory"
)

// fillerPhrases are removed in this order. Removal is substring based, so a
// phrase can eat into neighbouring words ("price of" also strips
// "the price of" down to "the ").
var fillerPhrases = []string{
	"what is", "what's", "whats",
	"how much is", "tell me",
	"show me", "give me",
	"current price of", "price of",
	"the price of", "the current price of",
}

var tickerRun = regexp.MustCompile(`\b[A-Z]{2,5}\b`)

const tokenCutset = "?.,!"

// Resolver resolves queries against a fixed Directory.
type Resolver struct {
	dir directory.Directory
}

// New returns a Resolver backed by dir.
func New(dir directory.Directory) *Resolver {
	return &Resolver{dir: dir}
}

// Resolve returns the best-guess symbol for query. ok is false when nothing
// matched.
func (r *Resolver) Resolve(query string) (symbol string, ok bool) {
	q := Strip(query)

	for _, run := range tickerRun.FindAllString(strings.ToUpper(q), -1) {
		if r.dir.HasSymbol(run) {
			return run, true
		}
	}

	words := strings.Fields(q)
	if len(words) == 0 {
		return "", false
	}
	last := strings.Trim(words[len(words)-1], tokenCutset)
	return r.dir.Lookup(last)
}

// Strip lower-cases query and removes the filler phrases.
func Strip(query string) string {
	q := strings.ToLower(query)
	for _, phrase := range fillerPhrases {
		q = strings.ReplaceAll(q, phrase, "")
	}
	return strings.TrimSpace(q)
}
