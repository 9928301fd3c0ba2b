// Package tokenize turns free text into keyword tokens.
//
// Text is split on every rune that is neither a letter nor a digit and
// lowercased. Duplicates are removed while keeping first-seen order.
// A Filter decides which tokens survive; each knowledge domain picks its own.
package tokenize

import (
	"strings"
	"unicode"
)

// Filter reports whether a token should be kept.
type Filter func(token string) bool

// Tokens splits text into unique lowercase tokens accepted by keep.
// A nil filter keeps everything.
func Tokens(text string, keep Filter) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	if len(fields) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		if keep != nil && !keep(f) {
			continue
		}
		out = append(out, f)
	}
	return out
}

// MinLength drops tokens shorter than n runes.
func MinLength(n int) Filter {
	return func(token string) bool {
		return len([]rune(token)) >= n
	}
}

// StopWords drops the given words. Comparison is on lowercase forms.
func StopWords(words ...string) Filter {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(w)] = struct{}{}
	}
	return func(token string) bool {
		_, stop := set[token]
		return !stop
	}
}

// All combines filters; a token must pass each of them.
func All(filters ...Filter) Filter {
	return func(token string) bool {
		for _, f := range filters {
			if f != nil && !f(token) {
				return false
			}
		}
		return true
	}
}

// EnglishStopWords is the default list used by the pattern and policy domains.
var EnglishStopWords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by", "can", "do",
	"for", "from", "has", "have", "how", "i", "if", "in", "into", "is",
	"it", "its", "me", "my", "need", "not", "of", "on", "or", "our",
	"should", "so", "that", "the", "their", "them", "then", "there",
	"these", "they", "this", "to", "up", "use", "want", "was", "we",
	"what", "when", "where", "which", "who", "why", "will", "with",
	"would", "you", "your",
}

// Overlap scores text against query tokens: the fraction of query tokens
// present among the text's tokens. Text is tokenized without a filter.
func Overlap(query []string, text string) float64 {
	if len(query) == 0 {
		return 0
	}
	have := make(map[string]struct{})
	for _, t := range Tokens(text, nil) {
		have[t] = struct{}{}
	}
	matched := 0
	for _, q := range query {
		if _, ok := have[q]; ok {
			matched++
		}
	}
	return float64(matched) / float64(len(query))
}
