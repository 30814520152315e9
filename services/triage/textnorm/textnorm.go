// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package textnorm provides text normalization for cache keys, keyword
// extraction, and vagueness detection. All functions are pure and total.
package textnorm

import (
	"regexp"
	"strings"
)

// MinKeywordLength is the default minimum token length for keywords.
const MinKeywordLength = 3

// minMeaningfulLength is the trimmed length below which a description is
// always considered vague.
const minMeaningfulLength = 10

// whitespaceRegex matches runs of whitespace for collapsing.
var whitespaceRegex = regexp.MustCompile(`\s+`)

// wordRegex matches word tokens for keyword extraction.
var wordRegex = regexp.MustCompile(`\b\w+\b`)

// vaguePatterns match descriptions that carry no actionable content.
var vaguePatterns = []*regexp.Regexp{
	regexp.MustCompile(`^(thing|stuff|fix|improve|update)s?\s*$`),
	regexp.MustCompile(`^(untitled|tbd|todo)$`),
	regexp.MustCompile(`^\s*$`),
	regexp.MustCompile(`^fix stuff$`),
}

// stopWords are dropped during keyword extraction.
var stopWords = map[string]struct{}{
	"the": {}, "is": {}, "at": {}, "which": {}, "on": {}, "a": {}, "an": {},
	"and": {}, "or": {}, "but": {}, "in": {}, "with": {}, "to": {}, "for": {},
	"of": {}, "as": {}, "by": {}, "this": {}, "that": {}, "from": {}, "be": {},
	"are": {}, "was": {}, "were": {}, "been": {}, "have": {}, "has": {},
	"had": {}, "do": {}, "does": {}, "did": {}, "will": {}, "would": {},
	"could": {}, "should": {},
}

// Normalize lowercases text, collapses whitespace runs to single spaces,
// and trims. Deterministic and total: empty input yields empty output.
//
// Cache keys for embeddings are derived from normalized text, so two
// descriptions differing only in case or whitespace share a cache entry.
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	text = strings.ToLower(text)
	text = whitespaceRegex.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// ExtractKeywords tokenizes on word boundaries and drops tokens shorter
// than minLength or in the stop-word set. Pass 0 for the default minimum.
//
// The returned slice preserves first-occurrence order and may contain
// duplicates; use KeywordSet when set semantics are needed.
func ExtractKeywords(text string, minLength int) []string {
	if text == "" {
		return nil
	}
	if minLength <= 0 {
		minLength = MinKeywordLength
	}

	words := wordRegex.FindAllString(Normalize(text), -1)
	keywords := make([]string, 0, len(words))
	for _, word := range words {
		if len(word) < minLength {
			continue
		}
		if _, stop := stopWords[word]; stop {
			continue
		}
		keywords = append(keywords, word)
	}
	return keywords
}

// KeywordSet returns the extracted keywords as a set.
func KeywordSet(text string, minLength int) map[string]struct{} {
	keywords := ExtractKeywords(text, minLength)
	set := make(map[string]struct{}, len(keywords))
	for _, kw := range keywords {
		set[kw] = struct{}{}
	}
	return set
}

// JaccardOverlap returns the Jaccard index of the two keyword sets:
// |a ∩ b| / |a ∪ b|. Returns 0 when either set is empty.
func JaccardOverlap(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0.0
	}

	intersection := 0
	for kw := range a {
		if _, ok := b[kw]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection
	return float64(intersection) / float64(union)
}

// IsVague reports whether a description carries too little content to
// evaluate: trimmed length under 10 characters, all whitespace, or an
// exact match of a known placeholder pattern ("untitled", "tbd",
// "fix stuff", ...).
func IsVague(text string) bool {
	if len(strings.TrimSpace(text)) < minMeaningfulLength {
		return true
	}

	normalized := Normalize(text)
	for _, pattern := range vaguePatterns {
		if pattern.MatchString(normalized) {
			return true
		}
	}
	return false
}
