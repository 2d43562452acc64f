package metadata

import (
	"sort"
	"strings"
	"unicode"
)

// Default topic extraction settings.
const (
	DefaultMaxTopics      = 5
	DefaultMinTopicLength = 3
)

// DefaultStopwords are common English words that never become topics.
var DefaultStopwords = []string{
	"a", "about", "above", "after", "again", "against", "all", "also", "am", "an", "and", "any", "are",
	"as", "at", "be", "because", "been", "before", "being", "below", "between", "both", "but", "by",
	"can", "could", "did", "do", "does", "doing", "down", "during", "each", "few", "for", "from",
	"further", "had", "has", "have", "having", "he", "her", "here", "hers", "herself", "him", "himself",
	"his", "how", "however", "i", "if", "in", "into", "is", "it", "its", "itself", "just", "may", "me",
	"might", "more", "most", "must", "my", "myself", "no", "nor", "not", "now", "of", "off", "on",
	"once", "only", "or", "other", "our", "ours", "ourselves", "out", "over", "own", "same", "shall",
	"she", "should", "so", "some", "such", "than", "that", "the", "their", "theirs", "them",
	"themselves", "then", "there", "these", "they", "this", "those", "through", "to", "too", "under",
	"until", "up", "use", "used", "using", "very", "was", "we", "were", "what", "when", "where",
	"which", "while", "who", "whom", "why", "will", "with", "would", "you", "your", "yours",
	"yourself", "yourselves",
}

// Topics ranks the words of text by frequency. Ties keep first-seen order.
// Tokens shorter than minLength or present in stopwords are ignored.
func Topics(text string, maxTopics, minLength int, stopwords map[string]struct{}) []string {
	if maxTopics <= 0 {
		return []string{}
	}

	type entry struct {
		word  string
		count int
		first int
	}

	entries := make(map[string]*entry)
	order := 0
	for _, token := range strings.Fields(stripPunctuation(strings.ToLower(text))) {
		if len([]rune(token)) < minLength {
			continue
		}
		if _, stop := stopwords[token]; stop {
			continue
		}
		if e, ok := entries[token]; ok {
			e.count++
			continue
		}
		entries[token] = &entry{word: token, count: 1, first: order}
		order++
	}

	ranked := make([]*entry, 0, len(entries))
	for _, e := range entries {
		ranked = append(ranked, e)
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].first < ranked[j].first
	})

	if len(ranked) > maxTopics {
		ranked = ranked[:maxTopics]
	}
	topics := make([]string, 0, len(ranked))
	for _, e := range ranked {
		topics = append(topics, e.word)
	}
	return topics
}

// stripPunctuation removes every rune that is not a letter, digit,
// underscore or whitespace.
func stripPunctuation(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) || r == '_' {
			return r
		}
		return -1
	}, s)
}

// StopwordSet builds a lookup set from a word list.
func StopwordSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[strings.ToLower(strings.TrimSpace(w))] = struct{}{}
	}
	return set
}
