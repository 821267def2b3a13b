// Package translate provides dictionary-based Polish to English translation
// of catalog names, and URL slugs.
package translate

import (
	"strings"
	"unicode"
)

// Translator translates names phrase by phrase, preferring the longest known
// phrase at each position and falling back to single words. Unknown words
// are kept as written; input with no known words is returned unchanged.
type Translator struct {
	terms    map[string]string
	maxWords int
}

// New returns a Translator over the built-in automotive dictionary merged
// with extra (extra wins). Keys are matched case-insensitively.
func New(extra map[string]string) *Translator {
	t := &Translator{terms: make(map[string]string, len(dictionary)+len(extra)), maxWords: 1}
	add := func(k, v string) {
		k = strings.Join(strings.Fields(strings.ToLower(k)), " ")
		if k == "" || v == "" {
			return
		}
		t.terms[k] = v
		if n := strings.Count(k, " ") + 1; n > t.maxWords {
			t.maxWords = n
		}
	}
	for k, v := range dictionary {
		add(k, v)
	}
	for k, v := range extra {
		add(k, v)
	}
	return t
}

// Translate returns the translation of s, or s when nothing in it is known.
func (t *Translator) Translate(s string) string {
	tokens := strings.Fields(s)
	if len(tokens) == 0 {
		return s
	}

	keys := make([]string, len(tokens))
	for i, tok := range tokens {
		keys[i] = strings.ToLower(strings.TrimFunc(tok, unicode.IsPunct))
	}

	out := make([]string, 0, len(tokens))
	translated := false
	for i := 0; i < len(tokens); {
		n, v := t.longestMatch(keys[i:])
		if n == 0 {
			out = append(out, tokens[i])
			i++
			continue
		}
		// Keep trailing punctuation such as "Filtry," or "(zestaw)".
		last := tokens[i+n-1]
		suffix := last[len(strings.TrimRightFunc(last, unicode.IsPunct)):]
		out = append(out, v+suffix)
		translated = true
		i += n
	}
	if !translated {
		return s
	}
	return capitalizeLike(tokens[0], strings.Join(out, " "))
}

func (t *Translator) longestMatch(keys []string) (int, string) {
	limit := t.maxWords
	if limit > len(keys) {
		limit = len(keys)
	}
	for n := limit; n > 0; n-- {
		if v, ok := t.terms[strings.Join(keys[:n], " ")]; ok {
			return n, v
		}
	}
	return 0, ""
}

// capitalizeLike upper-cases the first letter of out when src starts with
// an upper-case letter.
func capitalizeLike(src, out string) string {
	first := []rune(src)
	if len(first) == 0 || !unicode.IsUpper(first[0]) {
		return out
	}
	r := []rune(out)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}
