// Package slug builds URL- and identifier-safe slugs from display names.
package slug

import (
	"fmt"
	"hash/fnv"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// Make lowercases s and replaces every run of characters that are neither
// letters nor digits with a single separator. Accented Latin letters are
// folded to their ASCII base; letters of other scripts are kept. Leading and
// trailing separators are dropped.
//
// A non-blank name without any letter or digit gets "op", the separator and
// a hash of the name, so distinct names never share an empty slug.
func Make(s, separator string) string {
	var b strings.Builder
	pending := false
	lastASCII := false
	for _, r := range strings.ToLower(norm.NFC.String(s)) {
		if r > unicode.MaxASCII {
			r = asciiBase(r)
		}
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if pending && b.Len() > 0 {
				b.WriteString(separator)
			}
			pending = false
			lastASCII = r <= unicode.MaxASCII
			b.WriteRune(r)
		case unicode.IsMark(r):
			// vowel signs and other marks belong to the preceding letter
			if !pending && b.Len() > 0 && !lastASCII {
				b.WriteRune(r)
			}
		default:
			pending = true
		}
	}
	if b.Len() == 0 && strings.TrimSpace(s) != "" {
		h := fnv.New32a()
		h.Write([]byte(s))
		return fmt.Sprintf("op%s%08x", separator, h.Sum32())
	}
	return b.String()
}

// asciiBase returns the ASCII letter r decomposes to, or r itself.
func asciiBase(r rune) rune {
	base, _ := utf8.DecodeRuneInString(norm.NFD.String(string(r)))
	if base <= unicode.MaxASCII && (unicode.IsLetter(base) || unicode.IsDigit(base)) {
		return base
	}
	return r
}
