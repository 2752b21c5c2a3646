package projectkey

import (
	"strconv"
	"strings"
	"time"
	"unicode"
)

// Candidates derives ranked key candidates from an organization name and an
// optional sub-unit name. Pure and deterministic; uniqueness against the
// registry is the resolver's job, not this function's.
//
// Rules: a short normalized name (<= 6 chars) is used verbatim; multi-word
// names become acronyms; single-word names become prefixes. A sub-unit
// contributes 1-3 trailing letters, with the combined length capped at
// MaxKeyLength. An empty or unusable name yields an empty list.
func Candidates(orgName, subUnitName string) []string {
	base := baseCandidates(orgName)
	if len(base) == 0 {
		return nil
	}

	suffix := subUnitLetters(subUnitName)
	if suffix == "" {
		return dedupe(base)
	}

	// Sub-unit variants rank first: they are the more specific keys.
	combined := make([]string, 0, len(base)*2)
	for _, b := range base {
		room := MaxKeyLength - len(suffix)
		if len(b) > room {
			b = b[:room]
		}
		combined = append(combined, b+suffix)
	}
	combined = append(combined, base...)
	return dedupe(combined)
}

func baseCandidates(name string) []string {
	words := splitWords(name)
	if len(words) == 0 {
		return nil
	}

	norm := strings.ToUpper(strings.Join(words, ""))
	if len(norm) < MinKeyLength {
		return nil
	}
	if len(norm) <= 6 {
		return []string{norm}
	}

	if len(words) > 1 {
		var acr strings.Builder
		for _, w := range words {
			acr.WriteByte(strings.ToUpper(w)[0])
		}
		acronym := acr.String()
		if len(acronym) > 6 {
			acronym = acronym[:6]
		}
		out := []string{}
		if len(acronym) >= MinKeyLength {
			out = append(out, acronym)
		}
		if len(acronym) > 4 {
			out = append(out, acronym[:4])
		}
		out = append(out, norm[:4])
		return out
	}

	// Single long word: prefixes, preferred length first.
	return []string{norm[:4], norm[:5], norm[:3]}
}

// subUnitLetters derives up to 3 letters from a sub-unit name: acronym of
// its words, or a prefix when it is a single word.
func subUnitLetters(name string) string {
	words := splitWords(name)
	if len(words) == 0 {
		return ""
	}
	if len(words) == 1 {
		w := strings.ToUpper(words[0])
		if len(w) > 3 {
			w = w[:3]
		}
		return w
	}
	var b strings.Builder
	for _, w := range words {
		if b.Len() == 3 {
			break
		}
		b.WriteByte(strings.ToUpper(w)[0])
	}
	return b.String()
}

// splitWords breaks free text into words on whitespace, punctuation and
// lower-to-upper case boundaries, keeping ASCII letters and digits only.
func splitWords(s string) []string {
	var words []string
	var cur strings.Builder
	var prev rune

	flush := func() {
		if cur.Len() > 0 {
			words = append(words, cur.String())
			cur.Reset()
		}
	}

	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			cur.WriteRune(r)
		case r >= 'A' && r <= 'Z':
			if unicode.IsLower(prev) {
				flush()
			}
			cur.WriteRune(r)
		default:
			flush()
		}
		prev = r
	}
	flush()

	// Words must start with a letter to contribute to a key.
	out := words[:0]
	for _, w := range words {
		if w[0] >= '0' && w[0] <= '9' {
			continue
		}
		out = append(out, w)
	}
	return out
}

// NormalizeKey uppercases caller-supplied key text and strips everything
// that cannot appear in a key. Returns "" when nothing usable remains.
func NormalizeKey(raw string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(strings.TrimSpace(raw)) {
		if (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
		if b.Len() == MaxKeyLength {
			break
		}
	}
	key := b.String()
	if len(key) < MinKeyLength || !unicode.IsLetter(rune(key[0])) {
		return ""
	}
	return key
}

// FallbackCandidate mints a timestamp-derived key for the degraded path
// where no usable name exists. Low quality on purpose; explicit key
// generation ahead of first use is always preferred.
func FallbackCandidate(now time.Time) string {
	return "K" + strings.ToUpper(strconv.FormatInt(now.Unix(), 36))
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0]
	for _, s := range in {
		if len(s) < MinKeyLength {
			continue
		}
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
