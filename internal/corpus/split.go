package corpus

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// DefaultCeiling is the maximum chunk length in characters.
const DefaultCeiling = 1000

// Split breaks text into pieces of at most ceiling characters. Sentences end
// at '.', '?', '!' or a newline followed by whitespace and are packed
// greedily, joined by a single space; a sentence longer than the ceiling is
// cut by character count.
func Split(text string, ceiling int) []string {
	if ceiling <= 0 {
		ceiling = DefaultCeiling
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= ceiling {
		return []string{text}
	}

	var (
		chunks     []string
		current    strings.Builder
		currentLen int
	)
	flush := func() {
		if s := strings.TrimSpace(current.String()); s != "" {
			chunks = append(chunks, s)
		}
		current.Reset()
		currentLen = 0
	}

	for _, sent := range sentences(text) {
		n := utf8.RuneCountInString(sent)
		if currentLen+n+1 <= ceiling {
			if currentLen > 0 {
				current.WriteByte(' ')
				currentLen++
			}
			current.WriteString(sent)
			currentLen += n
			continue
		}
		flush()
		if n > ceiling {
			chunks = append(chunks, hardSplit(sent, ceiling)...)
			continue
		}
		current.WriteString(sent)
		currentLen = n
	}
	flush()
	return chunks
}

func isTerminator(r rune) bool {
	return r == '.' || r == '?' || r == '!' || r == '\n'
}

// sentences cuts after a terminator that is followed by whitespace,
// dropping that whitespace.
func sentences(text string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if i < start || !isTerminator(r) {
			continue
		}
		end := i + utf8.RuneLen(r)
		next := end
		for next < len(text) {
			nr, size := utf8.DecodeRuneInString(text[next:])
			if !unicode.IsSpace(nr) {
				break
			}
			next += size
		}
		if next == end {
			continue
		}
		if s := text[start:end]; s != "" {
			out = append(out, s)
		}
		start = next
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}

func hardSplit(s string, ceiling int) []string {
	runes := []rune(s)
	var out []string
	for i := 0; i < len(runes); i += ceiling {
		end := min(i+ceiling, len(runes))
		if part := strings.TrimSpace(string(runes[i:end])); part != "" {
			out = append(out, part)
		}
	}
	return out
}
