package fun

import (
	"regexp"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	lower     = cases.Lower(language.Und)
	nyPattern = regexp.MustCompile(`n([aeiou])`)
	faces     = []string{"uwu", "owo", ">w<", "^w^"}
)

// Uwuify rewrites text in the uwu register. face picks the trailing face.
func Uwuify(text string, face int) string {
	text = strings.TrimSpace(lower.String(text))
	if text == "" {
		return ""
	}
	text = strings.NewReplacer("r", "w", "l", "w", "th", "d", "ove", "uv").Replace(text)
	text = nyPattern.ReplaceAllString(text, "ny$1")
	text = strings.ReplaceAll(text, "!", "!!")
	if face < 0 {
		face = -face
	}
	return text + " " + faces[face%len(faces)]
}
