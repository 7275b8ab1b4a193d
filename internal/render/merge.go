package render

import "strings"

// Substitute replaces every known [[MARKER]] in text with its value from
// placeholders. Unknown markers are left exactly as written — a blank in a
// legal document must mean "the data said blank", never "a key was missing",
// so missing-data bugs stay visible in the output.
func Substitute(text string, placeholders map[string]string) string {
	var out strings.Builder
	out.Grow(len(text))

	i := 0
	for i < len(text) {
		open := strings.Index(text[i:], "[[")
		if open < 0 {
			out.WriteString(text[i:])
			break
		}
		out.WriteString(text[i : i+open])
		i += open

		close := strings.Index(text[i+2:], markerClose)
		if close < 0 {
			out.WriteString(text[i:])
			break
		}
		name := text[i+2 : i+2+close]
		if value, known := placeholders[name]; known {
			out.WriteString(value)
		} else {
			out.WriteString(text[i : i+2+close+len(markerClose)])
		}
		i += 2 + close + len(markerClose)
	}
	return out.String()
}
