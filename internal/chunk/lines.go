package chunk

// line is a single line of a file without its terminator.
type line struct {
	text   string
	offset int // byte offset of the first character
	number int // 1-indexed
}

// splitLines splits text on "\n", "\r\n" and "\r".
// A trailing terminator does not produce an empty final line.
func splitLines(text string) []line {
	var lines []line
	start := 0
	for i := 0; i < len(text); i++ {
		switch text[i] {
		case '\n':
			lines = append(lines, line{text: text[start:i], offset: start, number: len(lines) + 1})
			start = i + 1
		case '\r':
			lines = append(lines, line{text: text[start:i], offset: start, number: len(lines) + 1})
			if i+1 < len(text) && text[i+1] == '\n' {
				i++
			}
			start = i + 1
		}
	}
	if start < len(text) {
		lines = append(lines, line{text: text[start:], offset: start, number: len(lines) + 1})
	}
	return lines
}
