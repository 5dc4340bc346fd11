package utils

// SplitText chunks long text into pieces of roughly chunkSize runes with
// `overlap` runes repeated at each boundary, so embeddings keep context
// across the cut. Character-based on purpose: chunk limits here protect the
// embedding window, not token budgets.
func SplitText(text string, chunkSize int, overlap int) []string {
	runes := []rune(text)
	if len(runes) <= chunkSize {
		return []string{text}
	}

	step := chunkSize - overlap
	if step <= 0 {
		step = chunkSize
	}

	var chunks []string
	for i := 0; i < len(runes); i += step {
		end := i + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		chunks = append(chunks, string(runes[i:end]))
		if end == len(runes) {
			break
		}
	}
	return chunks
}
