package utils

// SplitText chunks a knowledge-base article for embedding: windows of
// roughly chunkSize runes with the tail of each window repeated at the head
// of the next, so an answer that straddles a boundary still lands in one
// retrievable chunk.
func SplitText(text string, chunkSize int, overlap int) []string {
	if len(text) <= chunkSize {
		return []string{text}
	}

	var chunks []string
	runes := []rune(text)
	totalLen := len(runes)

	step := chunkSize - overlap
	if step <= 0 {
		// an overlap at or above the window size would never advance
		step = chunkSize
	}

	for i := 0; i < totalLen; i += step {
		end := i + chunkSize
		if end > totalLen {
			end = totalLen
		}

		chunks = append(chunks, string(runes[i:end]))

		if end == totalLen {
			break
		}
	}

	return chunks
}
