package prompt

// DefaultWindowOverlap is the number of characters each window extends past its section.
const DefaultWindowOverlap = 2000

// WindowCount is how many sections a document is split into for requestedCount questions.
func WindowCount(requestedCount int) int {
	if w := requestedCount / 5; w > 1 {
		return w
	}
	return 1
}

// SliceContent returns the window of content that batch batchIndex works on.
// Windows are len/WindowCount(requestedCount) characters plus overlap; indices past
// the last window wrap around. Content no longer than the overlap is returned whole.
func SliceContent(content string, requestedCount, batchIndex, overlap int) string {
	runes := []rune(content)
	total := len(runes)
	if overlap < 0 {
		overlap = 0
	}
	if total == 0 || total <= overlap {
		return content
	}

	windows := WindowCount(requestedCount)
	if windows == 1 {
		return content
	}
	sectionSize := total / windows
	if sectionSize == 0 {
		return content
	}

	if batchIndex < 0 {
		batchIndex = 0
	}
	start := (batchIndex % windows) * sectionSize
	end := start + sectionSize + overlap
	if end > total {
		end = total
	}
	return string(runes[start:end])
}
