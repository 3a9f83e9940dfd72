package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWindowCount(t *testing.T) {
	assert.Equal(t, 1, WindowCount(0))
	assert.Equal(t, 1, WindowCount(5))
	assert.Equal(t, 1, WindowCount(9))
	assert.Equal(t, 2, WindowCount(10))
	assert.Equal(t, 40, WindowCount(200))
}

func TestSliceContent_ShortContentIsWhole(t *testing.T) {
	content := "short text"
	for i := 0; i < 5; i++ {
		assert.Equal(t, content, SliceContent(content, 100, i, DefaultWindowOverlap))
	}
	assert.Equal(t, "", SliceContent("", 100, 0, DefaultWindowOverlap))
}

func TestSliceContent_Windows(t *testing.T) {
	content := strings.Repeat("a", 100) + strings.Repeat("b", 100) + strings.Repeat("c", 100) + strings.Repeat("d", 100)

	// 20 questions -> 4 windows of 100 chars plus 10 overlap.
	first := SliceContent(content, 20, 0, 10)
	assert.Equal(t, strings.Repeat("a", 100)+strings.Repeat("b", 10), first)

	second := SliceContent(content, 20, 1, 10)
	assert.Equal(t, strings.Repeat("b", 100)+strings.Repeat("c", 10), second)

	last := SliceContent(content, 20, 3, 10)
	assert.Equal(t, strings.Repeat("d", 100), last)

	wrapped := SliceContent(content, 20, 4, 10)
	assert.Equal(t, first, wrapped)
}

func TestSliceContent_SingleWindow(t *testing.T) {
	content := strings.Repeat("x", 500)
	assert.Equal(t, content, SliceContent(content, 5, 3, 10))
}

func TestSliceContent_RuneSafe(t *testing.T) {
	content := strings.Repeat("é", 40)
	got := SliceContent(content, 10, 1, 0)
	assert.Equal(t, strings.Repeat("é", 20), got)
}
