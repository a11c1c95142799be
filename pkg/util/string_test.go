package util

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateSlug(t *testing.T) {
	tests := []struct {
		name  string
		title string
		want  string
	}{
		{"simple", "Hello World", "hello-world"},
		{"punctuation", "  Go 1.24: what's new?! ", "go-1-24-what-s-new"},
		{"han", "发布 Studio", "发布-studio"},
		{"empty", "!!!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GenerateSlug(tt.title))
		})
	}
}

func TestGenerateSlug_Truncates(t *testing.T) {
	slug := GenerateSlug(strings.Repeat("word ", 30))
	assert.LessOrEqual(t, len([]rune(slug)), 50)
	assert.False(t, strings.HasSuffix(slug, "-"))
}

func TestParseTags(t *testing.T) {
	assert.Equal(t, []string{"go", "redis", "gin"}, ParseTags(`["go", 'redis', gin]`))
	assert.Empty(t, ParseTags(""))
}

func TestNormalizeTags(t *testing.T) {
	got := NormalizeTags([]string{"Go", "web-dev", "GO", " ", "C++", "rust", "k8s"}, 4)
	assert.Equal(t, []string{"go", "webdev", "c", "rust"}, got)

	assert.Len(t, NormalizeTags([]string{"a", "b", "c"}, 0), 3)
	assert.Empty(t, NormalizeTags(nil, 4))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "héll", Truncate("héllo", 4))
	assert.Equal(t, "hi", Truncate("hi", 4))
}
