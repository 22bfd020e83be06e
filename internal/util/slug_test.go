package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{"My Book: Äß • Vol. 1", "my-book-a-vol-1"},
		{"  Hello,   World!  ", "hello-world"},
		{"Æon", "on"},
		{"chapter001", "chapter001"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, Slugify(tt.in), tt.in)
	}
}

func TestManifestID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "chapter001", ManifestID("chapter001"))
	assert.Equal(t, "x3-things", ManifestID("3 Things"))
	assert.Equal(t, "item", ManifestID("???"))
}
