package shared

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCodeOf(t *testing.T) {
	t.Run("returns code of wrapped domain error", func(t *testing.T) {
		err := fmt.Errorf("%w: record 42", ErrNotFound)
		assert.Equal(t, "NOT_FOUND", CodeOf(err, "FALLBACK"))
	})

	t.Run("returns fallback for plain errors", func(t *testing.T) {
		assert.Equal(t, "FALLBACK", CodeOf(fmt.Errorf("boom"), "FALLBACK"))
	})
}

func TestNewPaginated(t *testing.T) {
	p := NewPaginated([]int{1, 2, 3}, 41, 2, 20)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 2, p.Page)

	empty := NewPaginated([]int{}, 0, 1, 0)
	assert.Equal(t, DefaultPageSize, empty.PageSize)
	assert.Equal(t, 0, empty.TotalPages)
}

func TestNormalizePage(t *testing.T) {
	page, size := NormalizePage(0, 500)
	assert.Equal(t, 1, page)
	assert.Equal(t, MaxPageSize, size)

	page, size = NormalizePage(3, 0)
	assert.Equal(t, 3, page)
	assert.Equal(t, DefaultPageSize, size)
}
