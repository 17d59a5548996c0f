package follows

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNextOffset(t *testing.T) {
	tests := []struct {
		name                            string
		offset, returned, total, expect int
	}{
		{"full page", 0, 100, 250, 100},
		{"short page", 200, 50, 250, 250},
		{"inconsistent short page", 0, 3, 5, 3},
		{"empty page jumps past total", 3, 0, 5, 8},
		{"empty first page", 0, 0, 5, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expect, NextOffset(tt.offset, tt.returned, tt.total))
		})
	}
}

func TestDedupe(t *testing.T) {
	in := []Entity{
		{ID: "1", DisplayName: "a"},
		{ID: "2", DisplayName: "b"},
		{ID: "1", DisplayName: "a again"},
		{ID: "3", DisplayName: "c"},
		{ID: "2", DisplayName: "b again"},
	}

	out, dropped := Dedupe(in)
	assert.Equal(t, 2, dropped)
	assert.Equal(t, []Entity{
		{ID: "1", DisplayName: "a"},
		{ID: "2", DisplayName: "b"},
		{ID: "3", DisplayName: "c"},
	}, out)

	empty, dropped := Dedupe(nil)
	assert.Empty(t, empty)
	assert.Zero(t, dropped)
}
