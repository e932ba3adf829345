package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSearchFilterEmpty(t *testing.T) {
	assert.True(t, SearchFilter{}.Empty())
	assert.False(t, SearchFilter{DocumentIDs: []string{"d1"}}.Empty())
	assert.False(t, SearchFilter{Tags: []string{"physics"}}.Empty())
}
