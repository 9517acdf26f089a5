package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestChunk_SymbolName_ReturnsLastPathElement(t *testing.T) {
	c := &Chunk{SymbolPath: []string{"pkg", "Widget", "Render"}}
	assert.Equal(t, "Render", c.SymbolName())
}

func TestChunk_SymbolName_EmptyWhenUnset(t *testing.T) {
	c := &Chunk{}
	assert.Equal(t, "", c.SymbolName())
}
