package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestShortID(t *testing.T) {
	assert.Equal(t, "8d9e2a10", shortID("8d9e2a10-6f3b-4c7e-9a1d-2b5c8e0f4a61"))
	assert.Equal(t, "run-1", shortID("run-1"))
	assert.Equal(t, "12345678", shortID("12345678"))
	assert.Equal(t, "", shortID(""))
}
