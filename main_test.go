package main

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatResult(t *testing.T) {
	assert := assert.New(t)

	out, err := formatResult(json.RawMessage(`{"projects":[]}`))
	assert.NoError(err)
	assert.Equal("{\n  \"projects\": []\n}", out)

	// An absent result field must not be treated as malformed JSON.
	out, err = formatResult(nil)
	assert.NoError(err)
	assert.Equal("{}", out)

	_, err = formatResult(json.RawMessage(`{"truncated`))
	assert.Error(err)
}
