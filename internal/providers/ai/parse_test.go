package ai

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sample struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

func TestDecodeObjectPlain(t *testing.T) {
	var got sample
	err := DecodeObject(`{"name":"a","items":["x"]}`, &got)
	require.NoError(t, err)
	assert.Equal(t, "a", got.Name)
	assert.Equal(t, []string{"x"}, got.Items)
}

func TestDecodeObjectFencedBlock(t *testing.T) {
	text := "```json\n{\"name\":\"b\",\"items\":[]}\n```"
	var got sample
	require.NoError(t, DecodeObject(text, &got))
	assert.Equal(t, "b", got.Name)
}

func TestDecodeObjectAcceptsSingleElementArray(t *testing.T) {
	var got sample
	require.NoError(t, DecodeObject(`[{"name":"c"}]`, &got))
	assert.Equal(t, "c", got.Name)
}

func TestDecodeObjectRejectsNonJSON(t *testing.T) {
	var got sample
	err := DecodeObject("the model decided to chat instead", &got)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestDecodeObjectRejectsScalar(t *testing.T) {
	var got sample
	err := DecodeObject(`"just a string"`, &got)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
}

func TestDecodeArray(t *testing.T) {
	var got []sample
	require.NoError(t, DecodeArray(`[{"name":"a"},{"name":"b"}]`, &got))
	assert.Len(t, got, 2)
}

func TestDecodeArrayRejectsObject(t *testing.T) {
	var got []sample
	err := DecodeArray(`{"name":"a"}`, &got)
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
}
