package main

import (
	"bytes"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLineEditorNonInteractive(t *testing.T) {
	var out bytes.Buffer
	editor := NewLineEditor(strings.NewReader("players\n  volume 1 30  \n"), &out, "")
	defer editor.Close()

	assert.False(t, editor.IsInteractive())

	line, err := editor.GetLine("one> ")
	require.NoError(t, err)
	assert.Equal(t, "players", line)

	line, err = editor.GetLine("two> ")
	require.NoError(t, err)
	assert.Equal(t, "  volume 1 30  ", line)

	_, err = editor.GetLine("three> ")
	assert.Equal(t, io.EOF, err)

	assert.Equal(t, "one> two> three> ", out.String())
}

func TestLineEditorEmptyInput(t *testing.T) {
	editor := NewLineEditor(strings.NewReader(""), io.Discard, "")
	_, err := editor.GetLine("> ")
	assert.Equal(t, io.EOF, err)
}

func TestLineEditorCloseIdempotent(t *testing.T) {
	editor := NewLineEditor(strings.NewReader(""), io.Discard, "")
	editor.Close()
	editor.Close()
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, isTerminal(strings.NewReader("")))

	t.Setenv("INSIDE_EMACS", "29.1,comint")
	assert.False(t, isTerminal(strings.NewReader("")))
}
