// SPDX-License-Identifier: GPL-2.0-or-later
// Copyright (c) 2025 Kaz Walker, Thermoquad

package cmd

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAskYesNo(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"\n", true},
		{"y\n", true},
		{"YES\n", true},
		{"  yes  \n", true},
		{"n\n", false},
		{"no\n", false},
		{"maybe\n", false},
		{"y", true},
	}
	for _, tt := range tests {
		var out bytes.Buffer
		got, err := askYesNo(strings.NewReader(tt.input), &out, "Create table?")
		require.NoError(t, err, tt.input)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
		assert.Equal(t, "Create table? (Y/n): ", out.String())
	}
}

func TestAskYesNoEOF(t *testing.T) {
	var out bytes.Buffer
	_, err := askYesNo(strings.NewReader(""), &out, "Create table?")
	assert.Error(t, err)
}

func TestGetPasswordFromEnv(t *testing.T) {
	t.Setenv("WXLISTENER_TEST_PASSWORD", "hunter2")
	pw, err := GetPassword("Password: ", "WXLISTENER_TEST_PASSWORD")
	require.NoError(t, err)
	assert.Equal(t, "hunter2", pw)
}

func TestSinkSetEmpty(t *testing.T) {
	assert.True(t, sinkSet{}.empty())
}
