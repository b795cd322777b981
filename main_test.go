package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSlots(t *testing.T) {
	require.Equal(t, []string{"PG", "SG", "UTIL"}, parseSlots("PG, SG,,UTIL "))
	require.Empty(t, parseSlots(""))
}
