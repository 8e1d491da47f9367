package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/KilimcininKorOglu/tagstore/internal/tags"
)

// runCLI runs the tool and returns its exit code and output.
func runCLI(t *testing.T, args ...string) (int, string, string) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"tagstore"}, args...), &stdout, &stderr)
	return code, stdout.String(), stderr.String()
}

func tempDB(t *testing.T) string {
	return filepath.Join(t.TempDir(), "tags.db")
}

func TestRun_Help(t *testing.T) {
	for _, args := range [][]string{nil, {"help"}, {"--help"}} {
		code, out, _ := runCLI(t, args...)
		assert.Equal(t, 0, code, "args %v", args)
		assert.Contains(t, out, "tagstore")
	}
}

func TestRun_UnknownCommand(t *testing.T) {
	code, _, errOut := runCLI(t, "unknown")
	assert.Equal(t, 1, code)
	assert.Contains(t, errOut, "unknown command")
}

func TestRun_Version(t *testing.T) {
	code, out, _ := runCLI(t, "version")
	require.Equal(t, 0, code)
	assert.Contains(t, out, "tagstore version "+version)

	code, out, _ = runCLI(t, "version", "--short")
	require.Equal(t, 0, code)
	assert.Equal(t, version+"\n", out)
}

func TestInitStatsVerify(t *testing.T) {
	db := tempDB(t)

	code, out, errOut := runCLI(t, "--db", db, "init")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Initialized "+db)

	code, out, errOut = runCLI(t, "--db", db, "stats")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Chunk size:  4.0 KiB")
	assert.Contains(t, out, "Tags:        0")

	code, out, errOut = runCLI(t, "--db", db, "verify")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "OK:")
}

func TestReadOnlyCommandsNeedDatabase(t *testing.T) {
	db := tempDB(t)

	for _, cmd := range []string{"stats", "verify"} {
		code, _, _ := runCLI(t, "--db", db, cmd)
		assert.Equal(t, 1, code, cmd)
	}
	_, err := os.Stat(db)
	assert.True(t, os.IsNotExist(err))
}

func TestTagsCommands(t *testing.T) {
	db := tempDB(t)

	code, _, errOut := runCLI(t, "--db", db, "tags", "set", "--node", "0x10", "b=0102", "a=ff")
	require.Equal(t, 0, code, errOut)

	code, out, errOut := runCLI(t, "--db", db, "tags", "get", "--node", "16")
	require.Equal(t, 0, code, errOut)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.ElementsMatch(t, []string{"b\t0102", "a\tff"}, lines)

	code, out, errOut = runCLI(t, "--db", db, "tags", "get", "--node", "16", "--id", "a")
	require.Equal(t, 0, code, errOut)
	assert.Equal(t, "a\tff\n", out)

	code, _, _ = runCLI(t, "--db", db, "tags", "get", "--node", "17", "--id", "a")
	assert.Equal(t, 1, code)

	code, out, errOut = runCLI(t, "--db", db, "tags", "ids")
	require.Equal(t, 0, code, errOut)
	assert.ElementsMatch(t, []string{"a", "b"}, strings.Fields(out))

	code, out, errOut = runCLI(t, "--db", db, "stats")
	require.Equal(t, 0, code, errOut)
	assert.Contains(t, out, "Tags:        2")

	code, _, errOut = runCLI(t, "--db", db, "tags", "clear", "--node", "16")
	require.Equal(t, 0, code, errOut)

	code, out, errOut = runCLI(t, "--db", db, "tags", "get", "--node", "16")
	require.Equal(t, 0, code, errOut)
	assert.Empty(t, out)

	code, _, errOut = runCLI(t, "--db", db, "verify")
	assert.Equal(t, 0, code, errOut)
}

func TestTagsSetRejectsBadInput(t *testing.T) {
	db := tempDB(t)

	tests := []struct {
		name string
		args []string
	}{
		{"missing node", []string{"tags", "set", "a=00"}},
		{"bad node", []string{"tags", "set", "--node", "x", "a=00"}},
		{"null node", []string{"tags", "set", "--node", "0", "a=00"}},
		{"null hex node", []string{"tags", "set", "--node", "0x0", "a=00"}},
		{"no separator", []string{"tags", "set", "--node", "1", "a"}},
		{"empty id", []string{"tags", "set", "--node", "1", "=00"}},
		{"bad hex", []string{"tags", "set", "--node", "1", "a=zz"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			code, _, _ := runCLI(t, append([]string{"--db", db}, tt.args...)...)
			assert.Equal(t, 1, code)
		})
	}
}

func TestParseNode(t *testing.T) {
	n, err := parseNode("0x10")
	require.NoError(t, err)
	assert.EqualValues(t, 16, n)

	_, err = parseNode("0")
	assert.ErrorIs(t, err, tags.ErrNullNode)
}

func TestParseTagArg(t *testing.T) {
	tag, err := parseTagArg("typeinfo=0a0b")
	require.NoError(t, err)
	assert.Equal(t, "typeinfo", tag.TaggerID())
	assert.Equal(t, []byte{0x0a, 0x0b}, tag.Bytes(0, -1))

	tag, err = parseTagArg("empty=")
	require.NoError(t, err)
	assert.Equal(t, 0, tag.DataLen())
}
