package table

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"header and row", "a;b;c\n1;2;3\n", "a,b,c\n1,2,3\n"},
		{"no delimiters", "abc\n", "abc\n"},
		{"empty", "", ""},
		// quoting is not honored
		{"quoted field", "a;\"x;y\"\n", "a,\"x,y\"\n"},
		{"multibyte runes kept", "Straße;Träger\n", "Straße,Träger\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeString(tt.input, ';', ','))
		})
	}
}

func TestNormalizeFile_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sites.csv")
	require.NoError(t, os.WriteFile(path, []byte("Lfd. Nr.;Name \n1;Library A\n"), 0o644))

	require.NoError(t, NormalizeFile(path, ';', ','))
	first, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "Lfd. Nr.,Name \n1,Library A\n", string(first))

	require.NoError(t, NormalizeFile(path, ';', ','))
	second, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, string(first), string(second))
}

func TestNormalizeFile_Missing(t *testing.T) {
	err := NormalizeFile(filepath.Join(t.TempDir(), "missing.csv"), ';', ',')
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestTranscode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"plain", "a;b\n1;2\n", "a,b\n1,2\n"},
		{"source delimiter inside quotes", "a;b\n\"x;y\";2\n", "a,b\nx;y,2\n"},
		{"target delimiter gets quoted", "a;b\nMain St, 5;2\n", "a,b\n\"Main St, 5\",2\n"},
		{"bom dropped", "\xEF\xBB\xBFa;b\n", "a,b\n"},
		{"ragged rows kept", "a;b\n1\n", "a,b\n1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.NoError(t, Transcode(context.Background(), strings.NewReader(tt.input), &out, ';', ','))
			assert.Equal(t, tt.want, out.String())
		})
	}
}

func TestTranscode_Malformed(t *testing.T) {
	var out bytes.Buffer
	err := Transcode(context.Background(), strings.NewReader("a;b\n\"open;2\n"), &out, ';', ',')

	var de *DecodeError
	require.ErrorAs(t, err, &de)
}

func TestTranscodeFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sites.csv")
	require.NoError(t, os.WriteFile(path, []byte("a;b\n\"x;y\";2\n"), 0o644))

	require.NoError(t, TranscodeFile(context.Background(), path, ';', ','))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "a,b\nx;y,2\n", string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestTranscodeFile_MalformedKeepsOriginal(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sites.csv")
	original := "a;b\n\"open;2\n"
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	require.Error(t, TranscodeFile(context.Background(), path, ';', ','))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestTranscodeFile_Cancelled(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sites.csv")
	original := "a;b\n" + strings.Repeat("1;2\n", 3*ContextCheckInterval)
	require.NoError(t, os.WriteFile(path, []byte(original), 0o644))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := TranscodeFile(ctx, path, ';', ',')
	require.ErrorIs(t, err, context.Canceled)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, string(data))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}
