package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVocab() map[string]int64 {
	return map[string]int64{
		StartOfText: 10,
		EndOfText:   11,
		"a</w>":     1,
		"cat</w>":   2,
		"c":         3,
		"a":         4,
		"t</w>":     5,
		"ca":        6,
	}
}

var testMerges = []string{"c a", "ca t</w>"}

func TestClean(t *testing.T) {
	assert.Equal(t, "a&b c", Clean("  A&amp;amp;B\n\tC "))
	assert.Equal(t, "", Clean(" \n "))
}

func TestTokenizerEncode(t *testing.T) {
	tok, err := NewTokenizer(testVocab(), testMerges, 6, 0)
	require.NoError(t, err)

	ids, mask, err := tok.Encode("A  cat")
	require.NoError(t, err)

	assert.Equal(t, []int64{10, 1, 2, 11, 11, 11}, ids)
	assert.Equal(t, []int64{1, 1, 1, 1, 0, 0}, mask)
}

func TestTokenizerTruncatesKeepingEnd(t *testing.T) {
	tok, err := NewTokenizer(testVocab(), testMerges, 4, 0)
	require.NoError(t, err)

	ids, mask, err := tok.Encode("a cat a")
	require.NoError(t, err)

	assert.Equal(t, []int64{10, 1, 2, 11}, ids)
	assert.Equal(t, []int64{1, 1, 1, 1}, mask)
}

func TestTokenizerCustomPad(t *testing.T) {
	tok, err := NewTokenizer(testVocab(), testMerges, 5, 99)
	require.NoError(t, err)

	ids, _, err := tok.Encode("cat")
	require.NoError(t, err)
	assert.Equal(t, []int64{10, 2, 11, 99, 99}, ids)
}

func TestTokenizerUnknownPiece(t *testing.T) {
	tok, err := NewTokenizer(testVocab(), testMerges, 8, 0)
	require.NoError(t, err)

	_, err = tok.Tokens("dog")
	assert.Error(t, err)
}

func TestTokenizerBPECache(t *testing.T) {
	tok, err := NewTokenizer(testVocab(), testMerges, 8, 0)
	require.NoError(t, err)

	first := tok.bpe("cat")
	assert.Equal(t, []string{"cat</w>"}, first)
	assert.True(t, tok.cache.Contains("cat"))
	assert.Equal(t, first, tok.bpe("cat"))
}

func TestNewTokenizerRequiresSpecialTokens(t *testing.T) {
	vocab := testVocab()
	delete(vocab, EndOfText)

	_, err := NewTokenizer(vocab, testMerges, 8, 0)
	assert.Error(t, err)
}

func TestLoadTokenizer(t *testing.T) {
	dir := t.TempDir()
	vocab := `{"<|startoftext|>": 10, "<|endoftext|>": 11, "a</w>": 1, "cat</w>": 2, "c": 3, "a": 4, "t</w>": 5, "ca": 6}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "vocab.json"), []byte(vocab), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "merges.txt"), []byte("#version: 0.2\nc a\nca t</w>\n"), 0o644))

	tok, err := LoadTokenizer(dir, 5, 0)
	require.NoError(t, err)

	ids, err := tok.Tokens("cat a")
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 1}, ids)
}

func TestByteToRuneIsBijective(t *testing.T) {
	seen := make(map[rune]bool, 256)
	for _, r := range byteToRune {
		assert.False(t, seen[r], "rune %q mapped twice", r)
		seen[r] = true
	}
	assert.Equal(t, 'A', byteToRune['A'])
	assert.Equal(t, rune(256+32), byteToRune[' '])
}
