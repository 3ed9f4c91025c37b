package model

import (
	"bufio"
	"encoding/json"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"strings"

	"github.com/dlclark/regexp2"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/text/unicode/norm"
)

const (
	StartOfText = "<|startoftext|>"
	EndOfText   = "<|endoftext|>"

	endOfWord    = "</w>"
	bpeCacheSize = 4096
)

var wordPattern = regexp2.MustCompile(
	`<\|startoftext\|>|<\|endoftext\|>|'s|'t|'re|'ve|'m|'ll|'d|[\p{L}]+|[\p{N}]|[^\s\p{L}\p{N}]+`,
	regexp2.IgnoreCase,
)

var whitespace = regexp2.MustCompile(`\s+`, regexp2.None)

// byteToRune maps every byte to a printable rune so that arbitrary UTF-8
// can be looked up in the byte-level vocabulary.
var byteToRune = func() [256]rune {
	var table [256]rune
	n := 0
	for b := 0; b < 256; b++ {
		switch {
		case b >= '!' && b <= '~', b >= 0xA1 && b <= 0xAC, b >= 0xAE && b <= 0xFF:
			table[b] = rune(b)
		default:
			table[b] = rune(256 + n)
			n++
		}
	}
	return table
}()

// Tokenizer is the byte-level BPE tokenizer used by CLIP text encoders.
type Tokenizer struct {
	vocab         map[string]int64
	ranks         map[string]int
	cache         *lru.Cache[string, []string]
	contextLength int
	padID         int64
	bos, eos      int64
}

// LoadTokenizer reads vocab.json and merges.txt from dir.
func LoadTokenizer(dir string, contextLength int, padID int64) (*Tokenizer, error) {
	vocabData, err := os.ReadFile(filepath.Join(dir, "vocab.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to read vocab: %w", err)
	}
	var vocab map[string]int64
	if err := json.Unmarshal(vocabData, &vocab); err != nil {
		return nil, fmt.Errorf("failed to parse vocab: %w", err)
	}

	f, err := os.Open(filepath.Join(dir, "merges.txt"))
	if err != nil {
		return nil, fmt.Errorf("failed to read merges: %w", err)
	}
	defer f.Close()

	var merges []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "#version") {
			continue
		}
		merges = append(merges, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read merges: %w", err)
	}

	return NewTokenizer(vocab, merges, contextLength, padID)
}

// NewTokenizer builds a tokenizer from an in-memory vocabulary and ordered
// merge list ("a b" per entry, highest priority first).
func NewTokenizer(vocab map[string]int64, merges []string, contextLength int, padID int64) (*Tokenizer, error) {
	if contextLength < 2 {
		return nil, fmt.Errorf("context length %d too short", contextLength)
	}
	bos, ok := vocab[StartOfText]
	if !ok {
		return nil, fmt.Errorf("vocab has no %s token", StartOfText)
	}
	eos, ok := vocab[EndOfText]
	if !ok {
		return nil, fmt.Errorf("vocab has no %s token", EndOfText)
	}

	ranks := make(map[string]int, len(merges))
	for i, m := range merges {
		if _, dup := ranks[m]; !dup {
			ranks[m] = i
		}
	}

	cache, err := lru.New[string, []string](bpeCacheSize)
	if err != nil {
		return nil, err
	}

	if padID == 0 {
		padID = eos
	}

	return &Tokenizer{
		vocab:         vocab,
		ranks:         ranks,
		cache:         cache,
		contextLength: contextLength,
		padID:         padID,
		bos:           bos,
		eos:           eos,
	}, nil
}

// Clean applies the text normalization CLIP expects before tokenization.
func Clean(text string) string {
	text = html.UnescapeString(html.UnescapeString(text))
	text = norm.NFC.String(text)
	text, _ = whitespace.Replace(text, " ", -1, -1)
	return strings.ToLower(strings.TrimSpace(text))
}

// Tokens returns the BPE token ids of text without special tokens or
// truncation.
func (t *Tokenizer) Tokens(text string) ([]int64, error) {
	var ids []int64

	m, err := wordPattern.FindStringMatch(Clean(text))
	for ; m != nil && err == nil; m, err = wordPattern.FindNextMatch(m) {
		word := m.String()
		if id, ok := t.vocab[word]; ok && (word == StartOfText || word == EndOfText) {
			ids = append(ids, id)
			continue
		}

		var sb strings.Builder
		for i := 0; i < len(word); i++ {
			sb.WriteRune(byteToRune[word[i]])
		}

		for _, piece := range t.bpe(sb.String()) {
			id, ok := t.vocab[piece]
			if !ok {
				return nil, fmt.Errorf("token %q not in vocab", piece)
			}
			ids = append(ids, id)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to split text: %w", err)
	}

	return ids, nil
}

// Encode returns input ids and attention mask of exactly the context
// length. Long inputs are truncated with the end token kept last.
func (t *Tokenizer) Encode(text string) ([]int64, []int64, error) {
	tokens, err := t.Tokens(text)
	if err != nil {
		return nil, nil, err
	}

	if limit := t.contextLength - 2; len(tokens) > limit {
		tokens = tokens[:limit]
	}

	ids := make([]int64, t.contextLength)
	mask := make([]int64, t.contextLength)

	ids[0] = t.bos
	copy(ids[1:], tokens)
	ids[len(tokens)+1] = t.eos
	for i := range ids {
		if i < len(tokens)+2 {
			mask[i] = 1
		} else {
			ids[i] = t.padID
		}
	}

	return ids, mask, nil
}

// bpe splits a byte-encoded word into vocabulary pieces by repeatedly
// merging the adjacent pair with the lowest rank.
func (t *Tokenizer) bpe(token string) []string {
	if pieces, ok := t.cache.Get(token); ok {
		return pieces
	}

	runes := []rune(token)
	word := make([]string, len(runes))
	for i, r := range runes {
		word[i] = string(r)
	}
	word[len(word)-1] += endOfWord

	for len(word) > 1 {
		best, bestRank := "", -1
		for i := 0; i < len(word)-1; i++ {
			pair := word[i] + " " + word[i+1]
			if rank, ok := t.ranks[pair]; ok && (bestRank < 0 || rank < bestRank) {
				best, bestRank = pair, rank
			}
		}
		if bestRank < 0 {
			break
		}

		first, second, _ := strings.Cut(best, " ")
		merged := make([]string, 0, len(word))
		for i := 0; i < len(word); i++ {
			if i < len(word)-1 && word[i] == first && word[i+1] == second {
				merged = append(merged, first+second)
				i++
				continue
			}
			merged = append(merged, word[i])
		}
		word = merged
	}

	t.cache.Add(token, word)
	return word
}
