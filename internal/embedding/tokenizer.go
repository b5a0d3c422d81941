package embedding

import (
	"hash/fnv"
	"strings"
)

// BERT special token IDs.
const (
	clsID = 101
	sepID = 102
)

// sepToken is the literal separator between title and abstract in paper text.
const sepToken = "[SEP]"

// Tokenizer produces token IDs for BERT-style models (input_ids, attention_mask, token_type_ids).
type Tokenizer interface {
	Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64)
}

// SimpleTokenizer is a word-split tokenizer with hash-based token IDs. The
// first literal [SEP] in text becomes the separator token and every token
// after it gets token type 1, giving the model a sentence pair.
type SimpleTokenizer struct{}

// Tokenize produces [CLS] a... [SEP] b... [SEP], padded to maxTokens.
func (t *SimpleTokenizer) Tokenize(text string, maxTokens int) (inputIDs, attentionMask, tokenTypeIDs []int64) {
	if maxTokens <= 0 {
		maxTokens = 256
	}
	inputIDs = make([]int64, maxTokens)
	attentionMask = make([]int64, maxTokens)
	tokenTypeIDs = make([]int64, maxTokens)

	pos := 0
	put := func(id, segment int64) bool {
		if pos >= maxTokens {
			return false
		}
		inputIDs[pos] = id
		attentionMask[pos] = 1
		tokenTypeIDs[pos] = segment
		pos++
		return true
	}

	first, second, pair := strings.Cut(text, sepToken)
	put(clsID, 0)
	for _, w := range SplitWords(first) {
		if pos >= maxTokens-1 {
			break
		}
		put(wordID(w), 0)
	}
	if !pair {
		put(sepID, 0)
		return inputIDs, attentionMask, tokenTypeIDs
	}
	put(sepID, 0)
	for _, w := range SplitWords(second) {
		if pos >= maxTokens-1 {
			break
		}
		put(wordID(w), 1)
	}
	put(sepID, 1)
	return inputIDs, attentionMask, tokenTypeIDs
}

// wordID maps a word into the vocabulary range above the special tokens.
func wordID(w string) int64 {
	return int64(1000 + HashString(w)%29000)
}

// SplitWords splits text on whitespace and returns non-empty words.
func SplitWords(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	return words
}

// HashString returns a deterministic non-negative hash of s.
func HashString(s string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() & 0x7fffffff)
}
