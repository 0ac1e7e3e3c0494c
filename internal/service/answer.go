package service

import (
	"strings"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/text/cases"
)

// answerDigester derives the stored form of an expected answer: a keyed
// BLAKE2b-256 over the challenge id and the normalized answer.
type answerDigester struct {
	key []byte
}

func newAnswerDigester(secret string) answerDigester {
	key := []byte(secret)
	if len(key) > blake2b.Size {
		sum := blake2b.Sum256(key)
		key = sum[:]
	}
	return answerDigester{key: key}
}

// Digest returns the keyed digest of the normalized answer.
func (d answerDigester) Digest(challengeID, answer string) []byte {
	h, err := blake2b.New256(d.key)
	if err != nil {
		// key length is capped in newAnswerDigester
		panic(err)
	}
	h.Write([]byte(challengeID))
	h.Write([]byte{0})
	h.Write([]byte(normalizeAnswer(answer)))
	return h.Sum(nil)
}

var answerFolder = cases.Fold()

// normalizeAnswer trims, collapses inner whitespace and case-folds.
func normalizeAnswer(s string) string {
	return answerFolder.String(strings.Join(strings.Fields(s), " "))
}
