// Package verify scores a live transcription against the prompt the
// operator was asked to read, so obviously wrong takes (wrong prompt, cut
// off mid-sentence, silence) can be flagged before submission.
//
// Scoring combines string similarity with a phonetic comparison: the
// transcription service normalises spelling its own way, so two renderings
// of the same spoken words can differ textually while sounding identical.
// Jaro-Winkler is computed over several alignments of the two texts and
// Double Metaphone codes decide whether a borderline score gets the benefit
// of the doubt.
package verify

import (
	"strings"
	"unicode"

	"github.com/antzucaro/matchr"
)

const (
	defaultThreshold = 0.80

	// phoneticSlack is subtracted from the threshold when the prompt and
	// hypothesis overlap phonetically.
	phoneticSlack = 0.10
)

// Option is a functional option for configuring a [Scorer].
type Option func(*Scorer)

// WithThreshold sets the minimum score [Scorer.Passes] accepts.
// Default: 0.80.
func WithThreshold(threshold float64) Option {
	return func(s *Scorer) {
		s.threshold = threshold
	}
}

// Scorer rates prompt/transcription similarity in [0, 1]. All methods are
// safe for concurrent use — the Scorer is read-only after construction.
type Scorer struct {
	threshold float64
}

// New returns a Scorer configured with the supplied options.
func New(opts ...Option) *Scorer {
	s := &Scorer{threshold: defaultThreshold}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Score returns the similarity between the prompt and the hypothesis in
// [0, 1]. Case, punctuation, and whitespace differences are ignored. An
// empty hypothesis scores 0 against a non-empty prompt.
func (s *Scorer) Score(prompt, hypothesis string) float64 {
	p := normalize(prompt)
	h := normalize(hypothesis)
	switch {
	case p == "" && h == "":
		return 1
	case p == "" || h == "":
		return 0
	}
	return bestAlignment(strings.Fields(p), strings.Fields(h), p, h)
}

// Passes reports whether the hypothesis is close enough to the prompt to
// count as a faithful reading. Phonetically overlapping pairs are accepted
// at a lower string-similarity score.
func (s *Scorer) Passes(prompt, hypothesis string) bool {
	score := s.Score(prompt, hypothesis)
	if score >= s.threshold {
		return true
	}
	p := strings.Fields(normalize(prompt))
	h := strings.Fields(normalize(hypothesis))
	if codesOverlap(codesForTokens(p), codesForTokens(h)) {
		return score >= s.threshold-phoneticSlack
	}
	return false
}

// normalize lowercases and strips everything except letters, digits, and
// the spaces between words.
func normalize(text string) string {
	var b strings.Builder
	b.Grow(len(text))
	lastSpace := true
	for _, r := range strings.ToLower(text) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case unicode.IsSpace(r) && !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// bestAlignment computes the best Jaro-Winkler score across several
// comparison strategies, so word-boundary disagreements between the prompt
// and the transcription do not tank the score.
//
// longTolerance is passed as false to use standard Jaro-Winkler scoring.
func bestAlignment(promptTokens, hypTokens []string, promptFull, hypFull string) float64 {
	// Strategy 1: full strings.
	score := matchr.JaroWinkler(promptFull, hypFull, false)

	// Strategy 2: concatenated (no spaces).
	if len(promptTokens) > 1 || len(hypTokens) > 1 {
		concat1 := strings.Join(promptTokens, "")
		concat2 := strings.Join(hypTokens, "")
		if s := matchr.JaroWinkler(concat1, concat2, false); s > score {
			score = s
		}
	}

	// Strategy 3: average of each prompt token's best match, penalised for
	// length mismatch. Catches transpositions the full-string comparison
	// punishes too hard.
	if len(promptTokens) > 1 && len(hypTokens) > 0 {
		var sum float64
		for _, pt := range promptTokens {
			best := 0.0
			for _, ht := range hypTokens {
				if s := matchr.JaroWinkler(pt, ht, false); s > best {
					best = s
				}
			}
			sum = sum + best
		}
		longer := max(len(promptTokens), len(hypTokens))
		if s := sum / float64(longer); s > score {
			score = s
		}
	}

	return score
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes (produced when the word is too short or
// contains no consonants) are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, s := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if s != "" {
			codes[s] = struct{}{}
		}
	}
	return codes
}

// codesOverlap reports whether the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}
