package mood

import (
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed lexicon.yaml
var lexiconYAML []byte

// Lexicon maps words to AFINN-style weights and lists the tokens that flip the next weight.
type Lexicon struct {
	Negators []string       `yaml:"negators"`
	Words    map[string]int `yaml:"words"`

	negators map[string]struct{}
}

// ParseLexicon decodes a YAML lexicon.
func ParseLexicon(data []byte) (*Lexicon, error) {
	lex := &Lexicon{}
	if err := yaml.Unmarshal(data, lex); err != nil {
		return nil, fmt.Errorf("parse lexicon: %w", err)
	}
	if len(lex.Words) == 0 {
		return nil, fmt.Errorf("parse lexicon: no words")
	}

	lex.negators = make(map[string]struct{}, len(lex.Negators))
	for _, n := range lex.Negators {
		lex.negators[strings.ToLower(n)] = struct{}{}
	}
	normalized := make(map[string]int, len(lex.Words))
	for word, weight := range lex.Words {
		normalized[strings.ToLower(word)] = weight
	}
	lex.Words = normalized
	return lex, nil
}

// Score sums word weights over text, flipping a weight when the previous token is a negator.
func (l *Lexicon) Score(text string) int {
	tokens := tokenize(text)
	score := 0
	for i, token := range tokens {
		weight, ok := l.Words[token]
		if !ok {
			continue
		}
		if i > 0 {
			if _, negated := l.negators[tokens[i-1]]; negated {
				weight = -weight
			}
		}
		score += weight
	}
	return score
}

var defaultLexicon = mustParseLexicon(lexiconYAML)

func mustParseLexicon(data []byte) *Lexicon {
	lex, err := ParseLexicon(data)
	if err != nil {
		panic(err)
	}
	return lex
}

// tokenize lowercases text and splits on anything that is not a letter, digit or apostrophe.
func tokenize(text string) []string {
	lower := strings.ToLower(text)
	lower = strings.ReplaceAll(lower, "’", "'")
	return strings.FieldsFunc(lower, func(r rune) bool {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '\'':
			return false
		case r > 127:
			return false
		default:
			return true
		}
	})
}
