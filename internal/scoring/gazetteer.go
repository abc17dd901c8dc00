package scoring

import (
	"bufio"
	"context"
	_ "embed"
	"strings"
)

//go:embed skills.txt
var defaultSkillList string

// GazetteerLabel is the label the dictionary tagger gives every span.
const GazetteerLabel = "SKILLS"

// GazetteerTagger tags known skill phrases by greedy longest match over
// word tokens. It needs no model artifact, so it backs tests and
// deployments without the NER export.
type GazetteerTagger struct {
	phrases  map[string]struct{}
	maxWords int
}

// NewGazetteerTagger builds a tagger from skill phrases. With no phrases
// the built-in list is used.
func NewGazetteerTagger(phrases ...string) *GazetteerTagger {
	if len(phrases) == 0 {
		phrases = DefaultSkillPhrases()
	}

	g := &GazetteerTagger{phrases: make(map[string]struct{}, len(phrases))}
	for _, p := range phrases {
		tokens := tokenizeWords(p)
		if len(tokens) == 0 {
			continue
		}
		words := make([]string, len(tokens))
		for i, tok := range tokens {
			words[i] = tok.text
		}
		g.phrases[strings.Join(words, " ")] = struct{}{}
		if len(words) > g.maxWords {
			g.maxWords = len(words)
		}
	}
	return g
}

// DefaultSkillPhrases returns the built-in skill dictionary.
func DefaultSkillPhrases() []string {
	var out []string
	sc := bufio.NewScanner(strings.NewReader(defaultSkillList))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Tag implements EntityTagger. Phrases match word by word; the reported
// text keeps a slash between words that were written with one, so
// "CI/CD" comes back as "ci/cd".
func (g *GazetteerTagger) Tag(ctx context.Context, text string) ([]Entity, error) {
	tokens := tokenizeWords(text)
	words := make([]string, len(tokens))
	for i, tok := range tokens {
		words[i] = tok.text
	}

	var entities []Entity
	for i := 0; i < len(words); {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n := g.longestAt(words, i)
		if n == 0 {
			i++
			continue
		}
		entities = append(entities, Entity{
			Text:  surface(tokens[i : i+n]),
			Label: GazetteerLabel,
		})
		i += n
	}
	return entities, nil
}

func (g *GazetteerTagger) longestAt(words []string, start int) int {
	limit := g.maxWords
	if rest := len(words) - start; rest < limit {
		limit = rest
	}
	for n := limit; n > 0; n-- {
		if _, ok := g.phrases[strings.Join(words[start:start+n], " ")]; ok {
			return n
		}
	}
	return 0
}

// word is one lowercased token and the separator written before it.
type word struct {
	text string
	sep  string
}

func surface(tokens []word) string {
	var b strings.Builder
	for i, tok := range tokens {
		if i > 0 {
			b.WriteString(tok.sep)
		}
		b.WriteString(tok.text)
	}
	return b.String()
}

// tokenizeWords lowercases and splits on whitespace and separators while
// keeping characters that belong to skill names such as "c++", "c#",
// "node.js" or "scikit-learn".
func tokenizeWords(text string) []word {
	var (
		words []word
		cur   strings.Builder
		sep   = " "
	)
	flush := func() {
		if w := strings.Trim(cur.String(), ".-"); w != "" {
			words = append(words, word{text: w, sep: sep})
			sep = " "
		}
		cur.Reset()
	}

	for _, r := range strings.ToLower(text) {
		switch r {
		case '/':
			flush()
			sep = "/"
		case ' ', '\t', '\n', '\r', ',', ';', ':', '(', ')', '[', ']', '{', '}', '|', '"', '\'', '!', '?':
			flush()
			sep = " "
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return words
}
