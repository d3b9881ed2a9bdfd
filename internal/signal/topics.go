package signal

import (
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/xxxsen/mfeed/internal/model"
)

const (
	DefaultMaxBodyTerms    = 5
	DefaultRecentSaveLimit = 50
	minTermLen             = 3
	overlapPenalty         = 0.5
)

var hashtagRegex = regexp.MustCompile(`#([\p{L}\p{N}_]{2,})`)

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "that": {}, "this": {}, "from": {},
	"are": {}, "was": {}, "were": {}, "have": {}, "has": {}, "had": {}, "not": {},
	"but": {}, "you": {}, "your": {}, "our": {}, "they": {}, "their": {}, "them": {},
	"what": {}, "when": {}, "where": {}, "which": {}, "who": {}, "will": {}, "would": {},
	"can": {}, "could": {}, "should": {}, "about": {}, "into": {}, "than": {}, "then": {},
	"there": {}, "here": {}, "just": {}, "like": {}, "more": {}, "most": {}, "some": {},
	"such": {}, "only": {}, "also": {}, "very": {}, "been": {}, "being": {}, "over": {},
	"out": {}, "all": {}, "any": {}, "each": {}, "how": {}, "its": {}, "it's": {},
	"one": {}, "two": {}, "new": {}, "get": {}, "got": {}, "now": {}, "today": {},
}

type TopicSet map[string]struct{}

func (s TopicSet) Add(topic string) {
	if topic != "" {
		s[topic] = struct{}{}
	}
}

func (s TopicSet) Has(topic string) bool {
	_, ok := s[topic]
	return ok
}

// Sorted returns the topics in lexical order.
func (s TopicSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for t := range s {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// TopicExtractor derives a topic set from tags plus a light tokenization of
// the body. Bodies are markdown; only their text nodes are tokenized.
type TopicExtractor struct {
	md       goldmark.Markdown
	maxTerms int
}

func NewTopicExtractor(maxTerms int) *TopicExtractor {
	if maxTerms <= 0 {
		maxTerms = DefaultMaxBodyTerms
	}
	return &TopicExtractor{md: goldmark.New(), maxTerms: maxTerms}
}

func normalizeTopic(raw string) string {
	t := strings.ToLower(strings.TrimSpace(raw))
	t = strings.TrimLeft(t, "#")
	return strings.TrimSpace(t)
}

func (e *TopicExtractor) Extract(item model.ContentItem) TopicSet {
	set := TopicSet{}
	for _, tag := range item.Tags {
		set.Add(normalizeTopic(tag))
	}
	if strings.TrimSpace(item.Body) == "" {
		return set
	}
	for _, m := range hashtagRegex.FindAllStringSubmatch(item.Body, -1) {
		set.Add(normalizeTopic(m[1]))
	}
	for _, term := range e.topTerms(e.plainText(item.Body)) {
		set.Add(term)
	}
	return set
}

func (e *TopicExtractor) plainText(markdown string) string {
	source := []byte(markdown)
	doc := e.md.Parser().Parse(text.NewReader(source))
	var sb strings.Builder
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			sb.Write(n.Segment.Value(source))
			sb.WriteByte(' ')
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

func tokenize(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '\''
	})
}

func isTerm(tok string) bool {
	tok = strings.Trim(tok, "'")
	if len([]rune(tok)) < minTermLen {
		return false
	}
	if _, ok := stopwords[tok]; ok {
		return false
	}
	for _, r := range tok {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

func (e *TopicExtractor) topTerms(plain string) []string {
	counts := map[string]int{}
	for _, tok := range tokenize(plain) {
		if !isTerm(tok) {
			continue
		}
		counts[strings.Trim(tok, "'")]++
	}
	terms := make([]string, 0, len(counts))
	for t := range counts {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if len(terms) > e.maxTerms {
		terms = terms[:e.maxTerms]
	}
	return terms
}

// RecentTopics merges the topics of the requester's most recent saves.
func (e *TopicExtractor) RecentTopics(saved []model.ContentItem, limit int) TopicSet {
	if limit <= 0 {
		limit = DefaultRecentSaveLimit
	}
	if len(saved) > limit {
		saved = saved[:limit]
	}
	set := TopicSet{}
	for _, item := range saved {
		for t := range e.Extract(item) {
			set.Add(t)
		}
	}
	return set
}

// TopicNovelty is 1 for a candidate sharing nothing with recent topics and
// falls to 0.5 when every topic of the candidate was recently saved.
func TopicNovelty(candidate, recent TopicSet) float64 {
	if len(candidate) == 0 || len(recent) == 0 {
		return 1.0
	}
	overlap := 0
	for t := range candidate {
		if recent.Has(t) {
			overlap++
		}
	}
	return 1 - overlapPenalty*float64(overlap)/float64(len(candidate))
}
