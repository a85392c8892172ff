// Package extract pulls raw conversational turns out of chat page markup.
//
// Chat UIs are unstable and undocumented. Every site selector here is a
// best-effort heuristic, never a contract the host page is assumed to honor:
// a miss degrades to zero candidates, not an error.
package extract

import (
	"strings"

	"golang.org/x/net/html"

	"github.com/enki09/borg-collective/internal/profile"
)

// Role classifies the author of a raw turn.
type Role string

const (
	RoleHuman   Role = "human"
	RoleAI      Role = "ai"
	RoleUnknown Role = "unknown"
)

// Candidate is one raw (text, role) pair found in an observed subtree.
type Candidate struct {
	Text string
	Role Role
}

// Extractor finds message candidates within a newly observed subtree.
// Implementations never fail; an unextractable subtree yields no candidates.
type Extractor interface {
	Extract(root *html.Node) []Candidate
}

// ForProfile selects the extractor for a site profile. Unresolved profiles
// get the generic extractor, which only applies the whole-subtree fallback.
func ForProfile(p profile.Profile) Extractor {
	switch p.Site {
	case "chatgpt":
		return chatgptExtractor{}
	case "claude":
		return claudeExtractor{}
	case "gemini":
		return geminiExtractor{}
	case "perplexity":
		return perplexityExtractor{}
	default:
		// grok included: no reliable selectors known for it yet.
		return genericExtractor{}
	}
}

// ParseFragment parses serialized markup of an inserted subtree and returns
// the node to extract from (the synthesized body element when present).
func ParseFragment(markup string) (*html.Node, error) {
	doc, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return nil, err
	}
	if body := findFirst(doc, func(n *html.Node) bool { return n.Data == "body" }); body != nil {
		return body, nil
	}
	return doc, nil
}

// genericExtractor treats the whole subtree as one candidate of unknown role.
type genericExtractor struct{}

func (genericExtractor) Extract(root *html.Node) []Candidate {
	return wholeSubtreeFallback(root)
}

// wholeSubtreeFallback yields the subtree's visible text as a single unknown
// candidate. Single level, not recursive; whitespace-only text yields nothing.
func wholeSubtreeFallback(root *html.Node) []Candidate {
	if text := visibleText(root); text != "" {
		return []Candidate{{Text: text, Role: RoleUnknown}}
	}
	return nil
}

// visibleText collects the subtree's text content, skipping non-rendered
// elements and collapsing whitespace.
func visibleText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
			b.WriteByte(' ')
			return
		case html.ElementNode:
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}

// findAll returns all element nodes in the subtree matching the predicate.
func findAll(root *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && match(n) {
			out = append(out, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(root)
	return out
}

func findFirst(root *html.Node, match func(*html.Node) bool) *html.Node {
	var found *html.Node
	var walk func(*html.Node) bool
	walk = func(n *html.Node) bool {
		if n.Type == html.ElementNode && match(n) {
			found = n
			return true
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if walk(c) {
				return true
			}
		}
		return false
	}
	walk(root)
	return found
}

func attrValue(n *html.Node, key string) (string, bool) {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val, true
		}
	}
	return "", false
}

func hasAttr(n *html.Node, key string) bool {
	_, ok := attrValue(n, key)
	return ok
}

// insideEditable reports whether the node has a contenteditable div ancestor,
// the structural cue for an in-progress human turn.
func insideEditable(n *html.Node) bool {
	for p := n; p != nil; p = p.Parent {
		if p.Type == html.ElementNode && p.Data == "div" {
			if v, ok := attrValue(p, "contenteditable"); ok && v == "true" {
				return true
			}
		}
	}
	return false
}

// normalizeRole maps site-specific author markers onto the common role set.
func normalizeRole(raw string) Role {
	switch strings.ToLower(raw) {
	case "human", "user":
		return RoleHuman
	case "ai", "assistant", "model", "bot":
		return RoleAI
	default:
		return RoleUnknown
	}
}
