package extract

import "golang.org/x/net/html"

// chatgptExtractor reads message bubbles carrying an explicit author-role
// attribute, the most stable marker ChatGPT's layout exposes.
type chatgptExtractor struct{}

func (chatgptExtractor) Extract(root *html.Node) []Candidate {
	var out []Candidate
	for _, el := range findAll(root, func(n *html.Node) bool { return hasAttr(n, "data-message-author-role") }) {
		text := visibleText(el)
		if text == "" {
			continue
		}
		raw, _ := attrValue(el, "data-message-author-role")
		out = append(out, Candidate{Text: text, Role: normalizeRole(raw)})
	}
	if len(out) == 0 {
		return wholeSubtreeFallback(root)
	}
	return out
}

// claudeExtractor matches chat-message test ids. Role is inferred from
// editability: a message inside an editable div is a human turn being typed.
type claudeExtractor struct{}

func (claudeExtractor) Extract(root *html.Node) []Candidate {
	var out []Candidate
	for _, el := range findAll(root, func(n *html.Node) bool {
		v, ok := attrValue(n, "data-testid")
		return ok && v == "chat-message"
	}) {
		text := visibleText(el)
		if text == "" {
			continue
		}
		role := RoleAI
		if insideEditable(el) {
			role = RoleHuman
		}
		out = append(out, Candidate{Text: text, Role: role})
	}
	if len(out) == 0 {
		return wholeSubtreeFallback(root)
	}
	return out
}

// geminiExtractor matches material cards and explicit message-role markers.
type geminiExtractor struct{}

func (geminiExtractor) Extract(root *html.Node) []Candidate {
	var out []Candidate
	for _, el := range findAll(root, func(n *html.Node) bool {
		return n.Data == "mat-card" || hasAttr(n, "data-message-role")
	}) {
		text := visibleText(el)
		if text == "" {
			continue
		}
		role := RoleAI
		if raw, ok := attrValue(el, "data-message-role"); ok {
			role = normalizeRole(raw)
		}
		out = append(out, Candidate{Text: text, Role: role})
	}
	if len(out) == 0 {
		return wholeSubtreeFallback(root)
	}
	return out
}

// perplexityExtractor matches chat-message test ids. Perplexity does not
// expose author roles cleanly; matched bubbles are assumed AI output.
type perplexityExtractor struct{}

func (perplexityExtractor) Extract(root *html.Node) []Candidate {
	var out []Candidate
	for _, el := range findAll(root, func(n *html.Node) bool {
		v, ok := attrValue(n, "data-testid")
		return ok && v == "chat-message"
	}) {
		text := visibleText(el)
		if text == "" {
			continue
		}
		out = append(out, Candidate{Text: text, Role: RoleAI})
	}
	if len(out) == 0 {
		return wholeSubtreeFallback(root)
	}
	return out
}
