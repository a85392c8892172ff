// Package profile maps chat site origins to fixed site descriptors.
package profile

import (
	"net/url"
	"strings"
)

// Profile identifies a supported chat site. Resolved once per session and
// immutable for the session's lifetime.
type Profile struct {
	Site       string `json:"site"`
	ModelLabel string `json:"model_label"`
}

// Unknown is the profile returned when no host rule matches.
var Unknown = Profile{Site: "unknown", ModelLabel: "Unknown"}

// rule maps host substrings to a profile. First match wins.
type rule struct {
	hosts   []string
	profile Profile
}

var rules = []rule{
	{[]string{"chat.openai.com", "chatgpt.com"}, Profile{Site: "chatgpt", ModelLabel: "ChatGPT"}},
	{[]string{"claude.ai"}, Profile{Site: "claude", ModelLabel: "Claude"}},
	{[]string{"gemini.google.com"}, Profile{Site: "gemini", ModelLabel: "Gemini"}},
	{[]string{"perplexity.ai"}, Profile{Site: "perplexity", ModelLabel: "Perplexity"}},
	{[]string{"grok.com", "x.com"}, Profile{Site: "grok", ModelLabel: "Grok"}},
}

// Resolve maps an origin (hostname, or any URL containing one) to its site
// profile. Always returns a value; unmatched origins resolve to Unknown.
func Resolve(origin string) Profile {
	host := origin
	if strings.Contains(origin, "://") {
		if u, err := url.Parse(origin); err == nil && u.Hostname() != "" {
			host = u.Hostname()
		}
	}
	for _, r := range rules {
		for _, h := range r.hosts {
			if strings.Contains(host, h) {
				return r.profile
			}
		}
	}
	return Unknown
}

// SupportedURL reports whether the address belongs to a known chat site.
// Used to filter the session registry during fan-out.
func SupportedURL(raw string) bool {
	for _, r := range rules {
		for _, h := range r.hosts {
			if strings.Contains(raw, h) {
				return true
			}
		}
	}
	return false
}

// Sites returns the ids of all known site profiles.
func Sites() []string {
	out := make([]string, 0, len(rules))
	for _, r := range rules {
		out = append(out, r.profile.Site)
	}
	return out
}
