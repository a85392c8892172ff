package capture

import (
	"strings"

	"github.com/enki09/borg-collective/internal/extract"
)

const (
	// fingerprintPrefixLen is how many leading runes of a turn's text go into
	// its fingerprint. Streaming responses re-fire mutations as they settle;
	// the prefix is stable across those re-fires.
	fingerprintPrefixLen = 80

	// defaultMaxFingerprints bounds the per-session set. Sized far above any
	// realistic session's message volume; oldest entries are evicted first.
	defaultMaxFingerprints = 50000
)

// Deduper suppresses turns already seen this session. Fingerprints live only
// in memory, per session, never shared. Not safe for concurrent use; the
// watcher drives it from a single goroutine.
type Deduper struct {
	seen  map[string]struct{}
	order []string
	max   int
}

// NewDeduper returns an empty deduplicator.
func NewDeduper() *Deduper {
	return &Deduper{seen: make(map[string]struct{}), max: defaultMaxFingerprints}
}

// Accept records the (site, role, text-prefix) fingerprint and reports whether
// the turn is new. Repeats return false and record nothing.
func (d *Deduper) Accept(site string, role extract.Role, text string) bool {
	key := fingerprint(site, role, text)
	if _, ok := d.seen[key]; ok {
		return false
	}
	d.seen[key] = struct{}{}
	d.order = append(d.order, key)
	if len(d.order) > d.max {
		evict := d.order[0]
		d.order = d.order[1:]
		delete(d.seen, evict)
	}
	return true
}

// Len returns the number of recorded fingerprints.
func (d *Deduper) Len() int {
	return len(d.seen)
}

func fingerprint(site string, role extract.Role, text string) string {
	runes := []rune(text)
	if len(runes) > fingerprintPrefixLen {
		runes = runes[:fingerprintPrefixLen]
	}
	var b strings.Builder
	b.WriteString(site)
	b.WriteString("::")
	b.WriteString(string(role))
	b.WriteString("::")
	b.WriteString(string(runes))
	return b.String()
}
