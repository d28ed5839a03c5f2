package crawler

import (
	"github.com/dev-fuadhasan/openapi/internal/extractor"
	"github.com/dev-fuadhasan/openapi/internal/models"
)

// discoverySet keeps discovered URLs in insertion order. Identity is the
// normalized URL string.
type discoverySet struct {
	items []models.DiscoveredURL
	index map[string]int
}

func newDiscoverySet() *discoverySet {
	return &discoverySet{index: make(map[string]int)}
}

// add records u unless it is already known and reports whether it was new
func (s *discoverySet) add(u string, source models.Provenance, foundOn string) bool {
	if _, ok := s.index[u]; ok {
		return false
	}
	s.index[u] = len(s.items)
	s.items = append(s.items, models.DiscoveredURL{
		URL:     u,
		Source:  source,
		FoundOn: foundOn,
		APILike: extractor.IsAPILike(u),
	})
	return true
}

func (s *discoverySet) len() int {
	return len(s.items)
}

func (s *discoverySet) list() []models.DiscoveredURL {
	out := make([]models.DiscoveredURL, len(s.items))
	copy(out, s.items)
	return out
}

// frontier is the FIFO of pages still to fetch. A URL enters it at most once
// per Discover call.
type frontier struct {
	queue  []string
	queued map[string]struct{}
}

func newFrontier() *frontier {
	return &frontier{queued: make(map[string]struct{})}
}

// push appends u if it was never queued before
func (f *frontier) push(u string) bool {
	if _, ok := f.queued[u]; ok {
		return false
	}
	f.queued[u] = struct{}{}
	f.queue = append(f.queue, u)
	return true
}

// exclude marks u as never to be queued
func (f *frontier) exclude(u string) {
	f.queued[u] = struct{}{}
}

// pop removes and returns up to n entries from the head
func (f *frontier) pop(n int) []string {
	if n > len(f.queue) {
		n = len(f.queue)
	}
	batch := make([]string, n)
	copy(batch, f.queue[:n])
	f.queue = f.queue[n:]
	return batch
}

func (f *frontier) len() int {
	return len(f.queue)
}
