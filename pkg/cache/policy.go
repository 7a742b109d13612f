package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Pipeline node names with dedicated caches.
const (
	NodeRouter         = "Router"
	NodeDataAgent      = "DataAgent"
	NodePresentation   = "PresentationAgent"
	NodeDirectResponse = "DirectResponse"
)

// Policy describes how one node's results are cached.
type Policy struct {
	Enabled   bool
	TTL       time.Duration
	MaxSize   int
	KeyFields []string
}

// NodePolicies maps each pipeline node to its cache policy. Router results
// are stable for longer than data; direct responses are static text.
var NodePolicies = map[string]Policy{
	NodeRouter:         {Enabled: true, TTL: 10 * time.Minute, MaxSize: 200, KeyFields: []string{"question"}},
	NodeDataAgent:      {Enabled: true, TTL: 5 * time.Minute, MaxSize: 100, KeyFields: []string{"question", "date_from", "date_to"}},
	NodePresentation:   {Enabled: true, TTL: 3 * time.Minute, MaxSize: 50, KeyFields: []string{"question"}},
	NodeDirectResponse: {Enabled: true, TTL: time.Hour, MaxSize: 50, KeyFields: []string{"question"}},
}

// Key derives the cache key for a node from the state fields its policy
// names. The key is a truncated sha256 of the concatenated field values so
// question text never appears in logs or stats.
func (p Policy) Key(node string, state map[string]any) string {
	parts := make([]string, 0, len(p.KeyFields))
	for _, field := range p.KeyFields {
		value, ok := state[field]
		if !ok || value == nil {
			continue
		}
		switch v := value.(type) {
		case string:
			parts = append(parts, field+":"+v)
		case map[string]any, []any:
			// Deterministic encoding for structured values.
			encoded, err := canonicalJSON(v)
			if err == nil {
				parts = append(parts, field+":"+encoded)
			}
		default:
			parts = append(parts, fmt.Sprintf("%s:%v", field, v))
		}
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return node + ":" + hex.EncodeToString(sum[:])[:16]
}

func canonicalJSON(v any) (string, error) {
	if m, ok := v.(map[string]any); ok {
		keys := make([]string, 0, len(m))
		for k := range m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		b.WriteString("{")
		for i, k := range keys {
			if i > 0 {
				b.WriteString(",")
			}
			val, err := json.Marshal(m[k])
			if err != nil {
				return "", err
			}
			b.WriteString(fmt.Sprintf("%q:%s", k, val))
		}
		b.WriteString("}")
		return b.String(), nil
	}
	data, err := json.Marshal(v)
	return string(data), err
}

// Set groups the pipeline's node caches.
type Set struct {
	router         *LRU
	data           *LRU
	presentation   *LRU
	directResponse *LRU
}

// NewSet builds the node caches from NodePolicies.
func NewSet() *Set {
	p := NodePolicies
	return &Set{
		router:         NewLRU(p[NodeRouter].MaxSize, p[NodeRouter].TTL),
		data:           NewLRU(p[NodeDataAgent].MaxSize, p[NodeDataAgent].TTL),
		presentation:   NewLRU(p[NodePresentation].MaxSize, p[NodePresentation].TTL),
		directResponse: NewLRU(p[NodeDirectResponse].MaxSize, p[NodeDirectResponse].TTL),
	}
}

// For returns the cache backing the given node. Unknown nodes share the
// data cache.
func (s *Set) For(node string) *LRU {
	switch node {
	case NodeRouter:
		return s.router
	case NodePresentation:
		return s.presentation
	case NodeDirectResponse:
		return s.directResponse
	default:
		return s.data
	}
}

// InvalidateAll clears every node cache.
func (s *Set) InvalidateAll() {
	s.router.Clear()
	s.data.Clear()
	s.presentation.Clear()
	s.directResponse.Clear()
}

// Invalidate clears the cache for one node.
func (s *Set) Invalidate(node string) {
	s.For(node).Clear()
}

// AllStats returns stats for every node cache, keyed for the health payload.
func (s *Set) AllStats() map[string]Stats {
	return map[string]Stats{
		"router":          s.router.Stats(),
		"data":            s.data.Stats(),
		"presentation":    s.presentation.Stats(),
		"direct_response": s.directResponse.Stats(),
	}
}
