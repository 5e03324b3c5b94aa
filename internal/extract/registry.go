package extract

import (
	"sort"
	"strings"
	"sync"

	"github.com/JakeFAU/article-summarizer/internal/summarizer"
)

// GenericKey is the registry key of the mandatory fallback parser.
const GenericKey = "generic"

// Registry maps exact lowercased hosts to parser strategies.
type Registry struct {
	mu      sync.RWMutex
	parsers map[string]summarizer.Parser
}

// NewRegistry creates a registry whose fallback is generic.
func NewRegistry(generic summarizer.Parser) *Registry {
	return &Registry{
		parsers: map[string]summarizer.Parser{GenericKey: generic},
	}
}

// NewDefaultRegistry registers every built-in outlet on top of the generic parser.
func NewDefaultRegistry() *Registry {
	r := NewRegistry(NewGeneric())
	asiaOne := NewAsiaOne()
	r.Register("asiaone.com", asiaOne)
	r.Register("www.asiaone.com", asiaOne)
	return r
}

// Register adds or replaces the parser for a domain.
func (r *Registry) Register(domain string, parser summarizer.Parser) {
	key := normalizeDomain(domain)
	if key == "" || parser == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.parsers[key] = parser
}

// Resolve returns the parser registered for domain, or the generic parser.
func (r *Registry) Resolve(domain string) summarizer.Parser {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if p, ok := r.parsers[normalizeDomain(domain)]; ok {
		return p
	}
	return r.parsers[GenericKey]
}

// Domains lists the registered outlet hosts, excluding the fallback.
func (r *Registry) Domains() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.parsers))
	for k := range r.parsers {
		if k != GenericKey {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}

func normalizeDomain(domain string) string {
	return strings.ToLower(strings.TrimSpace(domain))
}
