package model

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// ErrUnknownProvider is returned for provider names that match no backend.
var ErrUnknownProvider = errors.New("provider must be 'gemini' or 'ollama'")

// Factory builds a backend on first use.
type Factory func() (LLM, error)

type entry struct {
	factory Factory
	llm     LLM
}

// Providers maps provider identifiers to backends. Backends are built
// lazily by their factory the first time they are requested and cached;
// a failed build is retried on the next request.
type Providers struct {
	mu       sync.Mutex
	entries  map[Provider]*entry
	aliases  map[string]Provider
	fallback Provider
}

// NewProviders creates an empty registry. fallback is the provider used
// for an empty selector.
func NewProviders(fallback Provider) *Providers {
	return &Providers{
		entries: make(map[Provider]*entry),
		aliases: map[string]Provider{
			"local": ProviderOllama,
		},
		fallback: fallback,
	}
}

// Register adds a lazily built backend.
func (p *Providers) Register(name Provider, factory Factory) error {
	if name == "" {
		return fmt.Errorf("provider name cannot be empty")
	}
	if factory == nil {
		return fmt.Errorf("provider %q factory cannot be nil", name)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, exists := p.entries[name]; exists {
		return fmt.Errorf("provider %q already registered", name)
	}
	p.entries[name] = &entry{factory: factory}
	return nil
}

// RegisterLLM adds an already constructed backend.
func (p *Providers) RegisterLLM(llm LLM) error {
	if llm == nil {
		return fmt.Errorf("LLM cannot be nil")
	}
	if err := p.Register(Provider(llm.Name()), func() (LLM, error) { return llm, nil }); err != nil {
		return err
	}
	return nil
}

// Alias maps an extra selector onto a registered provider.
func (p *Providers) Alias(alias string, target Provider) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.aliases[strings.ToLower(alias)] = target
}

// Resolve normalizes a selector to a provider identifier without building
// the backend. Matching is case-insensitive; an empty selector resolves to
// the fallback provider.
func (p *Providers) Resolve(selector string) (Provider, error) {
	s := strings.ToLower(strings.TrimSpace(selector))

	p.mu.Lock()
	defer p.mu.Unlock()

	if s == "" {
		s = string(p.fallback)
	}
	if target, ok := p.aliases[s]; ok {
		s = string(target)
	}
	if _, ok := p.entries[Provider(s)]; !ok {
		return "", fmt.Errorf("%w (got %q)", ErrUnknownProvider, selector)
	}
	return Provider(s), nil
}

// Get resolves selector and returns its backend, building it if needed.
func (p *Providers) Get(selector string) (Provider, LLM, error) {
	name, err := p.Resolve(selector)
	if err != nil {
		return "", nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	e := p.entries[name]
	if e.llm == nil {
		llm, err := e.factory()
		if err != nil {
			return name, nil, err
		}
		e.llm = llm
	}
	return name, e.llm, nil
}

// Names lists the registered providers in sorted order.
func (p *Providers) Names() []Provider {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]Provider, 0, len(p.entries))
	for name := range p.entries {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}

// Close closes every backend that has been built.
func (p *Providers) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	for name, e := range p.entries {
		if e.llm == nil {
			continue
		}
		if err := e.llm.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", name, err))
		}
		e.llm = nil
	}
	return errors.Join(errs...)
}
