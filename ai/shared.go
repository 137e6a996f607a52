package ai

import "sync"

// Shared lazily builds one provider and hands the same instance to every
// caller. Construction runs at most once; a failed construction is cached.
type Shared struct {
	config  *Config
	factory ProviderFactory

	once     sync.Once
	mu       sync.Mutex
	provider AIProvider
	err      error
	closed   bool
}

// NewShared returns a Shared that will call factory with config on first use.
func NewShared(config *Config, factory ProviderFactory) *Shared {
	return &Shared{config: config, factory: factory}
}

// Get returns the shared provider, building it on the first call.
func (s *Shared) Get() (AIProvider, error) {
	s.once.Do(func() {
		p, err := s.factory(s.config)
		s.mu.Lock()
		s.provider, s.err = p, err
		s.mu.Unlock()
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrProviderClosed
	}
	return s.provider, s.err
}

// Embedder is shorthand for Get().Embedder().
func (s *Shared) Embedder() (Embedder, error) {
	p, err := s.Get()
	if err != nil {
		return nil, err
	}
	return p.Embedder(), nil
}

// Close closes the provider if it was built. Later Get calls fail.
func (s *Shared) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.provider == nil {
		return nil
	}
	return s.provider.Close()
}
