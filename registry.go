package durasock

import "sync"

// globalKey is the registry key used under ShareGlobal.
const globalKey = "\x00global"

// Registry maps a sharing key to a live controller, so hosts that want one
// connection per URL (or per process) get the existing instance back instead
// of constructing anew.
//
// Lifecycle rules: an entry is evicted when its controller is closed, and a
// closed controller found in the registry is replaced, never returned.
// Callback slots on a reused controller keep their single-handler overwrite
// semantics; a second acquirer that assigns OnMessage replaces the first
// handler rather than adding one.
type Registry struct {
	mu    sync.Mutex
	conns map[string]*Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Conn)}
}

// DefaultRegistry backs the package-level [Acquire].
var DefaultRegistry = NewRegistry()

// Acquire returns the shared controller for the URL per cfg.SharedScope,
// constructing one if none is live. With ShareNone it always constructs a
// fresh, unregistered controller.
func (r *Registry) Acquire(url string, cfg *Config) (*Conn, error) {
	var scope SharedScope
	if cfg != nil {
		scope = cfg.SharedScope
	}
	if scope == ShareNone {
		return New(url, cfg)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	key := url
	if scope == ShareGlobal {
		key = globalKey
	}

	if c, ok := r.conns[key]; ok && !c.IsClosed() {
		return c, nil
	}

	c, err := New(url, cfg)
	if err != nil {
		return nil, err
	}
	c.unregister = func() { r.evict(key, c) }
	r.conns[key] = c
	return c, nil
}

func (r *Registry) evict(key string, c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.conns[key] == c {
		delete(r.conns, key)
	}
}

// Acquire is Registry.Acquire on the package default registry.
func Acquire(url string, cfg *Config) (*Conn, error) {
	return DefaultRegistry.Acquire(url, cfg)
}
