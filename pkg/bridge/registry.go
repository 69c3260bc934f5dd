package bridge

// Registry maps tool names to their invokers. It is populated once during
// discovery and must not be mutated afterwards: a session's tool set is fixed
// for its lifetime and the dispatch loop reads the registry concurrently.
type Registry struct {
	invokers map[string]*Invoker
	names    []string
}

func newRegistry() *Registry {
	return &Registry{invokers: make(map[string]*Invoker)}
}

func (r *Registry) add(name string, inv *Invoker) {
	r.invokers[name] = inv
	r.names = append(r.names, name)
}

// Lookup returns the invoker bound to name, if any.
func (r *Registry) Lookup(name string) (*Invoker, bool) {
	inv, ok := r.invokers[name]
	return inv, ok
}

// Names returns the registered tool names in discovery order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Len reports the number of registered tools.
func (r *Registry) Len() int { return len(r.invokers) }
