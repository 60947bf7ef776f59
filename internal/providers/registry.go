package providers

// Descriptor describes a registered provider and the credentials it needs.
type Descriptor struct {
	ID         ID       `json:"id"`
	Requires   []string `json:"requires"`
	Configured bool     `json:"configured"`
}

// Registry is the static set of known providers. It is built once at startup
// and only read afterwards, so it is safe for concurrent use.
type Registry struct {
	order       []ID
	providers   map[ID]Provider
	descriptors map[ID]Descriptor
	def         ID
}

// NewRegistry creates an empty registry whose fallback provider is def.
func NewRegistry(def ID) *Registry {
	return &Registry{
		providers:   make(map[ID]Provider),
		descriptors: make(map[ID]Descriptor),
		def:         def,
	}
}

// Register adds p. Registering the same ID twice replaces the provider but
// keeps its original position.
func (r *Registry) Register(p Provider, d Descriptor) {
	id := p.ID()
	if _, ok := r.providers[id]; !ok {
		r.order = append(r.order, id)
	}
	d.ID = id
	if d.Requires == nil {
		d.Requires = []string{}
	}
	r.providers[id] = p
	r.descriptors[id] = d
}

// Resolve looks up a provider by ID.
func (r *Registry) Resolve(id ID) (Provider, bool) {
	p, ok := r.providers[id]
	return p, ok
}

// Default is the provider used when a request names no known provider.
func (r *Registry) Default() ID {
	return r.def
}

// IDs returns the registered IDs in registration order.
func (r *Registry) IDs() []ID {
	out := make([]ID, len(r.order))
	copy(out, r.order)
	return out
}

// Descriptors lists every registered provider in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.descriptors[id])
	}
	return out
}
