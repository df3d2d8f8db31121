package lookup

import "context"

// Registry maps lookup names to implementations. Dispatch is a map lookup:
// adding a lookup means registering a new implementer.
type Registry struct {
	lookups map[string]Lookup
	order   []string
}

// NewRegistry creates a registry with the given lookups. Registration order
// is preserved for prompt rendering.
func NewRegistry(lookups ...Lookup) *Registry {
	r := &Registry{
		lookups: make(map[string]Lookup, len(lookups)),
	}

	for _, l := range lookups {
		spec := l.Spec()
		if spec == nil || spec.Name == "" {
			continue
		}
		if _, exists := r.lookups[spec.Name]; !exists {
			r.order = append(r.order, spec.Name)
		}
		r.lookups[spec.Name] = l
	}

	return r
}

// Specs returns all lookup specifications in registration order
func (r *Registry) Specs() []*Spec {
	specs := make([]*Spec, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.lookups[name].Spec())
	}
	return specs
}

// Names returns all registered lookup names in registration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.order))
	copy(names, r.order)
	return names
}

// Execute dispatches a proposed request. Unknown names resolve to an
// error-marker result rather than being dropped.
func (r *Registry) Execute(ctx context.Context, req *Request) Result {
	l, ok := r.lookups[req.Name]
	if !ok {
		return Errorf("Unknown lookup: %s", req.Name)
	}
	return l.Execute(ctx, req.Params)
}
