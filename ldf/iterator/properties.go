package iterator

// Properties holds write-once out-of-band values of an iterator, such as
// fragment metadata or hypermedia controls. A child inherits values of its
// parent that it has not set itself, including values that arrive later.
type Properties struct {
	parent  *Properties
	values  map[string]any
	waiters map[string][]func(any)
}

// NewProperties creates an empty property set.
func NewProperties() *Properties {
	return &Properties{
		values:  make(map[string]any),
		waiters: make(map[string][]func(any)),
	}
}

// Get returns the value of key from this set or its ancestors.
func (p *Properties) Get(key string) (any, bool) {
	for cur := p; cur != nil; cur = cur.parent {
		if v, ok := cur.values[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// Set stores the value of key. It returns false if key was already set on
// this set; the first value wins.
func (p *Properties) Set(key string, value any) bool {
	if _, ok := p.values[key]; ok {
		return false
	}
	p.values[key] = value
	waiters := p.waiters[key]
	delete(p.waiters, key)
	for _, fn := range waiters {
		fn(value)
	}
	return true
}

// Await calls fn with the value of key, synchronously if it is available
// and otherwise once when it is set here or on an ancestor.
func (p *Properties) Await(key string, fn func(any)) {
	if v, ok := p.Get(key); ok {
		fn(v)
		return
	}
	fired := false
	p.addWaiter(key, func(v any) {
		if !fired {
			fired = true
			fn(v)
		}
	})
}

// SetParent attaches the set to a parent. Pending waiters start listening
// on the new ancestors as well.
func (p *Properties) SetParent(parent *Properties) {
	if parent == nil || parent == p {
		return
	}
	p.parent = parent
	for key, waiters := range p.waiters {
		for _, fn := range waiters {
			parent.Await(key, fn)
		}
	}
}

func (p *Properties) addWaiter(key string, fn func(any)) {
	p.waiters[key] = append(p.waiters[key], fn)
	if p.parent != nil {
		p.parent.addWaiter(key, fn)
	}
}

// GetProperty returns the typed value of key.
func GetProperty[V any](p *Properties, key string) (V, bool) {
	var zero V
	v, ok := p.Get(key)
	if !ok {
		return zero, false
	}
	tv, ok := v.(V)
	return tv, ok
}

// AwaitProperty calls fn with the typed value of key once it is available.
// Values of another type are ignored.
func AwaitProperty[V any](p *Properties, key string, fn func(V)) {
	p.Await(key, func(v any) {
		if tv, ok := v.(V); ok {
			fn(tv)
		}
	})
}
