package iterator

// MultiTransformOptions configures a MultiTransform.
type MultiTransformOptions[S, T any] struct {
	BufferSize int
	// Optional, when set, emits Optional(item) for source items whose
	// transformer produced nothing.
	Optional func(item S) T
	// ReadTransformer overrides how one item is read from a transformer.
	ReadTransformer func(transformer Iterator[T], item S) (T, bool)
	// TransformerError, when set, receives transformer errors instead of
	// the error listeners. A non-nil result is emitted.
	TransformerError func(item S, err error) error
}

type pendingTransformer[S, T any] struct {
	item S
	it   Iterator[T]
}

// MultiTransform creates a transformer iterator for every source item and
// emits their items in source order. At most BufferSize transformers are
// open at once; the source is only advanced when the queue has drained.
type MultiTransform[S, T any] struct {
	*base[T]
	source      Iterator[S]
	create      func(item S) (Iterator[T], error)
	optional    func(item S) T
	readFrom    func(transformer Iterator[T], item S) (T, bool)
	onTrError   func(item S, err error) error
	queue       []pendingTransformer[S, T]
	transformed bool
	busy        bool
}

// NewMultiTransform creates a multi-transform over source. create may
// return nil to skip an item.
func NewMultiTransform[S, T any](source Iterator[S], create func(item S) (Iterator[T], error), opts MultiTransformOptions[S, T]) *MultiTransform[S, T] {
	m := &MultiTransform[S, T]{
		source:    source,
		create:    create,
		optional:  opts.Optional,
		readFrom:  opts.ReadTransformer,
		onTrError: opts.TransformerError,
	}
	if m.readFrom == nil {
		m.readFrom = func(tr Iterator[T], _ S) (T, bool) { return tr.Read() }
	}
	m.base = newBase[T](source.Scheduler(), "MultiTransformIterator", opts.BufferSize, m.read)
	m.base.onClose = append(m.base.onClose, func() {
		for _, p := range m.queue {
			p.it.Close()
		}
		m.queue = nil
		m.source.Close()
	})
	follow(m.base, source)
	return m
}

// Source returns the iterator whose items are transformed.
func (m *MultiTransform[S, T]) Source() Iterator[S] {
	return m.source
}

func (m *MultiTransform[S, T]) read() error {
	if m.busy {
		return nil
	}
	m.busy = true
	defer func() { m.busy = false }()

	for {
		// Drop ended transformers. An optional item whose transformer
		// produced nothing is emitted as is.
		for len(m.queue) > 0 && m.queue[0].it.Ended() {
			head := m.queue[0]
			m.queue = m.queue[1:]
			transformed := m.transformed
			m.transformed = false
			if m.optional != nil && !transformed {
				m.push(m.optional(head.item))
				return nil
			}
		}
		if len(m.queue) > 0 {
			break
		}

		for len(m.queue) < m.maxBuffer {
			item, ok := m.source.Read()
			if !ok {
				break
			}
			tr, err := m.create(item)
			if err != nil {
				return err
			}
			if tr == nil || tr.Ended() {
				if m.optional == nil {
					continue
				}
				tr = NewEmpty[T](m.sched)
			} else {
				tr.OnReadable(m.fillBufferAsync)
				tr.OnEnd(m.fillBufferAsync)
				tr.OnError(m.transformerError(item))
			}
			m.queue = append(m.queue, pendingTransformer[S, T]{item: item, it: tr})
		}
		if len(m.queue) == 0 {
			if m.source.Ended() {
				m.finish()
			}
			return nil
		}
	}

	head := m.queue[0]
	if item, ok := m.readFrom(head.it, head.item); ok {
		m.transformed = true
		m.push(item)
	}
	return nil
}

func (m *MultiTransform[S, T]) transformerError(item S) func(error) {
	return func(err error) {
		if m.onTrError != nil {
			err = m.onTrError(item, err)
		}
		m.emitError(err)
	}
}
