package modifier

// Wrap composes the modifiers declared in spec around work. It panics if the
// spec is invalid; use WrapE to get the error instead.
func Wrap(work Work, spec Spec, opts ...Option) Work {
	w, err := WrapE(work, spec, opts...)
	if err != nil {
		panic(err)
	}
	return w
}

// WrapE composes the modifiers declared in spec around work.
//
// Order is fixed: Retry around work, Repeat around that, Parallel around
// the result. An empty spec returns work itself. Every call of the returned
// Work builds fresh coordinators, so it may be called any number of times.
func WrapE(work Work, spec Spec, opts ...Option) (Work, error) {
	if work == nil {
		return nil, ErrNilWork
	}
	s := spec.Normalize()
	if err := s.Validate(); err != nil {
		return nil, err
	}
	if s.IsEmpty() {
		return work, nil
	}

	wrapped := work
	if s.Retry != nil {
		inner, n := wrapped, s.Retry.Count
		wrapped = func() error {
			return NewRetryCoordinator(n, inner, opts...).Evaluate()
		}
	}
	if s.Repeat != nil {
		inner, n := wrapped, s.Repeat.Count
		wrapped = func() error {
			return NewRepeatCoordinator(n, inner, opts...).Evaluate()
		}
	}
	if s.Parallel != nil {
		inner, n, timeout := wrapped, s.Parallel.Count, s.Parallel.TimeoutOrDefault()
		wrapped = func() error {
			return NewParallelCoordinator(n, timeout, inner, opts...).Evaluate()
		}
	}
	return wrapped, nil
}
