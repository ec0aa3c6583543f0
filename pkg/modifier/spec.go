package modifier

import (
	"fmt"
	"strings"
	"time"
)

// RetrySpec Retry 声明
type RetrySpec struct {
	Count int `yaml:"count,omitempty" json:"count,omitempty"`
}

// RepeatSpec Repeat 声明，count 必填
type RepeatSpec struct {
	Count int `yaml:"count,omitempty" json:"count,omitempty"`
}

// ParallelSpec Parallel 声明。Timeout 为 nil 时使用默认值，0 表示不等待
type ParallelSpec struct {
	Count   int            `yaml:"count,omitempty" json:"count,omitempty"`
	Timeout *time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
}

// TimeoutOrDefault returns the declared timeout, or DefaultParallelTimeout
// when none was declared.
func (p *ParallelSpec) TimeoutOrDefault() time.Duration {
	if p.Timeout == nil {
		return DefaultParallelTimeout
	}
	return *p.Timeout
}

// Spec declares which modifiers apply to a unit of work. A nil field means
// the modifier is absent.
type Spec struct {
	Retry    *RetrySpec    `yaml:"retry,omitempty" json:"retry,omitempty"`
	Repeat   *RepeatSpec   `yaml:"repeat,omitempty" json:"repeat,omitempty"`
	Parallel *ParallelSpec `yaml:"parallel,omitempty" json:"parallel,omitempty"`
}

// SpecOption configures a Spec built by NewSpec.
type SpecOption func(*Spec)

// NewSpec builds a Spec from options.
func NewSpec(opts ...SpecOption) Spec {
	var s Spec
	for _, opt := range opts {
		opt(&s)
	}
	return s
}

// WithRetry declares Retry. count 0 means DefaultRetryCount.
func WithRetry(count int) SpecOption {
	return func(s *Spec) {
		s.Retry = &RetrySpec{Count: count}
	}
}

// WithRepeat declares Repeat.
func WithRepeat(count int) SpecOption {
	return func(s *Spec) {
		s.Repeat = &RepeatSpec{Count: count}
	}
}

// WithParallel declares Parallel with an explicit timeout. count 0 means
// DefaultParallelCount; timeout 0 means the join does not wait at all.
func WithParallel(count int, timeout time.Duration) SpecOption {
	return func(s *Spec) {
		s.Parallel = &ParallelSpec{Count: count, Timeout: &timeout}
	}
}

// WithParallelCount declares Parallel with DefaultParallelTimeout.
func WithParallelCount(count int) SpecOption {
	return func(s *Spec) {
		s.Parallel = &ParallelSpec{Count: count}
	}
}

// IsEmpty reports whether no modifier is declared.
func (s Spec) IsEmpty() bool {
	return s.Retry == nil && s.Repeat == nil && s.Parallel == nil
}

// Normalize returns a deep copy with declaration defaults applied. Repeat has
// no default and is left as declared.
func (s Spec) Normalize() Spec {
	var out Spec
	if s.Retry != nil {
		r := *s.Retry
		if r.Count == 0 {
			r.Count = DefaultRetryCount
		}
		out.Retry = &r
	}
	if s.Repeat != nil {
		r := *s.Repeat
		out.Repeat = &r
	}
	if s.Parallel != nil {
		p := *s.Parallel
		if p.Count == 0 {
			p.Count = DefaultParallelCount
		}
		timeout := p.TimeoutOrDefault()
		p.Timeout = &timeout
		out.Parallel = &p
	}
	return out
}

// Validate checks a normalized spec.
func (s Spec) Validate() error {
	var errs ValidationErrors
	if s.Retry != nil && s.Retry.Count < 1 {
		errs = append(errs, ValidationError{Field: "retry.count", Message: fmt.Sprintf("must be at least 1, got %d", s.Retry.Count)})
	}
	if s.Repeat != nil && s.Repeat.Count < 1 {
		errs = append(errs, ValidationError{Field: "repeat.count", Message: fmt.Sprintf("is required and must be at least 1, got %d", s.Repeat.Count)})
	}
	if s.Parallel != nil {
		if s.Parallel.Count < 1 {
			errs = append(errs, ValidationError{Field: "parallel.count", Message: fmt.Sprintf("must be at least 1, got %d", s.Parallel.Count)})
		}
		if t := s.Parallel.TimeoutOrDefault(); t < 0 {
			errs = append(errs, ValidationError{Field: "parallel.timeout", Message: fmt.Sprintf("must not be negative, got %v", t)})
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Invocations returns how many times the inner work runs when every
// invocation succeeds.
func (s Spec) Invocations() int {
	n := 1
	if s.Repeat != nil && s.Repeat.Count > 0 {
		n *= s.Repeat.Count
	}
	if s.Parallel != nil && s.Parallel.Count > 0 {
		n *= s.Parallel.Count
	}
	return n
}

// String returns a compact description such as "retry=3 repeat=4 parallel=5/1s".
func (s Spec) String() string {
	if s.IsEmpty() {
		return "none"
	}
	var parts []string
	if s.Retry != nil {
		parts = append(parts, fmt.Sprintf("retry=%d", s.Retry.Count))
	}
	if s.Repeat != nil {
		parts = append(parts, fmt.Sprintf("repeat=%d", s.Repeat.Count))
	}
	if s.Parallel != nil {
		parts = append(parts, fmt.Sprintf("parallel=%d/%v", s.Parallel.Count, s.Parallel.TimeoutOrDefault()))
	}
	return strings.Join(parts, " ")
}

// ValidationError represents a single invalid field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	msgs := make([]string, len(e))
	for i, err := range e {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%s: %s", ErrInvalidSpec, strings.Join(msgs, "; "))
}

// Is makes errors.Is(err, ErrInvalidSpec) hold.
func (e ValidationErrors) Is(target error) bool {
	return target == ErrInvalidSpec
}
