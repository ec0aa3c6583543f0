package modifier

import (
	"errors"
	"fmt"
	"time"
)

// FailureKind classifies why a unit of work failed.
type FailureKind string

const (
	// LogicFailure 测试逻辑失败（断言等）
	LogicFailure FailureKind = "LOGIC_FAILURE"
	// RuntimeFailure 运行时异常（panic、Goexit）
	RuntimeFailure FailureKind = "RUNTIME_FAILURE"
	// TimeoutFailure 并行执行超时
	TimeoutFailure FailureKind = "TIMEOUT_FAILURE"
)

var (
	// ErrCoordinatorUsed is returned when a ParallelCoordinator is evaluated twice.
	ErrCoordinatorUsed = errors.New("parallel coordinator already evaluated")

	// ErrInvalidSpec is matched by every error returned from Spec.Validate.
	ErrInvalidSpec = errors.New("invalid modifier spec")

	// ErrNilWork is returned when wrapping a nil unit of work.
	ErrNilWork = errors.New("unit of work is nil")
)

// Failure is the error reported by the coordinators.
type Failure struct {
	Kind    FailureKind
	Message string
	Cause   error

	// Value holds the recovered panic value for RuntimeFailure.
	Value any
	Stack []byte
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", f.Kind, f.Message, f.Cause)
	}
	return fmt.Sprintf("[%s] %s", f.Kind, f.Message)
}

// Unwrap returns the underlying error.
func (f *Failure) Unwrap() error {
	return f.Cause
}

// Logic marks err as a LogicFailure. A nil err stays nil.
func Logic(err error) error {
	if err == nil {
		return nil
	}
	return &Failure{Kind: LogicFailure, Message: "unit of work failed", Cause: err}
}

// Logicf creates a LogicFailure with a formatted message.
func Logicf(format string, args ...any) error {
	return &Failure{Kind: LogicFailure, Message: fmt.Sprintf(format, args...)}
}

func newPanicFailure(v any, stack []byte) *Failure {
	f := &Failure{
		Kind:    RuntimeFailure,
		Message: fmt.Sprintf("unit of work panicked: %v", v),
		Value:   v,
		Stack:   stack,
	}
	if err, ok := v.(error); ok {
		f.Cause = err
	}
	return f
}

func newGoexitFailure() *Failure {
	return &Failure{
		Kind:    RuntimeFailure,
		Message: "unit of work called runtime.Goexit",
	}
}

func newTimeoutFailure(timeout time.Duration, pending int) *Failure {
	return &Failure{
		Kind:    TimeoutFailure,
		Message: fmt.Sprintf("not all parallel replicas finished within %v (%d pending)", timeout, pending),
	}
}

// KindOf returns the failure kind of err. Errors that are not a *Failure are
// treated as LogicFailure; nil yields the empty kind.
func KindOf(err error) FailureKind {
	if err == nil {
		return ""
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	return LogicFailure
}

// IsTimeout checks if the error is a parallel timeout.
func IsTimeout(err error) bool {
	return KindOf(err) == TimeoutFailure
}

// IsRuntime checks if the error came from a panic or Goexit.
func IsRuntime(err error) bool {
	return KindOf(err) == RuntimeFailure
}

// IsLogic checks if the error is a logic failure.
func IsLogic(err error) bool {
	return KindOf(err) == LogicFailure
}
