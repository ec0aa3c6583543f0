// Package modifier runs a unit of work under the Retry, Repeat and Parallel
// modifiers.
//
// A modifier Spec is turned into a single Work by Wrap. Nesting is fixed:
// Retry wraps the original work, Repeat wraps that, and Parallel wraps the
// result, so with all three present every replica runs Repeat.Count
// iterations and every iteration gets Retry.Count attempts.
//
//	work := modifier.Wrap(body, modifier.NewSpec(
//		modifier.WithRetry(3),
//		modifier.WithRepeat(4),
//		modifier.WithParallel(5, time.Second),
//	))
//	err := work()
//
// Failures are reported as *Failure values classified by FailureKind. A
// parallel timeout does not stop replicas that are still running.
package modifier
