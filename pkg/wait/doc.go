// Package wait polls conditions about eventually-consistent state.
//
// Until repeatedly evaluates a Probe at a fixed interval until it reports true or
// the Spec's timeout elapses. Probe errors mean "not converged yet" and never end
// the wait early. A timeout surfaces as a *TimeoutError carrying the description
// and the elapsed time, so a failing test names the condition that never converged.
//
// Key features:
//   - Generic condition polling (Until)
//   - Service health polling (ForService)
//   - Existence checks that report instead of failing (ForExistence)
//   - Teardown verification across many resources (ForCleanup)
package wait
