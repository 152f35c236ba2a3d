// Package fixloop implements the generate, build, fix state machine.
//
// A Controller run moves linearly through
//
//	init -> primary_generation -> initial_build -> fix_loop(1..N) -> terminal
//
// and never re-enters an earlier state. Terminal statuses are success,
// agent_failed, aborted and exhausted_attempts (see domain.Status).
//
// A failed primary generation is fatal: no build or fix attempt follows.
// A failed initial build always leads to at least one fix attempt. Inside
// the fix loop an agent failure only consumes the attempt; the loop goes on
// with the previous build errors. At most MaxFixAttempts attempts are made.
//
// Every error is reported to the Sink before the state changes. The
// controller holds a dirlock.Lock on the working directory for the whole run.
package fixloop
