// Package engine runs external commands, optionally chained as a pipeline,
// and reports their merged output line by line to an Observer.
//
// Overview
// A Request names the stages to run, whether they are shell lines or direct
// executables, and whether Start blocks. Start validates the stages, builds
// and opens the chain and drives a read loop which turns the output into
// events. The Observer is called synchronously for every event, on the
// goroutine executing the run, and answers with a Reply: a control decision
// and an optional Payload, which ends up in the Result.
//
// Events of one run:
//
//	Starting -> Started -> IOData* -> IOEof | IOError       -> Exited | KillError
//	                       IOData -> ExitRequested          -> Exited | KillError
//	StartError (terminal, invalid stages or chain can't be started)
//
// KillRequested follows every Observer call which invoked Observation.Kill.
// It does not end the loop, the run ends once the killed chain closes its
// output.
//
// Blocking requests run on the caller's goroutine and Start returns the
// finished Result. Non-blocking requests run on a dedicated worker goroutine,
// Start returns at once and Result.Pending yields the finished Result.
//
// Invariants:
//   - Starting fires once, before any chain I/O. Invalid stages end in a
//     single StartError and nothing else.
//   - LineNumber of IOData events is 1, 2, ... N without gaps.
//   - Every run that got past Started ends with exactly one Exited or KillError;
//     the chain is always killed and reaped, even after a natural EOF.
//   - Lines are delivered without the trailing "\n" or "\r\n".
//   - The Result keeps the latest non-empty Payload any Observer call returned.
//
// There are no implicit timeouts. Cancelling the context passed to Start kills
// the chain the same way Observation.Kill does.
package engine
