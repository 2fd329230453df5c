// Package service runs the jobs of a configuration through the engine.
//
// Overview
// The Supervisor owns an engine.Engine and the list of configured Jobs. One
// round maps the Jobs through parallel.Map, each Job is a blocking request on
// its own goroutine and at most service.parallel of them run at once. A round
// ends when the slowest job ends.
//
// Modes:
//   - manual: Do runs a single round and returns its errors.
//   - timer: Do runs a round immediately and then on the configured cron or
//     duration schedule until the context is cancelled. Rounds never overlap,
//     a round which takes longer than the period delays the next one.
//
// Every Job prints its lines prefixed by the job name through a LineObserver,
// which also implements the stop_on and max_lines rules. With a history file
// configured, every run is recorded by history.Recorder in front of the
// LineObserver.
//
// Cancelling the context kills the chains of the running jobs.
package service
