// Package logs finds and tails the per-run log files rigshift writes to the
// configured log directory. It backs `rigshift logs`, including follow mode
// for watching a retarget or job poll that is running in another terminal.
package logs
