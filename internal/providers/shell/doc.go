// Package shell runs single commands to completion as shell.* tools.
//
// shell.execute validates the command, runs it with sh -c in its own process
// group, and kills the whole group when the timeout expires. stdout and stderr
// are captured separately and capped; the result carries the exit code, any
// terminating signal and a markdown summary.
//
// shell.validate reports the security decision for a command without
// running it.
package shell
