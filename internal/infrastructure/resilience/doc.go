/*
Package resilience provides a circuit breaker for failing dependencies.

The terminal manager routes PTY spawns through a breaker: when the host runs
out of pseudo-terminals or the shell binary keeps failing to start, further
session requests fail fast instead of forking repeatedly.

	breaker := resilience.New("pty-spawn", resilience.Settings{
		Timeout: 30 * time.Second,
		ReadyToTrip: func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 5
		},
	})

	proc, err := resilience.Do(breaker, func() (terminal.Process, error) {
		return spawner.Spawn(opts)
	})

States:

	Closed --[ReadyToTrip]--> Open --[Timeout]--> Half-Open --[MaxRequests successes]--> Closed
	                                                  |
	                                              [failure] --> Open
*/
package resilience
