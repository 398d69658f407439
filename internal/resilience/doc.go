/*
Package resilience provides a circuit breaker for calls to a remote bridge.

# Usage

	breaker := resilience.New("bridge", resilience.Settings{
		Timeout: 30 * time.Second,
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ledger.ErrInsufficientBalance)
		},
	})

	uris, err := resilience.Execute(breaker, func() ([]string, error) {
		return client.List(ctx)
	})

# States

	Closed --[failures]-> Open --[timeout]-> Half-Open --[successes]-> Closed
	                                           |
	                                    [failure]
	                                           |
	                                           v
	                                         Open
*/
package resilience
