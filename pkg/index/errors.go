package index

// EmptyIndexError reports that the DFA's language, intersected with the
// vocabulary, admits no token from the initial state and the initial state
// is not itself accepting: there is no sequence of tokens that can ever
// satisfy the grammar. Build also returns it when Options.MaxVisitedStates
// is exceeded.
type EmptyIndexError struct{}

func (e *EmptyIndexError) Error() string {
	return "index: language intersected with vocabulary is empty"
}

// CancelledError reports that construction was stopped by a cooperative
// cancellation signal before it completed. No partial Index is returned
// alongside this error.
type CancelledError struct{}

func (e *CancelledError) Error() string { return "index: construction cancelled" }
