// Package ranker fetches runner scores from the upstream ranking model service.
package ranker

import "errors"

var (
	// ErrRankerUnavailable indicates the ranker could not be reached or kept failing
	ErrRankerUnavailable = errors.New("ranker service unavailable")

	// ErrInvalidResponse indicates the ranker answered with a malformed payload
	ErrInvalidResponse = errors.New("invalid response from ranker")

	// ErrCircuitOpen indicates requests are short-circuited after repeated failures
	ErrCircuitOpen = errors.New("ranker circuit breaker open")
)
