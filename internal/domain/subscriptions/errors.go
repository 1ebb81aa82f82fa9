package subscriptions

import "errors"

var (
	// ErrNotFound means no subscription exists for the given team or
	// customer. Upstream decides the fallback (treat as non-billed).
	ErrNotFound = errors.New("subscription not found")

	// ErrDuplicateSubscription means a team already has a subscription.
	// Never merged silently.
	ErrDuplicateSubscription = errors.New("team already has a subscription")

	// ErrInvalidTransition means an attempt to move trialStatus
	// backward or to set an unrecognized status. The record is left
	// unchanged.
	ErrInvalidTransition = errors.New("invalid subscription transition")
)
