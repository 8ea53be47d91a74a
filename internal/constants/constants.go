package constants

import "time"

const (
	// The catalog queues collection exports and answers 202 until the
	// export is ready; we re-issue the identical request after this delay.
	CollectionPollDelay = 2 * time.Second
	MaxPollAttempts     = 10
)

const (
	ExternalAPITimeout = 10 * time.Second
	StreamReadTimeout  = 60 * time.Second
	RequestTimeout     = 90 * time.Second
)

const (
	MinPlayers = 1
	MaxPlayers = 8
)

const (
	ShutdownTimeout = 5 * time.Second
)
