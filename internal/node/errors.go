package node

import "errors"

// Transport configuration errors.
var (
	// ErrInvalidBaseURL is returned when the node URL is not an absolute
	// http or https URL with a host.
	ErrInvalidBaseURL = errors.New("invalid node URL: expected http(s)://host[:port]")

	// ErrInvalidProxyAddress is returned when the SOCKS5 proxy address format
	// is invalid. Expected format is "host:port".
	ErrInvalidProxyAddress = errors.New("invalid proxy address format: expected host:port")
)
