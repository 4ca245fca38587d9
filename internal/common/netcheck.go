package common

import (
	"net"
	"time"
)

// connectivityProbe is a well-known public DNS endpoint. Reaching it proves
// nothing about any particular API, only that the network is up at all.
const connectivityProbe = "8.8.8.8:53"

// DefaultProbeTimeout bounds the connectivity check.
const DefaultProbeTimeout = 5 * time.Second

// IsNetworkReachable reports whether the network is up by attempting a TCP
// connection to a public DNS server. Price resolution requires connectivity;
// callers treat false as a fatal precondition for the run.
func IsNetworkReachable(timeout time.Duration) bool {
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}
	conn, err := net.DialTimeout("tcp", connectivityProbe, timeout)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}
