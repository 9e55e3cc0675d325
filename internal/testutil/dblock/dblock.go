package dblock

import (
	"net"
	"time"
)

// Test packages that share the integration database serialize through this
// TCP listener; a port can only be held by one process at a time.
const lockAddr = "127.0.0.1:45432"

func Acquire() func() {
	for {
		ln, err := net.Listen("tcp", lockAddr)
		if err == nil {
			return func() { ln.Close() }
		}
		time.Sleep(50 * time.Millisecond)
	}
}
