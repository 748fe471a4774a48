// utils/http.go
package utils

import (
	"net/http"
	"time"
)

// HTTPClient is the shared client for outbound service-to-service calls
// (profile and entitlement sync). The SSE auth client keeps its own shorter
// timeout because it sits on the connection path.
var HTTPClient = &http.Client{
	Timeout: 30 * time.Second,
}
