package instance

import (
	"os"

	"github.com/google/uuid"
)

// ID identifies this process in logs and lock ownership. It prefers
// NIGHTSHIFT_INSTANCE_ID, then the hostname, then a random suffix.
func ID() string {
	if id := os.Getenv("NIGHTSHIFT_INSTANCE_ID"); id != "" {
		return id
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return "instance-" + uuid.NewString()[:8]
}
