package enums

import (
	"fmt"
	"strings"
)

// ActorRole is the employee role carried by an authenticated principal.
type ActorRole string

const (
	ActorRoleAdmin   ActorRole = "ADMIN"
	ActorRoleManager ActorRole = "MANAGER"
	ActorRoleWorker  ActorRole = "WORKER"
)

var validActorRoles = []ActorRole{
	ActorRoleAdmin,
	ActorRoleManager,
	ActorRoleWorker,
}

func (r ActorRole) String() string {
	return string(r)
}

// IsValid reports whether the value is a known ActorRole.
func (r ActorRole) IsValid() bool {
	for _, candidate := range validActorRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseActorRole converts raw input into an ActorRole. Matching ignores case.
func ParseActorRole(value string) (ActorRole, error) {
	normalized := strings.ToUpper(strings.TrimSpace(value))
	for _, candidate := range validActorRoles {
		if string(candidate) == normalized {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid actor role %q", value)
}
