package auth

import (
	"fmt"
	"go-ws-relay/internal/logger"

	"github.com/casbin/casbin/v2"
)

// SeedDefaultPolicies ensures a baseline set of publish rules exists.
// Existing rules are left alone, so it is safe to run on every start.
func SeedDefaultPolicies(e casbin.IEnforcer, log logger.Logger) {
	log.Info("Seeding default authorization policies...")

	// Members may talk in the chat facility; admins may publish anywhere.
	policies := [][]string{
		{"member", "chat", ActionPublish},
		{"admin", "*", ActionPublish},
	}
	for _, p := range policies {
		if has, _ := e.HasPolicy(p); !has {
			if _, err := e.AddPolicy(p); err != nil {
				log.Error(err, fmt.Sprintf("Failed to add policy %v", p))
			}
		}
	}

	if has, _ := e.HasRoleForUser("admin", "member"); !has {
		if _, err := e.AddRoleForUser("admin", "member"); err != nil {
			log.Error(err, "Failed to add role 'admin' -> 'member'")
		}
	}
	log.Info("Policy seeding complete.")
}
