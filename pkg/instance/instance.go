package instance

import "github.com/angelmondragon/agristore-backend/pkg/env"

// GetID returns the process instance identifier used in startup logs.
func GetID() string {
	return env.Get("AGRISTORE_INSTANCE_ID", env.Get("DYNO", "local"))
}
