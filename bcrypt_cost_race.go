//go:build race

package identity

import "golang.org/x/crypto/bcrypt"

// DefaultBcryptCost mirrors the production cost so configuration code can
// reference it under race builds too.
const DefaultBcryptCost = 14

func passwordHashCost() int {
	// Reduce cost for race-enabled builds so test suites can run with strict timeouts.
	return bcrypt.DefaultCost
}
