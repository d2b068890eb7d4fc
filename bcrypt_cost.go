//go:build !race

package identity

// DefaultBcryptCost is the adaptive cost used when the configuration does
// not provide one.
const DefaultBcryptCost = 14

func passwordHashCost() int {
	return DefaultBcryptCost
}
