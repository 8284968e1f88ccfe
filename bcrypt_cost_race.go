//go:build race

package auth

import "golang.org/x/crypto/bcrypt"

const defaultHashCost = bcrypt.DefaultCost

// Reduce cost for race-enabled builds so test suites can run with strict timeouts.
func capHashCost(cost int) int {
	if cost > bcrypt.DefaultCost {
		return bcrypt.DefaultCost
	}
	return cost
}
