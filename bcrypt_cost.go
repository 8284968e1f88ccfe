//go:build !race

package auth

const defaultHashCost = 12

func capHashCost(cost int) int {
	return cost
}
