package room

import "math/rand"

// HeroPicker chooses a hero for a bot out of the heroes nobody in the
// room has locked yet. It is injected into the Manager so bot behavior
// can be swapped or pinned in tests without touching the state machine.
// available is never empty when the Manager calls it.
type HeroPicker func(available []string) string

// RandomHeroPicker picks uniformly at random from the remaining pool.
func RandomHeroPicker(rng *rand.Rand) HeroPicker {
	return func(available []string) string {
		return available[rng.Intn(len(available))]
	}
}

// FirstHeroPicker always takes the first remaining hero. Deterministic,
// used by tests.
func FirstHeroPicker() HeroPicker {
	return func(available []string) string {
		return available[0]
	}
}
