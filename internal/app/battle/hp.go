package battle

import "math/rand"

// ReduceHP applies damage with a floor at zero.
func ReduceHP(currentHP, damage int) int {
	if damage >= currentHP {
		return 0
	}
	return currentHP - damage
}

// Damage computes a move's damage from the attacker's attack stat, the
// defender's defense stat, the move's power, and a multiplier drawn
// from [0.85, 1.15]. Always at least 1 so stalls cannot go forever.
func Damage(attack, defense, power int, multiplier float64) int {
	if defense < 1 {
		defense = 1
	}
	base := float64(power) * float64(attack) / float64(defense)
	dmg := int(base * multiplier)
	if dmg < 1 {
		dmg = 1
	}
	return dmg
}

// DamageMultiplier draws the random factor for Damage.
func DamageMultiplier(rng *rand.Rand) float64 {
	return 0.85 + rng.Float64()*0.30
}
