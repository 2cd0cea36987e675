package game

import (
	"math/rand"

	"github.com/kazerdira/lupustabula/internal/models"
)

// RoleDistribution returns the deterministic role list for n players
// (6 <= n <= 30), in a fixed but unshuffled order. Callers shuffle before
// assigning to seats.
func RoleDistribution(n int) []models.Role {
	roles := []models.Role{
		models.RoleLupo,
		models.RoleVeggente,
		models.RoleVillico, models.RoleVillico, models.RoleVillico, models.RoleVillico,
	}

	if n >= 7 {
		roles = append(roles, models.RoleLupo)
	}
	if n >= 8 {
		roles = append(roles, models.RoleVillico)
	}
	if n >= 9 {
		roles = append(roles, models.RoleMedium)
	}
	if n >= 10 {
		roles = append(roles, models.RoleIndemoniato)
	}
	if n >= 11 {
		roles = append(roles, models.RoleProtettore)
	}
	if n >= 12 {
		roles = append(roles, models.RoleOracolo)
	}

	// Special-cased at 13/14: at 13 a lone Villico is added; at 14 that
	// slot is replaced by two Massoni instead, jumping the count from 12
	// straight to 14.
	if n == 13 {
		roles = append(roles, models.RoleVillico)
	} else if n >= 14 {
		roles = append(roles, models.RoleMassone, models.RoleMassone)
	}

	if n >= 15 {
		roles = append(roles, models.RoleCriceto)
	}
	if n >= 16 {
		roles = append(roles, models.RoleKamikaze)
	}
	if n >= 17 {
		roles = append(roles, models.RoleMitomane)
	}
	if n >= 18 {
		roles = append(roles, models.RoleVillico)
	}
	if n >= 19 {
		roles = append(roles, models.RoleLupo)
	}
	if n >= 20 {
		roles = append(roles, models.RoleVillico)
	}
	if n >= 21 {
		roles = append(roles, models.RoleIndemoniato)
	}
	if n >= 22 {
		roles = append(roles, models.RoleCriceto)
	}

	for len(roles) < n {
		roles = append(roles, models.RoleVillico)
	}

	return roles[:n]
}

// AssignRoles shuffles the distribution for n players and returns a
// role-per-seat slice of length n.
func AssignRoles(n int) []models.Role {
	roles := RoleDistribution(n)
	shuffled := make([]models.Role, len(roles))
	copy(shuffled, roles)
	rand.Shuffle(len(shuffled), func(i, j int) {
		shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
	})
	return shuffled
}

// RolesInGame tallies a role list into counts, for Game.RolesInGame.
func RolesInGame(roles []models.Role) map[models.Role]int {
	counts := make(map[models.Role]int)
	for _, r := range roles {
		counts[r]++
	}
	return counts
}

// HasNightAction reports whether role may submit actionType at night.
func HasNightAction(role models.Role, actionType models.ActionType) bool {
	for _, a := range models.RoleActions[role] {
		if a == actionType {
			return true
		}
	}
	return false
}
