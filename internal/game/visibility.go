package game

import "github.com/aaronzipp/avalon-alone/internal/models"

var sightTable = map[models.Role][]models.Role{
	models.RoleMerlin:   {models.RoleMorgana, models.RoleAssassin, models.RoleOberon, models.RoleMinion},
	models.RolePercival: {models.RoleMerlin, models.RoleMorgana},
	models.RoleMorgana:  {models.RoleMorgana, models.RoleAssassin, models.RoleMordred, models.RoleMinion},
	models.RoleAssassin: {models.RoleMorgana, models.RoleAssassin, models.RoleMordred, models.RoleMinion},
	models.RoleMordred:  {models.RoleMorgana, models.RoleAssassin, models.RoleMordred, models.RoleMinion},
	models.RoleMinion:   {models.RoleMorgana, models.RoleAssassin, models.RoleMordred, models.RoleMinion},
	models.RoleOberon:   {models.RoleMorgana, models.RoleAssassin, models.RoleMordred, models.RoleMinion},
}

// CanSee reports whether a player holding viewer learns that subject is special.
// It depends only on the two roles; excluding the viewer's own seat is up to the caller.
func CanSee(viewer, subject models.Role) bool {
	for _, r := range sightTable[viewer] {
		if r == subject {
			return true
		}
	}
	return false
}

// visibleTo lists, in seat order, the other players that the player at seat can see.
func visibleTo(seat int, players []models.Player) []string {
	viewer := players[seat].Role
	visible := make([]string, 0)
	for i, p := range players {
		if i == seat {
			continue
		}
		if CanSee(viewer, p.Role) {
			visible = append(visible, p.Name)
		}
	}
	return visible
}
