package game

import (
	"fmt"
	"slices"

	"github.com/aaronzipp/avalon-alone/internal/models"
)

// RoleInfo describes a role in the catalog
type RoleInfo struct {
	Role        models.Role      `json:"role"`
	Alignment   models.Alignment `json:"alignment"`
	Description string           `json:"description"`
}

var catalog = []RoleInfo{
	{models.RoleMerlin, models.Good, "Knows the evil players except Mordred. Must stay hidden from the Assassin."},
	{models.RolePercival, models.Good, "Sees Merlin and Morgana but cannot tell them apart."},
	{models.RoleLoyalServant, models.Good, "Knows nothing beyond their own loyalty."},
	{models.RoleMorgana, models.Evil, "Appears as Merlin to Percival."},
	{models.RoleAssassin, models.Evil, "Gets one attempt to name Merlin once good completes three missions."},
	{models.RoleMordred, models.Evil, "Hidden from Merlin."},
	{models.RoleOberon, models.Evil, "Sees the rest of evil but is invisible to them. Merlin still sees Oberon."},
	{models.RoleMinion, models.Evil, "A plain servant of Mordred."},
}

// roleSets is the fixed role multiset dealt for each supported player count.
var roleSets = map[int][]models.Role{
	5: {
		models.RoleMerlin, models.RolePercival, models.RoleLoyalServant,
		models.RoleMorgana, models.RoleAssassin,
	},
	6: {
		models.RoleMerlin, models.RolePercival, models.RoleLoyalServant, models.RoleLoyalServant,
		models.RoleMorgana, models.RoleAssassin,
	},
	7: {
		models.RoleMerlin, models.RolePercival, models.RoleLoyalServant, models.RoleLoyalServant,
		models.RoleMorgana, models.RoleAssassin, models.RoleOberon,
	},
	8: {
		models.RoleMerlin, models.RolePercival, models.RoleLoyalServant, models.RoleLoyalServant, models.RoleLoyalServant,
		models.RoleMorgana, models.RoleAssassin, models.RoleMinion,
	},
	9: {
		models.RoleMerlin, models.RolePercival, models.RoleLoyalServant, models.RoleLoyalServant, models.RoleLoyalServant, models.RoleLoyalServant,
		models.RoleMorgana, models.RoleAssassin, models.RoleMordred,
	},
	10: {
		models.RoleMerlin, models.RolePercival, models.RoleLoyalServant, models.RoleLoyalServant, models.RoleLoyalServant, models.RoleLoyalServant,
		models.RoleMorgana, models.RoleAssassin, models.RoleMordred, models.RoleOberon,
	},
}

// Roles returns the full role catalog.
func Roles() []RoleInfo {
	return slices.Clone(catalog)
}

// Lookup returns the catalog entry for r.
func Lookup(r models.Role) (RoleInfo, bool) {
	for _, info := range catalog {
		if info.Role == r {
			return info, true
		}
	}
	return RoleInfo{}, false
}

// AlignmentOf returns the side r plays for. Unknown roles have no alignment.
func AlignmentOf(r models.Role) models.Alignment {
	info, ok := Lookup(r)
	if !ok {
		return ""
	}
	return info.Alignment
}

// IsEvil reports whether r plays for evil.
func IsEvil(r models.Role) bool {
	return AlignmentOf(r) == models.Evil
}

// RolesFor returns a fresh copy of the role list dealt at a table of playerCount.
func RolesFor(playerCount int) ([]models.Role, error) {
	roles, ok := roleSets[playerCount]
	if !ok {
		return nil, fmt.Errorf("%w: %d players", ErrUnsupportedPlayerCount, playerCount)
	}
	return slices.Clone(roles), nil
}
