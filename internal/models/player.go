package models

// Alignment is the side a role plays for
type Alignment string

const (
	Good Alignment = "good"
	Evil Alignment = "evil"
)

// Role is one of the fixed Avalon characters
type Role string

const (
	RoleMerlin       Role = "merlin"
	RolePercival     Role = "percival"
	RoleLoyalServant Role = "loyal_servant"
	RoleMorgana      Role = "morgana"
	RoleAssassin     Role = "assassin"
	RoleMordred      Role = "mordred"
	RoleOberon       Role = "oberon"
	RoleMinion       Role = "minion"
)

// PlayerConfig describes a seat before the game starts
type PlayerConfig struct {
	Name      string `json:"name"`
	Automated bool   `json:"automated"`
}

// Player represents a seated player. Role is empty until roles are assigned.
type Player struct {
	Name      string `json:"name"`
	Seat      int    `json:"seat"`
	Automated bool   `json:"automated"`
	Role      Role   `json:"role,omitempty"`
}

// SecretInfo is what a single player privately knows after role assignment
type SecretInfo struct {
	Name      string    `json:"name"`
	Seat      int       `json:"seat"`
	Role      Role      `json:"role"`
	Alignment Alignment `json:"alignment"`
	Visible   []string  `json:"visible"`
}
