package game

const (
	// MinPlayers is the minimum number of players required to start a game
	MinPlayers = 5

	// MaxPlayers is the largest table the mission plans cover
	MaxPlayers = 10

	// MissionCount is the number of missions in a full game
	MissionCount = 5

	// MissionsToWin is the number of successful or failed missions that decides the mission phase
	MissionsToWin = 3

	// MaxRejections is the number of consecutive rejected teams that hands the game to evil
	MaxRejections = 5

	// GameCodeLength is the length of generated game codes
	GameCodeLength = 6

	// GameCodeChars are the characters used for generating game codes (excluding ambiguous chars)
	GameCodeChars = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

	// MaxNameLength bounds player names
	MaxNameLength = 32

	// MaxMessageLength bounds a single line of table talk
	MaxMessageLength = 280
)
