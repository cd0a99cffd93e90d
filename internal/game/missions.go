package game

import (
	"fmt"

	"github.com/aaronzipp/avalon-alone/internal/models"
)

type missionSizing struct {
	teamSizes   [MissionCount]int
	failsNeeded [MissionCount]int
}

var missionPlans = map[int]missionSizing{
	5:  {[MissionCount]int{2, 3, 2, 3, 3}, [MissionCount]int{1, 1, 1, 1, 1}},
	6:  {[MissionCount]int{2, 3, 4, 3, 4}, [MissionCount]int{1, 1, 1, 1, 1}},
	7:  {[MissionCount]int{2, 3, 3, 4, 4}, [MissionCount]int{1, 1, 1, 2, 1}},
	8:  {[MissionCount]int{3, 4, 4, 5, 5}, [MissionCount]int{1, 1, 1, 2, 1}},
	9:  {[MissionCount]int{3, 4, 4, 5, 5}, [MissionCount]int{1, 1, 1, 2, 1}},
	10: {[MissionCount]int{3, 4, 4, 5, 5}, [MissionCount]int{1, 1, 1, 2, 1}},
}

// MissionPlan returns the five mission slots for a table of playerCount.
func MissionPlan(playerCount int) ([]models.MissionSlot, error) {
	sizing, ok := missionPlans[playerCount]
	if !ok {
		return nil, fmt.Errorf("%w: %d players", ErrUnsupportedPlayerCount, playerCount)
	}
	slots := make([]models.MissionSlot, MissionCount)
	for i := range MissionCount {
		slots[i] = models.MissionSlot{
			Index:       i + 1,
			TeamSize:    sizing.teamSizes[i],
			FailsNeeded: sizing.failsNeeded[i],
		}
	}
	return slots, nil
}

// SupportedPlayerCounts lists the table sizes with a mission plan, ascending.
func SupportedPlayerCounts() []int {
	counts := make([]int, 0, MaxPlayers-MinPlayers+1)
	for n := MinPlayers; n <= MaxPlayers; n++ {
		if _, ok := missionPlans[n]; ok {
			counts = append(counts, n)
		}
	}
	return counts
}
