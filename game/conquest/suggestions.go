package conquest

import (
	"fmt"
	"sort"

	"github.com/google/uuid"

	"terraconquest/types"
)

// Suggestion is one recommended action, ranked by priority.
type Suggestion struct {
	Type             string         `json:"type"`
	Priority         types.Priority `json:"priority"`
	TerritoryID      uuid.UUID      `json:"territory_id"`
	TerritoryName    string         `json:"territory_name"`
	Reason           string         `json:"reason"`
	RecommendedUnits int            `json:"recommended_units"`
}

const (
	suggestDefendBorder    = "defend_border"
	suggestDefendTerritory = "defend_territory"
)

// StrategicSuggestions ranks actions for a team: territories about to fall
// are CRITICAL, contested borders are HIGH. Pure read-side aggregation.
func (e *Engine) StrategicSuggestions(teamID uuid.UUID) ([]Suggestion, error) {
	controls, err := e.store.ControlsByController(teamID)
	if err != nil {
		return nil, err
	}

	var suggestions []Suggestion
	for _, control := range controls {
		territory, err := e.store.TerritoryByID(control.TerritoryID)
		if err != nil {
			continue
		}

		if battle, err := e.store.ActiveBattleByTerritory(control.TerritoryID); err == nil && battle.Progress > 50 {
			suggestions = append(suggestions, Suggestion{
				Type:             suggestDefendTerritory,
				Priority:         types.PriorityCritical,
				TerritoryID:      territory.ID,
				TerritoryName:    territory.Name,
				Reason:           fmt.Sprintf("%s is about to fall (%.0f%% conquered)", territory.Name, battle.Progress),
				RecommendedUnits: 15,
			})
			continue
		}

		for _, cid := range territory.Connected {
			neighborControl, err := e.store.ControlByTerritory(cid)
			if err != nil || neighborControl.ControllerID == nil || *neighborControl.ControllerID == teamID {
				continue
			}
			neighbor, err := e.store.TerritoryByID(cid)
			if err != nil {
				continue
			}
			suggestions = append(suggestions, Suggestion{
				Type:             suggestDefendBorder,
				Priority:         types.PriorityHigh,
				TerritoryID:      territory.ID,
				TerritoryName:    territory.Name,
				Reason:           fmt.Sprintf("border with %s is contested", neighbor.Name),
				RecommendedUnits: 10,
			})
			break
		}
	}

	sort.SliceStable(suggestions, func(i, j int) bool {
		return suggestions[i].Priority == types.PriorityCritical && suggestions[j].Priority != types.PriorityCritical
	})
	return suggestions, nil
}
