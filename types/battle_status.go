package types

type BattleStatus string

const (
	BattleActive   BattleStatus = "active"
	BattleResolved BattleStatus = "resolved"
)

// TerritoryState is the control state of a territory.
type TerritoryState string

const (
	StateNeutral    TerritoryState = "neutral"
	StateContested  TerritoryState = "contested"
	StateControlled TerritoryState = "controlled"
)
