package types

type MoveType string

const (
	MoveAttack    MoveType = "attack"
	MoveDefend    MoveType = "defend"
	MoveReinforce MoveType = "reinforce"
)

func (m MoveType) Valid() bool {
	switch m {
	case MoveAttack, MoveDefend, MoveReinforce:
		return true
	}
	return false
}
