package workflow

import "cwcinspect/models"

// Required ranks of the EE and SE approval stages. They are fixed so that
// the forward branches follow a redefined rank table.
const (
	eeStageRank = 2
	seStageRank = 3
)

// Machine computes report transitions against a rank table.
type Machine struct {
	Ranks RankTable
}

// NewMachine returns a machine using ranks, or DefaultRanks when nil.
func NewMachine(ranks RankTable) *Machine {
	if ranks == nil {
		ranks = DefaultRanks
	}
	return &Machine{Ranks: ranks}
}

// Next returns the status that follows current when action is applied.
// inspectorRole is the level the report was created with: an approval
// closes the report once the stage's required rank covers the inspector,
// and forwards it to the next tier otherwise. Unknown combinations leave
// the status unchanged.
func (m *Machine) Next(current models.Status, inspectorRole models.Level, action models.Action) models.Status {
	switch action {
	case models.ActionComply:
		if current == models.StatusPendingCompliance {
			return models.StatusPendingEE
		}
	case models.ActionApprove:
		rank := m.Ranks.Rank(inspectorRole)
		switch current {
		case models.StatusPendingEE:
			if rank <= eeStageRank {
				return models.StatusClosed
			}
			return models.StatusPendingSE
		case models.StatusPendingSE:
			if rank <= seStageRank {
				return models.StatusClosed
			}
			return models.StatusPendingCE
		case models.StatusPendingCE:
			return models.StatusClosed
		}
	}
	return current
}

var defaultMachine = NewMachine(DefaultRanks)

// Next applies action with the default rank table.
func Next(current models.Status, inspectorRole models.Level, action models.Action) models.Status {
	return defaultMachine.Next(current, inspectorRole, action)
}

// ActionFor returns the single action a report in status accepts.
func ActionFor(status models.Status) models.Action {
	switch status {
	case models.StatusPendingCompliance:
		return models.ActionComply
	case models.StatusPendingEE, models.StatusPendingSE, models.StatusPendingCE:
		return models.ActionApprove
	}
	return models.ActionNone
}
