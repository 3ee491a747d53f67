package models

// CampaignState is the lifecycle state of a campaign. It is persisted as its string value.
type CampaignState string

const (
	StateDraft     CampaignState = "Draft"
	StateScheduled CampaignState = "Scheduled"
	StateLive      CampaignState = "Live"
	StatePaused    CampaignState = "Paused"
	StateCancelled CampaignState = "Cancelled"
	StateFinished  CampaignState = "Finished"
)

// Operation is a lifecycle operation requested on a campaign
type Operation string

const (
	OpSchedule   Operation = "schedule"
	OpActivate   Operation = "activate"
	OpPause      Operation = "pause"
	OpResume     Operation = "resume"
	OpCancel     Operation = "cancel"
	OpFinish     Operation = "finish"
	OpEdit       Operation = "edit"
	OpReschedule Operation = "reschedule"
	OpArchive    Operation = "archive"
	OpDelete     Operation = "delete"
)

// AllStates lists every lifecycle state in declaration order
var AllStates = []CampaignState{
	StateDraft, StateScheduled, StateLive, StatePaused, StateCancelled, StateFinished,
}

// AllOperations lists every lifecycle operation in declaration order
var AllOperations = []Operation{
	OpSchedule, OpActivate, OpPause, OpResume, OpCancel,
	OpFinish, OpEdit, OpReschedule, OpArchive, OpDelete,
}

// transitions is the complete legality table. A missing (state, operation) pair is illegal.
// Operations that do not move the campaign map back to the current state.
var transitions = map[CampaignState]map[Operation]CampaignState{
	StateDraft: {
		OpSchedule: StateScheduled,
		OpEdit:     StateDraft,
		OpDelete:   StateDraft,
	},
	StateScheduled: {
		OpActivate:   StateLive,
		OpCancel:     StateCancelled,
		OpReschedule: StateScheduled,
	},
	StateLive: {
		OpPause:  StatePaused,
		OpCancel: StateCancelled,
		OpFinish: StateFinished,
	},
	StatePaused: {
		OpResume:     StateLive,
		OpCancel:     StateCancelled,
		OpEdit:       StatePaused,
		OpReschedule: StateScheduled,
	},
	StateCancelled: {
		OpArchive: StateCancelled,
	},
	StateFinished: {
		OpArchive: StateFinished,
	},
}

// Next returns the state reached by applying op, or an *IllegalTransitionError.
func (s CampaignState) Next(op Operation) (CampaignState, error) {
	next, ok := transitions[s][op]
	if !ok {
		return s, &IllegalTransitionError{Operation: op, State: s}
	}
	return next, nil
}

// Allows reports whether op is legal in state s
func (s CampaignState) Allows(op Operation) bool {
	_, ok := transitions[s][op]
	return ok
}

// AllowedOperations returns the legal operations for s, in AllOperations order
func (s CampaignState) AllowedOperations() []Operation {
	ops := make([]Operation, 0, len(transitions[s]))
	for _, op := range AllOperations {
		if s.Allows(op) {
			ops = append(ops, op)
		}
	}
	return ops
}

// IsValid reports whether s is one of the known states
func (s CampaignState) IsValid() bool {
	_, ok := transitions[s]
	return ok
}

// Armable reports whether a campaign in state s may hold an activation timer
func (s CampaignState) Armable() bool {
	return s == StateScheduled
}
