package models_test

import (
	"errors"
	"testing"
	"time"

	"github.com/onegreenvn/campaign-lifecycle-backend/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCampaignState_Next(t *testing.T) {
	legal := map[models.CampaignState]map[models.Operation]models.CampaignState{
		models.StateDraft: {
			models.OpSchedule: models.StateScheduled,
			models.OpEdit:     models.StateDraft,
			models.OpDelete:   models.StateDraft,
		},
		models.StateScheduled: {
			models.OpActivate:   models.StateLive,
			models.OpCancel:     models.StateCancelled,
			models.OpReschedule: models.StateScheduled,
		},
		models.StateLive: {
			models.OpPause:  models.StatePaused,
			models.OpCancel: models.StateCancelled,
			models.OpFinish: models.StateFinished,
		},
		models.StatePaused: {
			models.OpResume:     models.StateLive,
			models.OpCancel:     models.StateCancelled,
			models.OpEdit:       models.StatePaused,
			models.OpReschedule: models.StateScheduled,
		},
		models.StateCancelled: {
			models.OpArchive: models.StateCancelled,
		},
		models.StateFinished: {
			models.OpArchive: models.StateFinished,
		},
	}

	for _, state := range models.AllStates {
		for _, op := range models.AllOperations {
			t.Run(string(state)+"/"+string(op), func(t *testing.T) {
				next, err := state.Next(op)
				want, ok := legal[state][op]
				if ok {
					require.NoError(t, err)
					assert.Equal(t, want, next)
					assert.True(t, state.Allows(op))
					return
				}

				require.Error(t, err)
				assert.True(t, errors.Is(err, models.ErrIllegalTransition))
				var illegal *models.IllegalTransitionError
				require.ErrorAs(t, err, &illegal)
				assert.Equal(t, op, illegal.Operation)
				assert.Equal(t, state, illegal.State)
				assert.Equal(t, state, next)
				assert.False(t, state.Allows(op))
			})
		}
	}
}

func TestCampaign_Apply(t *testing.T) {
	c := models.NewDraftCampaign("Spring promo", "Enrollment", models.ChannelMailing)

	prev, err := c.Apply(models.OpSchedule)
	require.NoError(t, err)
	assert.Equal(t, models.StateDraft, prev)
	assert.Equal(t, models.StateScheduled, c.State)

	// Illegal operations leave the campaign untouched
	prev, err = c.Apply(models.OpPause)
	assert.ErrorIs(t, err, models.ErrIllegalTransition)
	assert.Equal(t, models.StateScheduled, prev)
	assert.Equal(t, models.StateScheduled, c.State)
}

func TestCampaignState_AllowedOperations(t *testing.T) {
	assert.Equal(t, []models.Operation{models.OpSchedule, models.OpEdit, models.OpDelete}, models.StateDraft.AllowedOperations())
	assert.Equal(t, []models.Operation{models.OpPause, models.OpCancel, models.OpFinish}, models.StateLive.AllowedOperations())
	assert.Equal(t, []models.Operation{models.OpArchive}, models.StateFinished.AllowedOperations())
	assert.Empty(t, models.CampaignState("Unknown").AllowedOperations())
}

func TestCampaignState_Armable(t *testing.T) {
	for _, state := range models.AllStates {
		assert.Equal(t, state == models.StateScheduled, state.Armable(), string(state))
	}
	assert.False(t, models.CampaignState("Bogus").IsValid())
}

func TestCampaign_DueBy(t *testing.T) {
	now := time.Date(2025, 8, 14, 9, 0, 0, 0, time.UTC)
	c := models.NewDraftCampaign("Spring promo", "Enrollment", models.ChannelCalls)
	assert.False(t, c.DueBy(now), "no start time")

	start := now
	c.ScheduledStart = &start
	assert.True(t, c.DueBy(now), "start equal to now is due")
	assert.False(t, c.DueBy(now.Add(-time.Second)))
	assert.True(t, c.DueBy(now.Add(time.Second)))
}

func TestErrors(t *testing.T) {
	cause := errors.New("smtp relay down")

	execErr := &models.ExecutionError{CampaignID: 3, Channel: models.ChannelMailing, Operation: "Activated", Err: cause}
	assert.ErrorIs(t, execErr, models.ErrExecution)
	assert.ErrorIs(t, execErr, cause)
	assert.Contains(t, execErr.Error(), "campaign 3")

	auditErr := &models.AuditRecordingError{EventID: "e-1", CampaignID: 3, Action: models.ActionPaused, Err: cause}
	assert.ErrorIs(t, auditErr, models.ErrAuditRecording)
	assert.ErrorIs(t, auditErr, cause)

	validationErr := models.NewValidationError("name", "is required")
	assert.ErrorIs(t, validationErr, models.ErrValidation)
	assert.Equal(t, "name: is required", validationErr.Error())
}

func TestActionType_Description(t *testing.T) {
	assert.Equal(t, "Campaign execution was paused", models.ActionPaused.Description())
	assert.True(t, models.ActionExecutionError.IsValid())
	assert.False(t, models.ActionType("Exploded").IsValid())
	assert.Equal(t, "Exploded", models.ActionType("Exploded").Description())
}
