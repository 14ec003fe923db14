// Package flow implements the gift conversation: slot extraction, the
// dialogue state machine, category and recommendation generation, and
// selection parsing. Session state lives in the store behind a StateManager
// so a restart resumes every conversation where it left off.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ParthPatel00/SantAI/internal/models"
	"github.com/ParthPatel00/SantAI/internal/store"
)

// StateManager abstracts persistent per-user conversation state.
type StateManager interface {
	// GetCurrentState retrieves the current state for a user in a flow.
	// Returns an empty state when the user has no session yet.
	GetCurrentState(ctx context.Context, userID string, flowType models.FlowType) (models.StateType, error)

	// SetCurrentState updates the current state for a user in a flow.
	SetCurrentState(ctx context.Context, userID string, flowType models.FlowType, state models.StateType) error

	// GetStateData retrieves a state data value; empty string when absent.
	GetStateData(ctx context.Context, userID string, flowType models.FlowType, key models.DataKey) (string, error)

	// SetStateData stores a state data value.
	SetStateData(ctx context.Context, userID string, flowType models.FlowType, key models.DataKey, value string) error

	// TransitionState moves fromState to toState, verifying the current state.
	TransitionState(ctx context.Context, userID string, flowType models.FlowType, fromState, toState models.StateType) error

	// ResetState removes all state for a user in a flow.
	ResetState(ctx context.Context, userID string, flowType models.FlowType) error
}

// StoreBasedStateManager implements StateManager using a Store backend.
type StoreBasedStateManager struct {
	store store.Store
}

// NewStoreBasedStateManager creates a new StateManager backed by a Store.
func NewStoreBasedStateManager(st store.Store) *StoreBasedStateManager {
	slog.Debug("Creating StoreBasedStateManager")
	return &StoreBasedStateManager{store: st}
}

// GetCurrentState retrieves the current state for a user in a flow.
func (sm *StoreBasedStateManager) GetCurrentState(ctx context.Context, userID string, flowType models.FlowType) (models.StateType, error) {
	flowState, err := sm.store.GetFlowState(userID, string(flowType))
	if err != nil {
		slog.Error("StateManager GetCurrentState error", "error", err, "userID", userID, "flowType", flowType)
		return "", err
	}

	if flowState == nil {
		slog.Debug("StateManager GetCurrentState not found", "userID", userID, "flowType", flowType)
		return "", nil
	}

	slog.Debug("StateManager GetCurrentState found", "userID", userID, "flowType", flowType, "state", flowState.CurrentState)
	return flowState.CurrentState, nil
}

// SetCurrentState updates the current state for a user in a flow.
func (sm *StoreBasedStateManager) SetCurrentState(ctx context.Context, userID string, flowType models.FlowType, state models.StateType) error {
	slog.Debug("StateManager SetCurrentState", "userID", userID, "flowType", flowType, "state", state)

	flowState, err := sm.store.GetFlowState(userID, string(flowType))
	if err != nil {
		slog.Error("StateManager SetCurrentState get error", "error", err, "userID", userID, "flowType", flowType)
		return err
	}

	now := time.Now()
	if flowState == nil {
		flowState = &models.FlowState{
			UserID:       userID,
			FlowType:     flowType,
			CurrentState: state,
			StateData:    make(map[models.DataKey]string),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	} else {
		flowState.CurrentState = state
		flowState.UpdatedAt = now
	}

	if err := sm.store.SaveFlowState(*flowState); err != nil {
		slog.Error("StateManager SetCurrentState save error", "error", err, "userID", userID, "flowType", flowType, "state", state)
		return err
	}

	return nil
}

// GetStateData retrieves additional data associated with the user's state.
func (sm *StoreBasedStateManager) GetStateData(ctx context.Context, userID string, flowType models.FlowType, key models.DataKey) (string, error) {
	flowState, err := sm.store.GetFlowState(userID, string(flowType))
	if err != nil {
		slog.Error("StateManager GetStateData error", "error", err, "userID", userID, "flowType", flowType, "key", key)
		return "", err
	}

	if flowState == nil || flowState.StateData == nil {
		return "", nil
	}

	return flowState.StateData[key], nil
}

// SetStateData stores additional data associated with the user's state.
func (sm *StoreBasedStateManager) SetStateData(ctx context.Context, userID string, flowType models.FlowType, key models.DataKey, value string) error {
	slog.Debug("StateManager SetStateData", "userID", userID, "flowType", flowType, "key", key)

	flowState, err := sm.store.GetFlowState(userID, string(flowType))
	if err != nil {
		slog.Error("StateManager SetStateData get error", "error", err, "userID", userID, "flowType", flowType, "key", key)
		return err
	}

	now := time.Now()
	if flowState == nil {
		flowState = &models.FlowState{
			UserID:       userID,
			FlowType:     flowType,
			CurrentState: "",
			StateData:    map[models.DataKey]string{key: value},
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	} else {
		if flowState.StateData == nil {
			flowState.StateData = make(map[models.DataKey]string)
		}
		flowState.StateData[key] = value
		flowState.UpdatedAt = now
	}

	if err := sm.store.SaveFlowState(*flowState); err != nil {
		slog.Error("StateManager SetStateData save error", "error", err, "userID", userID, "flowType", flowType, "key", key)
		return err
	}

	return nil
}

// TransitionState transitions from one state to another.
func (sm *StoreBasedStateManager) TransitionState(ctx context.Context, userID string, flowType models.FlowType, fromState, toState models.StateType) error {
	currentState, err := sm.GetCurrentState(ctx, userID, flowType)
	if err != nil {
		return err
	}

	if currentState != fromState {
		err := fmt.Errorf("invalid state transition: expected %s, current is %s", fromState, currentState)
		slog.Error("StateManager TransitionState invalid transition", "error", err, "userID", userID, "flowType", flowType, "expected", fromState, "current", currentState)
		return err
	}

	if err := sm.SetCurrentState(ctx, userID, flowType, toState); err != nil {
		return err
	}

	slog.Info("StateManager TransitionState succeeded", "userID", userID, "flowType", flowType, "from", fromState, "to", toState)
	return nil
}

// ResetState removes all state data for a user in a flow.
func (sm *StoreBasedStateManager) ResetState(ctx context.Context, userID string, flowType models.FlowType) error {
	if err := sm.store.DeleteFlowState(userID, string(flowType)); err != nil {
		slog.Error("StateManager ResetState error", "error", err, "userID", userID, "flowType", flowType)
		return err
	}

	slog.Info("StateManager ResetState succeeded", "userID", userID, "flowType", flowType)
	return nil
}
