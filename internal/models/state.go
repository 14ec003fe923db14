// Package models defines state management structures for conversation flows.
package models

import "time"

// FlowState represents the current state of a user within a conversation flow.
type FlowState struct {
	UserID       string             `json:"user_id"`
	FlowType     FlowType           `json:"flow_type"`
	CurrentState StateType          `json:"current_state"`
	StateData    map[DataKey]string `json:"state_data,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}
