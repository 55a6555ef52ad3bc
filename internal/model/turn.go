// SPDX-License-Identifier: AGPL-3.0-only
package model

import "time"

// TurnRecord captures one completed conversation turn for the history store.
type TurnRecord struct {
	// SessionID identifies the conversation the turn belongs to.
	SessionID string `json:"session_id"`
	// Prompt is the user input that opened the turn.
	Prompt string `json:"prompt"`
	// Reply is the final assistant text, empty when the turn failed.
	Reply string `json:"reply"`
	// ToolCycles is the number of dispatch cycles the turn ran.
	ToolCycles int `json:"tool_cycles"`
	// Error is the failure description for aborted turns, empty on success.
	Error     string    `json:"error,omitempty"`
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Duration  string    `json:"duration"`
}

// TurnStore is the interface for persisting turn records.
type TurnStore interface {
	// SaveTurn persists a completed turn.
	SaveTurn(record *TurnRecord) error
	// GetTurns returns up to limit turns for the session, most recent first.
	GetTurns(sessionID string, limit int) ([]*TurnRecord, error)
	// Close releases the store's resources.
	Close() error
}
