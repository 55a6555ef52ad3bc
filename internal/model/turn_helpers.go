// SPDX-License-Identifier: AGPL-3.0-only
package model

import (
	"encoding/json"

	"github.com/velonavasiliki/youtube-agent/internal/logging"
)

// PersistAndLogTurn saves a turn record to the store (best-effort) and
// debug-logs it.
func PersistAndLogTurn(store TurnStore, record *TurnRecord, logger *logging.Logger) {
	if store != nil {
		if err := store.SaveTurn(record); err != nil {
			logger.Warnf("Failed to persist turn for session %s: %v", record.SessionID, err)
		}
	}

	jsonData, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		logger.Warnf("Failed to marshal turn for session %s: %v", record.SessionID, err)
	} else {
		logger.Debugf("Session %s turn: %s", record.SessionID, string(jsonData))
	}
}
