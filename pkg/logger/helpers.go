package logger

import "time"

// LogPage records one fetched page of the follow list
func LogPage(log Logger, offset, count, total int, duration time.Duration) {
	log.DebugWithFields("Following page fetched", map[string]interface{}{
		"offset":   offset,
		"count":    count,
		"total":    total,
		"duration": duration,
	})
}

// LogMutation records the outcome of one visibility change
func LogMutation(log Logger, userID, outcome string, err error) {
	fields := map[string]interface{}{
		"user_id": userID,
		"outcome": outcome,
	}
	if err != nil {
		fields["error"] = err.Error()
		log.WarnWithFields("Visibility change failed", fields)
		return
	}
	log.DebugWithFields("Visibility changed", fields)
}

// LogRunSummary records the final counts of a run
func LogRunSummary(log Logger, attempted, succeeded, total int, duration time.Duration) {
	log.InfoWithFields("Run completed", map[string]interface{}{
		"attempted": attempted,
		"succeeded": succeeded,
		"failed":    attempted - succeeded,
		"total":     total,
		"duration":  duration,
	})
}

// LogStall records the automation giving up on a phase
func LogStall(log Logger, state, reason string, edited int) {
	log.WarnWithFields("Automation stalled", map[string]interface{}{
		"state":  state,
		"reason": reason,
		"edited": edited,
	})
}
