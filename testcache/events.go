package testcache

// Event log action tags.
const (
	EventHit        = "HIT"
	EventInFlight   = "IN_FLIGHT"
	EventFetch      = "FETCH"
	EventFetched    = "FETCHED"
	EventFetchErr   = "FETCH_ERR"
	EventExpired    = "EXPIRED"
	EventPersist    = "PERSIST"
	EventPersistErr = "PERSIST_ERR"
	EventRestore    = "RESTORE"
	EventRestoreErr = "RESTORE_ERR"
	EventDelete     = "DELETE"
	EventClear      = "CLEAR"
)

// IsErrorEvent says whether an action tag records a failure.
func IsErrorEvent(action string) bool {
	switch action {
	case EventFetchErr, EventPersistErr, EventRestoreErr:
		return true
	}
	return false
}
