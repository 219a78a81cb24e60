package domain

// Ключи блокировок — единое место, чтобы не расползались по коду.
func LockKeyDocument(nodeID string) string { return "lock:doc:" + nodeID }
