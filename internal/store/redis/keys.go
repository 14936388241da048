package redis

import "fmt"

const (
	// KeyPrefixSnapshot is the prefix for snapshot envelope keys
	KeyPrefixSnapshot = "opp:snapshot:"
	// KeyPrefixSaved is the prefix for per-user saved-opportunity sets
	KeyPrefixSaved = "opp:saved:"
	// KeyPrefixPreferences is the prefix for per-user preference documents
	KeyPrefixPreferences = "opp:prefs:"
)

// SnapshotKey returns the Redis key for a snapshot of the given layout version
func SnapshotKey(version int) string {
	return fmt.Sprintf("%sv%d", KeyPrefixSnapshot, version)
}

// SavedKey returns the Redis key for a user's saved set
func SavedKey(userID string) string {
	return KeyPrefixSaved + userID
}

// PreferencesKey returns the Redis key for a user's preferences
func PreferencesKey(userID string) string {
	return KeyPrefixPreferences + userID
}
