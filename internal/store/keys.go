package store

import "strconv"

// Key prefixes for the record families in the store
const (
	prefixUser    = "user:"
	prefixDomains = "domains:"
	prefixState   = "state:"
)

// UserKey is the record key for a chat user's profile
func UserKey(userID int64) string {
	return prefixUser + strconv.FormatInt(userID, 10)
}

// DomainsKey is the record key for a chat user's owned-domain list
func DomainsKey(userID int64) string {
	return prefixDomains + strconv.FormatInt(userID, 10)
}

// StateKey is the record key for a chat user's conversation state
func StateKey(userID int64) string {
	return prefixState + strconv.FormatInt(userID, 10)
}
