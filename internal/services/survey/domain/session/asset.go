package session

import (
	"fmt"
	"strings"
)

// AssetKey derives the storage key of an item's upload. The same participant
// and index always map to the same key, so a retried upload overwrites.
func AssetKey(prefix, participantID string, index int) string {
	name := fmt.Sprintf("%s_%d.png", strings.ReplaceAll(participantID, "/", "_"), index)
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		return name
	}
	return prefix + "/" + name
}
