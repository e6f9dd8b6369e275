package store

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"
)

// NewReviewID creates a unique, time-ordered identifier for a Review:
// review-<timestamp>-<hash>, e.g. review-20260730T143052Z-a3f9c2. The
// hash folds in the repository/PR/head-commit coordinates plus
// nanosecond time so retried reviews of the same PR still get distinct
// IDs.
func NewReviewID(timestamp time.Time, repositoryID int64, prNumber int, headSHA string) string {
	ts := timestamp.UTC().Format("20060102T150405Z")

	input := fmt.Sprintf("%d|%d|%s|%d", repositoryID, prNumber, headSHA, timestamp.UnixNano())
	hash := sha256.Sum256([]byte(input))
	shortHash := hex.EncodeToString(hash[:3])

	return fmt.Sprintf("review-%s-%s", ts, shortHash)
}

// CalculateConfigHash hashes a JSON-serializable config value so the
// effective configuration can be logged and compared across restarts
// without logging secrets inline.
func CalculateConfigHash(config any) (string, error) {
	data, err := json.Marshal(config)
	if err != nil {
		return "", fmt.Errorf("store: marshal config: %w", err)
	}
	hash := sha256.Sum256(data)
	return hex.EncodeToString(hash[:]), nil
}
