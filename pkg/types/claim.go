package types

import "time"

// DefaultClaimExpiry is how long a claim stays live.
const DefaultClaimExpiry = 2 * time.Hour

// Claim is a short-lived advisory lease on one record. Owner is the
// four character key handed to the claimer.
type Claim struct {
	Owner     string    `json:"owner"`
	Timestamp time.Time `json:"timestamp"`
}

// Expired reports whether the claim is older than expiry at now.
func (c Claim) Expired(now time.Time, expiry time.Duration) bool {
	return now.Sub(c.Timestamp) > expiry
}

// Remaining returns the time left before the claim expires, never negative.
func (c Claim) Remaining(now time.Time, expiry time.Duration) time.Duration {
	left := expiry - now.Sub(c.Timestamp)
	if left < 0 {
		return 0
	}
	return left
}

// ReleasedClaim names a claim removed by expiry or by a status change.
type ReleasedClaim struct {
	TaskID ID     `json:"taskId"`
	Owner  string `json:"owner"`
}

// ClaimStore arbitrates leases on records.
type ClaimStore interface {
	// Claim creates a lease on id and returns its key. Fails with
	// ErrClaimExists while a live claim is held.
	Claim(id ID) (string, error)

	// Unclaim removes the claim holding key and returns the record it
	// covered. Fails with ErrClaimNotFound if no live claim has that key.
	Unclaim(key string) (ID, error)

	// CheckKey reports whether a mutation on id may proceed with key:
	// true if no live claim exists or the live claim's key matches.
	CheckKey(id ID, key string) (bool, error)

	// Get returns the live claim on id, if any.
	Get(id ID) (Claim, bool, error)

	// List returns every live claim.
	List() (map[ID]Claim, error)

	// HandleStatusChange removes the claim on id unless newStatus is
	// StatusClaimed. It returns the removed claim, if any.
	HandleStatusChange(id ID, newStatus Status) (*ReleasedClaim, error)

	// CleanupExpired removes every expired claim and reports them.
	CleanupExpired() ([]ReleasedClaim, error)
}
