/*
directory.go - User display-name resolution

PURPOSE:
  Maps user IDs to display names for the dashboard. The directory is loaded
  separately from the calculation inputs (and may be refreshed in the
  background); the calculation never blocks on it. When a name is missing
  the caller gets a truncated identifier instead of an error, so a stale or
  failed directory load degrades the display, never the numbers.

DESIGN:
  The directory is an explicit parameter to the formatting stage rather than
  hidden global state. Safe for concurrent reads while a refresher replaces
  the contents.

SEE ALSO:
  - dashboard.go: Resolves names for each row
  - api/refresher.go: Background directory reload
*/
package incentive

import "sync"

// =============================================================================
// DIRECTORY
// =============================================================================

// Directory resolves user IDs to display names.
// Concurrency-safe: reads may race with Replace.
type Directory struct {
	mu    sync.RWMutex
	names map[UserID]string
}

func NewDirectory() *Directory {
	return &Directory{names: make(map[UserID]string)}
}

// Replace swaps the directory contents with the given users.
// Users without a name fall back to DisplayName's truncated identifier.
func (d *Directory) Replace(users []User) {
	names := make(map[UserID]string, len(users))
	for _, u := range users {
		if u.Name != "" {
			names[u.ID] = u.Name
		}
	}

	d.mu.Lock()
	d.names = names
	d.mu.Unlock()
}

// Put adds or updates a single entry.
func (d *Directory) Put(id UserID, name string) {
	d.mu.Lock()
	d.names[id] = name
	d.mu.Unlock()
}

// DisplayName returns the user's name, or a truncated identifier when the
// directory has no record for them (not yet loaded, or unknown user).
func (d *Directory) DisplayName(id UserID) string {
	d.mu.RLock()
	name, ok := d.names[id]
	d.mu.RUnlock()

	if ok {
		return name
	}
	return TruncateID(id)
}

// Len returns the number of known users.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.names)
}

// TruncateID shortens a user ID for display when no name is known.
func TruncateID(id UserID) string {
	const max = 8
	if len(id) <= max {
		return string(id)
	}
	return string(id[:max])
}
