package incentive_test

import (
	"testing"

	"github.com/warp/incentive-engine/incentive"
)

func TestDirectory_DisplayNameFallback(t *testing.T) {
	// GIVEN: A directory with one known user
	// WHEN: Resolving a known and an unknown id
	// THEN: Known ids resolve, unknown ids truncate to 8 characters

	dir := incentive.NewDirectory()
	dir.Put("user-alice", "Alice Moreau")

	if got := dir.DisplayName("user-alice"); got != "Alice Moreau" {
		t.Errorf("expected resolved name, got %q", got)
	}
	if got := dir.DisplayName("user-unknown-123"); got != "user-unk" {
		t.Errorf("expected truncated fallback 'user-unk', got %q", got)
	}
	if got := dir.DisplayName("short"); got != "short" {
		t.Errorf("short ids pass through unchanged, got %q", got)
	}
}

func TestDirectory_ReplaceSwapsContents(t *testing.T) {
	// GIVEN: A populated directory
	// WHEN: Replacing with a new user set
	// THEN: Old entries are gone, nameless users are skipped

	dir := incentive.NewDirectory()
	dir.Put("user-old", "Old Name")

	dir.Replace([]incentive.User{
		{ID: "user-new", Name: "New Name"},
		{ID: "user-nameless"},
	})

	if dir.Len() != 1 {
		t.Errorf("expected 1 named entry after replace, got %d", dir.Len())
	}
	if got := dir.DisplayName("user-old"); got != "user-old" {
		t.Errorf("expected old entry dropped, got %q", got)
	}
	if got := dir.DisplayName("user-new"); got != "New Name" {
		t.Errorf("expected new entry resolved, got %q", got)
	}
}
