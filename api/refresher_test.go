package api_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/warp/incentive-engine/api"
	"github.com/warp/incentive-engine/incentive"
	"github.com/warp/incentive-engine/incentive/store"
)

func TestRefreshOnce_PopulatesDirectory(t *testing.T) {
	// GIVEN: A data source with two users
	// WHEN: Refreshing once
	// THEN: Names resolve through the directory

	src := store.NewMemory()
	src.AddUser(incentive.User{ID: "user-alice", Name: "Alice Moreau"})
	src.AddUser(incentive.User{ID: "user-bob", Name: "Bob Tanaka"})

	dir := incentive.NewDirectory()
	refresher := api.NewDirectoryRefresher(src, dir)

	refresher.RefreshOnce(context.Background())

	if dir.Len() != 2 {
		t.Fatalf("expected 2 directory entries, got %d", dir.Len())
	}
	if got := dir.DisplayName("user-alice"); got != "Alice Moreau" {
		t.Errorf("expected resolved name, got %q", got)
	}
}

func TestRefreshOnce_FailureKeepsPreviousNames(t *testing.T) {
	// GIVEN: A loaded directory and a source that starts failing
	// WHEN: Refreshing again
	// THEN: The stale names keep serving

	src := store.NewMemory()
	src.AddUser(incentive.User{ID: "user-alice", Name: "Alice Moreau"})

	dir := incentive.NewDirectory()
	refresher := api.NewDirectoryRefresher(src, dir)
	refresher.RefreshOnce(context.Background())

	src.FailUsers(errors.New("directory unavailable"))
	refresher.RefreshOnce(context.Background())

	if got := dir.DisplayName("user-alice"); got != "Alice Moreau" {
		t.Errorf("expected stale name to keep serving, got %q", got)
	}
}

func TestRefresher_StartStop(t *testing.T) {
	// GIVEN: A running refresher with a short interval
	// WHEN: The source changes and a tick fires
	// THEN: The directory picks up the change; Stop terminates cleanly

	src := store.NewMemory()
	dir := incentive.NewDirectory()

	refresher := api.NewDirectoryRefresher(src, dir)
	refresher.Interval = 10 * time.Millisecond
	refresher.Start()
	defer refresher.Stop()

	src.AddUser(incentive.User{ID: "user-late", Name: "Late Arrival"})

	deadline := time.After(2 * time.Second)
	for dir.Len() == 0 {
		select {
		case <-deadline:
			t.Fatal("directory was never refreshed")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if got := dir.DisplayName("user-late"); got != "Late Arrival" {
		t.Errorf("expected refreshed name, got %q", got)
	}
}

func TestRefresher_DisabledDoesNotStart(t *testing.T) {
	src := store.NewMemory()
	src.AddUser(incentive.User{ID: "user-alice", Name: "Alice Moreau"})

	refresher := api.NewDirectoryRefresher(src, incentive.NewDirectory())
	refresher.Enabled = false
	refresher.Interval = time.Millisecond
	refresher.Start()

	time.Sleep(20 * time.Millisecond)

	if refresher.Directory.Len() != 0 {
		t.Error("disabled refresher must not refresh")
	}
	refresher.Stop() // no-op, must not block or panic
}