/*
refresher.go - Background user directory refresher

PURPOSE:
  Periodically reloads the user directory used for display-name
  resolution. The incentive calculation never waits on this: when a name
  is missing (refresh pending or failed) the dashboard shows a truncated
  identifier instead.

DESIGN:
  - Runs a background goroutine with configurable refresh interval
  - Failures are logged and the previous directory contents keep serving
  - An initial synchronous refresh can be done with RefreshOnce at startup

CONFIGURATION:
  - Interval: How often to refresh (default: 5 minutes)
  - Enabled:  Whether the refresher is active (default: true)

USAGE:
  refresher := NewDirectoryRefresher(store, handler.Directory)
  refresher.Start()
  // ... later
  refresher.Stop()

SEE ALSO:
  - incentive/directory.go: Directory with truncated-id fallback
  - handlers.go: Directory consumer
*/
package api

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/warp/incentive-engine/incentive"
)

// DirectoryRefresher keeps the display-name directory current.
type DirectoryRefresher struct {
	Source    incentive.DataSource
	Directory *incentive.Directory
	Interval  time.Duration
	Enabled   bool

	ticker *time.Ticker
	stop   chan bool
	wg     sync.WaitGroup
	mu     sync.Mutex
}

// NewDirectoryRefresher creates a new refresher.
func NewDirectoryRefresher(source incentive.DataSource, dir *incentive.Directory) *DirectoryRefresher {
	return &DirectoryRefresher{
		Source:    source,
		Directory: dir,
		Interval:  5 * time.Minute,
		Enabled:   true,
		stop:      make(chan bool),
	}
}

// Start begins the background refresh loop.
func (dr *DirectoryRefresher) Start() {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	if !dr.Enabled {
		log.Println("[Refresher] Disabled, not starting")
		return
	}

	dr.ticker = time.NewTicker(dr.Interval)
	dr.wg.Add(1)

	go dr.run()

	log.Printf("[Refresher] Started with refresh interval: %v", dr.Interval)
}

// Stop halts the refresh loop and waits for it to finish.
func (dr *DirectoryRefresher) Stop() {
	dr.mu.Lock()
	defer dr.mu.Unlock()

	if dr.ticker == nil {
		return
	}

	dr.ticker.Stop()
	close(dr.stop)
	dr.wg.Wait()
	dr.ticker = nil

	log.Println("[Refresher] Stopped")
}

func (dr *DirectoryRefresher) run() {
	defer dr.wg.Done()

	for {
		select {
		case <-dr.stop:
			return
		case <-dr.ticker.C:
			dr.RefreshOnce(context.Background())
		}
	}
}

// RefreshOnce performs a single directory reload.
// A failed fetch is logged and the stale directory keeps serving; name
// resolution degrades to truncated identifiers for unknown users.
func (dr *DirectoryRefresher) RefreshOnce(ctx context.Context) {
	users, err := dr.Source.ListUsers(ctx)
	if err != nil {
		log.Printf("[Refresher] Directory fetch failed, keeping previous names: %v", err)
		return
	}

	dr.Directory.Replace(users)
	log.Printf("[Refresher] Directory refreshed: %d users", len(users))
}
