// Package tray provides the system tray menu for kaiplay.
package tray

import (
	"fmt"
	"sync"

	"github.com/getlantern/systray"

	"github.com/ayusman/kaiplay/internal/app"
	"github.com/ayusman/kaiplay/internal/store"
)

// Tray is the system tray menu. It only forwards clicks to callbacks.
type Tray struct {
	games []app.GameInfo

	onStart     func(name string)
	onStop      func()
	onDashboard func()
	onQuit      func()
	mu          sync.RWMutex

	// Menu items stored for later updates
	menuStatus *systray.MenuItem
	menuStop   *systray.MenuItem
	menuLast   *systray.MenuItem
}

// New creates a Tray with one menu item per game.
func New(games []app.GameInfo) *Tray {
	return &Tray{games: games}
}

// OnStart sets the callback for a game menu item.
func (t *Tray) OnStart(fn func(name string)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStart = fn
}

// OnStop sets the callback for the stop menu item.
func (t *Tray) OnStop(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onStop = fn
}

// OnDashboard sets the callback for the dashboard menu item.
func (t *Tray) OnDashboard(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onDashboard = fn
}

// OnQuit sets the callback function to be called when the quit menu item is clicked.
func (t *Tray) OnQuit(fn func()) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onQuit = fn
}

// Run starts the system tray application.
// This function blocks until systray.Quit() is called.
func (t *Tray) Run() {
	systray.Run(t.onReady, t.onExit)
}

// Quit closes the tray from outside the menu.
func (t *Tray) Quit() {
	systray.Quit()
}

func (t *Tray) onReady() {
	systray.SetTitle("kaiplay")
	systray.SetTooltip("Hand gesture learning games")

	t.mu.Lock()
	t.menuStatus = systray.AddMenuItem("Idle", "Current game")
	t.menuStatus.Disable()
	t.menuLast = systray.AddMenuItem("Last: none", "Last finished round")
	t.menuLast.Disable()
	t.mu.Unlock()
	systray.AddSeparator()

	for _, g := range t.games {
		item := systray.AddMenuItem(g.Title, "Play "+g.Title)
		go func(name string, clicked <-chan struct{}) {
			for range clicked {
				t.handleStart(name)
			}
		}(g.Name, item.ClickedCh)
	}
	systray.AddSeparator()

	t.mu.Lock()
	t.menuStop = systray.AddMenuItem("Stop game", "Stop the running game")
	t.menuStop.Disable()
	t.mu.Unlock()
	menuDashboard := systray.AddMenuItem("Open Dashboard...", "Open the dashboard in a browser")
	systray.AddSeparator()
	menuQuit := systray.AddMenuItem("Quit", "Quit kaiplay")

	go func() {
		for {
			select {
			case <-t.menuStop.ClickedCh:
				t.handleStop()
			case <-menuDashboard.ClickedCh:
				t.handleDashboard()
			case <-menuQuit.ClickedCh:
				t.handleQuit()
				return
			}
		}
	}()
}

func (t *Tray) onExit() {}

func (t *Tray) handleStart(name string) {
	t.mu.RLock()
	callback := t.onStart
	t.mu.RUnlock()

	if callback != nil {
		callback(name)
	}
}

func (t *Tray) handleStop() {
	t.mu.RLock()
	callback := t.onStop
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleDashboard() {
	t.mu.RLock()
	callback := t.onDashboard
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}
}

func (t *Tray) handleQuit() {
	t.mu.RLock()
	callback := t.onQuit
	t.mu.RUnlock()

	if callback != nil {
		callback()
	}

	systray.Quit()
}

// SetRunning shows the running game title, or idle for "".
func (t *Tray) SetRunning(name string) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuStatus == nil {
		return
	}
	t.menuStatus.SetTitle(t.statusTitle(name))
	if name == "" {
		t.menuStop.Disable()
	} else {
		t.menuStop.Enable()
	}
}

func (t *Tray) statusTitle(name string) string {
	if name == "" {
		return "Idle"
	}
	for _, g := range t.games {
		if g.Name == name {
			return "Playing: " + g.Title
		}
	}
	return "Playing: " + name
}

// SetLastResult updates the last round display in the menu.
func (t *Tray) SetLastResult(res store.Result) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if t.menuLast != nil {
		t.menuLast.SetTitle(resultTitle(res))
	}
}

func resultTitle(res store.Result) string {
	if res.Game == "" {
		return "Last: none"
	}
	status := fmt.Sprintf("%d/%d", res.Completed, res.Total)
	if res.Complete {
		status = "done"
	}
	return fmt.Sprintf("Last: %s, %d points (%s)", res.Game, res.Score, status)
}
