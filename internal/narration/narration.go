// Package narration reads game feedback aloud through a speech plugin.
package narration

import (
	"context"
	"sync"
	"sync/atomic"

	"golang.org/x/time/rate"

	"github.com/ayusman/kaiplay/internal/interaction"
	"github.com/ayusman/kaiplay/internal/logging"
	"github.com/ayusman/kaiplay/internal/plugin"
)

// Narrator speaks short phrases. Say must never block the game loop.
type Narrator interface {
	Say(text string)
}

// Nop discards everything.
type Nop struct{}

func (Nop) Say(string) {}

// Runner executes a plugin request.
type Runner interface {
	Execute(ctx context.Context, p *plugin.Plugin, req *plugin.Request) (*plugin.Response, error)
}

// Config tunes a PluginNarrator.
type Config struct {
	// QueueSize bounds pending phrases. Phrases beyond it are dropped.
	QueueSize int
	// PerSecond limits how many phrases are spoken per second.
	PerSecond float64
	Burst     int
	Lang      string
}

// DefaultConfig returns the narration defaults.
func DefaultConfig() Config {
	return Config{
		QueueSize: 8,
		PerSecond: 1,
		Burst:     2,
		Lang:      "ta",
	}
}

// PluginNarrator queues phrases and speaks them one at a time through the
// speak action of a plugin.
type PluginNarrator struct {
	plugin  *plugin.Plugin
	runner  Runner
	lang    string
	limiter *rate.Limiter
	queue   chan string
	dropped atomic.Int64

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewPluginNarrator creates a narrator and starts its worker. Close stops it.
func NewPluginNarrator(p *plugin.Plugin, runner Runner, config Config) *PluginNarrator {
	def := DefaultConfig()
	if config.QueueSize <= 0 {
		config.QueueSize = def.QueueSize
	}
	limit := rate.Inf
	if config.PerSecond > 0 {
		limit = rate.Limit(config.PerSecond)
	}
	if config.Burst <= 0 {
		config.Burst = 1
	}

	ctx, cancel := context.WithCancel(context.Background())
	n := &PluginNarrator{
		plugin:  p,
		runner:  runner,
		lang:    config.Lang,
		limiter: rate.NewLimiter(limit, config.Burst),
		queue:   make(chan string, config.QueueSize),
		cancel:  cancel,
	}
	n.wg.Add(1)
	go n.run(ctx)
	return n
}

// Say queues text, dropping it when the queue is full.
func (n *PluginNarrator) Say(text string) {
	if text == "" {
		return
	}
	select {
	case n.queue <- text:
	default:
		n.dropped.Add(1)
		logging.Debug(logging.Fields{"text": text}, "narration queue full, dropping phrase")
	}
}

// Dropped returns how many phrases were discarded.
func (n *PluginNarrator) Dropped() int64 {
	return n.dropped.Load()
}

// Close stops the worker. Queued phrases that have not started are discarded.
func (n *PluginNarrator) Close() error {
	n.once.Do(func() {
		n.cancel()
		n.wg.Wait()
	})
	return nil
}

func (n *PluginNarrator) run(ctx context.Context) {
	defer n.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case text := <-n.queue:
			if err := n.limiter.Wait(ctx); err != nil {
				return
			}
			n.speak(ctx, text)
		}
	}
}

func (n *PluginNarrator) speak(ctx context.Context, text string) {
	resp, err := n.runner.Execute(ctx, n.plugin, &plugin.Request{
		Action: plugin.ActionSpeak,
		Text:   text,
		Lang:   n.lang,
	})
	if err != nil {
		logging.Debug(logging.Fields{"plugin": n.plugin.Manifest.Name, "error": err}, "narration failed")
		return
	}
	if !resp.Success {
		logging.Debug(logging.Fields{"plugin": n.plugin.Manifest.Name, "error": resp.Error}, "narration rejected")
	}
}

// FromManager returns a narrator backed by the first plugin offering the
// speak action, or Nop when there is none.
func FromManager(mgr *plugin.Manager, runner Runner, config Config) Narrator {
	p, err := mgr.ForAction(plugin.ActionSpeak)
	if err != nil {
		logging.Info(logging.Fields{"dir": mgr.PluginDir()}, "no speech plugin, narration disabled")
		return Nop{}
	}
	logging.Info(logging.Fields{"plugin": p.Manifest.Name}, "narration enabled")
	return NewPluginNarrator(p, runner, config)
}

// Phrase returns what to say for a game event, if anything.
func Phrase(e interaction.Event) (string, bool) {
	switch e.Kind {
	case interaction.EventMatched, interaction.EventPrompt:
		return e.Label, e.Label != ""
	case interaction.EventAwarded:
		if e.Label != "" {
			return e.Label + ". சரி!", true
		}
		return "சரி!", true
	case interaction.EventRejected:
		return "மீண்டும் முயற்சி செய்", true
	case interaction.EventLevelUp:
		return "அடுத்த நிலை", true
	case interaction.EventRoundComplete:
		return "நன்று!", true
	}
	return "", false
}

// Announce speaks every event that has a phrase.
func Announce(n Narrator, events []interaction.Event) {
	for _, e := range events {
		if text, ok := Phrase(e); ok {
			n.Say(text)
		}
	}
}
