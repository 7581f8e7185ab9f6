package narration

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ayusman/kaiplay/internal/interaction"
	"github.com/ayusman/kaiplay/internal/plugin"
)

// fakeRunner reports each request on spoken and then waits for release.
type fakeRunner struct {
	spoken  chan *plugin.Request
	release chan struct{}
	err     error
}

func newFakeRunner(blocking bool) *fakeRunner {
	r := &fakeRunner{spoken: make(chan *plugin.Request, 16), release: make(chan struct{})}
	if !blocking {
		close(r.release)
	}
	return r
}

func (r *fakeRunner) Execute(ctx context.Context, p *plugin.Plugin, req *plugin.Request) (*plugin.Response, error) {
	r.spoken <- req
	select {
	case <-r.release:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	return &plugin.Response{Success: true}, nil
}

var speaker = &plugin.Plugin{Manifest: plugin.Manifest{Name: "speak", Actions: []string{plugin.ActionSpeak}}}

func receive(t *testing.T, r *fakeRunner) *plugin.Request {
	t.Helper()
	select {
	case req := <-r.spoken:
		return req
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for narration")
		return nil
	}
}

func TestPluginNarrator_Speaks(t *testing.T) {
	runner := newFakeRunner(false)
	n := NewPluginNarrator(speaker, runner, Config{QueueSize: 4, Lang: "ta"})
	defer n.Close()

	n.Say("பூ")
	n.Say("")
	n.Say("பால்")

	for _, want := range []string{"பூ", "பால்"} {
		req := receive(t, runner)
		if req.Action != plugin.ActionSpeak || req.Text != want || req.Lang != "ta" {
			t.Errorf("request = %+v, want speak %q", req, want)
		}
	}
}

func TestPluginNarrator_DropsWhenFull(t *testing.T) {
	runner := newFakeRunner(true)
	n := NewPluginNarrator(speaker, runner, Config{QueueSize: 1})

	n.Say("one")
	receive(t, runner) // the worker is now busy

	n.Say("two")
	n.Say("three")
	if got := n.Dropped(); got != 1 {
		t.Errorf("Dropped() = %d, want 1", got)
	}

	done := make(chan struct{})
	go func() {
		n.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Close() did not return")
	}
	n.Close()
}

func TestPluginNarrator_FailuresDoNotStop(t *testing.T) {
	runner := newFakeRunner(false)
	runner.err = errors.New("espeak missing")
	n := NewPluginNarrator(speaker, runner, Config{QueueSize: 4})
	defer n.Close()

	n.Say("one")
	n.Say("two")
	receive(t, runner)
	if req := receive(t, runner); req.Text != "two" {
		t.Errorf("second phrase = %q", req.Text)
	}
}

func TestFromManager(t *testing.T) {
	empty := plugin.NewManager(t.TempDir())
	if err := empty.Discover(); err != nil {
		t.Fatal(err)
	}
	if _, ok := FromManager(empty, newFakeRunner(false), DefaultConfig()).(Nop); !ok {
		t.Error("expected Nop without a speech plugin")
	}

	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "speak"), 0755); err != nil {
		t.Fatal(err)
	}
	manifest := `{"name":"speak","executable":"speak","actions":["speak"]}`
	if err := os.WriteFile(filepath.Join(dir, "speak", "plugin.json"), []byte(manifest), 0644); err != nil {
		t.Fatal(err)
	}
	mgr := plugin.NewManager(dir)
	if err := mgr.Discover(); err != nil {
		t.Fatal(err)
	}
	n, ok := FromManager(mgr, newFakeRunner(false), DefaultConfig()).(*PluginNarrator)
	if !ok {
		t.Fatal("expected a plugin narrator")
	}
	n.Close()
}

func TestPhrase(t *testing.T) {
	tests := []struct {
		event interaction.Event
		want  string
		ok    bool
	}{
		{interaction.Event{Kind: interaction.EventMatched, Label: "பூ"}, "பூ", true},
		{interaction.Event{Kind: interaction.EventMatched}, "", false},
		{interaction.Event{Kind: interaction.EventRoundComplete}, "நன்று!", true},
		{interaction.Event{Kind: interaction.EventGrabbed, Label: "பூ"}, "", false},
		{interaction.Event{Kind: interaction.EventWrongTarget}, "", false},
	}

	for _, tt := range tests {
		t.Run(string(tt.event.Kind), func(t *testing.T) {
			got, ok := Phrase(tt.event)
			if got != tt.want || ok != tt.ok {
				t.Errorf("Phrase() = %q, %v; want %q, %v", got, ok, tt.want, tt.ok)
			}
		})
	}
}

type recorder []string

func (r *recorder) Say(text string) { *r = append(*r, text) }

func TestAnnounce(t *testing.T) {
	var r recorder
	Announce(&r, []interaction.Event{
		{Kind: interaction.EventGrabbed, Label: "பூ"},
		{Kind: interaction.EventMatched, Label: "பூ"},
		{Kind: interaction.EventRejected},
	})
	if len(r) != 2 || r[0] != "பூ" {
		t.Errorf("spoken = %v", r)
	}
}
