package e2e

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"gocv.io/x/gocv"

	"github.com/ayusman/kaiplay/internal/app"
	"github.com/ayusman/kaiplay/internal/capture"
	"github.com/ayusman/kaiplay/internal/detector"
	"github.com/ayusman/kaiplay/internal/game"
	"github.com/ayusman/kaiplay/internal/metrics"
	"github.com/ayusman/kaiplay/internal/server"
	"github.com/ayusman/kaiplay/internal/store"
	"github.com/ayusman/kaiplay/testdata"
)

type env struct {
	store    *store.Store
	app      *app.App
	camera   *capture.MockCamera
	detector *detector.MockDetector
	ts       *httptest.Server
}

func newEnv(t *testing.T) *env {
	t.Helper()

	s, err := store.New(filepath.Join(t.TempDir(), "data.db"))
	if err != nil {
		t.Fatalf("store.New() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })

	frames := []*gocv.Mat{testdata.BlankFrame(640, 480)}
	t.Cleanup(func() { testdata.CloseAll(frames) })

	e := &env{
		store:    s,
		camera:   capture.NewMockCamera(frames, true),
		detector: detector.NewMockDetector(),
	}

	cfg := app.DefaultConfig()
	cfg.FrameDelay = time.Millisecond
	cfg.CompletionLinger = 0
	cfg.Filter.Blend = 0
	cfg.Games.Fingers.Levels = [][2]int{{3, 3}}
	cfg.Games.Fingers.Goal = 1
	cfg.Games.Fingers.StableFrames = 2

	reg := prometheus.NewRegistry()
	e.app = app.New(cfg, app.Options{
		Store:       s,
		Metrics:     metrics.NewMetrics("e2e", reg),
		NewCamera:   func(capture.Config) capture.Camera { return e.camera },
		NewDetector: func(detector.Config) (detector.Detector, error) { return e.detector, nil },
	})
	t.Cleanup(func() { e.app.Close() })

	srv := server.New(server.Config{
		Store:         s,
		Controller:    e.app,
		Gatherer:      reg,
		StateInterval: 10 * time.Millisecond,
	})
	e.ts = httptest.NewServer(srv)
	t.Cleanup(e.ts.Close)
	return e
}

func (e *env) post(t *testing.T, path, body string) *http.Response {
	t.Helper()
	resp, err := e.ts.Client().Post(e.ts.URL+path, "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST %s error = %v", path, err)
	}
	return resp
}

func (e *env) getJSON(t *testing.T, path string, v any) int {
	t.Helper()
	resp, err := e.ts.Client().Get(e.ts.URL + path)
	if err != nil {
		t.Fatalf("GET %s error = %v", path, err)
	}
	defer resp.Body.Close()
	if v != nil && resp.StatusCode == http.StatusOK {
		if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
			t.Fatalf("decode %s: %v", path, err)
		}
	}
	return resp.StatusCode
}

func TestE2E_FingerRoundThroughAPI(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	e := newEnv(t)
	e.detector.SetHands([]detector.Hand{detector.FingersUp(3, 320, 300)})

	t.Run("ListGames", func(t *testing.T) {
		var body struct {
			Games   []app.GameInfo `json:"games"`
			Running bool           `json:"running"`
		}
		if code := e.getJSON(t, "/api/games", &body); code != http.StatusOK {
			t.Fatalf("status = %d", code)
		}
		if len(body.Games) != 4 || body.Running {
			t.Errorf("games = %+v", body)
		}
	})

	t.Run("StartGame", func(t *testing.T) {
		resp := e.post(t, "/api/games/"+game.NameFingers+"/start", "")
		resp.Body.Close()
		if resp.StatusCode != http.StatusAccepted {
			t.Fatalf("status = %d, want %d", resp.StatusCode, http.StatusAccepted)
		}
	})

	t.Run("ResultIsStored", func(t *testing.T) {
		var best store.Result
		deadline := time.Now().Add(10 * time.Second)
		for time.Now().Before(deadline) {
			if e.getJSON(t, "/api/results/best?game="+game.NameFingers, &best) == http.StatusOK {
				break
			}
			time.Sleep(10 * time.Millisecond)
		}
		if !best.Complete || best.Score == 0 || best.Game != game.NameFingers {
			t.Fatalf("best result = %+v", best)
		}

		var list struct {
			Results []store.Result `json:"results"`
		}
		e.getJSON(t, "/api/results?game="+game.NameFingers, &list)
		if len(list.Results) != 1 || list.Results[0].ID != best.ID {
			t.Errorf("results = %+v", list.Results)
		}
	})

	t.Run("MetricsExposed", func(t *testing.T) {
		resp, err := e.ts.Client().Get(e.ts.URL + "/metrics")
		if err != nil {
			t.Fatal(err)
		}
		defer resp.Body.Close()
		var buf strings.Builder
		if _, err := buf.ReadFrom(resp.Body); err != nil {
			t.Fatal(err)
		}
		if !strings.Contains(buf.String(), "e2e_frames_processed_total") {
			t.Error("frame counter missing from /metrics")
		}
	})
}

func TestE2E_CustomWordsAndLiveState(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping e2e test")
	}
	e := newEnv(t)

	resp := e.post(t, "/api/words", `{"native":"யானை","translation":"elephant"}`)
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST /api/words status = %d", resp.StatusCode)
	}

	url := "ws" + strings.TrimPrefix(e.ts.URL, "http") + "/api/state"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial %s: %v", url, err)
	}
	defer conn.Close()

	resp = e.post(t, "/api/games/"+game.NameWordMatch+"/start", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("start status = %d", resp.StatusCode)
	}

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		var msg struct {
			Running bool   `json:"running"`
			Game    string `json:"game"`
			Frames  uint64 `json:"frames"`
		}
		if err := conn.ReadJSON(&msg); err != nil {
			t.Fatalf("read state: %v", err)
		}
		if msg.Running && msg.Game == game.NameWordMatch && msg.Frames > 0 {
			break
		}
	}

	resp = e.post(t, "/api/games/stop", "")
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("stop status = %d", resp.StatusCode)
	}
	if err := e.app.Wait(t.Context()); err != nil {
		t.Fatal(err)
	}

	res, ok := e.app.LastResult()
	if !ok || res.Game != game.NameWordMatch || res.Complete {
		t.Errorf("stopped word match result = %+v, %v", res, ok)
	}
}
