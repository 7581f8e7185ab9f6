package detector

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"gocv.io/x/gocv"

	"github.com/ayusman/kaiplay/internal/logging"
)

var (
	// ErrScriptNotFound is returned when the MediaPipe service script cannot be located.
	ErrScriptNotFound = errors.New("mediapipe_service.py not found")
	// ErrUnavailable is returned when the service cannot be started or
	// keeps failing. Retrying with the same detector will not help.
	ErrUnavailable = errors.New("hand detector unavailable")
	// ErrRestarting is returned while a failed service waits to be restarted.
	ErrRestarting = errors.New("hand detector restarting")
)

const (
	scriptName = "mediapipe_service.py"

	// idleShutdown is how long the tracker process may sit unused before it is stopped.
	idleShutdown = 30 * time.Second
	// jpegQuality trades landmark accuracy for pipe throughput.
	jpegQuality = 85

	// restartBackoff is the wait after the first failure. It doubles with
	// each failure in a row.
	restartBackoff = 250 * time.Millisecond
	// maxFailures is how many failed round trips in a row make the service
	// unavailable.
	maxFailures = 3
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// MediaPipeDetector implements Detector with a long-lived Python MediaPipe
// process. Frames go to its stdin as a 4-byte big-endian length followed by
// a JPEG; each reply is one JSON line. The process keeps its tracker between
// frames, is started on first use and is restarted with a growing delay
// after a pipe failure.
type MediaPipeDetector struct {
	config  Config
	script  string
	python  string
	backoff time.Duration

	mu       sync.Mutex
	proc     *service
	idle     *time.Timer
	restart  int
	failures int
	retryAt  time.Time
}

// service is one running Python process.
type service struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *bufio.Reader
	stderr io.Closer
}

// NewMediaPipeDetector checks that the service script exists. The Python
// process is started lazily on first detection.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	script := config.Script
	if script == "" {
		script = findMediaPipeScript()
	}
	if script == "" {
		return nil, ErrScriptNotFound
	}
	if _, err := os.Stat(script); err != nil {
		return nil, fmt.Errorf("mediapipe script: %w", err)
	}
	if config.MaxHands <= 0 {
		config.MaxHands = DefaultConfig().MaxHands
	}

	python := findVenvPython()
	if python == "" {
		python = "python3"
	}
	return &MediaPipeDetector{config: config, script: script, python: python, backoff: restartBackoff}, nil
}

// Detect sends frame to the service and returns the hands it reports, in
// pixel coordinates.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]Hand, error) {
	if frame == nil || frame.Empty() {
		return nil, nil
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *frame, []int{gocv.IMWriteJpegQuality, jpegQuality})
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	d.mu.Lock()
	defer d.mu.Unlock()

	if d.proc == nil {
		switch {
		case d.failures >= maxFailures:
			return nil, ErrUnavailable
		case d.failures > 0 && time.Now().Before(d.retryAt):
			return nil, ErrRestarting
		}
		if d.proc, err = d.start(); err != nil {
			d.failures = maxFailures
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}

	line, err := d.proc.roundTrip(buf.GetBytes())
	if err != nil {
		d.stop()
		return nil, d.failed(err)
	}
	d.failures = 0
	d.touch()

	return decodeHands(line, frame.Cols(), frame.Rows(), d.config)
}

// Close shuts down the Python process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stop()
}

func (d *MediaPipeDetector) start() (*service, error) {
	cmd := exec.Command(d.python, d.script,
		"--max-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection", strconv.FormatFloat(d.config.MinConfidence, 'f', 2, 64),
		"--min-tracking", strconv.FormatFloat(d.config.MinTrackingConf, 'f', 2, 64),
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr := logging.Writer(logging.Fields{"component": "mediapipe"})
	cmd.Stderr = stderr

	if err := cmd.Start(); err != nil {
		stderr.Close()
		return nil, fmt.Errorf("start mediapipe service: %w", err)
	}

	if d.restart > 0 {
		logging.Warn(logging.Fields{"restarts": d.restart}, "mediapipe service restarted")
	}
	d.restart++

	return &service{cmd: cmd, stdin: stdin, stdout: bufio.NewReader(stdout), stderr: stderr}, nil
}

// failed records a broken round trip. The next start waits out a doubling
// backoff, and maxFailures in a row give up on the service.
func (d *MediaPipeDetector) failed(err error) error {
	d.failures++
	if d.failures >= maxFailures {
		return fmt.Errorf("%w: %d failures in a row: %v", ErrUnavailable, d.failures, err)
	}
	wait := d.backoff << (d.failures - 1)
	d.retryAt = time.Now().Add(wait)
	logging.Warn(logging.Fields{"error": err, "retry_in": wait}, "mediapipe service failed")
	return err
}

// roundTrip writes one frame and reads one reply line.
func (s *service) roundTrip(jpeg []byte) ([]byte, error) {
	if err := writeFrame(s.stdin, jpeg); err != nil {
		return nil, fmt.Errorf("send frame: %w", err)
	}
	line, err := s.stdout.ReadBytes('\n')
	if err != nil {
		return nil, fmt.Errorf("read reply: %w", err)
	}
	return line, nil
}

// writeFrame writes data prefixed with its big-endian uint32 length.
func writeFrame(w io.Writer, data []byte) error {
	msg := make([]byte, 4+len(data))
	binary.BigEndian.PutUint32(msg, uint32(len(data)))
	copy(msg[4:], data)
	_, err := w.Write(msg)
	return err
}

func (d *MediaPipeDetector) stop() error {
	if d.idle != nil {
		d.idle.Stop()
		d.idle = nil
	}
	if d.proc == nil {
		return nil
	}

	p := d.proc
	d.proc = nil
	p.stdin.Close()
	err := p.cmd.Wait()
	p.stderr.Close()
	return err
}

// touch restarts the idle countdown.
func (d *MediaPipeDetector) touch() {
	if d.idle != nil {
		d.idle.Reset(idleShutdown)
		return
	}
	d.idle = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		if err := d.stop(); err != nil {
			logging.Debug(logging.Fields{"error": err}, "idle mediapipe service exited")
		}
	})
}

// jsonHand is one hand in a service reply. Coordinates are normalised to [0,1].
type jsonHand struct {
	Points     []Point `json:"points"`
	Handedness string  `json:"handedness"`
	Score      float64 `json:"score"`
}

// decodeHands parses one response line, drops low-confidence and malformed
// hands and keeps at most config.MaxHands.
func decodeHands(line []byte, width, height int, config Config) ([]Hand, error) {
	var response struct {
		Hands []jsonHand `json:"hands"`
		Error string     `json:"error"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}
	if response.Error != "" {
		return nil, fmt.Errorf("mediapipe: %s", response.Error)
	}

	hands := make([]Hand, 0, len(response.Hands))
	for _, jh := range response.Hands {
		if jh.Score < config.MinConfidence {
			continue
		}
		h := FromNormalized(jh.Points, jh.Handedness, jh.Score, width, height)
		if !h.Valid() {
			continue
		}
		hands = append(hands, h)
		if config.MaxHands > 0 && len(hands) == config.MaxHands {
			break
		}
	}
	return hands, nil
}

// searchDirs are the places the service script and venv are looked up, in order.
func searchDirs() []string {
	dirs := []string{".", "..", "../.."}
	if exe, err := os.Executable(); err == nil {
		dirs = append(dirs, filepath.Dir(exe))
	}
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs, filepath.Join(home, ".kaiplay"))
	}
	return dirs
}

func findMediaPipeScript() string {
	var candidates []string
	for _, dir := range searchDirs() {
		candidates = append(candidates, filepath.Join(dir, "scripts", scriptName))
	}
	return firstExisting(candidates)
}

// findVenvPython looks for a Python interpreter in a virtual environment.
func findVenvPython() string {
	var candidates []string
	for _, dir := range searchDirs() {
		candidates = append(candidates, filepath.Join(dir, "venv", "bin", "python"))
	}
	return firstExisting(candidates)
}

func firstExisting(paths []string) string {
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		if abs, err := filepath.Abs(path); err == nil {
			return abs
		}
		return path
	}
	return ""
}
