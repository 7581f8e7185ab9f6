// Package render draws game overlays and hand landmarks onto camera frames
// and encodes them for streaming.
package render

import (
	"errors"
	"image"
	"image/color"
	"os"
	"sync"

	"gocv.io/x/gocv"
	"golang.org/x/image/font"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/ayusman/kaiplay/internal/detector"
	"github.com/ayusman/kaiplay/internal/game"
	"github.com/ayusman/kaiplay/internal/gesture"
	"github.com/ayusman/kaiplay/internal/logging"
)

// DefaultJPEGQuality is used when Options.JPEGQuality is unset.
const DefaultJPEGQuality = 80

// ErrEmptyFrame is returned when encoding an empty Mat.
var ErrEmptyFrame = errors.New("empty frame")

// bones joins landmarks into the usual hand skeleton.
var bones = [][2]int{
	{detector.Wrist, detector.ThumbCMC}, {detector.ThumbCMC, detector.ThumbMCP},
	{detector.ThumbMCP, detector.ThumbIP}, {detector.ThumbIP, detector.ThumbTip},
	{detector.Wrist, detector.IndexMCP}, {detector.IndexMCP, detector.IndexPIP},
	{detector.IndexPIP, detector.IndexDIP}, {detector.IndexDIP, detector.IndexTip},
	{detector.IndexMCP, detector.MiddleMCP}, {detector.MiddleMCP, detector.MiddlePIP},
	{detector.MiddlePIP, detector.MiddleDIP}, {detector.MiddleDIP, detector.MiddleTip},
	{detector.MiddleMCP, detector.RingMCP}, {detector.RingMCP, detector.RingPIP},
	{detector.RingPIP, detector.RingDIP}, {detector.RingDIP, detector.RingTip},
	{detector.RingMCP, detector.PinkyMCP}, {detector.Wrist, detector.PinkyMCP},
	{detector.PinkyMCP, detector.PinkyPIP}, {detector.PinkyPIP, detector.PinkyDIP},
	{detector.PinkyDIP, detector.PinkyTip},
}

// Options configures a Renderer.
type Options struct {
	// FontFile is a TrueType or OpenType font used for labels OpenCV's
	// Hershey fonts cannot draw, such as Tamil words.
	FontFile    string
	FontSize    float64
	JPEGQuality int
	Landmarks   bool
}

// DefaultOptions draws landmarks and encodes at DefaultJPEGQuality.
func DefaultOptions() Options {
	return Options{FontSize: 28, JPEGQuality: DefaultJPEGQuality, Landmarks: true}
}

// Renderer draws onto BGR frames. It is safe for concurrent use.
type Renderer struct {
	opts Options

	mu    sync.Mutex
	faces map[float64]font.Face
	sfnt  *opentype.Font
	warn  sync.Once
}

// New creates a Renderer. A font that cannot be loaded is logged and
// non-ASCII labels are then skipped.
func New(opts Options) *Renderer {
	def := DefaultOptions()
	if opts.FontSize <= 0 {
		opts.FontSize = def.FontSize
	}
	if opts.JPEGQuality <= 0 || opts.JPEGQuality > 100 {
		opts.JPEGQuality = def.JPEGQuality
	}

	r := &Renderer{opts: opts, faces: make(map[float64]font.Face)}
	if opts.FontFile != "" {
		if err := r.loadFont(opts.FontFile); err != nil {
			logging.Warn(logging.Fields{"file": opts.FontFile, "error": err}, "label font unavailable")
		}
	}
	return r
}

func (r *Renderer) loadFont(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	ft, err := opentype.Parse(data)
	if err != nil {
		return err
	}
	r.sfnt = ft
	return nil
}

// face returns the cached label face for a text scale, or nil.
func (r *Renderer) face(scale float64) font.Face {
	if r.sfnt == nil {
		return nil
	}
	size := r.opts.FontSize * max(scale, 0.5)

	r.mu.Lock()
	defer r.mu.Unlock()
	if f, ok := r.faces[size]; ok {
		return f
	}
	f, err := opentype.NewFace(r.sfnt, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
	if err != nil {
		logging.Warn(logging.Fields{"size": size, "error": err}, "failed to create label face")
		return nil
	}
	r.faces[size] = f
	return f
}

// Draw paints the shapes and, when enabled, the skeleton of every tracked
// hand onto frame.
func (r *Renderer) Draw(frame *gocv.Mat, shapes []game.Shape, hands []gesture.Observation) {
	if frame == nil || frame.Empty() {
		return
	}
	if r.opts.Landmarks {
		for _, h := range hands {
			if h.Tracked() {
				drawHand(frame, h)
			}
		}
	}
	for _, s := range shapes {
		r.drawShape(frame, s)
	}
}

func (r *Renderer) drawShape(frame *gocv.Mat, s game.Shape) {
	c := rgba(s.Color)
	switch s.Kind {
	case game.ShapeRect:
		rect := image.Rect(int(s.Rect.X), int(s.Rect.Y), int(s.Rect.X+s.Rect.W), int(s.Rect.Y+s.Rect.H))
		gocv.Rectangle(frame, rect, c, thickness(s.Thickness))
	case game.ShapeCircle:
		gocv.Circle(frame, image.Pt(int(s.At.X), int(s.At.Y)), int(s.Radius), c, thickness(s.Thickness))
	case game.ShapeText:
		r.drawText(frame, s.Text, image.Pt(int(s.At.X), int(s.At.Y)), s.Scale, c, max(s.Thickness, 1))
	}
}

// Filled shapes use gocv's -1.
func thickness(t int) int {
	if t < 0 {
		return -1
	}
	return max(t, 1)
}

func (r *Renderer) drawText(frame *gocv.Mat, text string, at image.Point, scale float64, c color.RGBA, thick int) {
	if text == "" {
		return
	}
	if scale <= 0 {
		scale = 1
	}
	if isASCII(text) {
		gocv.PutText(frame, text, at, gocv.FontHersheySimplex, scale, c, thick)
		return
	}
	f := r.face(scale)
	if f == nil {
		r.warn.Do(func() {
			logging.Warn(logging.Fields{"text": text}, "no label font configured, skipping non-ASCII labels")
		})
		return
	}
	blendText(frame, f, text, at, c)
}

// blendText rasterises text with f and alpha-blends it onto a BGR frame
// with its baseline starting at at.
func blendText(frame *gocv.Mat, f font.Face, text string, at image.Point, c color.RGBA) {
	bounds, _ := font.BoundString(f, text)
	box := image.Rect(bounds.Min.X.Floor(), bounds.Min.Y.Floor(), bounds.Max.X.Ceil(), bounds.Max.Y.Ceil())
	if box.Empty() {
		return
	}

	mask := image.NewAlpha(box)
	d := font.Drawer{Dst: mask, Src: image.Opaque, Face: f, Dot: fixed.P(0, 0)}
	d.DrawString(text)

	if frame.Channels() != 3 {
		return
	}
	rows, cols := frame.Rows(), frame.Cols()
	bgr := [3]float64{float64(c.B), float64(c.G), float64(c.R)}
	for y := box.Min.Y; y < box.Max.Y; y++ {
		row := at.Y + y
		if row < 0 || row >= rows {
			continue
		}
		for x := box.Min.X; x < box.Max.X; x++ {
			col := at.X + x
			if col < 0 || col >= cols {
				continue
			}
			a := float64(mask.AlphaAt(x, y).A) / 255
			if a == 0 {
				continue
			}
			for ch := 0; ch < 3; ch++ {
				idx := col*3 + ch
				old := float64(frame.GetUCharAt(row, idx))
				frame.SetUCharAt(row, idx, uint8(old*(1-a)+bgr[ch]*a+0.5))
			}
		}
	}
}

func drawHand(frame *gocv.Mat, h gesture.Observation) {
	line := rgba(game.Cyan)
	joint := rgba(game.White)
	if h.Stale {
		line = rgba(game.Grey)
		joint = line
	}
	pts := h.Hand.Points
	for _, b := range bones {
		gocv.Line(frame, pixel(pts[b[0]]), pixel(pts[b[1]]), line, 2)
	}
	for _, p := range pts {
		gocv.Circle(frame, pixel(p), 3, joint, -1)
	}
	if h.Gesture.Pinch {
		gocv.Circle(frame, pixel(h.Pointer), 10, rgba(game.Yellow), 2)
	}
}

// Encode returns frame as a JPEG.
func (r *Renderer) Encode(frame *gocv.Mat) ([]byte, error) {
	if frame == nil || frame.Empty() {
		return nil, ErrEmptyFrame
	}
	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, *frame, []int{gocv.IMWriteJpegQuality, r.opts.JPEGQuality})
	if err != nil {
		return nil, err
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}

func pixel(p detector.Point) image.Point {
	return image.Pt(int(p.X), int(p.Y))
}

func rgba(c game.Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}
