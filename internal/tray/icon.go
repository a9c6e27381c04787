// Package tray renders the status badge and day timeline images
package tray

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"github.com/mrcode/nursery-advisor/internal/models"
)

// historySize is the number of pressure readings kept for the sparkline
const historySize = 24

// Badge renders the current recommendation as a small square icon
type Badge struct {
	mu         sync.Mutex
	settings   *models.Settings
	lastResult *models.NextActionResult
	history    []float64 // Sleep pressure of the last readings
}

// NewBadge creates a new badge renderer
func NewBadge(settings *models.Settings) *Badge {
	return &Badge{
		settings: settings,
		history:  make([]float64, 0, historySize),
	}
}

// Update records a new recommendation and returns the badge PNG
func (b *Badge) Update(result *models.NextActionResult) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.lastResult = result
	b.history = append(b.history, result.Rationale.SleepPressure)
	if len(b.history) > historySize {
		b.history = b.history[1:]
	}

	return b.generateIcon(false)
}

// Current returns the badge for the last recommendation, or a gray
// placeholder before the first one
func (b *Badge) Current(ico bool) ([]byte, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.generateIcon(ico)
}

// Tooltip returns a short multi-line text summary of the last recommendation
func (b *Badge) Tooltip() string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.lastResult == nil {
		return "Nursery Advisor - Loading..."
	}
	r := b.lastResult

	lines := []string{fmt.Sprintf("%s (%s confidence)", r.Intent.Label(), r.Confidence)}
	if mins, ok := minutesToNext(r); ok {
		lines = append(lines, "Next: "+formatDuration(mins))
	}
	if len(r.Reasons) > 0 {
		lines = append(lines, r.Reasons[0])
	}
	if spark := b.generateCompactSparkline(); spark != "" {
		lines = append(lines, "Sleep pressure:", spark)
	}
	return strings.Join(lines, "\n")
}

// UpdateSettings updates the settings reference
func (b *Badge) UpdateSettings(settings *models.Settings) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.settings = settings
}

// minutesToNext returns the minutes until the timing the intent points at
func minutesToNext(r *models.NextActionResult) (int, bool) {
	var next *time.Time
	switch r.Intent {
	case models.IntentFeedSoon:
		next = r.Timing.NextFeedAt
	case models.IntentStartWindDown:
		next = r.Timing.NextNapWindowAt
	case models.IntentLetSleepContinue:
		next = r.Timing.NextWakeAt
	case models.IntentIndependentTime:
		next = r.Timing.NextNapWindowAt
		if f := r.Timing.NextFeedAt; f != nil && (next == nil || f.Before(*next)) {
			next = f
		}
	}
	if next == nil {
		return 0, false
	}
	mins := int(math.Round(next.Sub(r.ComputedAt).Minutes()))
	if mins < 0 {
		mins = 0
	}
	return mins, true
}

// formatDuration formats minutes into a human-readable duration
func formatDuration(minutes int) string {
	if minutes < 1 {
		return "now"
	}
	if minutes == 1 {
		return "1 minute"
	}
	if minutes < 60 {
		return fmt.Sprintf("%d minutes", minutes)
	}
	if minutes%60 == 0 {
		if minutes == 60 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", minutes/60)
	}
	return fmt.Sprintf("%dh %02dm", minutes/60, minutes%60)
}

// formatCompactDuration formats minutes for the badge face
func formatCompactDuration(minutes int) string {
	if minutes < 1 {
		return "now"
	}
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh", int(math.Round(float64(minutes)/60)))
}

// intentGlyph is the short label drawn on the badge
func intentGlyph(intent models.Intent) string {
	switch intent {
	case models.IntentFeedSoon:
		return "FEED"
	case models.IntentStartWindDown:
		return "WIND"
	case models.IntentIndependentTime:
		return "PLAY"
	case models.IntentLetSleepContinue:
		return "ZZZ"
	default:
		return "HOLD"
	}
}

// generateCompactSparkline creates a 2-line braille sparkline of sleep pressure
func (b *Badge) generateCompactSparkline() string {
	if len(b.history) < 2 {
		return ""
	}

	var topLine, bottomLine bytes.Buffer
	for _, val := range b.history {
		// Pressure is already 0..1; scale to 0-4 half-lines
		height := math.Max(0, math.Min(1, val)) * 4.0

		var topChar, bottomChar rune
		switch {
		case height >= 4:
			topChar, bottomChar = '⣿', '⣿'
		case height >= 3.5:
			topChar, bottomChar = '⣶', '⣿'
		case height >= 3:
			topChar, bottomChar = '⣤', '⣿'
		case height >= 2.5:
			topChar, bottomChar = '⣀', '⣿'
		case height >= 2:
			topChar, bottomChar = '⠀', '⣿'
		case height >= 1.5:
			topChar, bottomChar = '⠀', '⣶'
		case height >= 1:
			topChar, bottomChar = '⠀', '⣤'
		default:
			topChar, bottomChar = '⠀', '⣀'
		}

		topLine.WriteRune(topChar)
		bottomLine.WriteRune(bottomChar)
	}

	return topLine.String() + "\n" + bottomLine.String()
}

// generateIcon draws the badge. The caller must hold b.mu.
func (b *Badge) generateIcon(ico bool) ([]byte, error) {
	const (
		width  = 64
		height = 64
		radius = 16
	)

	dc := gg.NewContext(width, height)

	dc.SetRGBA(0, 0, 0, 0)
	dc.Clear()

	bgHex := b.statusColor()
	r, g, bl := parseHexColor(bgHex)

	dc.SetRGB255(int(r), int(g), int(bl))
	dc.DrawRoundedRectangle(0, 0, float64(width), float64(height), float64(radius))
	dc.Fill()

	// Text color (black or white depending on brightness)
	brightness := (int(r)*299 + int(g)*587 + int(bl)*114) / 1000
	if brightness > 128 {
		dc.SetColor(color.Black)
	} else {
		dc.SetColor(color.White)
	}

	label, detail := "---", ""
	if res := b.lastResult; res != nil {
		label = intentGlyph(res.Intent)
		if res.Rationale.Flags.DataGap {
			detail = "!"
		} else if mins, ok := minutesToNext(res); ok {
			detail = formatCompactDuration(mins)
		}
	}

	if err := loadFont(dc, 20); err != nil {
		return nil, err
	}
	dc.DrawStringAnchored(label, width/2, height/2-10, 0.5, 0.5)
	if detail != "" {
		if err := loadFont(dc, 22); err != nil {
			return nil, err
		}
		dc.DrawStringAnchored(detail, width/2, height/2+14, 0.5, 0.5)
	}

	// Low confidence gets a dashed outline
	if b.lastResult != nil && b.lastResult.Confidence == models.ConfidenceLow {
		dc.SetDash(4, 3)
		dc.SetLineWidth(3)
		dc.DrawRoundedRectangle(2, 2, width-4, height-4, radius-2)
		dc.Stroke()
		dc.SetDash()
	}

	if ico {
		return imageToICO(dc.Image())
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("encoding badge: %w", err)
	}
	return buf.Bytes(), nil
}

// statusColor returns the badge color for the last recommendation
func (b *Badge) statusColor() string {
	if b.lastResult == nil {
		return "#808080" // Gray for unknown
	}
	return b.settings.IntentColor(b.lastResult.Intent)
}

// loadFont helper to load font safely
func loadFont(dc *gg.Context, size float64) error {
	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return err
	}
	face := truetype.NewFace(font, &truetype.Options{Size: size})
	dc.SetFontFace(face)
	return nil
}

// parseHexColor parses a hex color string to RGB values
func parseHexColor(hex string) (r, g, b byte) {
	if len(hex) == 7 && hex[0] == '#' {
		_, _ = fmt.Sscanf(hex, "#%02x%02x%02x", &r, &g, &b)
	}
	return
}

// imageToICO wraps a PNG encoding of img in a single-entry ICO container:
// a 6 byte ICONDIR header, one 16 byte ICONDIRENTRY, then the PNG data.
func imageToICO(img image.Image) ([]byte, error) {
	var pngBuf bytes.Buffer
	if err := png.Encode(&pngBuf, img); err != nil {
		return nil, fmt.Errorf("encoding badge: %w", err)
	}
	pngData := pngBuf.Bytes()

	var buf bytes.Buffer
	_ = binary.Write(&buf, binary.LittleEndian, uint16(0)) // Reserved
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // Type: icon
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1)) // Image count

	bounds := img.Bounds()
	for _, dim := range []int{bounds.Dx(), bounds.Dy()} {
		// 0 means 256
		if dim >= 256 {
			buf.WriteByte(0)
		} else {
			buf.WriteByte(byte(dim))
		}
	}
	buf.WriteByte(0) // No palette
	buf.WriteByte(0) // Reserved
	_ = binary.Write(&buf, binary.LittleEndian, uint16(1))  // Color planes
	_ = binary.Write(&buf, binary.LittleEndian, uint16(32)) // Bits per pixel
	// #nosec G115 -- PNG size is limited by memory and will not overflow uint32
	_ = binary.Write(&buf, binary.LittleEndian, uint32(len(pngData)))
	_ = binary.Write(&buf, binary.LittleEndian, uint32(22)) // Data offset

	buf.Write(pngData)
	return buf.Bytes(), nil
}
