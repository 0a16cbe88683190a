package cards

import (
	"bytes"
	"fmt"
	"image/color"
	"math"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	DefaultPNGWidth  = 320
	DefaultPNGHeight = 200
)

var (
	colorInk      = color.NRGBA{R: 0x1e, G: 0x29, B: 0x3b, A: 0xff}
	colorMuted    = color.NRGBA{R: 0x64, G: 0x74, B: 0x8b, A: 0xff}
	colorCell     = color.NRGBA{R: 0xe2, G: 0xe8, B: 0xf0, A: 0xff}
	colorBorder   = color.NRGBA{R: 0xe2, G: 0xe8, B: 0xf0, A: 0xff}
	colorSelBg    = color.NRGBA{R: 0xe0, G: 0xf2, B: 0xfe, A: 0xff}
	colorSelRing  = color.NRGBA{R: 0x7d, G: 0xd3, B: 0xfc, A: 0xff}
	colorSelCheck = color.NRGBA{R: 0x38, G: 0xbd, B: 0xf8, A: 0xff}
)

var (
	fontsOnce sync.Once
	fontsErr  error
	regular   *truetype.Font
	bold      *truetype.Font
)

func loadFonts() error {
	fontsOnce.Do(func() {
		if regular, fontsErr = truetype.Parse(goregular.TTF); fontsErr != nil {
			return
		}
		bold, fontsErr = truetype.Parse(gobold.TTF)
	})
	return fontsErr
}

func face(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{Size: size, Hinting: font.HintingFull})
}

// RenderPNG draws a card. Non-positive sizes use the defaults.
func RenderPNG(c Card, w, h int) ([]byte, error) {
	if w <= 0 {
		w = DefaultPNGWidth
	}
	if h <= 0 {
		h = DefaultPNGHeight
	}
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("load card fonts: %w", err)
	}
	W, H := float64(w), float64(h)
	pad := math.Min(W, H) * 0.08

	dc := gg.NewContext(w, h)
	dc.SetColor(color.White)
	dc.Clear()

	bg, ring, lw := color.Color(color.White), color.Color(colorBorder), 2.0
	if c.Selected {
		bg, ring, lw = colorSelBg, colorSelRing, 4.0
	}
	dc.DrawRoundedRectangle(lw/2, lw/2, W-lw, H-lw, 16)
	dc.SetColor(bg)
	dc.FillPreserve()
	dc.SetColor(ring)
	dc.SetLineWidth(lw)
	dc.Stroke()

	switch c.Kind {
	case KindColor:
		r := (H - 2*pad) / 2.6
		cx, cy := pad+r, H/2
		drawSwatch(dc, cx, cy, r, c.Stops)
		drawLabel(dc, c.Label, cx+r+pad, cy, W-(cx+r+2*pad), 22, false)
	case KindFont:
		dc.SetFontFace(face(bold, 30))
		dc.SetColor(colorInk)
		dc.DrawStringWrapped(c.Label, W/2, H/2-10, 0.5, 0.5, W-2*pad, 1.1, gg.AlignCenter)
		dc.SetFontFace(face(regular, 14))
		dc.SetColor(colorMuted)
		dc.DrawStringAnchored(c.Family, W/2, H-pad, 0.5, 0)
	case KindLayout:
		bw, bh := (W-2*pad)*0.45, H-2*pad
		drawSchematic(dc, pad, pad, bw, bh, c.Layout)
		drawLabel(dc, c.Label, 2*pad+bw, H/2, W-3*pad-bw, 20, false)
	default:
		drawLabel(dc, c.Label, pad, H/2, W-2*pad, 24, true)
	}

	if c.Selected {
		drawCheck(dc, W-pad-12, pad+12, 12)
	}

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("encode card png: %w", err)
	}
	return buf.Bytes(), nil
}

// drawSwatch fills a circle with conic segments starting at 12 o'clock, clockwise.
func drawSwatch(dc *gg.Context, cx, cy, r float64, stops []Stop) {
	if len(stops) <= 1 {
		col := color.Color(colorCell)
		if len(stops) == 1 {
			if p, ok := ParseHex(stops[0].Color); ok {
				col = p
			}
		}
		dc.DrawCircle(cx, cy, r)
		dc.SetColor(col)
		dc.Fill()
	} else {
		for _, s := range stops {
			p, ok := ParseHex(s.Color)
			if !ok {
				continue
			}
			a0 := -math.Pi/2 + float64(s.Start)/100*2*math.Pi
			a1 := -math.Pi/2 + float64(s.End)/100*2*math.Pi
			dc.MoveTo(cx, cy)
			dc.DrawArc(cx, cy, r, a0, a1)
			dc.ClosePath()
			dc.SetColor(p)
			dc.Fill()
		}
	}
	dc.DrawCircle(cx, cy, r)
	dc.SetColor(colorBorder)
	dc.SetLineWidth(2)
	dc.Stroke()
}

func drawSchematic(dc *gg.Context, x, y, w, h float64, l *Layout) {
	dc.DrawRoundedRectangle(x, y, w, h, 6)
	dc.SetColor(color.White)
	dc.FillPreserve()
	dc.SetColor(colorBorder)
	dc.SetLineWidth(2)
	dc.Stroke()
	if l == nil || l.Cols == 0 || l.Rows == 0 {
		return
	}
	const gap = 4.0
	inner := 6.0
	cw := (w - 2*inner) / float64(l.Cols)
	ch := (h - 2*inner) / float64(l.Rows)
	dc.SetColor(colorCell)
	for _, c := range l.Cells {
		dc.DrawRoundedRectangle(
			x+inner+float64(c.X)*cw+gap/2,
			y+inner+float64(c.Y)*ch+gap/2,
			float64(c.Cols)*cw-gap,
			float64(c.Rows)*ch-gap,
			3,
		)
		dc.Fill()
	}
}

func drawLabel(dc *gg.Context, label string, x, cy, maxW, size float64, centered bool) {
	dc.SetFontFace(face(bold, size))
	dc.SetColor(colorInk)
	if centered {
		dc.DrawStringWrapped(label, x+maxW/2, cy, 0.5, 0.5, maxW, 1.2, gg.AlignCenter)
		return
	}
	dc.DrawStringWrapped(label, x, cy, 0, 0.5, maxW, 1.2, gg.AlignLeft)
}

// drawCheck draws a filled badge with a tick; the Go fonts carry no check glyph.
func drawCheck(dc *gg.Context, cx, cy, r float64) {
	dc.DrawCircle(cx, cy, r)
	dc.SetColor(colorSelCheck)
	dc.Fill()
	dc.SetColor(color.White)
	dc.SetLineWidth(r / 4)
	dc.SetLineCapRound()
	dc.MoveTo(cx-r*0.45, cy)
	dc.LineTo(cx-r*0.1, cy+r*0.35)
	dc.LineTo(cx+r*0.5, cy-r*0.35)
	dc.Stroke()
}
