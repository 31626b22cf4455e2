package certificate

import (
	"bytes"
	"fmt"
	"image/png"
	"sync"

	"github.com/abdul-hamid-achik/learn.cheap/internal/db"
	"github.com/fogleman/gg"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

const (
	renderWidth  = 1600
	renderHeight = 1130
)

var (
	fontsOnce    sync.Once
	regularFont  *opentype.Font
	boldFont     *opentype.Font
	fontsLoadErr error
)

func loadFonts() error {
	fontsOnce.Do(func() {
		regularFont, fontsLoadErr = opentype.Parse(goregular.TTF)
		if fontsLoadErr != nil {
			return
		}
		boldFont, fontsLoadErr = opentype.Parse(gobold.TTF)
	})
	return fontsLoadErr
}

func face(f *opentype.Font, size float64) (font.Face, error) {
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingFull,
	})
}

type textLine struct {
	text  string
	bold  bool
	size  float64
	color string
	y     float64
}

// Render draws the certificate as a PNG.
func Render(number string, meta db.CertificateMetadata) ([]byte, error) {
	if err := loadFonts(); err != nil {
		return nil, fmt.Errorf("load fonts: %w", err)
	}

	dc := gg.NewContext(renderWidth, renderHeight)
	w, h := float64(renderWidth), float64(renderHeight)

	dc.SetHexColor("#ECEFF4")
	dc.Clear()

	dc.SetHexColor("#5E81AC")
	dc.SetLineWidth(12)
	dc.DrawRectangle(40, 40, w-80, h-80)
	dc.Stroke()
	dc.SetHexColor("#88C0D0")
	dc.SetLineWidth(3)
	dc.DrawRectangle(70, 70, w-140, h-140)
	dc.Stroke()

	lines := []textLine{
		{"Certificate of Completion", true, 72, "#2E3440", 240},
		{"This certifies that", false, 32, "#4C566A", 380},
		{meta.StudentName, true, 64, "#2E3440", 480},
		{"has successfully completed", false, 32, "#4C566A", 580},
		{meta.CourseName, true, 52, "#5E81AC", 670},
	}
	if meta.MentorName != "" {
		lines = append(lines, textLine{"Mentor: " + meta.MentorName, false, 28, "#4C566A", 790})
	}

	for _, l := range lines {
		f := regularFont
		if l.bold {
			f = boldFont
		}
		ff, err := face(f, l.size)
		if err != nil {
			return nil, fmt.Errorf("font face: %w", err)
		}
		dc.SetFontFace(ff)
		dc.SetHexColor(l.color)
		dc.DrawStringWrapped(l.text, w/2, l.y, 0.5, 0.5, w-240, 1.2, gg.AlignCenter)
	}

	small, err := face(regularFont, 24)
	if err != nil {
		return nil, fmt.Errorf("font face: %w", err)
	}
	dc.SetFontFace(small)
	dc.SetHexColor("#4C566A")
	dc.DrawStringAnchored(meta.CompletionDate.Format("January 2, 2006"), 160, h-150, 0, 0.5)
	dc.DrawStringAnchored(number, w-160, h-150, 1, 0.5)

	var buf bytes.Buffer
	if err := png.Encode(&buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}
