package renderer

import (
	"image"
	"image/color"
	"strings"
	"unicode"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	"go.uber.org/zap"
	"golang.org/x/image/font"
)

var colorGray = color.RGBA{130, 130, 130, 255}

// Address is one party of a shipping label
type Address struct {
	Company string // recipient only
	Name    string
	Street  string
	ZipCity string
	Country string
}

// ShippingOptions describes a structured sender/recipient label
type ShippingOptions struct {
	Width       int
	Height      int
	Type        Type
	Orientation Orientation

	Sender    Address
	Recipient Address
	Tracking  string

	FontPath       string // recipient and headers
	SenderFontPath string // empty means FontPath
	BarcodeType    string // "qr" or a 1D symbology

	SenderFontSize    int // 0 keeps the automatic size, otherwise scales by size/48
	RecipientFontSize int

	Margin         Margins
	SectionSpacing int // 0 picks a proportional gap
	BarcodeScale   int // percent, 0 means 100
	ShowCodeText   bool

	FromLabel       string
	ToLabel         string
	RecipientBorder bool
	Border          Border

	SenderLineSpacing    int // percent, at least 100
	RecipientLineSpacing int
}

// ShippingLabel renders sender and recipient blocks plus an optional tracking code
type ShippingLabel struct {
	opts  ShippingOptions
	faces FaceSource
	log   *zap.Logger
}

// NewShippingLabel normalizes opts and creates the label
func NewShippingLabel(opts ShippingOptions, faces FaceSource, log *zap.Logger) (*ShippingLabel, error) {
	if opts.Width < 0 || opts.Height < 0 {
		return nil, invalidf("width and height must be non-negative")
	}
	if opts.SenderFontPath == "" {
		opts.SenderFontPath = opts.FontPath
	}
	opts.BarcodeType = strings.ToLower(strings.TrimSpace(opts.BarcodeType))
	if opts.BarcodeType == "" {
		opts.BarcodeType = DefaultSymbology
	}
	opts.SenderFontSize = max(opts.SenderFontSize, 0)
	opts.RecipientFontSize = max(opts.RecipientFontSize, 0)
	opts.SectionSpacing = max(opts.SectionSpacing, 0)
	opts.BarcodeScale = max(opts.BarcodeScale, 0)
	opts.FromLabel = strings.TrimSpace(opts.FromLabel)
	if opts.FromLabel == "" {
		opts.FromLabel = "From:"
	}
	opts.ToLabel = strings.TrimSpace(opts.ToLabel)
	if opts.ToLabel == "" {
		opts.ToLabel = "To:"
	}
	opts.Border.Thickness = max(opts.Border.Thickness, 0)
	opts.Border.Roundness = max(opts.Border.Roundness, 0)
	opts.SenderLineSpacing = max(opts.SenderLineSpacing, 100)
	opts.RecipientLineSpacing = max(opts.RecipientLineSpacing, 100)
	if log == nil {
		log = zap.NewNop()
	}
	return &ShippingLabel{opts: opts, faces: faces, log: log}, nil
}

func (s *ShippingLabel) Type() Type               { return s.opts.Type }
func (s *ShippingLabel) Orientation() Orientation { return s.opts.Orientation }
func (s *ShippingLabel) Content() Content         { return ShippingLabelContent }

// Options returns the normalized construction parameters
func (s *ShippingLabel) Options() ShippingOptions { return s.opts }

// Generate renders the landscape layout on endless tape and the portrait layout otherwise.
// The result is never rotated.
func (s *ShippingLabel) Generate(rotate bool) (image.Image, error) {
	switch s.opts.Type {
	case Endless:
		return s.landscape()
	case DieCut, RoundDieCut:
		return s.portrait()
	default:
		return s.portrait()
	}
}

type shipLine struct {
	text  string
	face  font.Face
	color color.Color
	pad   int // extra space above the line
}

func lineHeight(face font.Face, text string) int {
	if text == "" {
		text = " "
	}
	return textBox(face, text, 0, 0, anchorLeft).Height()
}

func lineWidth(face font.Face, text string) int {
	return textBox(face, text, 0, 0, anchorLeft).Width()
}

func spacingPx(size, percent int) int {
	return max(0, int(float64(size)*float64(percent-100)/100))
}

func (s *ShippingLabel) qrTracking() bool {
	return s.opts.BarcodeType == "qr"
}

func (s *ShippingLabel) barcodeScale() float64 {
	if s.opts.BarcodeScale > 0 {
		return float64(s.opts.BarcodeScale) / 100
	}
	return 1
}

func (s *ShippingLabel) trackingImage() (image.Image, error) {
	if s.opts.Tracking == "" {
		return nil, nil
	}
	if s.qrTracking() {
		return QRImage(s.opts.Tracking, QROptions{Level: "L", BoxSize: 10, Border: 1})
	}
	opts := DefaultBarcodeOptions()
	opts.QuietZone = 24
	opts.WriteText = s.opts.ShowCodeText
	opts.Faces = s.faces
	return BarcodeImage(s.opts.BarcodeType, s.opts.Tracking, opts)
}

// appendWrapped adds text wrapped to limit pixels; only the first piece keeps pad
func appendWrapped(lines []shipLine, text string, face font.Face, c color.Color, pad, limit int) []shipLine {
	if text == "" {
		return lines
	}
	for i, piece := range wrapText(face, text, limit) {
		p := 0
		if i == 0 {
			p = pad
		}
		lines = append(lines, shipLine{text: piece, face: face, color: c, pad: p})
	}
	return lines
}

func joinAddress(a Address) string {
	var parts []string
	for _, p := range []string{a.ZipCity, a.Country} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " · ")
}

func blockHeight(lines []shipLine, ls int) int {
	total := 0
	for _, l := range lines {
		if l.text == "" {
			continue
		}
		total += l.pad + lineHeight(l.face, l.text) + ls
	}
	return total
}

func columnWidth(lines []shipLine, minW int) int {
	w := minW
	for _, l := range lines {
		if l.text == "" {
			continue
		}
		w = max(w, lineWidth(l.face, l.text))
	}
	return w
}

// drawLines draws lines top-down from y and returns the final cursor
func drawLines(dc *gg.Context, lines []shipLine, x, y, ls int) int {
	for _, l := range lines {
		if l.text == "" {
			continue
		}
		y += l.pad
		drawAnchored(dc, l.face, l.text, float64(x), float64(y), anchorLeft, l.color)
		y += lineHeight(l.face, l.text) + ls
	}
	return y
}

type landscapeSizes struct {
	rname, rdetail, to, sender, from, tracking int
}

func (s *ShippingLabel) landscape() (image.Image, error) {
	o := s.opts
	m := o.Margin
	canvasH := max(o.Height, 1)
	usableH := max(canvasH-m.Top-m.Bottom, 1)
	uh := float64(usableH)

	dividerGap := o.SectionSpacing
	if dividerGap == 0 {
		dividerGap = max(int(uh*0.04), 24)
	}
	codeGap := max(int(uh*0.03), 20)

	nRecip := 0
	for _, f := range []string{o.Recipient.Company, o.Recipient.Name, o.Recipient.Street, o.Recipient.ZipCity, o.Recipient.Country} {
		if f != "" {
			nRecip++
		}
	}
	nRecip = max(1, min(5, nRecip))
	lineH := uh / (float64(nRecip) + 0.5)

	rScale, sScale := 1.0, 1.0
	if o.RecipientFontSize > 0 {
		rScale = float64(o.RecipientFontSize) / 48
	}
	if o.SenderFontSize > 0 {
		sScale = float64(o.SenderFontSize) / 48
	}
	computeSizes := func(scale float64) landscapeSizes {
		return landscapeSizes{
			rname:    max(int(lineH*1.15*rScale*scale), 8),
			rdetail:  max(int(lineH*0.92*rScale*scale), 7),
			to:       max(int(lineH*0.52*rScale*scale), 5),
			sender:   max(int(lineH*0.28*sScale*scale), 5),
			from:     max(int(lineH*0.16*sScale*scale), 4),
			tracking: max(int(lineH*0.14*scale), 5),
		}
	}

	senderBudget := max(usableH*2, 200)
	recipBudget := max(usableH*4, 400)

	build := func(sz landscapeSizes) ([]shipLine, []shipLine, int, int) {
		fFrom := s.faces.Face(o.SenderFontPath, sz.from)
		fSender := s.faces.Face(o.SenderFontPath, sz.sender)
		fTo := s.faces.Face(o.FontPath, sz.to)
		fName := s.faces.Face(o.FontPath, sz.rname)
		fDetail := s.faces.Face(o.FontPath, sz.rdetail)

		sender := appendWrapped(nil, o.FromLabel, fFrom, colorGray, 0, senderBudget)
		sender = appendWrapped(sender, o.Sender.Name, fSender, colorBlack, 4, senderBudget)
		sender = appendWrapped(sender, o.Sender.Street, fSender, colorBlack, 0, senderBudget)
		sender = appendWrapped(sender, joinAddress(o.Sender), fSender, colorBlack, 0, senderBudget)

		recip := appendWrapped(nil, o.ToLabel, fTo, colorGray, 0, recipBudget)
		recip = appendWrapped(recip, o.Recipient.Company, fDetail, colorBlack, 6, recipBudget)
		recip = appendWrapped(recip, o.Recipient.Name, fName, colorBlack, 6, recipBudget)
		recip = appendWrapped(recip, o.Recipient.Street, fDetail, colorBlack, 6, recipBudget)
		recip = appendWrapped(recip, o.Recipient.ZipCity, fDetail, colorBlack, 0, recipBudget)
		recip = appendWrapped(recip, o.Recipient.Country, fDetail, colorBlack, 0, recipBudget)

		return sender, recip,
			spacingPx(sz.sender, o.SenderLineSpacing),
			spacingPx(sz.rdetail, o.RecipientLineSpacing)
	}

	sizes := computeSizes(1)
	senderLines, recipLines, senderLs, recipLs := build(sizes)

	maxBlock := max(blockHeight(senderLines, senderLs), blockHeight(recipLines, recipLs))
	if maxBlock > usableH {
		scale := uh / float64(maxBlock) * 0.94
		s.log.Debug("shrinking shipping label fonts", zap.Float64("scale", scale))
		sizes = computeSizes(scale)
		senderLines, recipLines, senderLs, recipLs = build(sizes)
	}

	senderColW := columnWidth(senderLines, 100)
	recipColW := columnWidth(recipLines, 300)

	var code image.Image
	codeColW, trackingW, trackingH := 0, 0, 0
	fTracking := s.faces.Face(o.FontPath, sizes.tracking)
	if o.Tracking != "" {
		raw, err := s.trackingImage()
		if err != nil {
			return nil, err
		}
		bs := s.barcodeScale()
		if s.qrTracking() {
			side := max(int(uh*0.85*bs), 8)
			code = imaging.Resize(raw, side, side, imaging.Lanczos)
		} else {
			rotated := imaging.Rotate90(raw)
			targetH := max(int(uh*bs), 8)
			sc := float64(targetH) / float64(rotated.Bounds().Dy())
			newW := max(int(float64(rotated.Bounds().Dx())*sc), 1)
			code = imaging.Resize(rotated, newW, targetH, imaging.Lanczos)
		}
		tb := textBox(fTracking, o.Tracking, 0, 0, anchorLeft)
		trackingW, trackingH = tb.Width(), tb.Height()
		codeColW = codeGap + max(code.Bounds().Dx(), trackingW)
	}

	canvasW := m.Left + senderColW + dividerGap + 1 + dividerGap + recipColW + codeColW + m.Right
	dc := gg.NewContext(canvasW, canvasH)
	dc.SetColor(colorWhite)
	dc.Clear()

	senderH := blockHeight(senderLines, senderLs)
	drawLines(dc, senderLines, m.Left, m.Top+max(floorDiv(usableH-senderH, 2), 0), senderLs)

	divX := m.Left + senderColW + dividerGap
	drawDashedLine(dc, float64(divX), float64(m.Top), float64(divX), float64(canvasH-m.Bottom), landscapeDivider)

	rx := divX + 1 + dividerGap
	recipStart := m.Top
	recipEnd := drawLines(dc, recipLines, rx, recipStart, recipLs)

	if o.RecipientBorder && o.Border.Thickness > 0 {
		p := max(int(uh*0.03), 6)
		strokeRoundedRect(dc,
			float64(rx-p-o.Border.DistanceX), float64(recipStart-p-o.Border.DistanceY),
			float64(rx+recipColW+p+o.Border.DistanceX), float64(recipEnd+p+o.Border.DistanceY),
			float64(o.Border.Roundness), o.Border.Thickness, colorBlack, nil)
	}

	if code != nil {
		codeX := rx + recipColW + codeGap
		codeY := m.Top + max(floorDiv(usableH-code.Bounds().Dy(), 2), 0)
		dc.DrawImage(code, codeX, codeY)
		if o.ShowCodeText && s.qrTracking() && trackingH > 0 {
			ty := codeY + code.Bounds().Dy() + 6
			if ty+trackingH <= canvasH-m.Bottom {
				drawAnchored(dc, fTracking, o.Tracking, float64(codeX), float64(ty), anchorLeft, colorBlack)
			}
		}
	}

	return dc.Image(), nil
}

func (s *ShippingLabel) portrait() (image.Image, error) {
	o := s.opts
	m := o.Margin
	usableW := max(o.Width-m.Left-m.Right, 1)
	uw := float64(usableW)

	sScale, rScale := 1.0, 1.0
	if o.SenderFontSize > 0 {
		sScale = float64(o.SenderFontSize) / 48
	}
	if o.RecipientFontSize > 0 {
		rScale = float64(o.RecipientFontSize) / 48
	}

	dividerH := o.SectionSpacing
	if dividerH == 0 {
		dividerH = max(int(uw*0.04), 18)
	}

	build := func(scale float64) ([]shipLine, []shipLine, int, int) {
		senderSize := max(int(16*sScale*scale), 6)
		detailSize := max(int(30*rScale*scale), 8)
		fSection := s.faces.Face(o.FontPath, max(int(13*max(sScale, rScale)*scale), 5))
		fSender := s.faces.Face(o.SenderFontPath, senderSize)
		fName := s.faces.Face(o.FontPath, max(int(38*rScale*scale), 9))
		fDetail := s.faces.Face(o.FontPath, detailSize)

		sender := appendWrapped(nil, o.FromLabel, fSection, colorGray, 0, usableW)
		sender = appendWrapped(sender, o.Sender.Name, fSender, colorBlack, 3, usableW)
		sender = appendWrapped(sender, o.Sender.Street, fSender, colorBlack, 0, usableW)
		sender = appendWrapped(sender, joinAddress(o.Sender), fSender, colorBlack, 0, usableW)

		recip := appendWrapped(nil, o.ToLabel, fSection, colorGray, 0, usableW)
		recip = appendWrapped(recip, o.Recipient.Company, fDetail, colorBlack, 5, usableW)
		recip = appendWrapped(recip, o.Recipient.Name, fName, colorBlack, 5, usableW)
		recip = appendWrapped(recip, o.Recipient.Street, fDetail, colorBlack, 5, usableW)
		recip = appendWrapped(recip, o.Recipient.ZipCity, fDetail, colorBlack, 0, usableW)
		recip = appendWrapped(recip, o.Recipient.Country, fDetail, colorBlack, 0, usableW)

		return sender, recip,
			spacingPx(senderSize, o.SenderLineSpacing),
			spacingPx(detailSize, o.RecipientLineSpacing)
	}

	senderLines, recipLines, senderLs, recipLs := build(1)
	senderH := blockHeight(senderLines, senderLs)
	recipH := blockHeight(recipLines, recipLs)

	var code image.Image
	trackingH := 0
	fTracking := s.faces.Face(o.FontPath, 14)
	if o.Tracking != "" {
		raw, err := s.trackingImage()
		if err != nil {
			return nil, err
		}
		bs := s.barcodeScale()
		if s.qrTracking() {
			side := max(min(int(uw*0.28*bs), 110), 8)
			code = imaging.Resize(raw, side, side, imaging.NearestNeighbor)
		} else {
			targetW := max(int(uw*bs), 8)
			sc := float64(targetW) / float64(raw.Bounds().Dx())
			newH := max(int(float64(raw.Bounds().Dy())*sc), 1)
			code = imaging.Resize(raw, targetW, newH, imaging.Lanczos)
		}
		trackingH = textBox(fTracking, o.Tracking, 0, 0, anchorLeft).Height()
	}

	codeRowH := 0
	if code != nil {
		if s.qrTracking() {
			codeRowH = max(code.Bounds().Dy(), trackingH) + 14
		} else {
			codeRowH = code.Bounds().Dy() + 8 + trackingH + 14
		}
	}

	totalH := m.Top + senderH + 2*dividerH + 1 + recipH + codeRowH + m.Bottom
	canvasW := max(o.Width, 1)
	canvasH := max(totalH, 1)
	if o.Height > 0 {
		canvasH = o.Height
	}

	if o.Height > 0 && totalH > o.Height {
		scale := float64(o.Height) / float64(totalH) * 0.94
		s.log.Debug("shrinking shipping label fonts", zap.Float64("scale", scale))
		senderLines, recipLines, senderLs, recipLs = build(scale)
	}

	dc := gg.NewContext(canvasW, canvasH)
	dc.SetColor(colorWhite)
	dc.Clear()

	y := drawLines(dc, senderLines, m.Left, m.Top, senderLs)
	y += dividerH
	drawDashedLine(dc, float64(m.Left), float64(y), float64(canvasW-m.Right), float64(y), portraitDivider)
	y += 1 + dividerH

	recipStart := y
	y = drawLines(dc, recipLines, m.Left, y, recipLs)
	recipEnd := y

	if o.RecipientBorder && o.Border.Thickness > 0 {
		p := max(int(uw*0.02), 4)
		strokeRoundedRect(dc,
			float64(m.Left-p-o.Border.DistanceX), float64(recipStart-p-o.Border.DistanceY),
			float64(canvasW-m.Right+p+o.Border.DistanceX), float64(recipEnd+p+o.Border.DistanceY),
			float64(o.Border.Roundness), o.Border.Thickness, colorBlack, nil)
	}

	if code != nil {
		y += 14
		dc.DrawImage(code, m.Left, y)
		if s.qrTracking() && o.ShowCodeText && trackingH > 0 {
			tx := m.Left + code.Bounds().Dx() + 12
			ty := y + max(floorDiv(code.Bounds().Dy()-trackingH, 2), 0)
			if tx+20 <= canvasW-m.Right {
				drawAnchored(dc, fTracking, o.Tracking, float64(tx), float64(ty), anchorLeft, colorBlack)
			}
		}
	}

	return dc.Image(), nil
}

// wrapText breaks text into lines no wider than limit pixels. Words are kept whole
// where possible; a word wider than the limit is split between characters.
func wrapText(face font.Face, text string, limit int) []string {
	if limit <= 0 || lineWidth(face, text) <= limit {
		return []string{text}
	}
	fits := func(s string) bool { return lineWidth(face, s) <= limit }

	var lines []string
	var cur strings.Builder
	flush := func() {
		if s := strings.TrimRightFunc(cur.String(), unicode.IsSpace); s != "" {
			lines = append(lines, s)
		}
		cur.Reset()
	}

	for _, tok := range tokenize(text) {
		if cur.Len() > 0 && !fits(cur.String()+tok) {
			flush()
			if strings.TrimSpace(tok) == "" {
				continue
			}
		}
		if fits(tok) {
			cur.WriteString(tok)
			continue
		}
		for _, r := range tok {
			if cur.Len() > 0 && !fits(cur.String()+string(r)) {
				flush()
			}
			cur.WriteRune(r)
		}
	}
	flush()
	if len(lines) == 0 {
		return []string{text}
	}
	return lines
}

// tokenize splits s into alternating runs of space and non-space runes
func tokenize(s string) []string {
	var tokens []string
	var b strings.Builder
	lastSpace := false
	for _, r := range s {
		space := unicode.IsSpace(r)
		if b.Len() > 0 && space != lastSpace {
			tokens = append(tokens, b.String())
			b.Reset()
		}
		lastSpace = space
		b.WriteRune(r)
	}
	if b.Len() > 0 {
		tokens = append(tokens, b.String())
	}
	return tokens
}
