package pdfdoc

import (
	"math"
	"strings"

	"golang.org/x/text/unicode/norm"
)

const (
	// baselineTolerance is the fraction of font size two glyphs' baselines
	// may differ by and still be on the same line.
	baselineTolerance = 0.5
	// wordGapRatio is the horizontal gap, as a fraction of font size, above
	// which a space is inserted between glyphs.
	wordGapRatio = 0.25
	// blockGapRatio is the baseline distance, as a multiple of font size,
	// above which a new text block starts.
	blockGapRatio = 1.8
	// paragraphGapRatio is the baseline distance, as a multiple of font
	// size, above which a block that follows a one-line block is rendered
	// after an empty line.
	paragraphGapRatio = 2.5
	// sizeEpsilon is the font size difference still treated as equal.
	sizeEpsilon = 0.01
)

// glyph is a positioned text run as reported by the PDF backend. Y grows upward.
type glyph struct {
	font string
	size float64
	x, y float64
	w    float64
	s    string
}

// rect is a filled or stroked rectangle in page space.
type rect struct {
	minX, minY, maxX, maxY float64
}

type layoutLine struct {
	line   Line
	y      float64
	size   float64
	right  float64
	hasAny bool
}

// buildPage groups glyphs into spans, lines and blocks in content-stream order,
// appends one BlockOther per non-degenerate rectangle and renders plain text.
func buildPage(number int, glyphs []glyph, rects []rect) *Page {
	lines := groupLines(glyphs)
	blocks, separated := groupBlocks(lines)
	for _, r := range rects {
		if r.maxX-r.minX <= 0 || r.maxY-r.minY <= 0 {
			continue
		}
		blocks = append(blocks, Block{Kind: BlockOther})
	}
	return &Page{Number: number, Blocks: blocks, Text: renderText(blocks, separated)}
}

func groupLines(glyphs []glyph) []*layoutLine {
	var lines []*layoutLine
	var cur *layoutLine
	for _, g := range glyphs {
		if g.s == "" {
			continue
		}
		text := norm.NFKC.String(g.s)
		if cur == nil || !sameLine(cur, g) {
			cur = &layoutLine{y: g.y, size: g.size}
			lines = append(lines, cur)
		}
		appendGlyph(cur, g, text)
	}
	return lines
}

func sameLine(l *layoutLine, g glyph) bool {
	size := math.Max(l.size, g.size)
	tol := math.Max(size*baselineTolerance, 1)
	if math.Abs(l.y-g.y) > tol {
		return false
	}
	// A jump far back to the left on the same baseline is another column.
	return !(l.hasAny && g.x < l.right-2*size)
}

func appendGlyph(l *layoutLine, g glyph, text string) {
	gap := g.x - l.right
	needSpace := l.hasAny && gap > wordGapRatio*math.Max(g.size, 1)
	spans := l.line.Spans
	if n := len(spans); n > 0 && spans[n-1].Font == g.font && math.Abs(spans[n-1].Size-g.size) < sizeEpsilon {
		last := &spans[n-1]
		if needSpace && !strings.HasSuffix(last.Text, " ") && !strings.HasPrefix(text, " ") {
			last.Text += " "
		}
		last.Text += text
	} else {
		if needSpace && !strings.HasPrefix(text, " ") {
			text = " " + text
		}
		l.line.Spans = append(spans, Span{Text: text, Font: g.font, Size: g.size})
	}
	if g.size > l.size {
		l.size = g.size
	}
	l.right = g.x + g.w
	l.hasAny = true
}

// groupBlocks splits lines into text blocks. separated[i] reports whether
// block i is rendered after an empty line: always after a multi-line block,
// and after a one-line block only across a paragraph-sized gap, so a heading
// set a little apart from its body stays attached to it.
func groupBlocks(lines []*layoutLine) (blocks []Block, separated []bool) {
	var prev *layoutLine
	for _, l := range lines {
		if prev == nil || newBlock(prev, l) {
			sep := false
			if prev != nil {
				sep = len(blocks[len(blocks)-1].Lines) > 1 || paragraphGap(prev, l)
			}
			blocks = append(blocks, Block{Kind: BlockText})
			separated = append(separated, sep)
		}
		b := &blocks[len(blocks)-1]
		b.Lines = append(b.Lines, l.line)
		prev = l
	}
	return blocks, separated
}

func newBlock(prev, cur *layoutLine) bool {
	drop := prev.y - cur.y
	if drop <= 0 {
		return true
	}
	return drop > blockGapRatio*math.Max(prev.size, cur.size)
}

func paragraphGap(prev, cur *layoutLine) bool {
	drop := prev.y - cur.y
	if drop <= 0 {
		return true
	}
	return drop > paragraphGapRatio*math.Max(prev.size, cur.size)
}

// renderText joins a page's text lines with "\n" and puts one empty line
// before each separated text block.
func renderText(blocks []Block, separated []bool) string {
	var b strings.Builder
	first := true
	for i, blk := range blocks {
		if blk.Kind != BlockText || len(blk.Lines) == 0 {
			continue
		}
		if !first {
			b.WriteByte('\n')
			if i < len(separated) && separated[i] {
				b.WriteByte('\n')
			}
		}
		first = false
		for j, l := range blk.Lines {
			if j > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(l.Text())
		}
	}
	return b.String()
}
