package extract

import (
	"cmp"
	"fmt"
	"math"
	"slices"
	"strings"

	"github.com/ledongthuc/pdf"
)

// rule is an axis-aligned line segment. For horizontal rules pos is y and
// from/to span x; for vertical rules pos is x and from/to span y.
type rule struct {
	pos, from, to float64
}

type table struct {
	xs    []float64 // column edges, left to right
	ys    []float64 // row edges, top to bottom
	cells [][]*strings.Builder
}

// findTables detects ruled tables and returns those holding any text,
// ordered top to bottom then left to right.
func (e *Extractor) findTables(content pdf.Content) []*table {
	hs, vs := e.rules(content.Rect)
	if len(hs) < 2 || len(vs) < 2 {
		return nil
	}

	hs = joinRules(snapRules(hs, e.snapTolerance), e.snapTolerance)
	vs = joinRules(snapRules(vs, e.snapTolerance), e.snapTolerance)

	var tables []*table
	for _, group := range e.connectedGrids(hs, vs) {
		t := e.buildTable(group.hs, group.vs)
		if t == nil {
			continue
		}
		t.fill(content.Text, e.textTolerance)
		if t.empty() {
			continue
		}
		tables = append(tables, t)
	}

	slices.SortStableFunc(tables, func(a, b *table) int {
		if c := cmp.Compare(b.ys[0], a.ys[0]); c != 0 {
			return c
		}
		return cmp.Compare(a.xs[0], b.xs[0])
	})
	return tables
}

// rules classifies rectangles: thin ones are rules, larger ones contribute
// their four edges.
func (e *Extractor) rules(rects []pdf.Rect) (hs, vs []rule) {
	for _, r := range rects {
		x0, x1 := math.Min(r.Min.X, r.Max.X), math.Max(r.Min.X, r.Max.X)
		y0, y1 := math.Min(r.Min.Y, r.Max.Y), math.Max(r.Min.Y, r.Max.Y)
		w, h := x1-x0, y1-y0

		switch {
		case h <= e.ruleThickness && w > e.ruleThickness:
			hs = append(hs, rule{pos: (y0 + y1) / 2, from: x0, to: x1})
		case w <= e.ruleThickness && h > e.ruleThickness:
			vs = append(vs, rule{pos: (x0 + x1) / 2, from: y0, to: y1})
		case w > e.ruleThickness && h > e.ruleThickness:
			hs = append(hs, rule{pos: y0, from: x0, to: x1}, rule{pos: y1, from: x0, to: x1})
			vs = append(vs, rule{pos: x0, from: y0, to: y1}, rule{pos: x1, from: y0, to: y1})
		}
	}
	return hs, vs
}

// snapRules moves rules whose positions fall within tolerance of each other
// onto their shared mean.
func snapRules(rules []rule, tolerance float64) []rule {
	out := slices.Clone(rules)
	slices.SortFunc(out, func(a, b rule) int { return cmp.Compare(a.pos, b.pos) })

	for start := 0; start < len(out); {
		end := start + 1
		sum := out[start].pos
		for end < len(out) && out[end].pos-out[end-1].pos <= tolerance {
			sum += out[end].pos
			end++
		}
		mean := sum / float64(end-start)
		for i := start; i < end; i++ {
			out[i].pos = mean
		}
		start = end
	}
	return out
}

// joinRules merges collinear rules that overlap or nearly touch.
func joinRules(rules []rule, tolerance float64) []rule {
	if len(rules) == 0 {
		return nil
	}
	sorted := slices.Clone(rules)
	slices.SortFunc(sorted, func(a, b rule) int {
		if c := cmp.Compare(a.pos, b.pos); c != 0 {
			return c
		}
		return cmp.Compare(a.from, b.from)
	})

	out := []rule{sorted[0]}
	for _, r := range sorted[1:] {
		last := &out[len(out)-1]
		if r.pos == last.pos && r.from <= last.to+tolerance {
			last.to = math.Max(last.to, r.to)
			continue
		}
		out = append(out, r)
	}
	return out
}

type grid struct {
	hs, vs []rule
}

// connectedGrids groups rules that touch each other, one group per table.
func (e *Extractor) connectedGrids(hs, vs []rule) []grid {
	parent := make([]int, len(hs)+len(vs))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}

	tol := e.intersectionTolerance
	for i, h := range hs {
		for j, v := range vs {
			if v.pos >= h.from-tol && v.pos <= h.to+tol && h.pos >= v.from-tol && h.pos <= v.to+tol {
				a, b := find(i), find(len(hs)+j)
				if a != b {
					parent[a] = b
				}
			}
		}
	}

	groups := make(map[int]*grid)
	var order []int
	get := func(root int) *grid {
		g, ok := groups[root]
		if !ok {
			g = &grid{}
			groups[root] = g
			order = append(order, root)
		}
		return g
	}
	for i, h := range hs {
		g := get(find(i))
		g.hs = append(g.hs, h)
	}
	for j, v := range vs {
		g := get(find(len(hs) + j))
		g.vs = append(g.vs, v)
	}

	out := make([]grid, 0, len(order))
	for _, root := range order {
		out = append(out, *groups[root])
	}
	return out
}

func (e *Extractor) buildTable(hs, vs []rule) *table {
	xs := distinctPositions(vs, e.snapTolerance)
	ys := distinctPositions(hs, e.snapTolerance)
	if len(xs) < 2 || len(ys) < 2 {
		return nil
	}
	// A single framed box is not a table.
	if (len(xs)-1)*(len(ys)-1) < 2 {
		return nil
	}
	slices.Reverse(ys)

	cells := make([][]*strings.Builder, len(ys)-1)
	for r := range cells {
		cells[r] = make([]*strings.Builder, len(xs)-1)
		for c := range cells[r] {
			cells[r][c] = &strings.Builder{}
		}
	}
	return &table{xs: xs, ys: ys, cells: cells}
}

func distinctPositions(rules []rule, tolerance float64) []float64 {
	var out []float64
	for _, r := range rules {
		out = append(out, r.pos)
	}
	slices.Sort(out)
	return slices.CompactFunc(out, func(a, b float64) bool {
		return math.Abs(a-b) <= tolerance
	})
}

type glyphCursor struct {
	y, end float64
	set    bool
	space  bool
}

// fill assigns each glyph to the cell holding its horizontal centre and baseline.
func (t *table) fill(glyphs []pdf.Text, tolerance float64) {
	cursors := make(map[[2]int]*glyphCursor)
	for _, g := range glyphs {
		cx := g.X + g.W/2
		row, col := t.locate(cx, g.Y, tolerance)
		if row < 0 || col < 0 {
			continue
		}
		key := [2]int{row, col}
		cur, ok := cursors[key]
		if !ok {
			cur = &glyphCursor{}
			cursors[key] = cur
		}
		b := t.cells[row][col]

		if strings.TrimSpace(g.S) == "" {
			cur.space = true
			continue
		}
		if cur.set {
			gap := g.X - cur.end
			if cur.space || math.Abs(g.Y-cur.y) > tolerance || gap > g.FontSize*0.25 || gap < -tolerance {
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
		cur.y, cur.end, cur.set, cur.space = g.Y, g.X+g.W, true, false
	}
}

func (t *table) locate(x, y, tolerance float64) (row, col int) {
	row, col = -1, -1
	for c := 0; c+1 < len(t.xs); c++ {
		if x >= t.xs[c]-tolerance && x < t.xs[c+1] {
			col = c
			break
		}
	}
	for r := 0; r+1 < len(t.ys); r++ {
		if y <= t.ys[r]+tolerance && y > t.ys[r+1] {
			row = r
			break
		}
	}
	return row, col
}

func (t *table) text(row, col int) string {
	return strings.Join(strings.Fields(t.cells[row][col].String()), " ")
}

func (t *table) empty() bool {
	for r := range t.cells {
		for c := range t.cells[r] {
			if t.text(r, c) != "" {
				return false
			}
		}
	}
	return true
}

// serialize renders the table as a tagged block. The first row is the header.
func (t *table) serialize(n, page int) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %d PAGE %d ---", TableTagPrefix, n, page)
	for r := range t.cells {
		cols := make([]string, len(t.cells[r]))
		for c := range cols {
			cols[c] = t.text(r, c)
		}
		b.WriteByte('\n')
		b.WriteString(strings.Join(cols, " | "))
	}
	return b.String()
}

// TableTagPrefix starts every serialized table block.
const TableTagPrefix = "--- TABLE"
