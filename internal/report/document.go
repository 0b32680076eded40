package report

// Column widths of the fixed-layout tables. Long values are ellipsized to
// fit, never wrapped.
const (
	colName  = 32
	colSKU   = 16
	colColor = 12
	colCount = 8
)

// DefaultLinesPerPage is the page line budget when the caller does not set
// one.
const DefaultLinesPerPage = 48

// Page is one page of rendered report lines.
type Page struct {
	Number int      `json:"number"`
	Lines  []string `json:"lines"`
}

// Document is the paginated report: pre-rendered fixed-width text lines cut
// into pages. Rendering to PDF (or anything else) is a downstream concern;
// the document only fixes content, ordering, and layout.
type Document struct {
	Title       string `json:"title"`
	GeneratedAt string `json:"generated_at"`
	Pages       []Page `json:"pages"`
}

// TotalPages returns the number of pages in the document.
func (d *Document) TotalPages() int { return len(d.Pages) }

// docWriter accumulates lines and cuts them into pages by line budget.
type docWriter struct {
	linesPerPage int
	lines        []string
}

func (w *docWriter) line(s string) {
	w.lines = append(w.lines, s)
}

func (w *docWriter) blank() {
	w.line("")
}

// pages slices the accumulated lines into the final page list. An empty
// document still yields one (empty) page so consumers can rely on a cover.
func (w *docWriter) pages() []Page {
	per := w.linesPerPage
	if per < 1 {
		per = DefaultLinesPerPage
	}
	var out []Page
	for start := 0; start < len(w.lines); start += per {
		end := start + per
		if end > len(w.lines) {
			end = len(w.lines)
		}
		out = append(out, Page{Number: len(out) + 1, Lines: w.lines[start:end]})
	}
	if len(out) == 0 {
		out = append(out, Page{Number: 1})
	}
	return out
}
