// Package csvimport parses the spreadsheet text people paste or upload for
// bulk invoice entry. Files come from Excel, Google Sheets and hand edits, so
// the delimiter is detected per line and a header row is optional.
package csvimport

import (
	"bytes"
	"encoding/csv"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
	"golang.org/x/text/width"
)

// CommentPrefix starts template comment lines, which are dropped
const CommentPrefix = "#"

// Delimiters are the candidates for per-line detection, comma first
var Delimiters = []rune{',', '\t', ';'}

var lineBreak = regexp.MustCompile(`\r?\n`)

// Line is one non-blank, non-comment line split into cells
type Line struct {
	Number int // 1-based among data lines, counting the header
	Cells  []string
}

// Sheet is a parsed upload
type Sheet struct {
	HasHeader bool
	Header    []string
	Lines     []Line
}

// ParserOption configures Parse
type ParserOption func(*parser)

type parser struct {
	maxSize       int
	foldFullWidth bool
}

// WithMaxSize overrides MaxFileSize
func WithMaxSize(n int) ParserOption {
	return func(p *parser) {
		p.maxSize = n
	}
}

// WithFullWidthFolding folds full-width digits and letters (common in Korean
// spreadsheets) to their ASCII forms. Enabled by default.
func WithFullWidthFolding(enabled bool) ParserOption {
	return func(p *parser) {
		p.foldFullWidth = enabled
	}
}

// Parse splits the text into lines and cells. Lines split on \r?\n, are
// trimmed, and blank or comment lines are dropped. The first remaining line
// is treated as a header when it looks like one (see IsHeader). Line numbers
// start at 2 after a header, else 1.
func Parse(data []byte, opts ...ParserOption) (*Sheet, error) {
	p := &parser{maxSize: MaxFileSize, foldFullWidth: true}
	for _, opt := range opts {
		opt(p)
	}

	if len(data) > p.maxSize {
		return nil, ErrFileTooLarge
	}
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(data) {
		return nil, ErrInvalidEncoding
	}

	text := norm.NFC.String(string(data))
	var raw []string
	for _, l := range lineBreak.Split(text, -1) {
		l = strings.TrimSpace(l)
		if l == "" || strings.HasPrefix(l, CommentPrefix) {
			continue
		}
		raw = append(raw, l)
	}
	if len(raw) == 0 {
		return nil, ErrEmptyFile
	}

	sheet := &Sheet{}
	first := p.split(raw[0])
	if IsHeader(first) {
		sheet.HasHeader = true
		sheet.Header = first
		raw = raw[1:]
	}

	start := 1
	if sheet.HasHeader {
		start = 2
	}
	sheet.Lines = make([]Line, 0, len(raw))
	for i, l := range raw {
		sheet.Lines = append(sheet.Lines, Line{Number: start + i, Cells: p.split(l)})
	}
	return sheet, nil
}

func (p *parser) split(line string) []string {
	cells := SplitLine(line, DetectDelimiter(line))
	if p.foldFullWidth {
		for i, c := range cells {
			cells[i] = width.Fold.String(c)
		}
	}
	return cells
}

// DetectDelimiter returns the most frequent candidate delimiter of the
// line. On a tie the earlier candidate wins; a line without any candidate
// falls back to comma.
func DetectDelimiter(line string) rune {
	best, bestCount := ',', 0
	for _, d := range Delimiters {
		if n := strings.Count(line, string(d)); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}

// SplitLine splits one line on delim. Quoted fields may contain the
// delimiter and "" escapes a quote. Cells are trimmed.
func SplitLine(line string, delim rune) []string {
	r := csv.NewReader(strings.NewReader(line))
	r.Comma = delim
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	cells, err := r.Read()
	if err != nil {
		cells = strings.Split(line, string(delim))
		for i, c := range cells {
			cells[i] = strings.Trim(strings.TrimSpace(c), `"`)
		}
	}
	for i, c := range cells {
		cells[i] = strings.TrimSpace(c)
	}
	return cells
}

// IsHeader reports whether the first line is a header: some cell carries a
// Hangul or Latin letter and is not purely numeric. A headerless file whose
// first row names a carrier ("cj") therefore loses that row; uploads are
// expected to start with the template header.
func IsHeader(cells []string) bool {
	for _, c := range cells {
		if hasLetter(c) && !isNumeric(c) {
			return true
		}
	}
	return false
}

// LooksLikeTrackingNo reports whether s, ignoring whitespace, is a non-empty
// run of digits and hyphens
func LooksLikeTrackingNo(s string) bool {
	n := 0
	for _, r := range s {
		switch {
		case unicode.IsSpace(r):
		case (r >= '0' && r <= '9') || r == '-':
			n++
		default:
			return false
		}
	}
	return n > 0
}

// StripSpaces removes every whitespace rune
func StripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

func hasLetter(s string) bool {
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || unicode.Is(unicode.Hangul, r) {
			return true
		}
	}
	return false
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
