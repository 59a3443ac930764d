package extract

import (
	"strconv"
	"strings"
)

// TJ kerning adjustments at or below this value (thousandths of an em) are
// wide enough to read as a word gap.
const tjSpaceThreshold = -200

type tokenKind int

const (
	tokOther tokenKind = iota
	tokNumber
	tokString
	tokName
	tokArray
	tokOperator
)

type token struct {
	kind  tokenKind
	num   float64
	str   string
	items []token
}

// textMatrix holds a b c d e f of a PDF text line matrix.
type textMatrix [6]float64

var identityMatrix = textMatrix{1, 0, 0, 1, 0, 0}

func (m textMatrix) translate(tx, ty float64) textMatrix {
	return textMatrix{
		m[0], m[1], m[2], m[3],
		tx*m[0] + ty*m[2] + m[4],
		tx*m[1] + ty*m[3] + m[5],
	}
}

// ScanContentStream walks a decoded page content stream and returns one item
// per text-showing operator, positioned at the current text line origin.
// Graphics state (CTM, font metrics) is not tracked.
func ScanContentStream(data []byte) []TextItem {
	s := &streamScanner{data: data}

	var (
		items    []TextItem
		operands []token
		line     = identityMatrix
		leading  float64
	)

	show := func(text string) {
		if text == "" {
			return
		}
		items = append(items, TextItem{X: line[4], Y: line[5], S: text})
	}
	nextLine := func() {
		line = line.translate(0, -leading)
	}

	for {
		tok, ok := s.next()
		if !ok {
			break
		}
		if tok.kind != tokOperator {
			operands = append(operands, tok)
			continue
		}

		switch tok.str {
		case "BT":
			line = identityMatrix
		case "Td":
			if tx, ty, ok := lastTwoNumbers(operands); ok {
				line = line.translate(tx, ty)
			}
		case "TD":
			if tx, ty, ok := lastTwoNumbers(operands); ok {
				leading = -ty
				line = line.translate(tx, ty)
			}
		case "Tm":
			if m, ok := matrixOperands(operands); ok {
				line = m
			}
		case "TL":
			if n := len(operands); n > 0 && operands[n-1].kind == tokNumber {
				leading = operands[n-1].num
			}
		case "T*":
			nextLine()
		case "Tj":
			show(lastString(operands))
		case "'", "\"":
			nextLine()
			show(lastString(operands))
		case "TJ":
			if n := len(operands); n > 0 && operands[n-1].kind == tokArray {
				show(joinTJ(operands[n-1].items))
			}
		case "ID":
			s.skipInlineImage()
		}
		operands = operands[:0]
	}
	return items
}

func lastTwoNumbers(ops []token) (float64, float64, bool) {
	n := len(ops)
	if n < 2 || ops[n-2].kind != tokNumber || ops[n-1].kind != tokNumber {
		return 0, 0, false
	}
	return ops[n-2].num, ops[n-1].num, true
}

func matrixOperands(ops []token) (textMatrix, bool) {
	n := len(ops)
	if n < 6 {
		return textMatrix{}, false
	}
	var m textMatrix
	for i, op := range ops[n-6:] {
		if op.kind != tokNumber {
			return textMatrix{}, false
		}
		m[i] = op.num
	}
	return m, true
}

func lastString(ops []token) string {
	if n := len(ops); n > 0 && ops[n-1].kind == tokString {
		return ops[n-1].str
	}
	return ""
}

func joinTJ(items []token) string {
	var b strings.Builder
	for _, it := range items {
		switch it.kind {
		case tokString:
			b.WriteString(it.str)
		case tokNumber:
			if it.num <= tjSpaceThreshold && b.Len() > 0 && !strings.HasSuffix(b.String(), " ") {
				b.WriteByte(' ')
			}
		}
	}
	return b.String()
}

type streamScanner struct {
	data []byte
	pos  int
}

func isPDFSpace(c byte) bool {
	switch c {
	case 0, '\t', '\n', '\f', '\r', ' ':
		return true
	}
	return false
}

func isPDFDelimiter(c byte) bool {
	switch c {
	case '(', ')', '<', '>', '[', ']', '{', '}', '/', '%':
		return true
	}
	return false
}

func (s *streamScanner) skipSpace() {
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		switch {
		case isPDFSpace(c):
			s.pos++
		case c == '%':
			for s.pos < len(s.data) && s.data[s.pos] != '\n' && s.data[s.pos] != '\r' {
				s.pos++
			}
		default:
			return
		}
	}
}

func (s *streamScanner) regular() string {
	start := s.pos
	for s.pos < len(s.data) && !isPDFSpace(s.data[s.pos]) && !isPDFDelimiter(s.data[s.pos]) {
		s.pos++
	}
	return string(s.data[start:s.pos])
}

func (s *streamScanner) next() (token, bool) {
	s.skipSpace()
	if s.pos >= len(s.data) {
		return token{}, false
	}

	c := s.data[s.pos]
	switch {
	case c == '(':
		return token{kind: tokString, str: s.literal()}, true
	case c == '<':
		if s.pos+1 < len(s.data) && s.data[s.pos+1] == '<' {
			s.pos += 2
			return token{kind: tokOther, str: "<<"}, true
		}
		return token{kind: tokString, str: s.hex()}, true
	case c == '>':
		s.pos++
		if s.pos < len(s.data) && s.data[s.pos] == '>' {
			s.pos++
		}
		return token{kind: tokOther}, true
	case c == '[':
		s.pos++
		var items []token
		for {
			s.skipSpace()
			if s.pos >= len(s.data) {
				break
			}
			if s.data[s.pos] == ']' {
				s.pos++
				break
			}
			it, ok := s.next()
			if !ok {
				break
			}
			items = append(items, it)
		}
		return token{kind: tokArray, items: items}, true
	case c == '/':
		s.pos++
		return token{kind: tokName, str: s.regular()}, true
	case c == '+' || c == '-' || c == '.' || (c >= '0' && c <= '9'):
		raw := s.regular()
		if raw == "" {
			s.pos++
			return token{kind: tokOther}, true
		}
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return token{kind: tokOther, str: raw}, true
		}
		return token{kind: tokNumber, num: f}, true
	}

	raw := s.regular()
	if raw == "" {
		// stray delimiter such as ')', ']' or '}'
		s.pos++
		return token{kind: tokOther}, true
	}
	return token{kind: tokOperator, str: raw}, true
}

// literal decodes a (...) string. Bytes map to runes one-to-one, which
// matches PDFDocEncoding for the ASCII range.
func (s *streamScanner) literal() string {
	var b strings.Builder
	s.pos++ // '('
	depth := 1
	for s.pos < len(s.data) {
		c := s.data[s.pos]
		s.pos++
		switch c {
		case '(':
			depth++
			b.WriteByte('(')
		case ')':
			depth--
			if depth == 0 {
				return b.String()
			}
			b.WriteByte(')')
		case '\\':
			if s.pos >= len(s.data) {
				return b.String()
			}
			e := s.data[s.pos]
			s.pos++
			switch e {
			case 'n':
				b.WriteByte('\n')
			case 'r':
				b.WriteByte('\r')
			case 't':
				b.WriteByte('\t')
			case 'b':
				b.WriteByte('\b')
			case 'f':
				b.WriteByte('\f')
			case '\r':
				if s.pos < len(s.data) && s.data[s.pos] == '\n' {
					s.pos++
				}
			case '\n':
			default:
				if e >= '0' && e <= '7' {
					val := int(e - '0')
					for i := 0; i < 2 && s.pos < len(s.data); i++ {
						d := s.data[s.pos]
						if d < '0' || d > '7' {
							break
						}
						val = val*8 + int(d-'0')
						s.pos++
					}
					b.WriteRune(rune(byte(val)))
				} else {
					b.WriteByte(e)
				}
			}
		default:
			b.WriteRune(rune(c))
		}
	}
	return b.String()
}

func (s *streamScanner) hex() string {
	s.pos++ // '<'
	var digits []byte
	for s.pos < len(s.data) && s.data[s.pos] != '>' {
		if c := s.data[s.pos]; !isPDFSpace(c) {
			digits = append(digits, c)
		}
		s.pos++
	}
	if s.pos < len(s.data) {
		s.pos++ // '>'
	}
	if len(digits)%2 == 1 {
		digits = append(digits, '0')
	}

	var b strings.Builder
	for i := 0; i+1 < len(digits); i += 2 {
		v, err := strconv.ParseUint(string(digits[i:i+2]), 16, 8)
		if err != nil {
			continue
		}
		b.WriteRune(rune(byte(v)))
	}
	return b.String()
}

// skipInlineImage moves past inline image data up to and including the EI
// operator that terminates it.
func (s *streamScanner) skipInlineImage() {
	for i := s.pos; i+1 < len(s.data); i++ {
		if s.data[i] != 'E' || s.data[i+1] != 'I' {
			continue
		}
		if i > 0 && !isPDFSpace(s.data[i-1]) {
			continue
		}
		if i+2 < len(s.data) && !isPDFSpace(s.data[i+2]) {
			continue
		}
		s.pos = i + 2
		return
	}
	s.pos = len(s.data)
}
