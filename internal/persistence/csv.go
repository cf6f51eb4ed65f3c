package persistence

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
)

const (
	fieldDelimiter = ','
	quoteChar      = '"'
)

// EncodeTable renders a header line followed by one line per row.
func EncodeTable(header []string, rows [][]string) []byte {
	var buf bytes.Buffer
	writeRow(&buf, header)
	for _, row := range rows {
		writeRow(&buf, row)
	}
	return buf.Bytes()
}

func writeRow(buf *bytes.Buffer, fields []string) {
	for i, field := range fields {
		if i > 0 {
			buf.WriteByte(fieldDelimiter)
		}
		buf.WriteString(EscapeField(field))
	}
	buf.WriteByte('\n')
}

// EscapeField quote-wraps a value holding the delimiter, a quote or a line
// break and doubles its inner quotes. Other values are emitted raw.
func EscapeField(value string) string {
	if !strings.ContainsAny(value, ",\"\r\n") {
		return value
	}
	return string(quoteChar) + strings.ReplaceAll(value, `"`, `""`) + string(quoteChar)
}

// RowError describes a record DecodeTable skipped because of broken quoting.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

var (
	errStrayQuote   = errors.New("unexpected quote in field")
	errTrailingData = errors.New("unexpected data after closing quote")
	errUnterminated = errors.New("unterminated quoted field")
)

// DecodeTable parses text produced by EncodeTable. The first record is the
// header; blank lines are skipped. A record with broken quoting is dropped up
// to the next line break and reported in skipped while the remaining records
// still decode.
func DecodeTable(data []byte) (header []string, rows [][]string, skipped []RowError) {
	headerSeen := false
	line := 1
	for pos := 0; pos < len(data); {
		record, next, lines, err := scanRecord(data, pos)
		switch {
		case err != nil:
			skipped = append(skipped, RowError{Line: line, Err: err})
			next, lines = skipLine(data, pos)
			headerSeen = true
		case len(record) == 1 && record[0] == "":
		case !headerSeen:
			header, headerSeen = record, true
		default:
			rows = append(rows, record)
		}
		pos = next
		line += lines
	}
	return header, rows, skipped
}

// scanRecord reads one record starting at start. It returns the fields, the
// offset just past the record and the number of line breaks consumed.
func scanRecord(data []byte, start int) ([]string, int, int, error) {
	var (
		record   []string
		field    strings.Builder
		inQuotes bool
		quoted   bool
		lines    int
	)

	endField := func() {
		record = append(record, field.String())
		field.Reset()
		quoted = false
	}

	for i := start; i < len(data); i++ {
		c := data[i]
		if inQuotes {
			if c == quoteChar {
				if i+1 < len(data) && data[i+1] == quoteChar {
					field.WriteByte(quoteChar)
					i++
					continue
				}
				inQuotes = false
				continue
			}
			if c == '\n' {
				lines++
			}
			field.WriteByte(c)
			continue
		}

		switch c {
		case fieldDelimiter:
			endField()
		case '\n':
			endField()
			return record, i + 1, lines + 1, nil
		case '\r':
			if i+1 < len(data) && data[i+1] == '\n' {
				continue
			}
			if quoted {
				return nil, 0, 0, errTrailingData
			}
			field.WriteByte(c)
		case quoteChar:
			if field.Len() > 0 || quoted {
				return nil, 0, 0, errStrayQuote
			}
			inQuotes = true
			quoted = true
		default:
			if quoted {
				return nil, 0, 0, errTrailingData
			}
			field.WriteByte(c)
		}
	}

	if inQuotes {
		return nil, 0, 0, errUnterminated
	}
	endField()
	return record, len(data), lines, nil
}

// skipLine returns the offset just past the next line break after start.
func skipLine(data []byte, start int) (int, int) {
	if i := bytes.IndexByte(data[start:], '\n'); i >= 0 {
		return start + i + 1, 1
	}
	return len(data), 0
}
