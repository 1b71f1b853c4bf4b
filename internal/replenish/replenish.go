// Package replenish parses comma-separated replenishment feeds into
// inventory records.
//
// A feed starts with the header line
//
//	upc,name,wholesalePrice,retailPrice,quantity
//
// followed by one record per line. Blank lines are skipped.
package replenish

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/fairyhunter13/pos-register-simulator/internal/model"
	"github.com/fairyhunter13/pos-register-simulator/internal/money"
)

// Header lists the expected column names in order.
var Header = []string{"upc", "name", "wholesalePrice", "retailPrice", "quantity"}

var (
	ErrHeader      = errors.New("unexpected header")
	ErrFieldCount  = errors.New("wrong number of fields")
	ErrFieldFormat = errors.New("malformed field")
)

// ParseError reports the line and field that could not be parsed.
type ParseError struct {
	Line  int
	Field string
	Err   error
}

func (e *ParseError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("replenish: line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("replenish: line %d, field %s: %v", e.Line, e.Field, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Reader reads records from a replenishment feed.
type Reader struct {
	r          *csv.Reader
	headerRead bool
}

// NewReader returns a Reader consuming r.
func NewReader(r io.Reader) *Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &Reader{r: cr}
}

// Next returns the next record, or io.EOF once the feed is exhausted.
// The header is validated on the first call.
func (rd *Reader) Next() (model.Record, error) {
	if !rd.headerRead {
		if err := rd.readHeader(); err != nil {
			return model.Record{}, err
		}
		rd.headerRead = true
	}
	fields, line, err := rd.read()
	if err != nil {
		return model.Record{}, err
	}
	return parseRecord(line, fields)
}

func (rd *Reader) read() ([]string, int, error) {
	fields, err := rd.r.Read()
	if err != nil {
		var perr *csv.ParseError
		if errors.As(err, &perr) {
			return nil, perr.StartLine, &ParseError{Line: perr.StartLine, Err: fmt.Errorf("%w: %v", ErrFieldFormat, perr.Err)}
		}
		return nil, 0, err
	}
	line, _ := rd.r.FieldPos(0)
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}
	return fields, line, nil
}

func (rd *Reader) readHeader() error {
	fields, line, err := rd.read()
	if errors.Is(err, io.EOF) {
		return &ParseError{Line: 1, Err: fmt.Errorf("%w: missing header", ErrHeader)}
	}
	if err != nil {
		return err
	}
	return checkHeader(line, fields)
}

func checkHeader(line int, fields []string) error {
	n := min(len(fields), len(Header))
	for i := 0; i < n; i++ {
		if fields[i] != Header[i] {
			return &ParseError{
				Line:  line,
				Field: Header[i],
				Err:   fmt.Errorf("%w: field number=%d: expected %q but got %q", ErrHeader, i+1, Header[i], fields[i]),
			}
		}
	}
	if len(fields) != len(Header) {
		return &ParseError{
			Line: line,
			Err: fmt.Errorf("%w: field count mismatch: expected %d fields but got %d fields instead",
				ErrHeader, len(Header), len(fields)),
		}
	}
	return nil
}

func parseRecord(line int, fields []string) (model.Record, error) {
	if len(fields) != len(Header) {
		return model.Record{}, &ParseError{
			Line: line,
			Err:  fmt.Errorf("%w: expected=%d, actual=%d", ErrFieldCount, len(Header), len(fields)),
		}
	}
	fieldErr := func(i int, cause error) error {
		return &ParseError{Line: line, Field: Header[i], Err: fmt.Errorf("%w: %q: %v", ErrFieldFormat, fields[i], cause)}
	}
	for i := 0; i < 2; i++ {
		if fields[i] == "" {
			return model.Record{}, fieldErr(i, errors.New("must not be empty"))
		}
	}
	wholesale, err := money.Parse(fields[2])
	if err != nil {
		return model.Record{}, fieldErr(2, err)
	}
	retail, err := money.Parse(fields[3])
	if err != nil {
		return model.Record{}, fieldErr(3, err)
	}
	qty, err := strconv.Atoi(fields[4])
	if err != nil {
		return model.Record{}, fieldErr(4, err)
	}
	return model.Record{
		UPC:            fields[0],
		Name:           fields[1],
		WholesalePrice: wholesale,
		RetailPrice:    retail,
		Quantity:       qty,
	}, nil
}

// ParseAll reads every record of a feed. On error the records parsed so far
// are returned alongside it.
func ParseAll(r io.Reader) ([]model.Record, error) {
	rd := NewReader(r)
	var out []model.Record
	for {
		rec, err := rd.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}
