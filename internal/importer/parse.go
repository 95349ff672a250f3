package importer

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"
	"golang.org/x/text/encoding/charmap"

	"github.com/mrtinhnguyen/govsense-tthc/pkg/types"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parser converts uploaded files into field maps
type Parser struct {
	logger *zap.Logger
}

// NewParser creates a parser
func NewParser(logger *zap.Logger) *Parser {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Parser{logger: logger.Named("importer")}
}

// ParseFile dispatches on the file extension. Only CSV is decoded; any other
// extension, .xlsx included, is an unsupported format.
func (p *Parser) ParseFile(name string, data []byte) ([]map[string]string, error) {
	ext := strings.ToLower(filepath.Ext(strings.TrimSpace(name)))
	switch ext {
	case ".csv":
		return p.ParseCSV(data)
	case "":
		return nil, types.Invalid("file name is required")
	default:
		return nil, fmt.Errorf("%w: %w: %s", types.ErrValidation, types.ErrUnsupportedFormat, ext)
	}
}

// ParseCSV decodes data and maps its rows. The first record is the header.
// Rows without a name are dropped.
func (p *Parser) ParseCSV(data []byte) ([]map[string]string, error) {
	text := decodeText(data)

	r := csv.NewReader(strings.NewReader(text))
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, types.Invalid("malformed csv: %v", err)
	}
	if len(records) < 2 {
		return []map[string]string{}, nil
	}

	mapping := MapHeaders(records[0])
	if len(mapping) == 0 {
		p.logger.Warn("no matching headers found", zap.Strings("headers", records[0]))
		return []map[string]string{}, nil
	}

	rows := make([]map[string]string, 0, len(records)-1)
	for _, record := range records[1:] {
		if row := rowToMap(record, mapping); row != nil {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

// decodeText tries UTF-8 (with or without BOM), then Windows-1252, then
// Latin-1, which accepts any byte sequence.
func decodeText(data []byte) string {
	if utf8.Valid(data) {
		return string(bytes.TrimPrefix(data, utf8BOM))
	}
	if s, ok := decodeStrict(charmap.Windows1252, data); ok {
		return s
	}
	s, _ := charmap.ISO8859_1.NewDecoder().Bytes(data)
	return string(s)
}

// decodeStrict decodes with cm and reports false when a byte has no mapping
func decodeStrict(cm *charmap.Charmap, data []byte) (string, bool) {
	for _, b := range data {
		if r := cm.DecodeByte(b); r == utf8.RuneError {
			return "", false
		}
	}
	out, err := cm.NewDecoder().Bytes(data)
	if err != nil {
		return "", false
	}
	return string(out), true
}
