package spreadsheet

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/avenmed/clinic-intake/internal/core/domain"
)

// Parser decodes uploaded CSV or XLSX payloads into a header row plus
// data rows. Extension picks the strategy; anything that is not a
// workbook is treated as UTF-8 CSV.
type Parser struct{}

func NewParser() *Parser { return &Parser{} }

func (p *Parser) Parse(fileName string, data []byte) (*domain.Sheet, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("empty payload")
	}

	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".xlsx", ".xlsm":
		return parseWorkbook(data)
	default:
		return parseCSV(data)
	}
}

func parseCSV(data []byte) (*domain.Sheet, error) {
	data = bytes.TrimPrefix(data, []byte{0xEF, 0xBB, 0xBF})
	if !utf8.Valid(data) {
		return nil, fmt.Errorf("payload is not valid UTF-8 text")
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	var records [][]string
	var lines []int
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		// encoding/csv silently skips fully empty lines; FieldPos keeps
		// the physical line so reported row numbers stay honest.
		line, _ := reader.FieldPos(0)
		records = append(records, record)
		lines = append(lines, line)
	}
	return buildSheet(records, lines)
}

func parseWorkbook(data []byte) (*domain.Sheet, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, fmt.Errorf("workbook has no sheets")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("read sheet %q: %w", sheetName, err)
	}
	return buildSheet(rows, nil)
}

// buildSheet keeps only non-blank data rows but records each kept
// row's physical spreadsheet line, so blank lines in the middle of an
// upload never shift the numbers reported back to the uploader. lines
// aligns with records; nil means records are already physically
// contiguous (workbooks: GetRows returns blank rows as empty slices).
func buildSheet(records [][]string, lines []int) (*domain.Sheet, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("no header row")
	}

	headers := make([]string, len(records[0]))
	for i, h := range records[0] {
		headers[i] = strings.TrimSpace(h)
	}

	rows := make([][]string, 0, len(records)-1)
	rowLines := make([]int, 0, len(records)-1)
	for idx, record := range records[1:] {
		if blankRow(record) {
			continue
		}
		row := make([]string, len(headers))
		for i := range headers {
			if i < len(record) {
				row[i] = strings.TrimSpace(record[i])
			}
		}
		rows = append(rows, row)
		if lines != nil {
			rowLines = append(rowLines, lines[idx+1])
		} else {
			rowLines = append(rowLines, idx+2)
		}
	}

	return &domain.Sheet{Headers: headers, Rows: rows, Lines: rowLines}, nil
}

func blankRow(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
