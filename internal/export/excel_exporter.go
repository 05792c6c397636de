package export

import (
	"fmt"
	"io"
	"time"

	"github.com/xuri/excelize/v2"
)

// ExcelExporter exports data to Excel format
type ExcelExporter struct {
	file    *excelize.File
	options ExcelOptions
}

// ExcelOptions configures Excel export behavior
type ExcelOptions struct {
	SheetName      string
	FreezeHeader   bool
	AutoFilter     bool
	NumberFormat   string
	HeaderFill     string
	HeaderFont     string
	MinColumnWidth float64
	MaxColumnWidth float64
}

// DefaultExcelOptions returns default Excel export options
func DefaultExcelOptions(sheet string) ExcelOptions {
	if sheet == "" {
		sheet = "Export"
	}
	return ExcelOptions{
		SheetName:      sheet,
		FreezeHeader:   true,
		AutoFilter:     true,
		NumberFormat:   "#,##0.00",
		HeaderFill:     "4472C4",
		HeaderFont:     "FFFFFF",
		MinColumnWidth: 10,
		MaxColumnWidth: 50,
	}
}

// NewExcelExporter creates a new Excel exporter
func NewExcelExporter(options ExcelOptions) *ExcelExporter {
	file := excelize.NewFile()
	file.SetSheetName("Sheet1", options.SheetName)

	return &ExcelExporter{
		file:    file,
		options: options,
	}
}

// WriteTable writes a styled header row and the data rows of t.
func (e *ExcelExporter) WriteTable(t *Table) error {
	sheet := e.options.SheetName

	headerStyle, err := e.file.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: e.options.HeaderFont},
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{e.options.HeaderFill}},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	numberStyle, err := e.file.NewStyle(&excelize.Style{CustomNumFmt: &e.options.NumberFormat})
	if err != nil {
		return fmt.Errorf("failed to create number style: %w", err)
	}
	dateStyle, err := e.file.NewStyle(&excelize.Style{NumFmt: 22})
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}

	widths := make([]float64, len(t.Columns))
	for i, col := range t.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := e.file.SetCellValue(sheet, cell, col.Title); err != nil {
			return fmt.Errorf("failed to write header: %w", err)
		}
		e.file.SetCellStyle(sheet, cell, cell, headerStyle)
		widths[i] = float64(len(col.Title)) * 1.2
	}

	for r, row := range t.Rows {
		for i, col := range t.Columns {
			cell, _ := excelize.CoordinatesToCellName(i+1, r+2)
			val := row[col.Key]

			switch v := val.(type) {
			case nil:
				continue
			case time.Time:
				if v.IsZero() {
					continue
				}
				e.file.SetCellValue(sheet, cell, v)
				e.file.SetCellStyle(sheet, cell, cell, dateStyle)
			case *time.Time:
				if v == nil || v.IsZero() {
					continue
				}
				e.file.SetCellValue(sheet, cell, *v)
				e.file.SetCellStyle(sheet, cell, cell, dateStyle)
			case float64:
				e.file.SetCellValue(sheet, cell, v)
				e.file.SetCellStyle(sheet, cell, cell, numberStyle)
			default:
				if err := e.file.SetCellValue(sheet, cell, v); err != nil {
					return fmt.Errorf("failed to set cell value: %w", err)
				}
			}

			if w := float64(len(fmt.Sprintf("%v", val))) * 1.2; w > widths[i] {
				widths[i] = w
			}
		}
	}

	if e.options.FreezeHeader {
		e.file.SetPanes(sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}

	if e.options.AutoFilter && len(t.Columns) > 0 && len(t.Rows) > 0 {
		lastCell, _ := excelize.CoordinatesToCellName(len(t.Columns), len(t.Rows)+1)
		if err := e.file.AutoFilter(sheet, "A1:"+lastCell, nil); err != nil {
			return fmt.Errorf("failed to apply auto filter: %w", err)
		}
	}

	for i, w := range widths {
		if w < e.options.MinColumnWidth {
			w = e.options.MinColumnWidth
		}
		if w > e.options.MaxColumnWidth {
			w = e.options.MaxColumnWidth
		}
		colName, _ := excelize.ColumnNumberToName(i + 1)
		e.file.SetColWidth(sheet, colName, colName, w)
	}

	return nil
}

// WriteTo writes the Excel file to a writer
func (e *ExcelExporter) WriteTo(w io.Writer) error {
	return e.file.Write(w)
}

// Close closes the Excel file
func (e *ExcelExporter) Close() error {
	return e.file.Close()
}
