package export

import (
	"bytes"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

// Format is a supported download format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatExcel Format = "xlsx"
)

// ParseFormat maps a query value to a Format, defaulting to CSV.
func ParseFormat(raw string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "csv":
		return FormatCSV, nil
	case "xlsx", "excel":
		return FormatExcel, nil
	default:
		return "", fmt.Errorf("unsupported export format %q", raw)
	}
}

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	if f == FormatExcel {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv"
}

// Column maps a row key to its header title.
type Column struct {
	Key   string
	Title string
}

// Table is a tabular dataset ready for export.
type Table struct {
	Name    string
	Columns []Column
	Rows    []map[string]interface{}
}

func (t *Table) titles() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Title
	}
	return out
}

// Render encodes table in format.
func Render(format Format, table *Table) ([]byte, error) {
	var buf bytes.Buffer
	switch format {
	case FormatExcel:
		exporter := NewExcelExporter(DefaultExcelOptions(table.Name))
		defer exporter.Close()
		if err := exporter.WriteTable(table); err != nil {
			return nil, err
		}
		if err := exporter.WriteTo(&buf); err != nil {
			return nil, fmt.Errorf("failed to write workbook: %w", err)
		}
	default:
		exporter := NewCSVExporter(&buf, DefaultCSVOptions())
		if err := exporter.WriteTable(table); err != nil {
			return nil, err
		}
		if err := exporter.Flush(); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Send renders table and writes it as a file download.
func Send(c *gin.Context, format Format, filename string, table *Table) error {
	data, err := Render(format, table)
	if err != nil {
		return err
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+"."+string(format)))
	c.Data(http.StatusOK, format.ContentType(), data)
	return nil
}
