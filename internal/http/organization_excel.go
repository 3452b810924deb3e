package httpapi

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/gol43/test-moon/internal/domain"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

const organizationsSheet = "Organizations"

// OrganizationExportHeader is the column order of the export.
var OrganizationExportHeader = []string{
	"ID",
	"Name",
	"Phones",
	"Building ID",
	"Address",
	"Latitude",
	"Longitude",
	"Activities",
}

var organizationColumnWidths = []float64{8, 30, 28, 12, 36, 12, 12, 40}

// GenerateOrganizationsExport renders orgs into a single-sheet workbook with a frozen header row.
func GenerateOrganizationsExport(orgs []*domain.Organization) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(organizationsSheet)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to delete default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}

	for i, header := range OrganizationExportHeader {
		if err := setCellValue(f, i+1, 1, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell: %w", err)
		}
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(organizationsSheet, col, col, organizationColumnWidths[i]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}
	lastHeader, _ := excelize.CoordinatesToCellName(len(OrganizationExportHeader), 1)
	if err := f.SetCellStyle(organizationsSheet, "A1", lastHeader, headerStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set header style: %w", err)
	}

	for i, o := range orgs {
		row := i + 2
		values := []any{o.ID, o.Name, strings.Join(o.Phones, ", "), o.BuildingID, "", nil, nil, activityNames(o.Activities)}
		if o.Building != nil {
			values[4] = o.Building.Address
			values[5] = o.Building.Coordinates.Lat
			values[6] = o.Building.Coordinates.Lon
		}
		for col, v := range values {
			if v == nil {
				continue
			}
			if err := setCellValue(f, col+1, row, v); err != nil {
				f.Close()
				return nil, fmt.Errorf("failed to set cell at row %d: %w", row, err)
			}
		}
	}

	if err := f.SetPanes(organizationsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}

func setCellValue(f *excelize.File, col, row int, value any) error {
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		return err
	}
	return f.SetCellValue(organizationsSheet, cell, value)
}

func activityNames(activities []*domain.Activity) string {
	names := make([]string, len(activities))
	for i, a := range activities {
		names[i] = a.Name
	}
	return strings.Join(names, ", ")
}
