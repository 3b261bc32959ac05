package execution_log

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
)

var exportColumns = []string{"Timestamp", "Rule", "Account", "Action", "Target", "Target URL", "Outcome", "Detail", "Reference"}

// ExportToExcel renders entries into a single-sheet workbook.
func ExportToExcel(entries []ExecutionLog) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	sheetName := "Execution Log"
	index, err := f.NewSheet(sheetName)
	if err != nil {
		return nil, err
	}
	f.SetActiveSheet(index)
	f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E0E0E0"}, Pattern: 1},
	})
	if err != nil {
		return nil, err
	}

	for col, header := range exportColumns {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		f.SetCellValue(sheetName, cell, header)
		f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, entry := range entries {
		row := i + 2
		account := entry.AccountName
		if account == "" {
			account = entry.AccountID
		}
		values := []interface{}{
			entry.Timestamp.UTC().Format(time.RFC3339),
			entry.RuleName,
			account,
			entry.ActionType,
			entry.TargetName,
			entry.TargetURL,
			string(entry.Outcome),
			entry.Detail,
			entry.ExternalRef,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheetName, cell, value)
		}
	}

	f.SetColWidth(sheetName, "A", "A", 22)
	f.SetColWidth(sheetName, "E", "F", 30)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}
