package extract

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// XLSX flattens every sheet into a "HOJA: <name>" header followed by one line
// per non-empty row, cells joined by " | ".
func XLSX(path string) (string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return "", fmt.Errorf("open workbook %s: %w", path, err)
	}
	defer f.Close()

	var parts []string
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", fmt.Errorf("read sheet %s: %w", sheet, err)
		}
		parts = append(parts, "HOJA: "+sheet)
		var lines []string
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			for _, c := range row {
				cells = append(cells, strings.TrimSpace(c))
			}
			line := strings.Join(cells, " | ")
			if strings.Trim(line, " |") == "" {
				continue
			}
			lines = append(lines, line)
		}
		if len(lines) > 0 {
			parts = append(parts, strings.Join(lines, "\n"))
		}
		parts = append(parts, "\n"+separator+"\n")
	}
	return strings.Join(parts, "\n"), nil
}
