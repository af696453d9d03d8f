package sheets

import "strings"

// IdentifierColumn extracts podcast identifiers from a block of sheet
// rows. Column indexing is zero-based; rows shorter than the column are
// skipped, as are blank cells. Order follows the sheet.
func IdentifierColumn(rows [][]string, column int, skipHeader bool) []string {
	if column < 0 {
		column = 0
	}

	ids := make([]string, 0, len(rows))
	for i, row := range rows {
		if skipHeader && i == 0 {
			continue
		}
		if column >= len(row) {
			continue
		}
		id := strings.TrimSpace(row[column])
		if id == "" {
			continue
		}
		ids = append(ids, id)
	}

	return ids
}
