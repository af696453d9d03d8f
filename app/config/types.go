package config

// RangeSource is a named pointer at a spreadsheet range holding podcast
// identifiers. Campaign requests can reference a source by name instead
// of carrying spreadsheet coordinates inline.
type RangeSource struct {
	Name          string `yaml:"name"`
	SpreadsheetID string `yaml:"spreadsheet_id"`
	Sheet         string `yaml:"sheet"`
	Range         string `yaml:"range"`
	IDColumn      int    `yaml:"id_column"`
	SkipHeader    bool   `yaml:"skip_header"`
}

// CellRange returns the A1-notation range to request from the sheets
// API, prefixed with the sheet name when one is set.
func (s *RangeSource) CellRange() string {
	if s.Sheet == "" {
		return s.Range
	}
	return s.Sheet + "!" + s.Range
}
