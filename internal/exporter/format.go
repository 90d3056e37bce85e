package exporter

import (
	"strconv"
	"strings"
	"unicode/utf8"

	"salesinsight/internal/analysis"
	"salesinsight/internal/dataset"
)

const maxSheetName = 31

// cellValue converts a report cell into the value excelize stores. Amounts and
// counts stay numeric so the workbook can be summed; nulls become blank cells.
func cellValue(c analysis.Cell, kind analysis.ColumnKind) interface{} {
	switch kind {
	case analysis.ColumnAmount:
		if f, ok := c.Float(); ok {
			return f
		}
		return nil
	case analysis.ColumnCount:
		if n, ok := c.Count(); ok {
			return n
		}
		return nil
	case analysis.ColumnKey:
		return datasetValue(c.Key())
	default:
		return c.String()
	}
}

func datasetValue(v dataset.Value) interface{} {
	switch v.Kind() {
	case dataset.KindNull:
		return nil
	case dataset.KindNumber:
		f, _ := v.Float()
		return f
	default:
		return v.String()
	}
}

// sheetName maps a table name to a valid worksheet name that is unique in
// used, ignoring case. The caller's casing is kept.
func sheetName(name string, used map[string]bool) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, name)
	if clean == "" {
		clean = "Sheet"
	}
	clean = truncateRunes(clean, maxSheetName)
	candidate := clean
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := "_" + strconv.Itoa(i)
		candidate = truncateRunes(clean, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

// truncateRunes cuts s to at most n characters; Excel limits sheet names by
// character, not byte
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
