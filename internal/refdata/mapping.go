// Trailatlas - Activity Region Attribution and Visitation Tracking
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/trailatlas

package refdata

import (
	"context"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/tomtom215/trailatlas/internal/catalog"
	"github.com/tomtom215/trailatlas/internal/logging"
	"github.com/tomtom215/trailatlas/internal/models"
)

// HierarchyMapping implements catalog.Source.
func (l *Loader) HierarchyMapping(ctx context.Context) (map[string]models.HierarchyParents, error) {
	file, err := l.fetch(ctx, l.cfg.MappingURL)
	if err != nil {
		return nil, err
	}
	wb, err := excelize.OpenFile(file)
	if err != nil {
		return nil, fmt.Errorf("%w: open workbook %s: %v", catalog.ErrReferenceData, file, err)
	}
	defer func() {
		if err := wb.Close(); err != nil {
			logging.Warn().Err(err).Str("file", file).Msg("Failed to close workbook")
		}
	}()
	return ParseMapping(wb, l.cfg.CountrySheets)
}

// ParseMapping reads one sheet per country. With an empty allow-list, sheets
// whose name is two uppercase ASCII letters are treated as countries. A
// listed sheet that does not exist is an error.
func ParseMapping(wb *excelize.File, allow []string) (map[string]models.HierarchyParents, error) {
	sheets, err := selectSheets(wb.GetSheetList(), allow)
	if err != nil {
		return nil, err
	}
	logging.Info().Int("sheets", len(sheets)).Strs("countries", sheets).Msg("Parsing LAU to NUTS mapping")

	mapping := make(map[string]models.HierarchyParents)
	parsedSheets := 0
	for _, sheet := range sheets {
		rows, err := wb.GetRows(sheet)
		if err != nil {
			logging.Warn().Err(err).Str("sheet", sheet).Msg("Failed to read mapping sheet")
			continue
		}
		n, ok := parseSheet(sheet, rows, mapping)
		if !ok {
			continue
		}
		parsedSheets++
		logging.Debug().Str("sheet", sheet).Int("rows", n).Msg("Parsed mapping sheet")
	}

	if parsedSheets == 0 || len(mapping) == 0 {
		return nil, fmt.Errorf("%w: no valid country mappings found in workbook", catalog.ErrReferenceData)
	}
	logging.Info().Int("mappings", len(mapping)).Msg("LAU to NUTS mapping parsed")
	return mapping, nil
}

func selectSheets(all, allow []string) ([]string, error) {
	if len(allow) == 0 {
		var out []string
		for _, s := range all {
			if isCountrySheet(s) {
				out = append(out, s)
			}
		}
		return out, nil
	}

	present := make(map[string]bool, len(all))
	for _, s := range all {
		present[s] = true
	}
	for _, s := range allow {
		if !present[s] {
			return nil, fmt.Errorf("%w: configured country sheet %q not in workbook", catalog.ErrReferenceData, s)
		}
	}
	return allow, nil
}

func isCountrySheet(name string) bool {
	if len(name) != 2 {
		return false
	}
	for i := 0; i < 2; i++ {
		if name[i] < 'A' || name[i] > 'Z' {
			return false
		}
	}
	return true
}

// parseSheet adds one sheet's rows to mapping. The first row is the header;
// the NUTS3 column contains "NUTS" and "3", the LAU column "EU" and "LAU".
func parseSheet(sheet string, rows [][]string, mapping map[string]models.HierarchyParents) (int, bool) {
	if len(rows) == 0 {
		logging.Warn().Str("sheet", sheet).Msg("Mapping sheet is empty")
		return 0, false
	}

	nutsCol, lauCol := -1, -1
	for i, h := range rows[0] {
		col := strings.ToUpper(h)
		switch {
		case nutsCol < 0 && strings.Contains(col, "NUTS") && strings.Contains(col, "3"):
			nutsCol = i
		case lauCol < 0 && strings.Contains(col, "EU") && strings.Contains(col, "LAU"):
			lauCol = i
		}
	}
	if nutsCol < 0 || lauCol < 0 {
		logging.Warn().Str("sheet", sheet).Strs("columns", rows[0]).Msg("Could not find NUTS3/EU LAU columns")
		return 0, false
	}

	added, invalid := 0, 0
	for _, row := range rows[1:] {
		nuts3 := cell(row, nutsCol)
		lau := cell(row, lauCol)
		if nuts3 == "" || lau == "" {
			continue
		}
		parents, err := models.ParentsFromNUTS3(nuts3)
		if err != nil {
			invalid++
			continue
		}
		mapping[lau] = parents
		added++
	}
	if invalid > 0 {
		logging.Warn().Str("sheet", sheet).Int("invalid", invalid).Msg("Skipped rows with malformed NUTS3 codes")
	}
	return added, true
}

func cell(row []string, i int) string {
	if i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
