package dataset

import (
    "fmt"
    "strings"

    "github.com/xuri/excelize/v2"
)

// LoadExcel reads coded narratives from a spreadsheet. The first row
// of the chosen sheet is the header. Rows whose cells are all blank
// are skipped, since exported sheets often trail off into empty rows.
func LoadExcel(path string, opts LoadOptions) ([]Record, error) {
    f, err := excelize.OpenFile(path)
    if err != nil {
        return nil, fmt.Errorf("open %s: %w", path, err)
    }
    defer f.Close()

    sheet := opts.Sheet
    if sheet == "" {
        sheets := f.GetSheetList()
        if len(sheets) == 0 {
            return nil, fmt.Errorf("%s: workbook has no sheets", path)
        }
        sheet = sheets[0]
    }

    rows, err := f.GetRows(sheet)
    if err != nil {
        return nil, fmt.Errorf("read sheet %q of %s: %w", sheet, path, err)
    }
    if len(rows) == 0 {
        return nil, fmt.Errorf("%s sheet %q: sheet is empty", path, sheet)
    }
    narrCol, labelCol, err := resolveColumns(rows[0], opts)
    if err != nil {
        return nil, fmt.Errorf("%s sheet %q: %w", path, sheet, err)
    }

    var records []Record
    row := 0
    for _, cells := range rows[1:] {
        if allBlank(cells) {
            continue
        }
        row++
        records = append(records, Record{
            Row:       row,
            Narrative: strings.TrimSpace(cell(cells, narrCol)),
            Label:     strings.TrimSpace(cell(cells, labelCol)),
        })
    }
    if len(records) == 0 {
        return nil, fmt.Errorf("%s sheet %q: no data rows after header", path, sheet)
    }
    return records, nil
}

// cell reads column i of a spreadsheet row. The reader omits trailing
// empty cells, so a short row means blank cells, not a bad file. A
// negative index means the column is not mapped at all.
func cell(cells []string, i int) string {
    if i < 0 || i >= len(cells) {
        return ""
    }
    return cells[i]
}

func allBlank(cells []string) bool {
    for _, c := range cells {
        if strings.TrimSpace(c) != "" {
            return false
        }
    }
    return true
}
