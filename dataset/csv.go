package dataset

import (
    "encoding/csv"
    "errors"
    "fmt"
    "io"
    "os"
    "path/filepath"
    "strings"

    "golang.org/x/text/encoding"
    "golang.org/x/text/encoding/charmap"
    "golang.org/x/text/transform"
)

// LoadOptions names the columns to read and how the file is encoded.
type LoadOptions struct {
    // NarrativeColumn is the header of the free-text column.
    NarrativeColumn string
    // LabelColumn is the header of the human-coded label column.
    LabelColumn string
    // Encoding is one of "", "utf-8", "windows-1252" or "latin-1".
    // Empty means UTF-8. Ignored for spreadsheets, which carry their
    // own encoding.
    Encoding string
    // Sheet selects the worksheet for spreadsheet files. Empty means
    // the first sheet.
    Sheet string
}

// Load reads records from path, picking the reader by file extension.
// Files ending in .xlsx or .xlsm are treated as spreadsheets, anything
// else as CSV.
func Load(path string, opts LoadOptions) ([]Record, error) {
    switch strings.ToLower(filepath.Ext(path)) {
    case ".xlsx", ".xlsm":
        return LoadExcel(path, opts)
    default:
        return LoadCSV(path, opts)
    }
}

// LoadCSV reads coded narratives from a CSV file with a header row.
func LoadCSV(path string, opts LoadOptions) ([]Record, error) {
    f, err := os.Open(path)
    if err != nil {
        return nil, fmt.Errorf("open %s: %w", path, err)
    }
    defer f.Close()

    reader, err := decodingReader(f, opts.Encoding)
    if err != nil {
        return nil, fmt.Errorf("read %s: %w", path, err)
    }

    cr := csv.NewReader(reader)
    cr.FieldsPerRecord = -1

    header, err := cr.Read()
    if err == io.EOF {
        return nil, fmt.Errorf("%s: file is empty", path)
    }
    if err != nil {
        return nil, fmt.Errorf("read header of %s: %w", path, err)
    }
    narrCol, labelCol, err := resolveColumns(header, opts)
    if err != nil {
        return nil, fmt.Errorf("%s: %w", path, err)
    }

    var records []Record
    row := 0
    for {
        fields, err := cr.Read()
        if err == io.EOF {
            break
        }
        if err != nil {
            return nil, fmt.Errorf("read %s: %w", path, err)
        }
        row++
        if len(fields) <= narrCol || len(fields) <= labelCol {
            return nil, fmt.Errorf("%s row %d: %d fields, need at least %d",
                path, row, len(fields), max(narrCol, labelCol)+1)
        }
        label := ""
        if labelCol >= 0 {
            label = strings.TrimSpace(fields[labelCol])
        }
        records = append(records, Record{
            Row:       row,
            Narrative: strings.TrimSpace(fields[narrCol]),
            Label:     label,
        })
    }
    if len(records) == 0 {
        return nil, fmt.Errorf("%s: no data rows after header", path)
    }
    return records, nil
}

// SupportedEncoding reports whether name is an encoding the loader
// can transcode.
func SupportedEncoding(name string) bool {
    switch strings.ToLower(strings.TrimSpace(name)) {
    case "", "utf-8", "utf8", "windows-1252", "cp1252", "latin-1", "iso-8859-1", "latin1":
        return true
    default:
        return false
    }
}

// decodingReader wraps r so the rest of the loader always sees UTF-8.
// Exports from older records systems commonly arrive in Windows-1252.
func decodingReader(r io.Reader, name string) (io.Reader, error) {
    var dec *encoding.Decoder
    switch strings.ToLower(strings.TrimSpace(name)) {
    case "", "utf-8", "utf8":
        return r, nil
    case "windows-1252", "cp1252":
        dec = charmap.Windows1252.NewDecoder()
    case "latin-1", "iso-8859-1", "latin1":
        dec = charmap.ISO8859_1.NewDecoder()
    default:
        return nil, fmt.Errorf("unsupported encoding %q", name)
    }
    return transform.NewReader(r, dec), nil
}

// resolveColumns finds the narrative and label columns in a header
// row. Matching ignores case and surrounding whitespace, and a UTF-8
// byte order mark on the first cell. An empty LabelColumn means the
// file carries no labels and the label index comes back as -1.
func resolveColumns(header []string, opts LoadOptions) (int, int, error) {
    if opts.NarrativeColumn == "" {
        return 0, 0, errors.New("narrative column name is required")
    }
    narrCol, labelCol := -1, -1
    for i, name := range header {
        if i == 0 {
            name = strings.TrimPrefix(name, "﻿")
        }
        name = strings.TrimSpace(name)
        if narrCol < 0 && strings.EqualFold(name, opts.NarrativeColumn) {
            narrCol = i
        }
        if opts.LabelColumn != "" && labelCol < 0 && strings.EqualFold(name, opts.LabelColumn) {
            labelCol = i
        }
    }
    if narrCol < 0 {
        return 0, 0, fmt.Errorf("narrative column %q not found (header: %s)",
            opts.NarrativeColumn, strings.Join(header, ", "))
    }
    if opts.LabelColumn != "" && labelCol < 0 {
        return 0, 0, fmt.Errorf("label column %q not found (header: %s)",
            opts.LabelColumn, strings.Join(header, ", "))
    }
    if narrCol == labelCol {
        return 0, 0, fmt.Errorf("narrative and label both resolve to column %d", narrCol)
    }
    return narrCol, labelCol, nil
}
