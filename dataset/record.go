// Package dataset loads and validates coded narrative files. Each
// record pairs a free-text incident narrative with the label a human
// coder assigned to it.
package dataset

import (
    "encoding/json"
    "fmt"
    "os"
    "sort"
    "strings"
)

// Record is one coded narrative row from an input file. Row is the
// 1-based data row it came from, excluding the header.
type Record struct {
    Row       int
    Narrative string
    Label     string
}

// Narratives returns just the narrative strings, in record order.
func Narratives(records []Record) []string {
    out := make([]string, len(records))
    for i, r := range records {
        out[i] = r.Narrative
    }
    return out
}

// LabelIndex maps label names to dense integer ids. Ids are assigned
// by sorted name so repeated runs over the same data agree.
type LabelIndex struct {
    names []string
    ids   map[string]int
}

// NewLabelIndex builds an index from the labels present in records.
func NewLabelIndex(records []Record) *LabelIndex {
    seen := make(map[string]struct{})
    for _, r := range records {
        seen[r.Label] = struct{}{}
    }
    names := make([]string, 0, len(seen))
    for name := range seen {
        names = append(names, name)
    }
    sort.Strings(names)

    ids := make(map[string]int, len(names))
    for i, name := range names {
        ids[name] = i
    }
    return &LabelIndex{names: names, ids: ids}
}

// Len returns the number of distinct labels.
func (li *LabelIndex) Len() int {
    return len(li.names)
}

// Names returns the label names in id order. The slice is shared and
// must not be modified.
func (li *LabelIndex) Names() []string {
    return li.names
}

// Name returns the label for id, or an empty string if out of range.
func (li *LabelIndex) Name(id int) string {
    if id < 0 || id >= len(li.names) {
        return ""
    }
    return li.names[id]
}

// ID looks up the id for a label name.
func (li *LabelIndex) ID(name string) (int, bool) {
    id, ok := li.ids[name]
    return id, ok
}

// Encode maps every record label to its id. A label missing from the
// index stops the run: scoring a file against classes the models never
// saw would silently corrupt the comparison.
func (li *LabelIndex) Encode(records []Record) ([]int, error) {
    out := make([]int, len(records))
    for i, r := range records {
        id, ok := li.ids[r.Label]
        if !ok {
            return nil, fmt.Errorf("row %d: label %q not present in training data (known: %s)",
                r.Row, r.Label, strings.Join(li.names, ", "))
        }
        out[i] = id
    }
    return out, nil
}

type labelIndexFile struct {
    Labels []string `json:"labels"`
}

// Save writes the label set to a JSON file next to the trained models
// so prediction runs decode ids back to names.
func (li *LabelIndex) Save(path string) error {
    data, err := json.MarshalIndent(labelIndexFile{Labels: li.names}, "", "  ")
    if err != nil {
        return fmt.Errorf("marshal label index: %w", err)
    }
    if err := os.WriteFile(path, data, 0o600); err != nil {
        return fmt.Errorf("write label index: %w", err)
    }
    return nil
}

// LoadLabelIndex reads a label set saved by Save.
func LoadLabelIndex(path string) (*LabelIndex, error) {
    data, err := os.ReadFile(path)
    if err != nil {
        return nil, fmt.Errorf("read label index: %w", err)
    }
    var file labelIndexFile
    if err := json.Unmarshal(data, &file); err != nil {
        return nil, fmt.Errorf("parse label index: %w", err)
    }
    if len(file.Labels) == 0 {
        return nil, fmt.Errorf("label index %s holds no labels", path)
    }
    ids := make(map[string]int, len(file.Labels))
    for i, name := range file.Labels {
        ids[name] = i
    }
    return &LabelIndex{names: file.Labels, ids: ids}, nil
}
