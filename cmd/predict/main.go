// Command predict labels new narratives with a previously trained
// model. Input comes from a CSV or spreadsheet file, or one narrative
// per line on stdin. Output is one tab-separated line per narrative:
// label, confidence, text.
package main

import (
    "bufio"
    "flag"
    "fmt"
    "log"
    "os"
    "path/filepath"
    "strings"

    "gravamen/dataset"
    "gravamen/ml"
)

func main() {
    modelsDir := flag.String("models", "models", "directory holding the saved model artifacts")
    modelType := flag.String("model", ml.ModelSVM, "classifier to use: svm or maxent")
    input := flag.String("input", "", "file of narratives to label (default: read lines from stdin)")
    column := flag.String("column", "narrative", "narrative column name for file input")
    sheet := flag.String("sheet", "", "worksheet name for spreadsheet input")
    encoding := flag.String("encoding", "", "text encoding for CSV input (utf-8, windows-1252, latin-1)")
    flag.Parse()

    vec, err := ml.LoadVectorizer(filepath.Join(*modelsDir, "vectorizer.json"))
    if err != nil {
        log.Fatalf("Failed to load vectorizer: %v", err)
    }
    labels, err := dataset.LoadLabelIndex(filepath.Join(*modelsDir, "labels.json"))
    if err != nil {
        log.Fatalf("Failed to load labels: %v", err)
    }
    model, err := ml.LoadModel(*modelType, filepath.Join(*modelsDir, *modelType+".json"))
    if err != nil {
        log.Fatalf("Failed to load model: %v", err)
    }

    records, err := readInput(*input, *column, *sheet, *encoding)
    if err != nil {
        log.Fatalf("Failed to read input: %v", err)
    }
    if len(records) == 0 {
        log.Fatal("No narratives to label")
    }

    docs, err := vec.Transform(dataset.Narratives(records))
    if err != nil {
        log.Fatalf("Failed to vectorize input: %v", err)
    }

    w := bufio.NewWriter(os.Stdout)
    defer w.Flush()
    for i, doc := range docs {
        label, confidence, err := model.Predict(doc)
        if err != nil {
            log.Fatalf("Prediction failed on row %d: %v", records[i].Row, err)
        }
        fmt.Fprintf(w, "%s\t%.3f\t%s\n", labels.Name(label), confidence, records[i].Narrative)
    }
}

func readInput(path, column, sheet, encoding string) ([]dataset.Record, error) {
    if path != "" {
        return dataset.Load(path, dataset.LoadOptions{
            NarrativeColumn: column,
            Encoding:        encoding,
            Sheet:           sheet,
        })
    }

    var records []dataset.Record
    scanner := bufio.NewScanner(os.Stdin)
    row := 0
    for scanner.Scan() {
        line := strings.TrimSpace(scanner.Text())
        if line == "" {
            continue
        }
        row++
        records = append(records, dataset.Record{Row: row, Narrative: line})
    }
    if err := scanner.Err(); err != nil {
        return nil, fmt.Errorf("read stdin: %w", err)
    }
    return records, nil
}
