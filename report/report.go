// Package report prints the analysis results as aligned console
// tables. Width calculations go through runewidth so narratives with
// wide or combining characters keep the columns straight.
package report

import (
    "fmt"
    "io"
    "strings"
    "time"

    runewidth "github.com/mattn/go-runewidth"

    "gravamen/ml"
)

// table accumulates rows and prints them with padded columns.
type table struct {
    headers []string
    rows    [][]string
}

func newTable(headers ...string) *table {
    return &table{headers: headers}
}

func (t *table) add(cells ...string) {
    t.rows = append(t.rows, cells)
}

func (t *table) write(w io.Writer, indent string) error {
    widths := make([]int, len(t.headers))
    for i, h := range t.headers {
        widths[i] = runewidth.StringWidth(h)
    }
    for _, row := range t.rows {
        for i, cell := range row {
            if i < len(widths) && runewidth.StringWidth(cell) > widths[i] {
                widths[i] = runewidth.StringWidth(cell)
            }
        }
    }

    line := func(cells []string) error {
        parts := make([]string, len(cells))
        for i, cell := range cells {
            if i < len(widths) {
                parts[i] = runewidth.FillRight(cell, widths[i])
            } else {
                parts[i] = cell
            }
        }
        _, err := fmt.Fprintf(w, "%s%s\n", indent, strings.TrimRight(strings.Join(parts, "  "), " "))
        return err
    }

    if err := line(t.headers); err != nil {
        return err
    }
    underline := make([]string, len(t.headers))
    for i := range t.headers {
        underline[i] = strings.Repeat("-", widths[i])
    }
    if err := line(underline); err != nil {
        return err
    }
    for _, row := range t.rows {
        if err := line(row); err != nil {
            return err
        }
    }
    return nil
}

func heading(w io.Writer, text string) error {
    _, err := fmt.Fprintf(w, "\n%s\n%s\n", text, strings.Repeat("=", runewidth.StringWidth(text)))
    return err
}

func pct(v float64) string {
    return fmt.Sprintf("%.1f%%", v*100)
}

func f3(v float64) string {
    return fmt.Sprintf("%.3f", v)
}

// WriteSummary prints one accuracy row per evaluated model.
func WriteSummary(w io.Writer, evals []*ml.Evaluation) error {
    if err := heading(w, "Model performance on held-out narratives"); err != nil {
        return err
    }
    t := newTable("Model", "Accuracy", "Correct", "Total")
    for _, eval := range evals {
        t.add(eval.Model, pct(eval.Accuracy),
            fmt.Sprintf("%d", eval.Correct), fmt.Sprintf("%d", eval.Total))
    }
    return t.write(w, "")
}

// WriteClassMetrics prints precision, recall and F1 per label for one
// model.
func WriteClassMetrics(w io.Writer, eval *ml.Evaluation) error {
    if err := heading(w, eval.Model+" per-label metrics"); err != nil {
        return err
    }
    t := newTable("Label", "Precision", "Recall", "F1", "Support")
    for _, c := range eval.Classes {
        t.add(c.Label, f3(c.Precision), f3(c.Recall), f3(c.F1), fmt.Sprintf("%d", c.Support))
    }
    return t.write(w, "")
}

// WriteConfusion prints a model's confusion matrix with actual labels
// as rows and predicted labels as columns.
func WriteConfusion(w io.Writer, eval *ml.Evaluation) error {
    if err := heading(w, eval.Model+" confusion matrix (rows actual, columns predicted)"); err != nil {
        return err
    }
    headers := append([]string{""}, eval.Labels...)
    t := newTable(headers...)
    for i, label := range eval.Labels {
        row := make([]string, 0, len(eval.Labels)+1)
        row = append(row, label)
        for j := range eval.Labels {
            row = append(row, fmt.Sprintf("%d", eval.Confusion[i][j]))
        }
        t.add(row...)
    }
    return t.write(w, "")
}

// AgreementRow names one compared pair and its agreement statistics.
type AgreementRow struct {
    A     string
    B     string
    Stats ml.AgreementStats
}

// WriteAgreement prints observed agreement and Cohen's kappa for each
// compared pair.
func WriteAgreement(w io.Writer, rows []AgreementRow) error {
    if err := heading(w, "Agreement"); err != nil {
        return err
    }
    t := newTable("Pair", "Observed", "Kappa", "Agreed", "Total")
    for _, row := range rows {
        t.add(row.A+" vs "+row.B, pct(row.Stats.Observed), f3(row.Stats.Kappa),
            fmt.Sprintf("%d", row.Stats.Agreed), fmt.Sprintf("%d", row.Stats.Total))
    }
    return t.write(w, "")
}

// TermView is a vocabulary term with its learned weight, ready for
// printing.
type TermView struct {
    Term   string
    Weight float64
}

// WriteTopTerms prints the terms that pull hardest toward each label
// of the linear model.
func WriteTopTerms(w io.Writer, model, posLabel, negLabel string, positive, negative []TermView) error {
    if err := heading(w, model+" most indicative terms"); err != nil {
        return err
    }
    rows := len(positive)
    if len(negative) > rows {
        rows = len(negative)
    }
    t := newTable("Rank", "Toward "+posLabel, "Weight", "Toward "+negLabel, "Weight")
    for i := 0; i < rows; i++ {
        posTerm, posWeight := "", ""
        if i < len(positive) {
            posTerm = positive[i].Term
            posWeight = fmt.Sprintf("%+.3f", positive[i].Weight)
        }
        negTerm, negWeight := "", ""
        if i < len(negative) {
            negTerm = negative[i].Term
            negWeight = fmt.Sprintf("%+.3f", negative[i].Weight)
        }
        t.add(fmt.Sprintf("%d", i+1), posTerm, posWeight, negTerm, negWeight)
    }
    return t.write(w, "")
}

// Disagreement is one held-out narrative where a model and the human
// coder differ.
type Disagreement struct {
    Row        int
    Narrative  string
    Human      string
    Predicted  string
    Confidence float64
}

// WriteDisagreements lists where the model went against the coder.
// Narratives are truncated to maxNarrativeWidth display cells.
func WriteDisagreements(w io.Writer, model string, rows []Disagreement, maxNarrativeWidth int) error {
    if err := heading(w, model+" disagreements with the human coding"); err != nil {
        return err
    }
    if len(rows) == 0 {
        _, err := fmt.Fprintln(w, "none")
        return err
    }
    if maxNarrativeWidth <= 0 {
        maxNarrativeWidth = 60
    }
    t := newTable("Row", "Human", "Model", "Conf", "Narrative")
    for _, d := range rows {
        t.add(fmt.Sprintf("%d", d.Row), d.Human, d.Predicted,
            fmt.Sprintf("%.2f", d.Confidence),
            runewidth.Truncate(d.Narrative, maxNarrativeWidth, "..."))
    }
    return t.write(w, "")
}

// RunView is one stored run row, ready for printing in the history
// table.
type RunView struct {
    RunID    string
    Model    string
    Accuracy float64
    F1       float64
    Kappa    float64
    When     time.Time
}

// WriteRunHistory prints previously recorded runs, newest first, so a
// fresh result can be read against the ones before it.
func WriteRunHistory(w io.Writer, rows []RunView) error {
    if err := heading(w, "Recorded runs"); err != nil {
        return err
    }
    if len(rows) == 0 {
        _, err := fmt.Fprintln(w, "none")
        return err
    }
    t := newTable("When", "Run", "Model", "Accuracy", "F1", "Kappa")
    for _, r := range rows {
        t.add(r.When.Format("2006-01-02 15:04"), shortID(r.RunID), r.Model,
            pct(r.Accuracy), f3(r.F1), f3(r.Kappa))
    }
    return t.write(w, "")
}

// shortID keeps run identifiers readable in a table column.
func shortID(id string) string {
    if len(id) > 8 {
        return id[:8]
    }
    return id
}
