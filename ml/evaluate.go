package ml

import (
    "errors"
    "fmt"
)

// ClassMetrics holds per-label scores against the human coding.
type ClassMetrics struct {
    Label     string
    Precision float64
    Recall    float64
    F1        float64
    Support   int
}

// Evaluation is one model's scorecard on the held-out set.
type Evaluation struct {
    Model     string
    Total     int
    Correct   int
    Accuracy  float64
    Classes   []ClassMetrics
    Labels    []string
    Confusion [][]int
}

// Evaluate scores predictions against the human-coded labels. The
// confusion matrix is indexed [actual][predicted].
func Evaluate(model string, predicted, actual []int, labels []string) (*Evaluation, error) {
    if len(predicted) == 0 {
        return nil, errors.New("no predictions to evaluate")
    }
    if len(predicted) != len(actual) {
        return nil, fmt.Errorf("predicted and actual length mismatch: %d vs %d",
            len(predicted), len(actual))
    }
    n := len(labels)
    confusion := make([][]int, n)
    for i := range confusion {
        confusion[i] = make([]int, n)
    }

    correct := 0
    for i := range predicted {
        p, a := predicted[i], actual[i]
        if p < 0 || p >= n || a < 0 || a >= n {
            return nil, fmt.Errorf("sample %d: label ids %d/%d outside %d labels", i, a, p, n)
        }
        confusion[a][p]++
        if p == a {
            correct++
        }
    }

    eval := &Evaluation{
        Model:     model,
        Total:     len(predicted),
        Correct:   correct,
        Accuracy:  float64(correct) / float64(len(predicted)),
        Labels:    labels,
        Confusion: confusion,
    }
    for c := 0; c < n; c++ {
        var colSum, rowSum int
        for o := 0; o < n; o++ {
            colSum += confusion[o][c]
            rowSum += confusion[c][o]
        }
        metrics := ClassMetrics{Label: labels[c], Support: rowSum}
        hits := float64(confusion[c][c])
        if colSum > 0 {
            metrics.Precision = hits / float64(colSum)
        }
        if rowSum > 0 {
            metrics.Recall = hits / float64(rowSum)
        }
        if metrics.Precision+metrics.Recall > 0 {
            metrics.F1 = 2 * metrics.Precision * metrics.Recall / (metrics.Precision + metrics.Recall)
        }
        eval.Classes = append(eval.Classes, metrics)
    }
    return eval, nil
}

// AgreementStats quantifies how often two label sequences agree.
// Kappa is Cohen's chance-corrected agreement.
type AgreementStats struct {
    Total    int
    Agreed   int
    Observed float64
    Kappa    float64
}

// Agreement compares two label sequences of equal length, typically a
// model against the human coder or one model against another.
func Agreement(a, b []int, numLabels int) (AgreementStats, error) {
    if len(a) == 0 {
        return AgreementStats{}, errors.New("no samples to compare")
    }
    if len(a) != len(b) {
        return AgreementStats{}, fmt.Errorf("sequence length mismatch: %d vs %d", len(a), len(b))
    }
    if numLabels < 1 {
        return AgreementStats{}, errors.New("numLabels must be positive")
    }

    countA := make([]int, numLabels)
    countB := make([]int, numLabels)
    agreed := 0
    for i := range a {
        if a[i] < 0 || a[i] >= numLabels || b[i] < 0 || b[i] >= numLabels {
            return AgreementStats{}, fmt.Errorf("sample %d: label ids %d/%d outside %d labels",
                i, a[i], b[i], numLabels)
        }
        countA[a[i]]++
        countB[b[i]]++
        if a[i] == b[i] {
            agreed++
        }
    }

    n := float64(len(a))
    observed := float64(agreed) / n
    var expected float64
    for c := 0; c < numLabels; c++ {
        expected += (float64(countA[c]) / n) * (float64(countB[c]) / n)
    }

    stats := AgreementStats{
        Total:    len(a),
        Agreed:   agreed,
        Observed: observed,
    }
    if expected >= 1 {
        // Both sequences are constant on the same label, so there is
        // nothing left for chance correction to measure.
        stats.Kappa = 1
    } else {
        stats.Kappa = (observed - expected) / (1 - expected)
    }
    return stats, nil
}
