package ml

import (
    "errors"
    "fmt"
    "math/rand"

    "go.uber.org/zap"
)

// SVMGrid is the hyperparameter grid searched by TuneSVM.
type SVMGrid struct {
    Lambdas []float64
    Epochs  []int
}

// DefaultSVMGrid spans the regularization range that matters for
// corpora of a few thousand narratives.
func DefaultSVMGrid() SVMGrid {
    return SVMGrid{
        Lambdas: []float64{1e-2, 1e-3, 1e-4, 1e-5},
        Epochs:  []int{5, 10, 20},
    }
}

// SVMTuneResult is the best grid point found and its validation
// accuracy.
type SVMTuneResult struct {
    Lambda   float64
    Epochs   int
    Accuracy float64
    Tried    int
}

// TuneSVM holds out part of the training documents, trains one SVM per
// grid point on the rest and keeps the settings with the best holdout
// accuracy. Ties keep the earlier grid point, so the grid should be
// ordered from stronger to weaker regularization.
func TuneSVM(docs []Document, labels []int, holdoutRatio float64, seed int64, grid SVMGrid, logger *zap.Logger) (*SVMTuneResult, error) {
    if len(docs) != len(labels) {
        return nil, fmt.Errorf("documents and labels length mismatch: %d vs %d", len(docs), len(labels))
    }
    if len(docs) < 10 {
        return nil, fmt.Errorf("%d documents is too few to tune on", len(docs))
    }
    if len(grid.Lambdas) == 0 || len(grid.Epochs) == 0 {
        return nil, errors.New("empty tuning grid")
    }
    if logger == nil {
        logger = zap.NewNop()
    }
    if holdoutRatio <= 0 || holdoutRatio >= 1 {
        holdoutRatio = 0.2
    }

    perm := rand.New(rand.NewSource(seed)).Perm(len(docs))
    cut := len(docs) - int(float64(len(docs))*holdoutRatio)
    if cut < 1 {
        cut = 1
    }
    if cut >= len(docs) {
        cut = len(docs) - 1
    }
    trainDocs := make([]Document, 0, cut)
    trainLabels := make([]int, 0, cut)
    valDocs := make([]Document, 0, len(docs)-cut)
    valLabels := make([]int, 0, len(docs)-cut)
    for i, src := range perm {
        if i < cut {
            trainDocs = append(trainDocs, docs[src])
            trainLabels = append(trainLabels, labels[src])
        } else {
            valDocs = append(valDocs, docs[src])
            valLabels = append(valLabels, labels[src])
        }
    }

    var best *SVMTuneResult
    tried := 0
    for _, lambda := range grid.Lambdas {
        for _, epochs := range grid.Epochs {
            tried++
            svm := NewLinearSVM(SVMConfig{Epochs: epochs, Lambda: lambda, Seed: seed})
            if err := svm.Train(trainDocs, trainLabels); err != nil {
                return nil, fmt.Errorf("grid point lambda=%g epochs=%d: %w", lambda, epochs, err)
            }
            correct := 0
            for i, doc := range valDocs {
                label, _, err := svm.Predict(doc)
                if err != nil {
                    return nil, fmt.Errorf("grid point lambda=%g epochs=%d: %w", lambda, epochs, err)
                }
                if label == valLabels[i] {
                    correct++
                }
            }
            accuracy := float64(correct) / float64(len(valDocs))
            logger.Debug("tuning grid point",
                zap.Float64("lambda", lambda),
                zap.Int("epochs", epochs),
                zap.Float64("accuracy", accuracy))
            if best == nil || accuracy > best.Accuracy {
                best = &SVMTuneResult{Lambda: lambda, Epochs: epochs, Accuracy: accuracy}
            }
        }
    }
    best.Tried = tried
    return best, nil
}
