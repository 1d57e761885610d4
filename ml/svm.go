package ml

import (
    "encoding/json"
    "errors"
    "fmt"
    "math"
    "math/rand"
    "os"
    "sort"

    "go.uber.org/zap"
)

// SVMConfig holds the linear SVM training settings. Zero values fall
// back to defaults in NewLinearSVM.
type SVMConfig struct {
    // Epochs is the number of passes over the shuffled training set.
    Epochs int
    // Lambda is the L2 regularization strength.
    Lambda float64
    // Seed drives the shuffle so runs are repeatable.
    Seed int64
    // Logger receives per-epoch training progress.
    Logger *zap.Logger
}

const (
    defaultSVMEpochs = 10
    defaultSVMLambda = 1e-4
)

// LinearSVM is a binary linear classifier trained with stochastic
// subgradient descent on the hinge loss. The learning rate follows the
// 1/(lambda*t) schedule and weight decay is carried in a scale factor
// so each step only touches the document's non-zero terms.
type LinearSVM struct {
    cfg      SVMConfig
    weights  []float64
    bias     float64
    negLabel int
    posLabel int
    trained  bool
}

func NewLinearSVM(cfg SVMConfig) *LinearSVM {
    if cfg.Epochs <= 0 {
        cfg.Epochs = defaultSVMEpochs
    }
    if cfg.Lambda <= 0 {
        cfg.Lambda = defaultSVMLambda
    }
    if cfg.Logger == nil {
        cfg.Logger = zap.NewNop()
    }
    return &LinearSVM{cfg: cfg}
}

// Train fits the hyperplane. Exactly two distinct label ids must be
// present; the smaller becomes the negative side.
func (s *LinearSVM) Train(docs []Document, labels []int) error {
    if len(docs) == 0 {
        return errors.New("no training documents")
    }
    if len(docs) != len(labels) {
        return fmt.Errorf("documents and labels length mismatch: %d vs %d", len(docs), len(labels))
    }
    distinct, maxID := countLabels(labels)
    if distinct != 2 {
        return fmt.Errorf("linear svm is binary: training data has %d distinct labels", distinct)
    }
    s.posLabel = maxID
    for _, l := range labels {
        if l != maxID {
            s.negLabel = l
            break
        }
    }

    dim := 0
    for _, doc := range docs {
        for _, idx := range doc.Indices {
            if idx+1 > dim {
                dim = idx + 1
            }
        }
    }

    signs := make([]float64, len(labels))
    for i, l := range labels {
        if l == s.posLabel {
            signs[i] = 1
        } else {
            signs[i] = -1
        }
    }

    raw := make([]float64, dim)
    scale := 1.0
    bias := 0.0
    step := 0
    rng := rand.New(rand.NewSource(s.cfg.Seed))

    for epoch := 1; epoch <= s.cfg.Epochs; epoch++ {
        violations := 0
        for _, i := range rng.Perm(len(docs)) {
            step++
            eta := 1 / (s.cfg.Lambda * float64(step+1))
            margin := signs[i] * (scale*dotRaw(raw, docs[i]) + bias)
            scale *= 1 - eta*s.cfg.Lambda
            if margin < 1 {
                violations++
                coef := eta * signs[i] / scale
                for k, idx := range docs[i].Indices {
                    raw[idx] += coef * docs[i].Values[k]
                }
                bias += eta * signs[i]
            }
        }
        s.cfg.Logger.Debug("svm epoch finished",
            zap.Int("epoch", epoch),
            zap.Int("margin_violations", violations),
            zap.Int("samples", len(docs)))
    }

    s.weights = make([]float64, dim)
    for i, w := range raw {
        s.weights[i] = scale * w
    }
    s.bias = bias
    s.trained = true
    return nil
}

// Predict returns the label side of the hyperplane the document falls
// on and a confidence derived from the margin. Term indices beyond the
// trained vocabulary carry zero weight and are skipped.
func (s *LinearSVM) Predict(doc Document) (int, float64, error) {
    if !s.trained {
        return 0, 0, errors.New("model not trained")
    }
    score := dotRaw(s.weights, doc) + s.bias
    label := s.posLabel
    if score < 0 {
        label = s.negLabel
    }
    confidence := 1 / (1 + math.Exp(-math.Abs(score)))
    return label, confidence, nil
}

// Margin returns the raw decision value for a document. Positive means
// the positive-side label.
func (s *LinearSVM) Margin(doc Document) (float64, error) {
    if !s.trained {
        return 0, errors.New("model not trained")
    }
    return dotRaw(s.weights, doc) + s.bias, nil
}

// TermWeight pairs a vocabulary index with its learned weight.
type TermWeight struct {
    Index  int
    Weight float64
}

// TopWeights lists the k strongest weights pulling toward the positive
// label and the k strongest pulling toward the negative label. These
// are the terms the model treats as most indicative of each class.
func (s *LinearSVM) TopWeights(k int) (positive, negative []TermWeight) {
    if !s.trained || k <= 0 {
        return nil, nil
    }
    all := make([]TermWeight, 0, len(s.weights))
    for i, w := range s.weights {
        if w != 0 {
            all = append(all, TermWeight{Index: i, Weight: w})
        }
    }
    sort.Slice(all, func(a, b int) bool { return all[a].Weight > all[b].Weight })
    for i := 0; i < len(all) && i < k; i++ {
        if all[i].Weight <= 0 {
            break
        }
        positive = append(positive, all[i])
    }
    for i := len(all) - 1; i >= 0 && len(negative) < k; i-- {
        if all[i].Weight >= 0 {
            break
        }
        negative = append(negative, all[i])
    }
    return positive, negative
}

// Labels returns the negative and positive label ids the model was
// trained with.
func (s *LinearSVM) Labels() (neg, pos int) {
    return s.negLabel, s.posLabel
}

func dotRaw(weights []float64, doc Document) float64 {
    var sum float64
    for k, idx := range doc.Indices {
        if idx < len(weights) {
            sum += weights[idx] * doc.Values[k]
        }
    }
    return sum
}

type svmFile struct {
    Weights  []float64 `json:"weights"`
    Bias     float64   `json:"bias"`
    NegLabel int       `json:"neg_label"`
    PosLabel int       `json:"pos_label"`
    Lambda   float64   `json:"lambda"`
    Epochs   int       `json:"epochs"`
    Seed     int64     `json:"seed"`
}

// Save writes the fitted hyperplane to a JSON file.
func (s *LinearSVM) Save(path string) error {
    if !s.trained {
        return errors.New("model not trained")
    }
    data, err := json.Marshal(svmFile{
        Weights:  s.weights,
        Bias:     s.bias,
        NegLabel: s.negLabel,
        PosLabel: s.posLabel,
        Lambda:   s.cfg.Lambda,
        Epochs:   s.cfg.Epochs,
        Seed:     s.cfg.Seed,
    })
    if err != nil {
        return fmt.Errorf("marshal svm model: %w", err)
    }
    if err := os.WriteFile(path, data, 0o600); err != nil {
        return fmt.Errorf("write svm model: %w", err)
    }
    return nil
}

// Load restores a model saved by Save.
func (s *LinearSVM) Load(path string) error {
    data, err := os.ReadFile(path)
    if err != nil {
        return fmt.Errorf("read svm model: %w", err)
    }
    var file svmFile
    if err := json.Unmarshal(data, &file); err != nil {
        return fmt.Errorf("parse svm model: %w", err)
    }
    if len(file.Weights) == 0 {
        return fmt.Errorf("svm model %s holds no weights", path)
    }
    s.weights = file.Weights
    s.bias = file.Bias
    s.negLabel = file.NegLabel
    s.posLabel = file.PosLabel
    s.cfg.Lambda = file.Lambda
    s.cfg.Epochs = file.Epochs
    s.cfg.Seed = file.Seed
    if s.cfg.Logger == nil {
        s.cfg.Logger = zap.NewNop()
    }
    s.trained = true
    return nil
}
