package ml

import (
    "encoding/json"
    "errors"
    "fmt"
    "math"
    "os"

    "go.uber.org/zap"
)

// MaxEntConfig holds the maximum entropy training settings.
type MaxEntConfig struct {
    // Iterations caps the number of scaling passes.
    Iterations int
    // MinImprovement stops training once the average log-likelihood
    // gain per document drops below it.
    MinImprovement float64
    // Logger receives per-iteration training progress.
    Logger *zap.Logger
}

const (
    defaultMaxEntIterations     = 100
    defaultMaxEntMinImprovement = 1e-4
)

// MaxEnt is a multiclass maximum entropy classifier over binary term
// presence features, fitted with generalized iterative scaling. Each
// document contributes one active feature per distinct term plus a
// correction feature that pads every document to the same total count,
// which is what makes the scaling update valid.
type MaxEnt struct {
    cfg         MaxEntConfig
    weights     [][]float64
    correction  []float64
    slack       float64
    numClasses  int
    numFeatures int
    trained     bool
}

func NewMaxEnt(cfg MaxEntConfig) *MaxEnt {
    if cfg.Iterations <= 0 {
        cfg.Iterations = defaultMaxEntIterations
    }
    if cfg.MinImprovement <= 0 {
        cfg.MinImprovement = defaultMaxEntMinImprovement
    }
    if cfg.Logger == nil {
        cfg.Logger = zap.NewNop()
    }
    return &MaxEnt{cfg: cfg}
}

// Train fits the feature weights. Label ids must be dense starting at
// zero, which is how the dataset label index assigns them.
func (m *MaxEnt) Train(docs []Document, labels []int) error {
    if len(docs) == 0 {
        return errors.New("no training documents")
    }
    if len(docs) != len(labels) {
        return fmt.Errorf("documents and labels length mismatch: %d vs %d", len(docs), len(labels))
    }
    distinct, maxID := countLabels(labels)
    if distinct < 2 {
        return errors.New("training data has fewer than 2 distinct labels")
    }
    for _, l := range labels {
        if l < 0 {
            return fmt.Errorf("negative label id %d", l)
        }
    }
    numClasses := maxID + 1

    numFeatures := 0
    maxActive := 0
    for _, doc := range docs {
        if len(doc.Indices) > maxActive {
            maxActive = len(doc.Indices)
        }
        for _, idx := range doc.Indices {
            if idx+1 > numFeatures {
                numFeatures = idx + 1
            }
        }
    }
    if maxActive == 0 {
        return errors.New("training documents have no features")
    }
    slack := float64(maxActive)

    // Observed feature counts per class.
    empirical := newGrid(numClasses, numFeatures)
    empiricalCorr := make([]float64, numClasses)
    for i, doc := range docs {
        c := labels[i]
        for _, idx := range doc.Indices {
            empirical[c][idx]++
        }
        empiricalCorr[c] += slack - float64(len(doc.Indices))
    }

    m.weights = newGrid(numClasses, numFeatures)
    m.correction = make([]float64, numClasses)
    m.slack = slack
    m.numClasses = numClasses
    m.numFeatures = numFeatures

    expected := newGrid(numClasses, numFeatures)
    expectedCorr := make([]float64, numClasses)
    scores := make([]float64, numClasses)
    probs := make([]float64, numClasses)

    prevLL := math.Inf(-1)
    for iter := 1; iter <= m.cfg.Iterations; iter++ {
        for c := range expected {
            for f := range expected[c] {
                expected[c][f] = 0
            }
            expectedCorr[c] = 0
        }

        ll := 0.0
        for i, doc := range docs {
            m.classScores(doc, scores)
            softmax(scores, probs)
            ll += math.Log(math.Max(probs[labels[i]], 1e-300))
            pad := slack - float64(len(doc.Indices))
            for c, p := range probs {
                for _, idx := range doc.Indices {
                    expected[c][idx] += p
                }
                expectedCorr[c] += p * pad
            }
        }

        for c := 0; c < numClasses; c++ {
            for f := 0; f < numFeatures; f++ {
                if empirical[c][f] > 0 && expected[c][f] > 1e-300 {
                    m.weights[c][f] += math.Log(empirical[c][f]/expected[c][f]) / slack
                }
            }
            if empiricalCorr[c] > 0 && expectedCorr[c] > 1e-300 {
                m.correction[c] += math.Log(empiricalCorr[c]/expectedCorr[c]) / slack
            }
        }

        avgLL := ll / float64(len(docs))
        m.cfg.Logger.Debug("maxent iteration finished",
            zap.Int("iteration", iter),
            zap.Float64("avg_log_likelihood", avgLL))
        if iter > 1 && (ll-prevLL)/float64(len(docs)) < m.cfg.MinImprovement {
            break
        }
        prevLL = ll
    }

    m.trained = true
    return nil
}

// classScores fills scores with the linear score of each class for the
// document. Indices beyond the trained feature space are ignored; the
// correction feature pads the active count up to the slack constant.
func (m *MaxEnt) classScores(doc Document, scores []float64) {
    active := 0
    for c := range scores {
        scores[c] = 0
    }
    for _, idx := range doc.Indices {
        if idx >= m.numFeatures {
            continue
        }
        active++
        for c := 0; c < m.numClasses; c++ {
            scores[c] += m.weights[c][idx]
        }
    }
    pad := m.slack - float64(active)
    if pad > 0 {
        for c := 0; c < m.numClasses; c++ {
            scores[c] += m.correction[c] * pad
        }
    }
}

// Predict returns the most probable label and its posterior
// probability.
func (m *MaxEnt) Predict(doc Document) (int, float64, error) {
    probs, err := m.Probabilities(doc)
    if err != nil {
        return 0, 0, err
    }
    best := 0
    for c, p := range probs {
        if p > probs[best] {
            best = c
        }
    }
    return best, probs[best], nil
}

// Probabilities returns the posterior distribution over all labels.
func (m *MaxEnt) Probabilities(doc Document) ([]float64, error) {
    if !m.trained {
        return nil, errors.New("model not trained")
    }
    scores := make([]float64, m.numClasses)
    probs := make([]float64, m.numClasses)
    m.classScores(doc, scores)
    softmax(scores, probs)
    return probs, nil
}

// NumClasses reports how many labels the model was trained over.
func (m *MaxEnt) NumClasses() int {
    return m.numClasses
}

func newGrid(rows, cols int) [][]float64 {
    grid := make([][]float64, rows)
    for i := range grid {
        grid[i] = make([]float64, cols)
    }
    return grid
}

// softmax writes the normalized exponentials of scores into probs,
// shifting by the maximum score first so large weights cannot
// overflow.
func softmax(scores, probs []float64) {
    maxScore := scores[0]
    for _, s := range scores[1:] {
        if s > maxScore {
            maxScore = s
        }
    }
    var sum float64
    for c, s := range scores {
        e := math.Exp(s - maxScore)
        probs[c] = e
        sum += e
    }
    for c := range probs {
        probs[c] /= sum
    }
}

type maxentFile struct {
    Weights     [][]float64 `json:"weights"`
    Correction  []float64   `json:"correction"`
    Slack       float64     `json:"slack"`
    NumClasses  int         `json:"num_classes"`
    NumFeatures int         `json:"num_features"`
}

// Save writes the fitted weights to a JSON file.
func (m *MaxEnt) Save(path string) error {
    if !m.trained {
        return errors.New("model not trained")
    }
    data, err := json.Marshal(maxentFile{
        Weights:     m.weights,
        Correction:  m.correction,
        Slack:       m.slack,
        NumClasses:  m.numClasses,
        NumFeatures: m.numFeatures,
    })
    if err != nil {
        return fmt.Errorf("marshal maxent model: %w", err)
    }
    if err := os.WriteFile(path, data, 0o600); err != nil {
        return fmt.Errorf("write maxent model: %w", err)
    }
    return nil
}

// Load restores a model saved by Save.
func (m *MaxEnt) Load(path string) error {
    data, err := os.ReadFile(path)
    if err != nil {
        return fmt.Errorf("read maxent model: %w", err)
    }
    var file maxentFile
    if err := json.Unmarshal(data, &file); err != nil {
        return fmt.Errorf("parse maxent model: %w", err)
    }
    if len(file.Weights) == 0 || len(file.Weights) != file.NumClasses {
        return fmt.Errorf("maxent model %s is inconsistent", path)
    }
    m.weights = file.Weights
    m.correction = file.Correction
    m.slack = file.Slack
    m.numClasses = file.NumClasses
    m.numFeatures = file.NumFeatures
    if m.cfg.Logger == nil {
        m.cfg.Logger = zap.NewNop()
    }
    m.trained = true
    return nil
}
