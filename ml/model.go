// Package ml trains and evaluates the narrative classifiers. Models
// work on sparse term-weight documents produced by the Vectorizer and
// share a common interface so the analysis can run them side by side.
package ml

// Document is one narrative as a sparse feature vector. Indices are
// positions in the vectorizer vocabulary, sorted ascending, and Values
// holds the weight at each index.
type Document struct {
    Indices []int     `json:"indices"`
    Values  []float64 `json:"values"`
}

// Model is the contract every classifier implements. Train consumes
// the full training set at once. Predict returns the label id and a
// confidence in (0, 1]. Save and Load move the fitted parameters
// through a file.
type Model interface {
    Train(docs []Document, labels []int) error
    Predict(doc Document) (int, float64, error)
    Save(path string) error
    Load(path string) error
}

// countLabels returns how many distinct label ids appear and the
// largest id seen. Models use it to size their parameter tables.
func countLabels(labels []int) (distinct, maxID int) {
    seen := make(map[int]struct{})
    for _, l := range labels {
        seen[l] = struct{}{}
        if l > maxID {
            maxID = l
        }
    }
    return len(seen), maxID
}
