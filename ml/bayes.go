package ml

import (
    "errors"
    "fmt"

    "github.com/navossoc/bayesian"
)

// Bayes is a naive Bayes baseline over raw token streams. It exists to
// sanity-check the two main models: when both beat it comfortably the
// feature pipeline is doing real work, and when they do not the corpus
// is probably too thin.
type Bayes struct {
    classifier *bayesian.Classifier
    labels     []string
}

// NewBayes builds a classifier over the label names in id order. At
// least two distinct labels are required.
func NewBayes(labels []string) (*Bayes, error) {
    if len(labels) < 2 {
        return nil, errors.New("naive bayes needs at least 2 labels")
    }
    classes := make([]bayesian.Class, len(labels))
    seen := make(map[string]struct{}, len(labels))
    for i, name := range labels {
        if name == "" {
            return nil, fmt.Errorf("label %d is empty", i)
        }
        if _, dup := seen[name]; dup {
            return nil, fmt.Errorf("duplicate label %q", name)
        }
        seen[name] = struct{}{}
        classes[i] = bayesian.Class(name)
    }
    return &Bayes{
        classifier: bayesian.NewClassifier(classes...),
        labels:     labels,
    }, nil
}

// Learn feeds one tokenized narrative with its label id.
func (b *Bayes) Learn(tokens []string, labelID int) error {
    if labelID < 0 || labelID >= len(b.labels) {
        return fmt.Errorf("label id %d out of range", labelID)
    }
    b.classifier.Learn(tokens, bayesian.Class(b.labels[labelID]))
    return nil
}

// Classify returns the most likely label id and its posterior
// probability for a tokenized narrative.
func (b *Bayes) Classify(tokens []string) (int, float64, error) {
    scores, best, _ := b.classifier.LogScores(tokens)
    if best < 0 || best >= len(b.labels) {
        return 0, 0, fmt.Errorf("classifier returned class %d of %d", best, len(b.labels))
    }
    probs := make([]float64, len(scores))
    softmax(scores, probs)
    return best, probs[best], nil
}

// Save writes the classifier state to a file.
func (b *Bayes) Save(path string) error {
    if err := b.classifier.WriteToFile(path); err != nil {
        return fmt.Errorf("write bayes model: %w", err)
    }
    return nil
}

// LoadBayes restores a classifier saved by Save. The label names must
// match the ones used at training time, in the same order.
func LoadBayes(path string, labels []string) (*Bayes, error) {
    if len(labels) < 2 {
        return nil, errors.New("naive bayes needs at least 2 labels")
    }
    classifier, err := bayesian.NewClassifierFromFile(path)
    if err != nil {
        return nil, fmt.Errorf("read bayes model: %w", err)
    }
    return &Bayes{classifier: classifier, labels: labels}, nil
}
