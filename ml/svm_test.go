package ml

import (
    "math"
    "path/filepath"
    "testing"
)

// separableDocs is a tiny linearly separable corpus: feature 0 marks
// the first class, feature 1 the second, feature 2 is noise shared by
// both.
func separableDocs() ([]Document, []int) {
    docs := []Document{
        {Indices: []int{0}, Values: []float64{1}},
        {Indices: []int{0, 2}, Values: []float64{1, 0.5}},
        {Indices: []int{1}, Values: []float64{1}},
        {Indices: []int{1, 2}, Values: []float64{1, 0.5}},
    }
    labels := []int{0, 0, 1, 1}
    return docs, labels
}

func trainedSVM(t *testing.T) *LinearSVM {
    t.Helper()
    docs, labels := separableDocs()
    svm := NewLinearSVM(SVMConfig{Epochs: 50, Lambda: 0.01, Seed: 1})
    if err := svm.Train(docs, labels); err != nil {
        t.Fatalf("Train failed: %v", err)
    }
    return svm
}

func TestSVMSeparable(t *testing.T) {
    svm := trainedSVM(t)
    docs, labels := separableDocs()

    for i, doc := range docs {
        label, confidence, err := svm.Predict(doc)
        if err != nil {
            t.Fatalf("Predict failed: %v", err)
        }
        if label != labels[i] {
            t.Fatalf("document %d: expected label %d, got %d", i, labels[i], label)
        }
        if confidence <= 0.5 || confidence > 1 {
            t.Fatalf("document %d: confidence %f outside (0.5, 1]", i, confidence)
        }
    }
}

func TestSVMWeightSigns(t *testing.T) {
    svm := trainedSVM(t)

    positive, negative := svm.TopWeights(2)
    if len(positive) == 0 || positive[0].Index != 1 {
        t.Fatalf("feature 1 should top the positive weights: %+v", positive)
    }
    if len(negative) == 0 || negative[0].Index != 0 {
        t.Fatalf("feature 0 should top the negative weights: %+v", negative)
    }

    neg, pos := svm.Labels()
    if neg != 0 || pos != 1 {
        t.Fatalf("expected labels 0/1, got %d/%d", neg, pos)
    }
}

func TestSVMUnknownFeatureIgnored(t *testing.T) {
    svm := trainedSVM(t)

    if _, _, err := svm.Predict(Document{Indices: []int{99}, Values: []float64{1}}); err != nil {
        t.Fatalf("unknown feature should carry zero weight: %v", err)
    }
}

func TestSVMErrors(t *testing.T) {
    svm := NewLinearSVM(SVMConfig{})

    if _, _, err := svm.Predict(Document{}); err == nil {
        t.Fatal("expected error before training")
    }
    if err := svm.Train(nil, nil); err == nil {
        t.Fatal("expected error for empty training set")
    }
    if err := svm.Train([]Document{{}}, []int{0, 1}); err == nil {
        t.Fatal("expected error for length mismatch")
    }

    docs := []Document{
        {Indices: []int{0}, Values: []float64{1}},
        {Indices: []int{1}, Values: []float64{1}},
        {Indices: []int{2}, Values: []float64{1}},
    }
    if err := svm.Train(docs, []int{0, 1, 2}); err == nil {
        t.Fatal("expected error for 3-class training data")
    }
}

func TestSVMDeterministic(t *testing.T) {
    docs, labels := separableDocs()
    probe := Document{Indices: []int{0, 1, 2}, Values: []float64{0.3, 0.8, 0.1}}

    margins := make([]float64, 2)
    for run := 0; run < 2; run++ {
        svm := NewLinearSVM(SVMConfig{Epochs: 25, Lambda: 0.01, Seed: 9})
        if err := svm.Train(docs, labels); err != nil {
            t.Fatalf("Train failed: %v", err)
        }
        margin, err := svm.Margin(probe)
        if err != nil {
            t.Fatalf("Margin failed: %v", err)
        }
        margins[run] = margin
    }
    if margins[0] != margins[1] {
        t.Fatalf("same seed should reproduce the same model: %f vs %f", margins[0], margins[1])
    }
}

func TestSVMSaveLoad(t *testing.T) {
    svm := trainedSVM(t)
    docs, _ := separableDocs()

    path := filepath.Join(t.TempDir(), "svm.json")
    if err := svm.Save(path); err != nil {
        t.Fatalf("Save failed: %v", err)
    }

    loaded := NewLinearSVM(SVMConfig{})
    if err := loaded.Load(path); err != nil {
        t.Fatalf("Load failed: %v", err)
    }
    for i, doc := range docs {
        wantLabel, wantConf, err := svm.Predict(doc)
        if err != nil {
            t.Fatalf("Predict failed: %v", err)
        }
        gotLabel, gotConf, err := loaded.Predict(doc)
        if err != nil {
            t.Fatalf("Predict after load failed: %v", err)
        }
        if wantLabel != gotLabel || math.Abs(wantConf-gotConf) > 1e-12 {
            t.Fatalf("document %d: round trip changed prediction: %d/%f vs %d/%f",
                i, wantLabel, wantConf, gotLabel, gotConf)
        }
    }
}

func TestSVMSaveUntrained(t *testing.T) {
    svm := NewLinearSVM(SVMConfig{})
    if err := svm.Save(filepath.Join(t.TempDir(), "svm.json")); err == nil {
        t.Fatal("expected error saving an untrained model")
    }
}
