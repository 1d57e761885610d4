package ml

import (
    "math"
    "path/filepath"
    "testing"
)

func trainedMaxEnt(t *testing.T) *MaxEnt {
    t.Helper()
    docs, labels := separableDocs()
    model := NewMaxEnt(MaxEntConfig{Iterations: 200})
    if err := model.Train(docs, labels); err != nil {
        t.Fatalf("Train failed: %v", err)
    }
    return model
}

func TestMaxEntSeparable(t *testing.T) {
    model := trainedMaxEnt(t)
    docs, labels := separableDocs()

    for i, doc := range docs {
        label, probability, err := model.Predict(doc)
        if err != nil {
            t.Fatalf("Predict failed: %v", err)
        }
        if label != labels[i] {
            t.Fatalf("document %d: expected label %d, got %d", i, labels[i], label)
        }
        if probability <= 0.5 || probability > 1 {
            t.Fatalf("document %d: probability %f outside (0.5, 1]", i, probability)
        }
    }
}

func TestMaxEntProbabilitiesSumToOne(t *testing.T) {
    model := trainedMaxEnt(t)

    cases := []Document{
        {Indices: []int{0}, Values: []float64{1}},
        {Indices: []int{0, 1, 2}, Values: []float64{1, 1, 1}},
        {},
        {Indices: []int{500}, Values: []float64{1}},
    }
    for i, doc := range cases {
        probs, err := model.Probabilities(doc)
        if err != nil {
            t.Fatalf("Probabilities failed: %v", err)
        }
        if len(probs) != model.NumClasses() {
            t.Fatalf("case %d: expected %d probabilities, got %d", i, model.NumClasses(), len(probs))
        }
        var sum float64
        for _, p := range probs {
            if p < 0 || p > 1 {
                t.Fatalf("case %d: probability %f out of range", i, p)
            }
            sum += p
        }
        if math.Abs(sum-1) > 1e-9 {
            t.Fatalf("case %d: probabilities sum to %f", i, sum)
        }
    }
}

func TestMaxEntThreeClasses(t *testing.T) {
    docs := []Document{
        {Indices: []int{0}, Values: []float64{1}},
        {Indices: []int{0, 3}, Values: []float64{1, 1}},
        {Indices: []int{1}, Values: []float64{1}},
        {Indices: []int{1, 3}, Values: []float64{1, 1}},
        {Indices: []int{2}, Values: []float64{1}},
        {Indices: []int{2, 3}, Values: []float64{1, 1}},
    }
    labels := []int{0, 0, 1, 1, 2, 2}

    model := NewMaxEnt(MaxEntConfig{Iterations: 200})
    if err := model.Train(docs, labels); err != nil {
        t.Fatalf("Train failed: %v", err)
    }
    for i, doc := range docs {
        label, _, err := model.Predict(doc)
        if err != nil {
            t.Fatalf("Predict failed: %v", err)
        }
        if label != labels[i] {
            t.Fatalf("document %d: expected label %d, got %d", i, labels[i], label)
        }
    }
}

func TestMaxEntMoreIterationsFitCloser(t *testing.T) {
    docs, labels := separableDocs()

    logLikelihood := func(model *MaxEnt) float64 {
        var total float64
        for i, doc := range docs {
            probs, err := model.Probabilities(doc)
            if err != nil {
                t.Fatalf("Probabilities failed: %v", err)
            }
            total += math.Log(probs[labels[i]])
        }
        return total
    }

    coarse := NewMaxEnt(MaxEntConfig{Iterations: 1})
    if err := coarse.Train(docs, labels); err != nil {
        t.Fatalf("Train failed: %v", err)
    }
    fine := NewMaxEnt(MaxEntConfig{Iterations: 50})
    if err := fine.Train(docs, labels); err != nil {
        t.Fatalf("Train failed: %v", err)
    }

    if logLikelihood(fine) <= logLikelihood(coarse) {
        t.Fatalf("more iterations should fit the training data closer: %f vs %f",
            logLikelihood(fine), logLikelihood(coarse))
    }
}

func TestMaxEntErrors(t *testing.T) {
    model := NewMaxEnt(MaxEntConfig{})

    if _, _, err := model.Predict(Document{}); err == nil {
        t.Fatal("expected error before training")
    }
    if err := model.Train(nil, nil); err == nil {
        t.Fatal("expected error for empty training set")
    }
    if err := model.Train([]Document{{}}, []int{0, 1}); err == nil {
        t.Fatal("expected error for length mismatch")
    }

    oneClass := []Document{
        {Indices: []int{0}, Values: []float64{1}},
        {Indices: []int{1}, Values: []float64{1}},
    }
    if err := model.Train(oneClass, []int{0, 0}); err == nil {
        t.Fatal("expected error for single-class training data")
    }

    empty := []Document{{}, {}}
    if err := model.Train(empty, []int{0, 1}); err == nil {
        t.Fatal("expected error when no document has features")
    }
}

func TestMaxEntSaveLoad(t *testing.T) {
    model := trainedMaxEnt(t)
    docs, _ := separableDocs()

    path := filepath.Join(t.TempDir(), "maxent.json")
    if err := model.Save(path); err != nil {
        t.Fatalf("Save failed: %v", err)
    }

    loaded := NewMaxEnt(MaxEntConfig{})
    if err := loaded.Load(path); err != nil {
        t.Fatalf("Load failed: %v", err)
    }
    for i, doc := range docs {
        want, err := model.Probabilities(doc)
        if err != nil {
            t.Fatalf("Probabilities failed: %v", err)
        }
        got, err := loaded.Probabilities(doc)
        if err != nil {
            t.Fatalf("Probabilities after load failed: %v", err)
        }
        for c := range want {
            if math.Abs(want[c]-got[c]) > 1e-12 {
                t.Fatalf("document %d class %d: round trip changed probability: %f vs %f",
                    i, c, want[c], got[c])
            }
        }
    }
}

func TestMaxEntSaveUntrained(t *testing.T) {
    model := NewMaxEnt(MaxEntConfig{})
    if err := model.Save(filepath.Join(t.TempDir(), "maxent.json")); err == nil {
        t.Fatal("expected error saving an untrained model")
    }
}
