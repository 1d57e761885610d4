package ml

import (
    "math"
    "path/filepath"
    "reflect"
    "testing"

    "github.com/james-bowman/sparse"
    "gonum.org/v1/gonum/mat"

    "gravamen/textproc"
)

func newTestVectorizer(t *testing.T, opts textproc.Options) *Vectorizer {
    t.Helper()
    v, err := NewVectorizer(opts)
    if err != nil {
        t.Fatalf("NewVectorizer failed: %v", err)
    }
    return v
}

func termIndex(t *testing.T, v *Vectorizer, term string) int {
    t.Helper()
    for i := 0; i < v.VocabularySize(); i++ {
        if v.Term(i) == term {
            return i
        }
    }
    t.Fatalf("term %q not in vocabulary", term)
    return -1
}

func docValue(doc Document, index int) float64 {
    for k, idx := range doc.Indices {
        if idx == index {
            return doc.Values[k]
        }
    }
    return 0
}

var unigramOpts = textproc.Options{Bigrams: false, MinTokenLength: 1}

func TestVectorizerFitTransform(t *testing.T) {
    v := newTestVectorizer(t, unigramOpts)
    corpus := []string{
        "officer punched suspect",
        "victim stabbed badly",
        "officer shoved victim",
    }

    docs, err := v.FitTransform(corpus)
    if err != nil {
        t.Fatalf("FitTransform failed: %v", err)
    }
    if len(docs) != 3 {
        t.Fatalf("expected 3 documents, got %d", len(docs))
    }
    if v.VocabularySize() != 7 {
        t.Fatalf("expected 7 vocabulary terms, got %d", v.VocabularySize())
    }
    for i, doc := range docs {
        if len(doc.Indices) != 3 || len(doc.Values) != 3 {
            t.Fatalf("document %d should have 3 terms: %+v", i, doc)
        }
        var norm float64
        for _, value := range doc.Values {
            if value <= 0 {
                t.Fatalf("document %d has non-positive weight: %+v", i, doc)
            }
            norm += value * value
        }
        if math.Abs(norm-1) > 1e-9 {
            t.Fatalf("document %d not unit length: norm^2=%f", i, norm)
        }
    }
}

func TestVectorizerIDFOrdering(t *testing.T) {
    v := newTestVectorizer(t, unigramOpts)
    corpus := []string{
        "officer punched suspect",
        "victim stabbed badly",
        "officer shoved victim",
    }
    docs, err := v.FitTransform(corpus)
    if err != nil {
        t.Fatalf("FitTransform failed: %v", err)
    }

    // "officer" appears in two documents, "punched" in one, so within
    // the first document the rarer term must weigh more.
    officer := termIndex(t, v, "offic")
    punched := termIndex(t, v, "punch")
    if docValue(docs[0], officer) >= docValue(docs[0], punched) {
        t.Fatalf("common term should weigh less: offic=%f punch=%f",
            docValue(docs[0], officer), docValue(docs[0], punched))
    }
}

func TestVectorizerTransformUnseenTerms(t *testing.T) {
    v := newTestVectorizer(t, unigramOpts)
    if _, err := v.FitTransform([]string{"officer punched suspect", "victim stabbed"}); err != nil {
        t.Fatalf("FitTransform failed: %v", err)
    }

    docs, err := v.Transform([]string{"suspect fled quickly"})
    if err != nil {
        t.Fatalf("Transform failed: %v", err)
    }
    if len(docs) != 1 {
        t.Fatalf("expected 1 document, got %d", len(docs))
    }
    if len(docs[0].Indices) != 1 {
        t.Fatalf("only the known term should survive: %+v", docs[0])
    }
    if math.Abs(docs[0].Values[0]-1) > 1e-9 {
        t.Fatalf("single-term document should normalize to 1, got %f", docs[0].Values[0])
    }
}

func TestVectorizerTransformBlankNarrative(t *testing.T) {
    v := newTestVectorizer(t, unigramOpts)
    if _, err := v.FitTransform([]string{"officer punched suspect"}); err != nil {
        t.Fatalf("FitTransform failed: %v", err)
    }

    docs, err := v.Transform([]string{""})
    if err != nil {
        t.Fatalf("Transform failed: %v", err)
    }
    if len(docs[0].Indices) != 0 {
        t.Fatalf("blank narrative should yield an empty document: %+v", docs[0])
    }
}

func TestVectorizerTransformBeforeFit(t *testing.T) {
    v := newTestVectorizer(t, unigramOpts)
    if _, err := v.Transform([]string{"anything"}); err == nil {
        t.Fatal("expected error before fitting")
    }
}

func TestVectorizerBigramVocabulary(t *testing.T) {
    v := newTestVectorizer(t, textproc.Options{Bigrams: true, MinTokenLength: 1})
    if _, err := v.FitTransform([]string{"officer punched suspect"}); err != nil {
        t.Fatalf("FitTransform failed: %v", err)
    }
    termIndex(t, v, "offic_punch")
    termIndex(t, v, "punch_suspect")
}

func TestVectorizerSaveLoad(t *testing.T) {
    v := newTestVectorizer(t, textproc.Options{Bigrams: true, MinTokenLength: 1})
    corpus := []string{"officer punched suspect", "victim stabbed badly", "officer shoved victim"}
    if _, err := v.FitTransform(corpus); err != nil {
        t.Fatalf("FitTransform failed: %v", err)
    }

    path := filepath.Join(t.TempDir(), "vectorizer.json")
    if err := v.Save(path); err != nil {
        t.Fatalf("Save failed: %v", err)
    }
    loaded, err := LoadVectorizer(path)
    if err != nil {
        t.Fatalf("LoadVectorizer failed: %v", err)
    }
    if loaded.VocabularySize() != v.VocabularySize() {
        t.Fatalf("vocabulary size changed: %d vs %d", loaded.VocabularySize(), v.VocabularySize())
    }

    query := []string{"officer punched victim"}
    want, err := v.Transform(query)
    if err != nil {
        t.Fatalf("Transform failed: %v", err)
    }
    got, err := loaded.Transform(query)
    if err != nil {
        t.Fatalf("Transform after load failed: %v", err)
    }
    if !reflect.DeepEqual(want, got) {
        t.Fatalf("round trip changed weighting: %+v vs %+v", want, got)
    }
}

func TestVectorizerEmptyCorpus(t *testing.T) {
    v := newTestVectorizer(t, unigramOpts)
    if _, err := v.FitTransform(nil); err == nil {
        t.Fatal("expected error for empty corpus")
    }
}

func TestDocumentsFromSparseMatrix(t *testing.T) {
    // Same terms-by-documents shape the count vectoriser produces:
    // 3 terms across 2 documents.
    dok := sparse.NewDOK(3, 2)
    dok.Set(0, 0, 2)
    dok.Set(2, 0, 1)
    dok.Set(1, 1, 3)

    docs, err := documentsFromMatrix(dok.ToCSR(), 2)
    if err != nil {
        t.Fatalf("documentsFromMatrix failed: %v", err)
    }
    want := []Document{
        {Indices: []int{0, 2}, Values: []float64{2, 1}},
        {Indices: []int{1}, Values: []float64{3}},
    }
    if !reflect.DeepEqual(docs, want) {
        t.Fatalf("unexpected documents: %+v", docs)
    }
}

func TestDocumentsFromDenseMatrix(t *testing.T) {
    dense := mat.NewDense(2, 2, []float64{
        1, 0,
        0, 4,
    })

    docs, err := documentsFromMatrix(dense, 2)
    if err != nil {
        t.Fatalf("documentsFromMatrix failed: %v", err)
    }
    want := []Document{
        {Indices: []int{0}, Values: []float64{1}},
        {Indices: []int{1}, Values: []float64{4}},
    }
    if !reflect.DeepEqual(docs, want) {
        t.Fatalf("unexpected documents: %+v", docs)
    }
}

func TestDocumentsFromMatrixShapeMismatch(t *testing.T) {
    dense := mat.NewDense(2, 2, nil)
    if _, err := documentsFromMatrix(dense, 3); err == nil {
        t.Fatal("expected error for document count mismatch")
    }
}
