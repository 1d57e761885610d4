package ml

import (
    "encoding/json"
    "errors"
    "fmt"
    "math"
    "os"
    "sort"

    "github.com/james-bowman/nlp"
    "gonum.org/v1/gonum/mat"

    "gravamen/textproc"
)

// nlpTokeniser adapts the narrative tokenizer to the interface the
// count vectoriser expects.
type nlpTokeniser struct {
    tok *textproc.Tokenizer
}

func (a nlpTokeniser) Tokenise(text string) []string {
    return a.tok.Tokenize(text)
}

func (a nlpTokeniser) ForEachIn(text string, f func(token string)) {
    for _, token := range a.tok.Tokenize(text) {
        f(token)
    }
}

// nonZeroDoer is satisfied by the sparse matrices the count vectoriser
// produces. Iterating non-zeros directly avoids walking the full
// terms-by-documents grid.
type nonZeroDoer interface {
    DoNonZero(fn func(i, j int, v float64))
}

// Vectorizer turns narratives into tf-idf weighted documents over a
// vocabulary learned from the training corpus. Term counting is done
// by the nlp count vectoriser with our tokenizer plugged in; weighting
// uses smoothed idf, ln((1+n)/(1+df))+1, followed by unit-length
// document normalization.
type Vectorizer struct {
    tokenizer *textproc.Tokenizer
    counts    *nlp.CountVectoriser
    df        []int
    docCount  int
    terms     []string
}

func NewVectorizer(opts textproc.Options) (*Vectorizer, error) {
    tok, err := textproc.NewTokenizer(opts)
    if err != nil {
        return nil, fmt.Errorf("vectorizer: %w", err)
    }
    counts := nlp.NewCountVectoriser()
    counts.Tokeniser = nlpTokeniser{tok: tok}
    return &Vectorizer{tokenizer: tok, counts: counts}, nil
}

// Tokenizer exposes the underlying tokenizer so callers can reuse the
// exact same preprocessing, for example to feed raw token streams to
// the naive Bayes baseline.
func (v *Vectorizer) Tokenizer() *textproc.Tokenizer {
    return v.tokenizer
}

// FitTransform learns the vocabulary and document frequencies from the
// training corpus and returns its weighted documents.
func (v *Vectorizer) FitTransform(corpus []string) ([]Document, error) {
    if len(corpus) == 0 {
        return nil, errors.New("vectorizer: empty training corpus")
    }
    matrix, err := v.counts.FitTransform(corpus...)
    if err != nil {
        return nil, fmt.Errorf("vectorizer fit: %w", err)
    }
    docs, err := documentsFromMatrix(matrix, len(corpus))
    if err != nil {
        return nil, err
    }

    v.docCount = len(corpus)
    v.df = make([]int, len(v.counts.Vocabulary))
    for _, doc := range docs {
        for _, idx := range doc.Indices {
            v.df[idx]++
        }
    }
    v.terms = invertVocabulary(v.counts.Vocabulary)

    v.weight(docs)
    return docs, nil
}

// Transform weights new narratives against the fitted vocabulary.
// Terms never seen in training are ignored.
func (v *Vectorizer) Transform(corpus []string) ([]Document, error) {
    if v.docCount == 0 {
        return nil, errors.New("vectorizer: not fitted")
    }
    if len(corpus) == 0 {
        return nil, nil
    }
    matrix, err := v.counts.Transform(corpus...)
    if err != nil {
        return nil, fmt.Errorf("vectorizer transform: %w", err)
    }
    docs, err := documentsFromMatrix(matrix, len(corpus))
    if err != nil {
        return nil, err
    }
    v.weight(docs)
    return docs, nil
}

// VocabularySize reports how many distinct terms the fit produced.
func (v *Vectorizer) VocabularySize() int {
    return len(v.terms)
}

// Term returns the vocabulary entry at index, or an empty string when
// out of range.
func (v *Vectorizer) Term(index int) string {
    if index < 0 || index >= len(v.terms) {
        return ""
    }
    return v.terms[index]
}

// weight applies tf-idf scaling and normalizes each document to unit
// length. Documents with no known terms are left empty.
func (v *Vectorizer) weight(docs []Document) {
    n := float64(v.docCount)
    for _, doc := range docs {
        var norm float64
        for k, idx := range doc.Indices {
            idf := math.Log((1+n)/float64(1+v.df[idx])) + 1
            w := doc.Values[k] * idf
            doc.Values[k] = w
            norm += w * w
        }
        if norm == 0 {
            continue
        }
        norm = math.Sqrt(norm)
        for k := range doc.Values {
            doc.Values[k] /= norm
        }
    }
}

// documentsFromMatrix converts the terms-by-documents count matrix to
// per-document sparse vectors with sorted indices.
func documentsFromMatrix(matrix mat.Matrix, docCount int) ([]Document, error) {
    rows, cols := matrix.Dims()
    if cols != docCount {
        return nil, fmt.Errorf("vectorizer: matrix has %d columns for %d documents", cols, docCount)
    }
    docs := make([]Document, docCount)
    if nz, ok := matrix.(nonZeroDoer); ok {
        nz.DoNonZero(func(i, j int, v float64) {
            if v == 0 {
                return
            }
            docs[j].Indices = append(docs[j].Indices, i)
            docs[j].Values = append(docs[j].Values, v)
        })
    } else {
        for j := 0; j < cols; j++ {
            for i := 0; i < rows; i++ {
                if v := matrix.At(i, j); v != 0 {
                    docs[j].Indices = append(docs[j].Indices, i)
                    docs[j].Values = append(docs[j].Values, v)
                }
            }
        }
    }
    for j := range docs {
        sortDocument(&docs[j])
    }
    return docs, nil
}

// sortDocument orders a document's entries by ascending index.
func sortDocument(doc *Document) {
    if sort.IntsAreSorted(doc.Indices) {
        return
    }
    order := make([]int, len(doc.Indices))
    for i := range order {
        order[i] = i
    }
    sort.Slice(order, func(a, b int) bool {
        return doc.Indices[order[a]] < doc.Indices[order[b]]
    })
    indices := make([]int, len(order))
    values := make([]float64, len(order))
    for pos, src := range order {
        indices[pos] = doc.Indices[src]
        values[pos] = doc.Values[src]
    }
    doc.Indices = indices
    doc.Values = values
}

func invertVocabulary(vocab map[string]int) []string {
    terms := make([]string, len(vocab))
    for term, idx := range vocab {
        if idx >= 0 && idx < len(terms) {
            terms[idx] = term
        }
    }
    return terms
}

type vectorizerFile struct {
    Tokenizer         textproc.Options `json:"tokenizer"`
    Vocabulary        map[string]int   `json:"vocabulary"`
    DocumentFrequency []int            `json:"document_frequency"`
    DocumentCount     int              `json:"document_count"`
}

// Save writes the fitted vocabulary, document frequencies and the
// tokenizer settings so a later process can reproduce the exact
// feature space.
func (v *Vectorizer) Save(path string) error {
    if v.docCount == 0 {
        return errors.New("vectorizer: not fitted")
    }
    data, err := json.Marshal(vectorizerFile{
        Tokenizer:         v.tokenizer.Options(),
        Vocabulary:        v.counts.Vocabulary,
        DocumentFrequency: v.df,
        DocumentCount:     v.docCount,
    })
    if err != nil {
        return fmt.Errorf("marshal vectorizer: %w", err)
    }
    if err := os.WriteFile(path, data, 0o600); err != nil {
        return fmt.Errorf("write vectorizer: %w", err)
    }
    return nil
}

// LoadVectorizer restores a vectorizer saved by Save, including its
// tokenizer configuration.
func LoadVectorizer(path string) (*Vectorizer, error) {
    data, err := os.ReadFile(path)
    if err != nil {
        return nil, fmt.Errorf("read vectorizer: %w", err)
    }
    var file vectorizerFile
    if err := json.Unmarshal(data, &file); err != nil {
        return nil, fmt.Errorf("parse vectorizer: %w", err)
    }
    if file.DocumentCount <= 0 || len(file.Vocabulary) == 0 {
        return nil, fmt.Errorf("vectorizer file %s is incomplete", path)
    }
    if len(file.DocumentFrequency) != len(file.Vocabulary) {
        return nil, fmt.Errorf("vectorizer file %s: %d frequencies for %d terms",
            path, len(file.DocumentFrequency), len(file.Vocabulary))
    }

    v, err := NewVectorizer(file.Tokenizer)
    if err != nil {
        return nil, err
    }
    v.counts.Vocabulary = file.Vocabulary
    v.df = file.DocumentFrequency
    v.docCount = file.DocumentCount
    v.terms = invertVocabulary(file.Vocabulary)
    return v, nil
}
