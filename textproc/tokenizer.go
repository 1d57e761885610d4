package textproc

import (
    "fmt"
    "strings"
    "unicode"

    "github.com/clipperhouse/uax29/v2/words"
)

// strippedPunctuation lists the characters replaced with spaces before
// segmentation. Curly quotes and long dashes show up in narratives
// exported from word processors. The underscore is stripped so it
// stays reserved for joining bigram terms.
const strippedPunctuation = ".,;:!?\"'()[]{}<>/\\|@#$%^&*_+-=~`" + "‘’“”–—…"

// BigramSeparator joins the two stems of a bigram feature.
const BigramSeparator = "_"

// Options controls narrative tokenization. The zero value is not
// usable directly; NewTokenizer fills in defaults.
type Options struct {
    // Bigrams adds adjacent stem pairs to the unigram stream.
    Bigrams bool `json:"bigrams" yaml:"bigrams"`
    // MinTokenLength drops stems shorter than this many runes.
    MinTokenLength int `json:"min_token_length" yaml:"min_token_length"`
    // ExtraStopwords extends the built-in English list.
    ExtraStopwords []string `json:"extra_stopwords,omitempty" yaml:"extra_stopwords"`
    // StemCacheSize bounds the stemming memo. Zero means the default.
    StemCacheSize int `json:"stem_cache_size,omitempty" yaml:"stem_cache_size"`
}

// DefaultOptions matches the preprocessing used for the assault
// narrative models: bigrams on, single-rune stems kept.
func DefaultOptions() Options {
    return Options{
        Bigrams:        true,
        MinTokenLength: 1,
        StemCacheSize:  defaultStemCacheSize,
    }
}

// Tokenizer turns a raw narrative into a stream of stemmed terms.
// The pipeline is: lowercase, strip punctuation, segment into words,
// drop stopwords, stem, then append adjacent-stem bigrams.
type Tokenizer struct {
    opts  Options
    stops map[string]struct{}
    stems *StemCache
}

func NewTokenizer(opts Options) (*Tokenizer, error) {
    if opts.MinTokenLength < 1 {
        opts.MinTokenLength = 1
    }
    stems, err := NewStemCache(opts.StemCacheSize)
    if err != nil {
        return nil, fmt.Errorf("tokenizer: %w", err)
    }
    return &Tokenizer{
        opts:  opts,
        stops: buildStopwordSet(opts.ExtraStopwords),
        stems: stems,
    }, nil
}

// Options returns the configuration the tokenizer was built with, so
// it can be persisted alongside a trained model.
func (t *Tokenizer) Options() Options {
    return t.opts
}

// Tokenize returns the stemmed unigrams of text followed by its
// bigrams when enabled. Blank and punctuation-only input yields an
// empty slice.
func (t *Tokenizer) Tokenize(text string) []string {
    unigrams := t.unigrams(text)
    if !t.opts.Bigrams || len(unigrams) < 2 {
        return unigrams
    }
    out := make([]string, 0, 2*len(unigrams)-1)
    out = append(out, unigrams...)
    for i := 0; i+1 < len(unigrams); i++ {
        out = append(out, unigrams[i]+BigramSeparator+unigrams[i+1])
    }
    return out
}

// unigrams runs the per-word part of the pipeline. Bigrams are built
// from this sequence, so words dropped as stopwords never appear in a
// bigram and the remaining stems become adjacent.
func (t *Tokenizer) unigrams(text string) []string {
    cleaned := strings.Map(func(r rune) rune {
        if strings.ContainsRune(strippedPunctuation, r) {
            return ' '
        }
        return r
    }, strings.ToLower(text))

    var stems []string
    tokens := words.FromString(cleaned)
    for tokens.Next() {
        token := tokens.Value()
        if !isWordlike(token) {
            continue
        }
        if _, stop := t.stops[token]; stop {
            continue
        }
        stem := t.stems.Stem(token)
        if len([]rune(stem)) < t.opts.MinTokenLength {
            continue
        }
        stems = append(stems, stem)
    }
    return stems
}

// isWordlike reports whether a segment carries at least one letter or
// digit. Whitespace and symbol segments from the word segmenter fail
// this test.
func isWordlike(s string) bool {
    for _, r := range s {
        if unicode.IsLetter(r) || unicode.IsDigit(r) {
            return true
        }
    }
    return false
}
