package textproc

import (
    "reflect"
    "testing"
)

func newTestTokenizer(t *testing.T, opts Options) *Tokenizer {
    t.Helper()
    tok, err := NewTokenizer(opts)
    if err != nil {
        t.Fatalf("NewTokenizer failed: %v", err)
    }
    return tok
}

func TestTokenizeStemsAndStopwords(t *testing.T) {
    tok := newTestTokenizer(t, Options{Bigrams: false, MinTokenLength: 1})

    got := tok.Tokenize("The officer was punched and kicked.")
    want := []string{"offic", "punch", "kick"}
    if !reflect.DeepEqual(got, want) {
        t.Fatalf("expected %v, got %v", want, got)
    }
}

func TestTokenizeBigrams(t *testing.T) {
    tok := newTestTokenizer(t, DefaultOptions())

    got := tok.Tokenize("The officer was punched and kicked.")
    want := []string{"offic", "punch", "kick", "offic_punch", "punch_kick"}
    if !reflect.DeepEqual(got, want) {
        t.Fatalf("expected %v, got %v", want, got)
    }
}

func TestTokenizeEdgeCases(t *testing.T) {
    tok := newTestTokenizer(t, DefaultOptions())

    cases := []struct {
        name  string
        input string
        want  []string
    }{
        {"empty", "", nil},
        {"whitespace", "   \t\n", nil},
        {"punctuation only", "?! ,, --- ...", nil},
        {"stopwords only", "was the of and", nil},
        {"single word", "Punched!", []string{"punch"}},
        {"digits kept", "struck at 3 a.m.", []string{"struck", "3", "struck_3"}},
        {"curly apostrophe", "didn’t resist", []string{"resist"}},
        {"hyphen splits", "off-duty officer", []string{"duti", "offic", "duti_offic"}},
    }
    for _, tc := range cases {
        got := tok.Tokenize(tc.input)
        if len(got) == 0 && len(tc.want) == 0 {
            continue
        }
        if !reflect.DeepEqual(got, tc.want) {
            t.Errorf("%s: expected %v, got %v", tc.name, tc.want, got)
        }
    }
}

func TestTokenizeExtraStopwords(t *testing.T) {
    tok := newTestTokenizer(t, Options{
        Bigrams:        false,
        ExtraStopwords: []string{"Officer", "  suspect "},
    })

    got := tok.Tokenize("officer punched suspect")
    want := []string{"punch"}
    if !reflect.DeepEqual(got, want) {
        t.Fatalf("expected %v, got %v", want, got)
    }
}

func TestTokenizeMinTokenLength(t *testing.T) {
    tok := newTestTokenizer(t, Options{Bigrams: false, MinTokenLength: 2})

    got := tok.Tokenize("struck at 3 am")
    want := []string{"struck"}
    if !reflect.DeepEqual(got, want) {
        t.Fatalf("expected %v, got %v", want, got)
    }
}

func TestStemCacheReuse(t *testing.T) {
    cache, err := NewStemCache(16)
    if err != nil {
        t.Fatalf("NewStemCache failed: %v", err)
    }

    first := cache.Stem("punched")
    if first != "punch" {
        t.Fatalf("expected stem punch, got %q", first)
    }
    if cache.Len() != 1 {
        t.Fatalf("expected one cached entry, got %d", cache.Len())
    }

    second := cache.Stem("punched")
    if second != first {
        t.Fatalf("cached stem mismatch: %q vs %q", second, first)
    }
    if cache.Len() != 1 {
        t.Fatalf("cache grew on repeat lookup: %d entries", cache.Len())
    }
}

func TestTokenizerOptionsRoundTrip(t *testing.T) {
    opts := Options{Bigrams: true, MinTokenLength: 2, ExtraStopwords: []string{"precinct"}}
    tok := newTestTokenizer(t, opts)

    got := tok.Options()
    if got.MinTokenLength != 2 || !got.Bigrams || len(got.ExtraStopwords) != 1 {
        t.Fatalf("options not preserved: %+v", got)
    }
}
