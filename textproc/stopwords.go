package textproc

import "strings"

// englishStopwords is the standard English stopword list used for
// narrative preprocessing. Contraction fragments (don, shouldn, t, ve)
// are listed as bare forms because punctuation stripping splits
// "don't" into "don" and "t" before the filter runs.
var englishStopwords = []string{
    "i", "me", "my", "myself", "we", "our", "ours", "ourselves",
    "you", "your", "yours", "yourself", "yourselves",
    "he", "him", "his", "himself", "she", "her", "hers", "herself",
    "it", "its", "itself", "they", "them", "their", "theirs", "themselves",
    "what", "which", "who", "whom", "this", "that", "these", "those",
    "am", "is", "are", "was", "were", "be", "been", "being",
    "have", "has", "had", "having", "do", "does", "did", "doing",
    "a", "an", "the", "and", "but", "if", "or", "because", "as",
    "until", "while", "of", "at", "by", "for", "with", "about",
    "against", "between", "into", "through", "during", "before",
    "after", "above", "below", "to", "from", "up", "down", "in",
    "out", "on", "off", "over", "under", "again", "further", "then",
    "once", "here", "there", "when", "where", "why", "how", "all",
    "any", "both", "each", "few", "more", "most", "other", "some",
    "such", "no", "nor", "not", "only", "own", "same", "so", "than",
    "too", "very", "s", "t", "can", "will", "just", "don", "should",
    "now", "d", "ll", "m", "o", "re", "ve", "y", "ain", "aren",
    "couldn", "didn", "doesn", "hadn", "hasn", "haven", "isn", "ma",
    "mightn", "mustn", "needn", "shan", "shouldn", "wasn", "weren",
    "won", "wouldn",
}

// buildStopwordSet merges the built-in list with any extra words from
// configuration. Extras are lowercased so the lookup matches tokens.
func buildStopwordSet(extra []string) map[string]struct{} {
    set := make(map[string]struct{}, len(englishStopwords)+len(extra))
    for _, w := range englishStopwords {
        set[w] = struct{}{}
    }
    for _, w := range extra {
        w = strings.ToLower(strings.TrimSpace(w))
        if w != "" {
            set[w] = struct{}{}
        }
    }
    return set
}
