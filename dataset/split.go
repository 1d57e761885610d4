package dataset

import "math/rand"

// Split shuffles records with the given seed and carves off holdoutRatio
// of them for evaluation. Ratios outside (0, 1) fall back to 0.2. The
// same seed over the same records always yields the same split.
func Split(records []Record, holdoutRatio float64, seed int64) (train, holdout []Record) {
    if holdoutRatio <= 0 || holdoutRatio >= 1 {
        holdoutRatio = 0.2
    }
    shuffled := make([]Record, len(records))
    copy(shuffled, records)
    rng := rand.New(rand.NewSource(seed))
    rng.Shuffle(len(shuffled), func(i, j int) {
        shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
    })

    cut := len(shuffled) - int(float64(len(shuffled))*holdoutRatio)
    if cut < 1 {
        cut = 1
    }
    if cut > len(shuffled) {
        cut = len(shuffled)
    }
    return shuffled[:cut], shuffled[cut:]
}
