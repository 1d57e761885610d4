package dataset

import (
    "errors"
    "fmt"
    "strings"
    "unicode/utf8"
)

// Rule inspects one record before it enters training or scoring. A
// rule may normalize the record in place; returning an error rejects
// the record.
type Rule interface {
    Apply(r *Record) error
    Name() string
}

// Issue records one rejected row and the rule that rejected it.
type Issue struct {
    Row  int
    Rule string
    Err  error
}

func (i Issue) String() string {
    return fmt.Sprintf("row %d: %s: %v", i.Row, i.Rule, i.Err)
}

// Stats summarizes one cleaning pass.
type Stats struct {
    Processed int
    Kept      int
    Rejected  int
    ByRule    map[string]int
}

// Cleaner runs a fixed rule chain over loaded records. Rules run in
// order and the first failure rejects the record.
type Cleaner struct {
    rules []Rule
    stats Stats
}

func NewCleaner(rules ...Rule) *Cleaner {
    return &Cleaner{
        rules: rules,
        stats: Stats{ByRule: make(map[string]int)},
    }
}

// DefaultMaxNarrativeRunes caps narrative length. Anything longer is
// almost always a mis-parsed row that swallowed its neighbors.
const DefaultMaxNarrativeRunes = 4000

// TrainingRules is the chain applied to the training file.
func TrainingRules(maxNarrativeRunes int) []Rule {
    return []Rule{
        &WhitespaceRule{},
        &BlankNarrativeRule{},
        &BlankLabelRule{},
        &NarrativeLengthRule{MaxRunes: maxNarrativeRunes},
        NewDuplicateRule(),
    }
}

// TestRules is the chain applied to the held-out file. Labels must
// already exist in the training label set; duplicates are allowed
// because repeated incidents are legitimate test cases.
func TestRules(maxNarrativeRunes int, labels *LabelIndex) []Rule {
    return []Rule{
        &WhitespaceRule{},
        &BlankNarrativeRule{},
        &BlankLabelRule{},
        &NarrativeLengthRule{MaxRunes: maxNarrativeRunes},
        &KnownLabelsRule{Index: labels},
    }
}

// Clean applies the rule chain to each record and returns the records
// that passed along with one issue per rejected record.
func (c *Cleaner) Clean(records []Record) ([]Record, []Issue) {
    kept := make([]Record, 0, len(records))
    var issues []Issue
    for _, r := range records {
        c.stats.Processed++
        if issue, ok := c.apply(&r); !ok {
            c.stats.Rejected++
            c.stats.ByRule[issue.Rule]++
            issues = append(issues, issue)
            continue
        }
        c.stats.Kept++
        kept = append(kept, r)
    }
    return kept, issues
}

func (c *Cleaner) apply(r *Record) (Issue, bool) {
    for _, rule := range c.rules {
        if err := rule.Apply(r); err != nil {
            return Issue{Row: r.Row, Rule: rule.Name(), Err: err}, false
        }
    }
    return Issue{}, true
}

func (c *Cleaner) Stats() Stats {
    return c.stats
}

// WhitespaceRule collapses internal whitespace runs so duplicate
// detection and length checks see the same text the tokenizer will.
type WhitespaceRule struct{}

func (w *WhitespaceRule) Apply(r *Record) error {
    r.Narrative = strings.Join(strings.Fields(r.Narrative), " ")
    return nil
}

func (w *WhitespaceRule) Name() string { return "whitespace" }

// BlankNarrativeRule rejects rows with no narrative text.
type BlankNarrativeRule struct{}

func (b *BlankNarrativeRule) Apply(r *Record) error {
    if r.Narrative == "" {
        return errors.New("narrative is blank")
    }
    return nil
}

func (b *BlankNarrativeRule) Name() string { return "blank_narrative" }

// BlankLabelRule rejects rows the coders left unlabeled.
type BlankLabelRule struct{}

func (b *BlankLabelRule) Apply(r *Record) error {
    if r.Label == "" {
        return errors.New("label is blank")
    }
    return nil
}

func (b *BlankLabelRule) Name() string { return "blank_label" }

// NarrativeLengthRule rejects narratives longer than MaxRunes.
type NarrativeLengthRule struct {
    MaxRunes int
}

func (n *NarrativeLengthRule) Apply(r *Record) error {
    limit := n.MaxRunes
    if limit <= 0 {
        limit = DefaultMaxNarrativeRunes
    }
    if count := utf8.RuneCountInString(r.Narrative); count > limit {
        return fmt.Errorf("narrative has %d runes, limit %d", count, limit)
    }
    return nil
}

func (n *NarrativeLengthRule) Name() string { return "narrative_length" }

// KnownLabelsRule rejects rows whose label never appeared in the
// training data.
type KnownLabelsRule struct {
    Index *LabelIndex
}

func (k *KnownLabelsRule) Apply(r *Record) error {
    if _, ok := k.Index.ID(r.Label); !ok {
        return fmt.Errorf("label %q not in training label set", r.Label)
    }
    return nil
}

func (k *KnownLabelsRule) Name() string { return "unknown_label" }

// DuplicateRule rejects repeated narratives within one file. The
// comparison is case-insensitive over whitespace-normalized text.
type DuplicateRule struct {
    seen map[string]int
}

func NewDuplicateRule() *DuplicateRule {
    return &DuplicateRule{seen: make(map[string]int)}
}

func (d *DuplicateRule) Apply(r *Record) error {
    key := strings.ToLower(r.Narrative)
    if first, ok := d.seen[key]; ok {
        return fmt.Errorf("duplicate of row %d", first)
    }
    d.seen[key] = r.Row
    return nil
}

func (d *DuplicateRule) Name() string { return "duplicate" }
