package dataset

import (
    "strings"
    "testing"
)

func TestCleanTrainingRules(t *testing.T) {
    records := []Record{
        {Row: 1, Narrative: "officer  was   punched", Label: "minor"},
        {Row: 2, Narrative: "", Label: "minor"},
        {Row: 3, Narrative: "victim stabbed", Label: ""},
        {Row: 4, Narrative: "officer was punched", Label: "minor"},
        {Row: 5, Narrative: "suspect fled on foot", Label: "minor"},
    }

    cleaner := NewCleaner(TrainingRules(0)...)
    kept, issues := cleaner.Clean(records)

    if len(kept) != 2 {
        t.Fatalf("expected 2 kept records, got %d", len(kept))
    }
    if kept[0].Narrative != "officer was punched" {
        t.Fatalf("whitespace not normalized: %q", kept[0].Narrative)
    }
    if len(issues) != 3 {
        t.Fatalf("expected 3 issues, got %d", len(issues))
    }

    byRule := map[string]int{}
    for _, issue := range issues {
        byRule[issue.Rule]++
    }
    if byRule["blank_narrative"] != 1 || byRule["blank_label"] != 1 || byRule["duplicate"] != 1 {
        t.Fatalf("unexpected issue breakdown: %v", byRule)
    }

    stats := cleaner.Stats()
    if stats.Processed != 5 || stats.Kept != 2 || stats.Rejected != 3 {
        t.Fatalf("unexpected stats: %+v", stats)
    }
}

func TestCleanDuplicateIsCaseInsensitive(t *testing.T) {
    records := []Record{
        {Row: 1, Narrative: "Suspect kicked officer", Label: "minor"},
        {Row: 2, Narrative: "suspect KICKED officer", Label: "minor"},
    }

    cleaner := NewCleaner(TrainingRules(0)...)
    kept, issues := cleaner.Clean(records)
    if len(kept) != 1 || len(issues) != 1 {
        t.Fatalf("expected case-insensitive duplicate rejection, kept=%d issues=%d",
            len(kept), len(issues))
    }
    if !strings.Contains(issues[0].Err.Error(), "row 1") {
        t.Fatalf("duplicate issue should cite the first row: %v", issues[0].Err)
    }
}

func TestCleanNarrativeLength(t *testing.T) {
    long := strings.Repeat("a", 50)
    records := []Record{
        {Row: 1, Narrative: long, Label: "minor"},
        {Row: 2, Narrative: "short", Label: "minor"},
    }

    cleaner := NewCleaner(&NarrativeLengthRule{MaxRunes: 10})
    kept, issues := cleaner.Clean(records)
    if len(kept) != 1 || kept[0].Row != 2 {
        t.Fatalf("expected long narrative rejected, kept=%+v", kept)
    }
    if issues[0].Rule != "narrative_length" {
        t.Fatalf("unexpected rule name: %s", issues[0].Rule)
    }
}

func TestCleanTestRulesUnknownLabel(t *testing.T) {
    train := []Record{
        {Row: 1, Narrative: "a", Label: "minor"},
        {Row: 2, Narrative: "b", Label: "serious"},
    }
    index := NewLabelIndex(train)

    records := []Record{
        {Row: 1, Narrative: "officer shoved", Label: "minor"},
        {Row: 2, Narrative: "victim cut", Label: "felony"},
    }
    cleaner := NewCleaner(TestRules(0, index)...)
    kept, issues := cleaner.Clean(records)

    if len(kept) != 1 || kept[0].Label != "minor" {
        t.Fatalf("expected only known-label record kept: %+v", kept)
    }
    if len(issues) != 1 || issues[0].Rule != "unknown_label" {
        t.Fatalf("unexpected issues: %+v", issues)
    }
}
