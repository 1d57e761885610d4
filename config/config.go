// Package config loads and validates the YAML analysis configuration.
package config

import (
    "errors"
    "fmt"
    "os"
    "strings"

    "gopkg.in/yaml.v2"

    "gravamen/dataset"
    "gravamen/textproc"
)

var (
    ErrMissingTrainFile = errors.New("config: data.train is required")
    ErrMissingTestFile  = errors.New("config: data.test is required")
    ErrMissingColumns   = errors.New("config: data.narrative_column and data.label_column are required")
    ErrSameColumns      = errors.New("config: data.narrative_column and data.label_column must differ")
    ErrBadEncoding      = errors.New("config: unsupported data.encoding")
    ErrBadLogLevel      = errors.New("config: log.level must be debug, info, warn or error")
)

// DataConfig points at the two coded narrative files and names their
// columns.
type DataConfig struct {
    Train             string `yaml:"train"`
    Test              string `yaml:"test"`
    Sheet             string `yaml:"sheet"`
    NarrativeColumn   string `yaml:"narrative_column"`
    LabelColumn       string `yaml:"label_column"`
    Encoding          string `yaml:"encoding"`
    MaxNarrativeRunes int    `yaml:"max_narrative_runes"`
}

// SVMConfig carries the linear SVM hyperparameters.
type SVMConfig struct {
    Epochs int     `yaml:"epochs"`
    Lambda float64 `yaml:"lambda"`
    Seed   int64   `yaml:"seed"`
}

// MaxEntConfig carries the maximum entropy training limits.
type MaxEntConfig struct {
    Iterations     int     `yaml:"iterations"`
    MinImprovement float64 `yaml:"min_improvement"`
}

// OutputConfig controls reporting and persistence.
type OutputConfig struct {
    ModelsDir         string `yaml:"models_dir"`
    Database          string `yaml:"database"`
    TopTerms          int    `yaml:"top_terms"`
    ShowDisagreements bool   `yaml:"show_disagreements"`
    NarrativeWidth    int    `yaml:"narrative_width"`
}

// LogConfig controls log verbosity and the optional log file.
type LogConfig struct {
    Level string `yaml:"level"`
    File  string `yaml:"file"`
}

// Config is the full analysis configuration.
type Config struct {
    Data      DataConfig       `yaml:"data"`
    Tokenizer textproc.Options `yaml:"tokenizer"`
    SVM       SVMConfig        `yaml:"svm"`
    MaxEnt    MaxEntConfig     `yaml:"maxent"`
    Baseline  bool             `yaml:"baseline"`
    Output    OutputConfig     `yaml:"output"`
    Log       LogConfig        `yaml:"log"`
}

// Default returns the settings every run starts from. The two data
// files have no default and must come from the file.
func Default() Config {
    return Config{
        Data: DataConfig{
            NarrativeColumn:   "narrative",
            LabelColumn:       "code",
            Encoding:          "utf-8",
            MaxNarrativeRunes: dataset.DefaultMaxNarrativeRunes,
        },
        Tokenizer: textproc.DefaultOptions(),
        SVM:       SVMConfig{Epochs: 10, Lambda: 1e-4, Seed: 42},
        MaxEnt:    MaxEntConfig{Iterations: 100, MinImprovement: 1e-4},
        Output: OutputConfig{
            ModelsDir:         "models",
            TopTerms:          15,
            ShowDisagreements: true,
            NarrativeWidth:    60,
        },
        Log: LogConfig{Level: "info"},
    }
}

// Load reads path over the defaults and validates the result.
func Load(path string) (Config, error) {
    cfg := Default()
    file, err := os.Open(path)
    if err != nil {
        return cfg, fmt.Errorf("open config: %w", err)
    }
    defer file.Close()

    decoder := yaml.NewDecoder(file)
    if err := decoder.Decode(&cfg); err != nil {
        return cfg, fmt.Errorf("parse config %s: %w", path, err)
    }
    if err := cfg.Validate(); err != nil {
        return cfg, err
    }
    return cfg, nil
}

// Validate checks the fields no run can work without.
func (c *Config) Validate() error {
    if strings.TrimSpace(c.Data.Train) == "" {
        return ErrMissingTrainFile
    }
    if strings.TrimSpace(c.Data.Test) == "" {
        return ErrMissingTestFile
    }
    if c.Data.NarrativeColumn == "" || c.Data.LabelColumn == "" {
        return ErrMissingColumns
    }
    if strings.EqualFold(c.Data.NarrativeColumn, c.Data.LabelColumn) {
        return ErrSameColumns
    }
    if !dataset.SupportedEncoding(c.Data.Encoding) {
        return ErrBadEncoding
    }
    switch strings.ToLower(c.Log.Level) {
    case "", "debug", "info", "warn", "error":
    default:
        return ErrBadLogLevel
    }
    if c.SVM.Lambda < 0 {
        return fmt.Errorf("config: svm.lambda must not be negative, got %g", c.SVM.Lambda)
    }
    if c.SVM.Epochs < 0 {
        return fmt.Errorf("config: svm.epochs must not be negative, got %d", c.SVM.Epochs)
    }
    if c.MaxEnt.Iterations < 0 {
        return fmt.Errorf("config: maxent.iterations must not be negative, got %d", c.MaxEnt.Iterations)
    }
    if c.Output.TopTerms < 0 {
        return fmt.Errorf("config: output.top_terms must not be negative, got %d", c.Output.TopTerms)
    }
    return nil
}

// LoadOptions builds the dataset loader options from the data section.
func (c *Config) LoadOptions() dataset.LoadOptions {
    return dataset.LoadOptions{
        NarrativeColumn: c.Data.NarrativeColumn,
        LabelColumn:     c.Data.LabelColumn,
        Encoding:        c.Data.Encoding,
        Sheet:           c.Data.Sheet,
    }
}
