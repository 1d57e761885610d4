// Command train fits a single classifier on the labeled narratives,
// scores it on a held-out slice of the same file, and writes the model
// artifacts for later prediction.
package main

import (
    "flag"
    "fmt"
    "log"
    "os"
    "path/filepath"

    "go.uber.org/zap"

    "gravamen/config"
    "gravamen/dataset"
    "gravamen/logging"
    "gravamen/ml"
    "gravamen/report"
)

func main() {
    configPath := flag.String("config", "config.yaml", "analysis config file")
    modelType := flag.String("model", "", "classifier to train: svm or maxent")
    outDir := flag.String("out", "", "output directory for model artifacts (default from config)")
    tune := flag.Bool("tune", false, "grid-search svm hyperparameters before training")
    testRatio := flag.Float64("test_ratio", 0.2, "fraction of rows held out for evaluation")
    flag.Parse()

    if *modelType == "" {
        log.Fatal("model is required (svm or maxent)")
    }
    if *modelType != ml.ModelSVM && *modelType != ml.ModelMaxEnt {
        log.Fatalf("unknown model type %q (want svm or maxent)", *modelType)
    }

    cfg, err := config.Load(*configPath)
    if err != nil {
        log.Fatalf("Failed to load config: %v", err)
    }
    logger, err := logging.New(cfg.Log.Level, cfg.Log.File)
    if err != nil {
        log.Fatalf("Failed to build logger: %v", err)
    }
    defer logger.Sync()

    records, err := dataset.Load(cfg.Data.Train, cfg.LoadOptions())
    if err != nil {
        log.Fatalf("Failed to load %s: %v", cfg.Data.Train, err)
    }
    kept, issues := dataset.NewCleaner(dataset.TrainingRules(cfg.Data.MaxNarrativeRunes)...).Clean(records)
    if len(kept) == 0 {
        log.Fatalf("No usable rows in %s (%d rejected)", cfg.Data.Train, len(issues))
    }
    logger.Info("training data loaded",
        zap.Int("kept", len(kept)),
        zap.Int("rejected", len(issues)))

    labels := dataset.NewLabelIndex(kept)
    if labels.Len() < 2 {
        log.Fatalf("Need at least 2 distinct labels, got %d", labels.Len())
    }

    trainRecords, holdout := dataset.Split(kept, *testRatio, cfg.SVM.Seed)
    trainY, err := labels.Encode(trainRecords)
    if err != nil {
        log.Fatalf("Failed to encode labels: %v", err)
    }
    holdoutY, err := labels.Encode(holdout)
    if err != nil {
        log.Fatalf("Failed to encode labels: %v", err)
    }

    vec, err := ml.NewVectorizer(cfg.Tokenizer)
    if err != nil {
        log.Fatalf("Failed to build vectorizer: %v", err)
    }
    trainDocs, err := vec.FitTransform(dataset.Narratives(trainRecords))
    if err != nil {
        log.Fatalf("Failed to vectorize training rows: %v", err)
    }
    holdoutDocs, err := vec.Transform(dataset.Narratives(holdout))
    if err != nil {
        log.Fatalf("Failed to vectorize held-out rows: %v", err)
    }

    svmCfg := ml.SVMConfig{
        Epochs: cfg.SVM.Epochs,
        Lambda: cfg.SVM.Lambda,
        Seed:   cfg.SVM.Seed,
        Logger: logger,
    }
    if *tune && *modelType == ml.ModelSVM {
        best, err := ml.TuneSVM(trainDocs, trainY, *testRatio, cfg.SVM.Seed, ml.DefaultSVMGrid(), logger)
        if err != nil {
            log.Fatalf("Tuning failed: %v", err)
        }
        svmCfg.Lambda = best.Lambda
        svmCfg.Epochs = best.Epochs
        fmt.Printf("tuned svm: lambda=%g epochs=%d (validation accuracy %.3f over %d candidates)\n",
            best.Lambda, best.Epochs, best.Accuracy, best.Tried)
    }

    var model ml.Model
    switch *modelType {
    case ml.ModelSVM:
        model = ml.NewLinearSVM(svmCfg)
    case ml.ModelMaxEnt:
        model = ml.NewMaxEnt(ml.MaxEntConfig{
            Iterations:     cfg.MaxEnt.Iterations,
            MinImprovement: cfg.MaxEnt.MinImprovement,
            Logger:         logger,
        })
    }
    if err := model.Train(trainDocs, trainY); err != nil {
        log.Fatalf("Training failed: %v", err)
    }

    predicted := make([]int, len(holdoutDocs))
    for i, doc := range holdoutDocs {
        label, _, err := model.Predict(doc)
        if err != nil {
            log.Fatalf("Prediction failed: %v", err)
        }
        predicted[i] = label
    }
    eval, err := ml.Evaluate(*modelType, predicted, holdoutY, labels.Names())
    if err != nil {
        log.Fatalf("Evaluation failed: %v", err)
    }
    if err := report.WriteClassMetrics(os.Stdout, eval); err != nil {
        log.Fatalf("Failed to print metrics: %v", err)
    }
    fmt.Printf("held-out accuracy: %.2f%% (%d/%d)\n", eval.Accuracy*100, eval.Correct, eval.Total)

    dir := *outDir
    if dir == "" {
        dir = cfg.Output.ModelsDir
    }
    if err := os.MkdirAll(dir, 0o755); err != nil {
        log.Fatalf("Failed to create %s: %v", dir, err)
    }
    modelPath := filepath.Join(dir, *modelType+".json")
    if err := model.Save(modelPath); err != nil {
        log.Fatalf("Failed to save model: %v", err)
    }
    if err := vec.Save(filepath.Join(dir, "vectorizer.json")); err != nil {
        log.Fatalf("Failed to save vectorizer: %v", err)
    }
    if err := labels.Save(filepath.Join(dir, "labels.json")); err != nil {
        log.Fatalf("Failed to save labels: %v", err)
    }
    fmt.Printf("model saved to %s\n", modelPath)
}
