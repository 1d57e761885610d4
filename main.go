package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"gravamen/config"
	"gravamen/dataset"
	"gravamen/db"
	"gravamen/logging"
	"gravamen/ml"
	"gravamen/report"
)

func main() {
	configPath := flag.String("config", "config.yaml", "analysis config file")
	watch := flag.Bool("watch", false, "rerun the analysis when a data file changes")
	flag.Parse()

	// 1. Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// 2. Build logger
	logger, err := logging.New(cfg.Log.Level, cfg.Log.File)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	// 3. Initialize database when configured
	if cfg.Output.Database != "" {
		if err := db.InitDB(cfg.Output.Database); err != nil {
			logger.Fatal("initialize database", zap.Error(err))
		}
		defer db.CloseDB()
		logger.Info("database initialized", zap.String("path", cfg.Output.Database))
	}

	// 4. Run the analysis, and keep rerunning in watch mode
	if err := runAnalysis(cfg, logger); err != nil {
		logger.Fatal("analysis failed", zap.Error(err))
	}
	if *watch {
		if err := watchAndRerun(cfg, logger); err != nil {
			logger.Fatal("watch failed", zap.Error(err))
		}
	}
}

func runAnalysis(cfg config.Config, logger *zap.Logger) error {
	start := time.Now()

	// 1. Load and clean the training file
	trainRecords, trainIssues, err := loadClean(cfg.Data.Train, cfg, nil)
	if err != nil {
		return err
	}

	// 2. The training labels define the label set
	labels := dataset.NewLabelIndex(trainRecords)
	if labels.Len() < 2 {
		return fmt.Errorf("training data in %s has %d distinct labels, need at least 2",
			cfg.Data.Train, labels.Len())
	}
	trainY, err := labels.Encode(trainRecords)
	if err != nil {
		return err
	}

	// 3. Load and clean the held-out file against the training labels
	testRecords, testIssues, err := loadClean(cfg.Data.Test, cfg, labels)
	if err != nil {
		return err
	}
	testY, err := labels.Encode(testRecords)
	if err != nil {
		return err
	}

	// 4. Fit the feature space on training narratives only
	vec, err := ml.NewVectorizer(cfg.Tokenizer)
	if err != nil {
		return err
	}
	trainDocs, err := vec.FitTransform(dataset.Narratives(trainRecords))
	if err != nil {
		return err
	}
	testDocs, err := vec.Transform(dataset.Narratives(testRecords))
	if err != nil {
		return err
	}
	logger.Info("feature space fitted",
		zap.Int("train_rows", len(trainDocs)),
		zap.Int("test_rows", len(testDocs)),
		zap.Int("vocabulary", vec.VocabularySize()))

	// 5. Train both classifiers on the same documents
	svm := ml.NewLinearSVM(ml.SVMConfig{
		Epochs: cfg.SVM.Epochs,
		Lambda: cfg.SVM.Lambda,
		Seed:   cfg.SVM.Seed,
		Logger: logger,
	})
	if err := svm.Train(trainDocs, trainY); err != nil {
		return fmt.Errorf("train svm: %w", err)
	}
	maxent := ml.NewMaxEnt(ml.MaxEntConfig{
		Iterations:     cfg.MaxEnt.Iterations,
		MinImprovement: cfg.MaxEnt.MinImprovement,
		Logger:         logger,
	})
	if err := maxent.Train(trainDocs, trainY); err != nil {
		return fmt.Errorf("train maxent: %w", err)
	}

	var bayes *ml.Bayes
	if cfg.Baseline {
		bayes, err = ml.NewBayes(labels.Names())
		if err != nil {
			return fmt.Errorf("baseline: %w", err)
		}
		for i, r := range trainRecords {
			if err := bayes.Learn(vec.Tokenizer().Tokenize(r.Narrative), trainY[i]); err != nil {
				return fmt.Errorf("baseline: %w", err)
			}
		}
	}

	// 6. Score the held-out narratives with every model
	svmPred, svmConf, err := predictAll(svm, testDocs)
	if err != nil {
		return fmt.Errorf("svm predictions: %w", err)
	}
	maxentPred, maxentConf, err := predictAll(maxent, testDocs)
	if err != nil {
		return fmt.Errorf("maxent predictions: %w", err)
	}

	evals := make([]*ml.Evaluation, 0, 3)
	predictions := map[string][]int{"svm": svmPred, "maxent": maxentPred}
	confidences := map[string][]float64{"svm": svmConf, "maxent": maxentConf}

	svmEval, err := ml.Evaluate("svm", svmPred, testY, labels.Names())
	if err != nil {
		return err
	}
	maxentEval, err := ml.Evaluate("maxent", maxentPred, testY, labels.Names())
	if err != nil {
		return err
	}
	evals = append(evals, svmEval, maxentEval)

	if bayes != nil {
		bayesPred := make([]int, len(testRecords))
		bayesConf := make([]float64, len(testRecords))
		for i, r := range testRecords {
			label, conf, err := bayes.Classify(vec.Tokenizer().Tokenize(r.Narrative))
			if err != nil {
				return fmt.Errorf("baseline predictions: %w", err)
			}
			bayesPred[i] = label
			bayesConf[i] = conf
		}
		bayesEval, err := ml.Evaluate("bayes", bayesPred, testY, labels.Names())
		if err != nil {
			return err
		}
		evals = append(evals, bayesEval)
		predictions["bayes"] = bayesPred
		confidences["bayes"] = bayesConf
	}

	// 7. Agreement with the coder and between the models
	kappaByModel := make(map[string]float64, len(evals))
	agreementRows := make([]report.AgreementRow, 0, len(evals)+1)
	for _, eval := range evals {
		stats, err := ml.Agreement(predictions[eval.Model], testY, labels.Len())
		if err != nil {
			return err
		}
		kappaByModel[eval.Model] = stats.Kappa
		agreementRows = append(agreementRows, report.AgreementRow{A: eval.Model, B: "human", Stats: stats})
	}
	crossStats, err := ml.Agreement(svmPred, maxentPred, labels.Len())
	if err != nil {
		return err
	}
	agreementRows = append(agreementRows, report.AgreementRow{A: "svm", B: "maxent", Stats: crossStats})

	// 8. Print the report
	out := os.Stdout
	fmt.Fprintf(out, "Assault narrative classification\n")
	fmt.Fprintf(out, "train: %s (%d rows kept, %d rejected)\n", cfg.Data.Train, len(trainRecords), len(trainIssues))
	fmt.Fprintf(out, "test:  %s (%d rows kept, %d rejected)\n", cfg.Data.Test, len(testRecords), len(testIssues))
	fmt.Fprintf(out, "vocabulary: %d terms, labels: %v\n", vec.VocabularySize(), labels.Names())

	if err := report.WriteSummary(out, evals); err != nil {
		return err
	}
	for _, eval := range evals {
		if err := report.WriteClassMetrics(out, eval); err != nil {
			return err
		}
		if err := report.WriteConfusion(out, eval); err != nil {
			return err
		}
	}
	if err := report.WriteAgreement(out, agreementRows); err != nil {
		return err
	}
	if cfg.Output.TopTerms > 0 {
		neg, pos := svm.Labels()
		positive, negative := svm.TopWeights(cfg.Output.TopTerms)
		if err := report.WriteTopTerms(out, "svm", labels.Name(pos), labels.Name(neg),
			termViews(vec, positive), termViews(vec, negative)); err != nil {
			return err
		}
	}
	if cfg.Output.ShowDisagreements {
		for _, name := range []string{"svm", "maxent"} {
			rows := disagreements(testRecords, testY, predictions[name], confidences[name], labels)
			if err := report.WriteDisagreements(out, name, rows, cfg.Output.NarrativeWidth); err != nil {
				return err
			}
		}
	}

	// 9. Persist models and the run record
	if cfg.Output.ModelsDir != "" {
		if err := saveModels(cfg.Output.ModelsDir, svm, maxent, bayes, vec, labels); err != nil {
			return err
		}
		logger.Info("models saved", zap.String("dir", cfg.Output.ModelsDir))
	}
	if cfg.Output.Database != "" {
		runID := uuid.NewString()
		created := time.Now().UTC()
		for _, eval := range evals {
			precision, recall, f1 := macroAverages(eval)
			run := db.Run{
				RunID:      runID,
				ModelName:  eval.Model,
				Accuracy:   eval.Accuracy,
				Precision:  precision,
				Recall:     recall,
				F1:         f1,
				Kappa:      kappaByModel[eval.Model],
				TrainRows:  len(trainRecords),
				TestRows:   len(testRecords),
				Vocabulary: vec.VocabularySize(),
				CreatedAt:  created,
			}
			if err := db.SaveRun(run); err != nil {
				return fmt.Errorf("record run: %w", err)
			}
			verdicts := verdictRows(testRecords, testY, predictions[eval.Model], confidences[eval.Model], labels)
			if err := db.SaveVerdicts(runID, eval.Model, verdicts); err != nil {
				return fmt.Errorf("record verdicts: %w", err)
			}
		}
		logger.Info("run recorded", zap.String("run_id", runID))

		history, err := db.LoadRuns(4 * len(evals))
		if err != nil {
			return fmt.Errorf("load run history: %w", err)
		}
		views := make([]report.RunView, len(history))
		for i, run := range history {
			views[i] = report.RunView{
				RunID:    run.RunID,
				Model:    run.ModelName,
				Accuracy: run.Accuracy,
				F1:       run.F1,
				Kappa:    run.Kappa,
				When:     run.CreatedAt,
			}
		}
		if err := report.WriteRunHistory(out, views); err != nil {
			return err
		}
	}

	logger.Info("analysis finished", zap.Duration("elapsed", time.Since(start)))
	return nil
}

// loadClean reads one data file and runs the cleaning rules. Passing a
// label index switches to the held-out rule chain that rejects labels
// the training data never defined.
func loadClean(path string, cfg config.Config, labels *dataset.LabelIndex) ([]dataset.Record, []dataset.Issue, error) {
	records, err := dataset.Load(path, cfg.LoadOptions())
	if err != nil {
		return nil, nil, err
	}
	var rules []dataset.Rule
	if labels == nil {
		rules = dataset.TrainingRules(cfg.Data.MaxNarrativeRunes)
	} else {
		rules = dataset.TestRules(cfg.Data.MaxNarrativeRunes, labels)
	}
	kept, issues := dataset.NewCleaner(rules...).Clean(records)
	if len(kept) == 0 {
		return nil, nil, fmt.Errorf("%s: no usable rows after cleaning (%d rejected)", path, len(issues))
	}
	return kept, issues, nil
}

func predictAll(model ml.Model, docs []ml.Document) ([]int, []float64, error) {
	labels := make([]int, len(docs))
	confidences := make([]float64, len(docs))
	for i, doc := range docs {
		label, confidence, err := model.Predict(doc)
		if err != nil {
			return nil, nil, err
		}
		labels[i] = label
		confidences[i] = confidence
	}
	return labels, confidences, nil
}

func termViews(vec *ml.Vectorizer, weights []ml.TermWeight) []report.TermView {
	views := make([]report.TermView, len(weights))
	for i, w := range weights {
		views[i] = report.TermView{Term: vec.Term(w.Index), Weight: w.Weight}
	}
	return views
}

func disagreements(records []dataset.Record, actual, predicted []int, confidences []float64, labels *dataset.LabelIndex) []report.Disagreement {
	var rows []report.Disagreement
	for i, r := range records {
		if predicted[i] == actual[i] {
			continue
		}
		rows = append(rows, report.Disagreement{
			Row:        r.Row,
			Narrative:  r.Narrative,
			Human:      labels.Name(actual[i]),
			Predicted:  labels.Name(predicted[i]),
			Confidence: confidences[i],
		})
	}
	return rows
}

// macroAverages reduces per-label metrics to their unweighted mean so
// a run stores one number per metric.
func macroAverages(eval *ml.Evaluation) (precision, recall, f1 float64) {
	if len(eval.Classes) == 0 {
		return 0, 0, 0
	}
	for _, c := range eval.Classes {
		precision += c.Precision
		recall += c.Recall
		f1 += c.F1
	}
	n := float64(len(eval.Classes))
	return precision / n, recall / n, f1 / n
}

func verdictRows(records []dataset.Record, actual, predicted []int, confidences []float64, labels *dataset.LabelIndex) []db.Verdict {
	verdicts := make([]db.Verdict, len(records))
	for i, r := range records {
		verdicts[i] = db.Verdict{
			Row:            r.Row,
			Narrative:      r.Narrative,
			HumanLabel:     labels.Name(actual[i]),
			PredictedLabel: labels.Name(predicted[i]),
			Confidence:     confidences[i],
		}
	}
	return verdicts
}

func saveModels(dir string, svm *ml.LinearSVM, maxent *ml.MaxEnt, bayes *ml.Bayes, vec *ml.Vectorizer, labels *dataset.LabelIndex) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create models dir: %w", err)
	}
	if err := svm.Save(filepath.Join(dir, "svm.json")); err != nil {
		return err
	}
	if err := maxent.Save(filepath.Join(dir, "maxent.json")); err != nil {
		return err
	}
	if err := vec.Save(filepath.Join(dir, "vectorizer.json")); err != nil {
		return err
	}
	if err := labels.Save(filepath.Join(dir, "labels.json")); err != nil {
		return err
	}
	if bayes != nil {
		if err := bayes.Save(filepath.Join(dir, "bayes.model")); err != nil {
			return err
		}
	}
	return nil
}

// watchAndRerun blocks watching the directories that hold the two data
// files and reruns the analysis after changes settle down. Watching
// directories instead of the files themselves keeps working when an
// editor or export job replaces a file by rename.
func watchAndRerun(cfg config.Config, logger *zap.Logger) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	targets := map[string]bool{
		filepath.Clean(cfg.Data.Train): true,
		filepath.Clean(cfg.Data.Test):  true,
	}
	dirs := map[string]bool{}
	for target := range targets {
		dirs[filepath.Dir(target)] = true
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return fmt.Errorf("watch %s: %w", dir, err)
		}
	}
	logger.Info("watching data files", zap.Int("dirs", len(dirs)))

	var pending <-chan time.Time
	for {
		select {
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !targets[filepath.Clean(ev.Name)] {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(500 * time.Millisecond)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			logger.Info("data changed, rerunning analysis")
			if err := runAnalysis(cfg, logger); err != nil {
				logger.Error("analysis failed", zap.Error(err))
			}
		}
	}
}
