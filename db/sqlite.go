package db

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

var database *sql.DB

// InitDB initializes the SQLite database
func InitDB(path string) error {
	var err error
	database, err = sql.Open("sqlite3", path)
	if err != nil {
		return err
	}

	query := `
    CREATE TABLE IF NOT EXISTS runs (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT NOT NULL,
        model_name VARCHAR(50) NOT NULL,
        accuracy REAL,
        precision REAL,
        recall REAL,
        f1 REAL,
        kappa REAL,
        train_rows INTEGER,
        test_rows INTEGER,
        vocabulary INTEGER,
        created_at DATETIME NOT NULL,
        UNIQUE(run_id, model_name)
    );
    CREATE TABLE IF NOT EXISTS verdicts (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        run_id TEXT NOT NULL,
        model_name VARCHAR(50) NOT NULL,
        test_row INTEGER NOT NULL,
        narrative TEXT,
        human_label VARCHAR(20),
        predicted_label VARCHAR(20),
        confidence REAL,
        UNIQUE(run_id, model_name, test_row)
    );
    `

	_, err = database.Exec(query)
	return err
}

// CloseDB releases the database handle.
func CloseDB() error {
	if database == nil {
		return nil
	}
	err := database.Close()
	database = nil
	return err
}

// Run is one model's result row for a single analysis run. Precision,
// recall and F1 are macro averages over the label classes.
type Run struct {
	RunID      string    `json:"run_id"`
	ModelName  string    `json:"model_name"`
	Accuracy   float64   `json:"accuracy"`
	Precision  float64   `json:"precision"`
	Recall     float64   `json:"recall"`
	F1         float64   `json:"f1"`
	Kappa      float64   `json:"kappa"`
	TrainRows  int       `json:"train_rows"`
	TestRows   int       `json:"test_rows"`
	Vocabulary int       `json:"vocabulary"`
	CreatedAt  time.Time `json:"created_at"`
}

// SaveRun records one model's scores under a run id.
func SaveRun(run Run) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	if run.RunID == "" {
		return errors.New("run id required")
	}
	if run.ModelName == "" {
		return errors.New("model name required")
	}
	_, err := database.Exec(`
        INSERT OR REPLACE INTO runs (
            run_id, model_name, accuracy, precision, recall, f1, kappa,
            train_rows, test_rows, vocabulary, created_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
    `,
		run.RunID,
		run.ModelName,
		run.Accuracy,
		run.Precision,
		run.Recall,
		run.F1,
		run.Kappa,
		run.TrainRows,
		run.TestRows,
		run.Vocabulary,
		run.CreatedAt,
	)
	return err
}

// Verdict is one model's call on one held-out narrative.
type Verdict struct {
	Row            int     `json:"row"`
	Narrative      string  `json:"narrative"`
	HumanLabel     string  `json:"human_label"`
	PredictedLabel string  `json:"predicted_label"`
	Confidence     float64 `json:"confidence"`
}

// SaveVerdicts stores every per-narrative call a model made during a
// run so disagreements can be pulled up later for review.
func SaveVerdicts(runID, modelName string, verdicts []Verdict) error {
	if database == nil {
		return errors.New("database not initialized")
	}
	if runID == "" {
		return errors.New("run id required")
	}
	if modelName == "" {
		return errors.New("model name required")
	}
	if len(verdicts) == 0 {
		return nil
	}

	stmt, err := database.Prepare(`
        INSERT OR REPLACE INTO verdicts (
            run_id, model_name, test_row, narrative,
            human_label, predicted_label, confidence
        ) VALUES (?, ?, ?, ?, ?, ?, ?)
    `)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, v := range verdicts {
		if _, err := stmt.Exec(runID, modelName, v.Row, v.Narrative,
			v.HumanLabel, v.PredictedLabel, v.Confidence); err != nil {
			return err
		}
	}
	return nil
}

// LoadRuns returns the most recent run rows, newest first.
func LoadRuns(limit int) ([]Run, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	if limit <= 0 {
		limit = 20
	}
	rows, err := database.Query(`
        SELECT run_id, model_name, accuracy, precision, recall, f1, kappa,
               train_rows, test_rows, vocabulary, created_at
        FROM runs
        ORDER BY created_at DESC, id DESC
        LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	runs := make([]Run, 0)
	for rows.Next() {
		var run Run
		if err := rows.Scan(&run.RunID, &run.ModelName,
			&run.Accuracy, &run.Precision, &run.Recall, &run.F1, &run.Kappa,
			&run.TrainRows, &run.TestRows, &run.Vocabulary, &run.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LoadDisagreements returns the verdicts where a model and the human
// coder disagreed, in test row order.
func LoadDisagreements(runID, modelName string) ([]Verdict, error) {
	if database == nil {
		return nil, errors.New("database not initialized")
	}
	rows, err := database.Query(`
        SELECT test_row, narrative, human_label, predicted_label, confidence
        FROM verdicts
        WHERE run_id = ? AND model_name = ? AND human_label != predicted_label
        ORDER BY test_row`, runID, modelName)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	verdicts := make([]Verdict, 0)
	for rows.Next() {
		var v Verdict
		if err := rows.Scan(&v.Row, &v.Narrative, &v.HumanLabel,
			&v.PredictedLabel, &v.Confidence); err != nil {
			return nil, err
		}
		verdicts = append(verdicts, v)
	}
	return verdicts, rows.Err()
}
