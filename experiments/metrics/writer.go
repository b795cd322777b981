package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress/zstd"
	"gopkg.in/yaml.v3"
)

// RunConfig is one search configuration of a sweep.
type RunConfig struct {
	ID          int           `yaml:"id"`
	Exploration float64       `yaml:"exploration"`
	Simulations int           `yaml:"simulations"`
	Policy      string        `yaml:"policy"`
	Update      string        `yaml:"update"`
	Dedupe      bool          `yaml:"dedupe,omitempty"`
	Duration    time.Duration `yaml:"duration,omitempty"`
}

// RunRecord is the outcome of one search.
type RunRecord struct {
	Sweep        string  `parquet:"sweep,dict"`
	Run          string  `parquet:"run"`
	Config       int64   `parquet:"config"` // RunConfig.ID
	Repeat       int64   `parquet:"repeat"`
	Seed         uint64  `parquet:"seed"`
	Exploration  float64 `parquet:"exploration"`
	Policy       string  `parquet:"policy,dict"`
	Update       string  `parquet:"update,dict"`
	Dedupe       bool    `parquet:"dedupe"`
	Simulations  int64   `parquet:"simulations"`
	Episodes     int64   `parquet:"episodes"`
	Nodes        int64   `parquet:"nodes"`
	Improvements int64   `parquet:"improvements"`
	DurationMs   int64   `parquet:"duration_ms"`
	Feasible     bool    `parquet:"feasible"`
	BestValue    float64 `parquet:"best_value"`
	BestSalary   float64 `parquet:"best_salary"`
	Lineup       string  `parquet:"lineup"` // SLOT:Name pairs joined by "|"
}

type Writer struct {
	baseDir string
}

func NewWriter(root, name string) (*Writer, error) {
	// Create a subfolder named by current timestamp
	timestamp := time.Now().UTC().Format(time.RFC3339)
	baseDir := filepath.Join(root, name, timestamp)
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir: baseDir,
	}, nil
}

func (w *Writer) Dir() string { return w.baseDir }

// WriteSetup stores the sweep definition next to its results.
func (w *Writer) WriteSetup(setup any) error {
	out, err := yaml.Marshal(setup)
	if err != nil {
		return fmt.Errorf("failed to marshal setup: %w", err)
	}

	path := filepath.Join(w.baseDir, "setup.yaml")
	if err := os.WriteFile(path, out, 0644); err != nil {
		return fmt.Errorf("failed to write setup: %w", err)
	}
	return nil
}

func (w *Writer) WriteRunConfigs(configs []RunConfig) error {
	// Create a file
	path := filepath.Join(w.baseDir, "run_configs.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create run configs file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	// Write header
	header := []string{"id", "exploration", "simulations", "policy", "update", "dedupe", "duration"}
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write run configs header: %w", err)
	}

	// Write each row
	for _, config := range configs {
		row := []string{
			strconv.Itoa(config.ID),
			strconv.FormatFloat(config.Exploration, 'g', -1, 64),
			strconv.Itoa(config.Simulations),
			config.Policy,
			config.Update,
			strconv.FormatBool(config.Dedupe),
			config.Duration.String(),
		}
		err = writer.Write(row)
		if err != nil {
			return fmt.Errorf("failed to write run config row: %w", err)
		}
	}

	return nil
}

// WriteRunRecords stores records as runs.csv and runs.parquet.
func (w *Writer) WriteRunRecords(records []RunRecord) error {
	if err := w.writeRunRecordsCSV(records); err != nil {
		return err
	}
	return w.writeRunRecordsParquet(records)
}

func (w *Writer) writeRunRecordsCSV(records []RunRecord) error {
	// Create a file
	path := filepath.Join(w.baseDir, "runs.csv")
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create run records file: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	defer writer.Flush()

	// Write header
	header := []string{"sweep", "run", "config", "repeat", "seed", "exploration", "policy", "update", "dedupe",
		"simulations", "episodes", "nodes", "improvements", "duration_ms", "feasible", "best_value", "best_salary", "lineup"}
	err = writer.Write(header)
	if err != nil {
		return fmt.Errorf("failed to write run records header: %w", err)
	}

	// Write each row
	for _, record := range records {
		row := []string{
			record.Sweep,
			record.Run,
			strconv.FormatInt(record.Config, 10),
			strconv.FormatInt(record.Repeat, 10),
			strconv.FormatUint(record.Seed, 10),
			strconv.FormatFloat(record.Exploration, 'g', -1, 64),
			record.Policy,
			record.Update,
			strconv.FormatBool(record.Dedupe),
			strconv.FormatInt(record.Simulations, 10),
			strconv.FormatInt(record.Episodes, 10),
			strconv.FormatInt(record.Nodes, 10),
			strconv.FormatInt(record.Improvements, 10),
			strconv.FormatInt(record.DurationMs, 10),
			strconv.FormatBool(record.Feasible),
			strconv.FormatFloat(record.BestValue, 'f', 2, 64),
			strconv.FormatFloat(record.BestSalary, 'f', -1, 64),
			record.Lineup,
		}
		err = writer.Write(row)
		if err != nil {
			return fmt.Errorf("failed to write run record row: %w", err)
		}
	}

	return nil
}

func (w *Writer) writeRunRecordsParquet(records []RunRecord) error {
	path := filepath.Join(w.baseDir, "runs.parquet")

	// Write to a temp file and rename atomically.
	tmpPath := path + ".tmp"
	_ = os.Remove(tmpPath)

	if err := parquet.WriteFile(tmpPath, records,
		parquet.Compression(&zstd.Codec{Level: zstd.SpeedBetterCompression}),
		parquet.KeyValueMetadata("schema", "lineup_run_v1"),
	); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to write run records parquet: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("failed to rename run records parquet: %w", err)
	}
	return nil
}
