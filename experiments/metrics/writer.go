package metrics

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

type RunRecord struct {
	ID    int
	Agent int // AgentConfig.ID
	RunMetric
}

type MoveRecord struct {
	Run   int // RunRecord.ID
	Agent int // AgentConfig.ID
	MoveMetric
}

type Writer struct {
	baseDir  string
	compress bool
}

// NewWriter creates a timestamped directory under root. With compress set,
// every table is written as zstd-compressed CSV.
func NewWriter(root string, compress bool) (*Writer, error) {
	// Create a subfolder named by current timestamp
	timestamp := time.Now().UTC().Format("20060102T150405.000Z")
	baseDir := filepath.Join(root, timestamp)
	err := os.MkdirAll(baseDir, 0755)
	if err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	return &Writer{
		baseDir:  baseDir,
		compress: compress,
	}, nil
}

func (w *Writer) Dir() string {
	return w.baseDir
}

func (w *Writer) WriteAgentConfigs(configs []AgentConfig) error {
	header := []string{"id", "goroutines", "rollouts", "cutoff", "exploration", "seed"}
	rows := make([][]string, 0, len(configs))
	for _, config := range configs {
		rows = append(rows, []string{
			strconv.Itoa(config.ID),
			strconv.Itoa(config.Goroutines),
			strconv.Itoa(config.Rollouts),
			strconv.Itoa(config.Cutoff),
			strconv.FormatFloat(config.Exploration, 'f', -1, 64),
			strconv.FormatUint(config.Seed, 10),
		})
	}
	return w.writeTable("agent_configs", header, rows)
}

func (w *Writer) WriteRunRecords(records []RunRecord) error {
	header := []string{"id", "agent", "scenario", "start_time", "end_time", "duration", "turns", "scores"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		scores := make([]string, len(record.Scores))
		for i, s := range record.Scores {
			scores[i] = strconv.Itoa(s)
		}
		rows = append(rows, []string{
			strconv.Itoa(record.ID),
			strconv.Itoa(record.Agent),
			record.Scenario,
			record.StartTime.Format(time.RFC3339),
			record.EndTime.Format(time.RFC3339),
			record.Duration.String(),
			strconv.Itoa(record.Turns),
			strings.Join(scores, " "),
		})
	}
	return w.writeTable("run_records", header, rows)
}

func (w *Writer) WriteMoveRecords(records []MoveRecord) error {
	header := []string{"run", "agent_config", "step", "player", "goroutines", "duration", "episodes", "full_playouts", "nodes", "is_tree_reset"}
	rows := make([][]string, 0, len(records))
	for _, record := range records {
		rows = append(rows, []string{
			strconv.Itoa(record.Run),
			strconv.Itoa(record.Agent),
			strconv.Itoa(record.Step),
			strconv.Itoa(record.Player),
			strconv.Itoa(record.Goroutines),
			record.Duration.String(),
			strconv.Itoa(record.Episodes),
			strconv.Itoa(record.FullPlayouts),
			strconv.Itoa(record.Nodes),
			strconv.FormatBool(record.IsTreeReset),
		})
	}
	return w.writeTable("move_records", header, rows)
}

func (w *Writer) writeTable(name string, header []string, rows [][]string) error {
	f, err := w.create(name)
	if err != nil {
		return fmt.Errorf("failed to create %s file: %w", name, err)
	}

	writer := csv.NewWriter(f)
	err = writer.Write(header)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s header: %w", name, err)
	}
	err = writer.WriteAll(rows)
	if err != nil {
		f.Close()
		return fmt.Errorf("failed to write %s rows: %w", name, err)
	}

	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s file: %w", name, err)
	}
	return nil
}

// Path returns where a table is stored.
func (w *Writer) Path(name string) string {
	path := filepath.Join(w.baseDir, name+".csv")
	if w.compress {
		path += ".zst"
	}
	return path
}

func (w *Writer) create(name string) (io.WriteCloser, error) {
	f, err := os.Create(w.Path(name))
	if err != nil {
		return nil, err
	}
	if !w.compress {
		return f, nil
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		f.Close()
		return nil, err
	}
	return &compressedFile{Encoder: enc, f: f}, nil
}

type compressedFile struct {
	*zstd.Encoder
	f *os.File
}

func (c *compressedFile) Close() error {
	if err := c.Encoder.Close(); err != nil {
		c.f.Close()
		return err
	}
	return c.f.Close()
}
