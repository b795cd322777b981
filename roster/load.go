package roster

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/klauspost/compress/zstd"
	"github.com/parquet-go/parquet-go"
)

var ErrMissingColumn = errors.New("missing column")

// Accepted header names per column, upper-cased.
var columnAliases = map[string][]string{
	"name":      {"PLAYER_NAME", "NAME", "PLAYER"},
	"salary":    {"SALARY"},
	"score":     {"FPTS", "PROJECTION", "SCORE"},
	"positions": {"POSITIONS", "POSITION", "POS"},
}

// PlayerRow is the Parquet layout of a catalog file.
type PlayerRow struct {
	Name      string  `parquet:"PLAYER_NAME"`
	Salary    float64 `parquet:"SALARY"`
	Score     float64 `parquet:"FPTS"`
	Positions string  `parquet:"POSITIONS"`
}

func (r PlayerRow) player() Player {
	return Player{
		Name:      strings.TrimSpace(r.Name),
		Salary:    r.Salary,
		Score:     r.Score,
		Positions: ParsePositions(r.Positions),
	}
}

// LoadCatalog reads a player file and encodes it with rules. Supported formats are
// .csv, .csv.zst and .parquet.
func LoadCatalog(path string, rules Rules) (*Catalog, error) {
	players, err := ReadPlayers(path)
	if err != nil {
		return nil, err
	}
	return NewCatalog(players, rules)
}

// ReadPlayers reads the players of a catalog file without encoding eligibility.
func ReadPlayers(path string) ([]Player, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if ext == ".zst" {
		ext = strings.ToLower(filepath.Ext(strings.TrimSuffix(path, filepath.Ext(path)))) + ext
	}

	switch ext {
	case ".parquet":
		rows, err := parquet.ReadFile[PlayerRow](path)
		if err != nil {
			return nil, fmt.Errorf("failed to read parquet catalog %s: %w", path, err)
		}
		players := make([]Player, len(rows))
		for i, row := range rows {
			players[i] = row.player()
		}
		return players, nil

	case ".csv", ".csv.zst":
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("failed to open catalog: %w", err)
		}
		defer f.Close()

		var r io.Reader = f
		if ext == ".csv.zst" {
			dec, err := zstd.NewReader(f)
			if err != nil {
				return nil, fmt.Errorf("failed to create zstd reader for %s: %w", path, err)
			}
			defer dec.Close()
			r = dec
		}

		players, err := ReadCSV(r)
		if err != nil {
			return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
		}
		return players, nil

	default:
		return nil, fmt.Errorf("unsupported catalog format %q", ext)
	}
}

// ReadCSV parses a headed player table.
func ReadCSV(r io.Reader) ([]Player, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	columns, err := locateColumns(header)
	if err != nil {
		return nil, err
	}

	var players []Player
	for line := 2; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}

		salary, err := parseNumber(record[columns["salary"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: salary: %w", line, err)
		}
		score, err := parseNumber(record[columns["score"]])
		if err != nil {
			return nil, fmt.Errorf("line %d: score: %w", line, err)
		}

		players = append(players, Player{
			Name:      strings.TrimSpace(record[columns["name"]]),
			Salary:    salary,
			Score:     score,
			Positions: ParsePositions(record[columns["positions"]]),
		})
	}
	return players, nil
}

func locateColumns(header []string) (map[string]int, error) {
	columns := make(map[string]int, len(columnAliases))
	for column, aliases := range columnAliases {
		for i, h := range header {
			h = strings.ToUpper(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
			for _, alias := range aliases {
				if h == alias {
					columns[column] = i
				}
			}
			if _, ok := columns[column]; ok {
				break
			}
		}
		if _, ok := columns[column]; !ok {
			return nil, fmt.Errorf("%w: %s (one of %s)", ErrMissingColumn, column, strings.Join(aliases, ", "))
		}
	}
	return columns, nil
}

func parseNumber(raw string) (float64, error) {
	raw = strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(raw))
	if raw == "" {
		return 0, nil
	}
	return strconv.ParseFloat(raw, 64)
}
