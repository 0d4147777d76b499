package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/dustin/go-humanize/english"
	"gonum.org/v1/gonum/mat"
)

// readObservations parses a CSV file whose header names the variables and
// whose rows hold one 0/1 observation each.
func readObservations(r io.Reader) ([][]uint8, []string, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read observations: %w", err)
	}
	if len(records) < 2 {
		return nil, nil, fmt.Errorf("observations need a header and at least one row")
	}

	labels := records[0]
	data := make([][]uint8, len(records)-1)
	for i, rec := range records[1:] {
		row := make([]uint8, len(rec))
		for j, cell := range rec {
			switch strings.TrimSpace(cell) {
			case "0":
			case "1":
				row[j] = 1
			default:
				return nil, nil, fmt.Errorf("line %d, column %q: %q is not 0 or 1", i+2, labels[j], cell)
			}
		}
		data[i] = row
	}
	return data, labels, nil
}

// filterPrevalence keeps the columns whose fraction of ones lies within
// [lo, hi]. Constant columns always fall outside a band strictly inside
// (0, 1), which keeps the correlations defined.
func filterPrevalence(data [][]uint8, labels []string, lo, hi float64) ([][]uint8, []string) {
	if len(data) == 0 {
		return data, labels
	}
	var keep []int
	for j := range labels {
		ones := 0
		for _, row := range data {
			ones += int(row[j])
		}
		if p := float64(ones) / float64(len(data)); p >= lo && p <= hi {
			keep = append(keep, j)
		}
	}
	if dropped := len(labels) - len(keep); dropped > 0 {
		log.Infof("dropped %s outside prevalence band [%g, %g]", english.Plural(dropped, "variable", "variables"), lo, hi)
	}

	outLabels := make([]string, len(keep))
	for k, j := range keep {
		outLabels[k] = labels[j]
	}
	out := make([][]uint8, len(data))
	for i, row := range data {
		out[i] = make([]uint8, len(keep))
		for k, j := range keep {
			out[i][k] = row[j]
		}
	}
	return out, outLabels
}

// loadObservations reads and filters the observation CSV at path.
func loadObservations(path string) ([][]uint8, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	data, labels, err := readObservations(f)
	if err != nil {
		return nil, nil, err
	}
	data, labels = filterPrevalence(data, labels, cfg.MinPrevalence, cfg.MaxPrevalence)
	log.Infof("loaded %s of %s", english.Plural(len(data), "observation", "observations"),
		english.Plural(len(labels), "variable", "variables"))
	return data, labels, nil
}

// jsonFloat encodes NaN as null, which plain JSON numbers cannot carry.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	if math.IsNaN(float64(f)) || math.IsInf(float64(f), 0) {
		return []byte("null"), nil
	}
	return json.Marshal(float64(f))
}

func (f *jsonFloat) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*f = jsonFloat(math.NaN())
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*f = jsonFloat(v)
	return nil
}

// stackFile is the JSON form of a bootstrap correlation stack.
type stackFile struct {
	Labels []string      `json:"labels"`
	Rows   [][]jsonFloat `json:"rows"`
}

func newStackFile(stack *mat.Dense, labels []string) stackFile {
	r, c := stack.Dims()
	rows := make([][]jsonFloat, r)
	for i := range rows {
		rows[i] = make([]jsonFloat, c)
		for j := range rows[i] {
			rows[i][j] = jsonFloat(stack.At(i, j))
		}
	}
	return stackFile{Labels: labels, Rows: rows}
}

// Dense returns the stack as a matrix.
func (s stackFile) Dense() (*mat.Dense, error) {
	if len(s.Rows) == 0 || len(s.Rows[0]) == 0 {
		return nil, fmt.Errorf("stack file holds no correlations")
	}
	c := len(s.Rows[0])
	flat := make([]float64, 0, len(s.Rows)*c)
	for i, row := range s.Rows {
		if len(row) != c {
			return nil, fmt.Errorf("stack row %d has %d values, want %d", i, len(row), c)
		}
		for _, v := range row {
			flat = append(flat, float64(v))
		}
	}
	return mat.NewDense(len(s.Rows), c, flat), nil
}

func readStack(r io.Reader) (*mat.Dense, []string, error) {
	var sf stackFile
	if err := json.NewDecoder(r).Decode(&sf); err != nil {
		return nil, nil, fmt.Errorf("failed to parse stack: %w", err)
	}
	m, err := sf.Dense()
	if err != nil {
		return nil, nil, err
	}
	return m, sf.Labels, nil
}

func loadStack(path string) (*mat.Dense, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	return readStack(f)
}

// writeJSON writes v to --output, or stdout when unset.
func writeJSON(v any) error {
	w := io.Writer(os.Stdout)
	if outputPath != "" {
		f, err := os.Create(outputPath)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
