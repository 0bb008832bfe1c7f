package trace

import (
	"bufio"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dsnet/compress/bzip2"
	"github.com/lintang-b-s/navigatorx-tunnel/pkg/datastructure"
)

type Format int

const (
	FormatCSV Format = iota
	FormatJSONL
)

var csvHeader = []string{"time", "lat", "lon", "speed", "course", "horizontal_accuracy"}

// Record is one line of a recorded drive. Negative speed, course or accuracy mean unknown.
type Record struct {
	Time               time.Time `json:"time"`
	Lat                float64   `json:"lat"`
	Lon                float64   `json:"lon"`
	Speed              float64   `json:"speed"`
	Course             float64   `json:"course"`
	HorizontalAccuracy float64   `json:"horizontal_accuracy"`
}

func (r Record) Fix() *datastructure.LocationFix {
	return datastructure.NewLocationFix(r.Lat, r.Lon, r.Time, r.Speed, r.Course, r.HorizontalAccuracy)
}

func RecordFromFix(fix *datastructure.LocationFix) Record {
	return Record{
		Time:               fix.Time(),
		Lat:                fix.Lat(),
		Lon:                fix.Lon(),
		Speed:              fix.Speed(),
		Course:             fix.Course(),
		HorizontalAccuracy: fix.HorizontalAccuracy(),
	}
}

// FormatFromPath picks the format from the file extension, a trailing .bz2 is ignored.
func FormatFromPath(path string) (Format, bool, error) {
	compressed := strings.HasSuffix(path, ".bz2")
	path = strings.TrimSuffix(path, ".bz2")
	switch {
	case strings.HasSuffix(path, ".csv"):
		return FormatCSV, compressed, nil
	case strings.HasSuffix(path, ".jsonl"), strings.HasSuffix(path, ".ndjson"):
		return FormatJSONL, compressed, nil
	default:
		return 0, false, fmt.Errorf("unknown trace format: %s", path)
	}
}

// ReadFile reads a .csv or .jsonl trace, optionally bzip2 compressed.
func ReadFile(path string) ([]Record, error) {
	format, compressed, err := FormatFromPath(path)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var r io.Reader = f
	if compressed {
		bz, err := bzip2.NewReader(f, nil)
		if err != nil {
			return nil, err
		}
		defer bz.Close()
		r = bz
	}
	return Read(r, format)
}

func Read(r io.Reader, format Format) ([]Record, error) {
	switch format {
	case FormatCSV:
		return readCSV(r)
	case FormatJSONL:
		return readJSONL(r)
	default:
		return nil, fmt.Errorf("unknown trace format %d", format)
	}
}

func readCSV(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = len(csvHeader)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return []Record{}, nil
	}
	if err != nil {
		return nil, err
	}
	if header[0] != csvHeader[0] {
		return nil, fmt.Errorf("trace csv: expected header %v, got %v", csvHeader, header)
	}

	records := make([]Record, 0)
	for line := 2; ; line++ {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		rec, err := parseCSVRow(row)
		if err != nil {
			return nil, fmt.Errorf("trace csv line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseCSVRow(row []string) (Record, error) {
	t, err := time.Parse(time.RFC3339Nano, row[0])
	if err != nil {
		return Record{}, err
	}
	vals := make([]float64, 5)
	for i := range vals {
		vals[i], err = strconv.ParseFloat(row[i+1], 64)
		if err != nil {
			return Record{}, fmt.Errorf("column %s: %w", csvHeader[i+1], err)
		}
	}
	return Record{
		Time:               t,
		Lat:                vals[0],
		Lon:                vals[1],
		Speed:              vals[2],
		Course:             vals[3],
		HorizontalAccuracy: vals[4],
	}, nil
}

func readJSONL(r io.Reader) ([]Record, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	records := make([]Record, 0)
	for line := 1; sc.Scan(); line++ {
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var rec Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("trace jsonl line %d: %w", line, err)
		}
		records = append(records, rec)
	}
	return records, sc.Err()
}

// WriteFile writes records in the format given by the path extension, bzip2 compressed for .bz2.
func WriteFile(path string, records []Record) error {
	format, compressed, err := FormatFromPath(path)
	if err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if !compressed {
		return Write(f, format, records)
	}

	bz, err := bzip2.NewWriter(f, &bzip2.WriterConfig{})
	if err != nil {
		return err
	}
	if err := Write(bz, format, records); err != nil {
		bz.Close()
		return err
	}
	return bz.Close()
}

func Write(w io.Writer, format Format, records []Record) error {
	bw := bufio.NewWriter(w)
	switch format {
	case FormatCSV:
		cw := csv.NewWriter(bw)
		if err := cw.Write(csvHeader); err != nil {
			return err
		}
		for _, rec := range records {
			row := []string{
				rec.Time.UTC().Format(time.RFC3339Nano),
				strconv.FormatFloat(rec.Lat, 'f', -1, 64),
				strconv.FormatFloat(rec.Lon, 'f', -1, 64),
				strconv.FormatFloat(rec.Speed, 'f', -1, 64),
				strconv.FormatFloat(rec.Course, 'f', -1, 64),
				strconv.FormatFloat(rec.HorizontalAccuracy, 'f', -1, 64),
			}
			if err := cw.Write(row); err != nil {
				return err
			}
		}
		cw.Flush()
		if err := cw.Error(); err != nil {
			return err
		}
	case FormatJSONL:
		enc := json.NewEncoder(bw)
		for _, rec := range records {
			if err := enc.Encode(rec); err != nil {
				return err
			}
		}
	default:
		return fmt.Errorf("unknown trace format %d", format)
	}
	return bw.Flush()
}
