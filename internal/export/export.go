// Package export renders records as comma-separated text for download.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/starford/rollbook/internal/models"
)

// ContentType is the media type of ToCSV output.
const ContentType = "text/csv; charset=utf-8"

// ToCSV writes the canonical header followed by one row per record.
func ToCSV(records []models.Record) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := models.CanonicalHeader
	if err := w.Write(header[:]); err != nil {
		return "", fmt.Errorf("export: write header: %w", err)
	}
	for i, r := range records {
		row := []string{r.CharacterName, r.DateString(), strconv.Itoa(r.RollValue), r.Notes}
		if err := w.Write(row); err != nil {
			return "", fmt.Errorf("export: write row %d: %w", i+1, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("export: flush: %w", err)
	}
	return buf.String(), nil
}

// Filename names a download produced at now.
func Filename(now time.Time) string {
	return "records-" + now.Format("20060102") + ".csv"
}
