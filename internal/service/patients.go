package service

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/trial-eligibility-engine/internal/domain"
)

// LoadPatientRecords decodes a JSON document holding either a single
// patient record or an array of records.
func LoadPatientRecords(r io.Reader) ([]*domain.PatientRecord, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read patient records: %w", err)
	}

	var records []*domain.PatientRecord
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		err = json.Unmarshal(data, &records)
	} else {
		record := &domain.PatientRecord{}
		err = json.Unmarshal(data, record)
		records = []*domain.PatientRecord{record}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode patient records: %w", err)
	}

	for i, record := range records {
		if record == nil || record.PatientID == "" {
			return nil, domain.NewValidationError("patient_id", "patient record requires an ID", i)
		}
	}
	return records, nil
}

// LoadPatientPath loads records from a JSON file, or from every *.json file
// of a directory in name order.
func LoadPatientPath(path string) ([]*domain.PatientRecord, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	files := []string{path}
	if info.IsDir() {
		files, err = filepath.Glob(filepath.Join(path, "*.json"))
		if err != nil {
			return nil, fmt.Errorf("failed to list %s: %w", path, err)
		}
		sort.Strings(files)
	}

	var all []*domain.PatientRecord
	for _, file := range files {
		records, err := loadPatientFile(file)
		if err != nil {
			return nil, err
		}
		all = append(all, records...)
	}
	return all, nil
}

func loadPatientFile(path string) ([]*domain.PatientRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records, err := LoadPatientRecords(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return records, nil
}
