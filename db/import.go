package db

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"asbaaq-attendance/core"
	"asbaaq-attendance/models"
)

// ImportResult summarizes a roster import
type ImportResult struct {
	Imported int      `json:"importedCount"`
	Skipped  []string `json:"skipped"` // one message per rejected row
}

// ImportStudents reads rows of (ITS number, name, phone) from an xlsx workbook (first
// sheet) or a csv file and enrolls them in the sabaq. The first row is a header.
// Malformed rows and already-enrolled ITS numbers are skipped and reported.
func (s *RosterStore) ImportStudents(ctx context.Context, sabaqID string, file io.Reader, format string) (*ImportResult, error) {
	if _, ok := s.GetSabaqByID(sabaqID); !ok {
		return nil, ErrSabaqNotFound
	}

	var (
		rows [][]string
		err  error
	)
	switch strings.ToLower(strings.TrimPrefix(format, ".")) {
	case "xlsx":
		rows, err = readExcelRows(file)
	case "csv":
		r := csv.NewReader(file)
		r.FieldsPerRecord = -1
		rows, err = r.ReadAll()
		if err != nil {
			err = errors.Wrap(err, "failed to read csv file")
		}
	default:
		return nil, core.NewValidationError(
			errors.Errorf("unsupported import format %q", format),
			core.FieldError{Field: "file", Error: "only .xlsx and .csv files can be imported"},
		)
	}
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Skipped: []string{}}
	for i, row := range rows {
		if i == 0 {
			continue // Skip header row
		}
		student := models.Student{
			ITSNumber:   core.CleanString(cell(row, 0)),
			Name:        core.CleanString(cell(row, 1)),
			PhoneNumber: core.CleanString(cell(row, 2)),
		}
		if student.ITSNumber == "" && student.Name == "" && student.PhoneNumber == "" {
			continue
		}
		if !core.IsValidITS(student.ITSNumber) || student.Name == "" || student.PhoneNumber == "" {
			result.Skipped = append(result.Skipped,
				fmt.Sprintf("row %d: need an 8-digit ITS number, a name and a phone number", i+1))
			continue
		}

		err := s.AddStudent(ctx, sabaqID, student)
		if err == ErrStudentExists {
			result.Skipped = append(result.Skipped,
				fmt.Sprintf("row %d: ITS number %s is already enrolled", i+1, student.ITSNumber))
			continue
		}
		if err != nil {
			return result, err
		}
		result.Imported++
	}

	s.log.Info("roster import finished",
		zap.String("sabaqId", sabaqID),
		zap.Int("imported", result.Imported),
		zap.Int("skipped", len(result.Skipped)))
	return result, nil
}

func readExcelRows(file io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(file)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open excel file")
	}
	defer f.Close()

	// Assuming data is in the first sheet
	sheetName := f.GetSheetName(0)
	if sheetName == "" {
		return nil, errors.New("excel file does not contain any sheets")
	}
	rows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get rows from sheet %s", sheetName)
	}
	return rows, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
