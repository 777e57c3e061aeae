package reports

import (
	"io"

	"github.com/pkg/errors"
	"github.com/xuri/excelize/v2"

	"asbaaq-attendance/models"
)

const sheetName = "Attendance"

var statsHeader = []interface{}{
	"ITS Number", "Name", "Phone Number", "Classes Attended", "Total Classes", "Attendance %", "Status",
}

// WriteStatsWorkbook renders a cumulative attendance report as an xlsx workbook.
func WriteStatsWorkbook(report *models.AttendanceStatsReport, w io.Writer) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return errors.Wrap(err, "failed to name sheet")
	}

	rows := [][]interface{}{
		{"Sabaq", report.SabaqName},
		{"Total Classes", report.TotalClasses},
		{},
		statsHeader,
	}
	for _, s := range report.StudentStats {
		rows = append(rows, []interface{}{
			s.ITSNumber, s.Name, s.PhoneNumber,
			s.ClassesAttended, s.TotalClasses, s.AttendancePercentage, string(s.Status),
		})
	}

	for i := range rows {
		if len(rows[i]) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return errors.Wrap(err, "failed to address row")
		}
		if err := f.SetSheetRow(sheetName, cell, &rows[i]); err != nil {
			return errors.Wrapf(err, "failed to write row %d", i+1)
		}
	}

	if err := f.Write(w); err != nil {
		return errors.Wrap(err, "failed to write workbook")
	}
	return nil
}
