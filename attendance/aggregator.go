package attendance

import (
	"context"
	"sort"

	"asbaaq-attendance/models"
)

// RosterReader resolves a sabaq and its current roster.
type RosterReader interface {
	GetSabaqByID(id string) (models.Sabaq, bool)
}

// RecordReader lists the attendance records taken for a sabaq.
type RecordReader interface {
	GetRecordsForSabaq(ctx context.Context, sabaqID string) ([]models.AttendanceRecord, error)
}

// Aggregator computes cumulative attendance statistics.
type Aggregator struct {
	roster  RosterReader
	records RecordReader
}

func NewAggregator(roster RosterReader, records RecordReader) *Aggregator {
	return &Aggregator{roster: roster, records: records}
}

// CalculateAttendanceStats summarizes every record taken for the sabaq, one stat per
// currently enrolled student. It returns nil, nil when the sabaq is unknown or has no
// records yet. Present ITS numbers that are no longer enrolled are ignored.
//
// Stats are ordered by percentage, highest first; equal percentages keep roster order.
func (a *Aggregator) CalculateAttendanceStats(ctx context.Context, sabaqID string) (*models.AttendanceStatsReport, error) {
	sabaq, ok := a.roster.GetSabaqByID(sabaqID)
	if !ok {
		return nil, nil
	}

	records, err := a.records.GetRecordsForSabaq(ctx, sabaqID)
	if err != nil {
		return nil, err
	}
	totalClasses := len(records)
	if totalClasses == 0 {
		return nil, nil
	}

	stats := make([]models.StudentAttendanceStat, 0, len(sabaq.EnrolledStudents))
	for _, student := range sabaq.EnrolledStudents {
		attended := 0
		for _, r := range records {
			if r.IsPresent(student.ITSNumber) {
				attended++
			}
		}
		pct := Percentage(attended, totalClasses)
		stats = append(stats, models.StudentAttendanceStat{
			ITSNumber:            student.ITSNumber,
			Name:                 student.Name,
			PhoneNumber:          student.PhoneNumber,
			ClassesAttended:      attended,
			TotalClasses:         totalClasses,
			AttendancePercentage: pct,
			Status:               models.StatusFor(pct),
		})
	}

	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].AttendancePercentage > stats[j].AttendancePercentage
	})

	return &models.AttendanceStatsReport{
		SabaqID:      sabaq.ID,
		SabaqName:    sabaq.Name,
		TotalClasses: totalClasses,
		StudentStats: stats,
	}, nil
}

// Percentage is attended/total as a whole percent, rounding halves up
// (12.5 -> 13). It is 0 when total is not positive.
func Percentage(attended, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*attended + total) / (2 * total)
}
