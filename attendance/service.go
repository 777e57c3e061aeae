package attendance

import (
	"context"
	"fmt"
	"sort"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"asbaaq-attendance/core"
	"asbaaq-attendance/db"
	"asbaaq-attendance/models"
)

const unknownSabaqName = "Unknown Sabaq"

var (
	ErrNotEnrolled    = errors.New("student is not enrolled in this sabaq")
	ErrAlreadyPresent = errors.New("student is already marked present")
)

// RecordStore is the read/write side of the attendance record storage.
type RecordStore interface {
	RecordReader
	GetRecord(ctx context.Context, sabaqID, date string) (*models.AttendanceRecord, error)
	GetAllRecords(ctx context.Context) ([]models.AttendanceRecord, error)
	SaveRecord(ctx context.Context, record models.AttendanceRecord) error
	UpdateRecord(ctx context.Context, sabaqID, date string, fn func(*models.AttendanceRecord) error) error
}

// Service implements taking and viewing attendance for one sabaq and date.
type Service struct {
	roster  RosterReader
	records RecordStore
	log     *zap.Logger
}

func NewService(roster RosterReader, records RecordStore, logger *zap.Logger) *Service {
	return &Service{roster: roster, records: records, log: logger}
}

// MarkPresent adds one student to the day's record, creating the record if needed.
func (svc *Service) MarkPresent(ctx context.Context, sabaqID, date, itsNumber string) (models.Student, error) {
	itsNumber = core.CleanString(itsNumber)
	if err := core.ValidateDate(date); err != nil {
		return models.Student{}, err
	}
	if err := core.ValidateITS(itsNumber); err != nil {
		return models.Student{}, err
	}

	sabaq, ok := svc.roster.GetSabaqByID(sabaqID)
	if !ok {
		return models.Student{}, db.ErrSabaqNotFound
	}
	student, ok := db.GetStudentByIdentifier(sabaq, itsNumber)
	if !ok {
		return models.Student{}, ErrNotEnrolled
	}

	err := svc.records.UpdateRecord(ctx, sabaqID, date, func(rec *models.AttendanceRecord) error {
		if rec.IsPresent(itsNumber) {
			return ErrAlreadyPresent
		}
		rec.PresentStudents = append(rec.PresentStudents, itsNumber)
		return nil
	})
	if err == ErrAlreadyPresent {
		return student, err
	}
	if err != nil {
		return models.Student{}, err
	}
	svc.log.Info("student marked present",
		zap.String("sabaqId", sabaqID), zap.String("date", date),
		zap.String("itsNumber", itsNumber), zap.String("name", student.Name))
	return student, nil
}

// SaveAttendance replaces the whole day's record with present. Every ITS number must
// be well-formed and enrolled; repeats are dropped, first occurrence wins.
func (svc *Service) SaveAttendance(ctx context.Context, sabaqID, date string, present []string) (*models.AttendanceRecord, error) {
	if err := core.ValidateDate(date); err != nil {
		return nil, err
	}
	sabaq, ok := svc.roster.GetSabaqByID(sabaqID)
	if !ok {
		return nil, db.ErrSabaqNotFound
	}

	var flds []core.FieldError
	seen := make(map[string]bool, len(present))
	cleaned := make([]string, 0, len(present))
	for i, its := range present {
		its = core.CleanString(its)
		if !core.IsValidITS(its) {
			flds = append(flds, core.FieldError{
				Field: fmt.Sprintf("presentStudents[%d]", i),
				Error: "must be exactly 8 digits",
			})
			continue
		}
		if seen[its] {
			continue
		}
		seen[its] = true
		cleaned = append(cleaned, its)
	}
	if len(flds) > 0 {
		return nil, core.NewValidationError(errors.New("invalid ITS numbers"), flds...)
	}
	for _, its := range cleaned {
		if _, ok := db.GetStudentByIdentifier(sabaq, its); !ok {
			return nil, errors.Wrapf(ErrNotEnrolled, "ITS number %s", its)
		}
	}

	record := models.AttendanceRecord{SabaqID: sabaqID, Date: date, PresentStudents: cleaned}
	if err := svc.records.SaveRecord(ctx, record); err != nil {
		return nil, err
	}
	svc.log.Info("attendance saved",
		zap.String("sabaqId", sabaqID), zap.String("date", date), zap.Int("present", len(cleaned)))
	return &record, nil
}

// DaySummary splits the roster into present and absent students for date. It
// returns nil, nil when the sabaq is unknown or no attendance was taken that day.
func (svc *Service) DaySummary(ctx context.Context, sabaqID, date string) (*models.DaySummary, error) {
	sabaq, ok := svc.roster.GetSabaqByID(sabaqID)
	if !ok {
		return nil, nil
	}
	rec, err := svc.records.GetRecord(ctx, sabaqID, date)
	if err != nil || rec == nil {
		return nil, err
	}

	summary := &models.DaySummary{
		SabaqID:   sabaq.ID,
		SabaqName: sabaq.Name,
		Date:      date,
		Present:   []models.Student{},
		Absent:    []models.Student{},
		Unknown:   []models.Student{},
	}
	// present keeps the order students were marked in
	for _, its := range rec.PresentStudents {
		if st, ok := db.GetStudentByIdentifier(sabaq, its); ok {
			summary.Present = append(summary.Present, st)
		} else {
			summary.Unknown = append(summary.Unknown, models.Student{
				ITSNumber:   its,
				Name:        db.StudentName(sabaq, its),
				PhoneNumber: db.StudentPhone(sabaq, its),
			})
		}
	}
	for _, st := range sabaq.EnrolledStudents {
		if !rec.IsPresent(st.ITSNumber) {
			summary.Absent = append(summary.Absent, st)
		}
	}
	return summary, nil
}

// Sessions lists the dates attendance was taken for the sabaq, in storage order.
func (svc *Service) Sessions(ctx context.Context, sabaqID string) ([]string, error) {
	records, err := svc.records.GetRecordsForSabaq(ctx, sabaqID)
	if err != nil {
		return nil, err
	}
	dates := make([]string, 0, len(records))
	for _, r := range records {
		dates = append(dates, r.Date)
	}
	return dates, nil
}

// Overview lists every recorded session newest first, each labelled with its sabaq's
// name, and the same sessions grouped by sabaq in order of their latest session.
// Records of a sabaq that is no longer on the roster are kept under "Unknown Sabaq".
func (svc *Service) Overview(ctx context.Context) (*models.AttendanceOverview, error) {
	records, err := svc.records.GetAllRecords(ctx)
	if err != nil {
		return nil, err
	}

	sessions := make([]models.SessionRecord, 0, len(records))
	for _, r := range records {
		name := unknownSabaqName
		if sabaq, ok := svc.roster.GetSabaqByID(r.SabaqID); ok {
			name = sabaq.Name
		}
		sessions = append(sessions, models.SessionRecord{
			SabaqID:         r.SabaqID,
			SabaqName:       name,
			Date:            r.Date,
			PresentStudents: r.PresentStudents,
		})
	}
	// dates are YYYY-MM-DD, so string order is calendar order
	sort.SliceStable(sessions, func(i, j int) bool {
		return sessions[i].Date > sessions[j].Date
	})

	groups := []models.SabaqSessions{}
	index := make(map[string]int)
	for _, s := range sessions {
		i, ok := index[s.SabaqID]
		if !ok {
			i = len(groups)
			index[s.SabaqID] = i
			groups = append(groups, models.SabaqSessions{ID: s.SabaqID, Name: s.SabaqName, Records: []models.SessionRecord{}})
		}
		groups[i].Records = append(groups[i].Records, s)
	}
	return &models.AttendanceOverview{Records: sessions, Groups: groups}, nil
}
