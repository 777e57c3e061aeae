package db

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"asbaaq-attendance/models"
)

// AttendanceStore persists attendance records, at most one per (sabaq, date).
// Every call reads the collection from the KVStore; writes replace it whole.
type AttendanceStore struct {
	kv  KVStore
	log *zap.Logger
	mu  sync.Mutex // serializes read-modify-write in SaveRecord and UpdateRecord
}

func NewAttendanceStore(kv KVStore, logger *zap.Logger) *AttendanceStore {
	return &AttendanceStore{kv: kv, log: logger}
}

// SaveRecord upserts record by (SabaqID, Date). An existing record is replaced in
// place, keeping its position in the collection; a new one is appended.
func (s *AttendanceStore) SaveRecord(ctx context.Context, record models.AttendanceRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}
	return s.upsert(ctx, records, record)
}

// UpdateRecord applies fn to the (sabaqID, date) record, starting from an empty one
// when none exists, and saves the result. Loading, fn and saving run under one lock,
// so concurrent updates of the same day never overwrite each other. Nothing is
// written when fn returns an error.
func (s *AttendanceStore) UpdateRecord(ctx context.Context, sabaqID, date string, fn func(*models.AttendanceRecord) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	records, err := s.load(ctx)
	if err != nil {
		return err
	}

	record := models.AttendanceRecord{SabaqID: sabaqID, Date: date, PresentStudents: []string{}}
	if i := indexOf(records, sabaqID, date); i >= 0 {
		record = records[i]
		record.PresentStudents = append([]string{}, records[i].PresentStudents...)
	}
	if err := fn(&record); err != nil {
		return err
	}
	record.SabaqID, record.Date = sabaqID, date
	return s.upsert(ctx, records, record)
}

// upsert replaces or appends record and writes the whole collection. Callers hold mu.
func (s *AttendanceStore) upsert(ctx context.Context, records []models.AttendanceRecord, record models.AttendanceRecord) error {
	if record.PresentStudents == nil {
		record.PresentStudents = []string{}
	}

	i := indexOf(records, record.SabaqID, record.Date)
	replaced := i >= 0
	if replaced {
		records[i] = record
	} else {
		records = append(records, record)
	}

	if err := saveJSON(ctx, s.kv, attendanceKey, records); err != nil {
		s.log.Error("failed to persist attendance records", zap.Error(err))
		return err
	}
	s.log.Debug("attendance record saved",
		zap.String("sabaqId", record.SabaqID),
		zap.String("date", record.Date),
		zap.Int("present", len(record.PresentStudents)),
		zap.Bool("replaced", replaced))
	return nil
}

func indexOf(records []models.AttendanceRecord, sabaqID, date string) int {
	for i := range records {
		if records[i].SabaqID == sabaqID && records[i].Date == date {
			return i
		}
	}
	return -1
}

// GetRecord returns the record for sabaqID on date, or nil if none was taken.
func (s *AttendanceStore) GetRecord(ctx context.Context, sabaqID, date string) (*models.AttendanceRecord, error) {
	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	if i := indexOf(records, sabaqID, date); i >= 0 {
		return &records[i], nil
	}
	return nil, nil
}

// GetAllRecords returns every record in storage order.
func (s *AttendanceStore) GetAllRecords(ctx context.Context) ([]models.AttendanceRecord, error) {
	return s.load(ctx)
}

// GetRecordsForSabaq returns the records of one sabaq in storage order.
func (s *AttendanceStore) GetRecordsForSabaq(ctx context.Context, sabaqID string) ([]models.AttendanceRecord, error) {
	records, err := s.load(ctx)
	if err != nil {
		return nil, err
	}
	filtered := make([]models.AttendanceRecord, 0, len(records))
	for _, r := range records {
		if r.SabaqID == sabaqID {
			filtered = append(filtered, r)
		}
	}
	return filtered, nil
}

func (s *AttendanceStore) load(ctx context.Context) ([]models.AttendanceRecord, error) {
	records := []models.AttendanceRecord{}
	if _, err := loadJSON(ctx, s.kv, attendanceKey, &records); err != nil {
		s.log.Error("failed to load attendance records", zap.Error(err))
		return nil, err
	}
	return records, nil
}
