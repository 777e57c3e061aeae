package db

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"asbaaq-attendance/models"
)

var (
	ErrSabaqNotFound = errors.New("sabaq not found")
	ErrStudentExists = errors.New("a student with this ITS number is already enrolled")
)

const unknownStudentName = "Unknown Student"

// RosterStore is the authoritative mapping of sabaq ID to sabaq and enrolled students.
// Reads are served from memory; mutations write the whole roster back to the KVStore.
type RosterStore struct {
	kv  KVStore
	log *zap.Logger

	mu     sync.RWMutex
	asbaaq []models.Sabaq
}

// NewRosterStore creates an empty store; call Load before use.
func NewRosterStore(kv KVStore, logger *zap.Logger) *RosterStore {
	return &RosterStore{kv: kv, log: logger}
}

// Load reads the persisted roster. When nothing is persisted yet, seed is used and
// stays in memory only until the first mutation.
func (s *RosterStore) Load(ctx context.Context, seed []models.Sabaq) error {
	var persisted []models.Sabaq
	found, err := loadJSON(ctx, s.kv, rosterKey, &persisted)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if found {
		s.asbaaq = persisted
		s.log.Info("loaded persisted roster", zap.Int("asbaaq", len(persisted)))
		return nil
	}
	s.asbaaq = cloneAll(seed)
	s.log.Info("no persisted roster found, using seed", zap.Int("asbaaq", len(seed)))
	return nil
}

// ListSabaqs returns every sabaq in roster order.
func (s *RosterStore) ListSabaqs() []models.Sabaq {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneAll(s.asbaaq)
}

// GetSabaqByID looks a sabaq up by its ID.
func (s *RosterStore) GetSabaqByID(id string) (models.Sabaq, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexByID(id); i >= 0 {
		return s.asbaaq[i].Clone(), true
	}
	return models.Sabaq{}, false
}

// GetSabaqByName looks a sabaq up by its exact name.
func (s *RosterStore) GetSabaqByName(name string) (models.Sabaq, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, sabaq := range s.asbaaq {
		if sabaq.Name == name {
			return sabaq.Clone(), true
		}
	}
	return models.Sabaq{}, false
}

// AddStudent appends student to the sabaq's roster. The ITS number must not already
// be enrolled in that sabaq; format validation is up to the caller.
func (s *RosterStore) AddStudent(ctx context.Context, sabaqID string, student models.Student) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexByID(sabaqID)
	if i < 0 {
		return ErrSabaqNotFound
	}
	if _, ok := GetStudentByIdentifier(s.asbaaq[i], student.ITSNumber); ok {
		return ErrStudentExists
	}

	next := cloneAll(s.asbaaq)
	next[i].EnrolledStudents = append(next[i].EnrolledStudents, student)
	if err := s.persist(ctx, next); err != nil {
		return err
	}
	s.log.Info("student added",
		zap.String("sabaqId", sabaqID), zap.String("itsNumber", student.ITSNumber))
	return nil
}

// RemoveStudent drops the student from the sabaq's roster. It reports false, and
// writes nothing, when the ITS number is not enrolled.
func (s *RosterStore) RemoveStudent(ctx context.Context, sabaqID, itsNumber string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.indexByID(sabaqID)
	if i < 0 {
		return false, ErrSabaqNotFound
	}

	remaining := make([]models.Student, 0, len(s.asbaaq[i].EnrolledStudents))
	for _, st := range s.asbaaq[i].EnrolledStudents {
		if st.ITSNumber != itsNumber {
			remaining = append(remaining, st)
		}
	}
	if len(remaining) == len(s.asbaaq[i].EnrolledStudents) {
		return false, nil
	}

	next := cloneAll(s.asbaaq)
	next[i].EnrolledStudents = remaining
	if err := s.persist(ctx, next); err != nil {
		return false, err
	}
	s.log.Info("student removed", zap.String("sabaqId", sabaqID), zap.String("itsNumber", itsNumber))
	return true, nil
}

// persist writes next and only then makes it the in-memory roster, so a failed
// write leaves memory and storage on the same prior state. Callers hold mu.
func (s *RosterStore) persist(ctx context.Context, next []models.Sabaq) error {
	if err := saveJSON(ctx, s.kv, rosterKey, next); err != nil {
		s.log.Error("failed to persist roster", zap.Error(err))
		return err
	}
	s.asbaaq = next
	return nil
}

func (s *RosterStore) indexByID(id string) int {
	for i := range s.asbaaq {
		if s.asbaaq[i].ID == id {
			return i
		}
	}
	return -1
}

func cloneAll(asbaaq []models.Sabaq) []models.Sabaq {
	out := make([]models.Sabaq, len(asbaaq))
	for i := range asbaaq {
		out[i] = asbaaq[i].Clone()
	}
	return out
}

// GetStudentByIdentifier finds an enrolled student by ITS number.
func GetStudentByIdentifier(sabaq models.Sabaq, itsNumber string) (models.Student, bool) {
	for _, st := range sabaq.EnrolledStudents {
		if st.ITSNumber == itsNumber {
			return st, true
		}
	}
	return models.Student{}, false
}

// StudentName returns the enrolled student's name, or "Unknown Student".
func StudentName(sabaq models.Sabaq, itsNumber string) string {
	if st, ok := GetStudentByIdentifier(sabaq, itsNumber); ok {
		return st.Name
	}
	return unknownStudentName
}

// StudentPhone returns the enrolled student's phone number, or "".
func StudentPhone(sabaq models.Sabaq, itsNumber string) string {
	if st, ok := GetStudentByIdentifier(sabaq, itsNumber); ok {
		return st.PhoneNumber
	}
	return ""
}
