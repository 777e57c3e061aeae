package db

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"asbaaq-attendance/models"
)

// failingKV loads like MemoryKV but refuses every write.
type failingKV struct {
	*MemoryKV
}

func (f failingKV) Save(context.Context, string, []byte) error {
	return errors.New("disk full")
}

func newRoster(t *testing.T, kv KVStore) *RosterStore {
	t.Helper()
	s := NewRosterStore(kv, zap.NewNop())
	require.NoError(t, s.Load(context.Background(), DefaultAsbaaq()))
	return s
}

func itsNumbers(sabaq models.Sabaq) []string {
	ids := make([]string, 0, len(sabaq.EnrolledStudents))
	for _, st := range sabaq.EnrolledStudents {
		ids = append(ids, st.ITSNumber)
	}
	return ids
}

func TestRosterStore_Lookups(t *testing.T) {
	s := newRoster(t, NewMemoryKV())

	sabaq, ok := s.GetSabaqByID("sabaq-1")
	require.True(t, ok)
	assert.Equal(t, "Islamic History", sabaq.Name)
	assert.Len(t, sabaq.EnrolledStudents, 5)

	byName, ok := s.GetSabaqByName("Arabic Language")
	require.True(t, ok)
	assert.Equal(t, "sabaq-3", byName.ID)

	_, ok = s.GetSabaqByID("sabaq-99")
	assert.False(t, ok)
	_, ok = s.GetSabaqByName("islamic history")
	assert.False(t, ok, "name lookup is exact")

	assert.Len(t, s.ListSabaqs(), 4)

	st, ok := GetStudentByIdentifier(sabaq, "23456789")
	require.True(t, ok)
	assert.Equal(t, "Fatima Khan", st.Name)
	assert.Equal(t, "Fatima Khan", StudentName(sabaq, "23456789"))
	assert.Equal(t, "+2345678901", StudentPhone(sabaq, "23456789"))
	assert.Equal(t, "Unknown Student", StudentName(sabaq, "00000000"))
	assert.Equal(t, "", StudentPhone(sabaq, "00000000"))
}

func TestRosterStore_ReturnsCopies(t *testing.T) {
	s := newRoster(t, NewMemoryKV())

	sabaq, _ := s.GetSabaqByID("sabaq-1")
	sabaq.EnrolledStudents[0].Name = "Changed"
	sabaq.EnrolledStudents = sabaq.EnrolledStudents[:1]

	again, _ := s.GetSabaqByID("sabaq-1")
	assert.Equal(t, "Ahmed Ali", again.EnrolledStudents[0].Name)
	assert.Len(t, again.EnrolledStudents, 5)
}

func TestRosterStore_AddStudent(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := newRoster(t, kv)

	newcomer := models.Student{ITSNumber: "11112222", Name: "Sakina Bohra", PhoneNumber: "+1112223333"}
	require.NoError(t, s.AddStudent(ctx, "sabaq-1", newcomer))

	sabaq, _ := s.GetSabaqByID("sabaq-1")
	require.Len(t, sabaq.EnrolledStudents, 6)
	assert.Equal(t, newcomer, sabaq.EnrolledStudents[5])

	// persisted, and visible to a fresh store over the same KV
	reloaded := newRoster(t, kv)
	sabaq, _ = reloaded.GetSabaqByID("sabaq-1")
	assert.Len(t, sabaq.EnrolledStudents, 6)

	// same ITS number in another sabaq is fine
	require.NoError(t, s.AddStudent(ctx, "sabaq-2", newcomer))
}

func TestRosterStore_AddDuplicateIsRejected(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := newRoster(t, kv)
	before, _ := s.GetSabaqByID("sabaq-1")

	err := s.AddStudent(ctx, "sabaq-1", models.Student{ITSNumber: "12345678", Name: "Someone Else", PhoneNumber: "+1"})
	assert.Equal(t, ErrStudentExists, err)

	after, _ := s.GetSabaqByID("sabaq-1")
	assert.Equal(t, before, after)
	_, persisted, _ := kv.Load(ctx, rosterKey)
	assert.False(t, persisted, "rejected add must not write")
}

func TestRosterStore_UnknownSabaq(t *testing.T) {
	ctx := context.Background()
	s := newRoster(t, NewMemoryKV())

	err := s.AddStudent(ctx, "nope", models.Student{ITSNumber: "11112222", Name: "X", PhoneNumber: "1"})
	assert.Equal(t, ErrSabaqNotFound, err)

	removed, err := s.RemoveStudent(ctx, "nope", "12345678")
	assert.Equal(t, ErrSabaqNotFound, err)
	assert.False(t, removed)
}

func TestRosterStore_RemoveStudent(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := newRoster(t, kv)

	removed, err := s.RemoveStudent(ctx, "sabaq-1", "34567890")
	require.NoError(t, err)
	assert.True(t, removed)

	sabaq, _ := s.GetSabaqByID("sabaq-1")
	assert.Equal(t, []string{"12345678", "23456789", "45678901", "56789012"}, itsNumbers(sabaq))

	var persisted []models.Sabaq
	data, ok, err := kv.Load(ctx, rosterKey)
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, json.Unmarshal(data, &persisted))
	assert.Equal(t, itsNumbers(sabaq), itsNumbers(persisted[0]))
}

func TestRosterStore_RemoveNotEnrolledIsNoop(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	s := newRoster(t, kv)
	before := s.ListSabaqs()

	removed, err := s.RemoveStudent(ctx, "sabaq-1", "99999999")
	require.NoError(t, err)
	assert.False(t, removed)
	assert.Equal(t, before, s.ListSabaqs())

	_, persisted, _ := kv.Load(ctx, rosterKey)
	assert.False(t, persisted)
}

func TestRosterStore_FailedWriteKeepsPriorState(t *testing.T) {
	ctx := context.Background()
	s := newRoster(t, failingKV{NewMemoryKV()})
	before := s.ListSabaqs()

	err := s.AddStudent(ctx, "sabaq-1", models.Student{ITSNumber: "11112222", Name: "X", PhoneNumber: "1"})
	assert.Error(t, err)
	_, err = s.RemoveStudent(ctx, "sabaq-1", "12345678")
	assert.Error(t, err)

	assert.Equal(t, before, s.ListSabaqs())
}

func TestRosterStore_LoadPrefersPersisted(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	custom := []models.Sabaq{{ID: "x", Name: "Fiqh", EnrolledStudents: []models.Student{}}}
	data, err := json.Marshal(custom)
	require.NoError(t, err)
	require.NoError(t, kv.Save(ctx, rosterKey, data))

	s := newRoster(t, kv)
	assert.Equal(t, custom, s.ListSabaqs())
}

func TestRosterStore_LoadRejectsCorruptBlob(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Save(ctx, rosterKey, []byte("{not json")))

	s := NewRosterStore(kv, zap.NewNop())
	assert.Error(t, s.Load(ctx, DefaultAsbaaq()))
}
