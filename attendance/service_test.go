package attendance

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"asbaaq-attendance/core"
	"asbaaq-attendance/db"
	"asbaaq-attendance/models"
)

func newService(t *testing.T) (*Service, *db.RosterStore, *db.AttendanceStore) {
	t.Helper()
	roster, records := setup(t)
	return NewService(roster, records, zap.NewNop()), roster, records
}

func TestMarkPresent(t *testing.T) {
	ctx := context.Background()
	svc, _, records := newService(t)

	st, err := svc.MarkPresent(ctx, "sabaq-1", "2024-03-01", its2)
	require.NoError(t, err)
	assert.Equal(t, "Fatima Khan", st.Name)

	_, err = svc.MarkPresent(ctx, "sabaq-1", "2024-03-01", " "+its1+" ")
	require.NoError(t, err)

	rec, err := records.GetRecord(ctx, "sabaq-1", "2024-03-01")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, []string{its2, its1}, rec.PresentStudents)

	st, err = svc.MarkPresent(ctx, "sabaq-1", "2024-03-01", its2)
	assert.Equal(t, ErrAlreadyPresent, err)
	assert.Equal(t, "Fatima Khan", st.Name)

	all, err := records.GetAllRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestMarkPresent_Concurrent(t *testing.T) {
	ctx := context.Background()
	svc, _, records := newService(t)
	students := []string{its1, its2, its3, its4, its5}

	for round := 1; round <= 20; round++ {
		date := fmt.Sprintf("2024-01-%02d", round)
		errs := make([]error, len(students))
		var wg sync.WaitGroup
		for i, its := range students {
			wg.Add(1)
			go func(i int, its string) {
				defer wg.Done()
				_, errs[i] = svc.MarkPresent(ctx, "sabaq-1", date, its)
			}(i, its)
		}
		wg.Wait()

		for i, err := range errs {
			require.NoError(t, err, "round %d student %s", round, students[i])
		}
		rec, err := records.GetRecord(ctx, "sabaq-1", date)
		require.NoError(t, err)
		require.NotNil(t, rec)
		assert.ElementsMatch(t, students, rec.PresentStudents, "round %d", round)
	}

	all, err := records.GetAllRecords(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 20)
}

func TestMarkPresent_ConcurrentSameStudent(t *testing.T) {
	ctx := context.Background()
	svc, _, records := newService(t)

	const callers = 8
	errs := make(chan error, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.MarkPresent(ctx, "sabaq-1", "2024-03-01", its1)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch err {
		case nil:
			ok++
		case ErrAlreadyPresent:
			dup++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, callers-1, dup)

	rec, err := records.GetRecord(ctx, "sabaq-1", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, []string{its1}, rec.PresentStudents)
}

func TestMarkPresent_Rejections(t *testing.T) {
	ctx := context.Background()
	svc, _, records := newService(t)

	tests := []struct {
		name      string
		sabaqID   string
		date      string
		its       string
		wantErr   error
		wantField string
	}{
		{name: "bad its", sabaqID: "sabaq-1", date: "2024-03-01", its: "1234", wantField: "itsNumber"},
		{name: "bad date", sabaqID: "sabaq-1", date: "March 1", its: its1, wantField: "date"},
		{name: "unknown sabaq", sabaqID: "sabaq-9", date: "2024-03-01", its: its1, wantErr: db.ErrSabaqNotFound},
		{name: "not enrolled", sabaqID: "sabaq-1", date: "2024-03-01", its: "90123456", wantErr: ErrNotEnrolled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.MarkPresent(ctx, tt.sabaqID, tt.date, tt.its)
			if tt.wantField != "" {
				vErr, ok := core.AsValidationError(err)
				require.True(t, ok, "got %v", err)
				assert.Contains(t, vErr.FieldMap(), tt.wantField)
				return
			}
			assert.Equal(t, tt.wantErr, err)
		})
	}

	all, err := records.GetAllRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSaveAttendance(t *testing.T) {
	ctx := context.Background()
	svc, _, records := newService(t)

	rec, err := svc.SaveAttendance(ctx, "sabaq-1", "2024-03-01", []string{its3, its1, its3})
	require.NoError(t, err)
	assert.Equal(t, []string{its3, its1}, rec.PresentStudents)

	// a second save for the same day replaces the first
	_, err = svc.SaveAttendance(ctx, "sabaq-1", "2024-03-01", []string{its5})
	require.NoError(t, err)
	got, err := records.GetRecord(ctx, "sabaq-1", "2024-03-01")
	require.NoError(t, err)
	assert.Equal(t, []string{its5}, got.PresentStudents)

	// nobody present is a valid day
	rec, err = svc.SaveAttendance(ctx, "sabaq-1", "2024-03-08", nil)
	require.NoError(t, err)
	assert.Empty(t, rec.PresentStudents)

	dates, err := svc.Sessions(ctx, "sabaq-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"2024-03-01", "2024-03-08"}, dates)
}

func TestSaveAttendance_Rejections(t *testing.T) {
	ctx := context.Background()
	svc, _, records := newService(t)

	_, err := svc.SaveAttendance(ctx, "sabaq-1", "2024-03-01", []string{its1, "abc", "123"})
	vErr, ok := core.AsValidationError(err)
	require.True(t, ok)
	assert.Len(t, vErr.Fields, 2)
	assert.Contains(t, vErr.FieldMap(), "presentStudents[1]")

	_, err = svc.SaveAttendance(ctx, "sabaq-1", "2024-03-01", []string{its1, "90123456"})
	assert.Equal(t, ErrNotEnrolled, errors.Cause(err))

	_, err = svc.SaveAttendance(ctx, "nope", "2024-03-01", nil)
	assert.Equal(t, db.ErrSabaqNotFound, err)

	all, err := records.GetAllRecords(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDaySummary(t *testing.T) {
	ctx := context.Background()
	svc, roster, _ := newService(t)

	summary, err := svc.DaySummary(ctx, "sabaq-1", "2024-03-01")
	require.NoError(t, err)
	assert.Nil(t, summary, "no record yet")

	_, err = svc.SaveAttendance(ctx, "sabaq-1", "2024-03-01", []string{its4, its1})
	require.NoError(t, err)
	_, err = roster.RemoveStudent(ctx, "sabaq-1", its4)
	require.NoError(t, err)

	summary, err = svc.DaySummary(ctx, "sabaq-1", "2024-03-01")
	require.NoError(t, err)
	require.NotNil(t, summary)
	assert.Equal(t, "Islamic History", summary.SabaqName)
	require.Len(t, summary.Present, 1)
	assert.Equal(t, its1, summary.Present[0].ITSNumber)
	assert.Equal(t, []models.Student{{ITSNumber: its4, Name: "Unknown Student"}}, summary.Unknown)

	absent := make([]string, 0, len(summary.Absent))
	for _, st := range summary.Absent {
		absent = append(absent, st.ITSNumber)
	}
	assert.Equal(t, []string{its2, its3, its5}, absent)

	summary, err = svc.DaySummary(ctx, "sabaq-9", "2024-03-01")
	require.NoError(t, err)
	assert.Nil(t, summary)
}

func TestOverview(t *testing.T) {
	ctx := context.Background()
	svc, _, records := newService(t)

	overview, err := svc.Overview(ctx)
	require.NoError(t, err)
	assert.Empty(t, overview.Records)
	assert.Empty(t, overview.Groups)

	for _, r := range []models.AttendanceRecord{
		{SabaqID: "sabaq-1", Date: "2024-03-01", PresentStudents: []string{its1}},
		{SabaqID: "sabaq-2", Date: "2024-03-15", PresentStudents: []string{}},
		{SabaqID: "sabaq-1", Date: "2024-03-22", PresentStudents: []string{its2}},
		{SabaqID: "sabaq-gone", Date: "2024-03-08", PresentStudents: []string{its3}},
		{SabaqID: "sabaq-2", Date: "2024-02-28", PresentStudents: []string{}},
	} {
		require.NoError(t, records.SaveRecord(ctx, r))
	}

	overview, err = svc.Overview(ctx)
	require.NoError(t, err)

	tests := []struct {
		sabaqID string
		name    string
		date    string
	}{
		{sabaqID: "sabaq-1", name: "Islamic History", date: "2024-03-22"},
		{sabaqID: "sabaq-2", name: "Quranic Studies", date: "2024-03-15"},
		{sabaqID: "sabaq-gone", name: "Unknown Sabaq", date: "2024-03-08"},
		{sabaqID: "sabaq-1", name: "Islamic History", date: "2024-03-01"},
		{sabaqID: "sabaq-2", name: "Quranic Studies", date: "2024-02-28"},
	}
	require.Len(t, overview.Records, len(tests))
	for i, tt := range tests {
		assert.Equal(t, tt.sabaqID, overview.Records[i].SabaqID, "record %d", i)
		assert.Equal(t, tt.name, overview.Records[i].SabaqName, "record %d", i)
		assert.Equal(t, tt.date, overview.Records[i].Date, "record %d", i)
	}

	require.Len(t, overview.Groups, 3)
	groupDates := func(g models.SabaqSessions) []string {
		dates := make([]string, 0, len(g.Records))
		for _, r := range g.Records {
			dates = append(dates, r.Date)
		}
		return dates
	}
	assert.Equal(t, "sabaq-1", overview.Groups[0].ID)
	assert.Equal(t, "Islamic History", overview.Groups[0].Name)
	assert.Equal(t, []string{"2024-03-22", "2024-03-01"}, groupDates(overview.Groups[0]))
	assert.Equal(t, "sabaq-2", overview.Groups[1].ID)
	assert.Equal(t, []string{"2024-03-15", "2024-02-28"}, groupDates(overview.Groups[1]))
	assert.Equal(t, "Unknown Sabaq", overview.Groups[2].Name)
	assert.Equal(t, []string{"2024-03-08"}, groupDates(overview.Groups[2]))
}
