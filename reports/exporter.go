package reports

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"asbaaq-attendance/models"
)

// StatsSource computes the cumulative report of one sabaq (nil when there is none).
type StatsSource interface {
	CalculateAttendanceStats(ctx context.Context, sabaqID string) (*models.AttendanceStatsReport, error)
}

// SabaqLister lists every sabaq on the roster.
type SabaqLister interface {
	ListSabaqs() []models.Sabaq
}

// Exporter writes one workbook per sabaq into a directory.
type Exporter struct {
	stats  StatsSource
	asbaaq SabaqLister
	dir    string
	log    *zap.Logger

	now func() time.Time // mockable
}

func NewExporter(stats StatsSource, asbaaq SabaqLister, dir string, logger *zap.Logger) *Exporter {
	return &Exporter{stats: stats, asbaaq: asbaaq, dir: dir, log: logger, now: time.Now}
}

// ExportAll writes <sabaqId>-<YYYY-MM-DD>.xlsx for every sabaq that has attendance
// records and returns the paths written. Sabaqs without records are skipped.
func (e *Exporter) ExportAll(ctx context.Context) ([]string, error) {
	if err := os.MkdirAll(e.dir, 0755); err != nil {
		return nil, errors.Wrap(err, "failed to create export directory")
	}

	day := e.now().Format("2006-01-02")
	var written []string
	for _, sabaq := range e.asbaaq.ListSabaqs() {
		report, err := e.stats.CalculateAttendanceStats(ctx, sabaq.ID)
		if err != nil {
			return written, errors.Wrapf(err, "stats for %s", sabaq.ID)
		}
		if report == nil {
			continue
		}

		path := filepath.Join(e.dir, fmt.Sprintf("%s-%s.xlsx", sabaq.ID, day))
		if err := writeFile(path, report); err != nil {
			return written, err
		}
		written = append(written, path)
	}

	e.log.Info("attendance reports exported", zap.String("dir", e.dir), zap.Int("files", len(written)))
	return written, nil
}

func writeFile(path string, report *models.AttendanceStatsReport) (err error) {
	out, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(err, "failed to create %s", path)
	}
	defer func() {
		if cerr := out.Close(); cerr != nil && err == nil {
			err = errors.Wrapf(cerr, "failed to close %s", path)
		}
	}()
	return WriteStatsWorkbook(report, out)
}

// Scheduler runs ExportAll on a cron schedule
type Scheduler struct {
	scheduler *gocron.Scheduler
	exporter  *Exporter
	log       *zap.Logger
}

func NewScheduler(exporter *Exporter, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		exporter:  exporter,
		log:       logger,
	}
}

// Start schedules the export with a standard 5-field cron expression and begins
// running it in the background.
func (s *Scheduler) Start(ctx context.Context, cronExpr string) error {
	_, err := s.scheduler.Cron(cronExpr).Do(func() {
		if _, err := s.exporter.ExportAll(ctx); err != nil {
			s.log.Error("scheduled export failed", zap.Error(err))
		}
	})
	if err != nil {
		return errors.Wrapf(err, "invalid export schedule %q", cronExpr)
	}
	s.scheduler.StartAsync()
	s.log.Info("report export scheduled", zap.String("cron", cronExpr))
	return nil
}

// Stop terminates all scheduled tasks
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
}
