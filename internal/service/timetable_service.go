package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edustack/timetable-api/internal/dto"
	"github.com/edustack/timetable-api/internal/models"
	"github.com/edustack/timetable-api/internal/scheduler"
	"github.com/edustack/timetable-api/pkg/config"
	appErrors "github.com/edustack/timetable-api/pkg/errors"
	"github.com/edustack/timetable-api/pkg/export"
)

const (
	cacheKeyTimetableAll     = "timetable:all"
	cacheKeyTimetableClass   = "timetable:class:"
	cacheKeyTimetableTeacher = "timetable:teacher:"
	cacheKeyTimetablePattern = "timetable:*"
)

type timetableRepository interface {
	ReplaceAll(ctx context.Context, entries []models.TimetableEntry) error
	ListAll(ctx context.Context) ([]models.TimetableEntry, error)
	ListByClass(ctx context.Context, className string) ([]models.TimetableEntry, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.TimetableEntry, error)
	DeleteByClass(ctx context.Context, className string) (int64, error)
	DeleteAll(ctx context.Context) error
}

type classCatalog interface {
	ListAll(ctx context.Context) ([]models.Class, error)
}

type teacherCatalog interface {
	ListActive(ctx context.Context) ([]models.Teacher, error)
}

type subjectCatalog interface {
	ListAll(ctx context.Context) ([]models.Subject, error)
}

type auditRecorder interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// TimetableService orchestrates generation runs and timetable reads.
type TimetableService struct {
	timetables timetableRepository
	classes    classCatalog
	teachers   teacherCatalog
	subjects   subjectCatalog
	audit      auditRecorder
	cache      *CacheService
	metrics    *MetricsService
	csv        *export.CSVExporter
	pdf        *export.PDFExporter
	cfg        config.SchedulerConfig
	validator  *validator.Validate
	logger     *zap.Logger
}

// NewTimetableService constructs a TimetableService.
func NewTimetableService(
	timetables timetableRepository,
	classes classCatalog,
	teachers teacherCatalog,
	subjects subjectCatalog,
	audit auditRecorder,
	cache *CacheService,
	metrics *MetricsService,
	cfg config.SchedulerConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *TimetableService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TimetableService{
		timetables: timetables,
		classes:    classes,
		teachers:   teachers,
		subjects:   subjects,
		audit:      audit,
		cache:      cache,
		metrics:    metrics,
		csv:        export.NewCSVExporter(),
		pdf:        export.NewPDFExporter(),
		cfg:        cfg,
		validator:  validate,
		logger:     logger,
	}
}

// Generate runs the engine over the full catalog and atomically replaces the
// stored timetable. The previous timetable survives any failure.
func (s *TimetableService) Generate(ctx context.Context, userID string, req dto.GenerateTimetableRequest) (*dto.GenerateTimetableResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generation payload")
	}
	if req.LunchAfter >= req.PeriodsPerDay {
		return nil, appErrors.Clone(appErrors.ErrValidation, "lunch_after must fall inside the day")
	}

	classes, err := s.classes.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load classes")
	}
	if len(classes) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no classes to schedule")
	}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	if len(teachers) == 0 {
		return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, "no active teachers available")
	}
	subjects, err := s.subjects.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}

	subjectByID := make(map[string]models.Subject, len(subjects))
	for _, subject := range subjects {
		subjectByID[subject.ID] = subject
	}

	engineClasses := make([]scheduler.Class, 0, len(classes))
	for _, class := range classes {
		ec := scheduler.Class{Name: class.Name}
		for _, subjectID := range class.SubjectIDs {
			subject, ok := subjectByID[subjectID]
			if !ok {
				return nil, appErrors.Clone(appErrors.ErrPreconditionFailed, fmt.Sprintf("class %s references unknown subject %s", class.Name, subjectID))
			}
			ec.Subjects = append(ec.Subjects, scheduler.Subject{
				ID:           subject.ID,
				Name:         subject.Name,
				Code:         subject.Code,
				Type:         scheduler.TeachingType(subject.Type),
				HoursPerWeek: subject.HoursPerWeek,
			})
		}
		engineClasses = append(engineClasses, ec)
	}

	engineTeachers := toSchedulerTeachers(teachers)

	seed := s.cfg.Seed
	if req.Seed != nil {
		seed = *req.Seed
	}
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	engine := scheduler.NewEngine(scheduler.Config{
		Days:                  req.Days,
		PeriodsPerDay:         req.PeriodsPerDay,
		LunchAfter:            req.LunchAfter,
		WeeklyHourLimit:       s.cfg.WeeklyHourLimit,
		DefaultMaxConsecutive: s.cfg.DefaultMaxConsecutive,
		LabRetryPasses:        s.cfg.LabRetryPasses,
		GapFillPasses:         s.cfg.GapFillPasses,
	}, scheduler.NewOrdering(seed), s.logger)

	started := time.Now()
	result, err := engine.Generate(engineClasses, engineTeachers)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "generation rejected")
	}

	entries := flattenTimetables(result.Timetables)
	if err := s.timetables.ReplaceAll(ctx, entries); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist timetable")
	}

	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, cacheKeyTimetablePattern)
	}
	if s.metrics != nil {
		s.metrics.RecordGenerationRun(time.Since(started), result.Stats.EmergencySlots)
	}
	s.recordAudit(ctx, userID, models.AuditActionTimetableGenerate, "timetable", nil)

	s.logger.Info("timetable generated",
		zap.Int("classes", len(classes)),
		zap.Int("total_slots", result.Stats.TotalSlots),
		zap.Int("filled_slots", result.Stats.FilledSlots),
		zap.Int("emergency_slots", result.Stats.EmergencySlots),
		zap.Int64("seed", seed))

	return &dto.GenerateTimetableResponse{
		Timetables: groupEntries(entries),
		Stats:      statsToResponse(result.Stats),
	}, nil
}

// List returns the stored timetable grouped per class. The boolean reports
// whether the payload came from cache.
func (s *TimetableService) List(ctx context.Context) ([]dto.ClassTimetableResponse, bool, error) {
	var cached []dto.ClassTimetableResponse
	if s.cache != nil {
		if hit, _ := s.cache.Get(ctx, cacheKeyTimetableAll, &cached); hit {
			return cached, true, nil
		}
	}
	entries, err := s.timetables.ListAll(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	grouped := groupEntries(entries)
	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKeyTimetableAll, grouped, 0)
	}
	return grouped, false, nil
}

// GetByClass returns one class's stored week. The boolean reports whether the
// payload came from cache.
func (s *TimetableService) GetByClass(ctx context.Context, className string) (*dto.ClassTimetableResponse, bool, error) {
	var cached dto.ClassTimetableResponse
	if s.cache != nil {
		if hit, _ := s.cache.Get(ctx, cacheKeyTimetableClass+className, &cached); hit {
			return &cached, true, nil
		}
	}
	entries, err := s.timetables.ListByClass(ctx, className)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if len(entries) == 0 {
		return nil, false, appErrors.Clone(appErrors.ErrNotFound, "no timetable stored for this class")
	}
	resp := dto.ClassTimetableResponse{ClassName: className, Entries: entries}
	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKeyTimetableClass+className, resp, 0)
	}
	return &resp, false, nil
}

// TeacherView returns a teacher-centric weekly view.
func (s *TimetableService) TeacherView(ctx context.Context, teacherID string) ([]dto.TeacherTimetableEntry, error) {
	var cached []dto.TeacherTimetableEntry
	if s.cache != nil {
		if hit, _ := s.cache.Get(ctx, cacheKeyTimetableTeacher+teacherID, &cached); hit {
			return cached, nil
		}
	}
	entries, err := s.timetables.ListByTeacher(ctx, teacherID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	view := make([]dto.TeacherTimetableEntry, 0, len(entries))
	for _, entry := range entries {
		view = append(view, dto.TeacherTimetableEntry{
			ClassName:   entry.ClassName,
			Day:         entry.Day,
			Time:        entry.Time,
			SubjectID:   entry.SubjectID,
			Room:        entry.Room,
			IsEmergency: entry.IsEmergency,
		})
	}
	if s.cache != nil {
		_ = s.cache.Set(ctx, cacheKeyTimetableTeacher+teacherID, view, 0)
	}
	return view, nil
}

// DeleteByClass removes one class's stored week.
func (s *TimetableService) DeleteByClass(ctx context.Context, className string) error {
	affected, err := s.timetables.DeleteByClass(ctx, className)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "no timetable stored for this class")
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, cacheKeyTimetablePattern)
	}
	return nil
}

// DeleteAll clears the stored timetable.
func (s *TimetableService) DeleteAll(ctx context.Context) error {
	if err := s.timetables.DeleteAll(ctx); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete timetable")
	}
	if s.cache != nil {
		_ = s.cache.Invalidate(ctx, cacheKeyTimetablePattern)
	}
	return nil
}

// ExportCSV renders one class's week as CSV.
func (s *TimetableService) ExportCSV(ctx context.Context, className string) ([]byte, error) {
	dataset, err := s.exportDataset(ctx, className)
	if err != nil {
		return nil, err
	}
	payload, err := s.csv.Render(*dataset)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return payload, nil
}

// ExportPDF renders one class's week as a tabular PDF.
func (s *TimetableService) ExportPDF(ctx context.Context, className string) ([]byte, error) {
	dataset, err := s.exportDataset(ctx, className)
	if err != nil {
		return nil, err
	}
	payload, err := s.pdf.Render(*dataset, "Timetable "+className)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return payload, nil
}

func (s *TimetableService) exportDataset(ctx context.Context, className string) (*export.Dataset, error) {
	entries, err := s.timetables.ListByClass(ctx, className)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	if len(entries) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no timetable stored for this class")
	}

	subjectNames, teacherNames, err := s.nameIndexes(ctx)
	if err != nil {
		return nil, err
	}

	dataset := &export.Dataset{Headers: []string{"Day", "Time", "Subject", "Teacher", "Room"}}
	for _, entry := range entries {
		row := map[string]string{
			"Day":  entry.Day,
			"Time": entry.Time,
			"Room": entry.Room,
		}
		if entry.IsBreak {
			row["Subject"] = "Lunch break"
		} else {
			if entry.SubjectID != nil {
				row["Subject"] = subjectNames[*entry.SubjectID]
			}
			if entry.TeacherID != nil {
				row["Teacher"] = teacherNames[*entry.TeacherID]
			}
		}
		dataset.Rows = append(dataset.Rows, row)
	}
	return dataset, nil
}

func (s *TimetableService) nameIndexes(ctx context.Context) (map[string]string, map[string]string, error) {
	subjects, err := s.subjects.ListAll(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subjects")
	}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	subjectNames := make(map[string]string, len(subjects))
	for _, subject := range subjects {
		subjectNames[subject.ID] = subject.Name
	}
	teacherNames := make(map[string]string, len(teachers))
	for _, teacher := range teachers {
		teacherNames[teacher.ID] = teacher.FullName
	}
	return subjectNames, teacherNames, nil
}

func (s *TimetableService) recordAudit(ctx context.Context, userID, action, resource string, resourceID *string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{Action: action, Resource: resource, ResourceID: resourceID}
	if userID != "" {
		log.UserID = &userID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", action), zap.Error(err))
	}
}

func toSchedulerTeachers(teachers []models.Teacher) []scheduler.Teacher {
	out := make([]scheduler.Teacher, 0, len(teachers))
	for _, teacher := range teachers {
		et := scheduler.Teacher{
			ID:             teacher.ID,
			Name:           teacher.FullName,
			Subjects:       make(map[string]bool, len(teacher.SubjectIDs)),
			Types:          make(map[scheduler.TeachingType]bool, len(teacher.TeachingTypes)),
			MaxConsecutive: teacher.MaxConsecutive,
		}
		for _, subjectID := range teacher.SubjectIDs {
			et.Subjects[subjectID] = true
		}
		for _, tt := range teacher.TeachingTypes {
			et.Types[scheduler.TeachingType(tt)] = true
		}
		out = append(out, et)
	}
	return out
}

func flattenTimetables(timetables []scheduler.ClassTimetable) []models.TimetableEntry {
	var entries []models.TimetableEntry
	for _, tt := range timetables {
		for _, entry := range tt.Entries {
			row := models.TimetableEntry{
				ClassName:   tt.ClassName,
				Day:         entry.Day,
				Time:        entry.Time,
				Room:        entry.Room,
				IsBreak:     entry.IsBreak,
				IsEmergency: entry.Emergency,
			}
			if entry.SubjectID != "" {
				subjectID := entry.SubjectID
				row.SubjectID = &subjectID
			}
			if entry.TeacherID != "" {
				teacherID := entry.TeacherID
				row.TeacherID = &teacherID
			}
			entries = append(entries, row)
		}
	}
	return entries
}

func groupEntries(entries []models.TimetableEntry) []dto.ClassTimetableResponse {
	byClass := make(map[string][]models.TimetableEntry)
	for _, entry := range entries {
		byClass[entry.ClassName] = append(byClass[entry.ClassName], entry)
	}
	names := make([]string, 0, len(byClass))
	for name := range byClass {
		names = append(names, name)
	}
	sort.Strings(names)
	out := make([]dto.ClassTimetableResponse, 0, len(names))
	for _, name := range names {
		out = append(out, dto.ClassTimetableResponse{ClassName: name, Entries: byClass[name]})
	}
	return out
}

func statsToResponse(stats scheduler.RunStats) dto.RunStatsResponse {
	resp := dto.RunStatsResponse{
		TotalSlots:     stats.TotalSlots,
		FilledSlots:    stats.FilledSlots,
		EmergencySlots: stats.EmergencySlots,
		UnassignedLabs: stats.UnassignedLabs,
	}
	for _, v := range stats.Violations {
		resp.Violations = append(resp.Violations, dto.ViolationResponse{
			Day:       v.Day,
			Time:      v.Time,
			TeacherID: v.TeacherID,
			Classes:   v.Classes,
		})
	}
	return resp
}
