package service

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/edustack/timetable-api/internal/dto"
	"github.com/edustack/timetable-api/internal/models"
	"github.com/edustack/timetable-api/internal/scheduler"
	appErrors "github.com/edustack/timetable-api/pkg/errors"
)

type leaveRepository interface {
	Create(ctx context.Context, leave *models.LeaveRequest) error
	FindByID(ctx context.Context, id string) (*models.LeaveRequest, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]models.LeaveRequest, error)
	ListByStatus(ctx context.Context, status models.LeaveStatus) ([]models.LeaveRequest, error)
	UpdateStatus(ctx context.Context, id string, status models.LeaveStatus, reviewedBy string, comment *string) error
}

type substitutionRepository interface {
	BulkCreate(ctx context.Context, subs []models.Substitution) error
	DeleteByLeave(ctx context.Context, leaveID string) error
	FindByID(ctx context.Context, id string) (*models.Substitution, error)
	List(ctx context.Context, date *time.Time, status *models.SubstitutionStatus) ([]models.Substitution, error)
	ListByLeave(ctx context.Context, leaveID string) ([]models.Substitution, error)
	ListAssignedOnDate(ctx context.Context, date time.Time) ([]models.Substitution, error)
	UpdateAssignment(ctx context.Context, id string, teacherID *string) error
}

type teacherProfileLookup interface {
	FindByUserID(ctx context.Context, userID string) (*models.Teacher, error)
	FindByID(ctx context.Context, id string) (*models.Teacher, error)
	ListActive(ctx context.Context) ([]models.Teacher, error)
}

type timetableReader interface {
	ListAll(ctx context.Context) ([]models.TimetableEntry, error)
}

// LeaveService handles the leave lifecycle: teachers file requests, admins
// review them, approval resolves next-occurrence substitutions.
type LeaveService struct {
	leaves        leaveRepository
	substitutions substitutionRepository
	teachers      teacherProfileLookup
	timetables    timetableReader
	audit         auditRecorder
	metrics       *MetricsService
	validator     *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

// NewLeaveService constructs a LeaveService.
func NewLeaveService(
	leaves leaveRepository,
	substitutions substitutionRepository,
	teachers teacherProfileLookup,
	timetables timetableReader,
	audit auditRecorder,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *LeaveService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeaveService{
		leaves:        leaves,
		substitutions: substitutions,
		teachers:      teachers,
		timetables:    timetables,
		audit:         audit,
		metrics:       metrics,
		validator:     validate,
		logger:        logger,
		now:           time.Now,
	}
}

// Apply files a leave request for the teacher linked to the user account.
func (s *LeaveService) Apply(ctx context.Context, userID string, req dto.ApplyLeaveRequest) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave payload")
	}
	teacher, err := s.teachers.FindByUserID(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no teacher profile linked to this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}

	periods, err := normalizeLeavePeriods(req)
	if err != nil {
		return nil, err
	}

	leave := &models.LeaveRequest{
		TeacherID: teacher.ID,
		Weekday:   req.Weekday,
		IsFullDay: req.IsFullDay,
		Periods:   periods,
		Reason:    strings.TrimSpace(req.Reason),
		Status:    models.LeaveStatusPending,
	}
	if err := s.leaves.Create(ctx, leave); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to file leave request")
	}
	return leave, nil
}

// MyLeaves returns the requesting teacher's leave history.
func (s *LeaveService) MyLeaves(ctx context.Context, userID string) ([]models.LeaveRequest, error) {
	teacher, err := s.teachers.FindByUserID(ctx, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "no teacher profile linked to this account")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
	}
	leaves, err := s.leaves.ListByTeacher(ctx, teacher.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list leave requests")
	}
	return leaves, nil
}

// Pending returns the admin review queue, oldest first.
func (s *LeaveService) Pending(ctx context.Context) ([]models.LeaveRequest, error) {
	leaves, err := s.leaves.ListByStatus(ctx, models.LeaveStatusPending)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending leave requests")
	}
	return leaves, nil
}

// Approve finalizes a pending leave and resolves substitutions for the next
// occurrence of its weekday. Slots with no free qualified teacher are stored
// unassigned for manual resolution.
func (s *LeaveService) Approve(ctx context.Context, leaveID, adminID string, req dto.ReviewLeaveRequest) ([]models.Substitution, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	leave, err := s.loadPending(ctx, leaveID)
	if err != nil {
		return nil, err
	}

	date, err := scheduler.NextWeekday(leave.Weekday, s.now())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave weekday")
	}

	entries, err := s.timetables.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	timetables := toSchedulerTimetables(entries)
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}
	committed, err := s.committedSlots(ctx, date)
	if err != nil {
		return nil, err
	}

	assignments := scheduler.ResolveSubstitutions(scheduler.LeaveInfo{
		TeacherID: leave.TeacherID,
		Weekday:   leave.Weekday,
		FullDay:   leave.IsFullDay,
		Periods:   leave.Periods,
	}, timetables, toSchedulerTeachers(teachers), committed)

	subs := make([]models.Substitution, 0, len(assignments))
	assigned, unassigned := 0, 0
	for _, a := range assignments {
		sub := models.Substitution{
			LeaveRequestID:    leave.ID,
			ValidForDate:      date,
			ClassName:         a.ClassName,
			Weekday:           a.Weekday,
			Time:              a.Time,
			SubjectID:         a.SubjectID,
			OriginalTeacherID: a.OriginalTeacherID,
			Status:            models.SubstitutionUnassigned,
		}
		if a.Assigned {
			substituteID := a.SubstituteID
			sub.SubstituteTeacherID = &substituteID
			sub.Status = models.SubstitutionAssigned
			assigned++
		} else {
			unassigned++
		}
		subs = append(subs, sub)
	}

	if err := s.substitutions.DeleteByLeave(ctx, leave.ID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear previous substitutions")
	}
	if err := s.substitutions.BulkCreate(ctx, subs); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store substitutions")
	}
	if err := s.leaves.UpdateStatus(ctx, leave.ID, models.LeaveStatusApproved, adminID, optionalComment(req.Comment)); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update leave status")
	}

	if s.metrics != nil {
		s.metrics.RecordSubstitutionOutcome(assigned, unassigned)
	}
	s.recordReviewAudit(ctx, adminID, leave.ID)

	s.logger.Info("leave approved",
		zap.String("leave_id", leave.ID),
		zap.String("teacher_id", leave.TeacherID),
		zap.Time("valid_for", date),
		zap.Int("assigned", assigned),
		zap.Int("unassigned", unassigned))
	return subs, nil
}

// Reject finalizes a pending leave without generating substitutions.
func (s *LeaveService) Reject(ctx context.Context, leaveID, adminID string, req dto.ReviewLeaveRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid review payload")
	}
	leave, err := s.loadPending(ctx, leaveID)
	if err != nil {
		return err
	}
	if err := s.substitutions.DeleteByLeave(ctx, leave.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear substitutions")
	}
	if err := s.leaves.UpdateStatus(ctx, leave.ID, models.LeaveStatusRejected, adminID, optionalComment(req.Comment)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update leave status")
	}
	s.recordReviewAudit(ctx, adminID, leave.ID)
	return nil
}

// ListSubstitutions returns substitutions filtered by optional date and status.
func (s *LeaveService) ListSubstitutions(ctx context.Context, date *time.Time, status *models.SubstitutionStatus) ([]models.Substitution, error) {
	subs, err := s.substitutions.List(ctx, date, status)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list substitutions")
	}
	return subs, nil
}

// SubstitutionsForLeave returns the cover slots generated for one leave.
func (s *LeaveService) SubstitutionsForLeave(ctx context.Context, leaveID string) ([]models.Substitution, error) {
	if _, err := s.leaves.FindByID(ctx, leaveID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	subs, err := s.substitutions.ListByLeave(ctx, leaveID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list substitutions")
	}
	return subs, nil
}

// FreeTeachers returns candidates for manually covering a substitution slot.
// Teachers already on the class's base timetable sort first.
func (s *LeaveService) FreeTeachers(ctx context.Context, substitutionID string) ([]dto.FreeTeacherResponse, error) {
	sub, err := s.loadSubstitution(ctx, substitutionID)
	if err != nil {
		return nil, err
	}

	entries, err := s.timetables.ListAll(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
	}
	timetables := toSchedulerTimetables(entries)
	committed, err := s.committedSlots(ctx, sub.ValidForDate)
	if err != nil {
		return nil, err
	}
	teachers, err := s.teachers.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teachers")
	}

	familiar := scheduler.ClassTeachers(timetables, sub.ClassName)
	var out []dto.FreeTeacherResponse
	for _, teacher := range teachers {
		if teacher.ID == sub.OriginalTeacherID {
			continue
		}
		if !containsSubject(teacher.SubjectIDs, sub.SubjectID) {
			continue
		}
		if scheduler.BusyAt(teacher.ID, sub.Weekday, sub.Time, timetables, committed) {
			continue
		}
		out = append(out, dto.FreeTeacherResponse{
			TeacherID: teacher.ID,
			FullName:  teacher.FullName,
			Familiar:  familiar[teacher.ID],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Familiar != out[j].Familiar {
			return out[i].Familiar
		}
		return out[i].FullName < out[j].FullName
	})
	return out, nil
}

// AssignSubstitute manually sets or clears the substitute on a slot. Setting
// rejects the original teacher and anyone already occupied at that slot on
// the date; a teacher who does not already teach the class is accepted with
// a warning on the response.
func (s *LeaveService) AssignSubstitute(ctx context.Context, substitutionID string, req dto.AssignSubstituteRequest) (*dto.AssignSubstituteResponse, error) {
	sub, err := s.loadSubstitution(ctx, substitutionID)
	if err != nil {
		return nil, err
	}

	var warning string
	if req.TeacherID != nil {
		teacherID := *req.TeacherID
		if teacherID == sub.OriginalTeacherID {
			return nil, appErrors.Clone(appErrors.ErrValidation, "the absent teacher cannot cover their own slot")
		}
		if _, err := s.teachers.FindByID(ctx, teacherID); err != nil {
			if err == sql.ErrNoRows {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "teacher not found")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load teacher")
		}

		entries, err := s.timetables.ListAll(ctx)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
		}
		committed, err := s.committedSlotsExcluding(ctx, sub.ValidForDate, sub.ID)
		if err != nil {
			return nil, err
		}
		timetables := toSchedulerTimetables(entries)
		if scheduler.BusyAt(teacherID, sub.Weekday, sub.Time, timetables, committed) {
			return nil, appErrors.Clone(appErrors.ErrTeacherBusy, "teacher already occupied at this slot")
		}
		if !scheduler.ClassTeachers(timetables, sub.ClassName)[teacherID] {
			warning = "assigned teacher is not currently teaching this class"
			s.logger.Warn("substitute unfamiliar with class",
				zap.String("substitution_id", sub.ID),
				zap.String("teacher_id", teacherID),
				zap.String("class", sub.ClassName))
		}
	}

	if err := s.substitutions.UpdateAssignment(ctx, sub.ID, req.TeacherID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update substitution")
	}
	updated, err := s.substitutions.FindByID(ctx, sub.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload substitution")
	}
	return &dto.AssignSubstituteResponse{Substitution: *updated, Warning: warning}, nil
}

func (s *LeaveService) loadPending(ctx context.Context, leaveID string) (*models.LeaveRequest, error) {
	leave, err := s.leaves.FindByID(ctx, leaveID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load leave request")
	}
	if leave.Status != models.LeaveStatusPending {
		return nil, appErrors.Clone(appErrors.ErrLeaveFinalized, "leave request already reviewed")
	}
	return leave, nil
}

func (s *LeaveService) loadSubstitution(ctx context.Context, id string) (*models.Substitution, error) {
	sub, err := s.substitutions.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "substitution not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load substitution")
	}
	return sub, nil
}

func (s *LeaveService) committedSlots(ctx context.Context, date time.Time) ([]scheduler.BusySlot, error) {
	return s.committedSlotsExcluding(ctx, date, "")
}

func (s *LeaveService) committedSlotsExcluding(ctx context.Context, date time.Time, excludeID string) ([]scheduler.BusySlot, error) {
	existing, err := s.substitutions.ListAssignedOnDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load committed substitutions")
	}
	slots := make([]scheduler.BusySlot, 0, len(existing))
	for _, sub := range existing {
		if sub.ID == excludeID || sub.SubstituteTeacherID == nil {
			continue
		}
		slots = append(slots, scheduler.BusySlot{
			Weekday:   sub.Weekday,
			Time:      sub.Time,
			TeacherID: *sub.SubstituteTeacherID,
		})
	}
	return slots, nil
}

func (s *LeaveService) recordReviewAudit(ctx context.Context, adminID, leaveID string) {
	if s.audit == nil {
		return
	}
	log := &models.AuditLog{Action: models.AuditActionLeaveReview, Resource: "leave_request", ResourceID: &leaveID}
	if adminID != "" {
		log.UserID = &adminID
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("audit log write failed", zap.String("action", models.AuditActionLeaveReview), zap.Error(err))
	}
}

func normalizeLeavePeriods(req dto.ApplyLeaveRequest) ([]string, error) {
	if req.IsFullDay {
		if len(req.Periods) > 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "full-day leave must not list periods")
		}
		return []string{}, nil
	}
	if len(req.Periods) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "half-day leave must list the vacated periods")
	}
	seen := make(map[string]bool, len(req.Periods))
	out := make([]string, 0, len(req.Periods))
	for _, raw := range req.Periods {
		code := strings.ToUpper(strings.TrimSpace(raw))
		if _, ok := scheduler.ParsePeriod(code); !ok {
			return nil, appErrors.Clone(appErrors.ErrValidation, "periods must use codes like P3")
		}
		if seen[code] {
			continue
		}
		seen[code] = true
		out = append(out, code)
	}
	return out, nil
}

func optionalComment(comment string) *string {
	trimmed := strings.TrimSpace(comment)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func containsSubject(ids []string, subjectID string) bool {
	for _, id := range ids {
		if id == subjectID {
			return true
		}
	}
	return false
}

func toSchedulerTimetables(entries []models.TimetableEntry) []scheduler.ClassTimetable {
	byClass := make(map[string][]scheduler.Entry)
	var order []string
	for _, entry := range entries {
		if _, ok := byClass[entry.ClassName]; !ok {
			order = append(order, entry.ClassName)
		}
		se := scheduler.Entry{
			Day:       entry.Day,
			Time:      entry.Time,
			Room:      entry.Room,
			IsBreak:   entry.IsBreak,
			Emergency: entry.IsEmergency,
		}
		if entry.SubjectID != nil {
			se.SubjectID = *entry.SubjectID
		}
		if entry.TeacherID != nil {
			se.TeacherID = *entry.TeacherID
		}
		byClass[entry.ClassName] = append(byClass[entry.ClassName], se)
	}
	sort.Strings(order)
	out := make([]scheduler.ClassTimetable, 0, len(order))
	for _, name := range order {
		out = append(out, scheduler.ClassTimetable{ClassName: name, Entries: byClass[name]})
	}
	return out
}
