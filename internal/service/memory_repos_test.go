package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/coursework-api/internal/models"
	"github.com/noah-isme/coursework-api/internal/repository"
	apperrors "github.com/noah-isme/coursework-api/pkg/errors"
	"github.com/noah-isme/coursework-api/pkg/storage"
)

var referenceNow = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func ptrUint(v uint) *uint {
	return &v
}

func ptrInt(v int) *int {
	return &v
}

func ptrFloat(v float64) *float64 {
	return &v
}

func ptrString(v string) *string {
	return &v
}

type memoryAssignmentRepo struct {
	mu          sync.Mutex
	assignments map[uint]models.Assignment
	nextID      uint
	updateErr   error
	updateCalls int
	lockErr     error
	lockCalls   int
}

func newMemoryAssignmentRepo(items ...models.Assignment) *memoryAssignmentRepo {
	repo := &memoryAssignmentRepo{assignments: make(map[uint]models.Assignment), nextID: 1}
	for _, item := range items {
		repo.assignments[item.ID] = item
		if item.ID >= repo.nextID {
			repo.nextID = item.ID + 1
		}
	}
	return repo
}

func (m *memoryAssignmentRepo) get(id uint) models.Assignment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.assignments[id]
}

func (m *memoryAssignmentRepo) GetByID(ctx context.Context, id uint) (*models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.assignments[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return models.ReconstituteAssignment(row)
}

func (m *memoryAssignmentRepo) ListByCourse(ctx context.Context, courseID uint, filter repository.AssignmentFilter) ([]models.Assignment, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	search := strings.ToLower(strings.TrimSpace(filter.Search))
	items := make([]models.Assignment, 0)
	for _, item := range m.assignments {
		if item.CourseID != courseID {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(item.Title), search) {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].DueDate.Before(items[j].DueDate) })
	return items, int64(len(items)), nil
}

func (m *memoryAssignmentRepo) ListByCourses(ctx context.Context, courseIDs []uint) ([]models.Assignment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]models.Assignment, 0)
	for _, item := range m.assignments {
		for _, id := range courseIDs {
			if item.CourseID == id {
				items = append(items, item)
			}
		}
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
	return items, nil
}

func (m *memoryAssignmentRepo) Create(ctx context.Context, assignment *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	assignment.ID = m.nextID
	m.nextID++
	m.assignments[assignment.ID] = *assignment
	return nil
}

func (m *memoryAssignmentRepo) Update(ctx context.Context, assignment *models.Assignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updateCalls++
	if m.updateErr != nil {
		return m.updateErr
	}
	stored, ok := m.assignments[assignment.ID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if stored.GradingStarted {
		return apperrors.StateConflict("Cannot edit assignment after grading has started")
	}
	updated := *assignment
	updated.GradingStarted = false
	m.assignments[assignment.ID] = updated
	return nil
}

func (m *memoryAssignmentRepo) MarkGradingStarted(ctx context.Context, id uint, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lockCalls++
	if m.lockErr != nil {
		return m.lockErr
	}
	stored, ok := m.assignments[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	stored.GradingStarted = true
	stored.UpdatedAt = at
	m.assignments[id] = stored
	return nil
}

func (m *memoryAssignmentRepo) Delete(ctx context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.assignments[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.assignments, id)
	return nil
}

// memorySubmissionRepo mirrors the compare-and-set contract of the gorm repository.
type memorySubmissionRepo struct {
	mu          sync.Mutex
	submissions map[uint]models.Submission
	nextID      uint
	createErr   error
	updates     int
}

func newMemorySubmissionRepo(items ...models.Submission) *memorySubmissionRepo {
	repo := &memorySubmissionRepo{submissions: make(map[uint]models.Submission), nextID: 1}
	for _, item := range items {
		repo.submissions[item.ID] = item
		if item.ID >= repo.nextID {
			repo.nextID = item.ID + 1
		}
	}
	return repo
}

func (m *memorySubmissionRepo) get(id uint) models.Submission {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.submissions[id]
}

func (m *memorySubmissionRepo) List(ctx context.Context, filter repository.SubmissionFilter) ([]models.Submission, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]models.Submission, 0)
	for _, item := range m.submissions {
		if filter.AssignmentID != nil && item.AssignmentID != *filter.AssignmentID {
			continue
		}
		if filter.StudentID != nil && item.StudentID != *filter.StudentID {
			continue
		}
		if filter.Status != nil && item.Status != *filter.Status {
			continue
		}
		items = append(items, item)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID > items[j].ID })
	return items, int64(len(items)), nil
}

func (m *memorySubmissionRepo) GetByID(ctx context.Context, id uint) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	row, ok := m.submissions[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return models.ReconstituteSubmission(row)
}

func (m *memorySubmissionRepo) GetByAssignmentAndStudent(ctx context.Context, assignmentID, studentID uint) (*models.Submission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range m.submissions {
		if row.AssignmentID == assignmentID && row.StudentID == studentID {
			return models.ReconstituteSubmission(row)
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *memorySubmissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return m.createErr
	}
	for _, row := range m.submissions {
		if row.AssignmentID == submission.AssignmentID && row.StudentID == submission.StudentID {
			return apperrors.ConcurrentModification("Submission was created concurrently, reload and try again")
		}
	}
	submission.ID = m.nextID
	m.nextID++
	m.submissions[submission.ID] = *submission
	return nil
}

func (m *memorySubmissionRepo) Update(ctx context.Context, submission *models.Submission, expectedVersion int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.submissions[submission.ID]
	if !ok {
		return apperrors.NotFound("Submission not found")
	}
	if current.Version != expectedVersion {
		return apperrors.ConcurrentModification("Submission was modified by another user, reload and try again")
	}
	m.updates++
	m.submissions[submission.ID] = *submission
	return nil
}

type memoryCourseRepo struct {
	courses map[uint]models.Course
}

func newMemoryCourseRepo(items ...models.Course) *memoryCourseRepo {
	repo := &memoryCourseRepo{courses: make(map[uint]models.Course)}
	for _, item := range items {
		repo.courses[item.ID] = item
	}
	return repo
}

func (m *memoryCourseRepo) GetByID(ctx context.Context, id uint) (models.Course, error) {
	course, ok := m.courses[id]
	if !ok {
		return models.Course{}, gorm.ErrRecordNotFound
	}
	return course, nil
}

type memoryUserRepo struct {
	users map[uint]models.User
}

func newMemoryUserRepo(items ...models.User) *memoryUserRepo {
	repo := &memoryUserRepo{users: make(map[uint]models.User)}
	for _, item := range items {
		repo.users[item.ID] = item
	}
	return repo
}

func (m *memoryUserRepo) GetByID(ctx context.Context, id uint) (models.User, error) {
	user, ok := m.users[id]
	if !ok {
		return models.User{}, gorm.ErrRecordNotFound
	}
	return user, nil
}

type memoryEnrollmentRepo struct {
	enrolled map[uint][]uint
}

func (m *memoryEnrollmentRepo) IsEnrolled(ctx context.Context, courseID, studentID uint) (bool, error) {
	for _, id := range m.enrolled[studentID] {
		if id == courseID {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryEnrollmentRepo) CourseIDsForStudent(ctx context.Context, studentID uint) ([]uint, error) {
	return append([]uint(nil), m.enrolled[studentID]...), nil
}

func (m *memoryEnrollmentRepo) StudentIDsForCourse(ctx context.Context, courseID uint) ([]uint, error) {
	ids := make([]uint, 0)
	for studentID, courses := range m.enrolled {
		for _, id := range courses {
			if id == courseID {
				ids = append(ids, studentID)
			}
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids, nil
}

type memoryGradeHistoryRepo struct {
	mu      sync.Mutex
	entries []models.SubmissionGradeHistory
}

func (m *memoryGradeHistoryRepo) Create(ctx context.Context, entry *models.SubmissionGradeHistory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.ID = uint(len(m.entries) + 1)
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryGradeHistoryRepo) ListBySubmission(ctx context.Context, submissionID uint) ([]models.SubmissionGradeHistory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]models.SubmissionGradeHistory, 0)
	for _, entry := range m.entries {
		if entry.SubmissionID == submissionID {
			items = append(items, entry)
		}
	}
	return items, nil
}

func (m *memoryGradeHistoryRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

type memoryActivityRepo struct {
	mu      sync.Mutex
	entries []models.ActivityLog
	err     error
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = referenceNow
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]models.ActivityLog, 0)
	for _, entry := range m.entries {
		if filter.Action != "" && entry.Action != filter.Action {
			continue
		}
		if filter.EntityID != nil && (entry.EntityID == nil || *entry.EntityID != *filter.EntityID) {
			continue
		}
		items = append(items, entry)
	}
	return items, int64(len(items)), nil
}

func (m *memoryActivityRepo) actions() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, 0, len(m.entries))
	for _, entry := range m.entries {
		out = append(out, entry.Action)
	}
	return out
}

type recordingUploader struct {
	mu    sync.Mutex
	calls []storage.UploadOptions
	err   error
}

func (r *recordingUploader) Upload(ctx context.Context, data []byte, opts storage.UploadOptions) (storage.StoredFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return storage.StoredFile{}, r.err
	}
	r.calls = append(r.calls, opts)
	return storage.StoredFile{
		Path:         "https://files.example.com/" + storage.ObjectKey(opts.Directory, opts.OriginalName),
		OriginalName: opts.OriginalName,
	}, nil
}

func (r *recordingUploader) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (r *recordingPublisher) Publish(ctx context.Context, eventType string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, eventType)
	return r.err
}

func (r *recordingPublisher) published() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type recordingInvalidator struct {
	mu       sync.Mutex
	students []uint
	courses  []uint
}

func (r *recordingInvalidator) Invalidate(ctx context.Context, studentID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.students = append(r.students, studentID)
	return nil
}

func (r *recordingInvalidator) InvalidateCourse(ctx context.Context, courseID uint) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.courses = append(r.courses, courseID)
	return nil
}

func (r *recordingInvalidator) invalidatedCourses() []uint {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]uint(nil), r.courses...)
}

var errStorageDown = errors.New("storage unavailable")

// courseworkFixture seeds one course owned by teacher 10 with student 20 enrolled.
type courseworkFixture struct {
	assignments *memoryAssignmentRepo
	submissions *memorySubmissionRepo
	courses     *memoryCourseRepo
	users       *memoryUserRepo
	enrollments *memoryEnrollmentRepo
	history     *memoryGradeHistoryRepo
	activity    *memoryActivityRepo
	uploader    *recordingUploader
	publisher   *recordingPublisher
	dashboard   *recordingInvalidator
}

const (
	fixtureCourseID     uint = 1
	fixtureTeacherID    uint = 10
	fixtureOtherTeacher uint = 11
	fixtureAdminID      uint = 12
	fixtureStudentID    uint = 20
	fixtureOutsiderID   uint = 21
)

func newCourseworkFixture(assignments ...models.Assignment) *courseworkFixture {
	return &courseworkFixture{
		assignments: newMemoryAssignmentRepo(assignments...),
		submissions: newMemorySubmissionRepo(),
		courses:     newMemoryCourseRepo(models.Course{ID: fixtureCourseID, Title: "Distributed Systems", TeacherID: fixtureTeacherID}),
		users: newMemoryUserRepo(
			models.User{ID: fixtureTeacherID, Name: "Teacher", Email: "teacher@example.com", Role: models.RoleTeacher},
			models.User{ID: fixtureOtherTeacher, Name: "Other", Email: "other@example.com", Role: models.RoleTeacher},
			models.User{ID: fixtureAdminID, Name: "Admin", Email: "admin@example.com", Role: models.RoleAdmin},
			models.User{ID: fixtureStudentID, Name: "Student", Email: "student@example.com", Role: models.RoleStudent},
			models.User{ID: fixtureOutsiderID, Name: "Outsider", Email: "outsider@example.com", Role: models.RoleStudent},
		),
		enrollments: &memoryEnrollmentRepo{enrolled: map[uint][]uint{fixtureStudentID: {fixtureCourseID}}},
		history:     &memoryGradeHistoryRepo{},
		activity:    &memoryActivityRepo{},
		uploader:    &recordingUploader{},
		publisher:   &recordingPublisher{},
		dashboard:   &recordingInvalidator{},
	}
}

func (f *courseworkFixture) followUps() FollowUps {
	return FollowUps{
		Activity:  NewActivityService(f.activity, testValidator(), testLogger()),
		Publisher: f.publisher,
		Dashboard: f.dashboard,
	}
}

func (f *courseworkFixture) submissionService(now time.Time) SubmissionService {
	svc := NewSubmissionService(SubmissionDependencies{
		Assignments:  f.assignments,
		Submissions:  f.submissions,
		Courses:      f.courses,
		Users:        f.users,
		Enrollments:  f.enrollments,
		GradeHistory: f.history,
		Storage:      f.uploader,
		FollowUps:    f.followUps(),
	}, testValidator(), testLogger())
	svc.(*submissionService).now = func() time.Time { return now }
	return svc
}

func (f *courseworkFixture) gradingService(now time.Time) GradingService {
	svc := NewGradingService(GradingDependencies{
		Assignments:  f.assignments,
		Submissions:  f.submissions,
		Courses:      f.courses,
		Users:        f.users,
		GradeHistory: f.history,
		FollowUps:    f.followUps(),
	}, testValidator(), testLogger())
	svc.(*gradingService).now = func() time.Time { return now }
	return svc
}

func fixtureAssignment(id uint, submissionType models.SubmissionType, formats ...string) models.Assignment {
	return models.Assignment{
		ID:                  id,
		CourseID:            fixtureCourseID,
		Title:               "Consensus essay",
		Description:         "Compare Raft and Paxos",
		DueDate:             referenceNow.Add(48 * time.Hour),
		SubmissionType:      submissionType,
		AcceptedFileFormats: formats,
		CreatedAt:           referenceNow.Add(-24 * time.Hour),
		UpdatedAt:           referenceNow.Add(-24 * time.Hour),
	}
}

func studentActor() ActivityActor {
	return ActivityActor{ID: fixtureStudentID, Role: models.RoleStudent}
}

func teacherActor() ActivityActor {
	return ActivityActor{ID: fixtureTeacherID, Role: models.RoleTeacher}
}
