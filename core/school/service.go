package school

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/kymaza/darasa/core"
)

var (
	// errors
	ErrStudentNotFound = errors.New("student not found")
	ErrClassNotFound   = errors.New("class not found")
	ErrLectureNotFound = errors.New("lecture not found")
)

type (
	StudentRepository interface {
		QueryAllStudents(ctx context.Context) ([]Student, error)
		GetStudentByID(ctx context.Context, id string) (Student, error)
		CreateStudent(ctx context.Context, student Student) (Student, error)
		UpdateStudent(ctx context.Context, id string, patch core.Record) (Student, error)
		DeleteStudent(ctx context.Context, id string) error
	}

	ClassRepository interface {
		QueryAllClasses(ctx context.Context) ([]Class, error)
		GetClassByID(ctx context.Context, id string) (Class, error)
		CreateClass(ctx context.Context, class Class) (Class, error)
		UpdateClass(ctx context.Context, id string, patch core.Record) (Class, error)
		DeleteClass(ctx context.Context, id string) error
	}

	LectureRepository interface {
		QueryAllLectures(ctx context.Context) ([]Lecture, error)
		GetLectureByID(ctx context.Context, id string) (Lecture, error)
		CreateLecture(ctx context.Context, lecture Lecture) (Lecture, error)
		UpdateLecture(ctx context.Context, id string, patch core.Record) (Lecture, error)
		DeleteLecture(ctx context.Context, id string) error
	}

	StudentService struct {
		repo      StudentRepository
		classRepo ClassRepository
		log       core.Logger
	}

	ClassService struct {
		repo        ClassRepository
		studentRepo StudentRepository
		log         core.Logger
	}

	LectureService struct {
		repo      LectureRepository
		classRepo ClassRepository
		log       core.Logger
	}
)

func NewStudentService(repo StudentRepository, classRepo ClassRepository, log core.Logger) *StudentService {
	return &StudentService{repo: repo, classRepo: classRepo, log: log}
}

// checkClassExists maps a missing foreign class to a ValidationError so it
// surfaces before any remote write is attempted.
func checkClassExists(ctx context.Context, repo ClassRepository, classID string) error {
	if _, err := repo.GetClassByID(ctx, classID); err != nil {
		if pkgerrors.Cause(err) == ErrClassNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "class_id", Error: "referenced class does not exist"})
		}
		return err
	}
	return nil
}

func (svc *StudentService) Create(ctx context.Context, ns NewStudent) (Student, error) {
	if err := checkClassExists(ctx, svc.classRepo, ns.ClassID); err != nil {
		return Student{}, err
	}

	enrolledAt := time.Now().UTC().Truncate(24 * time.Hour)
	if ns.EnrolledAt != "" {
		enrolledAt, _ = time.Parse(core.DateFormat, ns.EnrolledAt)
	}
	st := Student{
		Name:       ns.Name,
		Email:      ns.Email,
		Phone:      ns.Phone,
		ClassID:    ns.ClassID,
		EnrolledAt: enrolledAt,
		Active:     true,
	}
	return svc.repo.CreateStudent(ctx, st)
}

func (svc *StudentService) QueryAll(ctx context.Context) ([]Student, error) {
	students, err := svc.repo.QueryAllStudents(ctx)
	if err != nil {
		return nil, err
	}

	// enrich with class names; a failed class read degrades the listing
	// instead of failing it
	classes, err := svc.classRepo.QueryAllClasses(ctx)
	if err != nil {
		svc.log.Warn("listing classes for student enrichment", err)
		return students, nil
	}
	names := make(map[string]string, len(classes))
	for _, cls := range classes {
		names[cls.ID] = cls.Name
	}
	for i := range students {
		students[i].ClassName = names[students[i].ClassID]
	}
	return students, nil
}

func (svc *StudentService) GetByID(ctx context.Context, id string) (Student, error) {
	st, err := svc.repo.GetStudentByID(ctx, id)
	if err != nil {
		return Student{}, err
	}
	// expected "not found" is tolerated in this enrichment path
	if cls, err := svc.classRepo.GetClassByID(ctx, st.ClassID); err == nil {
		st.ClassName = cls.Name
	} else if pkgerrors.Cause(err) != ErrClassNotFound {
		return Student{}, err
	}
	return st, nil
}

func (svc *StudentService) Update(ctx context.Context, id string, us UpdateStudent) (Student, error) {
	patch := core.Record{}
	if us.Name != "" {
		patch["name"] = us.Name
	}
	if us.Email != "" {
		patch["email"] = us.Email
	}
	if us.Phone != "" {
		patch["phone"] = us.Phone
	}
	if us.ClassID != "" {
		if err := checkClassExists(ctx, svc.classRepo, us.ClassID); err != nil {
			return Student{}, err
		}
		patch["classId"] = us.ClassID
	}
	if us.EnrolledAt != "" {
		enrolledAt, _ := time.Parse(core.DateFormat, us.EnrolledAt)
		patch["enrolledAt"] = enrolledAt
	}
	if us.Active != nil {
		patch["active"] = *us.Active
	}
	return svc.repo.UpdateStudent(ctx, id, patch)
}

func (svc *StudentService) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteStudent(ctx, id)
}

func NewClassService(repo ClassRepository, studentRepo StudentRepository, log core.Logger) *ClassService {
	return &ClassService{repo: repo, studentRepo: studentRepo, log: log}
}

func (svc *ClassService) Create(ctx context.Context, nc NewClass) (Class, error) {
	var startDate time.Time
	if nc.StartDate != "" {
		startDate, _ = time.Parse(core.DateFormat, nc.StartDate)
	}
	cls := Class{
		Name:      nc.Name,
		Teacher:   nc.Teacher,
		Room:      nc.Room,
		StartDate: startDate,
	}
	return svc.repo.CreateClass(ctx, cls)
}

func (svc *ClassService) QueryAll(ctx context.Context) ([]Class, error) {
	return svc.repo.QueryAllClasses(ctx)
}

func (svc *ClassService) GetByID(ctx context.Context, id string) (Class, error) {
	return svc.repo.GetClassByID(ctx, id)
}

func (svc *ClassService) Update(ctx context.Context, id string, uc UpdateClass) (Class, error) {
	patch := core.Record{}
	if uc.Name != "" {
		patch["name"] = uc.Name
	}
	if uc.Teacher != "" {
		patch["teacher"] = uc.Teacher
	}
	if uc.Room != "" {
		patch["room"] = uc.Room
	}
	if uc.StartDate != "" {
		startDate, _ := time.Parse(core.DateFormat, uc.StartDate)
		patch["startDate"] = startDate
	}
	return svc.repo.UpdateClass(ctx, id, patch)
}

// Delete refuses to remove a class that still has enrolled students.
func (svc *ClassService) Delete(ctx context.Context, id string) error {
	students, err := svc.studentRepo.QueryAllStudents(ctx)
	if err != nil {
		return err
	}
	for _, st := range students {
		if st.ClassID == id {
			return core.NewValidationError(
				errors.New("class still has enrolled students"),
				core.FieldError{Field: "id", Error: "class still has enrolled students"},
			)
		}
	}
	return svc.repo.DeleteClass(ctx, id)
}

func NewLectureService(repo LectureRepository, classRepo ClassRepository, log core.Logger) *LectureService {
	return &LectureService{repo: repo, classRepo: classRepo, log: log}
}

func (svc *LectureService) Create(ctx context.Context, nl NewLecture) (Lecture, error) {
	if err := checkClassExists(ctx, svc.classRepo, nl.ClassID); err != nil {
		return Lecture{}, err
	}
	date, _ := time.Parse(core.DateFormat, nl.Date)
	lec := Lecture{
		ClassID:     nl.ClassID,
		Topic:       nl.Topic,
		Date:        date,
		DurationMin: nl.DurationMin,
	}
	return svc.repo.CreateLecture(ctx, lec)
}

func (svc *LectureService) QueryAll(ctx context.Context) ([]Lecture, error) {
	return svc.repo.QueryAllLectures(ctx)
}

// QueryByClass filters the lecture snapshot in memory; the remote fetch
// dominates the cost either way.
func (svc *LectureService) QueryByClass(ctx context.Context, classID string) ([]Lecture, error) {
	all, err := svc.repo.QueryAllLectures(ctx)
	if err != nil {
		return nil, err
	}
	lectures := make([]Lecture, 0, len(all))
	for _, lec := range all {
		if lec.ClassID == classID {
			lectures = append(lectures, lec)
		}
	}
	return lectures, nil
}

func (svc *LectureService) GetByID(ctx context.Context, id string) (Lecture, error) {
	return svc.repo.GetLectureByID(ctx, id)
}

func (svc *LectureService) Update(ctx context.Context, id string, ul UpdateLecture) (Lecture, error) {
	patch := core.Record{}
	if ul.Topic != "" {
		patch["topic"] = ul.Topic
	}
	if ul.Date != "" {
		date, _ := time.Parse(core.DateFormat, ul.Date)
		patch["date"] = date
	}
	if ul.DurationMin > 0 {
		patch["durationMin"] = float64(ul.DurationMin)
	}
	return svc.repo.UpdateLecture(ctx, id, patch)
}

func (svc *LectureService) Delete(ctx context.Context, id string) error {
	return svc.repo.DeleteLecture(ctx, id)
}
