package classwork

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"time"

	pkgerrors "github.com/pkg/errors"

	"github.com/kymaza/darasa/core"
	"github.com/kymaza/darasa/core/school"
)

var (
	// errors
	ErrScoreNotFound = errors.New("score not found")
)

type (
	AttendanceRepository interface {
		QueryAllAttendance(ctx context.Context) ([]Attendance, error)
		QueryAttendanceByLecture(ctx context.Context, lectureID string) ([]Attendance, error)
		// ReconcileAttendance diffs the edited sheet against the stored
		// baseline for the lecture and writes only what changed.
		ReconcileAttendance(ctx context.Context, lectureID string, edited []Attendance) (AttendanceResult, error)
	}

	HomeworkRepository interface {
		QueryAllHomework(ctx context.Context) ([]Homework, error)
		QueryHomeworkByLecture(ctx context.Context, lectureID string) ([]Homework, error)
		ReconcileHomework(ctx context.Context, lectureID string, edited []Homework) (HomeworkResult, error)
	}

	ScoreRepository interface {
		QueryAllScores(ctx context.Context) ([]Score, error)
		GetScoreByID(ctx context.Context, id string) (Score, error)
		CreateScore(ctx context.Context, score Score) (Score, error)
		UpdateScore(ctx context.Context, id string, patch core.Record) (Score, error)
		DeleteScore(ctx context.Context, id string) error
	}

	// Service exposes the lecture roster, the save flow and score CRUD.
	Service struct {
		attRepo     AttendanceRepository
		hwRepo      HomeworkRepository
		scoreRepo   ScoreRepository
		studentRepo school.StudentRepository
		lectureRepo school.LectureRepository
		classRepo   school.ClassRepository
		mailSvc     core.EmailService
		log         core.Logger
	}
)

func NewService(
	attRepo AttendanceRepository,
	hwRepo HomeworkRepository,
	scoreRepo ScoreRepository,
	studentRepo school.StudentRepository,
	lectureRepo school.LectureRepository,
	classRepo school.ClassRepository,
	mailSvc core.EmailService,
	log core.Logger,
) *Service {
	return &Service{
		attRepo:     attRepo,
		hwRepo:      hwRepo,
		scoreRepo:   scoreRepo,
		studentRepo: studentRepo,
		lectureRepo: lectureRepo,
		classRepo:   classRepo,
		mailSvc:     mailSvc,
		log:         log,
	}
}

// Roster returns the lecture's class roster merged with any attendance and
// homework already recorded for the lecture.
func (svc *Service) Roster(ctx context.Context, lectureID string) ([]RosterEntry, error) {
	lec, err := svc.lectureRepo.GetLectureByID(ctx, lectureID)
	if err != nil {
		return nil, err
	}

	students, err := svc.studentRepo.QueryAllStudents(ctx)
	if err != nil {
		return nil, err
	}
	attendance, err := svc.attRepo.QueryAttendanceByLecture(ctx, lectureID)
	if err != nil {
		return nil, err
	}
	homework, err := svc.hwRepo.QueryHomeworkByLecture(ctx, lectureID)
	if err != nil {
		return nil, err
	}

	attByStudent := make(map[string]Attendance, len(attendance))
	for _, at := range attendance {
		attByStudent[at.StudentID] = at
	}
	hwByStudent := make(map[string]Homework, len(homework))
	for _, hw := range homework {
		hwByStudent[hw.StudentID] = hw
	}

	roster := make([]RosterEntry, 0, len(students))
	for _, st := range students {
		if st.ClassID != lec.ClassID || !st.Active {
			continue
		}
		entry := RosterEntry{StudentID: st.ID, StudentName: st.Name}
		if at, ok := attByStudent[st.ID]; ok {
			entry.Attendance = &at
		}
		if hw, ok := hwByStudent[st.ID]; ok {
			entry.Homework = &hw
		}
		roster = append(roster, entry)
	}
	return roster, nil
}

// Save runs the reconciliation for one lecture's edited sheet: attendance
// and homework share the submitted entries. All validation happens before
// the first remote write.
func (svc *Service) Save(ctx context.Context, lectureID string, sheet SaveSheet) (SaveResult, error) {
	lec, err := svc.lectureRepo.GetLectureByID(ctx, lectureID)
	if err != nil {
		return SaveResult{}, err
	}

	students, err := svc.studentRepo.QueryAllStudents(ctx)
	if err != nil {
		return SaveResult{}, err
	}
	byID := make(map[string]school.Student, len(students))
	for _, st := range students {
		byID[st.ID] = st
	}
	for _, entry := range sheet.Entries {
		if _, ok := byID[entry.StudentID]; !ok {
			return SaveResult{}, core.NewValidationError(
				errors.New("unknown student "+entry.StudentID),
				core.FieldError{Field: "student_id", Error: "unknown student " + entry.StudentID},
			)
		}
	}

	attendance := make([]Attendance, 0, len(sheet.Entries))
	homework := make([]Homework, 0, len(sheet.Entries))
	for _, entry := range sheet.Entries {
		attendance = append(attendance, Attendance{
			LectureID: lectureID,
			StudentID: entry.StudentID,
			Status:    entry.Status,
			Note:      entry.AttendanceNote,
		})
		homework = append(homework, Homework{
			LectureID: lectureID,
			StudentID: entry.StudentID,
			Done:      entry.HomeworkDone,
			Grade:     entry.HomeworkGrade,
			Note:      entry.HomeworkNote,
		})
	}

	var res SaveResult
	if res.Attendance, err = svc.attRepo.ReconcileAttendance(ctx, lectureID, attendance); err != nil {
		return res, err
	}
	if res.Homework, err = svc.hwRepo.ReconcileHomework(ctx, lectureID, homework); err != nil {
		// attendance is already committed at this point; the caller must
		// re-submit for the homework remainder (no rollback)
		return res, err
	}

	svc.notifyAbsences(lec, res.Attendance.Saved, byID)
	return res, nil
}

// notifyAbsences mails students marked absent during the save.
// Fire-and-forget: failures are the mail service's to log.
func (svc *Service) notifyAbsences(lec school.Lecture, saved []Attendance, students map[string]school.Student) {
	var messages []*core.EmailMessage
	for _, at := range saved {
		if at.Status != StatusAbsent {
			continue
		}
		st, ok := students[at.StudentID]
		if !ok || st.Email == "" {
			continue
		}
		messages = append(messages, &core.EmailMessage{
			To:      []mail.Address{{Name: st.Name, Address: st.Email}},
			Subject: "Missed lecture: " + lec.Topic,
			Body: fmt.Sprintf(
				"Hi %s,\n\nYou were marked absent for the lecture %q on %s.\n"+
					"Please contact your teacher to catch up.\n",
				st.Name, lec.Topic, lec.Date.Format(core.DateFormat)),
		})
	}
	if len(messages) > 0 {
		svc.mailSvc.SendMessages(messages...)
	}
}

func (svc *Service) CreateScore(ctx context.Context, ns NewScore) (Score, error) {
	if _, err := svc.studentRepo.GetStudentByID(ctx, ns.StudentID); err != nil {
		if pkgerrors.Cause(err) == school.ErrStudentNotFound {
			return Score{}, core.NewValidationError(err, core.FieldError{Field: "student_id", Error: "referenced student does not exist"})
		}
		return Score{}, err
	}
	if _, err := svc.classRepo.GetClassByID(ctx, ns.ClassID); err != nil {
		if pkgerrors.Cause(err) == school.ErrClassNotFound {
			return Score{}, core.NewValidationError(err, core.FieldError{Field: "class_id", Error: "referenced class does not exist"})
		}
		return Score{}, err
	}

	takenAt := time.Now().UTC().Truncate(24 * time.Hour)
	if ns.TakenAt != "" {
		takenAt, _ = time.Parse(core.DateFormat, ns.TakenAt)
	}
	score := Score{
		ExamName:  ns.ExamName,
		StudentID: ns.StudentID,
		ClassID:   ns.ClassID,
		Points:    ns.Points,
		TakenAt:   takenAt,
	}
	return svc.scoreRepo.CreateScore(ctx, score)
}

func (svc *Service) QueryAllScores(ctx context.Context) ([]Score, error) {
	return svc.scoreRepo.QueryAllScores(ctx)
}

func (svc *Service) GetScoreByID(ctx context.Context, id string) (Score, error) {
	return svc.scoreRepo.GetScoreByID(ctx, id)
}

func (svc *Service) UpdateScore(ctx context.Context, id string, us UpdateScore) (Score, error) {
	patch := core.Record{}
	if us.ExamName != "" {
		patch["examName"] = us.ExamName
	}
	if us.Points != nil {
		patch["points"] = *us.Points
	}
	if us.TakenAt != "" {
		takenAt, _ := time.Parse(core.DateFormat, us.TakenAt)
		patch["takenAt"] = takenAt
	}
	return svc.scoreRepo.UpdateScore(ctx, id, patch)
}

func (svc *Service) DeleteScore(ctx context.Context, id string) error {
	return svc.scoreRepo.DeleteScore(ctx, id)
}
