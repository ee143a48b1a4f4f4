package classwork

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kymaza/darasa/core"
)

// Attendance statuses
const (
	StatusPresent = "present"
	StatusLate    = "late"
	StatusAbsent  = "absent"
	StatusExcused = "excused"
)

var Statuses = []string{StatusPresent, StatusLate, StatusAbsent, StatusExcused}

type Attendance struct {
	ID        string `json:"id"`
	LectureID string `json:"lecture_id"`
	StudentID string `json:"student_id"`
	Status    string `json:"status"`
	Note      string `json:"note"`
}

type Homework struct {
	ID        string  `json:"id"`
	LectureID string  `json:"lecture_id"`
	StudentID string  `json:"student_id"`
	Done      bool    `json:"done"`
	Grade     float64 `json:"grade"`
	Note      string  `json:"note"`
}

type Score struct {
	ID        string    `json:"id"`
	ExamName  string    `json:"exam_name"`
	StudentID string    `json:"student_id"`
	ClassID   string    `json:"class_id"`
	Points    float64   `json:"points"`
	TakenAt   time.Time `json:"taken_at"`
}

// SheetEntry is one edited roster row of the lecture save flow: the
// attendance and homework state for one student, as submitted by the UI.
type SheetEntry struct {
	StudentID      string  `json:"student_id" validate:"required,entityid"`
	Status         string  `json:"status" validate:"required,oneof=present late absent excused"`
	AttendanceNote string  `json:"attendance_note"`
	HomeworkDone   bool    `json:"homework_done"`
	HomeworkGrade  float64 `json:"homework_grade" validate:"gte=0,lte=100"`
	HomeworkNote   string  `json:"homework_note"`
}

// SaveSheet is the reconciliation payload for one lecture.
type SaveSheet struct {
	Entries []SheetEntry `json:"entries" validate:"required,min=1,dive"`
}

func (ss *SaveSheet) Validate(validate *validator.Validate) error {
	for i := range ss.Entries {
		ss.Entries[i].StudentID = core.CleanString(ss.Entries[i].StudentID)
		ss.Entries[i].Status = core.CleanString(ss.Entries[i].Status, true /* lower */)
		ss.Entries[i].AttendanceNote = core.CleanString(ss.Entries[i].AttendanceNote)
		ss.Entries[i].HomeworkNote = core.CleanString(ss.Entries[i].HomeworkNote)
	}
	if err := validate.Struct(ss); err != nil {
		return err
	}

	// two entries for one student would target the same row, last write
	// winning silently
	seen := make(map[string]bool, len(ss.Entries))
	for _, entry := range ss.Entries {
		if seen[entry.StudentID] {
			return core.NewValidationError(
				errors.New("duplicate roster entry"),
				core.FieldError{Field: "student_id", Error: "duplicate entry for student " + entry.StudentID},
			)
		}
		seen[entry.StudentID] = true
	}
	return nil
}

type (
	AttendanceResult struct {
		Inserted int          `json:"inserted"`
		Updated  int          `json:"updated"`
		Saved    []Attendance `json:"saved"`
	}

	HomeworkResult struct {
		Inserted int        `json:"inserted"`
		Updated  int        `json:"updated"`
		Saved    []Homework `json:"saved"`
	}

	// SaveResult reports, per entity type, what a reconciliation wrote.
	SaveResult struct {
		Attendance AttendanceResult `json:"attendance"`
		Homework   HomeworkResult   `json:"homework"`
	}
)

// RosterEntry merges a student with their attendance and homework state
// for one lecture; nil pointers mean "no record yet".
type RosterEntry struct {
	StudentID   string      `json:"student_id"`
	StudentName string      `json:"student_name"`
	Attendance  *Attendance `json:"attendance"`
	Homework    *Homework   `json:"homework"`
}

type NewScore struct {
	ExamName  string  `json:"exam_name" validate:"required"`
	StudentID string  `json:"student_id" validate:"required,entityid"`
	ClassID   string  `json:"class_id" validate:"required,entityid"`
	Points    float64 `json:"points" validate:"gte=0,lte=100"`
	TakenAt   string  `json:"taken_at" validate:"omitempty,datetime=2006-01-02"`
}

func (ns *NewScore) Validate(validate *validator.Validate) error {
	ns.ExamName = core.CleanString(ns.ExamName)
	ns.StudentID = core.CleanString(ns.StudentID)
	ns.ClassID = core.CleanString(ns.ClassID)
	return validate.Struct(ns)
}

type UpdateScore struct {
	ExamName string   `json:"exam_name"`
	Points   *float64 `json:"points" validate:"omitempty,gte=0,lte=100"`
	TakenAt  string   `json:"taken_at" validate:"omitempty,datetime=2006-01-02"`
}

func (us *UpdateScore) Validate(validate *validator.Validate) error {
	us.ExamName = core.CleanString(us.ExamName)
	return validate.Struct(us)
}
