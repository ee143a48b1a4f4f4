package sheets

import (
	"context"

	"github.com/pkg/errors"

	"github.com/kymaza/darasa/core"
	"github.com/kymaza/darasa/core/classwork"
)

var attendanceSchema = mustSchema(Schema{
	Sheet: "attendance",
	Fields: []Field{
		{Name: "id", Type: String},
		{Name: "lectureId", Type: String},
		{Name: "studentId", Type: String},
		{Name: "status", Type: String},
		{Name: "note", Type: String},
	},
})

var homeworkSchema = mustSchema(Schema{
	Sheet: "homework",
	Fields: []Field{
		{Name: "id", Type: String},
		{Name: "lectureId", Type: String},
		{Name: "studentId", Type: String},
		{Name: "done", Type: Bool},
		{Name: "grade", Type: Number},
		{Name: "note", Type: String},
	},
})

var scoreSchema = mustSchema(Schema{
	Sheet: "scores",
	Fields: []Field{
		{Name: "id", Type: String},
		{Name: "examName", Type: String},
		{Name: "studentId", Type: String},
		{Name: "classId", Type: String},
		{Name: "points", Type: Number},
		{Name: "takenAt", Type: Date},
	},
})

const (
	attendanceIDPrefix = "AT"
	homeworkIDPrefix   = "HW"
	scoreIDPrefix      = "SC"
)

// sheetKeyFields identifies one roster row: one record per (lecture,
// student) pair. The same ordered list is used for index build and
// lookup.
var sheetKeyFields = []string{"lectureId", "studentId"}

type attendanceRepository struct {
	repo *repository
}

var _ classwork.AttendanceRepository = (*attendanceRepository)(nil) // interface compliance check

func NewAttendanceRepository(eng *Engine) *attendanceRepository {
	return &attendanceRepository{repo: eng.newRepository(attendanceSchema, attendanceIDPrefix)}
}

func (ar attendanceRepository) marshal(at classwork.Attendance) core.Record {
	return core.Record{
		"id":        at.ID,
		"lectureId": at.LectureID,
		"studentId": at.StudentID,
		"status":    at.Status,
		"note":      at.Note,
	}
}

func (ar attendanceRepository) unmarshal(rec core.Record) classwork.Attendance {
	return classwork.Attendance{
		ID:        rec.ID(),
		LectureID: recString(rec, "lectureId"),
		StudentID: recString(rec, "studentId"),
		Status:    recString(rec, "status"),
		Note:      recString(rec, "note"),
	}
}

func (ar attendanceRepository) QueryAllAttendance(ctx context.Context) ([]classwork.Attendance, error) {
	records, err := ar.repo.getAll(ctx)
	if err != nil {
		return nil, err
	}
	attendance := make([]classwork.Attendance, 0, len(records))
	for _, rec := range records {
		attendance = append(attendance, ar.unmarshal(rec))
	}
	return attendance, nil
}

func (ar attendanceRepository) QueryAttendanceByLecture(ctx context.Context, lectureID string) ([]classwork.Attendance, error) {
	all, err := ar.QueryAllAttendance(ctx)
	if err != nil {
		return nil, err
	}
	attendance := make([]classwork.Attendance, 0, len(all))
	for _, at := range all {
		if at.LectureID == lectureID {
			attendance = append(attendance, at)
		}
	}
	return attendance, nil
}

func (ar attendanceRepository) ReconcileAttendance(ctx context.Context, lectureID string, edited []classwork.Attendance) (classwork.AttendanceResult, error) {
	records := make([]core.Record, 0, len(edited))
	for _, at := range edited {
		records = append(records, ar.marshal(at))
	}
	res, err := ar.repo.reconcile(ctx, "lectureId", lectureID, records, sheetKeyFields, []string{"status", "note"})
	out := classwork.AttendanceResult{Inserted: res.Inserted, Updated: res.Updated}
	for _, rec := range res.Saved {
		out.Saved = append(out.Saved, ar.unmarshal(rec))
	}
	if err != nil {
		return out, errors.Wrap(err, "reconciling attendance")
	}
	return out, nil
}

type homeworkRepository struct {
	repo *repository
}

var _ classwork.HomeworkRepository = (*homeworkRepository)(nil) // interface compliance check

func NewHomeworkRepository(eng *Engine) *homeworkRepository {
	return &homeworkRepository{repo: eng.newRepository(homeworkSchema, homeworkIDPrefix)}
}

func (hr homeworkRepository) marshal(hw classwork.Homework) core.Record {
	return core.Record{
		"id":        hw.ID,
		"lectureId": hw.LectureID,
		"studentId": hw.StudentID,
		"done":      hw.Done,
		"grade":     hw.Grade,
		"note":      hw.Note,
	}
}

func (hr homeworkRepository) unmarshal(rec core.Record) classwork.Homework {
	return classwork.Homework{
		ID:        rec.ID(),
		LectureID: recString(rec, "lectureId"),
		StudentID: recString(rec, "studentId"),
		Done:      recBool(rec, "done"),
		Grade:     recFloat(rec, "grade"),
		Note:      recString(rec, "note"),
	}
}

func (hr homeworkRepository) QueryAllHomework(ctx context.Context) ([]classwork.Homework, error) {
	records, err := hr.repo.getAll(ctx)
	if err != nil {
		return nil, err
	}
	homework := make([]classwork.Homework, 0, len(records))
	for _, rec := range records {
		homework = append(homework, hr.unmarshal(rec))
	}
	return homework, nil
}

func (hr homeworkRepository) QueryHomeworkByLecture(ctx context.Context, lectureID string) ([]classwork.Homework, error) {
	all, err := hr.QueryAllHomework(ctx)
	if err != nil {
		return nil, err
	}
	homework := make([]classwork.Homework, 0, len(all))
	for _, hw := range all {
		if hw.LectureID == lectureID {
			homework = append(homework, hw)
		}
	}
	return homework, nil
}

func (hr homeworkRepository) ReconcileHomework(ctx context.Context, lectureID string, edited []classwork.Homework) (classwork.HomeworkResult, error) {
	records := make([]core.Record, 0, len(edited))
	for _, hw := range edited {
		records = append(records, hr.marshal(hw))
	}
	res, err := hr.repo.reconcile(ctx, "lectureId", lectureID, records, sheetKeyFields, []string{"done", "grade", "note"})
	out := classwork.HomeworkResult{Inserted: res.Inserted, Updated: res.Updated}
	for _, rec := range res.Saved {
		out.Saved = append(out.Saved, hr.unmarshal(rec))
	}
	if err != nil {
		return out, errors.Wrap(err, "reconciling homework")
	}
	return out, nil
}

type scoreRepository struct {
	repo *repository
}

var _ classwork.ScoreRepository = (*scoreRepository)(nil) // interface compliance check

func NewScoreRepository(eng *Engine) *scoreRepository {
	return &scoreRepository{repo: eng.newRepository(scoreSchema, scoreIDPrefix)}
}

func (scr scoreRepository) marshal(sc classwork.Score) core.Record {
	return core.Record{
		"id":        sc.ID,
		"examName":  sc.ExamName,
		"studentId": sc.StudentID,
		"classId":   sc.ClassID,
		"points":    sc.Points,
		"takenAt":   sc.TakenAt,
	}
}

func (scr scoreRepository) unmarshal(rec core.Record) classwork.Score {
	return classwork.Score{
		ID:        rec.ID(),
		ExamName:  recString(rec, "examName"),
		StudentID: recString(rec, "studentId"),
		ClassID:   recString(rec, "classId"),
		Points:    recFloat(rec, "points"),
		TakenAt:   recTime(rec, "takenAt"),
	}
}

func (scr scoreRepository) trapNoRowErr(err error, msg string) error {
	if errors.Cause(err) == errNoSuchRow {
		return classwork.ErrScoreNotFound
	}
	return errors.Wrap(err, msg)
}

func (scr scoreRepository) QueryAllScores(ctx context.Context) ([]classwork.Score, error) {
	records, err := scr.repo.getAll(ctx)
	if err != nil {
		return nil, err
	}
	scores := make([]classwork.Score, 0, len(records))
	for _, rec := range records {
		scores = append(scores, scr.unmarshal(rec))
	}
	return scores, nil
}

func (scr scoreRepository) GetScoreByID(ctx context.Context, id string) (classwork.Score, error) {
	rec, _, err := scr.repo.getByID(ctx, id)
	if err != nil {
		return classwork.Score{}, scr.trapNoRowErr(err, "finding score")
	}
	return scr.unmarshal(rec), nil
}

func (scr scoreRepository) CreateScore(ctx context.Context, sc classwork.Score) (classwork.Score, error) {
	rec, err := scr.repo.create(ctx, scr.marshal(sc))
	if err != nil {
		return classwork.Score{}, err
	}
	return scr.unmarshal(rec), nil
}

func (scr scoreRepository) UpdateScore(ctx context.Context, id string, patch core.Record) (classwork.Score, error) {
	rec, err := scr.repo.update(ctx, id, patch)
	if err != nil {
		return classwork.Score{}, scr.trapNoRowErr(err, "updating score")
	}
	return scr.unmarshal(rec), nil
}

func (scr scoreRepository) DeleteScore(ctx context.Context, id string) error {
	if err := scr.repo.delete(ctx, id); err != nil {
		return scr.trapNoRowErr(err, "deleting score")
	}
	return nil
}
