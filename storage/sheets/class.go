package sheets

import (
	"context"

	"github.com/pkg/errors"

	"github.com/kymaza/darasa/core"
	"github.com/kymaza/darasa/core/school"
)

var classSchema = mustSchema(Schema{
	Sheet: "classes",
	Fields: []Field{
		{Name: "id", Type: String},
		{Name: "name", Type: String},
		{Name: "teacher", Type: String},
		{Name: "room", Type: String},
		{Name: "startDate", Type: Date},
	},
})

var lectureSchema = mustSchema(Schema{
	Sheet: "lectures",
	Fields: []Field{
		{Name: "id", Type: String},
		{Name: "classId", Type: String},
		{Name: "topic", Type: String},
		{Name: "date", Type: Date},
		{Name: "durationMin", Type: Number},
	},
})

const (
	classIDPrefix   = "C"
	lectureIDPrefix = "L"
)

type classRepository struct {
	repo *repository
}

var _ school.ClassRepository = (*classRepository)(nil) // interface compliance check

func NewClassRepository(eng *Engine) *classRepository {
	return &classRepository{repo: eng.newRepository(classSchema, classIDPrefix)}
}

func (cr classRepository) marshal(cls school.Class) core.Record {
	return core.Record{
		"id":        cls.ID,
		"name":      cls.Name,
		"teacher":   cls.Teacher,
		"room":      cls.Room,
		"startDate": cls.StartDate,
	}
}

func (cr classRepository) unmarshal(rec core.Record) school.Class {
	return school.Class{
		ID:        rec.ID(),
		Name:      recString(rec, "name"),
		Teacher:   recString(rec, "teacher"),
		Room:      recString(rec, "room"),
		StartDate: recTime(rec, "startDate"),
	}
}

func (cr classRepository) trapNoRowErr(err error, msg string) error {
	if errors.Cause(err) == errNoSuchRow {
		return school.ErrClassNotFound
	}
	return errors.Wrap(err, msg)
}

func (cr classRepository) QueryAllClasses(ctx context.Context) ([]school.Class, error) {
	records, err := cr.repo.getAll(ctx)
	if err != nil {
		return nil, err
	}
	classes := make([]school.Class, 0, len(records))
	for _, rec := range records {
		classes = append(classes, cr.unmarshal(rec))
	}
	return classes, nil
}

func (cr classRepository) GetClassByID(ctx context.Context, id string) (school.Class, error) {
	rec, _, err := cr.repo.getByID(ctx, id)
	if err != nil {
		return school.Class{}, cr.trapNoRowErr(err, "finding class")
	}
	return cr.unmarshal(rec), nil
}

func (cr classRepository) CreateClass(ctx context.Context, cls school.Class) (school.Class, error) {
	rec, err := cr.repo.create(ctx, cr.marshal(cls))
	if err != nil {
		return school.Class{}, err
	}
	return cr.unmarshal(rec), nil
}

func (cr classRepository) UpdateClass(ctx context.Context, id string, patch core.Record) (school.Class, error) {
	rec, err := cr.repo.update(ctx, id, patch)
	if err != nil {
		return school.Class{}, cr.trapNoRowErr(err, "updating class")
	}
	return cr.unmarshal(rec), nil
}

func (cr classRepository) DeleteClass(ctx context.Context, id string) error {
	if err := cr.repo.delete(ctx, id); err != nil {
		return cr.trapNoRowErr(err, "deleting class")
	}
	return nil
}

type lectureRepository struct {
	repo *repository
}

var _ school.LectureRepository = (*lectureRepository)(nil) // interface compliance check

func NewLectureRepository(eng *Engine) *lectureRepository {
	return &lectureRepository{repo: eng.newRepository(lectureSchema, lectureIDPrefix)}
}

func (lr lectureRepository) marshal(lec school.Lecture) core.Record {
	return core.Record{
		"id":          lec.ID,
		"classId":     lec.ClassID,
		"topic":       lec.Topic,
		"date":        lec.Date,
		"durationMin": float64(lec.DurationMin),
	}
}

func (lr lectureRepository) unmarshal(rec core.Record) school.Lecture {
	return school.Lecture{
		ID:          rec.ID(),
		ClassID:     recString(rec, "classId"),
		Topic:       recString(rec, "topic"),
		Date:        recTime(rec, "date"),
		DurationMin: int(recFloat(rec, "durationMin")),
	}
}

func (lr lectureRepository) trapNoRowErr(err error, msg string) error {
	if errors.Cause(err) == errNoSuchRow {
		return school.ErrLectureNotFound
	}
	return errors.Wrap(err, msg)
}

func (lr lectureRepository) QueryAllLectures(ctx context.Context) ([]school.Lecture, error) {
	records, err := lr.repo.getAll(ctx)
	if err != nil {
		return nil, err
	}
	lectures := make([]school.Lecture, 0, len(records))
	for _, rec := range records {
		lectures = append(lectures, lr.unmarshal(rec))
	}
	return lectures, nil
}

func (lr lectureRepository) GetLectureByID(ctx context.Context, id string) (school.Lecture, error) {
	rec, _, err := lr.repo.getByID(ctx, id)
	if err != nil {
		return school.Lecture{}, lr.trapNoRowErr(err, "finding lecture")
	}
	return lr.unmarshal(rec), nil
}

func (lr lectureRepository) CreateLecture(ctx context.Context, lec school.Lecture) (school.Lecture, error) {
	rec, err := lr.repo.create(ctx, lr.marshal(lec))
	if err != nil {
		return school.Lecture{}, err
	}
	return lr.unmarshal(rec), nil
}

func (lr lectureRepository) UpdateLecture(ctx context.Context, id string, patch core.Record) (school.Lecture, error) {
	rec, err := lr.repo.update(ctx, id, patch)
	if err != nil {
		return school.Lecture{}, lr.trapNoRowErr(err, "updating lecture")
	}
	return lr.unmarshal(rec), nil
}

func (lr lectureRepository) DeleteLecture(ctx context.Context, id string) error {
	if err := lr.repo.delete(ctx, id); err != nil {
		return lr.trapNoRowErr(err, "deleting lecture")
	}
	return nil
}
