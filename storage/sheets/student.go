package sheets

import (
	"context"

	"github.com/pkg/errors"

	"github.com/kymaza/darasa/core"
	"github.com/kymaza/darasa/core/school"
)

var studentSchema = mustSchema(Schema{
	Sheet: "students",
	Fields: []Field{
		{Name: "id", Type: String},
		{Name: "name", Type: String},
		{Name: "email", Type: String},
		{Name: "phone", Type: String},
		{Name: "classId", Type: String},
		{Name: "enrolledAt", Type: Date},
		{Name: "active", Type: Bool},
	},
})

const studentIDPrefix = "S"

type studentRepository struct {
	repo *repository
}

var _ school.StudentRepository = (*studentRepository)(nil) // interface compliance check

func NewStudentRepository(eng *Engine) *studentRepository {
	return &studentRepository{repo: eng.newRepository(studentSchema, studentIDPrefix)}
}

func (sr studentRepository) marshal(st school.Student) core.Record {
	return core.Record{
		"id":         st.ID,
		"name":       st.Name,
		"email":      st.Email,
		"phone":      st.Phone,
		"classId":    st.ClassID,
		"enrolledAt": st.EnrolledAt,
		"active":     st.Active,
	}
}

func (sr studentRepository) unmarshal(rec core.Record) school.Student {
	return school.Student{
		ID:         rec.ID(),
		Name:       recString(rec, "name"),
		Email:      recString(rec, "email"),
		Phone:      recString(rec, "phone"),
		ClassID:    recString(rec, "classId"),
		EnrolledAt: recTime(rec, "enrolledAt"),
		Active:     recBool(rec, "active"),
	}
}

// trapNoRowErr maps a missing row to school.ErrStudentNotFound.
func (sr studentRepository) trapNoRowErr(err error, msg string) error {
	if errors.Cause(err) == errNoSuchRow {
		return school.ErrStudentNotFound
	}
	return errors.Wrap(err, msg)
}

func (sr studentRepository) QueryAllStudents(ctx context.Context) ([]school.Student, error) {
	records, err := sr.repo.getAll(ctx)
	if err != nil {
		return nil, err
	}
	students := make([]school.Student, 0, len(records))
	for _, rec := range records {
		students = append(students, sr.unmarshal(rec))
	}
	return students, nil
}

func (sr studentRepository) GetStudentByID(ctx context.Context, id string) (school.Student, error) {
	rec, _, err := sr.repo.getByID(ctx, id)
	if err != nil {
		return school.Student{}, sr.trapNoRowErr(err, "finding student")
	}
	return sr.unmarshal(rec), nil
}

func (sr studentRepository) CreateStudent(ctx context.Context, st school.Student) (school.Student, error) {
	rec, err := sr.repo.create(ctx, sr.marshal(st))
	if err != nil {
		return school.Student{}, err
	}
	return sr.unmarshal(rec), nil
}

func (sr studentRepository) UpdateStudent(ctx context.Context, id string, patch core.Record) (school.Student, error) {
	rec, err := sr.repo.update(ctx, id, patch)
	if err != nil {
		return school.Student{}, sr.trapNoRowErr(err, "updating student")
	}
	return sr.unmarshal(rec), nil
}

func (sr studentRepository) DeleteStudent(ctx context.Context, id string) error {
	if err := sr.repo.delete(ctx, id); err != nil {
		return sr.trapNoRowErr(err, "deleting student")
	}
	return nil
}
