package school

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/kymaza/darasa/core"
)

type Student struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Email      string    `json:"email"`
	Phone      string    `json:"phone"`
	ClassID    string    `json:"class_id"`
	EnrolledAt time.Time `json:"enrolled_at"`
	Active     bool      `json:"is_active"`

	// ClassName is enriched from the class snapshot on reads; it is not
	// stored on the student row.
	ClassName string `json:"class_name,omitempty"`
}

type Class struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Teacher   string    `json:"teacher"`
	Room      string    `json:"room"`
	StartDate time.Time `json:"start_date"`
}

type Lecture struct {
	ID          string    `json:"id"`
	ClassID     string    `json:"class_id"`
	Topic       string    `json:"topic"`
	Date        time.Time `json:"date"`
	DurationMin int       `json:"duration_min"`
}

// NewStudent contains information needed to enroll a new Student.
type NewStudent struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone"`
	ClassID    string `json:"class_id" validate:"required,entityid"`
	EnrolledAt string `json:"enrolled_at" validate:"omitempty,datetime=2006-01-02"`
}

func (ns *NewStudent) Validate(validate *validator.Validate) error {
	ns.Name = core.CleanString(ns.Name)
	ns.Email = core.CleanString(ns.Email, true /* lower */)
	ns.Phone = core.CleanString(ns.Phone)
	ns.ClassID = core.CleanString(ns.ClassID)
	return validate.Struct(ns)
}

// UpdateStudent defines what information may be provided to modify an
// existing Student. Zero-valued fields are left untouched.
type UpdateStudent struct {
	Name       string `json:"name"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone"`
	ClassID    string `json:"class_id" validate:"omitempty,entityid"`
	EnrolledAt string `json:"enrolled_at" validate:"omitempty,datetime=2006-01-02"`
	Active     *bool  `json:"is_active"`
}

func (us *UpdateStudent) Validate(validate *validator.Validate) error {
	us.Name = core.CleanString(us.Name)
	us.Email = core.CleanString(us.Email, true /* lower */)
	us.Phone = core.CleanString(us.Phone)
	us.ClassID = core.CleanString(us.ClassID)
	return validate.Struct(us)
}

type NewClass struct {
	Name      string `json:"name" validate:"required"`
	Teacher   string `json:"teacher" validate:"required"`
	Room      string `json:"room"`
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
}

func (nc *NewClass) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	nc.Teacher = core.CleanString(nc.Teacher)
	nc.Room = core.CleanString(nc.Room)
	return validate.Struct(nc)
}

type UpdateClass struct {
	Name      string `json:"name"`
	Teacher   string `json:"teacher"`
	Room      string `json:"room"`
	StartDate string `json:"start_date" validate:"omitempty,datetime=2006-01-02"`
}

func (uc *UpdateClass) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	uc.Teacher = core.CleanString(uc.Teacher)
	uc.Room = core.CleanString(uc.Room)
	return validate.Struct(uc)
}

type NewLecture struct {
	ClassID     string `json:"class_id" validate:"required,entityid"`
	Topic       string `json:"topic" validate:"required"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	DurationMin int    `json:"duration_min" validate:"omitempty,gt=0,lte=480"`
}

func (nl *NewLecture) Validate(validate *validator.Validate) error {
	nl.ClassID = core.CleanString(nl.ClassID)
	nl.Topic = core.CleanString(nl.Topic)
	return validate.Struct(nl)
}

type UpdateLecture struct {
	Topic       string `json:"topic"`
	Date        string `json:"date" validate:"omitempty,datetime=2006-01-02"`
	DurationMin int    `json:"duration_min" validate:"omitempty,gt=0,lte=480"`
}

func (ul *UpdateLecture) Validate(validate *validator.Validate) error {
	ul.Topic = core.CleanString(ul.Topic)
	return validate.Struct(ul)
}
