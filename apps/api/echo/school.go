package echoapi

import (
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kymaza/darasa/core/school"
)

type schoolApi struct {
	studentSvc *school.StudentService
	classSvc   *school.ClassService
	lectureSvc *school.LectureService
	validate   *validator.Validate
}

func registerSchoolAPI(
	g *echo.Group,
	jwt echo.MiddlewareFunc,
	studentSvc *school.StudentService,
	classSvc *school.ClassService,
	lectureSvc *school.LectureService,
	validate *validator.Validate,
) {
	api := schoolApi{
		studentSvc: studentSvc,
		classSvc:   classSvc,
		lectureSvc: lectureSvc,
		validate:   validate,
	}

	sg := g.Group("/students", jwt)
	sg.POST("", api.createStudent)
	sg.GET("", api.queryStudents)
	sg.GET("/:id", api.retrieveStudent)
	sg.PUT("/:id", api.updateStudent)
	sg.DELETE("/:id", api.destroyStudent)

	cg := g.Group("/classes", jwt)
	cg.POST("", api.createClass)
	cg.GET("", api.queryClasses)
	cg.GET("/:id", api.retrieveClass)
	cg.GET("/:id/lectures", api.queryClassLectures)
	cg.PUT("/:id", api.updateClass)
	cg.DELETE("/:id", api.destroyClass)

	lg := g.Group("/lectures", jwt)
	lg.POST("", api.createLecture)
	lg.GET("", api.queryLectures)
	lg.GET("/:id", api.retrieveLecture)
	lg.PUT("/:id", api.updateLecture)
	lg.DELETE("/:id", api.destroyLecture)
}

// Student handlers

func (api *schoolApi) createStudent(ctx echo.Context) error {
	var data school.NewStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	st, err := api.studentSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating student")
	}
	return ctx.JSON(http.StatusCreated, st)
}

func (api *schoolApi) queryStudents(ctx echo.Context) error {
	students, err := api.studentSvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying students")
	}
	if students == nil {
		students = []school.Student{}
	}
	return ctx.JSON(http.StatusOK, students)
}

func (api *schoolApi) retrieveStudent(ctx echo.Context) error {
	st, err := api.studentSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding student by ID")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *schoolApi) updateStudent(ctx echo.Context) error {
	var data school.UpdateStudent
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateStudent")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	st, err := api.studentSvc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating student")
	}
	return ctx.JSON(http.StatusOK, st)
}

func (api *schoolApi) destroyStudent(ctx echo.Context) error {
	if err := api.studentSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting student")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Class handlers

func (api *schoolApi) createClass(ctx echo.Context) error {
	var data school.NewClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.classSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating class")
	}
	return ctx.JSON(http.StatusCreated, cls)
}

func (api *schoolApi) queryClasses(ctx echo.Context) error {
	classes, err := api.classSvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying classes")
	}
	if classes == nil {
		classes = []school.Class{}
	}
	return ctx.JSON(http.StatusOK, classes)
}

func (api *schoolApi) retrieveClass(ctx echo.Context) error {
	cls, err := api.classSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding class by ID")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *schoolApi) queryClassLectures(ctx echo.Context) error {
	// 404 on an unknown class rather than an empty list
	if _, err := api.classSvc.GetByID(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "finding class by ID")
	}

	lectures, err := api.lectureSvc.QueryByClass(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "querying class lectures")
	}
	if lectures == nil {
		lectures = []school.Lecture{}
	}
	return ctx.JSON(http.StatusOK, lectures)
}

func (api *schoolApi) updateClass(ctx echo.Context) error {
	var data school.UpdateClass
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateClass")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	cls, err := api.classSvc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating class")
	}
	return ctx.JSON(http.StatusOK, cls)
}

func (api *schoolApi) destroyClass(ctx echo.Context) error {
	if err := api.classSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting class")
	}
	return ctx.NoContent(http.StatusNoContent)
}

// Lecture handlers

func (api *schoolApi) createLecture(ctx echo.Context) error {
	var data school.NewLecture
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to NewLecture")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lec, err := api.lectureSvc.Create(ctx.Request().Context(), data)
	if err != nil {
		return errors.Wrap(err, "creating lecture")
	}
	return ctx.JSON(http.StatusCreated, lec)
}

func (api *schoolApi) queryLectures(ctx echo.Context) error {
	lectures, err := api.lectureSvc.QueryAll(ctx.Request().Context())
	if err != nil {
		return errors.Wrap(err, "querying lectures")
	}
	if lectures == nil {
		lectures = []school.Lecture{}
	}
	return ctx.JSON(http.StatusOK, lectures)
}

func (api *schoolApi) retrieveLecture(ctx echo.Context) error {
	lec, err := api.lectureSvc.GetByID(ctx.Request().Context(), ctx.Param("id"))
	if err != nil {
		return errors.Wrap(err, "finding lecture by ID")
	}
	return ctx.JSON(http.StatusOK, lec)
}

func (api *schoolApi) updateLecture(ctx echo.Context) error {
	var data school.UpdateLecture
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to UpdateLecture")
	}
	if err := data.Validate(api.validate); err != nil {
		return err
	}

	lec, err := api.lectureSvc.Update(ctx.Request().Context(), ctx.Param("id"), data)
	if err != nil {
		return errors.Wrap(err, "updating lecture")
	}
	return ctx.JSON(http.StatusOK, lec)
}

func (api *schoolApi) destroyLecture(ctx echo.Context) error {
	if err := api.lectureSvc.Delete(ctx.Request().Context(), ctx.Param("id")); err != nil {
		return errors.Wrap(err, "deleting lecture")
	}
	return ctx.NoContent(http.StatusNoContent)
}
