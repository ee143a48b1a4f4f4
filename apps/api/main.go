package main

import (
	"context"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/kymaza/darasa/apps/api/echo"
	"github.com/kymaza/darasa/core"
	"github.com/kymaza/darasa/core/classwork"
	"github.com/kymaza/darasa/core/school"
	emailsvc "github.com/kymaza/darasa/services/email"
	logsvc "github.com/kymaza/darasa/services/logger"
	"github.com/kymaza/darasa/storage/sheets"
)

func main() {
	stdLog := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lshortfile)

	workDir, err := os.Getwd()
	errAndDie(stdLog, err)
	conf, err := core.NewConfig(workDir)
	errAndDie(stdLog, err)

	var logger core.Logger
	if conf.Debug {
		logger = core.NewStdLogger(stdLog)
	} else {
		logger = logsvc.NewRollbarLogger(stdLog, conf)
	}

	// validation
	validate := validator.New()
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator(enLocale.Locale())
	core.InitValidators(validate, translator)

	// set up the sync engine
	ctx := context.Background()
	client, err := sheets.NewClient(ctx, conf.Sheets)
	errAndDie(stdLog, err)
	eng := sheets.NewEngine(client, core.NewCache(), core.NewIDGenerator(), conf.Sheets, logger)

	studentRepo := sheets.NewStudentRepository(eng)
	classRepo := sheets.NewClassRepository(eng)
	lectureRepo := sheets.NewLectureRepository(eng)
	attRepo := sheets.NewAttendanceRepository(eng)
	hwRepo := sheets.NewHomeworkRepository(eng)
	scoreRepo := sheets.NewScoreRepository(eng)

	errAndDie(stdLog, eng.SeedIDGenerator(ctx))

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}

	studentSvc := school.NewStudentService(studentRepo, classRepo, logger)
	classSvc := school.NewClassService(classRepo, studentRepo, logger)
	lectureSvc := school.NewLectureService(lectureRepo, classRepo, logger)
	classworkSvc := classwork.NewService(
		attRepo, hwRepo, scoreRepo,
		studentRepo, lectureRepo, classRepo,
		mailSvc, logger,
	)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Addr:         conf.Server.Address(),
			Conf:         conf,
			Logger:       logger,
			Validate:     validate,
			Translator:   translator,
			StudentSvc:   studentSvc,
			ClassSvc:     classSvc,
			LectureSvc:   lectureSvc,
			ClassworkSvc: classworkSvc,
		},
	)
	app.Start()
}

func errAndDie(std *log.Logger, err error) {
	if err != nil {
		std.Fatalf("%+v", err)
	}
}
