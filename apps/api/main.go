package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pkg/errors"

	echoapi "github.com/Robzoly/StudyPlanner/apps/api/echo"
	"github.com/Robzoly/StudyPlanner/core"
	"github.com/Robzoly/StudyPlanner/core/progress"
	"github.com/Robzoly/StudyPlanner/core/task"
	"github.com/Robzoly/StudyPlanner/core/user"
	emailsvc "github.com/Robzoly/StudyPlanner/services/email"
	logsvc "github.com/Robzoly/StudyPlanner/services/logger"
	"github.com/Robzoly/StudyPlanner/storage/database"
	sqlxrepos "github.com/Robzoly/StudyPlanner/storage/database/sqlx"
)

const shutdownTimeout = 5 * time.Second

func main() {
	std := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lshortfile)

	var logger core.Logger
	if core.Conf.Debug {
		logger = core.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, core.Conf)
	}

	if err := run(logger); err != nil {
		logger.Fatal("running server", err)
	}
}

func run(logger core.Logger) error {
	// set up DB
	db, err := database.Open(core.Conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = db.Close() }()

	if err := database.Migrate(db.DB); err != nil {
		return errors.Wrap(err, "migrating database")
	}

	// set up services
	var mailSvc core.EmailService
	if core.Conf.Debug {
		mailSvc = emailsvc.NewConsoleService()
	} else {
		mailSvc = emailsvc.NewSendgridService(logger)
	}
	progressSvc := progress.NewService(sqlxrepos.NewProgressRepository(db))
	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), mailSvc, progressSvc)
	taskSvc := task.NewService(sqlxrepos.NewTaskRepository(db), progressSvc, logger)

	sessions := user.NewSessionBroker()
	unsubscribe := sessions.Subscribe(func(evt user.SessionEvent) {
		logger.Info(fmt.Sprintf("session %s: user %s", evt.State, evt.User.ID))
	})
	defer unsubscribe()
	sessions.Resolve()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Address:        core.Conf.Address(),
			Logger:         logger,
			SignalShutdown: func() { shutdown <- syscall.SIGTERM },
			UserSvc:        usrSvc,
			TaskSvc:        taskSvc,
			ProgressSvc:    progressSvc,
			Sessions:       sessions,
		},
	)
	go app.Start()

	sig := <-shutdown
	logger.Info(fmt.Sprintf("shutting down: %v", sig))

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		return errors.Wrap(err, "stopping server")
	}
	return nil
}
