package main

import (
	"fmt"
	"log"
	"os"

	"github.com/trezcool/feria/core"
	"github.com/trezcool/feria/core/assignment"
	"github.com/trezcool/feria/core/evaluation"
	"github.com/trezcool/feria/core/grading"
	"github.com/trezcool/feria/core/project"
	"github.com/trezcool/feria/core/user"
	emailsvc "github.com/trezcool/feria/services/email"
	logsvc "github.com/trezcool/feria/services/logger"
	"github.com/trezcool/feria/storage/database"
	sqlxrepos "github.com/trezcool/feria/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stderr, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	usrRepo := sqlxrepos.NewUserRepository(db)
	projRepo := sqlxrepos.NewProjectRepository(db)
	evalRepo := sqlxrepos.NewEvaluationRepository(db)

	usrSvc := user.NewService(usrRepo)
	projSvc := project.NewService(projRepo, conf.Grading.BatchSize)
	evalSvc := evaluation.NewService(db, evalRepo, projRepo)

	// start CLI
	cli := commandLine{
		db:         db,
		out:        os.Stdout,
		usrSvc:     usrSvc,
		projSvc:    projSvc,
		gradingSvc: grading.NewService(projSvc, evalSvc, usrSvc),
		syncer:     assignment.NewSynchronizer(db, projRepo, usrRepo, emailsvc.NewService(conf, logger), logger),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
