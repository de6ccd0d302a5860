package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/sessions"
	"github.com/jmoiron/sqlx"

	echoweb "github.com/mwalimu/darasa/apps/web/echo"
	"github.com/mwalimu/darasa/core"
	"github.com/mwalimu/darasa/core/class"
	"github.com/mwalimu/darasa/core/completion"
	"github.com/mwalimu/darasa/core/user"
	appfs "github.com/mwalimu/darasa/fs"
	emailsvc "github.com/mwalimu/darasa/services/email"
	logsvc "github.com/mwalimu/darasa/services/logger"
	qrsvc "github.com/mwalimu/darasa/services/qrcode"
	"github.com/mwalimu/darasa/storage/database"
	"github.com/mwalimu/darasa/storage/database/migrate"
	sqlxrepos "github.com/mwalimu/darasa/storage/database/sqlx"
)

const shutdownTimeout = 5 * time.Second

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		log.Fatalf("loading configuration: %v", err)
	}

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "WEB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf, dbLogger)
	if err != nil {
		logger.Error(fmt.Sprintf("setting up database: %v", err), err)
		os.Exit(1)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Error("failed to close DB", err)
		}
	}()
	sqlxDB := sqlx.NewDb(db, conf.Database.Engine)

	// set up services
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	usrSvc := user.NewService(conf, sqlxrepos.NewUserRepository(sqlxDB), mailSvc)
	classSvc := class.NewService(sqlxrepos.NewClassRepository(sqlxDB))
	cplSvc := completion.NewService(
		completion.NewTokenService(conf),
		classSvc,
		sqlxrepos.NewCompletionRepository(sqlxDB),
		logger,
	)

	// =========================================================================
	// Start Web Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	server := echoweb.NewServer(&echoweb.Options{
		Address:       conf.Server.Address(),
		Conf:          conf,
		Logger:        logger,
		Store:         sessions.NewCookieStore(conf.SecretKey),
		UserSvc:       usrSvc,
		ClassSvc:      classSvc,
		CompletionSvc: cplSvc,
		QRSvc:         qrsvc.NewService(),
	})

	go server.Start()

	// =========================================================================
	// Shutdown

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

	// give outstanding requests a deadline for completion
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err = server.Stop(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
	}
}

func setUpDB(conf *core.Config, logger core.Logger) (*sql.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}
	if err = database.Ping(db); err != nil {
		return nil, err
	}

	ctx := context.Background()
	runner, err := migrate.NewRunner(ctx, db, appfs.FS, appfs.MigrationsDir, logger)
	if err != nil {
		return nil, err
	}
	results, err := runner.Run(ctx)
	if err != nil {
		return nil, err
	}
	for _, res := range results {
		if res.Outcome == migrate.OutcomeError {
			return nil, fmt.Errorf("migration %s: %s", res.Script, res.Message)
		}
		logger.Info(fmt.Sprintf("migration %s: %s", res.Script, res.Outcome))
	}
	return db, nil
}
