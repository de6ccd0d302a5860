package main

import (
	"context"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/mwalimu/darasa/core"
	appfs "github.com/mwalimu/darasa/fs"
	logsvc "github.com/mwalimu/darasa/services/logger"
	"github.com/mwalimu/darasa/storage/database"
	"github.com/mwalimu/darasa/storage/database/migrate"
	sqlxrepos "github.com/mwalimu/darasa/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	conf, err := core.NewConfig()
	errAndDie(err)

	// createdb runs before the app DB can be opened
	if len(os.Args) > 1 && os.Args[1] == "createdb" {
		errAndDie(database.CreateIfNotExist(conf))
		logger.Println("database ready")
		return
	}

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer func() { _ = db.Close() }()
	errAndDie(database.Ping(db))

	coreLogger := logsvc.NewStdLogger(logger)
	runner, err := migrate.NewRunner(context.Background(), db, appfs.FS, appfs.MigrationsDir, coreLogger)
	errAndDie(err)

	// start CLI
	cli := commandLine{
		usrRepo: sqlxrepos.NewUserRepository(sqlx.NewDb(db, conf.Database.Engine)),
		runner:  runner,
		seeder:  migrate.NewSeeder(db, appfs.FS, appfs.SeedsDir, coreLogger),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
