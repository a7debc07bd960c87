package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/validator/v10"

	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/subscription"
	"github.com/trezcool/examhall/core/user"
	emailsvc "github.com/trezcool/examhall/services/email"
	eventsvc "github.com/trezcool/examhall/services/events"
	logsvc "github.com/trezcool/examhall/services/logger"
	"github.com/trezcool/examhall/storage/database"
	sqlxrepos "github.com/trezcool/examhall/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}

	// set up services
	var mailSvc core.EmailService
	if conf.Debug || conf.SendgridApiKey == "" {
		mailSvc = emailsvc.NewConsoleService(conf, logger)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	var publisher core.EventPublisher = eventsvc.NewLogPublisher(logger)
	if len(conf.Kafka.Brokers) > 0 {
		producer, err := eventsvc.NewKafkaProducer(conf, logger)
		if err != nil {
			logger.Fatal(fmt.Sprintf("connecting to kafka: %v", err), err)
		}
		kp := eventsvc.NewKafkaPublisher(producer, conf)
		defer func() { _ = kp.Close() }()
		publisher = kp
	}

	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	subscription.InitValidators(validate, translator)

	usrSvc := user.NewService(sqlxrepos.NewUserRepository(db), logger)

	// start CLI
	cli := commandLine{
		db:       db,
		usrSvc:   usrSvc,
		subSvc:   subscription.NewService(sqlxrepos.NewPaymentRepository(db), usrSvc, mailSvc, publisher, logger),
		validate: validate,
		in:       os.Stdin,
		out:      os.Stdout,
	}
	err = cli.run(os.Args)
	_ = db.Close()
	logger.Close()
	if err != nil {
		if err != errHelp {
			fmt.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}
