package dig_container

import (
	"context"
	"io"
	"log"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/examhall/apps/api/echo"
	"github.com/trezcool/examhall/core"
	"github.com/trezcool/examhall/core/catalog"
	"github.com/trezcool/examhall/core/exam"
	"github.com/trezcool/examhall/core/subscription"
	"github.com/trezcool/examhall/core/user"
	cachesvc "github.com/trezcool/examhall/services/cache"
	emailsvc "github.com/trezcool/examhall/services/email"
	eventsvc "github.com/trezcool/examhall/services/events"
	identitysvc "github.com/trezcool/examhall/services/identity"
	logsvc "github.com/trezcool/examhall/services/logger"
	"github.com/trezcool/examhall/storage/database"
	inmemdb "github.com/trezcool/examhall/storage/database/inmem"
	sqlxrepos "github.com/trezcool/examhall/storage/database/sqlx"
)

const (
	engineInmem    = "inmem"
	enginePostgres = "postgres"
)

// setupTimeout bounds the connection checks done while building the container.
var setupTimeout = 30 * time.Second

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// Repositories are backed by Postgres, or by memory when database.engine is "inmem".
// DB is nil in the latter case.
type Repositories struct {
	dig.Out

	DB       *sqlx.DB
	Users    user.Repository
	Catalog  catalog.Repository
	Payments subscription.Repository
	Exams    exam.Repository
}

// Closers holds the resources to release on shutdown, in order.
type Closers []io.Closer

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	return logsvc.NewRollbarLogger(stdLogger, conf)
}

func newRepositories(conf *core.Config, loggerParam DBLoggerParam) (Repositories, error) {
	switch conf.Database.Engine {
	case engineInmem:
		loggerParam.Logger.Warn("using the in-memory database; data is lost on exit")
		mem := inmemdb.Open()
		return Repositories{
			Users:    inmemdb.NewUserRepository(mem),
			Catalog:  inmemdb.NewCatalogRepository(mem),
			Payments: inmemdb.NewPaymentRepository(mem),
			Exams:    inmemdb.NewExamRepository(mem),
		}, nil

	case enginePostgres:
		if err := database.CreateIfNotExist(conf); err != nil {
			return Repositories{}, err
		}
		db, err := database.Open(conf)
		if err != nil {
			return Repositories{}, err
		}
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return Repositories{}, err
		}
		return Repositories{
			DB:       db,
			Users:    sqlxrepos.NewUserRepository(db),
			Catalog:  sqlxrepos.NewCatalogRepository(db),
			Payments: sqlxrepos.NewPaymentRepository(db),
			Exams:    sqlxrepos.NewExamRepository(db),
		}, nil
	}
	return Repositories{}, errors.Errorf("unknown database engine %q", conf.Database.Engine)
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug || conf.SendgridApiKey == "" {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

// newPublisher publishes to Kafka when brokers are configured, to the logs otherwise.
func newPublisher(conf *core.Config, logger core.Logger) (core.EventPublisher, error) {
	if len(conf.Kafka.Brokers) == 0 {
		return eventsvc.NewLogPublisher(logger), nil
	}
	producer, err := eventsvc.NewKafkaProducer(conf, logger)
	if err != nil {
		return nil, err
	}
	return eventsvc.NewKafkaPublisher(producer, conf), nil
}

func newStatsCache(conf *core.Config) (exam.StatsCache, error) {
	if conf.Redis.Address == "" {
		return cachesvc.NoopStatsCache{}, nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
	defer cancel()

	client, err := cachesvc.NewRedisClient(ctx, conf)
	if err != nil {
		return nil, err
	}
	return cachesvc.NewRedisStatsCache(client, conf), nil
}

func newIdentityVerifier(conf *core.Config) (core.IdentityVerifier, error) {
	switch conf.Identity.Provider {
	case "jwt":
		if conf.Env == "PROD" {
			return nil, errors.New("the jwt identity provider cannot be used in PROD")
		}
		return identitysvc.NewJWTVerifier(conf), nil
	case "firebase":
		ctx, cancel := context.WithTimeout(context.Background(), setupTimeout)
		defer cancel()
		return identitysvc.NewFirebaseVerifier(ctx, conf)
	}
	return nil, errors.Errorf("unknown identity provider %q", conf.Identity.Provider)
}

func newClosers(db *sqlx.DB, publisher core.EventPublisher) Closers {
	var closers Closers
	if c, ok := publisher.(io.Closer); ok {
		closers = append(closers, c)
	}
	if db != nil {
		closers = append(closers, db)
	}
	return closers
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newRepositories))
	must(c.Provide(newEmailService))
	must(c.Provide(newPublisher))
	must(c.Provide(newStatsCache))
	must(c.Provide(newIdentityVerifier))
	must(c.Provide(newClosers))
	must(c.Provide(validator.New))
	must(c.Provide(core.NewTranslator))
	must(c.Provide(user.NewService, dig.As(new(user.ServiceInterface), new(subscription.UserFinder))))
	must(c.Provide(catalog.NewService, dig.As(new(catalog.ServiceInterface), new(exam.QuestionSetFinder))))
	must(c.Provide(subscription.NewService, dig.As(new(subscription.ServiceInterface), new(exam.SubscriptionChecker))))
	must(c.Provide(exam.NewService, dig.As(new(exam.ServiceInterface))))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
