package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/common-nighthawk/go-figure"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/sksmith/bunnyq"

	"github.com/pinto1232/pos-stock-ledger/api"
	"github.com/pinto1232/pos-stock-ledger/config"
	"github.com/pinto1232/pos-stock-ledger/core"
	"github.com/pinto1232/pos-stock-ledger/core/stock"
	"github.com/pinto1232/pos-stock-ledger/db"
	"github.com/pinto1232/pos-stock-ledger/db/prodrepo"
	"github.com/pinto1232/pos-stock-ledger/db/snaprepo"
	"github.com/pinto1232/pos-stock-ledger/queue"
	"github.com/pinto1232/pos-stock-ledger/snapshot"
)

func main() {
	ctx := context.Background()

	cfg := config.Load()

	configLogging(cfg)
	printLogHeader(cfg)
	cfg.Print()

	log.Info().Msg("connecting to the database...")
	dbPool, err := db.ConnectDb(ctx, cfg, db.MinPoolConns(5), db.MaxPoolConns(20))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to the database")
	}

	log.Info().Msg("creating stock ledger...")
	products := prodrepo.NewPostgresRepo(dbPool)
	store := configSnapshotStore(cfg, dbPool)
	ledger := stock.NewLedger(ctx, products, store,
		stock.WithDefaultExpiry(cfg.Ledger.ReservationExpiry))

	log.Info().Msg("starting reservation sweeper...")
	ledger.StartSweeper(ctx, cfg.Ledger.SweepInterval)

	log.Info().Msg("configuring stock event relay...")
	var bq *bunnyq.BunnyQ
	if !cfg.RabbitMQ.Mock {
		log.Info().Msg("connecting to rabbitmq...")
		bq = rabbit(cfg)
	}

	pub := configPublisher(cfg, bq)
	relay := queue.NewRelay(ctx, ledger, pub)
	defer relay.Stop()

	if bq != nil {
		log.Info().Msg("consuming checkout events...")
		sales := queue.NewSaleQueue(bq, cfg.RabbitMQ.Sale.Queue, cfg.RabbitMQ.Sale.DltExchange)
		go sales.ConsumeSales(ctx, ledger)
	}

	log.Info().Msg("configuring metrics...")
	api.ConfigureMetrics()

	log.Info().Msg("configuring router...")
	r := api.ConfigureRouter(cfg, ledger)

	log.Info().Str("port", cfg.Port).Msg("listening")
	log.Fatal().Err(http.ListenAndServe(":"+cfg.Port, r)).Send()
}

func configSnapshotStore(cfg *config.Config, pool core.Conn) stock.SnapshotStore {
	switch cfg.Ledger.Snapshot.Backend {
	case "redis":
		log.Info().Str("host", cfg.Redis.Host).Msg("using redis snapshot store")
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
			Password: cfg.Redis.Pass,
			DB:       cfg.Redis.Db,
		})
		return snapshot.NewRedisStore(client, cfg.Ledger.Snapshot.Key)
	case "postgres":
		log.Info().Msg("using postgres snapshot store")
		return snaprepo.NewPostgresRepo(pool, cfg.Ledger.Snapshot.Key)
	default:
		log.Info().Str("file", cfg.Ledger.Snapshot.File).Msg("using file snapshot store")
		return snapshot.NewFileStore(cfg.Ledger.Snapshot.File)
	}
}

func configPublisher(cfg *config.Config, bq *bunnyq.BunnyQ) queue.Publisher {
	if bq == nil {
		log.Info().Msg("creating mock queue...")
		return queue.NewMockQueue()
	}

	return queue.New(bq, cfg.RabbitMQ.Stock.Exchange, cfg.RabbitMQ.Reservation.Exchange)
}

func rabbit(cfg *config.Config) *bunnyq.BunnyQ {
	osChannel := make(chan os.Signal, 1)
	signal.Notify(osChannel, syscall.SIGTERM)

	return bunnyq.New(context.Background(),
		bunnyq.Address{
			User: cfg.RabbitMQ.User,
			Pass: cfg.RabbitMQ.Pass,
			Host: cfg.RabbitMQ.Host,
			Port: cfg.RabbitMQ.Port,
		},
		osChannel,
		bunnyq.LogHandler(logger{}),
	)
}

type logger struct {
}

func (l logger) Log(_ context.Context, level bunnyq.LogLevel, msg string, data map[string]interface{}) {
	var evt *zerolog.Event
	switch level {
	case bunnyq.LogLevelTrace:
		evt = log.Trace()
	case bunnyq.LogLevelDebug:
		evt = log.Debug()
	case bunnyq.LogLevelInfo:
		evt = log.Info()
	case bunnyq.LogLevelWarn:
		evt = log.Warn()
	case bunnyq.LogLevelError:
		evt = log.Error()
	case bunnyq.LogLevelNone:
		evt = log.Info()
	default:
		evt = log.Info()
	}

	for k, v := range data {
		evt.Interface(k, v)
	}

	evt.Msg(msg)
}

func printLogHeader(cfg *config.Config) {
	if cfg.Log.Structured {
		log.Info().Str("application", cfg.AppName).
			Str("revision", cfg.Revision).
			Str("version", cfg.AppVersion).
			Str("sha1ver", cfg.Sha1Version).
			Str("build-time", cfg.BuildTime).
			Str("profile", cfg.Profile).
			Send()
	} else {
		f := figure.NewFigure(cfg.AppName, "", true)
		f.Print()

		log.Info().Msg("=============================================")
		log.Info().Msg(fmt.Sprintf("      Revision: %s", cfg.Revision))
		log.Info().Msg(fmt.Sprintf("       Profile: %s", cfg.Profile))
		log.Info().Msg(fmt.Sprintf("   Tag Version: %s", cfg.AppVersion))
		log.Info().Msg(fmt.Sprintf("  Sha1 Version: %s", cfg.Sha1Version))
		log.Info().Msg(fmt.Sprintf("    Build Time: %s", cfg.BuildTime))
		log.Info().Msg("=============================================")
	}
}

func configLogging(cfg *config.Config) {
	log.Info().Msg("configuring logging...")

	if !cfg.Log.Structured {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	level, err := zerolog.ParseLevel(cfg.Log.Level)
	if err != nil {
		log.Warn().Str("loglevel", cfg.Log.Level).Err(err).Msg("defaulting to info")
		level = zerolog.InfoLevel
	}
	log.Info().Str("loglevel", level.String()).Msg("setting log level")
	zerolog.SetGlobalLevel(level)
}
