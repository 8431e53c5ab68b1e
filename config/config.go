package config

import (
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	AppName  = "POS Stock Ledger"
	Revision = "1"
)

var (
	// Build time arguments
	AppVersion  string
	Sha1Version string
	BuildTime   string
)

type Config struct {
	AppName         string       `json:"appName"         yaml:"appName"`
	AppNameDesc     string       `json:"appNameDesc"     yaml:"appNameDesc"`
	AppVersion      string       `json:"appVersion"      yaml:"appVersion"`
	Sha1Version     string       `json:"sha1Version"     yaml:"sha1Version"`
	BuildTime       string       `json:"buildTime"       yaml:"buildTime"`
	Profile         string       `json:"profile"         yaml:"profile"`
	ProfileDesc     string       `json:"profileDesc"     yaml:"profileDesc"`
	Revision        string       `json:"revision"        yaml:"revision"`
	Port            string       `json:"port"            yaml:"port"`
	PortDesc        string       `json:"portDesc"        yaml:"portDesc"`
	PrintConfig     bool         `json:"printConfig"     yaml:"printConfig"`
	Log             LogConfig    `json:"log"             yaml:"log"`
	LogDesc         string       `json:"logDesc"         yaml:"logDesc"`
	Db              DbConfig     `json:"db"              yaml:"db"`
	DbDesc          string       `json:"dbDesc"          yaml:"dbDesc"`
	Redis           RedisConfig  `json:"redis"           yaml:"redis"`
	RedisDesc       string       `json:"redisDesc"       yaml:"redisDesc"`
	RabbitMQ        QueueConfig  `json:"rabbitmq"        yaml:"rabbitmq"`
	RabbitMQDesc    string       `json:"rabbitmqDesc"    yaml:"rabbitmqDesc"`
	Ledger          LedgerConfig `json:"ledger"          yaml:"ledger"`
	LedgerDesc      string       `json:"ledgerDesc"      yaml:"ledgerDesc"`
}

type LogConfig struct {
	Level          string `json:"level"      yaml:"level"`
	LevelDesc      string `json:"levelDesc"      yaml:"levelDesc"`
	Structured     bool   `json:"structured" yaml:"structured"`
	StructuredDesc string `json:"structuredDesc" yaml:"structuredDesc"`
}

type DbConfig struct {
	Name        string `json:"name"    yaml:"name"`
	NameDesc    string `json:"nameDesc" yaml:"nameDesc"`
	Host        string `json:"host"    yaml:"host"`
	HostDesc    string `json:"hostDesc" yaml:"hostDesc"`
	Port        string `json:"port"    yaml:"port"`
	PortDesc    string `json:"portDesc" yaml:"portDesc"`
	Migrate     bool   `json:"migrate" yaml:"migrate"`
	MigrateDesc string `json:"migrateDesc" yaml:"migrateDesc"`
	Clean       bool   `json:"clean"   yaml:"clean"`
	CleanDesc   string `json:"cleanDesc" yaml:"cleanDesc"`
	User        string `json:"user"    yaml:"user"`
	UserDesc    string `json:"userDesc" yaml:"userDesc"`
	Pass        string `json:"pass"    yaml:"pass" sensitive:"true"`
	PassDesc    string `json:"passDesc" yaml:"passDesc"`
}

type RedisConfig struct {
	Host     string `json:"host" yaml:"host"`
	HostDesc string `json:"hostDesc" yaml:"hostDesc"`
	Port     string `json:"port" yaml:"port"`
	PortDesc string `json:"portDesc" yaml:"portDesc"`
	Pass     string `json:"pass" yaml:"pass" sensitive:"true"`
	PassDesc string `json:"passDesc" yaml:"passDesc"`
	Db       int    `json:"db"   yaml:"db"`
	DbDesc   string `json:"dbDesc"   yaml:"dbDesc"`
}

type QueueConfig struct {
	Host            string                 `json:"host"            yaml:"host"`
	HostDesc        string                 `json:"hostDesc"        yaml:"hostDesc"`
	Port            string                 `json:"port"            yaml:"port"`
	PortDesc        string                 `json:"portDesc"        yaml:"portDesc"`
	User            string                 `json:"user"            yaml:"user"`
	UserDesc        string                 `json:"userDesc"        yaml:"userDesc"`
	Pass            string                 `json:"pass"            yaml:"pass" sensitive:"true"`
	PassDesc        string                 `json:"passDesc"        yaml:"passDesc"`
	Mock            bool                   `json:"mock"            yaml:"mock"`
	MockDesc        string                 `json:"mockDesc"        yaml:"mockDesc"`
	Stock           StockQueueConfig       `json:"stock"           yaml:"stock"`
	StockDesc       string                 `json:"stockDesc"       yaml:"stockDesc"`
	Reservation     ReservationQueueConfig `json:"reservation"     yaml:"reservation"`
	ReservationDesc string                 `json:"reservationDesc" yaml:"reservationDesc"`
	Sale            SaleQueueConfig        `json:"sale"            yaml:"sale"`
	SaleDesc        string                 `json:"saleDesc"        yaml:"saleDesc"`
}

type SaleQueueConfig struct {
	Queue           string `json:"queue" yaml:"queue"`
	QueueDesc       string `json:"queueDesc" yaml:"queueDesc"`
	DltExchange     string `json:"dltExchange" yaml:"dltExchange"`
	DltExchangeDesc string `json:"dltExchangeDesc" yaml:"dltExchangeDesc"`
}

type StockQueueConfig struct {
	Exchange     string `json:"exchange" yaml:"exchange"`
	ExchangeDesc string `json:"exchangeDesc" yaml:"exchangeDesc"`
}

type ReservationQueueConfig struct {
	Exchange     string `json:"exchange" yaml:"exchange"`
	ExchangeDesc string `json:"exchangeDesc" yaml:"exchangeDesc"`
}

type LedgerConfig struct {
	SweepInterval         time.Duration  `json:"sweepInterval" yaml:"sweepInterval"`
	SweepIntervalDesc     string         `json:"sweepIntervalDesc" yaml:"sweepIntervalDesc"`
	ReservationExpiry     time.Duration  `json:"reservationExpiry" yaml:"reservationExpiry"`
	ReservationExpiryDesc string         `json:"reservationExpiryDesc" yaml:"reservationExpiryDesc"`
	Snapshot              SnapshotConfig `json:"snapshot" yaml:"snapshot"`
	SnapshotDesc          string         `json:"snapshotDesc" yaml:"snapshotDesc"`
}

type SnapshotConfig struct {
	Backend     string `json:"backend" yaml:"backend"`
	BackendDesc string `json:"backendDesc" yaml:"backendDesc"`
	File        string `json:"file"    yaml:"file"`
	FileDesc    string `json:"fileDesc"    yaml:"fileDesc"`
	Key         string `json:"key"     yaml:"key"`
	KeyDesc     string `json:"keyDesc"     yaml:"keyDesc"`
}

func (c *Config) Print() {
	if c.PrintConfig {
		log.Info().Interface("config", c).Msg("the following configurations have successfully loaded")
	}
}

func init() {
	viper.SetDefault("port", "8080")
	viper.SetDefault("profile", "local")
	viper.SetDefault("printConfig", false)

	viper.SetDefault("log.level", "trace")
	viper.SetDefault("log.structured", false)

	viper.SetDefault("db.name", "pos-ledger-db")
	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.user", "postgres")
	viper.SetDefault("db.pass", "postgres")
	viper.SetDefault("db.migrate", true)
	viper.SetDefault("db.clean", false)

	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", "6379")
	viper.SetDefault("redis.pass", "")
	viper.SetDefault("redis.db", 0)

	viper.SetDefault("rabbitmq.host", "localhost")
	viper.SetDefault("rabbitmq.port", "5672")
	viper.SetDefault("rabbitmq.user", "guest")
	viper.SetDefault("rabbitmq.pass", "guest")
	viper.SetDefault("rabbitmq.mock", false)
	viper.SetDefault("rabbitmq.stock.exchange", "stock.exchange")
	viper.SetDefault("rabbitmq.reservation.exchange", "reservation.exchange")
	viper.SetDefault("rabbitmq.sale.queue", "sale.queue")
	viper.SetDefault("rabbitmq.sale.dltExchange", "sale.dlt.exchange")

	viper.SetDefault("ledger.sweepInterval", "60s")
	viper.SetDefault("ledger.reservationExpiry", "30m")
	viper.SetDefault("ledger.snapshot.backend", "file")
	viper.SetDefault("ledger.snapshot.file", "stock-snapshot.json")
	viper.SetDefault("ledger.snapshot.key", "stockManager")
}

func Load() *Config {
	config := createConfig()

	if err := loadLocalConfigs(config); err != nil {
		log.Fatal().Err(err).Msg("failed to load configurations")
	}

	return config
}

func createConfig() *Config {
	config := &Config{}
	setDescriptions(config)

	config.AppName = AppName
	config.Revision = Revision
	config.AppVersion = AppVersion
	config.Sha1Version = Sha1Version
	config.BuildTime = BuildTime

	return config
}

func loadLocalConfigs(config *Config) error {
	log.Info().Msg("loading local configurations...")

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return err
		}
		log.Warn().Msg("no config file found, using defaults")
	}

	return viper.Unmarshal(config)
}

func setDescriptions(config *Config) {
	config.AppNameDesc = "Name of the application in a human readable format."
	config.ProfileDesc = "Running profile of the application. Examples: local, dev, prod"
	config.PortDesc = "Port that the application will bind to on startup."
	config.LogDesc = "Settings for application logging."
	config.DbDesc = "Database configurations for the product repository and snapshot store."
	config.RedisDesc = "Redis configurations, used when the snapshot backend is redis."
	config.RabbitMQDesc = "Rabbit MQ configurations for the stock event relay."
	config.LedgerDesc = "Stock ledger tuning."

	config.Log.LevelDesc = "The lowest level that the application should log at. Examples: info, warn, error."
	config.Log.StructuredDesc = "Whether the application should output structured (json) logging, or human friendly plain text."

	config.Db.NameDesc = "The name of the database to connect to."
	config.Db.HostDesc = "Host of the database."
	config.Db.PortDesc = "Port of the database."
	config.Db.MigrateDesc = "Whether or not database migrations should be executed on startup."
	config.Db.CleanDesc = "WARNING: THIS WILL DELETE ALL DATA FROM THE DB. If clean is true, all 'down' migrations are executed."
	config.Db.UserDesc = "User the application will use to connect to the database."
	config.Db.PassDesc = "Password the application will use for connecting to the database."

	config.Redis.HostDesc = "Redis host."
	config.Redis.PortDesc = "Redis port."
	config.Redis.PassDesc = "Password the application will use to connect to redis."
	config.Redis.DbDesc = "Redis logical database number."

	config.RabbitMQ.HostDesc = "RabbitMQ's broker host."
	config.RabbitMQ.PortDesc = "RabbitMQ's broker host port."
	config.RabbitMQ.UserDesc = "User the application will use to connect to RabbitMQ."
	config.RabbitMQ.PassDesc = "Password the application will use to connect to RabbitMQ."
	config.RabbitMQ.MockDesc = "Whether or not the application should mock sending messages to RabbitMQ."
	config.RabbitMQ.StockDesc = "RabbitMQ settings for stock level updates."
	config.RabbitMQ.ReservationDesc = "RabbitMQ settings for reservation updates."
	config.RabbitMQ.Stock.ExchangeDesc = "RabbitMQ exchange to use for posting stock updates."
	config.RabbitMQ.Reservation.ExchangeDesc = "RabbitMQ exchange to use for posting reservation updates."
	config.RabbitMQ.SaleDesc = "RabbitMQ settings for consuming checkout events from the order service."
	config.RabbitMQ.Sale.QueueDesc = "RabbitMQ queue checkout events are consumed from."
	config.RabbitMQ.Sale.DltExchangeDesc = "RabbitMQ dead letter exchange for checkout events that could not be applied."

	config.Ledger.SweepIntervalDesc = "How often the reservation expiration sweep runs."
	config.Ledger.ReservationExpiryDesc = "Default horizon after which an unreleased reservation expires."
	config.Ledger.SnapshotDesc = "Where ledger snapshots are persisted."
	config.Ledger.Snapshot.BackendDesc = "Snapshot backend. Examples: file, redis, postgres"
	config.Ledger.Snapshot.FileDesc = "Snapshot file path, used by the file backend."
	config.Ledger.Snapshot.KeyDesc = "Storage key the snapshot is saved under in redis and postgres."
}
