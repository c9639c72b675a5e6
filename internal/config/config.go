package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arkade-os/relayd/internal/core/application"
	"github.com/arkade-os/relayd/internal/core/domain"
	"github.com/arkade-os/relayd/internal/core/ports"
	alertsmanager "github.com/arkade-os/relayd/internal/infrastructure/alertsmanager"
	"github.com/arkade-os/relayd/internal/infrastructure/authorizer/roster"
	"github.com/arkade-os/relayd/internal/infrastructure/clock"
	"github.com/arkade-os/relayd/internal/infrastructure/db"
	inmemoryledger "github.com/arkade-os/relayd/internal/infrastructure/ledger/inmemory"
	inmemorylivestore "github.com/arkade-os/relayd/internal/infrastructure/live-store/inmemory"
	redislivestore "github.com/arkade-os/relayd/internal/infrastructure/live-store/redis"
	timescheduler "github.com/arkade-os/relayd/internal/infrastructure/scheduler/gocron"
	tickerscheduler "github.com/arkade-os/relayd/internal/infrastructure/scheduler/ticker"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var (
	supportedEventDbs = supportedType{
		"badger":   {},
		"postgres": {},
	}
	supportedDbs = supportedType{
		"badger":   {},
		"sqlite":   {},
		"postgres": {},
	}
	supportedSchedulers = supportedType{
		"gocron": {},
		"ticker": {},
	}
	supportedLiveStores = supportedType{
		"inmemory": {},
		"redis":    {},
	}
)

type Config struct {
	Datadir   string
	Port      uint32
	AdminPort uint32
	LogLevel  int

	DbType              string
	EventDbType         string
	DbDir               string
	DbUrl               string
	EventDbDir          string
	EventDbUrl          string
	SchedulerType       string
	LiveStoreType       string
	RedisUrl            string
	RedisTxNumOfRetries int
	AutoExpire          bool
	AlertManagerURL     string
	LedgerBalancesFile  string
	HeartbeatInterval   int64
	EnablePprof         bool

	Relayers []string
	Managers []string
	Pausers  []string

	TransactionTimeout     int64
	FeeBasisPoints         uint64
	HourlyTransactionLimit uint64
	RequiredConfirmations  uint64
	ChallengeThreshold     uint64
	FeeCollector           string

	repo       ports.RepoManager
	svc        application.Service
	adminSvc   application.AdminService
	clock      ports.Clock
	ledger     ports.Ledger
	authorizer ports.Authorizer
	scheduler  ports.SchedulerService
	liveStore  ports.LiveStore
	alerts     ports.Alerts
}

func (c *Config) String() string {
	clone := *c
	clone.DbUrl = redactUrl(clone.DbUrl)
	clone.EventDbUrl = redactUrl(clone.EventDbUrl)
	clone.RedisUrl = redactUrl(clone.RedisUrl)
	json, err := json.MarshalIndent(clone, "", "  ")
	if err != nil {
		return fmt.Sprintf("error while marshalling config JSON: %s", err)
	}
	return string(json)
}

var (
	defaultDatadir             = appDataDir("relayd")
	DefaultPort                = 7070
	DefaultAdminPort           = 7071
	defaultDbType              = "badger"
	defaultEventDbType         = "badger"
	defaultSchedulerType       = "gocron"
	defaultLiveStoreType       = "inmemory"
	defaultRedisTxNumOfRetries = 10
	defaultLogLevel            = 4
	defaultHeartbeatInterval   = 60 // seconds
	defaultAutoExpire          = false
	defaultEnablePprof         = false
)

// env returns a list of strings prefixed with `RELAYD_`.
// This is used as a syntax sugar for defining env vars.
func env(values ...string) []string {
	envs := make([]string, len(values))

	for i, value := range values {
		envs[i] = fmt.Sprintf("RELAYD_%s", value)
	}

	return envs
}

var (
	Datadir = &cli.StringFlag{
		Usage: "Directory to store data",
		Name:  "datadir", EnvVars: env("DATADIR"),
		Value: defaultDatadir,
	}

	Port = &cli.UintFlag{
		Usage: "Port (public) to listen on",
		Name:  "port", EnvVars: env("PORT"),
		Value: uint(DefaultPort),
	}

	AdminPort = &cli.UintFlag{
		Usage: "Admin port (private) to listen on, fallback to service port if 0",
		Name:  "admin-port", EnvVars: env("ADMIN_PORT"),
		Value: uint(DefaultAdminPort),
	}

	LogLevel = &cli.IntFlag{
		Usage: "Logging level (0-6, where 6 is trace)",
		Name:  "log-level", EnvVars: env("LOG_LEVEL"),
		Value: defaultLogLevel,
	}

	DbType = &cli.StringFlag{
		Usage: "Database type (postgres, sqlite, badger)",
		Name:  "db-type", EnvVars: env("DB_TYPE"),
		Value: defaultDbType,
	}

	DbUrl = &cli.StringFlag{
		Usage: "Postgres connection url if RELAYD_DB_TYPE is set to postgres",
		Name:  "pg-db-url", EnvVars: env("PG_DB_URL"),
	}

	EventDbType = &cli.StringFlag{
		Usage: "Event database type (postgres, badger)",
		Name:  "event-db-type", EnvVars: env("EVENT_DB_TYPE"),
		Value: defaultEventDbType,
	}

	EventDbUrl = &cli.StringFlag{
		Usage: "Postgres connection url if RELAYD_EVENT_DB_TYPE is set to postgres",
		Name:  "pg-event-db-url", EnvVars: env("PG_EVENT_DB_URL"),
	}

	SchedulerType = &cli.StringFlag{
		Usage: "Scheduler used for auto-expiry (gocron, ticker)",
		Name:  "scheduler-type", EnvVars: env("SCHEDULER_TYPE"),
		Value: defaultSchedulerType,
	}

	LiveStoreType = &cli.StringFlag{
		Usage: "Live store type (redis, inmemory)",
		Name:  "live-store-type", EnvVars: env("LIVE_STORE_TYPE"),
		Value: defaultLiveStoreType,
	}

	RedisUrl = &cli.StringFlag{
		Usage: "Redis db connection url if RELAYD_LIVE_STORE_TYPE is set to redis",
		Name:  "redis-url", EnvVars: env("REDIS_URL"),
	}

	RedisTxNumOfRetries = &cli.IntFlag{
		Usage: "Maximum number of retries for Redis write operations in case of conflicts",
		Name:  "redis-num-of-retries", EnvVars: env("REDIS_NUM_OF_RETRIES"),
		Value: defaultRedisTxNumOfRetries,
	}

	AutoExpire = &cli.BoolFlag{
		Usage: "Automatically expire pending transactions once past their deadline",
		Name:  "auto-expire", EnvVars: env("AUTO_EXPIRE"),
		Value: defaultAutoExpire,
	}

	AlertManagerURL = &cli.StringFlag{
		Usage: "Alertmanager URL for sending operator alerts",
		Name:  "alert-manager-url", EnvVars: env("ALERT_MANAGER_URL"),
	}

	LedgerBalancesFile = &cli.StringFlag{
		Usage: "Path to a JSON file with the initial ledger balances (asset -> account -> amount)",
		Name:  "ledger-balances-file", EnvVars: env("LEDGER_BALANCES_FILE"),
	}

	Relayers = &cli.StringSliceFlag{
		Usage: "Identities allowed to attest transactions",
		Name:  "relayers", EnvVars: env("RELAYERS"),
	}

	Managers = &cli.StringSliceFlag{
		Usage: "Identities allowed to manage the registry, settings and fees",
		Name:  "managers", EnvVars: env("MANAGERS"),
	}

	Pausers = &cli.StringSliceFlag{
		Usage: "Identities allowed to pause and unpause the relay",
		Name:  "pausers", EnvVars: env("PAUSERS"),
	}

	// TODO: Make this a cli.DurationFlag.
	TransactionTimeout = &cli.Int64Flag{
		Usage: "Default time (in seconds) before a pending transaction can be expired",
		Name:  "tx-timeout", EnvVars: env("TX_TIMEOUT"),
		Value: domain.DefaultTransactionTimeout,

		DefaultText: fmt.Sprintf("%d (~%0.f days)", domain.DefaultTransactionTimeout,
			(time.Duration(domain.DefaultTransactionTimeout)*time.Second).Hours()/24),
	}

	FeeBasisPoints = &cli.Uint64Flag{
		Usage: "Default fee charged on outbound transfers above the challenge threshold, in basis points",
		Name:  "fee-bps", EnvVars: env("FEE_BPS"),
		Value: domain.DefaultFeeBasisPoints,
	}

	HourlyTransactionLimit = &cli.Uint64Flag{
		Usage: "Default maximum number of transactions created in any rolling hour",
		Name:  "hourly-tx-limit", EnvVars: env("HOURLY_TX_LIMIT"),
		Value: domain.DefaultHourlyTransactionLimit,
	}

	RequiredConfirmations = &cli.Uint64Flag{
		Usage: "Default number of relayer attestations to finalize a transaction",
		Name:  "required-confirmations", EnvVars: env("REQUIRED_CONFIRMATIONS"),
		Value: domain.DefaultRequiredConfirmations,
	}

	ChallengeThreshold = &cli.Uint64Flag{
		Usage: "Default amount at or above which transfers need relayer attestations",
		Name:  "challenge-threshold", EnvVars: env("CHALLENGE_THRESHOLD"),
		Value: domain.DefaultChallengeThreshold,
	}

	FeeCollector = &cli.StringFlag{
		Usage: "Default account receiving the collected fees",
		Name:  "fee-collector", EnvVars: env("FEE_COLLECTOR"),
	}

	HeartbeatInterval = &cli.Int64Flag{
		Usage: "Interval (in seconds) between heartbeats sent on idle event streams",
		Name:  "heartbeat-interval", EnvVars: env("HEARTBEAT_INTERVAL"),
		Value: int64(defaultHeartbeatInterval),
	}

	EnablePprof = &cli.BoolFlag{
		Usage: "Serve pprof endpoints on the admin port",
		Name:  "enable-pprof", EnvVars: env("ENABLE_PPROF"),
		Value: defaultEnablePprof,
	}
)

var Flags = []cli.Flag{
	Datadir,
	Port,
	AdminPort,
	LogLevel,
	DbType,
	DbUrl,
	EventDbType,
	EventDbUrl,
	SchedulerType,
	LiveStoreType,
	RedisUrl,
	RedisTxNumOfRetries,
	AutoExpire,
	AlertManagerURL,
	LedgerBalancesFile,
	Relayers,
	Managers,
	Pausers,
	TransactionTimeout,
	FeeBasisPoints,
	HourlyTransactionLimit,
	RequiredConfirmations,
	ChallengeThreshold,
	FeeCollector,
	HeartbeatInterval,
	EnablePprof,
}

func LoadConfig(c *cli.Context) (*Config, error) {
	if err := initDatadir(c); err != nil {
		return nil, fmt.Errorf("failed to create datadir: %s", err)
	}

	dbPath := filepath.Join(c.String(Datadir.Name), "db")

	var eventDbUrl string
	if c.String(EventDbType.Name) == "postgres" {
		eventDbUrl = c.String(EventDbUrl.Name)
		if eventDbUrl == "" {
			return nil, fmt.Errorf("event db type set to 'postgres' but event db url is missing")
		}
	}

	var dbUrl string
	if c.String(DbType.Name) == "postgres" {
		dbUrl = c.String(DbUrl.Name)
		if dbUrl == "" {
			return nil, fmt.Errorf("db type set to 'postgres' but db url is missing")
		}
	}

	var redisUrl string
	if c.String(LiveStoreType.Name) == "redis" {
		redisUrl = c.String(RedisUrl.Name)
		if redisUrl == "" {
			return nil, fmt.Errorf("live store type set to 'redis' but redis url is missing")
		}
	}

	// In case the admin port is unset, fallback to service port.
	adminPort := c.Uint(AdminPort.Name)
	if adminPort == 0 {
		adminPort = c.Uint(Port.Name)
	}

	return &Config{
		Datadir:             c.String(Datadir.Name),
		Port:                uint32(c.Uint(Port.Name)),
		AdminPort:           uint32(adminPort),
		LogLevel:            c.Int(LogLevel.Name),
		DbType:              c.String(DbType.Name),
		EventDbType:         c.String(EventDbType.Name),
		DbDir:               dbPath,
		DbUrl:               dbUrl,
		EventDbDir:          dbPath,
		EventDbUrl:          eventDbUrl,
		SchedulerType:       c.String(SchedulerType.Name),
		LiveStoreType:       c.String(LiveStoreType.Name),
		RedisUrl:            redisUrl,
		RedisTxNumOfRetries: c.Int(RedisTxNumOfRetries.Name),
		AutoExpire:          c.Bool(AutoExpire.Name),
		AlertManagerURL:     c.String(AlertManagerURL.Name),
		LedgerBalancesFile:  c.String(LedgerBalancesFile.Name),
		HeartbeatInterval:   c.Int64(HeartbeatInterval.Name),
		EnablePprof:         c.Bool(EnablePprof.Name),

		Relayers: c.StringSlice(Relayers.Name),
		Managers: c.StringSlice(Managers.Name),
		Pausers:  c.StringSlice(Pausers.Name),

		TransactionTimeout:     c.Int64(TransactionTimeout.Name),
		FeeBasisPoints:         c.Uint64(FeeBasisPoints.Name),
		HourlyTransactionLimit: c.Uint64(HourlyTransactionLimit.Name),
		RequiredConfirmations:  c.Uint64(RequiredConfirmations.Name),
		ChallengeThreshold:     c.Uint64(ChallengeThreshold.Name),
		FeeCollector:           c.String(FeeCollector.Name),
	}, nil
}

func initDatadir(c *cli.Context) error {
	datadir := c.String(Datadir.Name)
	return makeDirectoryIfNotExists(datadir)
}

func makeDirectoryIfNotExists(path string) error {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return os.MkdirAll(path, os.ModeDir|0o755)
	}
	return nil
}

func (c *Config) Validate() error {
	if !supportedEventDbs.supports(c.EventDbType) {
		return fmt.Errorf(
			"event db type not supported, please select one of: %s",
			supportedEventDbs,
		)
	}
	if !supportedDbs.supports(c.DbType) {
		return fmt.Errorf("db type not supported, please select one of: %s", supportedDbs)
	}
	if !supportedSchedulers.supports(c.SchedulerType) {
		return fmt.Errorf(
			"scheduler type not supported, please select one of: %s",
			supportedSchedulers,
		)
	}
	if !supportedLiveStores.supports(c.LiveStoreType) {
		return fmt.Errorf(
			"live store type not supported, please select one of: %s",
			supportedLiveStores,
		)
	}
	if len(c.Relayers) <= 0 {
		return fmt.Errorf("missing relayers")
	}
	if uint64(len(c.Relayers)) < c.RequiredConfirmations {
		return fmt.Errorf(
			"required confirmations (%d) exceed the number of relayers (%d)",
			c.RequiredConfirmations, len(c.Relayers),
		)
	}
	if _, err := c.defaultSettings(); err != nil {
		return err
	}

	c.clock = clock.NewSystemClock()

	if err := c.repoManager(); err != nil {
		return err
	}
	if err := c.liveStoreService(); err != nil {
		return err
	}
	if err := c.schedulerService(); err != nil {
		return err
	}
	if err := c.alertsService(); err != nil {
		return err
	}
	if err := c.ledgerService(); err != nil {
		return err
	}
	if err := c.authorizerService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) AppService() (application.Service, error) {
	if c.svc == nil {
		if err := c.appService(); err != nil {
			return nil, err
		}
	}
	return c.svc, nil
}

func (c *Config) AdminService() (application.AdminService, error) {
	if c.adminSvc == nil {
		if err := c.adminService(); err != nil {
			return nil, err
		}
	}
	return c.adminSvc, nil
}

func (c *Config) repoManager() error {
	var svc ports.RepoManager
	var err error
	var eventStoreConfig []interface{}
	var dataStoreConfig []interface{}
	logger := log.New()

	switch c.EventDbType {
	case "badger":
		eventStoreConfig = []interface{}{c.EventDbDir, logger}
	case "postgres":
		eventStoreConfig = []interface{}{c.EventDbUrl, true}
	default:
		return fmt.Errorf("unknown event db type")
	}

	switch c.DbType {
	case "badger":
		dataStoreConfig = []interface{}{c.DbDir, logger}
	case "sqlite":
		dataStoreConfig = []interface{}{c.DbDir}
	case "postgres":
		dataStoreConfig = []interface{}{c.DbUrl, true}
	default:
		return fmt.Errorf("unknown db type")
	}

	svc, err = db.NewService(db.ServiceConfig{
		EventStoreType:   c.EventDbType,
		DataStoreType:    c.DbType,
		EventStoreConfig: eventStoreConfig,
		DataStoreConfig:  dataStoreConfig,
	})
	if err != nil {
		return err
	}

	c.repo = svc
	return nil
}

func (c *Config) liveStoreService() error {
	var liveStoreSvc ports.LiveStore
	var err error
	switch c.LiveStoreType {
	case "inmemory":
		liveStoreSvc = inmemorylivestore.NewLiveStore()
	case "redis":
		redisOpts, err := redis.ParseURL(c.RedisUrl)
		if err != nil {
			return fmt.Errorf("invalid REDIS_URL: %w", err)
		}
		rdb := redis.NewClient(redisOpts)
		liveStoreSvc = redislivestore.NewLiveStore(rdb, c.RedisTxNumOfRetries)
	default:
		err = fmt.Errorf("unknown liveStore type")
	}

	if err != nil {
		return err
	}

	c.liveStore = liveStoreSvc
	return nil
}

// schedulerService is a no-op unless auto-expiry is enabled.
func (c *Config) schedulerService() error {
	if !c.AutoExpire {
		return nil
	}

	var svc ports.SchedulerService
	var err error
	switch c.SchedulerType {
	case "gocron":
		svc = timescheduler.NewScheduler()
	case "ticker":
		svc, err = tickerscheduler.NewScheduler(c.clock)
	default:
		err = fmt.Errorf("unknown scheduler type")
	}
	if err != nil {
		return err
	}

	c.scheduler = svc
	return nil
}

func (c *Config) alertsService() error {
	if c.AlertManagerURL == "" {
		return nil
	}

	c.alerts = alertsmanager.NewService(c.AlertManagerURL)
	return nil
}

func (c *Config) ledgerService() error {
	ledger, err := inmemoryledger.NewLedgerFromFile(c.LedgerBalancesFile)
	if err != nil {
		return err
	}
	c.ledger = ledger
	return nil
}

func (c *Config) authorizerService() error {
	c.authorizer = roster.NewAuthorizer(c.Relayers, c.Managers, c.Pausers)
	return nil
}

func (c *Config) appService() error {
	defaults, err := c.defaultSettings()
	if err != nil {
		return err
	}

	svc, err := application.NewService(
		c.repo, c.ledger, c.authorizer, c.clock, c.liveStore, c.alerts,
		c.scheduler, *defaults, c.version(),
	)
	if err != nil {
		return err
	}

	c.svc = svc
	return nil
}

func (c *Config) adminService() error {
	appSvc, err := c.AppService()
	if err != nil {
		return err
	}

	adminSvc, err := application.NewAdminService(appSvc)
	if err != nil {
		return err
	}
	c.adminSvc = adminSvc
	return nil
}

// defaultSettings are stored only at first start, the ones in the db prevail
// afterwards.
func (c *Config) defaultSettings() (*domain.Settings, error) {
	settings, err := domain.NewSettings(
		c.TransactionTimeout, c.FeeBasisPoints, c.HourlyTransactionLimit,
		c.RequiredConfirmations, c.ChallengeThreshold, c.FeeCollector,
	)
	if err != nil {
		return nil, fmt.Errorf("invalid default settings: %w", err)
	}
	return settings, nil
}

// Version is set at build time by cmd/relayd.
var Version = "dev"

func (c *Config) version() string {
	return Version
}

type supportedType map[string]struct{}

func (t supportedType) String() string {
	types := make([]string, 0, len(t))
	for tt := range t {
		types = append(types, tt)
	}
	return strings.Join(types, " | ")
}

func (t supportedType) supports(typeStr string) bool {
	_, ok := t[typeStr]
	return ok
}

func redactUrl(rawUrl string) string {
	if rawUrl == "" {
		return ""
	}
	u, err := url.Parse(rawUrl)
	if err != nil {
		return "••••••"
	}
	return u.Redacted()
}

func appDataDir(appName string) string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "." + appName
	}
	return filepath.Join(home, "."+appName)
}
