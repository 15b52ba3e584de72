package akv

import (
	"context"
	"encoding/json"
	"os"
	"strconv"

	"akvilon/internal/evm"

	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

type App struct {
	Rpc *evm.Client
	Rdb *redis.Client
	Db  *gorm.DB
	Aqc *asynq.Client
	Aqi *asynq.Inspector
}

type AppConfig struct {
	Settings AppSettings `json:"settings"`
}

type AppSettings struct {
	Ref    RefSettings  `json:"ref"`
	Limits SettingLimit `json:"limits"`
}

// RefSettings holds the tiered upline rates and the total commission
// ceiling, as fractions of gross.
type RefSettings struct {
	Ceiling  float64 `json:"ceiling"`
	LvlOne   float64 `json:"lvl_one"`
	LvlTwo   float64 `json:"lvl_two"`
	LvlThree float64 `json:"lvl_three"`
}

type SettingLimit struct {
	QueueMinBalance    float64 `json:"queue_min_balance"`
	RefundCap          float64 `json:"refund_cap"`
	WithdrawCommission float64 `json:"withdraw_commission"`
	ReserveShare       float64 `json:"reserve_share"`
}

var (
	DefaultAppConfig *AppConfig
	CurrentAppConfig *AppConfig
)

func defaultConfig() *AppConfig {
	return &AppConfig{
		Settings: AppSettings{
			Ref: RefSettings{
				Ceiling:  0.35,
				LvlOne:   0.06,
				LvlTwo:   0.04,
				LvlThree: 0.02,
			},
			Limits: SettingLimit{
				QueueMinBalance:    651,
				RefundCap:          650,
				WithdrawCommission: 1,
				ReserveShare:       0.3,
			},
		},
	}
}

func Init() *App {
	loadEnv()
	redisClient := setupRedis()
	db := setupDb()
	asynqClient := setupAsynqClient()
	asynqInspector := setupAsynqInspector()

	DefaultAppConfig = defaultConfig()

	rpc, err := evm.New(os.Getenv("RPC_PROVIDER_URL"))
	if err != nil {
		panic("failed to connect to the rpc provider")
	}

	app := &App{
		Rpc: rpc,
		Rdb: redisClient,
		Db:  db,
		Aqc: asynqClient,
		Aqi: asynqInspector,
	}
	loadAppConfig(app.Rdb)
	return app
}

// AppJobs is the wiring for the background worker process.
type AppJobs struct {
	Rdb *redis.Client
	Db  *gorm.DB
	Aqs *asynq.Server
	Sch *asynq.Scheduler
}

func InitJobs() *AppJobs {
	loadEnv()
	redisClient := setupRedis()
	db := setupDb()

	DefaultAppConfig = defaultConfig()

	app := &AppJobs{
		Rdb: redisClient,
		Db:  db,
		Aqs: setupAsynqServer(),
		Sch: setupAsynqScheduler(),
	}
	loadAppConfig(app.Rdb)
	return app
}

func loadAppConfig(rdb *redis.Client) {
	isSet := false
	appConfigRaw, _ := rdb.Get(context.Background(), "app_config").Result()
	if len(appConfigRaw) > 0 {
		err := json.Unmarshal([]byte(appConfigRaw), &CurrentAppConfig)
		if err == nil {
			isSet = true
		}
	}
	if !isSet {
		CurrentAppConfig = DefaultAppConfig
		currentConfig, _ := json.Marshal(DefaultAppConfig)
		rdb.Set(context.Background(), "app_config", currentConfig, 0)
	}
}

func setupRedis() *redis.Client {
	redisClient := redis.NewClient(&redis.Options{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})
	return redisClient
}

func setupDb() *gorm.DB {
	dsn := os.Getenv("DB_DSN")
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		panic("failed to connect to the db")
	}
	err = db.AutoMigrate(
		&User{},
		&VIPUser{},
		&ResetToken{},
		&Address{},
		&MetamaskWallet{},
		&AdminWallet{},
		&Coin{},
		&Exchange{},
		&Transaction{},
		&IDO{},
		&IDOParticipant{},
		&QueueUser{},
		&News{},
	)
	if err != nil {
		panic("failed to run migrations")
	}

	return db
}

func setupAsynqClient() *asynq.Client {
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	return asynqClient
}

func setupAsynqInspector() *asynq.Inspector {
	asynqInspector := asynq.NewInspector(asynq.RedisClientOpt{
		Addr:     os.Getenv("REDIS_ADDR"),
		Password: os.Getenv("REDIS_PASSWORD"),
	})
	return asynqInspector
}

func setupAsynqServer() *asynq.Server {
	concurency, err := strconv.Atoi(os.Getenv("JOBS_SCALE"))
	if err != nil {
		concurency = 10
	}
	asynqServer := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		asynq.Config{
			Concurrency: concurency,
			Queues: map[string]int{
				"prices": 1,
				"scan":   2,
			},
		},
	)
	return asynqServer
}

func setupAsynqScheduler() *asynq.Scheduler {
	scheduler := asynq.NewScheduler(
		asynq.RedisClientOpt{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
		},
		&asynq.SchedulerOpts{},
	)
	return scheduler
}

func loadEnv() {
	env := os.Getenv("APP_ENV")
	if "" == env {
		env = "development"
	}

	godotenv.Load(".env." + env + ".local")

	if "test" != env {
		godotenv.Load(".env.local")
	}
	godotenv.Load(".env." + env)
	godotenv.Load()
}
