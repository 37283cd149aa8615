package main

import (
	"context"
	"os"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nhattran/livebid-BE/api"
	"github.com/nhattran/livebid-BE/internal/auction"
	db "github.com/nhattran/livebid-BE/internal/db"
	"github.com/nhattran/livebid-BE/internal/event"
	"github.com/nhattran/livebid-BE/internal/notification"
	"github.com/nhattran/livebid-BE/internal/util"
	"github.com/nhattran/livebid-BE/internal/worker"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	// Load configurations
	config, err := util.LoadConfig("./app.env")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config file 😣")
	}

	log.Info().Msg("configurations loaded successfully ✅")

	// Create connection pool
	connPool, err := pgxpool.New(context.Background(), config.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to validate db connection string 😣")
	}

	pingErr := connPool.Ping(context.Background())
	if pingErr != nil {
		log.Fatal().Err(pingErr).Msg("failed to connect to db 😣")
	}
	log.Info().Msg("connected to db ✅")

	store := db.NewStore(connPool)

	redisOpt := asynq.RedisClientOpt{
		Addr: config.RedisServerAddress,
	}

	taskDistributor := worker.NewTaskDistributor(redisOpt)
	taskInspector := worker.NewTaskInspector(redisOpt)
	scheduler := worker.NewAuctionScheduler(taskDistributor, taskInspector)

	eventSender, err := buildEventSender(config)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event sender 😣")
	}
	go eventSender.Run()

	engine := auction.NewEngine(store, eventSender, scheduler)

	// Re-arm the clocks of auctions that were live before the last restart.
	if err = engine.Recover(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to recover active auctions 😣")
	}

	notifier := buildNotifier(config)

	go runTaskProcessor(redisOpt, engine, notifier)
	go runSweeper(engine, &config)

	runHTTPServer(&config, store, engine, eventSender)
}

// buildEventSender wires the in-process SSE fan-out, mirrored to RabbitMQ
// when an AMQP URL is configured.
func buildEventSender(config util.Config) (event.Sender, error) {
	sseServer := event.NewSSEServer()
	if config.AMQPServerURL == "" {
		return sseServer, nil
	}

	conn, err := amqp.Dial(config.AMQPServerURL)
	if err != nil {
		return nil, err
	}

	mirror, err := event.NewAMQPMirror(sseServer, conn, config.AMQPExchange)
	if err != nil {
		return nil, err
	}
	log.Info().Str("exchange", config.AMQPExchange).Msg("AMQP event mirror created successfully ✅")
	return mirror, nil
}

func buildNotifier(config util.Config) notification.Notifier {
	if config.SMTPHost == "" {
		return notification.NewLogNotifier()
	}

	mailNotifier, err := notification.NewMailNotifier(config.SMTPHost, config.SMTPPort, config.SMTPUsername, config.SMTPPassword, config.SMTPSenderName, config.SMTPSenderEmail)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create mail notifier 😣")
	}
	log.Info().Msg("mail notifier created successfully ✅")
	return mailNotifier
}

func runTaskProcessor(redisOpt asynq.RedisClientOpt, engine *auction.Engine, notifier notification.Notifier) {
	taskProcessor := worker.NewRedisTaskProcessor(redisOpt, engine, notifier)
	log.Info().Msg("starting task processor")

	err := taskProcessor.Start()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start task processor 😣")
	}
}

// runSweeper periodically closes overdue auctions in case their scheduled
// close task was lost. Close is idempotent, so racing the task is harmless.
func runSweeper(engine *auction.Engine, config *util.Config) {
	sweeper, err := auction.NewSweeper(engine, config.SweepInterval)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create sweeper 😣")
	}

	if err = sweeper.Start(); err != nil {
		log.Fatal().Err(err).Msg("failed to start sweeper 😣")
	}
}

func runHTTPServer(config *util.Config, store db.Store, engine *auction.Engine, eventSender event.Sender) {
	server, err := api.NewServer(store, engine, eventSender, config)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create HTTP server 😣")
	}

	err = server.Start(config.HTTPServerAddress)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to start HTTP server 😣")
	}
}
