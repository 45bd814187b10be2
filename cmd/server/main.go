package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/labstack/echo/v4"
	"github.com/makbank/bankhub.go/db"
	"github.com/makbank/bankhub.go/lib"
	"github.com/makbank/bankhub.go/lib/middlewares"
	"github.com/makbank/bankhub.go/lib/service"
	"github.com/makbank/bankhub.go/lib/tokens"
	"github.com/makbank/bankhub.go/lib/transport"
	"github.com/makbank/bankhub.go/rabbitmq"
	ddEcho "gopkg.in/DataDog/dd-trace-go.v1/contrib/labstack/echo.v4"
	"gopkg.in/DataDog/dd-trace-go.v1/ddtrace/tracer"
)

func main() {

	c := &service.Config{}

	// Load configruation from environment variables
	err := godotenv.Load(".env")
	if err != nil {
		fmt.Println("Failed to load .env file")
	}
	err = envconfig.Process("", c)
	if err != nil {
		log.Fatalf("Error loading environment variables: %v", err)
	}

	// Setup logging to STDOUT or a configrued log file
	logger := lib.Logger(c.LogFilePath)

	// Setup exception tracking with Sentry if configured
	// sentry init needs to happen before the echo middlewares are added
	if c.SentryDSN != "" {
		if err = sentry.Init(sentry.ClientOptions{
			Dsn:              c.SentryDSN,
			IgnoreErrors:     []string{"401"},
			EnableTracing:    c.SentryTracesSampleRate > 0,
			TracesSampleRate: c.SentryTracesSampleRate,
		}); err != nil {
			logger.Errorf("sentry init error: %v", err)
		}
		defer sentry.Flush(2 * time.Second)
	}

	// Open the store based on the configured DATABASE_URI and migrate it
	startupCtx, cancelStartup := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancelStartup()
	bankStore, err := db.OpenStore(startupCtx, c)
	if err != nil {
		logger.Fatalf("Error initializing store: %v", err)
	}
	defer bankStore.Close()

	// If no RABBITMQ_URI was provided welcome notifications only go to the log
	var notifier service.Notifier = &service.LogNotifier{Logger: logger}
	if c.RabbitMQUri != "" {
		amqpClient, err := rabbitmq.DialAMQP(c.RabbitMQUri, rabbitmq.WithAmqpLogger(logger))
		if err != nil {
			logger.Fatal(err)
		}

		rabbitmqClient, err := rabbitmq.NewClient(amqpClient,
			rabbitmq.WithLogger(logger),
			rabbitmq.WithNotificationExchange(c.RabbitMQNotificationExchange),
		)
		if err != nil {
			logger.Fatal(err)
		}

		// close the connection gently at the end of the runtime
		defer rabbitmqClient.Close()
		notifier = rabbitmqClient
	}

	svc := &service.BankService{
		Config:      c,
		Store:       bankStore,
		Logger:      logger,
		Notifier:    notifier,
		EntryPubSub: service.NewPubsub(),
	}

	//init echo server
	e := transport.InitEcho(c, logger)
	//if Datadog is configured, add datadog middleware
	if c.DatadogAgentUrl != "" {
		tracer.Start(tracer.WithAgentAddr(c.DatadogAgentUrl))
		defer tracer.Stop()
		e.Use(ddEcho.Middleware(ddEcho.WithServiceName("bankhub.go")))
	}

	mw := transport.Middlewares{
		Auth: tokens.Middleware(c.JWTSecret),
		Log:  transport.CreateLoggingMiddleware(logger),
		// strict rate limit for requests moving money
		StrictRateLimit: transport.CreateRateLimitMiddleware(c.StrictRateLimit, c.BurstRateLimit),
	}
	// Idempotency keys are only honoured when redis is configured
	if c.RedisUrl != "" {
		redisOptions, err := redis.ParseURL(c.RedisUrl)
		if err != nil {
			logger.Fatalf("Error parsing REDIS_URL: %v", err)
		}
		redisClient := redis.NewClient(redisOptions)
		if err := redisClient.Ping(startupCtx).Err(); err != nil {
			logger.Fatalf("Error connecting to redis: %v", err)
		}
		defer redisClient.Close()
		mw.Idempotency = middlewares.Idempotency(
			&middlewares.RedisIdempotencyStore{Client: redisClient},
			time.Duration(c.IdempotencyKeyTTL)*time.Second,
		)
	}
	transport.RegisterEndpoints(svc, e, mw)

	var backgroundWg sync.WaitGroup
	backGroundCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	//Start webhook subscription
	if svc.Config.WebhookUrl != "" {
		backgroundWg.Add(1)
		go func() {
			svc.StartWebhookSubscription(backGroundCtx, svc.Config.WebhookUrl)
			svc.Logger.Info("Webhook routine done")
			backgroundWg.Done()
		}()
	}
	//Start kafka ledger entry stream
	if len(svc.Config.KafkaBrokers) > 0 {
		writer := service.NewKafkaWriter(svc.Config.KafkaBrokers, svc.Config.KafkaLedgerTopic)
		backgroundWg.Add(1)
		go func() {
			defer backgroundWg.Done()
			defer writer.Close()
			err := svc.StartKafkaEntryPublisher(backGroundCtx, writer)
			if err != nil && err != context.Canceled {
				svc.Logger.Error(err)
				sentry.CaptureException(err)
			}
			svc.Logger.Info("Kafka ledger entry publisher done")
		}()
	}

	//Start Prometheus server if necessary
	var echoPrometheus *echo.Echo
	if svc.Config.EnablePrometheus {
		echoPrometheus = transport.StartPrometheusEcho(logger, c, e)
	}

	// Start server
	go func() {
		if err := e.Start(fmt.Sprintf(":%v", c.Port)); err != nil && err != http.ErrServerClosed {
			e.Logger.Fatal("shutting down the server")
		}
	}()

	<-backGroundCtx.Done()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		e.Logger.Fatal(err)
	}
	if echoPrometheus != nil {
		if err := echoPrometheus.Shutdown(ctx); err != nil {
			e.Logger.Fatal(err)
		}
	}
	//Wait for graceful shutdown of background routines
	backgroundWg.Wait()
	svc.Logger.Info("Bankhub exiting gracefully. Goodbye.")
}
