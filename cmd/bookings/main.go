package main

import (
	"healthmatch/internal/bookings/events"
	"healthmatch/internal/bookings/handler"
	"healthmatch/internal/bookings/repository"
	"healthmatch/internal/bookings/service"
	"healthmatch/internal/bookings/validator"
	"healthmatch/pkg/app"
	"healthmatch/pkg/auth"
	"healthmatch/pkg/client"
	"healthmatch/pkg/config"
	"healthmatch/pkg/kafka"
	kafka_config "healthmatch/pkg/kafka/config"
	kafka_middleware "healthmatch/pkg/kafka/middleware"
)

const ServiceName = "bookings"

func main() {
	cfg := config.Load(ServiceName)
	cfg.SetStore()

	cfg.Log.Info("Starting Bookings service")
	serverApp := app.NewApplication(cfg)
	issuer := auth.NewIssuer(cfg.JWTSecret, auth.DefaultIssuer)

	var kafkaCfg *kafka_config.Config
	if cfg.KafkaEnabled {
		kafkaCfg = loadKafkaConfig(cfg)
	}

	bookingService := initServices(cfg, issuer, kafkaCfg, serverApp)
	if kafkaCfg != nil {
		initPaymentConsumer(cfg, kafkaCfg, bookingService, serverApp)
	}

	serverApp.SetApp(handler.NewBookingHandler(bookingService, cfg.Log), issuer, app.StoreChecks(cfg))
	serverApp.Run()
}

func initServices(cfg *config.Config, issuer *auth.Issuer, kafkaCfg *kafka_config.Config, serverApp *app.Application) service.BookingService {
	tokens := client.TokenSource(issuer.ServiceTokenSource(ServiceName, cfg.ServiceTokenTTL))

	collaborators := service.Collaborators{
		Directory: client.NewDirectoryClient(cfg.UsersServiceURL, cfg.CollaboratorTimeout, tokens),
		Catalog:   client.NewCatalogClient(cfg.CatalogServiceURL, cfg.CollaboratorTimeout, tokens),
		Notifier:  client.NewNotificationClient(cfg.NotificationServiceURL, cfg.CollaboratorTimeout, tokens),
		Payments:  client.NewPaymentClient(cfg.PaymentServiceURL, cfg.CollaboratorTimeout, tokens),
	}

	if cfg.NotificationTransport == config.TransportKafka && kafkaCfg != nil {
		producer, err := kafka.NewProducer(kafkaCfg, kafkaCfg.NotificationTopic, kafkaCfg.DLQTopic(kafkaCfg.NotificationTopic), cfg.Log)
		if err != nil {
			cfg.Log.Fatal("Failed to create notification producer", "error", err)
		}
		producer.Use(kafka_middleware.LoggingProducerMiddleware(cfg.Log))
		producer.Use(kafka_middleware.MetricsProducerMiddleware())
		serverApp.AddCloser("notification-producer", producer)

		collaborators.Notifier = events.NewKafkaNotifier(producer, ServiceName)
		cfg.Log.Info("Notifications published to Kafka", "topic", kafkaCfg.NotificationTopic)
	}

	var bookingRepo repository.BookingRepository
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		bookingRepo = repository.NewPostgresBookingRepository(cfg)
	default:
		bookingRepo = repository.NewMongoBookingRepository(cfg)
	}

	bookingService := service.NewBookingService(
		bookingRepo,
		validator.NewBookingValidator(cfg.Log),
		collaborators,
		service.PolicyFromConfig(cfg),
		cfg.Log,
	)

	cfg.Log.Info("Booking service initialized", "store", cfg.StoreDriver)
	return bookingService
}

func initPaymentConsumer(cfg *config.Config, kafkaCfg *kafka_config.Config, bookingService service.BookingService, serverApp *app.Application) {
	topic := kafkaCfg.PaymentEventsTopic
	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		topic,
		kafkaCfg.GroupID(ServiceName, topic),
		kafkaCfg.DLQTopic(topic),
		events.PaymentEventHandler(bookingService, cfg.Log),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create payment events consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(kafka_middleware.MetricsConsumerMiddleware())
	serverApp.AddWorker("payment-events-consumer", consumer)
}

func loadKafkaConfig(cfg *config.Config) *kafka_config.Config {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)
	return kafkaCfg
}
