package main

import (
	"healthmatch/internal/notifications/events"
	"healthmatch/internal/notifications/handler"
	"healthmatch/internal/notifications/repository"
	"healthmatch/internal/notifications/service"
	"healthmatch/internal/notifications/validator"
	"healthmatch/pkg/app"
	"healthmatch/pkg/auth"
	"healthmatch/pkg/config"
	"healthmatch/pkg/kafka"
	kafka_config "healthmatch/pkg/kafka/config"
	kafka_middleware "healthmatch/pkg/kafka/middleware"
)

const ServiceName = "notifications"

func main() {
	cfg := config.Load(ServiceName)
	// notifications are always stored in Mongo
	cfg.SetMongo()

	cfg.Log.Info("Starting Notifications service")
	serverApp := app.NewApplication(cfg)

	notificationService := service.NewNotificationService(
		repository.NewMongoNotificationRepository(cfg),
		validator.NewNotificationValidator(cfg.Log),
		cfg.Log,
	)
	cfg.Log.Info("Notification service initialized", "database", cfg.MongoDatabaseName)

	if cfg.KafkaEnabled {
		initRequestConsumer(cfg, notificationService, serverApp)
	}

	issuer := auth.NewIssuer(cfg.JWTSecret, auth.DefaultIssuer)
	serverApp.SetApp(handler.NewNotificationHandler(notificationService, cfg.Log), issuer, app.StoreChecks(cfg))
	serverApp.Run()
}

func initRequestConsumer(cfg *config.Config, notificationService service.NotificationService, serverApp *app.Application) {
	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log.Info)

	topic := kafkaCfg.NotificationTopic
	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		topic,
		kafkaCfg.GroupID(ServiceName, topic),
		kafkaCfg.DLQTopic(topic),
		events.NotificationRequestHandler(notificationService, cfg.Log),
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create notification request consumer", "error", err)
	}
	consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
	consumer.Use(kafka_middleware.MetricsConsumerMiddleware())
	serverApp.AddWorker("notification-requests-consumer", consumer)
}
