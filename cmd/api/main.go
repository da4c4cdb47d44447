package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kurumsal-tedarikci/api/internal/di"
	"github.com/kurumsal-tedarikci/api/internal/erp"
	"github.com/kurumsal-tedarikci/api/internal/handlers"
	"github.com/kurumsal-tedarikci/api/internal/notifications"
	"github.com/kurumsal-tedarikci/api/internal/platform/auth"
	"github.com/kurumsal-tedarikci/api/internal/platform/config"
	"github.com/kurumsal-tedarikci/api/internal/platform/events"
	pfirestore "github.com/kurumsal-tedarikci/api/internal/platform/firestore"
	"github.com/kurumsal-tedarikci/api/internal/platform/idempotency"
	"github.com/kurumsal-tedarikci/api/internal/platform/observability"
	"github.com/kurumsal-tedarikci/api/internal/platform/secrets"
	"github.com/kurumsal-tedarikci/api/internal/repositories"
	firestoreRepo "github.com/kurumsal-tedarikci/api/internal/repositories/firestore"
)

const (
	idempotencyTTL          = 24 * time.Hour
	idempotencyCleanupEvery = time.Hour
	idempotencyCleanupBatch = 200
)

func main() {
	ctx := context.Background()
	startedAt := time.Now().UTC()

	baseLogger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialise logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = baseLogger.Sync()
	}()

	logger := baseLogger.Named("api")
	ctx = observability.WithLogger(ctx, logger)

	fetcher, err := newSecretFetcher(ctx, logger.Named("secrets"))
	if err != nil {
		logger.Fatal("failed to initialise secret fetcher", zap.Error(err))
	}
	defer func() {
		if err := fetcher.Close(); err != nil {
			logger.Warn("secret fetcher close error", zap.Error(err))
		}
	}()

	cfg, err := config.Load(ctx,
		config.WithSecretResolver(config.SecretResolverFunc(fetcher.Resolve)),
		config.WithRequiredSecrets(requiredSecretRefs()...),
	)
	if err != nil {
		var missing *config.MissingSecretsError
		if errors.As(err, &missing) {
			logger.Fatal("missing required secrets", zap.Strings("secrets", missing.RedactedNames()))
		}
		logger.Fatal("failed to load configuration", zap.Error(err))
	}

	firestoreProvider := pfirestore.NewProvider(cfg.Firestore)
	firestoreClient, err := firestoreProvider.Client(ctx)
	if err != nil {
		logger.Fatal("failed to initialise firestore client", zap.Error(err))
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := firestoreProvider.Close(closeCtx); err != nil {
			logger.Warn("firestore close error", zap.Error(err))
		}
	}()

	registry, err := firestoreRepo.NewRegistry(firestoreProvider)
	if err != nil {
		logger.Fatal("failed to initialise repositories", zap.Error(err))
	}

	tokenManager, err := auth.NewTokenManager(auth.TokenManagerConfig{
		Secret:   cfg.Auth.TokenSecret,
		Issuer:   cfg.Auth.TokenIssuer,
		TTL:      cfg.Auth.TokenTTL,
		AdminTTL: cfg.Auth.AdminTokenTTL,
	})
	if err != nil {
		logger.Fatal("failed to initialise token manager", zap.Error(err))
	}
	authenticator := auth.NewAuthenticator(tokenManager)

	erpGateway, err := erp.NewGateway(erp.GatewayConfig{
		BaseURL:  cfg.ERP.BaseURL,
		Email:    cfg.ERP.Email,
		Password: cfg.ERP.Password,
		Timeout:  cfg.ERP.Timeout,
		Logger:   zapEventLogger(logger.Named("erp")),
	})
	if err != nil {
		logger.Fatal("failed to initialise erp gateway", zap.Error(err))
	}

	dispatcher, err := newNotificationDispatcher(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialise notification dispatcher", zap.Error(err))
	}

	deps := di.Dependencies{
		Tokens:   tokenManager,
		Erp:      erpGateway,
		Notifier: dispatcher,
		Logger:   zapEventLogger(logger.Named("services")),
	}

	var pubsubClient *pubsub.Client
	var orderTopic *pubsub.Topic
	if topicID := strings.TrimSpace(cfg.Events.Topic); topicID != "" {
		pubsubClient, err = pubsub.NewClient(ctx, cfg.Events.ProjectID)
		if err != nil {
			logger.Fatal("failed to initialise pubsub client", zap.Error(err))
		}
		defer func() {
			if err := pubsubClient.Close(); err != nil {
				logger.Warn("pubsub close error", zap.Error(err))
			}
		}()
		orderTopic = pubsubClient.Topic(topicID)
		defer orderTopic.Stop()

		publisher, err := events.NewPubSubOrderEventPublisher(orderTopic)
		if err != nil {
			logger.Fatal("failed to initialise order event publisher", zap.Error(err))
		}
		deps.Events = publisher
	}

	healthRepo, err := newHealthRepository(firestoreClient, fetcher, orderTopic)
	if err != nil {
		logger.Warn("health: dependency checks init failed", zap.Error(err))
	} else {
		deps.Health = healthRepo
	}

	container, err := di.NewContainer(ctx, cfg, registry, deps)
	if err != nil {
		logger.Fatal("failed to assemble services", zap.Error(err))
	}

	idempotencyStore := idempotency.NewFirestoreStore(firestoreClient)
	idempotencyMiddleware := idempotency.Middleware(
		idempotencyStore,
		idempotency.WithTTL(idempotencyTTL),
		idempotency.WithLogger(observability.NewPrintfAdapter(logger.Named("idempotency"))),
	)

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	var cleanupWG sync.WaitGroup
	cleanupTicker := time.NewTicker(idempotencyCleanupEvery)
	cleanupWG.Add(1)
	go func() {
		defer cleanupWG.Done()
		cleanupLogger := logger.Named("idempotency")
		for {
			select {
			case <-cleanupTicker.C:
				runCtx, cancel := context.WithTimeout(cleanupCtx, time.Minute)
				removed, err := idempotencyStore.CleanupExpired(runCtx, time.Now().UTC(), idempotencyCleanupBatch)
				cancel()
				if err != nil {
					cleanupLogger.Error("idempotency cleanup error", zap.Error(err))
					continue
				}
				if removed > 0 {
					cleanupLogger.Info("idempotency cleanup removed records", zap.Int("count", removed))
				}
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	authHandlers := handlers.NewAuthHandlers(authenticator, container.Services.Auth,
		handlers.WithAuthRateLimit(cfg.RateLimits.AuthPerWindow, cfg.RateLimits.AuthWindow),
	)
	addressHandlers := handlers.NewAddressHandlers(authenticator, container.Services.Addresses)
	productHandlers := handlers.NewProductHandlers(container.Services.Products)
	orderHandlers := handlers.NewOrderHandlers(authenticator, container.Services.Orders)
	adminHandlers := handlers.NewAdminHandlers(authenticator,
		container.Services.Products,
		container.Services.Orders,
		container.Services.Reporting,
	)
	healthHandlers := handlers.NewHealthHandlers(
		handlers.WithHealthSystemService(container.Services.System),
		handlers.WithHealthStartTime(startedAt),
	)

	projectID := cfg.Firestore.ProjectID
	middlewares := []func(http.Handler) http.Handler{
		observability.InjectLoggerMiddleware(logger.Named("http")),
		observability.TraceMiddleware(projectID),
		observability.RecoveryMiddleware(logger.Named("http")),
		observability.RequestLoggerMiddleware(projectID),
		idempotencyMiddleware,
	}

	router := handlers.NewRouter(
		handlers.WithMiddlewares(middlewares...),
		handlers.WithHealthHandlers(healthHandlers),
		handlers.WithAuthRoutes(authHandlers.Routes),
		handlers.WithAddressRoutes(addressHandlers.Routes),
		handlers.WithProductRoutes(productHandlers.Routes),
		handlers.WithOrderRoutes(orderHandlers.Routes),
		handlers.WithAdminRoutes(adminHandlers.Routes),
	)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	serverLogger := logger.Named("http").With(zap.String("addr", server.Addr))
	go func() {
		serverLogger.Info("kurumsal tedarikci api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverLogger.Fatal("http server error", zap.Error(err))
		}
	}()

	<-shutdown
	logger.Info("shutdown signal received; draining requests")

	cleanupTicker.Stop()
	cleanupCancel()
	cleanupWG.Wait()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	}

	closeCtx, closeCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer closeCancel()
	if err := container.Close(closeCtx); err != nil {
		logger.Warn("container close error", zap.Error(err))
	}
}

func newSecretFetcher(ctx context.Context, logger *zap.Logger) (*secrets.Fetcher, error) {
	opts := []secrets.Option{
		secrets.WithLogger(logger),
	}
	if env := strings.TrimSpace(os.Getenv("API_SECURITY_ENVIRONMENT")); env != "" {
		opts = append(opts, secrets.WithEnvironment(env))
	}
	if project := strings.TrimSpace(os.Getenv("API_FIRESTORE_PROJECT_ID")); project != "" {
		opts = append(opts, secrets.WithDefaultProject(project))
	}
	return secrets.NewFetcher(ctx, opts...)
}

// requiredSecretRefs collects every secret:// reference present in the
// process environment so startup fails fast when one cannot resolve.
func requiredSecretRefs() []string {
	var refs []string
	seen := make(map[string]struct{})
	for _, entry := range os.Environ() {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || !strings.HasPrefix(key, "API_") {
			continue
		}
		value = strings.TrimSpace(value)
		if !strings.HasPrefix(value, "secret://") && !strings.HasPrefix(value, "sm://") {
			continue
		}
		if _, dup := seen[value]; dup {
			continue
		}
		seen[value] = struct{}{}
		refs = append(refs, value)
	}
	return refs
}

func newNotificationDispatcher(cfg config.Config, logger *zap.Logger) (*notifications.Dispatcher, error) {
	var emailSender notifications.EmailSender
	if strings.TrimSpace(cfg.Notifications.Brevo.APIKey) != "" {
		client, err := notifications.NewBrevoClient(notifications.BrevoConfig{
			APIKey:      cfg.Notifications.Brevo.APIKey,
			BaseURL:     cfg.Notifications.Brevo.BaseURL,
			SenderEmail: cfg.Notifications.SenderEmail,
			SenderName:  cfg.Notifications.SenderName,
			Timeout:     cfg.Notifications.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("brevo client: %w", err)
		}
		emailSender = client
	}

	var smsSender notifications.SMSSender
	if strings.TrimSpace(cfg.Notifications.Netgsm.UserCode) != "" {
		client, err := notifications.NewNetgsmClient(notifications.NetgsmConfig{
			UserCode: cfg.Notifications.Netgsm.UserCode,
			Password: cfg.Notifications.Netgsm.Password,
			Header:   cfg.Notifications.Netgsm.Header,
			BaseURL:  cfg.Notifications.Netgsm.BaseURL,
			Timeout:  cfg.Notifications.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("netgsm client: %w", err)
		}
		smsSender = client
	}

	port := notifications.NewNoopPort()
	if emailSender != nil || smsSender != nil {
		port = notifications.NewPort(emailSender, smsSender)
	}

	opts := []notifications.DispatcherOption{
		notifications.WithLogger(zapEventLogger(logger.Named("notifications"))),
	}
	if cfg.Notifications.Timeout > 0 {
		opts = append(opts, notifications.WithDispatchTimeout(cfg.Notifications.Timeout))
	}
	return notifications.NewDispatcher(port, opts...)
}

func newHealthRepository(client *firestore.Client, fetcher *secrets.Fetcher, orderTopic *pubsub.Topic) (repositories.HealthRepository, error) {
	checks := make([]repositories.DependencyCheck, 0, 3)
	if client != nil {
		c := client
		checks = append(checks, repositories.DependencyCheck{
			Name:    "firestore",
			Timeout: 1500 * time.Millisecond,
			Check: func(ctx context.Context) error {
				iter := c.Collections(ctx)
				_, err := iter.Next()
				if errors.Is(err, iterator.Done) {
					return nil
				}
				return err
			},
		})
	}
	if fetcher != nil {
		const secretHealthReference = "secret://system/healthz?version=latest"
		checks = append(checks, repositories.DependencyCheck{
			Name:    "secretManager",
			Timeout: time.Second,
			Check: func(ctx context.Context) error {
				_, err := fetcher.Resolve(ctx, secretHealthReference)
				if err == nil {
					return nil
				}
				if st, ok := status.FromError(err); ok && st.Code() == codes.NotFound {
					return nil
				}
				return err
			},
		})
	}
	if orderTopic != nil {
		topic := orderTopic
		checks = append(checks, repositories.DependencyCheck{
			Name:    "pubsub",
			Timeout: 2 * time.Second,
			Check: func(ctx context.Context) error {
				exists, err := topic.Exists(ctx)
				if err != nil {
					return err
				}
				if !exists {
					return fmt.Errorf("topic %s does not exist", topic.ID())
				}
				return nil
			},
		})
	}
	if len(checks) == 0 {
		return nil, errors.New("health: no dependency checks configured")
	}
	return repositories.NewDependencyHealthRepository(checks)
}

func zapEventLogger(logger *zap.Logger) func(ctx context.Context, event string, fields map[string]any) {
	return func(_ context.Context, event string, fields map[string]any) {
		zFields := make([]zap.Field, 0, len(fields))
		for key, value := range fields {
			zFields = append(zFields, zap.Any(key, value))
		}
		logger.Debug(event, zFields...)
	}
}
