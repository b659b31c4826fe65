package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	appanalytics "github.com/jhoicas/invoicely-api/internal/application/analytics"
	"github.com/jhoicas/invoicely-api/internal/application/auth"
	"github.com/jhoicas/invoicely-api/internal/application/billing"
	"github.com/jhoicas/invoicely-api/internal/domain/plan"
	"github.com/jhoicas/invoicely-api/internal/infrastructure/memory"
	"github.com/jhoicas/invoicely-api/internal/infrastructure/notify"
	infrapdf "github.com/jhoicas/invoicely-api/internal/infrastructure/pdf"
	infraredis "github.com/jhoicas/invoicely-api/internal/infrastructure/redis"
	"github.com/jhoicas/invoicely-api/internal/infrastructure/storage"
	infrastripe "github.com/jhoicas/invoicely-api/internal/infrastructure/stripe"
	httpRouter "github.com/jhoicas/invoicely-api/internal/interfaces/http"
	"github.com/jhoicas/invoicely-api/pkg/config"
	"github.com/jhoicas/invoicely-api/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	repos, err := storage.Open(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("abrir almacenamiento")
	}
	defer repos.Close()

	// Registro de eventos de webhook ya aplicados: Redis si está configurado.
	var ledger billing.ProcessedEventLedger = memory.NewEventLedger(infraredis.DefaultEventTTL)
	if cfg.Redis.Addr != "" {
		rdb, err := infraredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer rdb.Close()
		ledger = infraredis.NewEventLedger(rdb, infraredis.DefaultEventTTL)
	}

	stripeGateway := infrastripe.NewGateway(infrastripe.Config{
		SecretKey:  cfg.Stripe.SecretKey,
		ProPriceID: cfg.Stripe.ProPriceID,
		ClientURL:  cfg.App.ClientURL,
	}, log)
	webhookParser := infrastripe.NewWebhookParser(cfg.Stripe.WebhookSecret, !cfg.App.IsProduction(), log)

	// Sin credenciales, los envíos solo se registran en el log (desarrollo local).
	logNotifier := notify.NewLogNotifier(log)
	var mailer billing.InvoiceMailer = logNotifier
	if cfg.SendGrid.APIKey != "" {
		mailer = notify.NewSendGridMailer(notify.SendGridConfig{
			APIKey:   cfg.SendGrid.APIKey,
			From:     cfg.SendGrid.From,
			FromName: cfg.SendGrid.FromName,
		}, log)
	} else {
		log.Warn().Msg("SENDGRID_API_KEY vacío: las facturas no se envían por email")
	}
	var texter billing.InvoiceTexter = logNotifier
	if cfg.Twilio.AccountSID != "" && cfg.Twilio.AuthToken != "" {
		texter = notify.NewTwilioTexter(notify.TwilioConfig{
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			FromNumber: cfg.Twilio.FromNumber,
		}, log)
	} else {
		log.Warn().Msg("credenciales de Twilio vacías: los recordatorios SMS no se envían")
	}

	pdfGenerator := infrapdf.NewMarotoPDFGenerator()
	quota := plan.NewPolicy(cfg.Quota.FreeDailyInvoices)

	authUC := auth.NewAuthUseCase(repos.Users, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})
	clientUC := billing.NewClientUseCase(repos.Clients)
	invoiceUC := billing.NewInvoiceUseCase(billing.InvoiceDeps{
		Invoices:       repos.Invoices,
		Clients:        repos.Clients,
		Users:          repos.Users,
		Policy:         quota,
		Mailer:         mailer,
		Texter:         texter,
		Checkout:       stripeGateway,
		PDF:            pdfGenerator,
		Log:            log,
		GatewayTimeout: cfg.Gateway.Timeout,
	})
	pdfUC := billing.NewPDFUseCase(repos.Invoices, repos.Users, pdfGenerator)
	subscriptionUC := billing.NewSubscriptionUseCase(billing.SubscriptionDeps{
		Users:          repos.Users,
		Invoices:       repos.Invoices,
		Gateway:        stripeGateway,
		Events:         webhookParser,
		Ledger:         ledger,
		Log:            log,
		GatewayTimeout: cfg.Gateway.Timeout,
	})

	dashboardUC := appanalytics.NewDashboardUseCase(repos.Invoices, quota, nil)

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: httpRouter.ErrorHandler(cfg.App.IsProduction(), log),
	})
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.App.ClientURL,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, x-auth-token",
	}))

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Invoicely API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		AuthUC:          authUC,
		ClientUC:        clientUC,
		InvoiceUC:       invoiceUC,
		PDFUC:           pdfUC,
		SubscriptionUC:  subscriptionUC,
		DashboardUC:     dashboardUC,
		JWTSecret:       cfg.JWT.Secret,
		RateLimitMax:    cfg.RateLimit.Requests,
		RateLimitWindow: cfg.RateLimit.Window,
		Log:             log,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
