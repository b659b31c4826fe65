package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	appanalytics "github.com/jhoicas/invoicely-api/internal/application/analytics"
	"github.com/jhoicas/invoicely-api/internal/application/auth"
	"github.com/jhoicas/invoicely-api/internal/application/billing"
	"github.com/jhoicas/invoicely-api/pkg/logger"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AuthUC          *auth.AuthUseCase
	ClientUC        *billing.ClientUseCase
	InvoiceUC       *billing.InvoiceUseCase
	PDFUC           *billing.PDFUseCase
	SubscriptionUC  *billing.SubscriptionUseCase
	DashboardUC     *appanalytics.DashboardUseCase
	JWTSecret       string
	RateLimitMax    int           // 0 = sin límite
	RateLimitWindow time.Duration
	Log             *logger.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	if deps.RateLimitMax > 0 {
		api.Use(RateLimitMiddleware(deps.RateLimitMax, deps.RateLimitWindow, deps.Log))
	}

	authMW := AuthMiddleware(deps.JWTSecret)
	identityMW := IdentityMiddleware(deps.AuthUC)

	// Auth
	authHandler := NewAuthHandler(deps.AuthUC)
	authGroup := api.Group("/auth")
	authGroup.Post("/register", authHandler.Register)
	authGroup.Post("/login", authHandler.Login)
	authGroup.Get("/user", authMW, authHandler.Me)

	// Subscription: el webhook es público y se verifica por firma
	subHandler := NewSubscriptionHandler(deps.SubscriptionUC, deps.Log)
	subs := api.Group("/subscription")
	subs.Post("/webhook", subHandler.Webhook)
	subs.Post("/create-checkout-session", authMW, subHandler.CreateCheckoutSession)

	// Clients (protegido)
	clientHandler := NewClientHandler(deps.ClientUC)
	clients := api.Group("/clients", authMW)
	clients.Post("/", clientHandler.Create)
	clients.Get("/", clientHandler.List)
	clients.Get("/:id", clientHandler.GetByID)
	clients.Put("/:id", clientHandler.Update)
	clients.Delete("/:id", clientHandler.Delete)

	// Invoices (protegido; el plan se resuelve en cada petición)
	invoiceHandler := NewInvoiceHandler(deps.InvoiceUC, deps.PDFUC)
	invoices := api.Group("/invoices", authMW, identityMW)
	invoices.Post("/", invoiceHandler.Create)
	invoices.Get("/", invoiceHandler.List)
	invoices.Get("/:id", invoiceHandler.GetByID)
	invoices.Put("/:id", invoiceHandler.Update)
	invoices.Delete("/:id", invoiceHandler.Delete)
	invoices.Get("/:id/pdf", invoiceHandler.DownloadPDF)
	invoices.Post("/:id/send", invoiceHandler.Send)
	invoices.Post("/:id/send-sms", invoiceHandler.SendSMS)
	invoices.Post("/:id/pay", invoiceHandler.Pay)

	// Dashboard (protegido)
	dashboardHandler := NewDashboardHandler(deps.DashboardUC)
	api.Get("/dashboard/summary", authMW, identityMW, dashboardHandler.GetSummary)
}
