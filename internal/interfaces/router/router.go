package router

import (
	"net/http"
	"time"

	emailsvc "digigold-backend/internal/application/emails"
	holdsvc "digigold-backend/internal/application/holdings"
	marketsvc "digigold-backend/internal/application/market"
	notifsvc "digigold-backend/internal/application/notifications"
	planssvc "digigold-backend/internal/application/plans"
	pricesvc "digigold-backend/internal/application/prices"
	setsvc "digigold-backend/internal/application/settlement"
	txsvc "digigold-backend/internal/application/transactions"
	"digigold-backend/internal/config"
	"digigold-backend/internal/infrastructure/database"
	healthhandler "digigold-backend/internal/interfaces/handlers/health"
	holdhandler "digigold-backend/internal/interfaces/handlers/holdings"
	mkthandler "digigold-backend/internal/interfaces/handlers/market"
	notifhandler "digigold-backend/internal/interfaces/handlers/notifications"
	pricehandler "digigold-backend/internal/interfaces/handlers/prices"
	siphandler "digigold-backend/internal/interfaces/handlers/sips"
	txhandler "digigold-backend/internal/interfaces/handlers/transactions"
	"digigold-backend/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func CreateApp(cfg *config.Config) (*fiber.App, *gorm.DB, *redis.Client, error) {
	app := fiber.New(fiber.Config{
		DisableStartupMessage:   true,
		ErrorHandler:            middleware.ErrorHandler,
		EnableTrustedProxyCheck: true,
	})

	sessionHandler, rdb, err := middleware.Session(middleware.SessionConfig{
		Secret:       cfg.SessionSecret,
		RedisURL:     cfg.RedisURL,
		IsProduction: cfg.Env == "production",
	})
	if err != nil {
		return nil, nil, nil, err
	}
	app.Use(sessionHandler)
	app.Use(middleware.RequestLog())

	var db *gorm.DB
	if cfg.DatabaseURL != "" {
		db, err = database.Open(cfg.DatabaseURL)
		if err != nil {
			return nil, nil, nil, err
		}
	}

	hh := &healthhandler.Handlers{DB: db, Redis: rdb}
	app.Get("/api/v1/health", hh.Check)

	if db != nil && rdb != nil {
		loc, errLoc := time.LoadLocation(cfg.MarketTimezone)
		if errLoc != nil {
			return nil, nil, nil, errLoc
		}

		var emailSender emailsvc.Sender
		if cfg.SendinblueAPIKey != "" {
			emailSender = &emailsvc.BrevoClient{APIKey: cfg.SendinblueAPIKey, MailFrom: cfg.MailFrom}
		}
		notifier := &notifsvc.Service{DB: db, Emails: emailSender}

		priceService := &pricesvc.Service{DB: db}
		marketService := &marketsvc.Service{
			DB:           db,
			Location:     loc,
			DefaultOpen:  cfg.MarketOpen,
			DefaultClose: cfg.MarketClose,
		}
		holdingService := &holdsvc.Service{DB: db}
		planService := &planssvc.Service{DB: db, Notifier: notifier}
		settlementService := &setsvc.Service{DB: db, Notifier: notifier}
		txService := &txsvc.Service{DB: db}

		gate := middleware.RequireOpenMarket(marketService)

		// Transactions
		txh := &txhandler.Handlers{
			Settlement: settlementService,
			Holdings:   holdingService,
			Log:        txService,
		}
		txg := app.Group("/api/v1/transactions", middleware.RequireAuth())
		txg.Post("/", gate, txh.Create)
		txg.Post("/sell", gate, txh.Sell)
		// Confirmation of an already-accepted offline payment is allowed after
		// hours; the price was frozen at submit time.
		txg.Post("/verify-offline", txh.VerifyOffline)
		txg.Get("/", txh.List)
		txg.Get("/sip", txh.ListSip)

		// Holdings
		holdh := &holdhandler.Handlers{Holdings: holdingService}
		app.Get("/api/v1/holdings", middleware.RequireAuth(), holdh.View)

		// SIP plans
		siph := &siphandler.Handlers{Plans: planService}
		sg := app.Group("/api/v1/sips", middleware.RequireAuth())
		sg.Get("/", siph.List)
		sg.Post("/fixed/opt", siph.OptFixed)
		sg.Post("/flexible/create", siph.CreateFlexible)
		sg.Get("/plans", siph.ListTemplates)
		sg.Post("/plans", middleware.RequireAdmin(), siph.CreateTemplate)
		sg.Post("/:id/convert", gate, siph.Convert)
		sg.Post("/:id/settle", middleware.RequireAdmin(), siph.Settle)

		// Prices
		priceh := &pricehandler.Handlers{Prices: priceService}
		app.Get("/api/v1/prices/latest", priceh.Latest)
		app.Post("/api/v1/admin/prices", middleware.RequireAuth(), middleware.RequireAdmin(), priceh.Add)

		// Market status
		mkth := &mkthandler.Handlers{Market: marketService}
		app.Get("/api/v1/market-status", mkth.Status)
		app.Put("/api/v1/admin/market-status", middleware.RequireAuth(), middleware.RequireAdmin(), mkth.Update)
		app.Get("/api/v1/admin/market-status/history", middleware.RequireAuth(), middleware.RequireAdmin(), mkth.History)

		// Notifications
		notifh := &notifhandler.Handlers{Notifications: notifier}
		ng := app.Group("/api/v1/notifications", middleware.RequireAuth())
		ng.Get("/", notifh.List)
		ng.Patch("/:id/read", notifh.MarkRead)
	}

	return app, db, rdb, nil
}

func Handler(app *fiber.App) http.Handler {
	return adaptor.FiberApp(app)
}
