package routes

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/nusaledger/nusa_ledger/internal/auth"
	"github.com/nusaledger/nusa_ledger/internal/catalog"
	"github.com/nusaledger/nusa_ledger/internal/config"
	"github.com/nusaledger/nusa_ledger/internal/events"
	"github.com/nusaledger/nusa_ledger/internal/ledger"
	"github.com/nusaledger/nusa_ledger/internal/middleware"
	"github.com/nusaledger/nusa_ledger/internal/purchase"
	"github.com/nusaledger/nusa_ledger/internal/rbac"
	"github.com/nusaledger/nusa_ledger/internal/registry"
	"github.com/nusaledger/nusa_ledger/internal/settlement"
	"github.com/nusaledger/nusa_ledger/internal/token"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Wiring is what Setup hands back to main: the pieces that need lifecycle
// management or startup work beyond serving HTTP.
type Wiring struct {
	Roles       *rbac.Service
	Keyring     *auth.Keyring
	Settlements *settlement.Service
}

// Setup configures middlewares and all application routes. Each store picks
// its Postgres backend when a pool is present and the in-memory one
// otherwise, which only dev mode permits.
func Setup(app *fiber.App, d Deps) (Wiring, error) {
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return Wiring{}, fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.Env)
		}
		if d.Cache == nil {
			return Wiring{}, fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.Env)
		}
	}

	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(app, d)

	// Facts go to the log always, and onto the Redis stream when Redis is up.
	publisher := events.Fanout{events.NewLogPublisher(d.Logger)}
	if d.Cache != nil {
		publisher = append(publisher, events.NewStreamPublisher(d.Cache, events.DefaultStream))
	}

	var roleStore rbac.Store
	var ledgerBackend ledger.Ledger
	var accountRepo registry.Repository
	var productRepo catalog.Repository
	var settlementRepo settlement.Repository
	var keyStore auth.Store
	if d.DB != nil {
		roleStore = rbac.NewPostgresStore(d.DB)
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
		accountRepo = registry.NewPostgresRepository(d.DB)
		productRepo = catalog.NewPostgresRepository(d.DB)
		settlementRepo = settlement.NewPostgresRepository(d.DB)
		keyStore = auth.NewPostgresStore(d.DB)
	} else {
		roleStore = rbac.NewMemoryStore()
		ledgerBackend = ledger.NewInMemory()
		accountRepo = registry.NewMemoryRepository()
		productRepo = catalog.NewMemoryRepository()
		settlementRepo = settlement.NewMemoryRepository()
		keyStore = auth.NewMemoryStore()
	}

	roles := rbac.NewService(roleStore)
	keyring := auth.NewKeyring(keyStore)
	registrySvc := registry.NewService(accountRepo, roles, publisher)
	tokenSvc := token.NewService(ledgerBackend, roles, publisher)
	catalogSvc := catalog.NewService(productRepo, roles)
	purchaseSvc := purchase.NewService(catalogSvc, tokenSvc, publisher, d.Cfg.OperatorIdentity)
	settlementSvc := settlement.NewService(settlementRepo, registrySvc, tokenSvc, roles, publisher,
		d.Cfg.Quorum, d.Cfg.OperatorIdentity)

	registryHandler := registry.NewHandler(registrySvc)
	tokenHandler := token.NewHandler(tokenSvc, registrySvc)
	catalogHandler := catalog.NewHandler(catalogSvc)
	purchaseHandler := purchase.NewHandler(purchaseSvc)
	settlementHandler := settlement.NewHandler(settlementSvc)
	rbacHandler := rbac.NewHandler(roles)

	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Everything past this point runs authenticated and idempotency-guarded.
	protected := api.Group("", middleware.Authenticate(keyring))
	if d.Cache != nil {
		protected.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Governance surface.
	protected.Post("/roles/grants", rbacHandler.Grant)
	protected.Delete("/roles/grants", rbacHandler.Revoke)
	protected.Get("/roles/:role/holders", rbacHandler.Holders)
	protected.Post("/keys", issueKeyHandler(keyring, roles))

	// Account registry.
	protected.Post("/accounts", registryHandler.Register)
	protected.Get("/accounts/:bankId", registryHandler.ListByBank)
	protected.Get("/accounts/:bankId/:number", registryHandler.Resolve)

	// Token ledger.
	protected.Get("/balances/:identity", tokenHandler.Balance)
	protected.Post("/tokens/mint", tokenHandler.Mint)
	protected.Post("/tokens/burn", tokenHandler.Burn)
	protected.Post("/transfers", tokenHandler.TransferInternal)

	// Product catalog and purchases.
	protected.Post("/products", catalogHandler.Add)
	protected.Get("/products", catalogHandler.List)
	protected.Get("/products/:id", catalogHandler.Get)
	protected.Patch("/products/:id/active", catalogHandler.SetActive)
	protected.Post("/purchases", purchaseHandler.Purchase)

	// Interbank settlement.
	protected.Post("/settlements", settlementHandler.Propose)
	protected.Get("/settlements/:id", settlementHandler.Get)
	protected.Post("/settlements/:id/attestations", settlementHandler.Attest)

	return Wiring{Roles: roles, Keyring: keyring, Settlements: settlementSvc}, nil
}

type issueKeyRequest struct {
	Identity string `json:"identity"`
}

// issueKeyHandler mints an API key for an identity. GOVERNANCE only; the
// plaintext credential appears in this response and nowhere else.
func issueKeyHandler(keyring *auth.Keyring, roles *rbac.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req issueKeyRequest
		if err := c.BodyParser(&req); err != nil {
			return fiber.NewError(http.StatusBadRequest, err.Error())
		}
		if req.Identity == "" {
			return fiber.NewError(http.StatusBadRequest, "identity is required")
		}

		actor := middleware.Identity(c)
		if err := roles.RequireAny(c.UserContext(), rbac.RoleGovernance, actor); err != nil {
			if errors.Is(err, rbac.ErrUnauthorized) {
				return fiber.NewError(http.StatusForbidden, "governance role required")
			}
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}

		credential, err := keyring.Issue(c.UserContext(), req.Identity)
		if err != nil {
			return fiber.NewError(http.StatusInternalServerError, err.Error())
		}
		return c.Status(http.StatusCreated).JSON(fiber.Map{
			"identity": req.Identity,
			"api_key":  credential,
		})
	}
}
