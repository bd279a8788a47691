package reviews

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	csvc "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/commerce/service"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/config"
	esvc "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/email/service"
	evsvc "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/events/service"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/platform/ratelimit"
	ctrl "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/reviews/controller"
	repo "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/reviews/repository"
	svc "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/reviews/service"
	sessrepo "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/sessions/repository"
	sesssvc "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/sessions/service"
	srepo "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/settings/repository"
	ssvc "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/settings/service"
)

// NewEngine wires the dispatcher against Postgres, Shopify and the configured
// mail transport.
func NewEngine(pg *pgxpool.Pool, cfg config.Config, log zerolog.Logger) (*svc.Engine, error) {
	opts, err := svc.OptionsFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	settings := ssvc.New(srepo.New(pg))
	eng := svc.New(
		settings,
		sesssvc.New(sessrepo.New(pg)),
		csvc.NewShopify(cfg),
		esvc.NewRouter(settings, cfg),
		repo.New(pg),
		opts,
	)
	eng.SetLogger(log)
	eng.SetPublisher(evsvc.NewLogger(log))
	return eng, nil
}

// Register wires the reviews module and registers HTTP routes. rc may be nil,
// in which case the trigger is rate limited per process.
func Register(e *echo.Echo, pg *pgxpool.Pool, rc redis.UniversalClient, cfg config.Config, log zerolog.Logger) error {
	eng, err := NewEngine(pg, cfg, log)
	if err != nil {
		return err
	}
	c := ctrl.New(eng, repo.New(pg), cfg.CronSecret)
	c.SetLogger(log)

	var mw []echo.MiddlewareFunc
	if cfg.TriggerRateLimit > 0 {
		var store ratelimit.Store = ratelimit.NewMemoryStore()
		if rc != nil {
			store = ratelimit.NewRedisStore(rc)
		}
		mw = append(mw, ratelimit.Middleware(ratelimit.Policy{
			Name:   "trigger",
			Window: cfg.TriggerRateWindow,
			Limit:  cfg.TriggerRateLimit,
		}, store))
	}
	c.Register(e, mw...)
	return nil
}
