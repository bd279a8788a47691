package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/config"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/platform/validation"
	sessdomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/sessions/domain"
	sessrepo "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/sessions/repository"
	sdomain "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/settings/domain"
	srepo "github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/settings/repository"
)

func main() {
	_ = godotenv.Load()
	ctx := context.Background()

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		fatalf("load config: %v", err)
	}
	pgCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		fatalf("invalid DATABASE_URL: %v", err)
	}
	pgPool, err := pgxpool.NewWithConfig(ctx, pgCfg)
	if err != nil {
		fatalf("pg pool: %v", err)
	}
	defer pgPool.Close()

	settingsRepo := srepo.New(pgPool)
	sessionsRepo := sessrepo.New(pgPool)

	sub := os.Args[1]
	switch sub {
	case "settings":
		fs := flag.NewFlagSet("settings", flag.ExitOnError)
		shop := fs.String("shop", os.Getenv("SHOP"), "shop domain (e.g. demo.myshopify.com)")
		enabled := fs.Bool("enabled", envOrBool("ENABLED", true), "enable review emails")
		days := fs.Int("days", 7, "days to wait after the order")
		subject := fs.String("subject", "", "subject line template")
		body := fs.String("template", "", "HTML body template")
		_ = fs.Parse(os.Args[2:])

		s := reviewSettings(*shop, *enabled, *days, *subject, *body)
		if err := seedSettings(ctx, settingsRepo, s); err != nil {
			fatalf("settings: %v", err)
		}
		printEnv(map[string]string{"SHOP": s.ShopID})
	case "session":
		fs := flag.NewFlagSet("session", flag.ExitOnError)
		shop := fs.String("shop", os.Getenv("SHOP"), "shop domain")
		token := fs.String("token", os.Getenv("SHOPIFY_ACCESS_TOKEN"), "offline Admin API access token")
		scope := fs.String("scope", envOr("SHOPIFY_SCOPES", "read_orders"), "granted scopes")
		_ = fs.Parse(os.Args[2:])

		c := offlineSession(*shop, *token, *scope)
		if err := seedSession(ctx, sessionsRepo, c); err != nil {
			fatalf("session: %v", err)
		}
		printEnv(map[string]string{"SHOP": c.ShopID, "SESSION_ID": c.ID})
	case "transport":
		fs := flag.NewFlagSet("transport", flag.ExitOnError)
		shop := fs.String("shop", os.Getenv("SHOP"), "shop domain; empty sets the global default")
		var kv multiFlag
		fs.Var(&kv, "set", "key=value override, repeatable (e.g. email.provider=brevo)")
		_ = fs.Parse(os.Args[2:])

		vals, err := parseOverrides(kv)
		if err != nil {
			fatalf("transport: %v", err)
		}
		var shopID *string
		if s := strings.TrimSpace(*shop); s != "" {
			shopID = &s
		}
		if err := seedOverrides(ctx, settingsRepo, shopID, vals); err != nil {
			fatalf("transport: %v", err)
		}
		printEnv(map[string]string{"OVERRIDES": fmt.Sprint(len(vals))})
	case "default":
		fs := flag.NewFlagSet("default", flag.ExitOnError)
		shop := fs.String("shop", envOr("SHOP", "demo.myshopify.com"), "shop domain")
		token := fs.String("token", envOr("SHOPIFY_ACCESS_TOKEN", "shpat_dev"), "offline access token")
		days := fs.Int("days", 7, "days to wait after the order")
		_ = fs.Parse(os.Args[2:])

		s := reviewSettings(*shop, true, *days, "", "")
		if err := seedSettings(ctx, settingsRepo, s); err != nil {
			fatalf("settings: %v", err)
		}
		c := offlineSession(*shop, *token, "read_orders")
		if err := seedSession(ctx, sessionsRepo, c); err != nil {
			fatalf("session: %v", err)
		}
		printEnv(map[string]string{"SHOP": s.ShopID, "SESSION_ID": c.ID})
	default:
		usage()
		os.Exit(2)
	}
}

// reviewSettings starts from the admin app defaults and applies any
// non-empty overrides.
func reviewSettings(shop string, enabled bool, days int, subject, body string) sdomain.ReviewSettings {
	s := sdomain.Defaults(strings.ToLower(strings.TrimSpace(shop)))
	s.Enabled = enabled
	if days > 0 {
		s.DaysToWait = days
	}
	if strings.TrimSpace(subject) != "" {
		s.SubjectLine = subject
	}
	if strings.TrimSpace(body) != "" {
		s.EmailTemplate = body
	}
	return s
}

func seedSettings(ctx context.Context, repo sdomain.Repository, s sdomain.ReviewSettings) error {
	if err := validation.Struct(s); err != nil {
		return err
	}
	return repo.UpsertReview(ctx, s)
}

// offlineSession builds the session row the Shopify app library stores for
// an offline token: id "offline_<shop>", not bound to a user.
func offlineSession(shop, token, scope string) sessdomain.Credential {
	shop = strings.ToLower(strings.TrimSpace(shop))
	return sessdomain.Credential{
		ID:          "offline_" + shop,
		ShopID:      shop,
		State:       "seed",
		IsOnline:    false,
		Scope:       scope,
		AccessToken: strings.TrimSpace(token),
	}
}

func seedSession(ctx context.Context, repo sessdomain.Repository, c sessdomain.Credential) error {
	if c.ShopID == "" || c.AccessToken == "" {
		return fmt.Errorf("shop and token are required")
	}
	return repo.Upsert(ctx, c)
}

var secretKeys = map[string]bool{
	sdomain.KeySMTPPassword: true,
	sdomain.KeyBrevoAPIKey:  true,
}

func parseOverrides(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid override %q, want key=value", p)
		}
		if !strings.HasPrefix(k, "email.") {
			return nil, fmt.Errorf("unknown override key %q", k)
		}
		out[k] = v
	}
	return out, nil
}

func seedOverrides(ctx context.Context, repo sdomain.Repository, shopID *string, vals map[string]string) error {
	keys := make([]string, 0, len(vals))
	for k := range vals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := repo.Upsert(ctx, k, shopID, vals[k], secretKeys[k]); err != nil {
			return fmt.Errorf("upsert %s: %w", k, err)
		}
	}
	return nil
}

type multiFlag []string

func (m *multiFlag) String() string     { return strings.Join(*m, ",") }
func (m *multiFlag) Set(v string) error { *m = append(*m, v); return nil }

func usage() {
	fmt.Fprintf(os.Stderr, `Usage:
  seed settings --shop <domain> [--enabled=true] [--days 7] [--subject "..."] [--template "<p>...</p>"]
  seed session --shop <domain> --token <shpat_...> [--scope read_orders]
  seed transport [--shop <domain>] --set email.provider=brevo [--set email.brevo.api_key=...]
  seed default [--shop demo.myshopify.com] [--token shpat_dev] [--days 7]

Environment fallbacks:
  SHOP, ENABLED, SHOPIFY_ACCESS_TOKEN, SHOPIFY_SCOPES
`)
}

func envOr(k, def string) string {
	if v := strings.TrimSpace(os.Getenv(k)); v != "" {
		return v
	}
	return def
}

func envOrBool(k string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(k)))
	if v == "true" || v == "1" || v == "yes" {
		return true
	}
	if v == "false" || v == "0" || v == "no" {
		return false
	}
	return def
}

func printEnv(kv map[string]string) {
	// Print as KEY=VALUE lines so callers can tee into a .env file and `source` it.
	for k, v := range kv {
		fmt.Printf("%s=%s\n", k, v)
	}
}

func fatalf(f string, a ...any) {
	fmt.Fprintf(os.Stderr, f+"\n", a...)
	os.Exit(1)
}
