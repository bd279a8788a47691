package controller

import (
	"context"
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/platform/validation"
	"github.com/itsmeasadali/follow-up-for-review-shopify-app/internal/reviews/domain"
)

// Runner executes one dispatch run.
type Runner interface {
	Run(ctx context.Context) (domain.Report, error)
}

type Controller struct {
	runner  Runner
	history domain.SentHistory
	secret  string
	log     zerolog.Logger
}

// New builds the trigger controller. An empty secret rejects every request.
func New(runner Runner, history domain.SentHistory, secret string) *Controller {
	return &Controller{runner: runner, history: history, secret: secret, log: zerolog.Nop()}
}

// SetLogger injects a structured logger.
func (h *Controller) SetLogger(l zerolog.Logger) { h.log = l }

// Register mounts the routes. mw wraps the trigger routes only.
func (h *Controller) Register(e *echo.Echo, mw ...echo.MiddlewareFunc) {
	g := e.Group("/api")
	g.GET("/send-review-emails", h.sendReviewEmails, mw...)
	g.POST("/send-review-emails", h.sendReviewEmails, mw...)
	g.GET("/review-emails/sent", h.listSent, mw...)
}

type errorResp struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// authorized accepts the secret from ?secret= or an "Authorization: Bearer"
// header, compared in constant time.
func (h *Controller) authorized(c echo.Context) bool {
	if h.secret == "" {
		return false
	}
	got := c.QueryParam("secret")
	if got == "" {
		if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, "Bearer ") {
			got = strings.TrimPrefix(auth, "Bearer ")
		}
	}
	return subtle.ConstantTimeCompare([]byte(got), []byte(h.secret)) == 1
}

// Send review emails godoc
// @Summary      Run the review email dispatcher
// @Description  Sends due review emails for every enabled shop and returns the per-shop report
// @Tags         reviews
// @Produce      json
// @Param        secret  query  string  true  "Cron secret"
// @Success      200  {object}  domain.Report
// @Failure      401  {object}  errorResp
// @Failure      500  {object}  errorResp
// @Router       /api/send-review-emails [get]
func (h *Controller) sendReviewEmails(c echo.Context) error {
	if !h.authorized(c) {
		return c.JSON(http.StatusUnauthorized, errorResp{Error: "Unauthorized"})
	}
	// A scheduler hanging up must not abort sends half way; per-shop
	// timeouts bound the run instead.
	ctx := context.WithoutCancel(c.Request().Context())
	report, err := h.runner.Run(ctx)
	if err != nil {
		h.log.Error().Err(err).Msg("review email run failed")
		return c.JSON(http.StatusInternalServerError, errorResp{Error: "Failed to process review emails", Details: err.Error()})
	}
	return c.JSON(http.StatusOK, report)
}

type listSentReq struct {
	Shop  string `query:"shop" validate:"required,hostname_rfc1123"`
	Limit int    `query:"limit" validate:"omitempty,gte=1,lte=500"`
}

type listSentResp struct {
	Items []domain.SentRecord `json:"items"`
}

// List sent review emails godoc
// @Summary      List sent review emails
// @Description  Sent records for one shop, newest first
// @Tags         reviews
// @Produce      json
// @Param        secret  query  string  true   "Cron secret"
// @Param        shop    query  string  true   "Shop domain"
// @Param        limit   query  int     false  "Max rows (default 50)"
// @Success      200  {object}  listSentResp
// @Failure      400  {object}  validation.ErrorBody
// @Failure      401  {object}  errorResp
// @Router       /api/review-emails/sent [get]
func (h *Controller) listSent(c echo.Context) error {
	if !h.authorized(c) {
		return c.JSON(http.StatusUnauthorized, errorResp{Error: "Unauthorized"})
	}
	var req listSentReq
	if err := (&echo.DefaultBinder{}).BindQueryParams(c, &req); err != nil {
		return c.JSON(http.StatusBadRequest, errorResp{Error: "invalid query"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, validation.ErrorResponse(err))
	}
	items, err := h.history.ListSent(c.Request().Context(), req.Shop, req.Limit)
	if err != nil {
		h.log.Error().Err(err).Str("shop_id", req.Shop).Msg("list sent review emails")
		return c.JSON(http.StatusInternalServerError, errorResp{Error: "failed to list sent review emails"})
	}
	if items == nil {
		items = []domain.SentRecord{}
	}
	return c.JSON(http.StatusOK, listSentResp{Items: items})
}
