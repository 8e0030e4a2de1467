package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"trends-go/internal/config"
	"trends-go/internal/service"
	"trends-go/pkg/identity"
	"trends-go/pkg/logger"
	"trends-go/pkg/trends"
)

// Controller exposes FetchTrends over HTTP.
type Controller struct {
	trends   service.TrendsService
	defaults trends.Options
	timeout  time.Duration
	log      *logger.Logger
}

type ControllerConfig struct {
	// Defaults seed every request; query parameters override them.
	Defaults trends.Options
	// FetchTimeout bounds one request, time spent queueing included. Zero
	// means no bound beyond the client connection.
	FetchTimeout time.Duration
}

type ErrorResponse struct {
	Error string `json:"error"`
}

type StatusResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
}

func NewController(svc service.TrendsService, cfg ControllerConfig, log *logger.Logger) *Controller {
	if log == nil {
		log = logger.GetLogger()
	}
	return &Controller{
		trends:   svc,
		defaults: cfg.Defaults,
		timeout:  cfg.FetchTimeout,
		log:      log.WithField("component", "http_controller"),
	}
}

// Register mounts the routes on app.
func (c *Controller) Register(app *fiber.App) {
	app.Get("/health", c.Health)
	api := app.Group("/api/v1")
	api.Get("/trends", c.FetchTrends)
}

func (c *Controller) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(StatusResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// FetchTrends serves GET /api/v1/trends?keywords=a,b&geo=&hl=&timeframe=
// &days_ago=&range_days=&max_retries=&identity=&switch_retries=.
func (c *Controller) FetchTrends(ctx *fiber.Ctx) error {
	keywords := splitKeywords(ctx.Query("keywords"))
	opts, err := c.options(ctx)
	if err != nil {
		return badRequest(ctx, err)
	}

	reqCtx := ctx.UserContext()
	if c.timeout > 0 {
		var cancel context.CancelFunc
		reqCtx, cancel = context.WithTimeout(reqCtx, c.timeout)
		defer cancel()
	}

	log := c.log.WithFields(map[string]interface{}{
		"keywords": keywords,
		"identity": opts.StartIdentity,
	})

	start := time.Now()
	result, err := c.trends.FetchTrends(reqCtx, keywords, opts)
	if err != nil {
		switch {
		case errors.Is(err, trends.ErrInvalidOptions), errors.Is(err, trends.ErrUnknownIdentity):
			return badRequest(ctx, err)
		case errors.Is(err, trends.ErrFetchFailed):
			log.WithError(err).Warn("Trends fetch failed")
			return ctx.Status(fiber.StatusBadGateway).JSON(ErrorResponse{Error: err.Error()})
		default:
			log.WithError(err).Warn("Trends fetch aborted")
			return ctx.Status(fiber.StatusGatewayTimeout).JSON(ErrorResponse{Error: err.Error()})
		}
	}

	log.WithFields(map[string]interface{}{
		"top":         len(result.Top),
		"rising":      len(result.Rising),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Trends served")
	return ctx.JSON(result)
}

func (c *Controller) options(ctx *fiber.Ctx) (trends.Options, error) {
	opts := c.defaults

	if v := ctx.Query("geo"); v != "" {
		opts.Geo = v
	}
	if v := ctx.Query("hl"); v != "" {
		if err := config.ValidateLocale(v); err != nil {
			return opts, err
		}
		opts.Locale = v
	}
	if v := ctx.Query("timeframe"); v != "" {
		opts.Timeframe = v
	}
	if v := ctx.Query("identity"); v != "" {
		opts.StartIdentity = identity.Identity(v)
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"days_ago", &opts.DaysAgo},
		{"range_days", &opts.RangeDays},
		{"max_retries", &opts.MaxRetries},
		{"switch_retries", &opts.IdentitySwitchRetries},
	}
	for _, p := range ints {
		v := ctx.Query(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return opts, fiber.NewError(fiber.StatusBadRequest, p.name+" must be an integer")
		}
		*p.dst = n
	}
	return opts, nil
}

func splitKeywords(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	keywords := make([]string, 0, len(parts))
	for _, p := range parts {
		keywords = append(keywords, strings.TrimSpace(p))
	}
	return keywords
}

func badRequest(ctx *fiber.Ctx, err error) error {
	msg := err.Error()
	var fe *fiber.Error
	if errors.As(err, &fe) {
		msg = fe.Message
	}
	return ctx.Status(fiber.StatusBadRequest).JSON(ErrorResponse{Error: msg})
}
