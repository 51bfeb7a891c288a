package httpapi

import (
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"go.uber.org/zap"

	"github.com/i474232898/weather-tracker/internal/cache"
	"github.com/i474232898/weather-tracker/internal/chart"
	"github.com/i474232898/weather-tracker/internal/metrics"
	"github.com/i474232898/weather-tracker/internal/weather"
)

const (
	// ListLimit caps the rows shown on /weather.
	ListLimit = 50
	// PlotLimit caps the bars drawn on /plot.
	PlotLimit = 10
)

var validate = validator.New()

// Deps are the collaborators the handlers need.
type Deps struct {
	Service *weather.Service
	Logger  *zap.Logger
	Metrics *metrics.Metrics

	// Response caches for /weather and /plot.
	ListCache *cache.TTL[CachedResponse]
	PlotCache *cache.TTL[CachedResponse]
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, d Deps) {
	h := &handlers{service: d.Service, logger: d.Logger}

	app.Get("/health", h.health)
	if d.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))
	}

	app.Get("/", timed("home", d.Logger, d.Metrics), h.home)
	app.Post("/add_city", timed("add_city", d.Logger, d.Metrics), h.addCity)
	app.Get("/weather", cached("weather", d.ListCache, d, h.listWeather)...)
	app.Get("/plot", cached("plot", d.PlotCache, d, h.plot)...)
}

// cached builds a timed handler chain, fronted by the response cache when
// one is configured.
func cached(route string, store *cache.TTL[CachedResponse], d Deps, handler fiber.Handler) []fiber.Handler {
	chain := make([]fiber.Handler, 0, 3)
	if store != nil {
		chain = append(chain, responseCache(route, store, d.Metrics))
	}
	return append(chain, timed(route, d.Logger, d.Metrics), handler)
}

type handlers struct {
	service *weather.Service
	logger  *zap.Logger
}

// cityForm is the POST /add_city body.
type cityForm struct {
	City string `form:"city" validate:"required"`
}

func (h *handlers) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"timestamp": float64(time.Now().UnixNano()) / float64(time.Second),
	})
}

func (h *handlers) home(c *fiber.Ctx) error {
	return c.Render("index", fiber.Map{})
}

// addCity always redirects home; success and failure look the same to the
// client and differ only in the logs.
func (h *handlers) addCity(c *fiber.Ctx) error {
	var form cityForm
	if err := c.BodyParser(&form); err != nil {
		h.logger.Warn("unreadable add_city form", zap.Error(err))
	}
	form.City = strings.TrimSpace(form.City)

	if err := validate.Struct(form); err != nil {
		h.logger.Warn("empty city name submitted")
		return c.Redirect("/", fiber.StatusFound)
	}

	_, err := h.service.AddCity(c.UserContext(), form.City)
	switch {
	case err == nil:
	case errors.Is(err, weather.ErrFetch):
		// Cause already logged by the service.
	default:
		h.logger.Error("error processing city", zap.String("city", form.City), zap.Error(err))
	}

	return c.Redirect("/", fiber.StatusFound)
}

func (h *handlers) listWeather(c *fiber.Ctx) error {
	rows, err := h.service.Recent(c.UserContext(), ListLimit)
	if err != nil {
		h.logger.Error("error reading weather data", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).Render("error", fiber.Map{
			"Error": "Unable to fetch weather data",
		})
	}

	return c.Render("weather", fiber.Map{"Observations": rows})
}

func (h *handlers) plot(c *fiber.Ctx) error {
	rows, err := h.service.Recent(c.UserContext(), PlotLimit)
	if err != nil {
		return h.plotFailed(c, err)
	}

	img, err := chart.TemperatureBars(rows)
	if err != nil {
		return h.plotFailed(c, err)
	}

	c.Set(fiber.HeaderContentType, "image/png")
	return c.Send(img)
}

func (h *handlers) plotFailed(c *fiber.Ctx, err error) error {
	h.logger.Error("error generating plot", zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"error": "Unable to generate plot",
	})
}
