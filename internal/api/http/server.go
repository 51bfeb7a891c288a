package httpapi

import (
	"embed"
	"errors"
	"io"
	"io/fs"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/utils"
	"github.com/gofiber/template/html/v2"
	"go.uber.org/zap"
)

//go:embed views/*.html
var viewsFS embed.FS

// Options configures the Fiber app built by NewApp.
type Options struct {
	Deps

	BodyLimit   int
	ProxyHeader string
	// AccessLog receives one line per request; nil disables the access log.
	AccessLog io.Writer
}

// NewApp builds the Fiber app with views, middleware, routes and error pages.
func NewApp(opts Options) *fiber.App {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	app := fiber.New(fiber.Config{
		AppName:               "weather-tracker",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		BodyLimit:             opts.BodyLimit,
		ProxyHeader:           opts.ProxyHeader,
		Views:                 newViews(),
		ErrorHandler:          errorPage(opts.Logger),
	})

	if opts.AccessLog != nil {
		app.Use(logger.New(logger.Config{Output: opts.AccessLog}))
	}
	app.Use(recover.New())

	RegisterRoutes(app, opts.Deps)

	return app
}

func newViews() *html.Engine {
	sub, err := fs.Sub(viewsFS, "views")
	if err != nil {
		panic(err)
	}
	return html.NewFileSystem(http.FS(sub), ".html")
}

// errorPage renders the generic error view with the failing status.
func errorPage(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var e *fiber.Error
		if errors.As(err, &e) {
			code = e.Code
		}

		msg := "Internal server error"
		switch {
		case code == fiber.StatusNotFound:
			msg = "Page not found"
		case code < fiber.StatusInternalServerError:
			msg = utils.StatusMessage(code)
		default:
			log.Error("internal server error", zap.String("path", c.Path()), zap.Error(err))
		}

		if rerr := c.Status(code).Render("error", fiber.Map{"Error": msg}); rerr != nil {
			return c.Status(code).SendString(msg)
		}
		return nil
	}
}
