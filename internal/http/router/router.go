package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rizus/passport/internal/http/handler"
	"github.com/rizus/passport/internal/http/middleware"
	"github.com/rizus/passport/internal/http/response"
)

type Dependencies struct {
	PassportHandler *handler.PassportHandler
	ReadyCheck      func(r *http.Request) error
	EnableOTelHTTP  bool
}

func NewRouter(dep Dependencies) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.StructuredRequestLogger)
	r.Use(middleware.SecurityHeaders)

	r.Get("/health/live", func(w http.ResponseWriter, r *http.Request) {
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if dep.ReadyCheck != nil {
			if err := dep.ReadyCheck(r); err != nil {
				response.Error(w, r, http.StatusServiceUnavailable, "DEPENDENCY_UNREADY", "dependencies are not ready", map[string]string{"reason": err.Error()})
				return
			}
		}
		response.JSON(w, r, http.StatusOK, map[string]string{"status": "ready"})
	})

	r.Route("/passport", func(r chi.Router) {
		p := dep.PassportHandler
		r.Get("/auth", p.Auth)
		r.Post("/login", p.Login)
		r.Post("/registration", p.Registration)
		r.Post("/registration/anonymous", p.RegistrationAnonymous)
		r.Post("/checkout/{user_id}", p.Checkout)
		r.Post("/loginout", p.LoginoutAll)
		r.Post("/loginout/{user_id}", p.Loginout)
		r.Get("/login/check/{login}", p.LoginCheck)
		r.Post("/login/{user_id}", p.ChangeLogin)
	})

	var h http.Handler = r
	if dep.EnableOTelHTTP {
		h = otelhttp.NewHandler(r, "http.server")
	}
	return h
}
