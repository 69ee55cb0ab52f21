package v1

import (
	"net/http"

	"github.com/dmehra2102/prod-golang-projects/medication/internal/config"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/medication/internal/middleware"
	"github.com/dmehra2102/prod-golang-projects/medication/pkg/metrics"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type RouterDeps struct {
	Config      *config.Config
	Log         *zap.Logger
	Metrics     *metrics.Collector
	Gatherer    prometheus.Gatherer
	Tokens      middleware.TokenValidator
	GlobalLimit *middleware.RateLimiter
	AuthLimit   *middleware.RateLimiter

	Auth          *AuthHandler
	Patients      *PatientHandler
	Catalog       *CatalogHandler
	Prescriptions *PrescriptionHandler
	Adherence     *AdherenceHandler
	Health        *HealthHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	if d.Config.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.NoRoute(func(c *gin.Context) { respondError(c, http.StatusNotFound, "route not found") })
	r.NoMethod(func(c *gin.Context) { respondError(c, http.StatusMethodNotAllowed, "method not allowed") })

	r.Use(
		middleware.RequestID(),
		middleware.Recovery(d.Log),
		middleware.Tracing(d.Config.Tracing.ServiceName),
		middleware.Logger(d.Log),
		middleware.Metrics(d.Metrics),
		middleware.SecurityHeaders(d.Config.App.IsProduction()),
		middleware.CORS(d.Config.CORS),
	)

	r.GET("/healthz", d.Health.Live)
	r.GET("/readyz", d.Health.Ready)
	r.GET("/metrics", gin.WrapH(metrics.MetricsHandler(d.Gatherer)))

	api := r.Group("/api/v1", d.GlobalLimit.Middleware())

	authn := middleware.Auth(d.Tokens)

	auth := api.Group("/auth")
	{
		auth.POST("/login", d.AuthLimit.Middleware(), d.Auth.Login)
		auth.POST("/refresh", d.AuthLimit.Middleware(), d.Auth.Refresh)
		auth.GET("/me", authn, d.Auth.Me)
		auth.POST("/password", authn, d.AuthLimit.Middleware(), d.Auth.ChangePassword)
	}

	meds := api.Group("/medications", authn)
	{
		meds.GET("", d.Catalog.List)
		meds.GET("/:id", d.Catalog.Get)
	}

	admin := api.Group("/admin", authn, middleware.RequireRole(domain.RoleAdmin))
	{
		admin.POST("/patients", d.Patients.Register)
	}

	patients := api.Group("", authn, middleware.RequireRole(domain.RolePatient))
	{
		patients.GET("/patients/me", d.Patients.Me)
		patients.GET("/prescriptions", d.Prescriptions.ListMine)
		patients.GET("/prescriptions/refill-eligible", d.Prescriptions.ListRefillEligible)
		patients.GET("/prescriptions/:id", d.Prescriptions.GetMine)
		patients.POST("/prescriptions/:id/take", d.Adherence.Take)
		patients.GET("/prescriptions/:id/adherence", d.Adherence.History)
		patients.GET("/prescriptions/:id/adherence/summary", d.Adherence.Summary)
	}

	prescriber := api.Group("/prescriber/prescriptions", authn, middleware.RequireRole(domain.RolePrescriber))
	{
		prescriber.POST("", d.Prescriptions.Create)
		prescriber.GET("", d.Prescriptions.ListIssued)
		prescriber.GET("/:id", d.Prescriptions.GetIssued)
		prescriber.PUT("/:id", d.Prescriptions.Update)
		prescriber.DELETE("/:id", d.Prescriptions.Cancel)
	}

	pharmacist := api.Group("/pharmacist/prescriptions", authn, middleware.RequireRole(domain.RolePharmacist))
	{
		pharmacist.POST("/dispense", d.Prescriptions.Dispense)
		pharmacist.GET("/by-number/:number", d.Prescriptions.GetByNumber)
		pharmacist.GET("/:id/dispensations", d.Prescriptions.ListDispensations)
	}

	return r
}
