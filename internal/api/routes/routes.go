package routes

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yoockh/voicerelay/internal/api/handlers"
	"github.com/yoockh/voicerelay/internal/api/middleware"
	"github.com/yoockh/voicerelay/internal/metrics"
)

type Deps struct {
	WS      *handlers.WSHandler
	Metrics *metrics.Metrics
	Logger  *logrus.Logger
	WSPath  string
}

// NewRouter builds the engine with the socket route, metrics and a catch-all
// liveness answer.
func NewRouter(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(handlers.Recovery())
	r.Use(cors.New(cors.Config{
		AllowAllOrigins:           true,
		AllowMethods:              []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:              []string{"Origin", "Content-Type", middleware.RequestIDHeader},
		ExposeHeaders:             []string{middleware.RequestIDHeader},
		OptionsResponseStatusCode: http.StatusOK,
	}))
	if d.Logger != nil {
		r.Use(middleware.RequestLogger(d.Logger))
	}

	RegisterRoutes(r, d)
	return r
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	path := d.WSPath
	if path == "" {
		path = "/transcribe"
	}

	r.GET(path, d.WS.Transcribe)
	if d.Metrics != nil {
		r.GET("/metrics", gin.WrapH(d.Metrics.Handler()))
	}

	r.NoRoute(handlers.Liveness)
	r.NoMethod(handlers.Liveness)
}
