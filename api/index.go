package api

import (
	"context"
	"encoding/json"
	"net/http"
	"storefront/config"
	"storefront/libs"
	"storefront/models"
	"storefront/server"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

var (
	app     *server.App
	initErr error
	once    sync.Once
)

func initApp() {
	once.Do(func() {
		gin.SetMode(gin.ReleaseMode)

		cfg := config.LoadConfig()
		logger, err := libs.NewLogger(cfg.AppEnv, false)
		if err != nil {
			logger = zap.NewNop()
		}

		app, initErr = server.New(context.Background(), cfg, logger)
		if initErr != nil {
			logger.Error("failed to initialize app", zap.Error(initErr))
		}
	})
}

// Handler is the serverless entrypoint.
func Handler(w http.ResponseWriter, r *http.Request) {
	initApp()
	if initErr != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		json.NewEncoder(w).Encode(models.ErrorResponse{
			Success: false,
			Message: "Service unavailable",
		})
		return
	}
	app.Router.ServeHTTP(w, r)
}
