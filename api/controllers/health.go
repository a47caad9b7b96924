package controllers

import (
	"net/http"

	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/api/responses"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/config"
	"github.com/sentinelbot/tiffah-thrift-verse-nexus-sub003/pkg/redis"
)

func HealthLive(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tiffah-Env", cfg.App.Env)
		responses.WriteSuccess(w, map[string]string{"status": "live"})
	}
}

func HealthReady(cfg *config.Config, cache redis.Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Tiffah-Env", cfg.App.Env)

		status := map[string]string{"status": "ready"}
		if cache != nil {
			if err := cache.Ping(r.Context()); err != nil {
				status["status"] = "degraded"
				status["redis"] = "unreachable"
				responses.WriteSuccessStatus(w, http.StatusServiceUnavailable, status)
				return
			}
			status["redis"] = "ok"
		}
		responses.WriteSuccess(w, status)
	}
}
