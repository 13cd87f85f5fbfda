package handlers

import (
	"encoding/json"
	"log"
	"net/http"

	"profile-service/db"
)

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if db.DB != nil {
		if err := db.DB.PingContext(r.Context()); err != nil {
			log.Printf("Health check failed: %v", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			json.NewEncoder(w).Encode(JSONResponse{"status": "unavailable"})
			return
		}
	}
	json.NewEncoder(w).Encode(JSONResponse{"status": "ok"})
}
