package routes

import (
	"net/http"

	"profile-service/handlers"
	"profile-service/middleware"

	"github.com/gorilla/mux"
)

func SetupRoutes(profileHandler *handlers.ProfileHandler) *mux.Router {
	router := mux.NewRouter()
	router.MethodNotAllowedHandler = http.HandlerFunc(middleware.MethodNotAllowed)

	updateProfile := middleware.ErrorHandler(profileHandler.UpdateProfileHandler)
	router.Handle("/profile", updateProfile).Methods(http.MethodPut, http.MethodPatch)
	router.Handle("/api/v1/profile", updateProfile).Methods(http.MethodPut, http.MethodPatch)
	router.HandleFunc("/health", handlers.HealthHandler).Methods(http.MethodGet)

	return router
}
