package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"

	"github.com/Lllllllleong/documentmetadataflow/internal/config"
	"github.com/Lllllllleong/documentmetadataflow/internal/logging"
	"github.com/Lllllllleong/documentmetadataflow/internal/models"
	"github.com/Lllllllleong/documentmetadataflow/internal/services"
)

var (
	provisionerInstance *services.ProvisionerFunction
	once                sync.Once
	initErr             error
)

func init() {
	logging.Init(logging.ConfigFromEnv())

	functions.HTTP("HandleProvision", handleProvision)
}

func main() {
	port := config.GetEnv("PORT", "8080")
	if err := funcframework.Start(port); err != nil {
		slog.Error("funcframework.Start failed", "error", err)
		os.Exit(1)
	}
}

// handleProvision ensures all resources on POST and deletes the named ones on DELETE.
func handleProvision(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		provisionerInstance, initErr = services.NewProvisioner(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Provisioner initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var (
		res any
		err error
	)
	switch r.Method {
	case http.MethodPost:
		var req models.ProvisionRequest
		if !decode(w, r, &req) {
			return
		}
		res, err = provisionerInstance.Process(r.Context(), &req)
	case http.MethodDelete:
		var req models.TeardownRequest
		if !decode(w, r, &req) {
			return
		}
		res, err = provisionerInstance.Teardown(r.Context(), &req)
	default:
		w.Header().Set("Allow", "POST, DELETE")
		http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		return
	}
	if err != nil {
		// Error is already logged with context by the provisioners.
		http.Error(w, err.Error(), services.StatusCode(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return false
	}
	return true
}
