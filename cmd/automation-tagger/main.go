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
	automationTaggerInstance *services.AutomationTaggerFunction
	once                     sync.Once
	initErr                  error
)

func init() {
	logging.Init(logging.ConfigFromEnv())

	functions.HTTP("HandleAutomationTagging", handleAutomationTagging)
}

func main() {
	port := config.GetEnv("PORT", "8080")
	if err := funcframework.Start(port); err != nil {
		slog.Error("funcframework.Start failed", "error", err)
		os.Exit(1)
	}
}

// handleAutomationTagging runs a data automation job on the requested file and stores the result.
func handleAutomationTagging(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		automationTaggerInstance, initErr = services.NewAutomationTagger(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Automation tagger initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	var req models.AutomationTagRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Warn("Could not decode request body", "error", err)
		http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
		return
	}

	res, err := automationTaggerInstance.Process(r.Context(), &req)
	if err != nil {
		// Error is already logged with context in the Process method.
		http.Error(w, err.Error(), services.StatusCode(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err, "inputFile", req.InputFile)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
