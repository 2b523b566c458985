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
	readerInstance *services.MetadataReaderFunction
	once           sync.Once
	initErr        error
)

func init() {
	logging.Init(logging.ConfigFromEnv())

	functions.HTTP("HandleGetMetadata", handleGetMetadata)
}

func main() {
	port := config.GetEnv("PORT", "8080")
	if err := funcframework.Start(port); err != nil {
		slog.Error("funcframework.Start failed", "error", err)
		os.Exit(1)
	}
}

// handleGetMetadata returns the record for ?fileName=<uri>, or for a JSON body on POST.
func handleGetMetadata(w http.ResponseWriter, r *http.Request) {
	once.Do(func() {
		readerInstance, initErr = services.NewMetadataReader(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical: Metadata reader initialization failed", "error", initErr)
		http.Error(w, "Internal Server Error: failed to initialize service", http.StatusInternalServerError)
		return
	}

	req := models.MetadataRequest{FileName: r.URL.Query().Get("fileName")}
	if r.Method == http.MethodPost {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			slog.Warn("Could not decode request body", "error", err)
			http.Error(w, "Bad Request: could not parse JSON", http.StatusBadRequest)
			return
		}
	}

	res, err := readerInstance.Process(r.Context(), &req)
	if err != nil {
		http.Error(w, err.Error(), services.StatusCode(err))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		slog.Error("Failed to write response", "error", err, "fileName", req.FileName)
		http.Error(w, "Internal Server Error: failed to encode response", http.StatusInternalServerError)
	}
}
