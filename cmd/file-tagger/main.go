package main

import (
	"context"
	"log/slog"
	"os"
	"sync"

	"github.com/GoogleCloudPlatform/functions-framework-go/funcframework"
	"github.com/GoogleCloudPlatform/functions-framework-go/functions"
	cloudevents "github.com/cloudevents/sdk-go/v2"

	"github.com/Lllllllleong/documentmetadataflow/internal/config"
	"github.com/Lllllllleong/documentmetadataflow/internal/logging"
	"github.com/Lllllllleong/documentmetadataflow/internal/services"
)

var (
	fileTaggerInstance *services.FileTaggerFunction
	once               sync.Once
	initErr            error
)

func init() {
	logging.Init(logging.ConfigFromEnv())

	functions.CloudEvent("TagFile", tagFile)
}

func main() {
	port := config.GetEnv("PORT", "8080")
	if err := funcframework.Start(port); err != nil {
		slog.Error("funcframework.Start failed", "error", err)
		os.Exit(1)
	}
}

// tagFile handles an object-created event from Cloud Storage or from S3 via EventBridge.
func tagFile(ctx context.Context, e cloudevents.Event) error {
	once.Do(func() {
		fileTaggerInstance, initErr = services.NewFileTagger(context.Background())
	})
	if initErr != nil {
		slog.Error("Critical error during function initialization", "error", initErr)
		return initErr
	}

	req, err := services.ParseStorageEvent(e.Data())
	if err != nil {
		slog.Error("Failed to parse event data", "error", err, "eventId", e.ID(), "eventType", e.Type(), "data", string(e.Data()))
		return err
	}

	res, err := fileTaggerInstance.Process(ctx, req)
	if err != nil {
		// Returning the error marks the invocation as failed so the event is retried.
		return err
	}
	slog.Info("Event processed.", "eventId", e.ID(), "status", res.Status, "fileName", res.FileName)
	return nil
}
