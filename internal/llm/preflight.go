package llm

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// DefaultMaxDocumentBytes is the Converse API's per-document limit.
const DefaultMaxDocumentBytes = 4_500_000

// ErrAttachmentTooLarge is returned when a document cannot be brought under the size limit.
var ErrAttachmentTooLarge = errors.New("attachment exceeds the model's document size limit")

// PreflightPDF logs the page count of a PDF and, when it is over maxBytes, tries
// to shrink it with pdfcpu's optimizer. A PDF pdfcpu cannot read is passed through
// untouched if it already fits; the model API gets the final say on it.
func PreflightPDF(data []byte, maxBytes int) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	pageCount, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		slog.Warn("PDF preflight could not read document.", "error", err, "bytes", len(data))
		if len(data) > maxBytes {
			return nil, fmt.Errorf("%w: %d bytes", ErrAttachmentTooLarge, len(data))
		}
		return data, nil
	}
	slog.Info("PDF preflight.", "pageCount", pageCount, "bytes", len(data))
	if len(data) <= maxBytes {
		return data, nil
	}

	var optimized bytes.Buffer
	if err := api.Optimize(bytes.NewReader(data), &optimized, conf); err != nil {
		return nil, fmt.Errorf("failed to optimize PDF: %w", err)
	}
	if optimized.Len() > maxBytes {
		return nil, fmt.Errorf("%w: %d bytes after optimization", ErrAttachmentTooLarge, optimized.Len())
	}
	slog.Info("PDF optimized to fit the document size limit.", "originalBytes", len(data), "optimizedBytes", optimized.Len())
	return optimized.Bytes(), nil
}
