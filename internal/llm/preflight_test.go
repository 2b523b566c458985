package llm

import (
	"bytes"
	"fmt"
	"strings"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// samplePDF builds a well-formed PDF with the given number of blank pages.
// padding bytes of comment are placed after the header; they are not part of
// any object, so an optimized rewrite drops them.
func samplePDF(t *testing.T, pages, padding int) []byte {
	t.Helper()

	var objects []string
	objects = append(objects, "<< /Type /Catalog /Pages 2 0 R >>")
	kids := make([]string, pages)
	for i := range kids {
		kids[i] = fmt.Sprintf("%d 0 R", i+3)
	}
	objects = append(objects, fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), pages))
	for range pages {
		objects = append(objects, "<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Resources << >> >>")
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	if padding > 0 {
		buf.WriteString("%" + strings.Repeat("x", padding) + "\n")
	}
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func pageCount(t *testing.T, data []byte) int {
	t.Helper()
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(data), conf)
	require.NoError(t, err)
	return n
}

func TestPreflightPassesThroughPDFUnderLimit(t *testing.T) {
	data := samplePDF(t, 2, 0)
	require.Equal(t, 2, pageCount(t, data))

	out, err := PreflightPDF(data, DefaultMaxDocumentBytes)
	require.NoError(t, err)
	assert.Equal(t, data, out, "a readable PDF under the limit is sent unchanged")
}

func TestPreflightOptimizesPDFOverLimit(t *testing.T) {
	data := samplePDF(t, 3, 16_000)
	limit := len(data) - 1

	out, err := PreflightPDF(data, limit)
	require.NoError(t, err)
	assert.LessOrEqual(t, len(out), limit)
	assert.NotEqual(t, data, out)
	assert.Equal(t, 3, pageCount(t, out), "optimization keeps every page")
}

func TestPreflightRejectsPDFStillTooLargeAfterOptimizing(t *testing.T) {
	data := samplePDF(t, 2, 0)

	_, err := PreflightPDF(data, 16)
	assert.ErrorIs(t, err, ErrAttachmentTooLarge)
	assert.Contains(t, err.Error(), "after optimization")
}

func TestPreflightPassesThroughUnreadableSmallFiles(t *testing.T) {
	data := []byte("not really a pdf")
	out, err := PreflightPDF(data, DefaultMaxDocumentBytes)
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestPreflightRejectsOversizedUnreadableFiles(t *testing.T) {
	data := bytes.Repeat([]byte("x"), 64)
	_, err := PreflightPDF(data, 32)
	assert.ErrorIs(t, err, ErrAttachmentTooLarge)
	assert.NotContains(t, err.Error(), "after optimization")
}
