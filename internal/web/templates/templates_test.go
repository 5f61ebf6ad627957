package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUploadPage(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, UploadPage(UploadPageData{MaxFileSizeMB: 50, Backend: "tabula"}).Render(context.Background(), &buf))

	out := buf.String()
	assert.Contains(t, out, "<!DOCTYPE html>")
	assert.Contains(t, out, `action="/convert"`)
	assert.Contains(t, out, `name="file"`)
	assert.Contains(t, out, "Up to 50 MB")
	assert.NotContains(t, out, `role="alert"`)
}

func TestUploadPage_WithError(t *testing.T) {
	var buf bytes.Buffer
	data := UploadPageData{MaxFileSizeMB: 50, Error: Alert{Message: "No tables found in the PDF.", Code: "PDF001"}}
	require.NoError(t, UploadPage(data).Render(context.Background(), &buf))

	assert.Contains(t, buf.String(), "No tables found in the PDF.")
	assert.Contains(t, buf.String(), "Code: PDF001")
}

func TestErrorAlert_Escapes(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, ErrorAlert("<script>x</script>", "", "").Render(context.Background(), &buf))

	assert.NotContains(t, buf.String(), "<script>")
	assert.Contains(t, buf.String(), "&lt;script&gt;")
	assert.NotContains(t, buf.String(), "Code:")
}

func TestLayout_WrapsChildren(t *testing.T) {
	var buf bytes.Buffer
	body := ErrorAlert("inside", "", "")
	ctx := templ.WithChildren(context.Background(), body)
	require.NoError(t, Layout("a < b").Render(ctx, &buf))

	out := buf.String()
	assert.Contains(t, out, "<title>a &lt; b</title>")
	assert.Contains(t, out, `<main><div class="alert" role="alert">`)
	assert.True(t, strings.HasSuffix(out, "</main></body></html>"))
}

func TestUploadPage_EscapesBackend(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, UploadPage(UploadPageData{MaxFileSizeMB: 1, Backend: "<b>"}).Render(context.Background(), &buf))

	assert.Contains(t, buf.String(), "extracted with the &lt;b&gt; backend.")
}
