// Package templates holds the HTML views of the web front end. Components are
// written in .templ files; the matching _templ.go files are generated.
package templates

//go:generate go run github.com/a-h/templ/cmd/templ@v0.3.960 generate

// UploadPageData is the state of the upload page.
type UploadPageData struct {
	MaxFileSizeMB int64
	Backend       string
	// Error, when Message is set, is shown above the form.
	Error Alert
}

// Alert is a user-facing message with a support code.
type Alert struct {
	Message string
	Action  string
	Code    string
}
