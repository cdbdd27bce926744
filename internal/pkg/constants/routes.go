package constants

// Static route constants
const (
	PublicRoute  = "/"
	APIRoute     = "/api"
	UploadsRoute = "/uploads"

	DocsBasePath = "/docs/api/"
	DocsVersion  = "v1"
)
