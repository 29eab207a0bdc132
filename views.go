package authgate

import (
	"embed"
	"net/http"

	"github.com/gofiber/template/django/v3"
)

//go:embed views/*.html
var viewsFS embed.FS

// NewViewEngine returns the template engine rendering the web chain's
// pages. Templates are embedded so the binary carries its views; they
// are addressed as "views/<name>".
func NewViewEngine() *django.Engine {
	return django.NewFileSystem(http.FS(viewsFS), ".html")
}
