// Package views holds the storefront templates and static assets, embedded
// into the binary.
package views

import (
	"embed"
	"net/http"

	"github.com/gofiber/template/html/v2"
	"github.com/shopspring/decimal"

	"phone8/internal/money"
)

// StaticPrefix is the directory of static assets inside FileSystem.
const StaticPrefix = "static"

//go:embed *.html static
var files embed.FS

// FileSystem exposes the embedded templates and assets.
func FileSystem() http.FileSystem {
	return http.FS(files)
}

// NewEngine returns the template engine for the storefront pages.
func NewEngine() *html.Engine {
	engine := html.NewFileSystem(FileSystem(), ".html")
	engine.AddFunc("price", money.Format)
	engine.AddFunc("qty", func(d decimal.Decimal) string { return d.String() })
	return engine
}
