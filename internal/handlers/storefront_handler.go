package handlers

import (
	"errors"
	"fmt"
	"net/url"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"phone8/internal/datagrid"
	"phone8/internal/middleware"
	"phone8/internal/models"
	"phone8/internal/services"
	"phone8/internal/storefront"
)

// StorefrontHandler handles the storefront pages and the visitor's cart and
// detail overlay actions.
type StorefrontHandler struct {
	service  *services.StorefrontService
	registry *storefront.Registry
	logger   *zap.Logger
}

// NewStorefrontHandler creates a new StorefrontHandler.
func NewStorefrontHandler(service *services.StorefrontService, registry *storefront.Registry, logger *zap.Logger) *StorefrontHandler {
	return &StorefrontHandler{
		service:  service,
		registry: registry,
		logger:   logger,
	}
}

// RegisterRoutes registers the storefront routes. mount attaches the
// visitor's session, creating it when needed, and guards the entry pages.
// resume attaches an existing session and guards the actions, so stray
// requests never mount a session or hit the catalog backend.
func (h *StorefrontHandler) RegisterRoutes(router fiber.Router, mount, resume fiber.Handler) {
	router.Get("/", mount, h.HandleIndex)
	router.Get("/state", mount, h.HandleGetState)

	cartRoutes := router.Group("/cart", resume)
	cartRoutes.Post("/:id/add", h.HandleAddToCart)
	cartRoutes.Post("/:id/quantity", h.HandleUpdateQuantity)
	cartRoutes.Post("/:id/remove", h.HandleRemoveFromCart)

	detailRoutes := router.Group("/detail", resume)
	detailRoutes.Post("/close", h.HandleCloseDetail)
	detailRoutes.Post("/add", h.HandleAddSelected)
	detailRoutes.Post("/:id", h.HandleOpenDetail)

	router.Post("/session/reset", resume, h.HandleResetSession)
	router.Get("/export/:format", resume, h.HandleExport)
}

// HandleIndex renders the storefront page.
func (h *StorefrontHandler) HandleIndex(c *fiber.Ctx) error {
	v, err := visitor(c)
	if err != nil {
		return err
	}
	page := h.service.GetPage(v, c.Query("q"), c.QueryInt("page", 1))
	return c.Render("index", page)
}

// HandleGetState returns the visitor's session as JSON.
func (h *StorefrontHandler) HandleGetState(c *fiber.Ctx) error {
	v, err := visitor(c)
	if err != nil {
		return err
	}
	return c.JSON(h.service.GetState(v))
}

// HandleAddToCart adds a catalog product to the cart.
func (h *StorefrontHandler) HandleAddToCart(c *fiber.Ctx) error {
	v, err := visitor(c)
	if err != nil {
		return err
	}
	productID := models.ProductID(c.Params("id"))
	if !v.Session.AddByID(productID) {
		return productNotFound(c, productID)
	}
	return h.respond(c, v)
}

// HandleUpdateQuantity sets a cart quantity from the "quantity" form field.
// Anything that is not a positive number removes the entry.
func (h *StorefrontHandler) HandleUpdateQuantity(c *fiber.Ctx) error {
	v, err := visitor(c)
	if err != nil {
		return err
	}
	v.Session.SetQuantity(models.ProductID(c.Params("id")), c.FormValue("quantity"))
	return h.respond(c, v)
}

// HandleRemoveFromCart drops a product from the cart.
func (h *StorefrontHandler) HandleRemoveFromCart(c *fiber.Ctx) error {
	v, err := visitor(c)
	if err != nil {
		return err
	}
	v.Session.Remove(models.ProductID(c.Params("id")))
	return h.respond(c, v)
}

// HandleOpenDetail opens the detail overlay for a catalog product.
func (h *StorefrontHandler) HandleOpenDetail(c *fiber.Ctx) error {
	v, err := visitor(c)
	if err != nil {
		return err
	}
	productID := models.ProductID(c.Params("id"))
	if !v.Session.OpenDetailByID(productID) {
		return productNotFound(c, productID)
	}
	return h.respond(c, v)
}

// HandleCloseDetail closes the detail overlay.
func (h *StorefrontHandler) HandleCloseDetail(c *fiber.Ctx) error {
	v, err := visitor(c)
	if err != nil {
		return err
	}
	v.Session.CloseDetail()
	return h.respond(c, v)
}

// HandleAddSelected adds the product shown in the detail overlay to the cart.
func (h *StorefrontHandler) HandleAddSelected(c *fiber.Ctx) error {
	v, err := visitor(c)
	if err != nil {
		return err
	}
	if !v.Session.AddSelected() {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "No product is selected",
		})
	}
	return h.respond(c, v)
}

// HandleResetSession tears the visitor's session down. The next request
// mounts a fresh one and loads the catalog again.
func (h *StorefrontHandler) HandleResetSession(c *fiber.Ctx) error {
	v, err := visitor(c)
	if err != nil {
		return err
	}
	h.registry.Reset(v.Session.ID())
	if wantsJSON(c) {
		return c.JSON(fiber.Map{
			"message": "Session reset",
		})
	}
	return c.Redirect("/", fiber.StatusSeeOther)
}

// HandleExport exports the products matching the "q" query in the
// requested format.
func (h *StorefrontHandler) HandleExport(c *fiber.Ctx) error {
	v, err := visitor(c)
	if err != nil {
		return err
	}
	format, err := datagrid.ParseFormat(c.Params("format"))
	if err != nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"message": "Unknown export format",
			"error":   err.Error(),
		})
	}
	query := c.Query("q")

	if format == datagrid.FormatPrint {
		rows, err := h.service.SearchRows(v, query)
		if err != nil {
			return h.exportFailed(c, format, err)
		}
		records := make([][]string, 0, len(rows))
		for _, p := range rows {
			records = append(records, datagrid.Record(p))
		}
		return c.Render("print", fiber.Map{
			"Title":   datagrid.Title,
			"Query":   query,
			"Columns": datagrid.Columns,
			"Rows":    records,
		})
	}

	body, err := h.service.Export(v, format, query)
	if err != nil {
		return h.exportFailed(c, format, err)
	}
	if name := format.Filename(); name != "" {
		c.Attachment(name)
	}
	c.Set(fiber.HeaderContentType, format.ContentType())
	return c.Send(body)
}

func (h *StorefrontHandler) exportFailed(c *fiber.Ctx, format datagrid.Format, err error) error {
	if errors.Is(err, services.ErrNoCatalog) {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{
			"message": "The catalog has no products to export",
		})
	}
	h.logger.Error("export failed", zap.String("format", string(format)), zap.Error(err))
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
		"message": "Could not export products",
		"error":   err.Error(),
	})
}

// respond answers a state change with the new state for JSON clients and
// with a redirect back to the page for browsers.
func (h *StorefrontHandler) respond(c *fiber.Ctx, v *storefront.Visitor) error {
	if wantsJSON(c) {
		return c.JSON(h.service.GetState(v))
	}
	return c.Redirect(backURL(c), fiber.StatusSeeOther)
}

func wantsJSON(c *fiber.Ctx) bool {
	return c.Accepts(fiber.MIMETextHTML, fiber.MIMEApplicationJSON) == fiber.MIMEApplicationJSON
}

// backURL is the index page with the search and page the form was posted
// from.
func backURL(c *fiber.Ctx) string {
	params := url.Values{}
	if q := c.FormValue("q"); q != "" {
		params.Set("q", q)
	}
	if page, err := strconv.Atoi(c.FormValue("page")); err == nil && page > 1 {
		params.Set("page", strconv.Itoa(page))
	}
	if len(params) == 0 {
		return "/"
	}
	return "/?" + params.Encode()
}

func visitor(c *fiber.Ctx) (*storefront.Visitor, error) {
	v, ok := middleware.Visitor(c)
	if !ok {
		return nil, fiber.NewError(fiber.StatusInternalServerError, "visitor session middleware is not installed")
	}
	return v, nil
}

func productNotFound(c *fiber.Ctx, id models.ProductID) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"message": fmt.Sprintf("Product with ID %s not found", id),
	})
}
