/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/warehouse-documents/*   Warehouse document lifecycle
  /api/gl-entries/*            Journal entry lifecycle
  /api/invoices/*              Invoice lifecycle and payments
  /api/stock                   Stock positions (read)
  /api/accounts                Chart of accounts (read)
  /api/linkage/*               Cross-document traversals (read)

SECURITY NOTE:
  No authentication middleware. All endpoints are public; deploy behind
  a gateway that terminates auth.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Warehouse document routes
		r.Route("/warehouse-documents", func(r chi.Router) {
			r.Get("/", h.ListDocuments)
			r.Post("/", h.CreateDocument)
			r.Get("/{id}", h.GetDocument)
			r.Put("/{id}", h.UpdateDocument)
			r.Delete("/{id}", h.DeleteDocument)
			r.Post("/{id}/post", h.PostDocument)
			r.Post("/{id}/cancel", h.CancelDocument)
		})

		// Journal entry routes
		r.Route("/gl-entries", func(r chi.Router) {
			r.Get("/", h.ListEntries)
			r.Post("/", h.CreateEntry)
			r.Get("/{id}", h.GetEntry)
			r.Put("/{id}", h.UpdateEntry)
			r.Delete("/{id}", h.DeleteEntry)
			r.Post("/{id}/post", h.PostEntry)
			r.Post("/{id}/cancel", h.CancelEntry)
		})

		// Invoice routes
		r.Route("/invoices", func(r chi.Router) {
			r.Get("/", h.ListInvoices)
			r.Post("/", h.CreateInvoice)
			r.Get("/{id}", h.GetInvoice)
			r.Put("/{id}", h.UpdateInvoice)
			r.Delete("/{id}", h.DeleteInvoice)
			r.Post("/{id}/post", h.PostInvoice)
			r.Post("/{id}/cancel", h.CancelInvoice)
			r.Post("/{id}/payments", h.RecordPayment)
		})

		// Read-only routes
		r.Get("/stock", h.ListStock)
		r.Get("/accounts", h.ListAccounts)

		// Linkage traversal routes
		r.Route("/linkage", func(r chi.Router) {
			r.Get("/purchase-orders/{id}/receipts", h.ReceiptsForPurchaseOrder)
			r.Get("/warehouse-documents/{id}/invoice", h.InvoiceForWarehouseDocument)
			r.Get("/references/{type}/{id}/entries", h.EntriesForReference)
		})
	})

	return r
}
