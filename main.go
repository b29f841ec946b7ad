package main

import (
	"log"
	"net/http"
	"os"

	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/spf13/cobra"

	"contractadmin/collections"
	"contractadmin/config"
	"contractadmin/handlers"
)

func main() {
	cfg, err := config.Load("")
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	app := pocketbase.New()

	app.RootCmd.AddCommand(&cobra.Command{
		Use:   "seed",
		Short: "Create the collections and insert demo data",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.Bootstrap(); err != nil {
				return err
			}
			collections.Setup(app)
			return collections.Seed(app)
		},
	})

	// Create collections, seed data and run data migrations on startup
	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		collections.Setup(app)
		if err := collections.Seed(app); err != nil {
			log.Printf("Warning: seed data failed: %v", err)
		}
		if err := collections.BackfillContractTotals(app); err != nil {
			log.Printf("Warning: contract totals backfill failed: %v", err)
		}
		if n, err := collections.PruneStaleDrafts(app, cfg.Drafts.MaxAge); err != nil {
			log.Printf("Warning: draft cleanup failed: %v", err)
		} else if n > 0 {
			log.Printf("Removed %d stale contract drafts", n)
		}
		return se.Next()
	})

	app.OnServe().BindFunc(func(se *core.ServeEvent) error {
		se.Router.GET("/static/{path...}", apis.Static(os.DirFS("./static"), false))

		se.Router.BindFunc(handlers.ConfigMiddleware(cfg))

		// ── Contracts ────────────────────────────────────────────
		se.Router.GET("/contracts", handlers.HandleContractList(app))
		se.Router.GET("/contracts/table", handlers.HandleContractTable(app))
		se.Router.GET("/contracts/new", handlers.HandleWizardNew(app))
		se.Router.GET("/contracts/{id}/preview", handlers.HandleContractPreview(app))
		se.Router.GET("/contracts/{id}/preview/export", handlers.HandleContractPreviewExport(app))
		se.Router.GET("/contracts/{id}/export/{format}", handlers.HandleContractExport(app))
		se.Router.GET("/contracts/{id}/edit", handlers.HandleContractEdit(app))
		se.Router.GET("/contracts/{id}/terminate", handlers.HandleContractTerminate(app))
		se.Router.POST("/contracts/{id}/terminate", handlers.HandleContractTerminate(app))
		se.Router.DELETE("/contracts/{id}", handlers.HandleContractDelete(app))

		// ── Variation orders ─────────────────────────────────────
		se.Router.GET("/contracts/{id}/variation-orders", handlers.HandleVariationOrderList(app))
		se.Router.GET("/contracts/{id}/variation-orders/table", handlers.HandleVariationOrderTable(app))
		se.Router.GET("/contracts/{id}/variation-orders/new", handlers.HandleVariationOrderNew(app))
		se.Router.POST("/contracts/{id}/variation-orders/new", handlers.HandleVariationOrderNew(app))
		se.Router.GET("/variation-orders/{id}", handlers.HandleVariationOrderPreview(app))
		se.Router.GET("/variation-orders/{id}/edit", handlers.HandleVariationOrderEdit(app))
		se.Router.POST("/variation-orders/{id}/edit", handlers.HandleVariationOrderEdit(app))
		se.Router.GET("/variation-orders/{id}/review", handlers.HandleVariationOrderReview(app))
		se.Router.POST("/variation-orders/{id}/review", handlers.HandleVariationOrderReview(app))
		se.Router.DELETE("/variation-orders/{id}", handlers.HandleVariationOrderDelete(app))

		// ── Contract wizard ──────────────────────────────────────
		se.Router.POST("/wizard/new", handlers.HandleWizardNew(app))
		se.Router.GET("/wizard/{draftId}", handlers.HandleWizardShow(app))
		se.Router.POST("/wizard/{draftId}/event", handlers.HandleWizardEvent(app))
		se.Router.POST("/wizard/{draftId}/import", handlers.HandleWizardImport(app))
		se.Router.POST("/wizard/{draftId}/import/errors", handlers.HandleWizardImportErrors(app))
		se.Router.GET("/wizard/{draftId}/template", handlers.HandleWizardTemplate(app))
		se.Router.GET("/wizard/{draftId}/export", handlers.HandleWizardExport(app))
		se.Router.POST("/wizard/{draftId}/submit", handlers.HandleWizardSubmit(app))

		// ── Cost codes ───────────────────────────────────────────
		se.Router.GET("/cost-codes", handlers.HandleCostCodeList(app))
		se.Router.GET("/cost-codes/table", handlers.HandleCostCodeTable(app))
		se.Router.GET("/cost-codes/select", handlers.HandleCostCodeSelect(app))
		se.Router.POST("/cost-codes/select", handlers.HandleCostCodeSelect(app))
		se.Router.GET("/cost-codes/new", handlers.HandleCostCodeNew(app))
		se.Router.POST("/cost-codes/new", handlers.HandleCostCodeNew(app))
		se.Router.GET("/cost-codes/{id}/edit", handlers.HandleCostCodeEdit(app))
		se.Router.POST("/cost-codes/{id}/edit", handlers.HandleCostCodeEdit(app))
		se.Router.DELETE("/cost-codes/{id}", handlers.HandleCostCodeDelete(app))

		// ── JSON ─────────────────────────────────────────────────
		se.Router.GET("/api/reference", handlers.HandleReferenceAPI(app))

		// Redirect home to the contract list
		se.Router.GET("/", func(e *core.RequestEvent) error {
			return e.Redirect(http.StatusFound, "/contracts")
		})

		return se.Next()
	})

	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}
