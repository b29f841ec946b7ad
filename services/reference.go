package services

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"contractadmin/dialog"
)

// Reference list names, also the keys of ReferenceData.Errors.
const (
	RefProjects       = "projects"
	RefSubcontractors = "subcontractors"
	RefCurrencies     = "currencies"
	RefTemplates      = "templates"
)

// ReferenceData holds the option lists the wizard forms depend on. Each list
// is fetched independently; a failed fetch leaves its list empty and records
// the error under its name.
type ReferenceData struct {
	Projects       []dialog.Option   `json:"projects"`
	Subcontractors []dialog.Option   `json:"subcontractors"`
	Currencies     []dialog.Option   `json:"currencies"`
	Templates      []dialog.Option   `json:"templates"`
	Errors         map[string]string `json:"errors,omitempty"`
}

// Ready reports whether every list loaded.
func (r ReferenceData) Ready() bool {
	return len(r.Errors) == 0
}

type referenceSource struct {
	name       string
	collection string
	label      func(*core.Record) string
	dst        *[]dialog.Option
}

// LoadReferenceData fetches the four reference lists concurrently and waits
// for all of them to settle.
func LoadReferenceData(ctx context.Context, app core.App) ReferenceData {
	var data ReferenceData
	sources := []referenceSource{
		{RefProjects, "projects", byField("name"), &data.Projects},
		{RefSubcontractors, "subcontractors", byField("name"), &data.Subcontractors},
		{RefCurrencies, "currencies", currencyLabel, &data.Currencies},
		{RefTemplates, "contract_templates", byField("name"), &data.Templates},
	}

	var (
		mu   sync.Mutex
		errs = map[string]string{}
	)
	g, gctx := errgroup.WithContext(ctx)
	for _, src := range sources {
		g.Go(func() error {
			opts, err := loadOptions(gctx, app, src.collection, src.label)
			if err != nil {
				app.Logger().Error("reference: load failed", "list", src.name, "error", err)
				mu.Lock()
				errs[src.name] = err.Error()
				mu.Unlock()
				*src.dst = []dialog.Option{}
				// Report per list; the others keep loading.
				return nil
			}
			*src.dst = opts
			return nil
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		data.Errors = errs
	}
	return data
}

func loadOptions(ctx context.Context, app core.App, collection string, label func(*core.Record) string) ([]dialog.Option, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	records, err := app.FindAllRecords(collection)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}
	opts := make([]dialog.Option, 0, len(records))
	for _, r := range records {
		opts = append(opts, dialog.Option{Value: r.Id, Label: label(r)})
	}
	coll := collate.New(language.Und, collate.IgnoreCase)
	slices.SortStableFunc(opts, func(a, b dialog.Option) int {
		return coll.CompareString(a.Label, b.Label)
	})
	return opts, nil
}

func byField(field string) func(*core.Record) string {
	return func(r *core.Record) string { return r.GetString(field) }
}

func currencyLabel(r *core.Record) string {
	code := r.GetString("code")
	if name := strings.TrimSpace(r.GetString("name")); name != "" && name != code {
		return code + " - " + name
	}
	return code
}
