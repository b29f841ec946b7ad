package collections

import (
	"fmt"
	"log"
	"time"

	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/types"
)

// BackfillContractTotals sets total_amount on contracts saved without one
// from the sum of their BOQ lines. Safe to call on every startup -- returns
// early if nothing to migrate.
func BackfillContractTotals(app core.App) error {
	contracts, err := app.FindRecordsByFilter("contracts", "total_amount = 0", "", 0, 0, nil)
	if err != nil {
		return fmt.Errorf("migrate: could not query contracts: %w", err)
	}
	if len(contracts) == 0 {
		return nil
	}

	log.Printf("migrate: found %d contract(s) without a total -- recomputing...\n", len(contracts))

	for _, contract := range contracts {
		lines, err := app.FindRecordsByFilter(
			"contract_boq_items",
			"contract_building.contract = {:contract}",
			"", 0, 0,
			map[string]any{"contract": contract.Id},
		)
		if err != nil {
			log.Printf("migrate: failed to load lines of contract %s: %v\n", contract.Id, err)
			continue
		}
		total := 0.0
		for _, l := range lines {
			total += l.GetFloat("total_price")
		}
		if total == 0 {
			continue
		}
		contract.Set("total_amount", total)
		if err := app.Save(contract); err != nil {
			log.Printf("migrate: failed to save total of contract %s: %v\n", contract.Id, err)
			continue
		}
		log.Printf("migrate: contract %q total -> %.2f\n", contract.GetString("contract_number"), total)
	}
	return nil
}

// PruneStaleDrafts deletes wizard drafts not touched within maxAge and
// returns how many were removed.
func PruneStaleDrafts(app core.App, maxAge time.Duration) (int, error) {
	cutoff := types.NowDateTime().Add(-maxAge)
	drafts, err := app.FindRecordsByFilter(
		"contract_drafts",
		"updated < {:cutoff}",
		"", 0, 0,
		map[string]any{"cutoff": cutoff.String()},
	)
	if err != nil {
		return 0, fmt.Errorf("migrate: could not query drafts: %w", err)
	}

	removed := 0
	for _, d := range drafts {
		if err := app.Delete(d); err != nil {
			log.Printf("migrate: failed to delete draft %s: %v\n", d.Id, err)
			continue
		}
		removed++
	}
	if removed > 0 {
		log.Printf("migrate: pruned %d stale draft(s)\n", removed)
	}
	return removed, nil
}
