package services

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/pocketbase/pocketbase/core"

	"contractadmin/dialog"
	"contractadmin/policy"
)

// parentFields maps a parent collection to the relation field its children
// use, for nested endpoints such as contracts/{id}/variation_orders.
var parentFields = map[string]string{
	"contracts": "contract",
}

// writable lists the collections dialogs may write to.
var writable = map[string]bool{
	"variation_orders": true,
	"cost_codes":       true,
	"contracts":        true,
}

// RecordMutator performs dialog writes against the local PocketBase store.
// Lifecycle rules are reported as business failures, storage errors as
// errors.
type RecordMutator struct {
	app core.App
}

// NewRecordMutator returns a RecordMutator over app.
func NewRecordMutator(app core.App) *RecordMutator {
	return &RecordMutator{app: app}
}

type endpointRef struct {
	collection  string
	parentField string
	parentID    string
}

func parseEndpoint(endpoint string) (endpointRef, error) {
	parts := strings.Split(strings.Trim(endpoint, "/"), "/")
	var ref endpointRef
	switch len(parts) {
	case 1:
		ref.collection = parts[0]
	case 3:
		field, ok := parentFields[parts[0]]
		if !ok {
			return ref, fmt.Errorf("unknown parent collection %q", parts[0])
		}
		ref = endpointRef{collection: parts[2], parentField: field, parentID: parts[1]}
	default:
		return ref, fmt.Errorf("malformed endpoint %q", endpoint)
	}
	if !writable[ref.collection] {
		return ref, fmt.Errorf("collection %q is not writable", ref.collection)
	}
	return ref, nil
}

// Create inserts a record. Variation orders start Pending and need an
// active parent contract.
func (m *RecordMutator) Create(ctx context.Context, endpoint string, values map[string]any) (dialog.Result, error) {
	if err := ctx.Err(); err != nil {
		return dialog.Result{}, err
	}
	ref, err := parseEndpoint(endpoint)
	if err != nil {
		return dialog.Result{}, err
	}
	col, err := m.app.FindCollectionByNameOrId(ref.collection)
	if err != nil {
		return dialog.Result{}, fmt.Errorf("find collection %s: %w", ref.collection, err)
	}

	rec := core.NewRecord(col)
	for k, v := range values {
		rec.Set(k, v)
	}
	if ref.parentField != "" {
		rec.Set(ref.parentField, ref.parentID)
	}

	switch ref.collection {
	case "variation_orders":
		contract, err := m.app.FindRecordById("contracts", ref.parentID)
		if err != nil {
			return dialog.Failed("Contract not found"), nil
		}
		if !policy.CanAddVariationOrder(contract.GetString("status")) {
			return dialog.Failed("Variation orders can only be added to active contracts"), nil
		}
		if res, dup := m.duplicateVO(contract.Id, rec.GetString("vo_number"), ""); dup {
			return res, nil
		}
		rec.Set("status", policy.VOPending)
	case "contracts":
		return dialog.Failed("Contracts are created with the contract wizard"), nil
	}

	if err := m.app.Save(rec); err != nil {
		return dialog.Result{}, fmt.Errorf("create %s: %w", ref.collection, err)
	}
	return withID(dialog.OK("Created successfully"), rec.Id), nil
}

// Update changes a record. Editing a rejected variation order resubmits it.
func (m *RecordMutator) Update(ctx context.Context, endpoint, id string, values map[string]any) (dialog.Result, error) {
	if err := ctx.Err(); err != nil {
		return dialog.Result{}, err
	}
	ref, err := parseEndpoint(endpoint)
	if err != nil {
		return dialog.Result{}, err
	}
	rec, err := m.app.FindRecordById(ref.collection, id)
	if err != nil {
		return dialog.Failed("Record not found"), nil
	}

	switch ref.collection {
	case "variation_orders":
		contractStatus := relatedField(m.app, "contracts", rec.GetString("contract"), "status")
		if !policy.VariationOrderActions(rec.GetString("status"), contractStatus).Allows(policy.Edit) {
			return dialog.Failed("This variation order can no longer be edited"), nil
		}
		if number, ok := values["vo_number"].(string); ok {
			if res, dup := m.duplicateVO(rec.GetString("contract"), number, rec.Id); dup {
				return res, nil
			}
		}
		if strings.EqualFold(rec.GetString("status"), policy.VORejected) {
			rec.Set("status", policy.VOPending)
			rec.Set("rejection_reason", "")
		}
	case "contracts":
		return dialog.Failed("Contracts are edited with the contract wizard"), nil
	}

	for k, v := range values {
		rec.Set(k, v)
	}
	if err := m.app.Save(rec); err != nil {
		return dialog.Result{}, fmt.Errorf("update %s: %w", ref.collection, err)
	}
	return withID(dialog.OK("Saved successfully"), rec.Id), nil
}

// Delete removes a record when its lifecycle allows it.
func (m *RecordMutator) Delete(ctx context.Context, endpoint, id string) (dialog.Result, error) {
	if err := ctx.Err(); err != nil {
		return dialog.Result{}, err
	}
	ref, err := parseEndpoint(endpoint)
	if err != nil {
		return dialog.Result{}, err
	}
	rec, err := m.app.FindRecordById(ref.collection, id)
	if err != nil {
		return dialog.Failed("Record not found"), nil
	}

	switch ref.collection {
	case "contracts":
		if !policy.ContractActions(rec.GetString("status")).Allows(policy.Delete) {
			return dialog.Failed("Only draft contracts can be deleted"), nil
		}
	case "variation_orders":
		contractStatus := relatedField(m.app, "contracts", rec.GetString("contract"), "status")
		if !policy.VariationOrderActions(rec.GetString("status"), contractStatus).Allows(policy.Delete) {
			return dialog.Failed("Only pending variation orders can be deleted"), nil
		}
	}

	if err := m.app.Delete(rec); err != nil {
		return dialog.Result{}, fmt.Errorf("delete %s: %w", ref.collection, err)
	}
	return dialog.OK("Deleted successfully"), nil
}

// Approve approves a pending variation order.
func (m *RecordMutator) Approve(ctx context.Context, endpoint, id string) (dialog.Result, error) {
	rec, res, ok := m.reviewable(ctx, endpoint, id)
	if !ok {
		return res, nil
	}
	rec.Set("status", policy.VOApproved)
	rec.Set("rejection_reason", "")
	if err := m.app.Save(rec); err != nil {
		return dialog.Result{}, fmt.Errorf("approve variation order: %w", err)
	}
	return dialog.OK("Variation order " + rec.GetString("vo_number") + " approved"), nil
}

// Reject rejects a pending variation order with reason.
func (m *RecordMutator) Reject(ctx context.Context, endpoint, id, reason string) (dialog.Result, error) {
	rec, res, ok := m.reviewable(ctx, endpoint, id)
	if !ok {
		return res, nil
	}
	rec.Set("status", policy.VORejected)
	rec.Set("rejection_reason", strings.TrimSpace(reason))
	if err := m.app.Save(rec); err != nil {
		return dialog.Result{}, fmt.Errorf("reject variation order: %w", err)
	}
	return dialog.OK("Variation order " + rec.GetString("vo_number") + " rejected"), nil
}

func (m *RecordMutator) reviewable(ctx context.Context, endpoint, id string) (*core.Record, dialog.Result, bool) {
	if ctx.Err() != nil {
		return nil, dialog.Failed(ctx.Err().Error()), false
	}
	ref, err := parseEndpoint(endpoint)
	if err != nil || ref.collection != "variation_orders" {
		return nil, dialog.Failed("Only variation orders can be reviewed"), false
	}
	rec, err := m.app.FindRecordById("variation_orders", id)
	if err != nil {
		return nil, dialog.Failed("Variation order not found"), false
	}
	contractStatus := relatedField(m.app, "contracts", rec.GetString("contract"), "status")
	if !policy.VariationOrderActions(rec.GetString("status"), contractStatus).Allows(policy.Approve) {
		return nil, dialog.Failed("Only pending variation orders can be reviewed"), false
	}
	return rec, dialog.Result{}, true
}

func (m *RecordMutator) duplicateVO(contractID, number, exceptID string) (dialog.Result, bool) {
	number = strings.TrimSpace(number)
	if number == "" {
		return dialog.Result{}, false
	}
	dup, err := m.app.FindFirstRecordByFilter("variation_orders",
		"contract = {:c} && vo_number = {:n} && id != {:id}",
		map[string]any{"c": contractID, "n": number, "id": exceptID})
	switch {
	case err == nil && dup != nil:
		return dialog.Failed(fmt.Sprintf("Variation order %s already exists on this contract", number)), true
	case err != nil && !errors.Is(err, sql.ErrNoRows):
		m.app.Logger().Error("variation order number check failed", "contract", contractID, "error", err)
		return dialog.Failed("Could not check the variation order number"), true
	}
	return dialog.Result{}, false
}

func withID(res dialog.Result, id string) dialog.Result {
	raw, err := json.Marshal(map[string]string{"id": id})
	if err == nil {
		res.Data = raw
	}
	return res
}
