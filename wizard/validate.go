package wizard

import (
	"errors"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire format of contract dates.
const DateLayout = "2006-01-02"

// Validate checks the draft against step and returns a message per failing
// field. Review and Preview require every earlier step to hold.
func Validate(step Step, d Draft) map[string]string {
	errs := map[string]string{}
	switch step {
	case StepProject:
		if d.ProjectID == "" {
			errs["project"] = "Select a project"
		}
	case StepTrade:
		if d.TradeID == "" {
			errs["trade"] = "Select a trade"
		}
	case StepBuilding:
		if len(d.BuildingIDs) == 0 {
			errs["buildings"] = "Select at least one building"
		}
	case StepSubcontractor:
		if d.SubcontractorID == "" {
			errs["subcontractor"] = "Select a subcontractor"
		}
	case StepDetails:
		errs = ValidateDetails(d.Details)
	case StepBOQ:
		if !hasLines(d) {
			errs["boq"] = "Add at least one line to a selected building"
		}
	case StepReview, StepPreview:
		for s := StepProject; s < StepReview; s++ {
			for k, v := range Validate(s, d) {
				errs[k] = v
			}
		}
	}
	return errs
}

func hasLines(d Draft) bool {
	for _, b := range d.BOQ {
		if d.HasBuilding(b.BuildingID) && len(b.Items) > 0 {
			return true
		}
	}
	return false
}

// ValidateDetails checks the contract header form.
func ValidateDetails(det Details) map[string]string {
	err := validation.ValidateStruct(&det,
		validation.Field(&det.ContractNumber, validation.Required.Error("Contract number is required")),
		validation.Field(&det.ContractDate, validation.Required.Error("Contract date is required"), validation.Date(DateLayout).Error("Use YYYY-MM-DD")),
		validation.Field(&det.StartDate, validation.Required.Error("Start date is required"), validation.Date(DateLayout).Error("Use YYYY-MM-DD")),
		validation.Field(&det.CompletionDate,
			validation.Required.Error("Completion date is required"),
			validation.Date(DateLayout).Error("Use YYYY-MM-DD"),
			validation.By(notBefore(det.StartDate)),
		),
		validation.Field(&det.CurrencyID, validation.Required.Error("Currency is required")),
		validation.Field(&det.AdvancePayment, is.Float.Error("Must be a number"), validation.By(percent)),
		validation.Field(&det.Retention, is.Float.Error("Must be a number"), validation.By(percent)),
	)
	return fieldErrors(err)
}

func fieldErrors(err error) map[string]string {
	out := map[string]string{}
	if err == nil {
		return out
	}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, e := range verrs {
			out[field] = e.Error()
		}
		return out
	}
	out["_form"] = err.Error()
	return out
}

func percent(value any) error {
	s, _ := value.(string)
	if s == "" {
		return nil
	}
	n, err := decimal.NewFromString(s)
	if err != nil {
		return nil
	}
	if n.IsNegative() || n.GreaterThan(decimal.NewFromInt(100)) {
		return errors.New("Must be between 0 and 100")
	}
	return nil
}

func notBefore(start string) validation.RuleFunc {
	return func(value any) error {
		s, _ := value.(string)
		from, err1 := time.Parse(DateLayout, start)
		to, err2 := time.Parse(DateLayout, s)
		if err1 != nil || err2 != nil {
			return nil
		}
		if to.Before(from) {
			return errors.New("Completion must not be before start")
		}
		return nil
	}
}
