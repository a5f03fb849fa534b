package wizard

import (
	"context"
	"strings"
)

// CanteenForm holds the field values the canteen-owner onboarding
// steps bind to.
type CanteenForm struct {
	Phone       string
	CollegeID   uint64
	CanteenName string
	UPIID       string
	Documents   []string // opaque references to uploaded documents
}

// CanteenSteps assembles the three-step canteen-owner flow:
//
//	1 canteen-profile: phone, college and canteen name
//	2 payout:          UPI payment identifier
//	3 documents:       registration/identity documents, then completion
func CanteenSteps(d Deps, form *CanteenForm) []Step {
	return []Step{
		{
			Name: "canteen-profile",
			Validate: func() bool {
				return ValidPhone(form.Phone) &&
					form.CollegeID != 0 &&
					strings.TrimSpace(form.CanteenName) != ""
			},
			Commit: func(ctx context.Context) error {
				return d.Saver.SaveStep(ctx, 1, map[string]any{
					"phone":        strings.TrimSpace(form.Phone),
					"college_id":   form.CollegeID,
					"canteen_name": strings.TrimSpace(form.CanteenName),
				})
			},
		},
		{
			Name: "payout",
			Validate: func() bool {
				return ValidUPI(form.UPIID)
			},
			Commit: func(ctx context.Context) error {
				return d.Saver.SaveStep(ctx, 2, map[string]any{
					"upi_id": strings.TrimSpace(form.UPIID),
				})
			},
		},
		{
			Name: "documents",
			Validate: func() bool {
				return len(form.Documents) > 0
			},
			// The document references are saved and the flow completed
			// in one commit; a failure in either leaves the user on
			// this step.
			Commit: func(ctx context.Context) error {
				if err := d.Saver.SaveStep(ctx, 3, map[string]any{
					"documents": form.Documents,
				}); err != nil {
					return err
				}
				return finish(ctx, d)
			},
		},
	}
}
