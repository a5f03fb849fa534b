package wizard

import (
	"context"
	"strings"
)

// StudentForm holds the field values the student onboarding steps bind
// to. The UI mutates it; validity predicates read it.
type StudentForm struct {
	Phone       string
	CollegeID   uint64
	CuisineTags []string
}

// StudentSteps assembles the three-step student flow:
//
//	1 profile:      phone number and college affiliation
//	2 preferences:  at least one cuisine tag
//	3 review:       completion call
func StudentSteps(d Deps, form *StudentForm) []Step {
	return []Step{
		{
			Name: "profile",
			Validate: func() bool {
				return ValidPhone(form.Phone) && form.CollegeID != 0
			},
			Commit: func(ctx context.Context) error {
				return d.Saver.SaveStep(ctx, 1, map[string]any{
					"phone":      strings.TrimSpace(form.Phone),
					"college_id": form.CollegeID,
				})
			},
		},
		{
			Name: "preferences",
			Validate: func() bool {
				return len(NormalizeTags(form.CuisineTags)) > 0
			},
			Commit: func(ctx context.Context) error {
				return d.Saver.SaveStep(ctx, 2, map[string]any{
					"cuisine_tags": NormalizeTags(form.CuisineTags),
				})
			},
		},
		{
			// Review shows what was saved; nothing left to validate.
			Name: "review",
			Commit: func(ctx context.Context) error {
				return finish(ctx, d)
			},
		},
	}
}
