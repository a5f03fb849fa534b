package main

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/campuseats/campuseats/internal/api"
	"github.com/campuseats/campuseats/internal/guard"
	"github.com/campuseats/campuseats/internal/model"
	"github.com/campuseats/campuseats/internal/wizard"
)

// The wizard must resume on the same step the router guard redirects
// to, for every saved step a student account can report.
func TestWizardResumesAtGuardStep(t *testing.T) {
	t.Parallel()

	steps := wizard.StudentSteps(wizard.Deps{}, &wizard.StudentForm{})
	for saved := 1; saved <= len(steps); saved++ {
		ctl, err := resumeController(steps, api.Progress{Step: saved})
		require.NoError(t, err)

		guardTarget := guard.OnboardingPath(model.RoleStudent, saved)
		wizardStep := guard.OnboardingPath(model.RoleStudent, ctl.Index()+1)
		require.Equal(t, guardTarget, wizardStep,
			"saved step %d must resume where the guard points", saved)
	}
}

// A fresh account reports step 1 and must start on the first step, not
// skip past it.
func TestWizardResumeFreshAccountStartsAtProfile(t *testing.T) {
	t.Parallel()

	student, err := resumeController(
		wizard.StudentSteps(wizard.Deps{}, &wizard.StudentForm{}),
		api.Progress{Step: 1})
	require.NoError(t, err)
	require.Equal(t, 0, student.Index())
	require.Equal(t, "profile", student.StepName())

	owner, err := resumeController(
		wizard.CanteenSteps(wizard.Deps{}, &wizard.CanteenForm{}),
		api.Progress{Step: 1})
	require.NoError(t, err)
	require.Equal(t, "canteen-profile", owner.StepName())
}
