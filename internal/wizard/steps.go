package wizard

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/campuseats/campuseats/internal/guard"
	"github.com/campuseats/campuseats/internal/model"
	"github.com/campuseats/campuseats/internal/navigation"
)

// ProgressSaver is the onboarding-progress collaborator: per-step
// atomic saves plus the one-way completion call. Satisfied by
// api.Client.
type ProgressSaver interface {
	SaveStep(ctx context.Context, step int, fields map[string]any) error
	CompleteOnboarding(ctx context.Context) (model.Identity, error)
}

// SessionWriter is the slice of the session store the completion step
// needs: re-install the freshened identity under the current
// credential.
type SessionWriter interface {
	Login(ctx context.Context, id model.Identity, cred model.Credential) error
	Credential() (model.Credential, bool)
}

// Deps bundles the collaborators the step sets close over.
type Deps struct {
	Saver   ProgressSaver
	Session SessionWriter
	Nav     navigation.Navigator
	Log     *slog.Logger
}

// finish is the shared completion action: mark onboarding complete
// server-side, refresh the stored identity (which rebinds realtime
// rooms; a new canteen owner's canteen is linked here), and navigate
// to the role's home. Any failure leaves the wizard on its final step
// for a retry.
func finish(ctx context.Context, d Deps) error {
	id, err := d.Saver.CompleteOnboarding(ctx)
	if err != nil {
		return fmt.Errorf("complete onboarding: %w", err)
	}
	if cred, ok := d.Session.Credential(); ok {
		if err := d.Session.Login(ctx, id, cred); err != nil && d.Log != nil {
			d.Log.Warn("session refresh after completion failed", "err", err)
		}
	}
	d.Nav.RedirectTo(guard.RoleHome(id.Role))
	return nil
}
