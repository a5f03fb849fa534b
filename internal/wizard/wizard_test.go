package wizard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/campuseats/campuseats/internal/model"
	"github.com/campuseats/campuseats/internal/navigation"
)

func discard() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

// fakeSaver records step saves and can fail on demand.
type fakeSaver struct {
	mu        sync.Mutex
	saves     []int
	failSave  error
	completed int
	failDone  error
	identity  model.Identity
	block     chan struct{} // when set, SaveStep blocks until closed
}

func (f *fakeSaver) SaveStep(_ context.Context, step int, _ map[string]any) error {
	f.mu.Lock()
	block := f.block
	f.mu.Unlock()
	if block != nil {
		<-block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failSave != nil {
		return f.failSave
	}
	f.saves = append(f.saves, step)
	return nil
}

func (f *fakeSaver) CompleteOnboarding(_ context.Context) (model.Identity, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failDone != nil {
		return model.Identity{}, f.failDone
	}
	f.completed++
	id := f.identity
	id.OnboardingCompleted = true
	return id, nil
}

// fakeSession satisfies SessionWriter.
type fakeSession struct {
	mu     sync.Mutex
	logins []model.Identity
}

func (f *fakeSession) Login(_ context.Context, id model.Identity, _ model.Credential) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logins = append(f.logins, id)
	return nil
}

func (f *fakeSession) Credential() (model.Credential, bool) {
	return model.Credential{AccessToken: "tok"}, true
}

func studentDeps(saver *fakeSaver) (Deps, *fakeSession, *navigation.Memory) {
	sess := &fakeSession{}
	nav := navigation.NewMemory("/onboarding/student/step1")
	return Deps{Saver: saver, Session: sess, Nav: nav, Log: discard()}, sess, nav
}

func validStudentForm() *StudentForm {
	return &StudentForm{Phone: "9876543210", CollegeID: 1, CuisineTags: []string{"chaat"}}
}

func TestControllerResumesAtSavedStep(t *testing.T) {
	t.Parallel()

	d, _, _ := studentDeps(&fakeSaver{identity: model.Identity{ID: 1, Role: model.RoleStudent}})
	for _, tc := range []struct {
		start int
		want  int
	}{
		{start: 2, want: 1}, // saved step 2 -> index 1, not step 1
		{start: 1, want: 0},
		{start: 0, want: 0},  // clamped low
		{start: 99, want: 2}, // clamped high
	} {
		c, err := NewController(StudentSteps(d, validStudentForm()), tc.start, discard())
		require.NoError(t, err)
		require.Equal(t, tc.want, c.Index(), "start step %d", tc.start)
	}
}

func TestNextSaveFailureKeepsStep(t *testing.T) {
	t.Parallel()

	saver := &fakeSaver{failSave: errors.New("backend unavailable")}
	d, _, _ := studentDeps(saver)
	c, err := NewController(StudentSteps(d, validStudentForm()), 1, discard())
	require.NoError(t, err)

	err = c.Next(context.Background())
	require.Error(t, err)
	require.Equal(t, 0, c.Index(), "no partial advance on save failure")
	require.False(t, c.Busy())

	// Retry after the backend recovers succeeds and advances.
	saver.mu.Lock()
	saver.failSave = nil
	saver.mu.Unlock()
	require.NoError(t, c.Next(context.Background()))
	require.Equal(t, 1, c.Index())
	require.Equal(t, []int{1}, saver.saves)
}

func TestNextValidationGate(t *testing.T) {
	t.Parallel()

	form := &StudentForm{Phone: "12345", CollegeID: 1} // invalid phone
	saver := &fakeSaver{}
	d, _, _ := studentDeps(saver)
	c, err := NewController(StudentSteps(d, form), 1, discard())
	require.NoError(t, err)

	require.False(t, c.CanNext())
	require.ErrorIs(t, c.Next(context.Background()), ErrStepInvalid)
	require.Empty(t, saver.saves, "validation failures never reach the collaborator")

	// Entering a valid value enables the control (scenario D).
	form.Phone = "9876543210"
	require.True(t, c.CanNext())
}

func TestDoubleNextSingleSave(t *testing.T) {
	t.Parallel()

	saver := &fakeSaver{block: make(chan struct{})}
	d, _, _ := studentDeps(saver)
	c, err := NewController(StudentSteps(d, validStudentForm()), 1, discard())
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- c.Next(context.Background()) }()

	// Wait for the first Next to take the busy latch.
	require.Eventually(t, c.Busy, time.Second, time.Millisecond)

	require.ErrorIs(t, c.Next(context.Background()), ErrBusy)
	require.False(t, c.CanNext())

	close(saver.block)
	require.NoError(t, <-done)
	require.Equal(t, []int{1}, saver.saves, "exactly one save despite the double click")
	require.Equal(t, 1, c.Index())
}

func TestBackNeverSaves(t *testing.T) {
	t.Parallel()

	saver := &fakeSaver{}
	d, _, _ := studentDeps(saver)
	c, err := NewController(StudentSteps(d, validStudentForm()), 2, discard())
	require.NoError(t, err)
	require.Equal(t, 1, c.Index())

	require.NoError(t, c.Back())
	require.Equal(t, 0, c.Index())
	require.NoError(t, c.Back()) // first step: no-op
	require.Equal(t, 0, c.Index())
	require.Empty(t, saver.saves)
}

func TestStudentCompletionFlow(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	saver := &fakeSaver{identity: model.Identity{ID: 3, Role: model.RoleStudent, OnboardingStep: 3}}
	d, sess, nav := studentDeps(saver)
	c, err := NewController(StudentSteps(d, validStudentForm()), 1, discard())
	require.NoError(t, err)

	require.NoError(t, c.Next(ctx)) // profile
	require.NoError(t, c.Next(ctx)) // preferences
	require.NoError(t, c.Next(ctx)) // review -> complete
	require.True(t, c.Finished())
	require.Equal(t, 1, saver.completed)
	require.Equal(t, []int{1, 2}, saver.saves)

	// The refreshed identity was re-installed and the user navigated
	// to their home.
	require.Len(t, sess.logins, 1)
	require.True(t, sess.logins[0].OnboardingCompleted)
	require.Equal(t, "/student/home", nav.Path())

	// The flow is one-way.
	require.ErrorIs(t, c.Next(ctx), ErrFinished)
	require.ErrorIs(t, c.Back(), ErrFinished)
}

func TestCanteenCompletionFailureRetries(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	canteenID := uint64(77)
	saver := &fakeSaver{
		failDone: errors.New("backend unavailable"),
		identity: model.Identity{ID: 8, Role: model.RoleCanteenOwner, CanteenID: &canteenID},
	}
	sess := &fakeSession{}
	nav := navigation.NewMemory("/onboarding/canteen/step1")
	d := Deps{Saver: saver, Session: sess, Nav: nav, Log: discard()}

	form := &CanteenForm{
		Phone:       "9876543210",
		CollegeID:   2,
		CanteenName: "North Mess",
		UPIID:       "northmess@upi",
		Documents:   []string{"doc://fssai-licence"},
	}
	c, err := NewController(CanteenSteps(d, form), 1, discard())
	require.NoError(t, err)

	require.NoError(t, c.Next(ctx))
	require.NoError(t, c.Next(ctx))

	// Final step: documents save succeeds but completion fails; the
	// user stays on the step.
	require.Error(t, c.Next(ctx))
	require.False(t, c.Finished())
	require.Equal(t, 2, c.Index())
	require.Empty(t, sess.logins)
	require.Equal(t, "/onboarding/canteen/step1", nav.Path())

	saver.mu.Lock()
	saver.failDone = nil
	saver.mu.Unlock()
	require.NoError(t, c.Next(ctx))
	require.True(t, c.Finished())
	require.Equal(t, "/canteen/home", nav.Path())
	require.Len(t, sess.logins, 1)
	require.NotNil(t, sess.logins[0].CanteenID)
}
