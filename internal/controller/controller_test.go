package controller

import (
	"context"
	"math/rand/v2"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/picker"
	"rollcall/internal/roster"
	"rollcall/internal/session"
	"rollcall/internal/storage"
	"rollcall/pkg/interfaces"
	"rollcall/pkg/types"
)

type notification struct {
	Title   string
	Message string
}

func rosterNames(r *types.Roster) []string {
	names := make([]string, 0, r.Len())
	for _, s := range r.Students {
		names = append(names, s.Name)
	}
	return names
}

// scriptedUI answers prompts from queues and records notifications.
type scriptedUI struct {
	choices       []string
	prompts       []string
	offered       [][]string
	notifications []notification
}

func (u *scriptedUI) Notify(ctx context.Context, title, message string) error {
	u.notifications = append(u.notifications, notification{title, message})
	return nil
}

func (u *scriptedUI) ChooseOne(ctx context.Context, title string, options []string) (string, bool, error) {
	u.offered = append(u.offered, options)
	if len(u.choices) == 0 {
		return "", false, nil
	}
	choice := u.choices[0]
	u.choices = u.choices[1:]
	return choice, true, nil
}

func (u *scriptedUI) PromptText(ctx context.Context, title, message string) (string, bool, error) {
	if len(u.prompts) == 0 {
		return "", false, nil
	}
	text := u.prompts[0]
	u.prompts = u.prompts[1:]
	return text, true, nil
}

func (u *scriptedUI) last() notification {
	if len(u.notifications) == 0 {
		return notification{}
	}
	return u.notifications[len(u.notifications)-1]
}

var _ interfaces.UI = &scriptedUI{}

func newController(t *testing.T) (*Controller, *scriptedUI, *roster.Manager) {
	t.Helper()
	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "Classes"))
	require.NoError(t, err)

	rosters := roster.NewManager(store, picker.NewWithRandom(rand.New(rand.NewPCG(3, 5))))
	ui := &scriptedUI{}
	return New(rosters, session.New(), ui), ui, rosters
}

func TestStartup_NoClassesPromptsCreate(t *testing.T) {
	c, ui, _ := newController(t)
	ui.prompts = []string{"3A"}

	require.NoError(t, c.Startup(context.Background()))
	assert.Equal(t, "3A", c.Session().ClassName())
	assert.Empty(t, ui.offered)
}

func TestStartup_NoClassesCancelled(t *testing.T) {
	c, _, _ := newController(t)

	require.NoError(t, c.Startup(context.Background()))
	assert.False(t, c.Session().HasRoster())
}

func TestStartup_ChoosesExistingClass(t *testing.T) {
	c, ui, rosters := newController(t)
	ctx := context.Background()
	_, err := rosters.ImportFromText(ctx, nil, "History", "Ala,+")
	require.NoError(t, err)
	_, err = rosters.CreateEmptyRoster(ctx, nil, "Biology")
	require.NoError(t, err)

	ui.choices = []string{"History"}
	require.NoError(t, c.Startup(ctx))

	assert.Equal(t, [][]string{{"Biology", "History"}}, ui.offered)
	assert.Equal(t, "History", c.Session().ClassName())
	assert.Equal(t, []string{"Ala"}, rosterNames(c.Session().Roster()))
}

func TestStartup_CancelledChoice(t *testing.T) {
	c, _, rosters := newController(t)
	_, err := rosters.CreateEmptyRoster(context.Background(), nil, "Biology")
	require.NoError(t, err)

	require.NoError(t, c.Startup(context.Background()))
	assert.False(t, c.Session().HasRoster())
}

func TestCreateClass_DuplicateNotifies(t *testing.T) {
	c, ui, _ := newController(t)
	ctx := context.Background()
	ui.prompts = []string{"3A", "3A"}

	require.NoError(t, c.CreateClass(ctx, ""))
	err := c.CreateClass(ctx, "")
	assert.ErrorIs(t, err, interfaces.ErrAlreadyExists)
	assert.Equal(t, TitleError, ui.last().Title)
}

func TestImportFile(t *testing.T) {
	c, ui, _ := newController(t)
	ctx := context.Background()

	path := filepath.Join(t.TempDir(), "3A.txt")
	require.NoError(t, os.WriteFile(path, []byte("Ala,+\nBob,-\nbad\n"), 0o644))

	require.NoError(t, c.ImportFile(ctx, path))
	assert.Equal(t, "3A", c.Session().ClassName())
	assert.Equal(t, []string{"Ala", "Bob"}, rosterNames(c.Session().Roster()))

	err := c.ImportFile(ctx, path)
	assert.ErrorIs(t, err, interfaces.ErrAlreadyExists)
	assert.Equal(t, TitleError, ui.last().Title)

	err = c.ImportFile(ctx, filepath.Join(t.TempDir(), "missing.txt"))
	assert.ErrorIs(t, err, interfaces.ErrIO)
}

func TestAddStudent(t *testing.T) {
	c, ui, _ := newController(t)
	ctx := context.Background()

	err := c.AddStudent(ctx)
	assert.ErrorIs(t, err, interfaces.ErrNoActiveRoster)
	assert.Equal(t, notification{TitleError, MsgNoClassSelected}, ui.last())

	ui.prompts = []string{"3A", "Ala"}
	require.NoError(t, c.CreateClass(ctx, ""))
	require.NoError(t, c.AddStudent(ctx))

	assert.Equal(t, []types.Student{{StudentNumber: 1, Name: "Ala", IsPresent: true}}, c.Session().Roster().Students)

	// cancelled prompt adds nothing
	require.NoError(t, c.AddStudent(ctx))
	assert.Equal(t, 1, c.Session().Roster().Len())
}

func TestRemoveStudent(t *testing.T) {
	c, ui, rosters := newController(t)
	ctx := context.Background()
	_, err := rosters.ImportFromText(ctx, c.Session(), "3A", "A,+\nB,+\nC,+")
	require.NoError(t, err)

	require.NoError(t, c.RemoveStudent(ctx, 2))
	assert.Equal(t, []types.Student{
		{StudentNumber: 1, Name: "A", IsPresent: true},
		{StudentNumber: 2, Name: "C", IsPresent: true},
	}, c.Session().Roster().Students)

	assert.ErrorIs(t, c.RemoveStudent(ctx, 9), interfaces.ErrNotFound)
	assert.Equal(t, TitleError, ui.last().Title)
}

func TestPickStudent_Outcomes(t *testing.T) {
	c, ui, rosters := newController(t)
	ctx := context.Background()

	res, err := c.PickStudent(ctx)
	require.NoError(t, err)
	assert.Equal(t, picker.NoStudents, res.Outcome)
	assert.Equal(t, notification{TitleNoStudents, MsgNoStudents}, ui.last())

	_, err = rosters.ImportFromText(ctx, c.Session(), "3A", "Ala,+")
	require.NoError(t, err)

	res, err = c.PickStudent(ctx)
	require.NoError(t, err)
	assert.Equal(t, picker.Picked, res.Outcome)
	assert.Equal(t, notification{TitlePicked, "Ala"}, ui.last())

	res, err = c.PickStudent(ctx)
	require.NoError(t, err)
	assert.Equal(t, picker.NoEligible, res.Outcome)
	assert.Equal(t, notification{TitleNoEligible, MsgNoEligible}, ui.last())
}

func TestRollLuckyNumber(t *testing.T) {
	c, ui, rosters := newController(t)
	ctx := context.Background()

	n, err := c.RollLuckyNumber(ctx)
	require.NoError(t, err)
	assert.Equal(t, types.NoLuckyNumber, n)
	assert.Empty(t, ui.notifications)

	_, err = rosters.ImportFromText(ctx, c.Session(), "3A", "A,+\nB,+")
	require.NoError(t, err)

	n, err = c.RollLuckyNumber(ctx)
	require.NoError(t, err)
	assert.Contains(t, []int{1, 2}, n)
	assert.Equal(t, TitleLuckyNumber, ui.last().Title)
}

func TestDeleteCurrentClass(t *testing.T) {
	c, ui, rosters := newController(t)
	ctx := context.Background()

	assert.ErrorIs(t, c.DeleteCurrentClass(ctx), interfaces.ErrNoActiveRoster)

	_, err := rosters.CreateEmptyRoster(ctx, c.Session(), "3A")
	require.NoError(t, err)

	require.NoError(t, c.DeleteCurrentClass(ctx))
	assert.False(t, c.Session().HasRoster())
	assert.Equal(t, notification{TitleSuccess, "Class '3A' was deleted."}, ui.last())

	names, err := rosters.ListRosters(ctx)
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestDescribe(t *testing.T) {
	assert.Equal(t, MsgNoClassSelected, Describe(interfaces.ErrNoActiveRoster))
	assert.Equal(t, MsgNoStudents, Describe(interfaces.ErrEmptyRoster))
	assert.Equal(t, "That class name cannot be used.", Describe(types.ErrInvalidClassName))
	assert.Contains(t, Describe(interfaces.ErrIO), "Saving failed")
}
