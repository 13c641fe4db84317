// Package controller drives the interactive roster flows against a UI.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"rollcall/internal/importer"
	"rollcall/internal/picker"
	"rollcall/internal/roster"
	"rollcall/internal/session"
	"rollcall/pkg/interfaces"
	"rollcall/pkg/types"
)

// Titles and messages shown to the user.
const (
	TitleChooseClass   = "Choose a class"
	TitleError         = "Error"
	TitleSuccess       = "Success"
	TitleAddStudent    = "Add student"
	TitlePicked        = "Picked student"
	TitleNoEligible    = "No available students"
	TitleNoStudents    = "No students"
	TitleLuckyNumber   = "Lucky number"
	MsgNoClassFound    = "No class found!"
	MsgCreateClass     = "Create a new class!"
	MsgEnterClassName  = "Enter the new class name"
	MsgEnterStudent    = "Enter the student's name"
	MsgNoEligible      = "Every available student was picked in the last rounds or holds the lucky number."
	MsgNoStudents      = "Add students to the class before picking."
	MsgNoClassSelected = "No class is selected. Choose a class first."
)

// Controller runs user-facing flows for one session
// ARCHITECTURAL DISCOVERY: Every failure ends up as a UI notification; the returned
// error is only for callers that want to log or exit
type Controller struct {
	rosters *roster.Manager
	session *session.Session
	ui      interfaces.UI
}

// New creates a controller for sess.
func New(rosters *roster.Manager, sess *session.Session, ui interfaces.UI) *Controller {
	return &Controller{
		rosters: rosters,
		session: sess,
		ui:      ui,
	}
}

// Session returns the session the controller drives.
func (c *Controller) Session() *session.Session {
	return c.session
}

// Startup offers the existing classes, or asks to create one when there are none.
func (c *Controller) Startup(ctx context.Context) error {
	names, err := c.rosters.ListRosters(ctx)
	if err != nil {
		return c.fail(ctx, err)
	}
	if len(names) == 0 {
		return c.CreateClass(ctx, MsgNoClassFound)
	}

	choice, ok, err := c.ui.ChooseOne(ctx, TitleChooseClass, names)
	if err != nil {
		return err
	}
	if !ok || choice == "" {
		return nil
	}
	return c.OpenClass(ctx, choice)
}

// OpenClass makes className the active roster.
func (c *Controller) OpenClass(ctx context.Context, className string) error {
	if _, err := c.rosters.Open(ctx, c.session, className); err != nil {
		return c.fail(ctx, err)
	}
	return nil
}

// CreateClass prompts for a class name and creates an empty roster.
func (c *Controller) CreateClass(ctx context.Context, message string) error {
	if message == "" {
		message = MsgCreateClass
	}
	name, ok, err := c.ui.PromptText(ctx, message, MsgEnterClassName)
	if err != nil {
		return err
	}
	if !ok || name == "" {
		return nil
	}

	if _, err := c.rosters.CreateEmptyRoster(ctx, c.session, name); err != nil {
		return c.fail(ctx, err)
	}
	return nil
}

// ImportFile imports the text file at path as a new class named after the file.
func (c *Controller) ImportFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return c.fail(ctx, fmt.Errorf("%w: read %s: %w", interfaces.ErrIO, path, err))
	}

	className := importer.ClassNameFromFile(path)
	if _, err := c.rosters.ImportFromText(ctx, c.session, className, string(data)); err != nil {
		return c.fail(ctx, err)
	}
	return nil
}

// AddStudent prompts for a name and appends the student to the active roster.
func (c *Controller) AddStudent(ctx context.Context) error {
	if !c.session.HasRoster() {
		return c.fail(ctx, interfaces.ErrNoActiveRoster)
	}

	name, ok, err := c.ui.PromptText(ctx, TitleAddStudent, MsgEnterStudent)
	if err != nil {
		return err
	}
	if !ok || name == "" {
		return nil
	}

	if _, err := c.rosters.AddStudent(ctx, c.session, name); err != nil {
		return c.fail(ctx, err)
	}
	return nil
}

// RemoveStudent removes the student with studentNumber from the active roster.
func (c *Controller) RemoveStudent(ctx context.Context, studentNumber int) error {
	if err := c.rosters.RemoveStudent(ctx, c.session, studentNumber); err != nil {
		return c.fail(ctx, err)
	}
	return nil
}

// PickStudent runs the picker and shows the outcome.
func (c *Controller) PickStudent(ctx context.Context) (roster.PickResult, error) {
	result, err := c.rosters.PickRandom(ctx, c.session)
	if err != nil {
		return result, c.fail(ctx, err)
	}

	switch result.Outcome {
	case picker.Picked:
		err = c.ui.Notify(ctx, TitlePicked, result.Student.Name)
	case picker.NoEligible:
		err = c.ui.Notify(ctx, TitleNoEligible, MsgNoEligible)
	default:
		err = c.ui.Notify(ctx, TitleNoStudents, MsgNoStudents)
	}
	return result, err
}

// RollLuckyNumber draws a new lucky number. Without an active class it does nothing.
func (c *Controller) RollLuckyNumber(ctx context.Context) (int, error) {
	n, err := c.rosters.RollLuckyNumber(ctx, c.session)
	if errors.Is(err, interfaces.ErrNoActiveRoster) {
		return types.NoLuckyNumber, nil
	}
	if err != nil {
		return types.NoLuckyNumber, c.fail(ctx, err)
	}
	return n, c.ui.Notify(ctx, TitleLuckyNumber, fmt.Sprintf("Lucky number: %d", n))
}

// DeleteCurrentClass deletes the active class and reports the result.
func (c *Controller) DeleteCurrentClass(ctx context.Context) error {
	className := c.session.ClassName()
	if className == "" {
		return c.fail(ctx, interfaces.ErrNoActiveRoster)
	}

	if err := c.rosters.DeleteRoster(ctx, className, c.session); err != nil {
		return c.fail(ctx, err)
	}
	return c.ui.Notify(ctx, TitleSuccess, fmt.Sprintf("Class '%s' was deleted.", className))
}

// fail shows err to the user and returns it.
func (c *Controller) fail(ctx context.Context, err error) error {
	log.Printf("Roster operation failed: session=%s: %v", c.session.ID, err)
	if notifyErr := c.ui.Notify(ctx, TitleError, Describe(err)); notifyErr != nil {
		log.Printf("Failed to show error: %v", notifyErr)
	}
	return err
}

// Describe turns an error into a message for the user.
func Describe(err error) string {
	switch {
	case errors.Is(err, interfaces.ErrNoActiveRoster):
		return MsgNoClassSelected
	case errors.Is(err, interfaces.ErrAlreadyExists):
		return "That class already exists."
	case errors.Is(err, interfaces.ErrNotFound):
		return "Not found: " + err.Error()
	case errors.Is(err, interfaces.ErrCorruptData):
		return "The class file is damaged and cannot be read."
	case errors.Is(err, interfaces.ErrEmptyRoster):
		return MsgNoStudents
	case errors.Is(err, types.ErrInvalidClassName):
		return "That class name cannot be used."
	case errors.Is(err, types.ErrInvalidStudentName):
		return "The student's name cannot be empty."
	case errors.Is(err, interfaces.ErrIO):
		return "Saving failed: " + err.Error()
	default:
		return err.Error()
	}
}
