package interfaces

import "context"

// Notifier shows a message to the teacher.
type Notifier interface {
	Notify(ctx context.Context, title, message string) error
}

// UI is the interactive collaborator driven by the controller flows.
// FUNCTIONAL DISCOVERY: Every call blocks the calling flow until the user answers;
// ok=false means the user cancelled
type UI interface {
	Notifier

	// ChooseOne asks the user to pick one of options.
	ChooseOne(ctx context.Context, title string, options []string) (choice string, ok bool, err error)

	// PromptText asks the user for a line of text.
	PromptText(ctx context.Context, title, message string) (text string, ok bool, err error)
}
