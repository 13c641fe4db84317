package terminal

import (
	"context"
	"errors"
	"log"
	"strconv"
	"strings"

	"rollcall/internal/controller"
	"rollcall/internal/roster"
	"rollcall/pkg/interfaces"
	"rollcall/pkg/types"
)

const helpText = `commands:
  list              show saved classes
  open <class>      make a class active
  create            create an empty class
  import <file>     import "name,+/-" lines as a class named after the file
  show              print the active class
  add               add a student
  remove <number>   remove a student
  pick              pick a random student
  lucky             roll the lucky number
  delete            delete the active class
  help              show this text
  quit              leave
`

// Shell reads commands and runs them through a controller
type Shell struct {
	ui         *UI
	controller *controller.Controller
	rosters    *roster.Manager
}

// NewShell creates a shell. ui must be the UI the controller was built with.
func NewShell(ui *UI, c *controller.Controller, rosters *roster.Manager) *Shell {
	return &Shell{
		ui:         ui,
		controller: c,
		rosters:    rosters,
	}
}

// Run executes the startup flow, then commands until quit, end of input or ctx is done.
// Cancelling ctx is a normal way to leave and returns nil.
func (s *Shell) Run(ctx context.Context) error {
	_ = s.controller.Startup(ctx)

	for {
		line, ok, err := s.ui.ReadCommand(ctx, s.prompt())
		if err != nil {
			if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
				s.ui.Printf("\n")
				log.Printf("Shell interrupted: %v", err)
				return nil
			}
			return err
		}
		if !ok {
			return nil
		}
		if quit := s.Execute(ctx, line); quit {
			return nil
		}
	}
}

func (s *Shell) prompt() string {
	if name := s.controller.Session().ClassName(); name != "" {
		return "rollcall:" + name + "> "
	}
	return "rollcall> "
}

// Execute runs one command line and reports whether the shell should stop.
// Failures are already shown through the UI by the controller.
func (s *Shell) Execute(ctx context.Context, line string) bool {
	cmd, arg, _ := strings.Cut(strings.TrimSpace(line), " ")
	arg = strings.TrimSpace(arg)

	switch strings.ToLower(cmd) {
	case "":
	case "quit", "exit":
		return true
	case "help":
		s.ui.Printf("%s", helpText)
	case "list":
		s.list(ctx)
	case "open":
		if arg == "" {
			s.ui.Printf("usage: open <class>\n")
			break
		}
		_ = s.controller.OpenClass(ctx, arg)
	case "create":
		_ = s.controller.CreateClass(ctx, controller.MsgCreateClass)
	case "import":
		if arg == "" {
			s.ui.Printf("usage: import <file>\n")
			break
		}
		_ = s.controller.ImportFile(ctx, arg)
	case "show":
		s.show(ctx)
	case "add":
		_ = s.controller.AddStudent(ctx)
	case "remove":
		n, err := strconv.Atoi(arg)
		if err != nil {
			s.ui.Printf("usage: remove <number>\n")
			break
		}
		_ = s.controller.RemoveStudent(ctx, n)
	case "pick":
		_, _ = s.controller.PickStudent(ctx)
	case "lucky":
		_, _ = s.controller.RollLuckyNumber(ctx)
	case "delete":
		_ = s.controller.DeleteCurrentClass(ctx)
	default:
		s.ui.Printf("unknown command %q, try help\n", cmd)
	}
	return false
}

func (s *Shell) list(ctx context.Context) {
	names, err := s.rosters.ListRosters(ctx)
	if err != nil {
		s.ui.Printf("%s\n", controller.Describe(err))
		return
	}
	if len(names) == 0 {
		s.ui.Printf("no classes\n")
		return
	}
	for _, name := range names {
		s.ui.Printf("%s\n", name)
	}
}

// show prints the active class as currently stored
func (s *Shell) show(ctx context.Context) {
	sess := s.controller.Session()
	active, err := s.rosters.Refresh(ctx, sess)
	if errors.Is(err, interfaces.ErrNoActiveRoster) {
		s.ui.Printf("%s\n", controller.MsgNoClassSelected)
		return
	}
	if err != nil {
		_ = s.ui.Notify(ctx, controller.TitleError, controller.Describe(err))
		return
	}

	s.ui.Printf("%s (%d students)\n", active.ClassName, active.Len())
	if lucky := sess.LuckyNumber(); lucky != types.NoLuckyNumber {
		s.ui.Printf("lucky number: %d\n", lucky)
	}
	for _, st := range active.Students {
		mark := "-"
		if st.IsPresent {
			mark = "+"
		}
		s.ui.Printf("%3d %s %s", st.StudentNumber, mark, st.Name)
		if st.TimesSinceLastPicked > 0 {
			s.ui.Printf(" (cooldown %d)", st.TimesSinceLastPicked)
		}
		s.ui.Printf("\n")
	}
}
