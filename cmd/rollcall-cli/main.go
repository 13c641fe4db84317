package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"rollcall/internal/app"
	"rollcall/internal/config"
	"rollcall/internal/controller"
	"rollcall/internal/picker"
	"rollcall/internal/roster"
	"rollcall/internal/session"
	"rollcall/internal/terminal"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.LoadConfigWithPrecedence(".env", "")
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	store, err := app.OpenStorage(cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Printf("Storage shutdown error: %v", err)
		}
	}()

	// Ctrl-C ends the shell instead of killing the process mid-write
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rosters := roster.NewManager(store, picker.New())
	ui := terminal.NewUI(os.Stdin, os.Stdout)
	c := controller.New(rosters, session.New(), ui)

	return terminal.NewShell(ui, c, rosters).Run(ctx)
}
