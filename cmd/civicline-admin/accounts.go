package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"

	"github.com/civicline/civicline-api/internal/adapters/passwordhash"
	"github.com/civicline/civicline-api/internal/data"
	domainauth "github.com/civicline/civicline-api/internal/domain/auth"
	"github.com/civicline/civicline-api/internal/domain/model"
	"github.com/civicline/civicline-api/internal/ports"
	"github.com/civicline/civicline-api/internal/service"
)

// operatorActor is the identity recorded for accounts created from the CLI.
var operatorActor = domainauth.Snapshot{Name: "civicline-admin", Role: domainauth.RoleAdmin}

type createAdminOptions struct {
	Name  string
	Email string
}

func parseCreateAdminFlags(args []string, stderr io.Writer) (createAdminOptions, error) {
	fs := flag.NewFlagSet("create-admin", flag.ContinueOnError)
	fs.SetOutput(stderr)

	var opts createAdminOptions
	fs.StringVar(&opts.Name, "name", "", "Full name of the administrator")
	fs.StringVar(&opts.Email, "email", "", "Login email of the administrator")

	if err := fs.Parse(args); err != nil {
		return createAdminOptions{}, err
	}
	if strings.TrimSpace(opts.Email) == "" {
		return createAdminOptions{}, errors.New("--email is required")
	}
	if strings.TrimSpace(opts.Name) == "" {
		return createAdminOptions{}, errors.New("--name is required")
	}
	return opts, nil
}

func runCreateAdmin(cmdCtx *commandContext, args []string) error {
	opts, err := parseCreateAdminFlags(args, cmdCtx.Stderr)
	if err != nil {
		return err
	}
	password, err := readSecret(cmdCtx.Stdin)
	if err != nil {
		return err
	}

	db, _, err := connectInfraWithOptions(&connectInfraOptions{
		Logger: cmdCtx.Logger,
		Config: &cmdCtx.Config,
		WantDB: true,
	})
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			cmdCtx.Logger.Warn("db close failed", "error", closeErr)
		}
	}()

	return createAdmin(cmdCtx.Ctx, createAdminRequest{
		Accounts: data.NewUserRepo(db),
		Hasher:   passwordhash.New(cmdCtx.Config.Auth.BcryptCost),
		Options:  opts,
		Password: password,
		Out:      cmdCtx.Stdout,
	})
}

type createAdminRequest struct {
	Accounts ports.AccountAdminStore
	Hasher   ports.PasswordHasher
	Options  createAdminOptions
	Password string
	Out      io.Writer
}

func createAdmin(ctx context.Context, req createAdminRequest) error {
	svc, err := service.NewUserAdminService(service.UserAdminServiceOptions{
		Accounts: req.Accounts,
		Hasher:   req.Hasher,
	})
	if err != nil {
		return err
	}
	user, err := svc.CreateStaff(ctx, operatorActor, model.CreateStaffRequest{
		FullName: req.Options.Name,
		Email:    req.Options.Email,
		Password: req.Password,
		Role:     domainauth.RoleAdmin,
	})
	if err != nil {
		return fmt.Errorf("create admin: %w", err)
	}
	return writef(req.Out, "created admin %s (id %d)\n", user.Email, user.ID)
}

func runHashPassword(cmdCtx *commandContext, args []string) error {
	fs := flag.NewFlagSet("hash-password", flag.ContinueOnError)
	fs.SetOutput(cmdCtx.Stderr)
	cost := fs.Int("cost", 12, "bcrypt work factor")
	if err := fs.Parse(args); err != nil {
		return err
	}

	password, err := readSecret(cmdCtx.Stdin)
	if err != nil {
		return err
	}
	if err = model.ValidatePassword("password", password); err != nil {
		return err
	}
	hash, err := passwordhash.New(*cost).Hash(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	return writeln(cmdCtx.Stdout, hash)
}
