package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/and161185/medrec/internal/errs"
	"github.com/and161185/medrec/internal/model"
	"github.com/and161185/medrec/internal/service"
)

type command func(ctx context.Context, svc service.AuthService, args []string, out io.Writer) error

type usageError string

func (e usageError) Error() string { return string(e) }

var commands = map[string]command{
	"register":   cmdRegister,
	"login":      cmdLogin,
	"logout":     cmdLogout,
	"whoami":     cmdWhoami,
	"add-record": cmdAddRecord,
	"records":    cmdRecords,
	"users":      cmdUsers,
	"approve":    statusCmd("approve", service.AuthService.ApproveUser),
	"activate":   statusCmd("activate", service.AuthService.ActivateUser),
	"deactivate": statusCmd("deactivate", service.AuthService.DeactivateUser),
	"delete":     statusCmd("delete", service.AuthService.DeleteUser),
	"verify":     cmdVerify,
	"resend":     emailCmd("resend", service.AuthService.ResendVerificationEmail),
	"forgot":     emailCmd("forgot", service.AuthService.ForgotPassword),
	"reset":      cmdReset,
	"outbox":     cmdOutbox,
}

func newFlags(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	return fs
}

func parseRole(s string) (model.Role, error) {
	r, ok := model.ParseRole(s)
	if !ok {
		return "", usageError(fmt.Sprintf("unknown role %q", s))
	}
	return r, nil
}

func readAll(p string) ([]byte, error) {
	if p == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(p)
}

func cmdRegister(ctx context.Context, svc service.AuthService, args []string, out io.Writer) error {
	fs := newFlags("register")
	name := fs.String("name", "", "display name")
	email := fs.String("email", "", "email")
	pw := fs.String("password", "", "password")
	role := fs.String("role", "", "admin, patient, doctor or lab")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	if *name == "" || *email == "" || *pw == "" || *role == "" {
		return usageError("need -name, -email, -password and -role")
	}
	r, err := parseRole(*role)
	if err != nil {
		return err
	}
	p, err := svc.Register(ctx, *name, *email, *pw, r)
	if err != nil {
		return err
	}
	printJSON(out, p)
	return nil
}

func cmdLogin(ctx context.Context, svc service.AuthService, args []string, out io.Writer) error {
	fs := newFlags("login")
	email := fs.String("email", "", "email")
	pw := fs.String("password", "", "password")
	role := fs.String("role", "", "role to sign in as")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	if *email == "" || *pw == "" || *role == "" {
		return usageError("need -email, -password and -role")
	}
	r, err := parseRole(*role)
	if err != nil {
		return err
	}
	p, err := svc.Login(ctx, *email, *pw, r)
	if err != nil {
		return err
	}
	printJSON(out, p)
	return nil
}

func cmdLogout(ctx context.Context, svc service.AuthService, _ []string, out io.Writer) error {
	if err := svc.Logout(ctx); err != nil {
		return err
	}
	fmt.Fprintln(out, "ok")
	return nil
}

func cmdWhoami(_ context.Context, svc service.AuthService, _ []string, out io.Writer) error {
	st := svc.State()
	printJSON(out, struct {
		Authenticated bool           `json:"authenticated"`
		User          *model.Profile `json:"user,omitempty"`
		Records       int            `json:"records"`
	}{st.IsAuthenticated, st.User, len(st.Records)})
	return nil
}

func cmdAddRecord(ctx context.Context, svc service.AuthService, args []string, out io.Writer) error {
	fs := newFlags("add-record")
	raw := fs.String("json", "", "record fields as a JSON object")
	path := fs.String("file", "", "read the JSON object from a file, - for stdin")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	var data []byte
	switch {
	case *raw != "":
		data = []byte(*raw)
	case *path != "":
		b, err := readAll(*path)
		if err != nil {
			return err
		}
		data = b
	default:
		return usageError("need -json or -file")
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return usageError(fmt.Sprintf("record must be a JSON object: %v", err))
	}
	rec, err := svc.AddRecord(ctx, fields)
	if err != nil {
		return err
	}
	if rec == nil {
		return fmt.Errorf("not signed in")
	}
	printJSON(out, rec)
	return nil
}

func cmdRecords(_ context.Context, svc service.AuthService, _ []string, out io.Writer) error {
	recs := svc.State().Records
	if recs == nil {
		recs = []model.Record{}
	}
	printJSON(out, recs)
	return nil
}

func cmdUsers(ctx context.Context, svc service.AuthService, _ []string, out io.Writer) error {
	users, err := svc.GetAllUsers(ctx)
	if err != nil {
		return err
	}
	printJSON(out, users)
	return nil
}

// statusCmd wraps the admin operations that take a user id.
func statusCmd(name string, op func(service.AuthService, context.Context, string) error) command {
	return func(ctx context.Context, svc service.AuthService, args []string, out io.Writer) error {
		fs := newFlags(name)
		id := fs.String("id", "", "user id")
		if err := fs.Parse(args); err != nil {
			return usageError(err.Error())
		}
		if *id == "" {
			return usageError("need -id")
		}
		if err := op(svc, ctx, *id); err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")
		return nil
	}
}

// emailCmd wraps the operations that take an email.
func emailCmd(name string, op func(service.AuthService, context.Context, string) error) command {
	return func(ctx context.Context, svc service.AuthService, args []string, out io.Writer) error {
		fs := newFlags(name)
		email := fs.String("email", "", "email")
		if err := fs.Parse(args); err != nil {
			return usageError(err.Error())
		}
		if *email == "" {
			return usageError("need -email")
		}
		if err := op(svc, ctx, *email); err != nil {
			return err
		}
		fmt.Fprintln(out, "ok")
		return nil
	}
}

func cmdVerify(ctx context.Context, svc service.AuthService, args []string, out io.Writer) error {
	fs := newFlags("verify")
	tok := fs.String("token", "", "verification token")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	ok, err := svc.VerifyEmail(ctx, *tok)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrInvalidOrExpiredToken
	}
	printJSON(out, map[string]bool{"verified": ok})
	return nil
}

func cmdReset(ctx context.Context, svc service.AuthService, args []string, out io.Writer) error {
	fs := newFlags("reset")
	tok := fs.String("token", "", "reset token")
	pw := fs.String("password", "", "new password")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	if *pw == "" {
		return usageError("need -password")
	}
	ok, err := svc.ResetPassword(ctx, *tok, *pw)
	if err != nil {
		return err
	}
	if !ok {
		return errs.ErrInvalidOrExpiredToken
	}
	printJSON(out, map[string]bool{"reset": ok})
	return nil
}

func cmdOutbox(ctx context.Context, svc service.AuthService, args []string, out io.Writer) error {
	fs := newFlags("outbox")
	email := fs.String("email", "", "recipient")
	if err := fs.Parse(args); err != nil {
		return usageError(err.Error())
	}
	if *email == "" {
		return usageError("need -email")
	}
	mails, err := svc.Outbox(ctx, *email)
	if err != nil {
		return err
	}
	printJSON(out, mails)
	return nil
}
