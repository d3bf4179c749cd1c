package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/Lixing-Zhang/tailortech/internal/config"
	"github.com/Lixing-Zhang/tailortech/internal/models"
	"github.com/Lixing-Zhang/tailortech/internal/session"
	"github.com/Lixing-Zhang/tailortech/internal/tailorapi"
	"github.com/Lixing-Zhang/tailortech/internal/workflow"
	"github.com/Lixing-Zhang/tailortech/pkg/logger"
)

const usage = `usage: tailorctl [-config dir] <command> [flags]

commands:
  login      sign in and print the profile
  tailors    search tailors (-q text, -speciality category)
  coupons    list owned coupons and the promo catalog
  request    order a custom garment (-tailor id, -category, -desc, -m name=value ...)
  checkout   buy the products in the cart (-products 1,2, -coupon code)
  status     list requests and orders (-watch to keep polling)
  topup      add funds to the balance (-amount)
`

// app carries what every command needs
type app struct {
	cfg     *config.ClientConfig
	log     *zap.Logger
	api     *tailorapi.Client
	session *session.Store
	out     io.Writer
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	global := flag.NewFlagSet("tailorctl", flag.ContinueOnError)
	global.SetOutput(stderr)
	global.Usage = func() { fmt.Fprint(stderr, usage) }
	configPath := global.String("config", ".", "directory holding tailorctl.yaml, or a yaml file")
	if err := global.Parse(args); err != nil {
		return 2
	}
	if global.NArg() == 0 {
		global.Usage()
		return 2
	}

	cfg, err := config.LoadClient(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 1
	}

	log := logger.New(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	api := tailorapi.New(cfg.APIURL,
		tailorapi.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
		tailorapi.WithLogger(log.Named("api")),
	)
	a := &app{
		cfg:     cfg,
		log:     log,
		api:     api,
		session: session.NewStore(api, log.Named("session")),
		out:     stdout,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands := map[string]func(context.Context, []string) error{
		"login":    a.login,
		"tailors":  a.tailors,
		"coupons":  a.coupons,
		"request":  a.request,
		"checkout": a.checkout,
		"status":   a.status,
		"topup":    a.topUp,
	}

	name, rest := global.Arg(0), global.Args()[1:]
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(stderr, "unknown command %q\n\n%s", name, usage)
		return 2
	}

	if err := cmd(ctx, rest); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintln(stderr, describe(err))
		return 1
	}
	return 0
}

// describe turns an error into the line shown to the user
func describe(err error) string {
	if errors.Is(err, context.Canceled) {
		return "interrupted"
	}
	var f *workflow.Failure
	if errors.As(err, &f) {
		return fmt.Sprintf("%s: %s", f.Kind, f.Message)
	}
	if tailorapi.IsUnauthorized(err) {
		return "not signed in: check email and password in tailorctl.yaml or TAILORCTL_EMAIL / TAILORCTL_PASSWORD"
	}
	return err.Error()
}

func (a *app) role() models.Role {
	if a.cfg.Role == "tailor" {
		return models.RoleTailor
	}
	return models.RoleUser
}

// signIn logs in with the configured credentials
func (a *app) signIn(ctx context.Context) (session.Identity, error) {
	if a.cfg.Email == "" || a.cfg.Password == "" {
		return nil, errors.New("email and password must be configured")
	}
	return a.session.Login(ctx, a.role(), a.cfg.Email, a.cfg.Password)
}

// signInClient logs in and requires a client identity
func (a *app) signInClient(ctx context.Context) (session.Client, error) {
	if _, err := a.signIn(ctx); err != nil {
		return session.Client{}, err
	}
	return a.session.Client()
}
