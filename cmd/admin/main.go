// Command admin drives the game server's admin endpoints from a shell.
//
//	admin [-env file] <command> [args]
//
// Commands: players, online, ban <user>, unban <user>, unlock <user>,
// gold <user> <amount>, grant <user> <item_id> <qty>, auctions,
// unlist <auction_id>, announcements, announce <msg>, unannounce <index>,
// clear-announcements, logs, battles, sold, bids, archive.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"github.com/DoyleJ11/arena-client/internal/api"
	"github.com/DoyleJ11/arena-client/internal/archive"
	"github.com/DoyleJ11/arena-client/internal/cache"
	"github.com/DoyleJ11/arena-client/internal/config"
	"github.com/DoyleJ11/arena-client/internal/gateway"
	"github.com/DoyleJ11/arena-client/internal/i18n"
	"github.com/DoyleJ11/arena-client/internal/logging"
	"github.com/DoyleJ11/arena-client/internal/reconcile"
	"github.com/DoyleJ11/arena-client/internal/session"
	"github.com/DoyleJ11/arena-client/internal/views"
)

var errUsage = errors.New("usage: admin [-env file] <command> [args]")

func main() {
	envFile := flag.String("env", "", "env file to load before the environment")
	flag.Parse()

	var files []string
	if *envFile != "" {
		files = append(files, *envFile)
	}
	cfg, err := config.Load(files...)
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(cfg.LogLevel, "console")
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger, flag.Args()); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(2)
		}
		logger.Error("admin command failed", zap.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.Config, logger *zap.Logger, args []string) error {
	if len(args) == 0 {
		return errUsage
	}
	if cfg.AdminPassword == "" {
		return errors.New("ADMIN_PASSWORD is required")
	}

	msgs := i18n.New(cfg.Locale)
	client := api.New(
		gateway.New(cfg.APIBase, gateway.WithLogger(logger), gateway.WithPrinter(msgs)),
		session.NewStore(), session.NewStore(), logger,
	)
	store := cache.New()
	env := views.NewEnv(views.Deps{
		API:   client,
		Cache: store,
		Rec:   reconcile.New(ctx, store, logger),
		Msgs:  msgs,
		Log:   logger,
	})
	admin := views.NewAdminView(env)

	if err := admin.Login(ctx, cfg.AdminPassword); err != nil {
		return fmt.Errorf("admin login: %s", admin.Render().Message.Text)
	}
	defer admin.Logout()

	cmd, rest := args[0], args[1:]
	arg := func() (string, error) {
		if len(rest) == 0 {
			return "", fmt.Errorf("%w: %s needs an argument", errUsage, cmd)
		}
		return strings.Join(rest, " "), nil
	}

	fields := func(n int) ([]string, error) {
		if len(rest) != n {
			return nil, fmt.Errorf("%w: %s needs %d arguments", errUsage, cmd, n)
		}
		return rest, nil
	}
	number := func(raw string) (int64, error) {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q is not a number", errUsage, raw)
		}
		return n, nil
	}

	var err error
	switch cmd {
	case "players":
		if err = admin.LoadPlayers(ctx); err == nil {
			return printJSON(admin.Render().Players)
		}
	case "ban", "unban", "unlock":
		var user string
		if user, err = arg(); err != nil {
			return err
		}
		switch cmd {
		case "ban":
			err = admin.Ban(ctx, user)
		case "unban":
			err = admin.Unban(ctx, user)
		default:
			err = admin.Unlock(ctx, user)
		}
	case "online":
		if err = admin.LoadOnline(ctx); err == nil {
			return printJSON(admin.Render().Online)
		}
	case "gold":
		f, ferr := fields(2)
		if ferr != nil {
			return ferr
		}
		amount, nerr := number(f[1])
		if nerr != nil {
			return nerr
		}
		after, gerr := admin.GrantGold(ctx, f[0], amount)
		if gerr == nil {
			return printJSON(map[string]any{"username": f[0], "gold_after": after})
		}
		err = gerr
	case "grant":
		f, ferr := fields(3)
		if ferr != nil {
			return ferr
		}
		qty, nerr := number(f[2])
		if nerr != nil {
			return nerr
		}
		after, gerr := admin.GrantItem(ctx, f[0], f[1], qty)
		if gerr == nil {
			return printJSON(map[string]any{"username": f[0], "item_id": f[1], "new_qty": after})
		}
		err = gerr
	case "auctions":
		if err = admin.LoadAuctions(ctx); err == nil {
			return printJSON(admin.Render().Auctions)
		}
	case "unlist":
		f, ferr := fields(1)
		if ferr != nil {
			return ferr
		}
		id, nerr := number(f[0])
		if nerr != nil {
			return nerr
		}
		err = admin.DeleteAuction(ctx, id)
	case "announcements":
		if err = admin.LoadAnnouncements(ctx); err == nil {
			return printJSON(admin.Render().Announcements)
		}
	case "announce":
		var msg string
		if msg, err = arg(); err != nil {
			return err
		}
		err = admin.Announce(ctx, msg)
	case "unannounce":
		var raw string
		if raw, err = arg(); err != nil {
			return err
		}
		idx, convErr := strconv.Atoi(raw)
		if convErr != nil {
			return fmt.Errorf("%w: index must be a number", errUsage)
		}
		err = admin.DeleteAnnouncement(ctx, idx)
	case "clear-announcements":
		err = admin.ClearAnnouncements(ctx)
	case views.StreamActions, views.StreamBattles, views.StreamSold, views.StreamBids:
		recs, lerr := admin.Logs(ctx, cmd)
		if lerr == nil {
			return printJSON(recs)
		}
		err = lerr
	case "archive":
		return runArchive(ctx, cfg, client, logger)
	default:
		return fmt.Errorf("%w: unknown command %q", errUsage, cmd)
	}
	if err != nil {
		return fmt.Errorf("%s: %s", cmd, admin.Render().Message.Text)
	}
	logger.Info("done", zap.String("command", cmd))
	return nil
}

func runArchive(ctx context.Context, cfg config.Config, src archive.Source, logger *zap.Logger) error {
	if cfg.ArchiveDSN == "" {
		return errors.New("ARCHIVE_DSN is required for archive")
	}
	db, err := archive.Open(cfg.ArchiveDSN, logger)
	if err != nil {
		return err
	}
	a := archive.New(db, src, logger)
	if err := a.Migrate(ctx); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	stats, err := a.Run(ctx)
	if err != nil {
		return err
	}
	return printJSON(stats)
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
