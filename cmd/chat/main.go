// Command chat is a terminal client for the likechat relay.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/go-monolith/mono/pkg/types"
	"golang.org/x/sync/errgroup"

	"github.com/example/likechat/config"
	"github.com/example/likechat/domain/chat"
	"github.com/example/likechat/modules/client"
	"github.com/example/likechat/modules/store"
)

var (
	errQuit        = errors.New("quit")
	errRelayClosed = errors.New("relay closed the connection")
)

func main() {
	cfg := config.Load().Client

	flag.StringVar(&cfg.RelayURL, "relay", cfg.RelayURL, "relay WebSocket URL")
	flag.StringVar(&cfg.Username, "user", cfg.Username, "display name")
	flag.StringVar(&cfg.Store, "store", cfg.Store, "local storage backend: sqlite or redis")
	flag.StringVar(&cfg.SQLitePath, "sqlite", cfg.SQLitePath, "SQLite database file")
	flag.StringVar(&cfg.RedisAddr, "redis", cfg.RedisAddr, "Redis address host:port")
	flag.StringVar(&cfg.InviteBase, "invite-base", cfg.InviteBase, "base URL for invite links")
	invite := flag.String("invite", "", "invite link to join on start")
	verbose := flag.Bool("v", false, "debug logging")
	flag.Parse()

	level := slog.LevelWarn
	if *verbose {
		level = slog.LevelDebug
	}
	logger := newLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	if err := run(cfg, *invite, logger); err != nil {
		log.Fatalf("chat: %v", err)
	}
}

func openStorage(cfg config.ClientConfig) (store.Storage, error) {
	switch cfg.Store {
	case "sqlite", "":
		return store.NewSQLiteStorage(cfg.SQLitePath)
	case "redis":
		return store.NewRedisStorage(cfg.RedisAddr), nil
	default:
		return nil, fmt.Errorf("unknown store %q", cfg.Store)
	}
}

func run(cfg config.ClientConfig, invite string, logger types.Logger) error {
	room := chat.DefaultRoom
	if invite != "" {
		r, err := client.ParseInvite(invite)
		if err != nil {
			return err
		}
		room = r
	}

	storage, err := openStorage(cfg)
	if err != nil {
		return err
	}
	defer storage.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := client.Dial(ctx, cfg.RelayURL, cfg.Username, logger)
	if err != nil {
		return err
	}
	defer conn.Close()

	sess, err := client.NewSession(store.NewSessionStore(storage, cfg.Username, logger), conn, logger)
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		err := conn.Listen(gctx, func(env chat.Envelope) {
			changed, err := sess.Handle(gctx, env)
			if err != nil {
				logger.Warn("Failed to apply event", "event", env.Event, "error", err)
				return
			}
			if changed {
				printEvent(env)
			}
		})
		if err != nil {
			return err
		}
		if gctx.Err() == nil {
			return errRelayClosed
		}
		return nil
	})

	g.Go(func() error {
		if err := joinRoom(gctx, sess, room); err != nil {
			return err
		}
		return repl(gctx, sess, cfg.InviteBase, os.Stdin)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errQuit) {
		return err
	}
	return nil
}

func repl(ctx context.Context, sess *client.Session, inviteBase string, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case line, ok := <-lines:
			if !ok {
				return errQuit
			}
			if err := execute(ctx, sess, inviteBase, line); err != nil {
				if errors.Is(err, errQuit) {
					return err
				}
				if client.IsRoomError(err) || errors.Is(err, store.ErrMessageNotFound) ||
					errors.Is(err, client.ErrEmptyMessage) || errors.Is(err, client.ErrNoInviteRoom) {
					fmt.Printf("! %v\n", err)
					continue
				}
				return err
			}
		}
	}
}

func execute(ctx context.Context, sess *client.Session, inviteBase, line string) error {
	line = strings.TrimSpace(line)
	if line == "" {
		return nil
	}
	if !strings.HasPrefix(line, "/") {
		_, err := sess.Send(ctx, line)
		return err
	}

	fields := strings.Fields(line)
	cmd, args := fields[0], fields[1:]
	switch cmd {
	case "/join":
		if len(args) != 1 {
			return usage("/join <room>")
		}
		return joinRoom(ctx, sess, args[0])

	case "/leave":
		return sess.Leave()

	case "/rooms":
		rooms, err := sess.Rooms(ctx)
		if err != nil {
			return err
		}
		for _, r := range rooms {
			marker := " "
			if r == sess.Room() {
				marker = "*"
			}
			fmt.Printf("%s %s\n", marker, r)
		}

	case "/rename":
		if len(args) != 2 {
			return usage("/rename <old> <new>")
		}
		if err := sess.Rename(ctx, args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("renamed %s to %s\n", args[0], args[1])

	case "/delete":
		if len(args) != 1 {
			return usage("/delete <room>")
		}
		if err := sess.Delete(ctx, args[0]); err != nil {
			return err
		}
		fmt.Printf("deleted %s\n", args[0])

	case "/like":
		if len(args) != 1 {
			return usage("/like <id>")
		}
		toggle, err := sess.ToggleLike(ctx, args[0])
		if err != nil {
			return err
		}
		verb := "liked"
		if toggle.Delta < 0 {
			verb = "unliked"
		}
		fmt.Printf("%s %s\n", verb, toggle.ID)

	case "/history":
		for _, m := range sess.Messages() {
			printMessage(m)
		}

	case "/invite":
		link, err := sess.Invite(inviteBase)
		if err != nil {
			return err
		}
		fmt.Println(link)

	case "/quit":
		return errQuit

	default:
		fmt.Printf("! unknown command %s\n", cmd)
	}
	return nil
}

func joinRoom(ctx context.Context, sess *client.Session, room string) error {
	messages, err := sess.Join(ctx, room)
	if err != nil {
		return err
	}
	fmt.Printf("-- joined %s (%d stored messages)\n", sess.Room(), len(messages))
	for _, m := range messages {
		printMessage(m)
	}
	return nil
}

func printEvent(env chat.Envelope) {
	switch env.Event {
	case chat.EventChatMessage:
		var m chat.Message
		if env.Decode(&m) == nil {
			printMessage(m)
		}
	case chat.EventToggleLike:
		var l chat.LikeToggle
		if env.Decode(&l) == nil && l.Likes != nil {
			fmt.Printf("-- %s now has %d likes\n", l.ID, *l.Likes)
		}
	}
}

func printMessage(m chat.Message) {
	fmt.Printf("[%s] %s: %s (%d likes) #%s\n", m.Timestamp, m.Username, m.Message, m.Likes, m.ID)
}

func usage(s string) error {
	fmt.Printf("usage: %s\n", s)
	return nil
}
