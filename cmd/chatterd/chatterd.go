// Program chatterd runs the chatter relay server on a TCP listener.
package main

import (
	"cmp"
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/creachadair/chatter"
	"github.com/creachadair/chatter/server"
	"github.com/creachadair/chatter/userdb"
	"github.com/creachadair/command"
	"github.com/creachadair/flax"
)

var flags struct {
	Addr  string        `flag:"addr,Listen address (host:port)"`
	Users string        `flag:"users,Additional accounts as comma-separated user:pass pairs"`
	Idle  time.Duration `flag:"idle-timeout,Disconnect clients idle longer than this (0 disables)"`
	Queue int           `flag:"queue,Outbound delivery queue capacity per session"`
	Debug bool          `flag:"debug,Log each frame exchanged with a client"`
}

func main() {
	flags.Addr = "127.0.0.1:" + cmp.Or(os.Getenv("PORT"), "8888")
	flags.Queue = 32

	root := &command.C{
		Name: filepath.Base(os.Args[0]),
		Help: `Run the chatter relay server.

Clients connect over TCP, log in with a username and password, and exchange
broadcast and direct messages relayed through this process. The built-in
demonstration accounts (zhangsan, lisi, wangwu; password "123") are always
available; use --users to add more. Nothing is persisted across restarts.`,

		SetFlags: command.Flags(flax.MustBind, &flags),
		Run:      runServer,
		Commands: []*command.C{
			command.HelpCommand(nil),
			command.VersionCommand(),
		},
	}
	command.RunOrFail(root.NewEnv(nil), os.Args[1:])
}

func runServer(env *command.Env) error {
	users := userdb.Demo()
	if flags.Users != "" {
		extra, err := userdb.Parse(flags.Users)
		if err != nil {
			return err
		}
		for name, pass := range extra {
			users[name] = pass
		}
	}

	lst, err := net.Listen("tcp", flags.Addr)
	if err != nil {
		return err
	}
	log.Printf("Relay listening at %v", lst.Addr())

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	dir := chatter.NewDirectory()
	err = server.Loop(ctx, server.NetAccepter(lst, flags.Idle), func() *chatter.Session {
		s := chatter.NewSession(dir, users).QueueSize(flags.Queue).Logf(log.Printf)
		s.OnExit(func(err error) {
			switch user := s.User(); {
			case err != nil:
				log.Printf("Session for %q failed: %v", user, err)
			case user != "":
				log.Printf("User %q disconnected", user)
			default:
				log.Printf("Anonymous client disconnected")
			}
		})
		if flags.Debug {
			s.LogFrames(func(f chatter.FrameInfo) { log.Print(f) })
		}
		return s
	})
	if err != nil {
		return err
	}
	log.Print("Relay stopped")
	return nil
}
