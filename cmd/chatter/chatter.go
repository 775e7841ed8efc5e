// Program chatter is a line-oriented terminal client for the chatter relay.
package main

import (
	"bufio"
	"cmp"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"

	"github.com/creachadair/chatter"
	"github.com/creachadair/chatter/channel"
	"github.com/creachadair/command"
	"github.com/creachadair/flax"
	"github.com/creachadair/taskgroup"
)

var flags struct {
	Addr string `flag:"addr,Relay address (host:port)"`
}

func main() {
	flags.Addr = cmp.Or(os.Getenv("SERVER_ADDR"), "127.0.0.1") + ":" + cmp.Or(os.Getenv("PORT"), "8888")

	root := &command.C{
		Name:  filepath.Base(os.Args[0]),
		Usage: "<username> <password>",
		Help: `Connect to a chatter relay and exchange messages.

After logging in, each input line is broadcast to all online users, except
for the commands:

  /list              print the users currently online
  /to <user> <msg>   send a direct message to one user
  /quit              disconnect and exit`,

		SetFlags: command.Flags(flax.MustBind, &flags),
		Run:      runClient,
		Commands: []*command.C{
			command.HelpCommand(nil),
			command.VersionCommand(),
		},
	}
	command.RunOrFail(root.NewEnv(nil), os.Args[1:])
}

func runClient(env *command.Env) error {
	if len(env.Args) != 2 {
		return env.Usagef("missing username and password")
	}
	user, pass := env.Args[0], env.Args[1]

	conn, err := net.Dial("tcp", flags.Addr)
	if err != nil {
		return err
	}
	ch := channel.IO(conn, conn)
	defer ch.Close()

	login := &chatter.Frame{Type: chatter.TypeLogin, Payload: chatter.Login{
		Username: user,
		Password: pass,
	}.Encode()}
	if err := ch.Send(login); err != nil {
		return err
	}
	rsp, err := ch.Recv()
	if err != nil {
		return err
	} else if rsp.Type != chatter.TypeLogin || string(rsp.Payload) == chatter.LoginFailed {
		return errors.New("login failed")
	}
	fmt.Printf("Logged in as %s. Type /list, /to <user> <msg>, /quit, or a message.\n", rsp.Payload)

	// Print inbound frames until the connection closes.
	g := taskgroup.New(nil)
	g.Go(func() error {
		for {
			f, err := ch.Recv()
			if err != nil {
				return nil
			}
			switch f.Type {
			case chatter.TypeBroadcast:
				var msg chatter.Broadcast
				if msg.Decode(f.Payload) == nil {
					fmt.Printf("[all] %s: %s\n", msg.Username, msg.Content)
				}
			case chatter.TypeListOnline:
				fmt.Printf("online: %s\n", f.Payload)
			case chatter.TypeDirect:
				var msg chatter.Direct
				if msg.Decode(f.Payload) == nil {
					fmt.Printf("[msg] %s: %s\n", msg.From, msg.Content)
				}
			}
		}
	})

	sc := bufio.NewScanner(os.Stdin)
input:
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		var f *chatter.Frame
		switch {
		case line == "":
			continue
		case line == "/quit":
			break input
		case line == "/list":
			f = &chatter.Frame{Type: chatter.TypeListOnline, Payload: chatter.ListRequest{
				Username: user,
			}.Encode()}
		case strings.HasPrefix(line, "/to "):
			to, content, ok := strings.Cut(strings.TrimPrefix(line, "/to "), " ")
			if !ok {
				fmt.Println("usage: /to <user> <message>")
				continue
			}
			f = &chatter.Frame{Type: chatter.TypeDirect, Payload: chatter.Direct{
				From:    user,
				To:      to,
				Content: content,
			}.Encode()}
		default:
			f = &chatter.Frame{Type: chatter.TypeBroadcast, Payload: chatter.Broadcast{
				Username: user,
				Content:  line,
			}.Encode()}
		}
		if err := ch.Send(f); err != nil {
			break
		}
	}
	ch.Close()
	g.Wait()
	return sc.Err()
}
