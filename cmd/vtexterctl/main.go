package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/matheus3301/vtexter/internal/client"
	"github.com/matheus3301/vtexter/internal/lock"
	"github.com/matheus3301/vtexter/internal/session"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type cli struct {
	c       *client.Client
	session string
	json    bool
}

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Usage = printUsage
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	c, err := client.New(session.SocketPath(sessionName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot connect to daemon for session %q: %v\n", sessionName, err)
		os.Exit(1)
	}
	defer func() { _ = c.Close() }()
	app := &cli{c: c, session: sessionName, json: *jsonFlag}

	// Watches run until interrupted; everything else gets a deadline.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if args[0] != "watch" {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
	}

	if err := app.run(ctx, args[0], args[1:]); err != nil {
		app.fail(err)
	}
}

func (a *cli) run(ctx context.Context, cmd string, args []string) error {
	switch cmd {
	case "status":
		return a.status(ctx)
	case "signin":
		return a.signIn(ctx, args)
	case "signout":
		return a.c.SignOut(ctx)
	case "chats":
		return a.chats(ctx, args)
	case "open":
		return a.open(ctx, args)
	case "messages":
		return a.messages(ctx, args)
	case "send":
		return a.send(ctx, args)
	case "send-file":
		return a.sendFile(ctx, args)
	case "read":
		if len(args) != 1 {
			return usageError("read <chatId>")
		}
		return a.c.MarkRead(ctx, args[0])
	case "delete":
		if len(args) != 1 {
			return usageError("delete <messageId>")
		}
		return a.c.DeleteMessage(ctx, args[0])
	case "clear":
		return a.clear(ctx, args)
	case "pin", "archive", "mute":
		return a.setFlag(ctx, cmd, args)
	case "contacts":
		return a.contacts(ctx, args)
	case "storage":
		return a.storage(ctx, args)
	case "profile":
		return a.profile(ctx, args)
	case "watch":
		return a.watch(ctx, args)
	default:
		printUsage()
		return fmt.Errorf("unknown command: %s", cmd)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: vtexterctl [--session <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                                Show session status")
	fmt.Fprintln(os.Stderr, "  signin <userId> <name> [email]        Sign in")
	fmt.Fprintln(os.Stderr, "  signout                               Sign out")
	fmt.Fprintln(os.Stderr, "  chats [--archived]                    List chats")
	fmt.Fprintln(os.Stderr, "  open <userId> [name]                  Open or create a chat")
	fmt.Fprintln(os.Stderr, "  messages <chatId>                     List messages")
	fmt.Fprintln(os.Stderr, "  send <chatId> <text>                  Send a text message")
	fmt.Fprintln(os.Stderr, "  send-file <chatId> <kind> <path>      Send image|video|document|audio")
	fmt.Fprintln(os.Stderr, "  read <chatId>                         Mark a chat as read")
	fmt.Fprintln(os.Stderr, "  delete <messageId>                    Delete a message")
	fmt.Fprintln(os.Stderr, "  clear <chatId>                        Clear a chat")
	fmt.Fprintln(os.Stderr, "  pin|archive|mute <chatId> <on|off>    Set a chat flag")
	fmt.Fprintln(os.Stderr, "  contacts [query]                      List or search contacts")
	fmt.Fprintln(os.Stderr, "  storage [clear]                       Show or clear media storage")
	fmt.Fprintln(os.Stderr, "  profile [qr|picture <path>]           Show or change the profile")
	fmt.Fprintln(os.Stderr, "  watch chats|messages <chatId>         Follow live updates")
}

type usageError string

func (u usageError) Error() string { return "usage: vtexterctl " + string(u) }

// fail prints err and exits. An unreachable daemon is reported with the
// lock holder when there is one.
func (a *cli) fail(err error) {
	if status.Code(err) == codes.Unavailable {
		if pid, held := lock.Holder(session.Dir(a.session)); held {
			fmt.Fprintf(os.Stderr, "error: daemon for session %q (pid %d) is not responding\n", a.session, pid)
		} else {
			fmt.Fprintf(os.Stderr, "error: daemon for session %q is not running; start it with vtexterd --session %s\n", a.session, a.session)
		}
		os.Exit(1)
	}
	var u usageError
	if errors.As(err, &u) {
		fmt.Fprintln(os.Stderr, u.Error())
		os.Exit(2)
	}
	if st, ok := status.FromError(err); ok {
		fmt.Fprintf(os.Stderr, "error: %s\n", st.Message())
	} else {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(1)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
