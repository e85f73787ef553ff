package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
)

const replHelp = `commands:
  login <email> <password>   authenticate and open the dashboard
  go <path>                  navigate (e.g. go #/admin/companies)
  link <href>                follow a marked navigation link
  back                       history back
  retry                      retry the last failed view
  show                       print the mounted view
  state                      print the shell state
  sync                       reconcile companies and refresh plans
  focus                      trigger a reconciliation pass
  logout                     clear the session and reboot
  quit                       exit`

// runREPL reads one command per line from in until EOF, quit or ctx is done.
// The reconciler runs in the background for the whole session.
func runREPL(ctx context.Context, e *env, in io.Reader, out io.Writer) error {
	if _, err := e.waitForAPI(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		_ = e.reconciler.Run(ctx, e.cfg.SyncInterval)
	}()

	if err := e.app.Init(ctx, ""); err != nil {
		e.logger.Warn("init", zap.Error(err))
	}
	printView(out, e)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "agendai> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if ctx.Err() != nil {
			return nil
		}

		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}
		quit, err := replCommand(ctx, e, out, fields[0], fields[1:])
		if err != nil {
			fmt.Fprintf(out, "erro: %v\n", err)
		}
		if quit {
			return nil
		}
	}
}

func replCommand(ctx context.Context, e *env, out io.Writer, name string, args []string) (quit bool, err error) {
	switch name {
	case "quit", "exit":
		return true, nil
	case "help":
		fmt.Fprintln(out, replHelp)
	case "login":
		if len(args) != 2 {
			return false, fmt.Errorf("uso: login <email> <password>")
		}
		if err := e.app.Login(ctx, args[0], args[1]); err != nil {
			return false, err
		}
		printView(out, e)
	case "go", "link":
		if len(args) != 1 {
			return false, fmt.Errorf("uso: %s <path>", name)
		}
		var navErr error
		if name == "go" {
			navErr = e.app.Navigate(ctx, args[0])
		} else {
			_, navErr = e.app.FollowLink(ctx, args[0], true)
		}
		printView(out, e)
		return false, navErr
	case "back":
		moved, err := e.app.PopState(ctx)
		if !moved && err == nil {
			fmt.Fprintln(out, "sem histórico")
			return false, nil
		}
		printView(out, e)
		return false, err
	case "retry":
		err := e.app.Document().Retry(ctx)
		printView(out, e)
		return false, err
	case "show":
		printView(out, e)
	case "state":
		st := e.app.State()
		fmt.Fprintf(out, "authenticated=%t userType=%s user=%s view=%s path=%s history=%v\n",
			st.IsAuthenticated, st.UserType, st.UserData.Email, st.CurrentView, st.CurrentPath, e.app.History())
	case "sync":
		return false, runSync(ctx, e, out)
	case "focus":
		e.reconciler.Trigger()
		fmt.Fprintln(out, "reconciliação agendada")
	case "logout":
		if err := e.app.Logout(ctx); err != nil {
			return false, err
		}
		printView(out, e)
	default:
		return false, fmt.Errorf("comando desconhecido %q (digite help)", name)
	}
	return false, nil
}
