package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/dmitrijs2005/gophaccounts/internal/client/rpcclient"
	"github.com/dmitrijs2005/gophaccounts/internal/envelope"
	"github.com/fatih/color"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	errColor  = color.New(color.FgRed, color.Bold)
	dimColor  = color.New(color.Faint)
	nameColor = color.New(color.FgCyan)
)

// printEnvelope writes the status line followed by the extra fields in
// key order. The logins list gets one line per login.
func printEnvelope(w io.Writer, env *envelope.Response) {
	c := errColor
	if env.IsOK() {
		c = okColor
	}
	c.Fprintf(w, "[%s] ", env.Code)
	fmt.Fprintln(w, env.Message)

	for _, k := range env.Keys() {
		v, _ := env.Get(k)
		if k == "logins" {
			printLogins(w, v)
			continue
		}
		dimColor.Fprintf(w, "  %s: ", k)
		fmt.Fprintf(w, "%v\n", v)
	}
}

func printLogins(w io.Writer, v any) {
	list, _ := v.([]any)
	if len(list) == 0 {
		dimColor.Fprintln(w, "  (no logins)")
		return
	}
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		fmt.Fprint(w, "  - ")
		nameColor.Fprint(w, m["login_code"])
		fmt.Fprintf(w, " uid=%v admin_level=%v\n", m["uid"], m["admin_level"])
	}
}

func printError(w io.Writer, err error) {
	var rpcErr *rpcclient.RPCError
	switch {
	case errors.Is(err, rpcclient.ErrUnavailable):
		errColor.Fprintln(w, "server unavailable, try again later")
	case errors.As(err, &rpcErr):
		errColor.Fprintf(w, "request rejected: %s\n", rpcErr.Message)
	default:
		errColor.Fprintf(w, "error: %v\n", err)
	}
}
