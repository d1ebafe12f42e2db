package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"

	"github.com/dmitrijs2005/gophaccounts/internal/client/config"
	"github.com/dmitrijs2005/gophaccounts/internal/client/rpcclient"
)

type App struct {
	config    *config.Config
	client    rpcclient.Client
	reader    *bufio.Reader
	out       io.Writer
	loginCode string
}

func NewApp(c *config.Config) (*App, error) {
	if c.ServerURL == "" {
		return nil, fmt.Errorf("server url is empty")
	}
	return &App{
		config: c,
		client: rpcclient.NewJSONRPCClient(c.ServerURL, c.RequestTimeout),
		reader: bufio.NewReader(os.Stdin),
		out:    os.Stdout,
	}, nil
}

func (a *App) isLoggedIn() bool {
	return a.client.APIKey() != ""
}

func (a *App) getStatus() string {
	if a.loginCode == "" {
		return ""
	}
	return fmt.Sprintf("(%s)", a.loginCode)
}

// Run blocks in the REPL until the user exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	defer a.client.Close()

	fmt.Fprintf(a.out, "gophaccounts CLI, server %s (type 'help' for commands)\n", a.config.ServerURL)
	runREPL(ctx, a, a.getStatus, a.reader)
}
