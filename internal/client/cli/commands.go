package cli

import (
	"context"
	"fmt"
	"strconv"

	"github.com/dmitrijs2005/gophaccounts/internal/client/rpcclient"
	"github.com/dmitrijs2005/gophaccounts/internal/common"
)

func (a *App) Login(ctx context.Context) error {
	loginCode, err := getSimpleText(a.reader, "-Enter login code", a.out)
	if err != nil {
		return err
	}

	password, err := getPassword(a.out, "-Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	env, err := a.client.Login(ctx, loginCode, string(password))
	if err != nil {
		printError(a.out, err)
		return err
	}

	printEnvelope(a.out, env)
	if env.IsOK() {
		a.loginCode = loginCode
	}
	return nil
}

// Create signs up a new login. Before any account exists the server accepts
// it without a key; afterwards the current session must be logged in.
func (a *App) Create(ctx context.Context) error {
	accountCode, err := getSimpleText(a.reader, "-Enter account code (empty for your own)", a.out)
	if err != nil {
		return err
	}
	loginCode, err := getSimpleText(a.reader, "-Enter new login code", a.out)
	if err != nil {
		return err
	}

	secret1, err := getPassword(a.out, "-Enter password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret1)

	secret2, err := getPassword(a.out, "-Repeat password")
	if err != nil {
		return err
	}
	defer common.WipeByteArray(secret2)

	levelText, err := getSimpleText(a.reader, "-Enter admin level (default 0)", a.out)
	if err != nil {
		return err
	}
	level := 0
	if levelText != "" {
		level, err = strconv.Atoi(levelText)
		if err != nil {
			errColor.Fprintf(a.out, "admin level must be a number\n")
			return err
		}
	}

	env, err := a.client.CreateAccount(ctx, rpcclient.CreateAccountParams{
		AccountCode:  accountCode,
		LoginCode:    loginCode,
		LoginSecret1: string(secret1),
		LoginSecret2: string(secret2),
		AdminLevel:   level,
	})
	if err != nil {
		printError(a.out, err)
		return err
	}
	printEnvelope(a.out, env)
	return nil
}

// Logins lists the logins of an account: logins [account_code] [login_code].
func (a *App) Logins(ctx context.Context, args []string) error {
	var accountCode, loginCode string
	if len(args) > 0 {
		accountCode = args[0]
	}
	if len(args) > 1 {
		loginCode = args[1]
	}

	env, err := a.client.GetLoginsForAccount(ctx, accountCode, loginCode)
	if err != nil {
		printError(a.out, err)
		return err
	}
	printEnvelope(a.out, env)
	return nil
}

func (a *App) WhoAmI(context.Context) error {
	if !a.isLoggedIn() {
		fmt.Fprintln(a.out, "not logged in")
		return nil
	}
	key := a.client.APIKey()
	if len(key) > 8 {
		key = key[:8] + "..."
	}
	fmt.Fprintf(a.out, "logged in as %s, key %s\n", a.loginCode, key)
	return nil
}

// Logout forgets the key locally. The server keeps it until it expires.
func (a *App) Logout(context.Context) error {
	a.client.SetAPIKey("")
	a.loginCode = ""
	fmt.Fprintln(a.out, "logged out")
	return nil
}
