// Package cli provides the interactive gophaccounts command-line client.
//
// It wires configuration, the JSON-RPC client and a REPL. The key returned
// by a successful login is remembered and sent with later account calls
// until logout.
//
// Commands:
//   - login          prompt for login code and password
//   - create         create an account (first account needs no login)
//   - logins [account_code] [login_code]
//   - whoami         show the current session
//   - logout         forget the key
//   - help, exit
package cli
