// Package api implements the RPC methods on top of the services and turns
// their results into response envelopes. Transports (JSON-RPC over HTTP,
// gRPC) decode parameters into the types below and call Handlers.
package api

// Method names as exposed on the wire.
const (
	MethodLogin               = "login"
	MethodCreateAccount       = "create_account"
	MethodGetLoginsForAccount = "get_logins_for_account"
)

type LoginParams struct {
	LC string `json:"lc"`
	LS string `json:"ls"`
}

type CreateAccountParams struct {
	AccountCode  string `json:"account_code"`
	Key          string `json:"key"`
	LoginCode    string `json:"login_code"`
	LoginSecret1 string `json:"login_secret_1"`
	LoginSecret2 string `json:"login_secret_2"`
	AdminLevel   int    `json:"admin_level"`
}

type GetLoginsParams struct {
	AccountCode string `json:"account_code"`
	Key         string `json:"key"`
	LC          string `json:"lc"`
}

// PositionalNames lists, per method, the parameter names in positional
// order.
var PositionalNames = map[string][]string{
	MethodLogin:               {"lc", "ls"},
	MethodCreateAccount:       {"account_code", "key", "login_code", "login_secret_1", "login_secret_2", "admin_level"},
	MethodGetLoginsForAccount: {"account_code", "key", "lc"},
}
