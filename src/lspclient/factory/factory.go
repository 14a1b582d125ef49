package factory

import (
	"github.com/gofrs/uuid"
	"github.com/uber/lsp-client/src/lspclient/entity"
	"go.lsp.dev/jsonrpc2"
)

// UUID is a user-defined factory for a random uuid.UUID.
func UUID() uuid.UUID {
	return uuid.Must(uuid.NewV4())
}

// JSONRPCRequest is a user-defined factory for a JSON-RPC call containing the specified method and parameters.
func JSONRPCRequest(method string, params interface{}) jsonrpc2.Request {
	req, _ := jsonrpc2.NewCall(jsonrpc2.NewNumberID(5), method, params)
	return req
}

// JSONRPCNotification is a user-defined factory for a JSON-RPC notification.
func JSONRPCNotification(method string, params interface{}) jsonrpc2.Request {
	req, _ := jsonrpc2.NewNotification(method, params)
	return req
}

// Client is a factory for a stdio client descriptor serving the given language ids.
func Client(name string, languageIDs ...string) entity.Client {
	return entity.Client{
		Name:        name,
		LanguageIDs: languageIDs,
		Transport:   entity.TransportStdio,
		Command:     name + "-language-server",
		Args:        []string{"--stdio"},
	}
}
