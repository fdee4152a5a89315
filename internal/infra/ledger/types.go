// Package ledger implements the two transport contracts the core consumes:
// synchronous account fetch over JSON-RPC and push account notifications
// over the websocket PubSub endpoint.
package ledger

import "encoding/json"

// subscribeRequest is an accountSubscribe / accountUnsubscribe frame.
type subscribeRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
}

// subscribeOpts is the second accountSubscribe parameter.
type subscribeOpts struct {
	Encoding   string `json:"encoding"`
	Commitment string `json:"commitment"`
}

// wsError is a JSON-RPC error object.
type wsError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *wsError) Error() string {
	return e.Message
}

// wsMessage covers both request responses (ID set) and server-initiated
// notifications (Method set).
type wsMessage struct {
	ID     uint64              `json:"id,omitempty"`
	Result json.RawMessage     `json:"result,omitempty"`
	Error  *wsError            `json:"error,omitempty"`
	Method string              `json:"method,omitempty"`
	Params *notificationParams `json:"params,omitempty"`
}

// notificationParams is the payload of an accountNotification frame. Data
// holds [content, encoding]; content is base64 when subscribed that way.
type notificationParams struct {
	Subscription uint64 `json:"subscription"`
	Result       struct {
		Context struct {
			Slot uint64 `json:"slot"`
		} `json:"context"`
		Value struct {
			Data     []string `json:"data"`
			Lamports uint64   `json:"lamports"`
			Owner    string   `json:"owner"`
		} `json:"value"`
	} `json:"result"`
}
