package rpcserver

import (
	"fmt"

	"github.com/shivlim/casper-node/src/effect"
)

// Event is handled by the RPC server.
type Event interface {
	fmt.Stringer
	rpcServerEvent()
}

// Request is a query issued by one of our RPC methods.
type Request struct {
	effect.RpcRequest
}

// Stopped follows the HTTP server returning.
type Stopped struct {
	Err error
}

func (Request) rpcServerEvent() {}
func (Stopped) rpcServerEvent() {}

func (e Request) String() string { return fmt.Sprintf("rpc request: %s", e.APIRequest) }
func (e Stopped) String() string {
	if e.Err != nil {
		return fmt.Sprintf("rpc server stopped: %v", e.Err)
	}
	return "rpc server stopped"
}
