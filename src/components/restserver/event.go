package restserver

import (
	"fmt"

	"github.com/shivlim/casper-node/src/effect"
)

// Event is handled by the REST server.
type Event interface {
	fmt.Stringer
	restServerEvent()
}

// Request is a query issued by one of our HTTP handlers.
type Request struct {
	effect.RestRequest
}

// Stopped follows the HTTP server returning.
type Stopped struct {
	Err error
}

func (Request) restServerEvent() {}
func (Stopped) restServerEvent() {}

func (e Request) String() string { return fmt.Sprintf("rest request: %s", e.APIRequest) }
func (e Stopped) String() string {
	if e.Err != nil {
		return fmt.Sprintf("rest server stopped: %v", e.Err)
	}
	return "rest server stopped"
}
