package initializer

import (
	"fmt"

	"github.com/shivlim/casper-node/src/components/chainspecloader"
	"github.com/shivlim/casper-node/src/effect"
)

// Event is the initializer's top level event. It only has variants for the
// components the initializer hosts, so a network or consensus event cannot be
// expressed here at all.
type Event interface {
	fmt.Stringer
	initializerEvent()
}

// ChainspecLoaderEvent wraps an event of the chainspec loader.
type ChainspecLoaderEvent struct {
	Event chainspecloader.Event
}

// StorageEvent wraps a request served by storage.
type StorageEvent struct {
	Request effect.StorageRequest
}

// ContractRuntimeEvent wraps a request served by the contract runtime.
type ContractRuntimeEvent struct {
	Request effect.ContractRuntimeRequest
}

func (ChainspecLoaderEvent) initializerEvent() {}
func (StorageEvent) initializerEvent()         {}
func (ContractRuntimeEvent) initializerEvent() {}

func (e ChainspecLoaderEvent) String() string { return fmt.Sprintf("chainspec loader: %s", e.Event) }
func (e StorageEvent) String() string         { return fmt.Sprintf("storage: %s", e.Request) }
func (e ContractRuntimeEvent) String() string { return fmt.Sprintf("contract runtime: %s", e.Request) }

// embedder wraps requests the hosted components make of each other.
type embedder struct{}

func (embedder) FromStorageRequest(r effect.StorageRequest) Event {
	return StorageEvent{Request: r}
}

func (embedder) FromContractRuntimeRequest(r effect.ContractRuntimeRequest) Event {
	return ContractRuntimeEvent{Request: r}
}

func fromChainspecLoader(ev chainspecloader.Event) Event {
	return ChainspecLoaderEvent{Event: ev}
}
