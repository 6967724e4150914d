package blockvalidator

import (
	"fmt"

	"github.com/shivlim/casper-node/src/effect"
	"github.com/shivlim/casper-node/src/types"
)

// Event is handled by the block validator.
type Event interface {
	fmt.Stringer
	blockValidatorEvent()
}

// Request ...
type Request struct {
	Request effect.BlockValidationRequest
}

// DeploysFetched carries storage's answer for one validation attempt.
type DeploysFetched struct {
	Request effect.BlockValidationRequest
	Attempt int
	Deploys []*types.Deploy
}

// Retry fetches the deploys again once some time passed.
type Retry struct {
	Request effect.BlockValidationRequest
	Attempt int
}

func (Request) blockValidatorEvent()        {}
func (DeploysFetched) blockValidatorEvent() {}
func (Retry) blockValidatorEvent()          {}

func (e Request) String() string { return e.Request.String() }
func (e DeploysFetched) String() string {
	return fmt.Sprintf("fetched %d deploys for block at height %d", len(e.Deploys), e.Request.Block.Height)
}
func (e Retry) String() string {
	return fmt.Sprintf("retry validating block at height %d (attempt %d)", e.Request.Block.Height, e.Attempt)
}
