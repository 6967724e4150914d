package rpcserver

import (
	"github.com/AccumulateNetwork/jsonrpc2/v15"
)

// Application error codes, outside the range reserved by JSON-RPC.
const (
	ErrCodeValidation jsonrpc2.ErrorCode = -33001 - iota
	ErrCodeNotFound
	ErrCodeInternal
	ErrCodeDeploy
	ErrCodeUnavailable
)

func validatorError(err error) jsonrpc2.Error {
	return jsonrpc2.NewError(ErrCodeValidation, "Validation Error", err.Error())
}

func notFoundError(what string) jsonrpc2.Error {
	return jsonrpc2.NewError(ErrCodeNotFound, "Not Found", what)
}

func internalError(err error) jsonrpc2.Error {
	return jsonrpc2.NewError(ErrCodeInternal, "Internal Error", err.Error())
}

func deployError(err error) jsonrpc2.Error {
	return jsonrpc2.NewError(ErrCodeDeploy, "Deploy Rejected", err.Error())
}

func unavailableError() jsonrpc2.Error {
	return jsonrpc2.NewError(ErrCodeUnavailable, "Unavailable", "node is shutting down")
}
