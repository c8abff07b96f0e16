package main

import (
	"errors"
)

type usageError struct {
	error
}

func newUsageError(msg string) usageError {
	return usageError{error: errors.New(msg)}
}

var errorWantedNoArgs = newUsageError("expected no (non-flag) arguments")
var errorWantedStacks = newUsageError("please supply two stacks, e.g., prod staging")
var errorInvalidOutputFormat = newUsageError("invalid output format specified; use one of text, json or yaml")
