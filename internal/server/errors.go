package server

import "errors"

var (
	errShutdown   = errors.New("server: shutting down")
	errClientGone = errors.New("server: client disconnected")
)
