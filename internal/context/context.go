// Copyright (c) Microsoft Corporation.
// Licensed under the Apache License, Version 2.0.
package context

import (
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Context keys.
const (
	CorrelationIdCtxKey = "correlation_id"
	LoggerCtxKey        = "logger"
)

// Request headers.
const (
	CorrelationHeaderKey = "X-PkgStash-CorrelationId"
	NodeHeaderKey        = "X-PkgStash-Node"
)

// NodeName is the name reported in response headers.
var NodeName, _ = os.Hostname()

// FillCorrelationId sets the correlation id for the current request,
// generating one if the caller did not supply it.
func FillCorrelationId(c *gin.Context) {
	correlationId := c.Request.Header.Get(CorrelationHeaderKey)
	if correlationId == "" {
		correlationId = uuid.New().String()
	}
	c.Set(CorrelationIdCtxKey, correlationId)
}

// Logger gets the logger with request specific fields.
func Logger(c *gin.Context) zerolog.Logger {
	var l zerolog.Logger
	obj, ok := c.Get(LoggerCtxKey)
	if !ok {
		fmt.Println("WARN: logger not found in context")
		l = zerolog.Nop()
	} else {
		ctxLog := obj.(*zerolog.Logger)
		l = *ctxLog
	}

	return l.With().Str("correlationid", c.GetString(CorrelationIdCtxKey)).Str("url", c.Request.URL.String()).Str("ip", c.ClientIP()).Logger()
}
