// File: server/handler.go
// Author: momentics <momentics@gmail.com>
// License: Apache-2.0

package server

import (
	"context"

	"github.com/momentics/hioload-liveplot/protocol"
	"go.uber.org/zap"
)

// Handler consumes frames. An error ends the producer's connection.
type Handler interface {
	HandleFrame(ctx context.Context, f *Frame) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(ctx context.Context, f *Frame) error

func (fn HandlerFunc) HandleFrame(ctx context.Context, f *Frame) error {
	return fn(ctx, f)
}

// Middleware augments a Handler.
type Middleware func(Handler) Handler

// Chain applies middleware in order: first in slice is outermost.
func Chain(base Handler, mw ...Middleware) Handler {
	h := base
	for i := len(mw) - 1; i >= 0; i-- {
		h = mw[i](h)
	}
	return h
}

// SkipBarriers drops barrier frames before they reach the next handler.
func SkipBarriers(next Handler) Handler {
	return HandlerFunc(func(ctx context.Context, f *Frame) error {
		if f.Kind() == protocol.KindBarrier {
			return nil
		}
		return next.HandleFrame(ctx, f)
	})
}

// Logging logs every frame at debug level.
func Logging(logger *zap.Logger) Middleware {
	return func(next Handler) Handler {
		return HandlerFunc(func(ctx context.Context, f *Frame) error {
			logger.Debug("frame",
				zap.String("key", f.Key),
				zap.String("operation", f.Kind().String()),
				zap.String("name", f.Header.Name),
				zap.Int("arrsize", f.Header.ArrSize),
				zap.String("dtype", f.Header.DType),
				zap.Ints("shape", f.Header.Shape),
			)
			return next.HandleFrame(ctx, f)
		})
	}
}
