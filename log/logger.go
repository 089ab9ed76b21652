package log

import "context"

// Logger is the structured logger handed to every component at construction.
// Fields are attached per call; With returns a child logger carrying fields on
// every subsequent event.
type Logger interface {
	Debug(ctx context.Context, msg string, fields ...map[string]interface{})
	Info(ctx context.Context, msg string, fields ...map[string]interface{})
	Warn(ctx context.Context, msg string, fields ...map[string]interface{})
	Error(ctx context.Context, msg string, err error, fields ...map[string]interface{})
	Fatal(ctx context.Context, msg string, err error, fields ...map[string]interface{}) // zerolog exits the process
	With(fields map[string]interface{}) Logger
}
