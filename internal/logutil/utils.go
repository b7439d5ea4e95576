// Package logutil has small zap helpers shared by the HTTP layer.
package logutil

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// fieldGroup nests fields under one object key so request log lines keep a
// stable top-level shape.
type fieldGroup []zap.Field

func (g fieldGroup) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	for _, f := range g {
		f.AddTo(enc)
	}
	return nil
}

// Values groups the given fields under a single "values" object field.
func Values(fields ...zap.Field) zap.Field {
	return zap.Object("values", fieldGroup(fields))
}
