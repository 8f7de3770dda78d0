package id

import (
	"crypto/md5"
	"io"

	"github.com/gofrs/uuid"
)

// GenTraceID new random traceID
func GenTraceID() string {
	return uuid.Must(uuid.NewV4()).String()
}

// TraceIDFrom deterministic traceID from text
func TraceIDFrom(text string) string {
	return UUIDFromString(text)
}

// Modify derive a sub trace from a trace and a modifier
func Modify(traceID, modifier string) string {
	ns, err := uuid.FromString(traceID)
	if err != nil {
		return UUIDFromString(traceID + modifier)
	}
	return uuid.NewV5(ns, modifier).String()
}

// UUIDFromString new uuid string from arbitrary text
func UUIDFromString(text string) string {
	h := md5.New()
	_, _ = io.WriteString(h, text)
	sum := h.Sum(nil)
	sum[6] = (sum[6] & 0x0f) | 0x30
	sum[8] = (sum[8] & 0x3f) | 0x80

	u, _ := uuid.FromBytes(sum)
	return u.String()
}
