package server

import (
	"time"

	"google.golang.org/protobuf/types/known/structpb"

	svcErr "github.com/oggyb/friender/internal/errors"
)

// Str returns the string field key, or "" when absent or not a string.
func Str(in *structpb.Struct, key string) string {
	return in.GetFields()[key].GetStringValue()
}

// OptStr returns a pointer to the string field, nil when absent.
func OptStr(in *structpb.Struct, key string) *string {
	v, ok := in.GetFields()[key]
	if !ok {
		return nil
	}
	s := v.GetStringValue()
	return &s
}

// OptInt returns a pointer to the numeric field truncated to int, nil when absent.
func OptInt(in *structpb.Struct, key string) *int {
	v, ok := in.GetFields()[key]
	if !ok {
		return nil
	}
	n := int(v.GetNumberValue())
	return &n
}

// Int returns the numeric field truncated to int, or def when absent.
func Int(in *structpb.Struct, key string, def int) int {
	if p := OptInt(in, key); p != nil {
		return *p
	}
	return def
}

// OptBool returns a pointer to the bool field, nil when absent.
func OptBool(in *structpb.Struct, key string) *bool {
	v, ok := in.GetFields()[key]
	if !ok {
		return nil
	}
	b := v.GetBoolValue()
	return &b
}

// Require returns the string field or an InvalidArgument error naming it.
func Require(in *structpb.Struct, key string) (string, error) {
	s := Str(in, key)
	if s == "" {
		return "", svcErr.InvalidArgument(key + " is required")
	}
	return s, nil
}

// List converts a string slice into a structpb-compatible list.
func List(items []string) []any {
	out := make([]any, len(items))
	for i, s := range items {
		out[i] = s
	}
	return out
}

// Time formats t as RFC 3339 with sub-second precision.
func Time(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// OptTime is Time for a nullable timestamp; nil becomes a null value.
func OptTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return Time(*t)
}

// Out builds a response struct from plain Go values.
func Out(fields map[string]any) (*structpb.Struct, error) {
	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, svcErr.Map(err)
	}
	return s, nil
}
