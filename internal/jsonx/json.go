// Package jsonx is the JSON codec used on the wire. It is json-iterator configured
// to behave like encoding/json, so std struct tags and Marshaler implementations apply.
package jsonx

import (
	"encoding/json"

	jsoniter "github.com/json-iterator/go"
)

var api = jsoniter.ConfigCompatibleWithStandardLibrary

var (
	Marshal       = api.Marshal
	MarshalIndent = api.MarshalIndent
	Unmarshal     = api.Unmarshal
	NewDecoder    = api.NewDecoder
	NewEncoder    = api.NewEncoder
)

// RawMessage is the std type so values move freely between packages that
// import encoding/json directly.
type RawMessage = json.RawMessage
