package elasticsearch

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError is returned when a caller supplied argument violates a
// precondition of the Builder, before anything is sent to the engine.
type ValidationError struct {
	Op     string
	Reason string
}

func (err ValidationError) Error() string {
	if err.Op == "" {
		return "validation error: " + err.Reason
	}
	return fmt.Sprintf("validation error: %s: %s", err.Op, err.Reason)
}

type NotFoundError struct {
	Index string
}

func (err NotFoundError) Error() string {
	return fmt.Sprintf("no such index: %q", err.Index)
}

// EngineError carries a failure reported by Elasticsearch, or by the
// transport on the way to it, without reinterpreting it.
type EngineError struct {
	Op     string
	Index  string
	Status int
	ESCode string
	Err    error
}

func (err EngineError) Error() string {
	var s strings.Builder
	s.WriteString("elasticsearch error: ")
	if err.Op != "" {
		s.WriteString(err.Op + ": ")
	}
	if err.Index != "" {
		s.WriteString("index '" + err.Index + "': ")
	}
	if err.Status != 0 {
		s.WriteString("status " + strconv.Itoa(err.Status) + ": ")
	}
	if err.ESCode != "" {
		s.WriteString("elasticsearch code '" + err.ESCode + "': ")
	}
	if err.Err != nil {
		s.WriteString(err.Err.Error())
	}
	return s.String()
}

func (err EngineError) Unwrap() error {
	return err.Err
}
