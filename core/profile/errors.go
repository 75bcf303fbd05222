package profile

import (
	"errors"
	"fmt"
	"strings"
)

var ErrInvalidName = errors.New("invalid profile name")

type NotFoundError struct {
	Name string
}

func (err NotFoundError) Error() string {
	return fmt.Sprintf("no such profile: %q", err.Name)
}

// MalformedRecordError is returned when a persisted record cannot be
// decoded or lacks one of the required keys.
type MalformedRecordError struct {
	Name   string
	Fields []string
	Err    error
}

func (err MalformedRecordError) Error() string {
	var s strings.Builder
	s.WriteString("malformed profile record")
	if err.Name != "" {
		s.WriteString(" " + fmt.Sprintf("%q", err.Name))
	}
	if len(err.Fields) > 0 {
		s.WriteString(": missing " + strings.Join(err.Fields, ", "))
	}
	if err.Err != nil {
		s.WriteString(": " + err.Err.Error())
	}
	return s.String()
}

func (err MalformedRecordError) Unwrap() error {
	return err.Err
}

type ParseError struct {
	Input  string
	Reason string
}

func (err ParseError) Error() string {
	if err.Input == "" {
		return "parse error: " + err.Reason
	}
	return fmt.Sprintf("parse error: %q: %s", err.Input, err.Reason)
}

// IncompleteError lists the profile fields that are empty.
type IncompleteError struct {
	Fields []string
}

func (err IncompleteError) Error() string {
	return "incomplete profile: missing " + strings.Join(err.Fields, ", ")
}
