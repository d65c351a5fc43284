// Package cmdline splits an execute command line into the executable name
// and its argument string.
package cmdline

import (
	"errors"
	"fmt"

	"github.com/viant/parsly"

	"tinyos/pkg/abi"
)

// Command line errors.
var (
	ErrEmpty       = errors.New("empty command")
	ErrNameTooLong = errors.New("executable name too long")
	ErrArgsTooLong = errors.New("arguments too long")
)

const (
	spaceCode = iota
	wordCode
	restCode
)

var (
	spaceToken = parsly.NewToken(spaceCode, "Space", &spaceMatcher{})
	wordToken  = parsly.NewToken(wordCode, "Word", &wordMatcher{})
	restToken  = parsly.NewToken(restCode, "Rest", &restMatcher{})
)

type spaceMatcher struct{}

func (m *spaceMatcher) Match(cursor *parsly.Cursor) int {
	matched := 0
	for i := cursor.Pos; i < cursor.InputSize && cursor.Input[i] == ' '; i++ {
		matched++
	}
	return matched
}

// wordMatcher matches up to the next space or terminator.
type wordMatcher struct{}

func (m *wordMatcher) Match(cursor *parsly.Cursor) int {
	matched := 0
	for i := cursor.Pos; i < cursor.InputSize; i++ {
		if c := cursor.Input[i]; c == ' ' || c == 0 || c == '\n' {
			break
		}
		matched++
	}
	return matched
}

// restMatcher matches everything up to a terminator.
type restMatcher struct{}

func (m *restMatcher) Match(cursor *parsly.Cursor) int {
	matched := 0
	for i := cursor.Pos; i < cursor.InputSize; i++ {
		if c := cursor.Input[i]; c == 0 || c == '\n' {
			break
		}
		matched++
	}
	return matched
}

// Split returns the first word of line and everything after it with
// leading spaces removed.
func Split(line string) (name, args string, err error) {
	cursor := parsly.NewCursor("", []byte(line), 0)
	cursor.MatchOne(spaceToken)

	matched := cursor.MatchOne(wordToken)
	if matched.Code != wordToken.Code {
		return "", "", ErrEmpty
	}
	name = matched.Text(cursor)
	if len(name) > abi.NameLength {
		return "", "", fmt.Errorf("%w: %d bytes", ErrNameTooLong, len(name))
	}

	cursor.MatchOne(spaceToken)
	if matched = cursor.MatchOne(restToken); matched.Code == restToken.Code {
		args = matched.Text(cursor)
	}
	if len(args) > abi.ArgsLength {
		return "", "", fmt.Errorf("%w: %d bytes", ErrArgsTooLong, len(args))
	}
	return name, args, nil
}
