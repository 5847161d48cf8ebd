// Package callback encodes and decodes inline keyboard payloads.
// A payload is "<tag>:<arg>" where tag names one of a closed set of actions.
package callback

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// MaxDataLen is the Telegram limit for callback_data.
const MaxDataLen = 64

var (
	// ErrMalformed is returned for payloads that are not "<tag>:<arg>".
	ErrMalformed = errors.New("malformed callback data")
	// ErrUnknownAction is returned for an unrecognized tag.
	ErrUnknownAction = errors.New("unknown callback action")
	// ErrTooLong is returned when an encoded payload exceeds MaxDataLen.
	ErrTooLong = errors.New("callback data too long")
)

// Action is the closed set of keyboard actions.
type Action int

const (
	Analyze Action = iota + 1
	ActionsToday
	ActionsSelect
	ActionsGroup
	Suggest
	Delete
	SetPrompt
	SetModel
	Language
)

var tags = map[Action]string{
	Analyze:       "an",
	ActionsToday:  "at",
	ActionsSelect: "as",
	ActionsGroup:  "ag",
	Suggest:       "sg",
	Delete:        "dl",
	SetPrompt:     "sp",
	SetModel:      "sm",
	Language:      "lg",
}

var byTag = func() map[string]Action {
	m := make(map[string]Action, len(tags))
	for a, t := range tags {
		m[t] = a
	}
	return m
}()

func (a Action) String() string {
	switch a {
	case Analyze:
		return "analyze"
	case ActionsToday:
		return "actions_today"
	case ActionsSelect:
		return "actions_select"
	case ActionsGroup:
		return "actions_group"
	case Suggest:
		return "suggest"
	case Delete:
		return "delete"
	case SetPrompt:
		return "setprompt"
	case SetModel:
		return "setmodel"
	case Language:
		return "lang"
	default:
		return fmt.Sprintf("Action(%d)", int(a))
	}
}

// Data is a decoded payload.
type Data struct {
	Action Action
	Arg    string
}

// Encode renders the payload for action with arg.
func Encode(action Action, arg string) (string, error) {
	tag, ok := tags[action]
	if !ok {
		return "", fmt.Errorf("%w: %v", ErrUnknownAction, action)
	}
	s := tag + ":" + arg
	if len(s) > MaxDataLen {
		return "", fmt.Errorf("%w: %d bytes", ErrTooLong, len(s))
	}
	return s, nil
}

// EncodeChat is Encode with a chat id argument.
func EncodeChat(action Action, chatID int64) (string, error) {
	return Encode(action, strconv.FormatInt(chatID, 10))
}

// Decode parses a payload produced by Encode.
func Decode(s string) (Data, error) {
	tag, arg, ok := strings.Cut(s, ":")
	if !ok || tag == "" {
		return Data{}, fmt.Errorf("%w: %q", ErrMalformed, s)
	}
	action, ok := byTag[tag]
	if !ok {
		return Data{}, fmt.Errorf("%w: %q", ErrUnknownAction, tag)
	}
	return Data{Action: action, Arg: arg}, nil
}

// ChatID parses Arg as a chat id.
func (d Data) ChatID() (int64, error) {
	id, err := strconv.ParseInt(d.Arg, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: chat id %q", ErrMalformed, d.Arg)
	}
	return id, nil
}
