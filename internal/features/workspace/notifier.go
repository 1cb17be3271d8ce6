package workspace

import (
	"errors"

	"go.uber.org/zap"
)

type NoticeLevel string

const (
	NoticeInfo  NoticeLevel = "info"
	NoticeWarn  NoticeLevel = "warn"
	NoticeError NoticeLevel = "error"
)

// Notifier shows short transient messages to the user.
type Notifier interface {
	Notify(level NoticeLevel, message string)
}

// LogNotifier sends notices to a logger. Used when nobody is watching.
type LogNotifier struct {
	Log *zap.Logger
}

func (n LogNotifier) Notify(level NoticeLevel, message string) {
	switch level {
	case NoticeError:
		n.Log.Error(message)
	case NoticeWarn:
		n.Log.Warn(message)
	default:
		n.Log.Info(message)
	}
}

// userMessage is implemented by errors that carry text fit for the user,
// such as application errors returned by the report API.
type userMessage interface {
	UserMessage() string
}

func messageFor(fallback string, err error) string {
	var um userMessage
	if errors.As(err, &um) {
		if m := um.UserMessage(); m != "" {
			return m
		}
	}
	return fallback
}
