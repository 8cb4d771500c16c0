package optimistic

import (
	"log"

	"github.com/atvirokodosprendimai/storefront/internal/client/result"
)

type Level int

const (
	Success Level = iota + 1
	Failure
)

func (l Level) String() string {
	if l == Success {
		return "success"
	}
	return "failure"
}

// Notification is the transient message surfaced after a mutation settles.
type Notification struct {
	Level    Level
	Kind     result.Kind
	RecordID string
	Field    string
	Message  string
}

type Notifier interface {
	Notify(n Notification)
}

type NotifierFunc func(Notification)

func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

// LogNotifier writes notifications to a logger, log.Default() when nil.
type LogNotifier struct {
	Logger *log.Logger
}

func (l LogNotifier) Notify(n Notification) {
	logger := l.Logger
	if logger == nil {
		logger = log.Default()
	}
	if n.Level == Failure {
		logger.Printf("mutation failed kind=%s record=%s field=%s: %s", n.Kind, n.RecordID, n.Field, n.Message)
		return
	}
	logger.Printf("mutation confirmed record=%s field=%s: %s", n.RecordID, n.Field, n.Message)
}
