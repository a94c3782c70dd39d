package app

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// Kinds of notification.
const (
	NotifySuccess NotificationKind = "success"
	NotifyError   NotificationKind = "error"
	// NotifySignIn asks the surface to start the sign-in flow.
	NotifySignIn NotificationKind = "sign-in"
)

type (
	// A NotificationKind classifies a notification.
	NotificationKind string

	// A Notification is a short-lived message shown to the user.
	Notification struct {
		Kind    NotificationKind `json:"type"`
		Message string           `json:"message"`
	}

	// A Notifier receives the notifications emitted by the application.
	// Notify must not call back into the App.
	Notifier interface {
		Notify(n Notification)
	}

	// NotifierFunc is an adapter to use an ordinary function as a Notifier.
	NotifierFunc func(n Notification)

	// An Inbox is a Notifier keeping the latest notifications until they are drained.
	Inbox struct {
		mu    sync.Mutex
		max   int
		queue []Notification
	}

	logNotifier struct {
		log logrus.FieldLogger
	}
)

// Notify calls f(n).
func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

// NewInbox returns an Inbox holding at most max notifications.
func NewInbox(max int) *Inbox {
	if max <= 0 {
		max = 32
	}
	return &Inbox{max: max}
}

// Notify appends the notification, dropping the oldest one when the inbox is full.
func (i *Inbox) Notify(n Notification) {
	i.mu.Lock()
	defer i.mu.Unlock()

	i.queue = append(i.queue, n)
	if len(i.queue) > i.max {
		i.queue = i.queue[len(i.queue)-i.max:]
	}
}

// Drain returns and forgets all the pending notifications.
func (i *Inbox) Drain() []Notification {
	i.mu.Lock()
	defer i.mu.Unlock()

	queue := i.queue
	i.queue = nil
	if queue == nil {
		queue = []Notification{}
	}
	return queue
}

// LogNotifier returns a Notifier writing notifications to the given logger.
func LogNotifier(log logrus.FieldLogger) Notifier {
	return &logNotifier{log: log}
}

func (n *logNotifier) Notify(notification Notification) {
	n.log.WithField("type", notification.Kind).Info(notification.Message)
}
