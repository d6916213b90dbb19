package notify

import (
	"sync"
	"time"

	"go.uber.org/zap"
)

type Variant string

const (
	VariantDefault     Variant = "default"
	VariantDestructive Variant = "destructive"
)

// DefaultDuration is how long a toast stays visible unless set otherwise.
const DefaultDuration = 5 * time.Second

type Notification struct {
	Title       string
	Description string
	Variant     Variant
	Duration    time.Duration
}

// Notifier shows a transient notification. Fire and forget.
type Notifier interface {
	Notify(n Notification)
}

type NotifierFunc func(n Notification)

func (f NotifierFunc) Notify(n Notification) {
	f(n)
}

type LogNotifier struct {
	Sugar *zap.SugaredLogger
}

func (l LogNotifier) Notify(n Notification) {
	l.Sugar.Debugf("Toast [%s] %s: %s", n.Variant, n.Title, n.Description)
}

type Multi []Notifier

func (m Multi) Notify(n Notification) {
	for _, notifier := range m {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}

func Success(description string) Notification {
	return Notification{Title: "Success", Description: description, Variant: VariantDefault, Duration: DefaultDuration}
}

func Failure(description string) Notification {
	return Notification{Title: "Error", Description: description, Variant: VariantDestructive, Duration: DefaultDuration}
}

// Recorder keeps every notification, used by tests.
type Recorder struct {
	mutex sync.Mutex
	items []Notification
}

func (r *Recorder) Notify(n Notification) {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.items = append(r.items, n)
}

func (r *Recorder) All() []Notification {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return append([]Notification(nil), r.items...)
}

func (r *Recorder) Len() int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	return len(r.items)
}
