package messages

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
	"visionary-backend/internal/keyValue"
	"visionary-backend/internal/models"
	"visionary-backend/internal/notify"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrDuplicateID = errors.New("message id already exists")
	ErrNotMounted  = errors.New("inbox is not mounted")
)

const welcomeContent = "We're excited to have you on board! Your AI-powered creative journey starts here. " +
	"Explore our tools to generate stunning images, enhance your artwork, and bring your imagination to life. " +
	"Ready to create something amazing?"

type Options struct {
	// Key is the store key shared by every inbox of the same user.
	Key         string
	Origin      string
	ProductName string
	Now         func() time.Time
}

// Inbox is one context's view of a persisted message list. Inboxes sharing
// a key observe each other's writes through store change events.
type Inbox struct {
	sugar       *zap.SugaredLogger
	store       *keyValue.Store
	notifier    notify.Notifier
	key         string
	origin      string
	productName string
	now         func() time.Time

	mutex         sync.Mutex
	mounted       bool
	identity      *models.Identity
	messages      []models.Message
	version       int64
	observedCount int

	sub *keyValue.Subscription
}

func NewInbox(sugar *zap.SugaredLogger, store *keyValue.Store, notifier notify.Notifier, opts Options) *Inbox {
	if opts.Origin == "" {
		opts.Origin = uuid.NewString()
	}
	if opts.ProductName == "" {
		opts.ProductName = "Visionary AI"
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Inbox{
		sugar:       sugar,
		store:       store,
		notifier:    notifier,
		key:         opts.Key,
		origin:      opts.Origin,
		productName: opts.ProductName,
		now:         opts.Now,
		messages:    []models.Message{},
	}
}

// Mount loads the persisted list, adds the welcome message for a signed in
// identity that never got one and starts watching for changes made by
// other contexts.
func (in *Inbox) Mount(ctx context.Context, identity *models.Identity) error {
	in.mutex.Lock()
	if in.mounted {
		in.mutex.Unlock()
		return nil
	}
	in.mutex.Unlock()

	// subscribe before loading so a write in between is not lost
	sub, err := in.store.Subscribe(context.Background(), in.key)
	if err != nil {
		return err
	}

	blob, version, err := in.store.Get(ctx, in.key)
	if err != nil {
		sub.Close()
		return err
	}

	list, err := Decode(blob)
	if err != nil {
		in.sugar.Warnf("Stored messages under [%s] are malformed, starting empty: %v", in.key, err)
		list = []models.Message{}
	}

	in.mutex.Lock()
	in.mounted = true
	in.identity = identity
	in.sub = sub
	in.messages = list
	in.version = version
	in.observedCount = len(list)

	if identity != nil && !HasType(list, models.MessageWelcome) {
		welcome := in.welcomeMessage(identity)
		in.messages = append([]models.Message{welcome}, list...)
		in.observedCount = len(in.messages)

		err = in.persistLocked(ctx)
		if err != nil {
			in.mutex.Unlock()
			in.Close()
			return err
		}
		in.sugar.Debugf("Added welcome message for user ID [%s]", identity.UserID)
	}
	in.mutex.Unlock()

	go in.watch(sub)

	return nil
}

func (in *Inbox) welcomeMessage(identity *models.Identity) models.Message {
	displayName := identity.DisplayName
	if displayName == "" {
		displayName = "Creator"
	}

	now := in.now()
	return models.Message{
		ID:        fmt.Sprintf("welcome-%d", now.UnixMilli()),
		Type:      models.MessageWelcome,
		Title:     fmt.Sprintf("Welcome to %s, %s!", in.productName, displayName),
		Content:   welcomeContent,
		Timestamp: now,
		IsRead:    false,
	}
}

func (in *Inbox) watch(sub *keyValue.Subscription) {
	for change := range sub.C {
		if change.Origin == in.origin {
			continue
		}
		in.applyChange(change)
	}
}

// applyChange adopts a newer list written elsewhere. Last writer wins.
func (in *Inbox) applyChange(change keyValue.Change) {
	list, err := Decode(change.Value)
	if err != nil {
		in.sugar.Warnf("Change %d of [%s] is malformed, treating as empty: %v", change.Version, in.key, err)
		list = []models.Message{}
	}

	in.mutex.Lock()
	if change.Version <= in.version {
		in.mutex.Unlock()
		return
	}
	in.messages = list
	in.version = change.Version
	notification, grew := in.observeLocked()
	in.mutex.Unlock()

	if grew {
		in.notifier.Notify(notification)
	}
}

// observeLocked is the only place that decides about the new message toast,
// so growth is announced once no matter which path caused it.
func (in *Inbox) observeLocked() (notify.Notification, bool) {
	grew := len(in.messages) > in.observedCount
	in.observedCount = len(in.messages)
	if !grew {
		return notify.Notification{}, false
	}

	return notify.Notification{
		Title:       "New Message Received",
		Description: in.messages[0].Title,
		Variant:     notify.VariantDefault,
		Duration:    notify.DefaultDuration,
	}, true
}

func (in *Inbox) persistLocked(ctx context.Context) error {
	blob, err := Encode(in.messages)
	if err != nil {
		return err
	}

	version, err := in.store.Set(ctx, in.key, blob, in.origin)
	if err != nil {
		return err
	}

	in.version = version
	return nil
}

func (in *Inbox) update(ctx context.Context, apply func([]models.Message) ([]models.Message, bool)) error {
	in.mutex.Lock()
	defer in.mutex.Unlock()

	if !in.mounted {
		return ErrNotMounted
	}

	updated, changed := apply(in.messages)
	if !changed {
		return nil
	}

	previous := in.messages
	in.messages = updated
	err := in.persistLocked(ctx)
	if err != nil {
		in.messages = previous
		return err
	}

	in.observedCount = len(in.messages)
	return nil
}

func (in *Inbox) MarkRead(ctx context.Context, id string) error {
	return in.update(ctx, func(list []models.Message) ([]models.Message, bool) {
		return MarkRead(list, id)
	})
}

func (in *Inbox) Delete(ctx context.Context, id string) error {
	return in.update(ctx, func(list []models.Message) ([]models.Message, bool) {
		return Delete(list, id)
	})
}

func (in *Inbox) MarkAllRead(ctx context.Context) error {
	return in.update(ctx, MarkAllRead)
}

// Push prepends msg, filling in a blank id and timestamp.
func (in *Inbox) Push(ctx context.Context, msg models.Message) (models.Message, error) {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = in.now()
	}
	if msg.Type == "" {
		msg.Type = models.MessageNotification
	}

	in.mutex.Lock()
	if !in.mounted {
		in.mutex.Unlock()
		return msg, ErrNotMounted
	}
	if Contains(in.messages, msg.ID) {
		in.mutex.Unlock()
		return msg, ErrDuplicateID
	}

	previous := in.messages
	in.messages = append([]models.Message{msg}, previous...)
	err := in.persistLocked(ctx)
	if err != nil {
		in.messages = previous
		in.mutex.Unlock()
		return msg, err
	}
	notification, grew := in.observeLocked()
	in.mutex.Unlock()

	if grew {
		in.notifier.Notify(notification)
	}
	return msg, nil
}

func (in *Inbox) Messages() []models.Message {
	in.mutex.Lock()
	defer in.mutex.Unlock()

	return append([]models.Message(nil), in.messages...)
}

type View struct {
	Authenticated bool             `json:"authenticated"`
	Messages      []models.Message `json:"messages"`
	UnreadCount   int              `json:"unreadCount"`
	Empty         bool             `json:"empty"`
}

func (in *Inbox) View() View {
	in.mutex.Lock()
	defer in.mutex.Unlock()

	list := append([]models.Message{}, in.messages...)
	return View{
		Authenticated: in.identity != nil,
		Messages:      list,
		UnreadCount:   UnreadCount(list),
		Empty:         len(list) == 0,
	}
}

func (in *Inbox) Close() {
	in.mutex.Lock()
	sub := in.sub
	in.sub = nil
	in.mounted = false
	in.mutex.Unlock()

	if sub != nil {
		sub.Close()
	}
}
