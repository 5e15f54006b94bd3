package view

import (
	"sync"
	"time"

	"github.com/shopsphere/shopctl/pkg/api"
)

// DefaultNoticeTTL is how long a notice stays visible.
const DefaultNoticeTTL = 3 * time.Second

// Level is the severity of a notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

// Notice is a transient banner.
type Notice struct {
	ID      int
	Level   Level
	Text    string
	Expires time.Time
}

// Notifier keeps notices until they expire.
type Notifier struct {
	ttl time.Duration
	now func() time.Time

	mu      sync.Mutex
	notices []Notice
	nextID  int
}

// NewNotifier creates a notifier. A non-positive ttl means
// DefaultNoticeTTL; a nil now means time.Now.
func NewNotifier(ttl time.Duration, now func() time.Time) *Notifier {
	if ttl <= 0 {
		ttl = DefaultNoticeTTL
	}
	if now == nil {
		now = time.Now
	}
	return &Notifier{ttl: ttl, now: now}
}

// TTL returns the display duration.
func (n *Notifier) TTL() time.Duration { return n.ttl }

// Info posts an informational notice.
func (n *Notifier) Info(text string) Notice { return n.post(LevelInfo, text) }

// Success posts a success notice.
func (n *Notifier) Success(text string) Notice { return n.post(LevelSuccess, text) }

// Error posts the message of err. Backend errors show their extracted
// message only.
func (n *Notifier) Error(err error) Notice {
	msg := err.Error()
	if he, ok := api.AsHTTPError(err); ok {
		msg = he.Message
	}
	return n.post(LevelError, msg)
}

func (n *Notifier) post(level Level, text string) Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.nextID++
	nt := Notice{ID: n.nextID, Level: level, Text: text, Expires: n.now().Add(n.ttl)}
	n.notices = append(n.notices, nt)
	return nt
}

// Active returns the unexpired notices, oldest first, and forgets the
// expired ones.
func (n *Notifier) Active() []Notice {
	n.mu.Lock()
	defer n.mu.Unlock()
	now := n.now()
	kept := n.notices[:0]
	for _, nt := range n.notices {
		if now.Before(nt.Expires) {
			kept = append(kept, nt)
		}
	}
	n.notices = kept
	out := make([]Notice, len(kept))
	copy(out, kept)
	return out
}

// Latest returns the newest unexpired notice.
func (n *Notifier) Latest() (Notice, bool) {
	active := n.Active()
	if len(active) == 0 {
		return Notice{}, false
	}
	return active[len(active)-1], true
}

// Dismiss removes a notice before it expires.
func (n *Notifier) Dismiss(id int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, nt := range n.notices {
		if nt.ID == id {
			n.notices = append(n.notices[:i], n.notices[i+1:]...)
			return
		}
	}
}
