package telebot

import (
	"sync"
	"time"

	"github.com/minimancer/botmother/api"
)

// ChatCache keeps per-chat conversation history so the mother agent
// sees prior turns.
type ChatCache struct {
	mu sync.Mutex
	m  map[int64]*StoredChat
}

func NewCache() *ChatCache {
	return &ChatCache{m: map[int64]*StoredChat{}}
}

func (cc *ChatCache) Get(ID int64) *StoredChat {
	cc.mu.Lock()
	defer cc.mu.Unlock()

	sc, ok := cc.m[ID]
	if !ok {
		sc = &StoredChat{
			id:      ID,
			updated: time.Now(),
			store:   cc,
		}
		cc.m[ID] = sc
	}
	return sc
}

func (cc *ChatCache) Clear(id int64) error {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	delete(cc.m, id)
	return nil
}

func (cc *ChatCache) CountMessages(id int64) int {
	sc := cc.Get(id)
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.messages)
}

type StoredChat struct {
	mu       sync.Mutex
	id       int64
	messages []*api.Message
	updated  time.Time
	store    *ChatCache
}

func (sc *StoredChat) Add(msg api.Message) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.messages = append(sc.messages, &msg)
	sc.updated = time.Now()
}

// Messages returns a copy of the history, safe to modify.
func (sc *StoredChat) Messages() []*api.Message {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	out := make([]*api.Message, len(sc.messages))
	copy(out, sc.messages)
	return out
}

func (sc *StoredChat) Len() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.messages)
}
