package app

import (
	"sync"

	"github.com/ekoclu/aniparty/internal/core"
	"github.com/ekoclu/aniparty/internal/domain"
)

type ChannelManagerImpl struct {
	mu       sync.RWMutex
	channels map[domain.PartyID]core.PartyChannel
}

func NewChannelManager() core.ChannelFactory {
	return &ChannelManagerImpl{channels: make(map[domain.PartyID]core.PartyChannel)}
}

func (f *ChannelManagerImpl) GetOrCreate(id domain.PartyID) core.PartyChannel {
	f.mu.RLock()
	ch, ok := f.channels[id]
	f.mu.RUnlock()
	if ok {
		return ch
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if ch, ok = f.channels[id]; ok {
		return ch
	}
	ch = core.NewPartyChannel(id)
	f.channels[id] = ch
	return ch
}

func (f *ChannelManagerImpl) Get(id domain.PartyID) (core.PartyChannel, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	ch, ok := f.channels[id]
	return ch, ok
}

func (f *ChannelManagerImpl) Drop(id domain.PartyID) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.channels, id)
}
