package voice

import (
	"fmt"
	"log"
	"sync"
)

// RegistryConfig carries the dependencies every session is built with.
type RegistryConfig struct {
	// Connector establishes transport links. Required.
	Connector Connector

	// Engine builds one streaming engine per playback attempt. Required.
	Engine EngineFactory

	// Timings override the production timer values; zero fields fall
	// back to DefaultTimings.
	Timings Timings

	// OnCreate fires after a new session is registered. Optional.
	OnCreate func(s *Subscription)

	// OnRemove fires after a session is removed. Optional.
	OnRemove func(guildID string)
}

// Registry is the process-wide session table, one Subscription per guild.
// All command handling starts here: commands that need a session either
// look it up or create it through GetOrCreate.
type Registry struct {
	cfg RegistryConfig

	mu   sync.RWMutex
	subs map[string]*Subscription
}

// NewRegistry creates an empty session registry.
func NewRegistry(cfg RegistryConfig) *Registry {
	return &Registry{
		cfg:  cfg,
		subs: make(map[string]*Subscription),
	}
}

// GetOrCreate returns the guild's session, creating and connecting one if
// none exists. An existing session gets its notify target updated to the
// caller's, so playback events follow the most recent command's channel.
// Two concurrent calls for the same guild observe the same session.
func (r *Registry) GetOrCreate(guildID, channelID string, notifier Notifier) (*Subscription, error) {
	r.mu.Lock()
	if s, ok := r.subs[guildID]; ok {
		r.mu.Unlock()
		s.SetNotifier(notifier)
		return s, nil
	}

	s := newSubscription(guildID, r.cfg, notifier, r)
	r.subs[guildID] = s
	onCreate := r.cfg.OnCreate
	r.mu.Unlock()

	if err := s.Join(channelID); err != nil {
		s.Stop()
		return nil, fmt.Errorf("creating voice session for guild %s: %w", guildID, err)
	}
	log.Printf("[Voice] Created session for guild %s in channel %s", guildID, channelID)
	if onCreate != nil {
		onCreate(s)
	}
	return s, nil
}

// Get returns the guild's session if one exists.
func (r *Registry) Get(guildID string) (*Subscription, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.subs[guildID]
	return s, ok
}

// remove drops a session from the table. Called by Subscription.Stop; the
// session is assumed already torn down.
func (r *Registry) remove(guildID string) {
	r.mu.Lock()
	_, ok := r.subs[guildID]
	delete(r.subs, guildID)
	onRemove := r.cfg.OnRemove
	r.mu.Unlock()

	if ok && onRemove != nil {
		onRemove(guildID)
	}
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.subs)
}

// StopAll tears down every live session. Used on shutdown.
func (r *Registry) StopAll() {
	r.mu.RLock()
	subs := make([]*Subscription, 0, len(r.subs))
	for _, s := range r.subs {
		subs = append(subs, s)
	}
	r.mu.RUnlock()

	for _, s := range subs {
		s.Stop()
	}
}
