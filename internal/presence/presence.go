package presence

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

var (
	currentPresence string
	presenceMutex   sync.RWMutex
)

// PresenceManager manages the bot's presence
type PresenceManager struct {
	session  *discordgo.Session
	sessions func() int

	mu       sync.Mutex
	rotation int
}

// NewPresenceManager creates a new presence manager. sessions reports the
// number of live audio sessions and may be nil.
func NewPresenceManager(session *discordgo.Session, sessions func() int) *PresenceManager {
	return &PresenceManager{
		session:  session,
		sessions: sessions,
	}
}

// UpdateDefaultPresence rotates through the idle presence lines.
func (pm *PresenceManager) UpdateDefaultPresence() {
	guilds := len(pm.session.State.Guilds)
	live := 0
	if pm.sessions != nil {
		live = pm.sessions()
	}

	activities := []*discordgo.Activity{
		{
			Name:  fmt.Sprintf("%d servers", guilds),
			Type:  discordgo.ActivityTypeWatching,
			State: "!help for commands",
		},
		{
			Name:  "to",
			Type:  discordgo.ActivityTypeListening,
			State: "requests via !play",
		},
		{
			Name:  fmt.Sprintf("music in %d sessions", live),
			Type:  discordgo.ActivityTypeGame,
			State: "queue up with !play",
		},
	}

	pm.mu.Lock()
	activity := activities[pm.rotation%len(activities)]
	pm.rotation++
	pm.mu.Unlock()

	presence := &discordgo.UpdateStatusData{
		Status:     "online",
		Activities: []*discordgo.Activity{activity},
	}

	if err := pm.session.UpdateStatusComplex(*presence); err != nil {
		log.Printf("Failed to update bot presence: %v", err)
	}

	presenceMutex.Lock()
	currentPresence = "default"
	presenceMutex.Unlock()
}

// UpdateMusicPresence updates the bot's presence to show currently playing music
func (pm *PresenceManager) UpdateMusicPresence(songTitle string) {
	presence := &discordgo.UpdateStatusData{
		Status: "online",
		Activities: []*discordgo.Activity{
			{
				Name:  "to",
				Type:  discordgo.ActivityTypeListening,
				State: songTitle,
			},
		},
	}

	if err := pm.session.UpdateStatusComplex(*presence); err != nil {
		log.Printf("Failed to update music presence: %v", err)
	}

	presenceMutex.Lock()
	currentPresence = "music"
	presenceMutex.Unlock()
}

// ClearMusicPresence clears the music presence and returns to default
func (pm *PresenceManager) ClearMusicPresence() {
	pm.UpdateDefaultPresence()
}

// GetCurrentPresence returns the current presence type
func (pm *PresenceManager) GetCurrentPresence() string {
	presenceMutex.RLock()
	defer presenceMutex.RUnlock()
	return currentPresence
}

// StartPeriodicUpdates starts a goroutine that rotates the default presence
// while no music presence is showing.
func (pm *PresenceManager) StartPeriodicUpdates() {
	go func() {
		ticker := time.NewTicker(5 * time.Minute)
		defer ticker.Stop()

		for range ticker.C {
			if pm.GetCurrentPresence() != "music" {
				pm.UpdateDefaultPresence()
			}
		}
	}()
}
