package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/bwmarrin/discordgo"
	"github.com/joho/godotenv"

	"github.com/latoulicious/Seiun/internal/commands"
	"github.com/latoulicious/Seiun/internal/config"
	"github.com/latoulicious/Seiun/internal/handlers"
	"github.com/latoulicious/Seiun/internal/presence"
	"github.com/latoulicious/Seiun/pkg/common"
	"github.com/latoulicious/Seiun/pkg/metrics"
	"github.com/latoulicious/Seiun/pkg/pipeline"
	"github.com/latoulicious/Seiun/pkg/resolver"
	"github.com/latoulicious/Seiun/pkg/voice"
)

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Fatalf("Error loading .env file: %v", err)
	}

	common.CheckPersonalUse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	pipeCfg := pipeline.DefaultConfig()
	pipeCfg.LoadFromEnvironment()
	if err := pipeCfg.Validate(); err != nil {
		log.Fatalf("Invalid pipeline config: %v", err)
	}
	logger := pipeline.NewStructuredLogger(pipeCfg.Logging)
	collector := pipeline.NewBasicMetricsCollector()

	// Playback metrics land in a local sqlite database.
	store, err := metrics.NewStore(cfg.MetricsDBPath)
	if err != nil {
		log.Fatalf("Failed to open metrics store: %v", err)
	}
	recorder := metrics.NewRecorder(store, metrics.DefaultConfig(cfg.MetricsDBPath))
	if err := recorder.Start(); err != nil {
		log.Fatalf("Failed to start metrics recorder: %v", err)
	}

	// Create a new Discord session using the provided token
	dg, err := discordgo.New("Bot " + cfg.DiscordToken)
	if err != nil {
		log.Fatalf("Failed to create Discord session: %v", err)
	}
	dg.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildVoiceStates |
		discordgo.IntentMessageContent

	connector := common.NewDiscordConnector(dg)
	connector.OnRejoin = commands.RecordReconnect

	// One engine is minted per playback attempt; each reads its opus
	// frames out to the guild's live voice link.
	engineFactory := pipeline.Factory(pipeCfg, logger, collector, func(guildID string) pipeline.LinkProvider {
		return func() pipeline.OpusLink {
			return connector.LinkFor(guildID)
		}
	})

	registry := voice.NewRegistry(voice.RegistryConfig{
		Connector: connector,
		Engine:    engineFactory,
		OnCreate:  commands.OnSessionCreate,
		OnRemove:  commands.OnSessionRemove,
	})

	// Create presence manager
	presenceManager := presence.NewPresenceManager(dg, registry.Len)

	commands.Setup(commands.Deps{
		Registry:  registry,
		Resolver:  resolver.NewResolver(resolver.DefaultConfig()),
		Connector: connector,
		Recorder:  recorder,
		Store:     store,
		Presence:  presenceManager,
	})

	// Register the message handler
	handlers.SetPrefix(cfg.CommandPrefix)
	dg.AddHandler(handlers.MessageHandler)

	// Open a websocket connection to Discord and begin listening.
	if err := dg.Open(); err != nil {
		log.Fatalf("Failed to open Discord session: %v", err)
	}

	// Set initial presence
	presenceManager.UpdateDefaultPresence()

	// Start periodic presence updates
	presenceManager.StartPeriodicUpdates()

	log.Println("Bot is running. Press CTRL-C to exit.")
	// Wait here until CTRL-C or other term signal is received.
	sc := make(chan os.Signal, 1)
	signal.Notify(sc, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	<-sc

	// Tear down live sessions before closing the gateway so listeners get
	// their goodbye notices and the metrics rows close cleanly.
	registry.StopAll()
	if err := recorder.Stop(); err != nil {
		log.Printf("Failed to stop metrics recorder: %v", err)
	}
	if err := store.Close(); err != nil {
		log.Printf("Failed to close metrics store: %v", err)
	}

	// Cleanly close down the Discord session.
	dg.Close()
}
