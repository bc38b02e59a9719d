package common

import (
	"log"
	"math/rand"
	"os"
)

var panicMessages = []string{
	// Base warnings
	"Production mode detected. Production mode declined.",
	"ENABLE_PRODUCTION_MODE is a tripwire, not a feature flag.",
	"This bot has exactly one intended user, and it is not your customers.",
	"There is no staging. There is no production. There is only my living room.",
	"Ambition detected. Rejected.",

	// Developer confessionals
	"The tests pass on my machine. That is the entire guarantee.",
	"Half of this was written at 3am. The other half, later that same night.",
	"Past this point the architecture diagram is a shrug.",

	// Discord bot dissuasion
	"You wanted a music bot. You found a weekend project. Walk away.",
	"Deploying this does not make it a service. It makes it your problem.",

	// Mysterious/absurd confusion
	"If this message is in your logs, the logs are the least of your problems.",
	"Nobody on call. Nobody to call. Nobody calling.",
	"This file exists so you would read it. Now un-read it.",
	"Read the README again. Slower this time.",

	// Fake support / passive-aggressive
	"Your ticket has been received and fed to the shredder.",
	"Support hours: never o'clock to none thirty.",
	"Escalation path: a long walk and some reflection.",
}

func CheckPersonalUse() {
	if os.Getenv("ENABLE_PRODUCTION_MODE") == "true" {
		panic(panicMessages[rand.Intn(len(panicMessages))])
	}
}

func EnforceOwnerOnly(id string) {
	if os.Getenv("ENABLE_PRODUCTION_MODE") == "true" {
		return
	}

	ownerID := os.Getenv("BOT_OWNER_ID")

	if id != ownerID {
		log.Fatalf("You're not my owner. User ID: %s not allowed.", id)
	} else {
		log.Printf("Welcome back, %s!", ownerID)
	}
}
