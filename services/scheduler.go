package services

import (
	"log"

	"github.com/robfig/cron/v3"
)

// StartScheduler wires the periodic jobs: hourly unbind sweeps for
// partnerships and friendships, and letter delivery at 09:00 and 20:00.
// Returns the running cron so main can stop it on shutdown.
func StartScheduler(invitations *InvitationService, friendships *FriendshipService, letters *LetterService) *cron.Cron {
	c := cron.New()

	c.AddFunc("@hourly", func() {
		if err := invitations.HandleExpiredUnbindRequests(); err != nil {
			log.Println("partnership unbind sweep failed:", err)
		}
		if err := friendships.HandleExpiredUnbindRequests(); err != nil {
			log.Println("friendship unbind sweep failed:", err)
		}
	})

	c.AddFunc("0 9,20 * * *", func() {
		if err := letters.HandleScheduledLetters(); err != nil {
			log.Println("scheduled letter delivery failed:", err)
		}
	})

	c.Start()
	log.Println("🕐 Scheduler started")
	return c
}
