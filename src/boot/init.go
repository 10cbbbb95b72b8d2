package boot

import (
	"log"
	"time"

	"bre/src/db"
	"bre/src/lib"
	"bre/src/models"
	"bre/src/utils"

	"github.com/go-co-op/gocron/v2"
)

func InitDb() {
	conn := db.GetDb()
	err := conn.AutoMigrate(
		&models.Transaction{},
		&models.Wallet{},
		&models.LedgerEntry{},
	)
	if err != nil {
		log.Fatalf("Error running migrations: %s\n", err.Error())
	}
}

// InitScheduler starts the hourly orphan-contract sweep. Contracts younger
// than an hour are skipped since their paired payment insert may still be in
// flight.
func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Printf("Error initializing scheduler: %s\n", err.Error())
		return
	}
	_, err = sched.NewJob(
		gocron.DurationJob(time.Hour),
		gocron.NewTask(func() {
			utils.SweepOrphanContracts(time.Hour)
		}),
	)
	if err != nil {
		log.Printf("Error registering sweep job: %s\n", err.Error())
		return
	}
	sched.Start()
}

func InitBroker() {
	_, err := lib.KafkaCreateTopics(utils.RevenueEventsTopic)
	if err != nil {
		log.Printf("Error creating broker topics: %s\n", err.Error())
	}
}
