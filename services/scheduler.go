// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartEngineScheduler runs the engine's periodic jobs:
//   - quest expiry sweep (the on-read path already guarantees correctness;
//     this keeps the table tidy for reporting)
//   - battle pass season lifecycle rolls
//   - global leaderboard snapshot refresh
//
// All three are idempotent recomputations, safe on any cadence.
func StartEngineScheduler(quests *QuestCycleService, seasons *BattlePassService, boards *LeaderboardService) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	sched.Start()

	if _, err := sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if _, err := quests.ExpireOverdue(time.Now().UTC()); err != nil {
				log.Printf("[Scheduler] Quest expiry sweep failed: %v", err)
			}
		}),
	); err != nil {
		return nil, err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if err := seasons.RollSeasons(time.Now().UTC()); err != nil {
				log.Printf("[Scheduler] Season roll failed: %v", err)
			}
		}),
	); err != nil {
		return nil, err
	}

	if _, err := sched.NewJob(
		gocron.DurationJob(5*time.Minute),
		gocron.NewTask(func() {
			if err := boards.RefreshSnapshot(); err != nil {
				log.Printf("[Scheduler] Leaderboard snapshot refresh failed: %v", err)
			}
		}),
	); err != nil {
		return nil, err
	}

	return sched, nil
}
