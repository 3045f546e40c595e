package database

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/jimdaga/ascend/internal/models"
	"gorm.io/gorm"
)

// DevUserEmail is the account created by SeedDevData
const DevUserEmail = "dev@ascend.local"

// SeedDevData populates the database with development test data.
// Idempotent: skips if the dev user already exists.
func SeedDevData(db *gorm.DB, now time.Time) error {
	var existing models.User
	if err := db.Where("email = ?", DevUserEmail).First(&existing).Error; err == nil {
		slog.Info("Seed data already exists, skipping")
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		user := models.User{
			Email:          DevUserEmail,
			Name:           "Dev Playwright",
			ProviderUserID: "dev-google-id-12345",
		}
		if err := tx.Create(&user).Error; err != nil {
			return fmt.Errorf("failed to create dev user: %w", err)
		}

		prefs := models.DefaultPreferences(user.ID)
		if err := tx.Create(&prefs).Error; err != nil {
			return fmt.Errorf("failed to create dev preferences: %w", err)
		}

		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		day := func(offset int) *time.Time {
			t := today.AddDate(0, 0, offset)
			return &t
		}
		fee := func(v float64) *float64 { return &v }

		submissions := []models.Submission{
			{
				UserID:         user.ID,
				TheaterName:    "Magic Theatre",
				ScriptTitle:    "The Quiet Hour",
				SubmissionDate: today.AddDate(0, -2, 0),
				Deadline:       day(3),
				Status:         models.StatusSubmitted,
				Fee:            fee(25),
				ContactEmail:   "literary@magictheatre.org",
			},
			{
				UserID:         user.ID,
				TheaterName:    "San Francisco Playhouse",
				ScriptTitle:    "Salt Roads",
				SubmissionDate: today.AddDate(0, -1, 0),
				Deadline:       day(7),
				Status:         models.StatusUnderReview,
				ContactPerson:  "Literary Manager",
			},
			{
				UserID:         user.ID,
				TheaterName:    "Berkeley Rep",
				ScriptTitle:    "The Quiet Hour",
				SubmissionDate: today.AddDate(0, -4, 0),
				Deadline:       day(-10),
				Status:         models.StatusSubmitted,
				Fee:            fee(0),
				Notes:          "Follow up if no word by next month",
			},
			{
				UserID:         user.ID,
				TheaterName:    "Cutting Ball Theater",
				ScriptTitle:    "Glass Harbor",
				SubmissionDate: today.AddDate(0, -6, 0),
				Status:         models.StatusAccepted,
				ResponseDate:   day(-14),
			},
		}
		if err := tx.Create(&submissions).Error; err != nil {
			return fmt.Errorf("failed to create dev submissions: %w", err)
		}

		slog.Info("Seeded dev data", "users", 1, "submissions", len(submissions))
		return nil
	})
}
