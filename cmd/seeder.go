package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with sample data for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlxDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}

		db, err := gorm.Open(gormpostgres.New(gormpostgres.Config{Conn: sqlxDB.DB}), &gorm.Config{})
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"bookings", "slots", "payments", "transactions", "payment_methods", "sessions", "users"} {
				if err := db.Exec(fmt.Sprintf("DELETE FROM %s", table)).Error; err != nil {
					log.Fatalf("failed to clear table %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		password := "password"
		hash, _ := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)

		users := []struct {
			Email string
			Name  string
			Role  string
		}{
			{"anna.tutor@mail.com", "Anna Petrova", "tutor"},
			{"ivan.student@mail.com", "Ivan Sidorov", "student"},
			{"admin@mail.com", "Platform Admin", "admin"},
		}

		for _, u := range users {
			var exists int
			row := db.Raw("SELECT 1 FROM users WHERE email = ?", u.Email).Row()
			if err := row.Scan(&exists); err == nil {
				fmt.Println("user already exists:", u.Email)
				continue
			}

			if err := db.Exec(
				"INSERT INTO users (id, email, full_name, password_hash, role, created_at, updated_at) VALUES (?, ?, ?, ?, ?, now(), now())",
				uuid.NewString(), u.Email, u.Name, string(hash), u.Role,
			).Error; err != nil {
				log.Fatalf("failed to insert user %s: %v", u.Email, err)
			}
			fmt.Println("Seeded user:", u.Email)
		}

		var tutorID string
		if err := db.Raw("SELECT id FROM users WHERE email = ?", "anna.tutor@mail.com").Row().Scan(&tutorID); err != nil {
			log.Fatalf("failed to lookup tutor id: %v", err)
		}

		// a week of afternoon slots for the seeded tutor
		for day := 1; day <= 7; day++ {
			date := time.Now().AddDate(0, 0, day).Format("2006-01-02")
			for _, slotTime := range []string{"15:00", "16:00", "17:00"} {
				var exists int
				row := db.Raw("SELECT 1 FROM slots WHERE tutor_id = ? AND date = ? AND time = ?", tutorID, date, slotTime).Row()
				if err := row.Scan(&exists); err == nil {
					continue
				}

				if err := db.Exec(
					"INSERT INTO slots (id, tutor_id, date, time, status, created_at, updated_at) VALUES (?, ?, ?, ?, 'free', now(), now())",
					uuid.NewString(), tutorID, date, slotTime,
				).Error; err != nil {
					log.Fatalf("failed to insert slot %s %s: %v", date, slotTime, err)
				}
			}
		}

		fmt.Println("Seeded free slots for tutor:", tutorID)
	},
}
