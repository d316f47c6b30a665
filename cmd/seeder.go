package cmd

import (
	"fmt"
	"log"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	accesscodeDatamodel "github.com/rizkipratama/tierdocs/internal/core/datamodel/accesscode"
	userDatamodel "github.com/rizkipratama/tierdocs/internal/core/datamodel/user"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with sample data",
	Long:  `Seed the database with a sample tier hierarchy for development and testing purposes.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := loadConfig(".")
		if err != nil {
			log.Fatalf("failed to load config: %v", err)
		}

		sqlDB, err := initDB(cfg.Database)
		if err != nil {
			log.Fatalf("failed to init db: %v", err)
		}
		db, err := initGormDB(sqlDB)
		if err != nil {
			log.Fatalf("failed to init orm: %v", err)
		}

		if clearData {
			for _, table := range []string{"document_accesses", "documents", "access_code_redemptions", "access_codes", "users"} {
				if err := db.Exec("DELETE FROM " + table).Error; err != nil {
					log.Fatalf("failed to clear %s: %v", table, err)
				}
			}
			fmt.Println("Cleared existing data")
		}

		hash, _ := bcrypt.GenerateFromPassword([]byte("password"), cfg.Security.BCryptCost)

		admin := seedUser(db, &userDatamodel.User{
			Username:     "admin",
			Email:        "admin@tierdocs.local",
			Name:         "Root Admin",
			PasswordHash: string(hash),
			Department:   "Management",
			TierLevel:    1,
			IsActive:     true,
		})

		manager := seedUser(db, &userDatamodel.User{
			Username:     "manager",
			Email:        "manager@tierdocs.local",
			Name:         "Dept Manager",
			PasswordHash: string(hash),
			Department:   "Engineering",
			TierLevel:    2,
			ParentUserID: &admin.ID,
			IsActive:     true,
		})

		seedUser(db, &userDatamodel.User{
			Username:     "staff",
			Email:        "staff@tierdocs.local",
			Name:         "Staff Member",
			PasswordHash: string(hash),
			Department:   "Engineering",
			TierLevel:    3,
			ParentUserID: &manager.ID,
			IsActive:     true,
		})

		seedCode(db, &accesscodeDatamodel.AccessCode{
			Code:            "WELCOME1",
			IssuerID:        manager.ID,
			TargetTierLevel: 3,
			Department:      "Engineering",
			MaxUses:         5,
			ExpiresAt:       time.Now().AddDate(0, 1, 0),
			CreatedAt:       time.Now(),
		})

		fmt.Println("Seeding complete")
	},
}

func seedUser(db *gorm.DB, u *userDatamodel.User) *userDatamodel.User {
	var existing userDatamodel.User
	err := db.Where("username = ?", u.Username).First(&existing).Error
	if err == nil {
		fmt.Printf("user %s already exists\n", u.Username)
		return &existing
	}
	if err != gorm.ErrRecordNotFound {
		log.Fatalf("failed to check user %s: %v", u.Username, err)
	}

	if err := db.Create(u).Error; err != nil {
		log.Fatalf("failed to seed user %s: %v", u.Username, err)
	}
	fmt.Printf("seeded user %s (tier %d)\n", u.Username, u.TierLevel)
	return u
}

func seedCode(db *gorm.DB, c *accesscodeDatamodel.AccessCode) {
	var existing accesscodeDatamodel.AccessCode
	err := db.Where("code = ?", c.Code).First(&existing).Error
	if err == nil {
		fmt.Printf("access code %s already exists\n", c.Code)
		return
	}
	if err != gorm.ErrRecordNotFound {
		log.Fatalf("failed to check access code %s: %v", c.Code, err)
	}

	if err := db.Create(c).Error; err != nil {
		log.Fatalf("failed to seed access code %s: %v", c.Code, err)
	}
	fmt.Printf("seeded access code %s (tier %d, %d uses)\n", c.Code, c.TargetTierLevel, c.MaxUses)
}
