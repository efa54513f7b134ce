package database

import (
	"os"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/campuscare/grievance-app/models"
	"github.com/campuscare/grievance-app/utils"
)

var defaultDepartments = []models.Department{
	{Name: "Academic Affairs", Description: "Course registration, grading and examination issues"},
	{Name: "Infrastructure", Description: "Campus buildings, classrooms and equipment"},
	{Name: "Hostel Administration", Description: "Hostel accommodation and maintenance"},
	{Name: "Food Services", Description: "Cafeteria and mess operations"},
	{Name: "IT Services", Description: "Network, accounts and campus software"},
}

// Seed provisions the baseline departments and the bootstrap admin
// account. It is idempotent: existing rows are left untouched.
func Seed(db *gorm.DB) error {
	for _, dept := range defaultDepartments {
		if err := db.Where(models.Department{Name: dept.Name}).
			FirstOrCreate(&models.Department{}, dept).Error; err != nil {
			return err
		}
	}

	adminEmail := strings.ToLower(os.Getenv("ADMIN_EMAIL"))
	if adminEmail == "" {
		adminEmail = "admin@campus.edu"
	}
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "ChangeMe123!"
	}

	var count int64
	if err := db.Model(&models.User{}).
		Where("email = ?", adminEmail).
		Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	admin := models.User{
		Email:     adminEmail,
		FirstName: "System",
		LastName:  "Administrator",
		Password:  string(hashed),
		Role:      models.RoleAdmin,
	}
	if err := db.Create(&admin).Error; err != nil {
		return err
	}

	utils.InfoLogger.Printf("Seeded admin account %s", adminEmail)
	return nil
}
