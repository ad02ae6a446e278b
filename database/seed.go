package database

import (
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"blogapi/models"
)

type SeedOptions struct {
	BcryptCost    int
	AdminEmail    string
	AdminPassword string
	Demo          bool
}

// Seed creates the roles registration depends on, plus the optional admin
// account and demo content. Safe to run on every start.
func Seed(db *gorm.DB, opts SeedOptions) error {
	return db.Transaction(func(tx *gorm.DB) error {
		if err := SeedRoles(tx); err != nil {
			return err
		}

		if opts.AdminEmail != "" && opts.AdminPassword != "" {
			if _, err := seedUser(tx, "Administrator", opts.AdminEmail, opts.AdminPassword, models.RoleAdmin, opts.BcryptCost); err != nil {
				return err
			}
		}

		if opts.Demo {
			if err := seedDemo(tx, opts.BcryptCost); err != nil {
				return err
			}
		}
		return nil
	})
}

func SeedRoles(db *gorm.DB) error {
	for _, name := range []string{models.RoleAdmin, models.RoleUser} {
		role := models.Role{Name: name}
		if err := db.Where(models.Role{Name: name}).FirstOrCreate(&role).Error; err != nil {
			return fmt.Errorf("seed role %s: %w", name, err)
		}
	}
	return nil
}

func seedUser(db *gorm.DB, name, email, password, roleName string, cost int) (*models.User, error) {
	var role models.Role
	if err := db.Where("name = ?", roleName).First(&role).Error; err != nil {
		return nil, fmt.Errorf("seed user %s: role %s: %w", email, roleName, err)
	}

	var user models.User
	err := db.Where("email = ?", email).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return nil, err
	}

	user = models.User{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		RoleID:       role.ID,
	}
	if err := db.Create(&user).Error; err != nil {
		return nil, fmt.Errorf("seed user %s: %w", email, err)
	}
	slog.Info("seeded user", "event", "db_seed_user", "module", "database", "email", email, "role", roleName)
	return &user, nil
}

func seedDemo(db *gorm.DB, cost int) error {
	julian, err := seedUser(db, "Julian Casablancas", "julian@example.com", "password", models.RoleUser, cost)
	if err != nil {
		return err
	}
	charlie, err := seedUser(db, "Charlie XCX", "charliexcx@example.com", "password", models.RoleUser, cost)
	if err != nil {
		return err
	}

	first := models.Post{Title: "Mi primer post"}
	if err := db.Where(models.Post{Title: first.Title}).
		Attrs(models.Post{UserID: julian.ID, Content: "Hola a todos, soy Julian y soy cantante"}).
		FirstOrCreate(&first).Error; err != nil {
		return err
	}

	second := models.Post{Title: "Algo interesante"}
	if err := db.Where(models.Post{Title: second.Title}).
		Attrs(models.Post{UserID: charlie.ID, Content: "Nieva en el desierto del Sahara"}).
		FirstOrCreate(&second).Error; err != nil {
		return err
	}

	comments := []models.Comment{
		{Content: "Hola, soy charlie!", PostID: first.ID, UserID: charlie.ID},
		{Content: "Wow!", PostID: second.ID, UserID: julian.ID},
	}
	for i := range comments {
		c := comments[i]
		if err := db.Where(models.Comment{Content: c.Content}).
			Attrs(models.Comment{PostID: c.PostID, UserID: c.UserID}).
			FirstOrCreate(&c).Error; err != nil {
			return err
		}
	}
	return nil
}
