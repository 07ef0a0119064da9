package database

import (
	"fmt"
	"log"
)

// defaultCategory is one entry of the built-in chore catalog.
type defaultCategory struct {
	Name            string
	Icon            string
	DefaultDuration int // minutes
	Color           string
}

var defaultCategories = []defaultCategory{
	{"Cooking", "🍳", 45, "#F97316"},
	{"Cleaning", "🧹", 60, "#8B5CF6"},
	{"Laundry", "👕", 30, "#3B82F6"},
	{"Grocery Shopping", "🛒", 60, "#10B981"},
	{"Dishes", "🍽️", 20, "#F59E0B"},
	{"Vacuuming", "🌀", 30, "#EC4899"},
	{"Taking Out Trash", "🗑️", 10, "#6B7280"},
	{"Yard Work", "🌿", 60, "#22C55E"},
	{"Home Repairs", "🔧", 90, "#EF4444"},
	{"Childcare", "👶", 120, "#A855F7"},
	{"Pet Care", "🐾", 30, "#D97706"},
	{"Errands", "🚗", 45, "#0EA5E9"},
	{"Organizing", "📦", 45, "#84CC16"},
	{"Bathroom Cleaning", "🚿", 25, "#06B6D4"},
	{"Meal Prep", "🥗", 30, "#FB923C"},
}

// SeedActivityCategories inserts the built-in chore catalog if the
// activity_categories table is empty. Existing catalogs are left untouched
// so renames/recolors made by operators survive restarts.
func (db *DB) SeedActivityCategories() error {
	var count int
	err := db.QueryRow("SELECT COUNT(*) FROM activity_categories").Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check category count: %w", err)
	}

	if count > 0 {
		log.Printf("Activity catalog already populated with %d categories", count)
		return nil
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	insertQuery := "INSERT INTO activity_categories (name, icon, default_duration, color) VALUES (?, ?, ?, ?)"
	for _, c := range defaultCategories {
		if _, err := tx.Exec(insertQuery, c.Name, c.Icon, c.DefaultDuration, c.Color); err != nil {
			return fmt.Errorf("failed to seed category %q: %w", c.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit category seed: %w", err)
	}

	log.Printf("Seeded %d default activity categories", len(defaultCategories))
	return nil
}
