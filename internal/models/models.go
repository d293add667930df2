package models

import "time"

type User struct {
	ID           int
	Username     string
	PasswordHash string
	IsAdmin      bool
}

// Tree is one catalog record. Absence is row absence, not a sentinel field.
type Tree struct {
	Name         string
	SerialNumber string
	Price        int64
	Quantity     int64
}

// Sapling is one purchase lot. A drained lot keeps its row with Quantity=0
// and is skipped by every scan.
type Sapling struct {
	ID        int64
	HolderID  int
	TreeName  string
	Price     int64
	Quantity  int64
	PlantedAt time.Time
}

type RewardSnapshot struct {
	HolderID  int
	TreeName  string
	Fruits    int64
	Flowers   int64
	Woods     int64
	ClaimedAt time.Time
}
