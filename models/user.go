package models

import "time"

type User struct {
	ID        string `gorm:"primaryKey" json:"id"`
	Email     string `gorm:"unique;not null" json:"email"`
	Phone     string `json:"phone"`
	Name      string `json:"name"`
	Provider  string `json:"provider"`
	CreatedAt time.Time
}
