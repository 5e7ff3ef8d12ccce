package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleAlumni Role = "ALUMNI"
	RoleAdmin  Role = "ADMIN"
)

// Account is the authenticated identity. Credential issuance and password
// handling live with the auth service; this backend only reads accounts to
// verify tokens and resolve profiles.
type Account struct {
	ID        string         `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	Email        string `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string `json:"-"`
	Role         Role   `gorm:"type:text;default:'ALUMNI'" json:"role"`
	IsActive     bool   `gorm:"default:true" json:"isActive"`
	IsVerified   bool   `gorm:"default:false" json:"isVerified"`

	Profile *AlumniProfile `gorm:"foreignKey:AccountID" json:"profile,omitempty"`
}

func (a *Account) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return
}

// AlumniProfile is the directory record members see of each other. Every
// messaging entity references profile IDs, never account IDs; the identity
// resolver translates at each boundary.
type AlumniProfile struct {
	ID        string         `gorm:"primaryKey;type:text" json:"id"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// One profile per account, enforced at the schema level.
	AccountID string `gorm:"uniqueIndex;type:text;not null" json:"accountId"`

	FirstName      string `json:"firstName"`
	LastName       string `json:"lastName"`
	ProfilePicture string `json:"profilePicture"`
	BatchYear      int    `json:"batchYear"`
	Branch         string `json:"branch"`

	Account Account `gorm:"foreignKey:AccountID" json:"-"`
}

func (p *AlumniProfile) BeforeCreate(tx *gorm.DB) (err error) {
	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	return
}

// FullName joins first and last name for message enrichment payloads.
func (p *AlumniProfile) FullName() string {
	if p.LastName == "" {
		return p.FirstName
	}
	return p.FirstName + " " + p.LastName
}
