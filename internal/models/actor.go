package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/raftaar/raftaar-backend/internal/geo"
)

// ActorKind names a specialization of Actor. The values double as the
// userType sent by realtime clients.
type ActorKind string

const (
	KindRider   ActorKind = "rider"
	KindCaptain ActorKind = "captain"
)

func (k ActorKind) Valid() bool {
	return k == KindRider || k == KindCaptain
}

// Account is implemented by every actor specialization.
type Account interface {
	Base() *Actor
	Kind() ActorKind
}

type FullName struct {
	FirstName string `gorm:"column:firstname;size:100;not null" json:"firstname"`
	LastName  string `gorm:"column:lastname;size:100" json:"lastname"`
}

// Actor is the verification and presence state shared by riders and captains.
// OTPs and the password hash never leave the server.
type Actor struct {
	ID             uuid.UUID        `gorm:"type:uuid;primaryKey" json:"_id"`
	FullName       FullName         `gorm:"embedded" json:"fullname"`
	Email          string           `gorm:"size:255;not null;uniqueIndex" json:"email"`
	MobileNumber   string           `gorm:"size:20;not null;uniqueIndex" json:"mobileNumber"`
	Password       string           `gorm:"not null" json:"-"`
	ProfilePhoto   string           `gorm:"size:500" json:"profilePhoto"`
	EmailVerified  bool             `gorm:"not null;default:false" json:"emailVerified"`
	MobileVerified bool             `gorm:"not null;default:false" json:"mobileVerified"`
	EmailOTP       string           `gorm:"column:email_otp;size:12" json:"-"`
	MobileOTP      string           `gorm:"column:mobile_otp;size:12" json:"-"`
	LastOTPSent    *time.Time       `gorm:"column:last_otp_sent" json:"-"`
	Location       *geo.StoredPoint `gorm:"type:jsonb" json:"-"`
	ChannelID      *string          `gorm:"size:64;index" json:"-"`
	CreatedAt      time.Time        `json:"createdAt"`
	UpdatedAt      time.Time        `json:"updatedAt"`
}

// FullyVerified reports whether both contact channels are verified.
func (a *Actor) FullyVerified() bool {
	return a.EmailVerified && a.MobileVerified
}

// Point returns the last known location in client order.
func (a *Actor) Point() (geo.Point, bool) {
	if a.Location == nil {
		return geo.Point{}, false
	}
	return a.Location.Point(), true
}
