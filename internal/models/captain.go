package models

type Vehicle struct {
	Color       string `gorm:"size:50" json:"color"`
	Plate       string `gorm:"size:30" json:"plate"`
	Capacity    int    `json:"capacity"`
	VehicleType string `gorm:"size:20" json:"vehicleType"`
}

// Captain is a service provider whose location is tracked for proximity
// matching.
type Captain struct {
	Actor
	Vehicle        Vehicle `gorm:"embedded;embeddedPrefix:vehicle_" json:"vehicle"`
	DrivingLicense string  `gorm:"size:50" json:"drivingLicense"`
	Status         string  `gorm:"size:20;default:'inactive'" json:"status"`
}

func (Captain) TableName() string { return "captains" }

func (c *Captain) Base() *Actor    { return &c.Actor }
func (c *Captain) Kind() ActorKind { return KindCaptain }
