package models

// User is a rider.
type User struct {
	Actor
}

func (User) TableName() string { return "users" }

func (u *User) Base() *Actor    { return &u.Actor }
func (u *User) Kind() ActorKind { return KindRider }
