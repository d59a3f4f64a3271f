package domain

import "time"

// Gender values accepted on a seller profile.
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Seller owns products. Each seller has exactly one profile.
type Seller struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Profile   Profile   `json:"profile"`
	CreatedAt time.Time `json:"created_at"`
}

// Profile holds a seller's personal details. Birthday is an ISO date
// (YYYY-MM-DD) or empty.
type Profile struct {
	FirstName    string `json:"first_name" validate:"required,max=100"`
	LastName     string `json:"last_name" validate:"required,max=100"`
	Gender       string `json:"gender" validate:"required,oneof=male female other"`
	Birthday     string `json:"birthday,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Address      string `json:"address,omitempty" validate:"max=500"`
	EmailAddress string `json:"email_address,omitempty" validate:"omitempty,email"`
	Website      string `json:"website,omitempty" validate:"omitempty,url"`
}

// CreateSellerInput holds the parameters for registering a seller.
type CreateSellerInput struct {
	AccountID string  `json:"account_id" validate:"required,max=255"`
	Profile   Profile `json:"profile"`
}

// FullName returns "first last".
func (p Profile) FullName() string {
	return p.FirstName + " " + p.LastName
}
