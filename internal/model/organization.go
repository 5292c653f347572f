package model

const (
	RequestPending  = "P"
	RequestApproved = "A"
	RequestRejected = "R"
)

// swagger:model
type Organization struct {
	BaseModel
	Name       string `gorm:"size:128;not null" json:"name"`
	Slug       string `gorm:"size:128;uniqueIndex;not null" json:"slug"`
	ShortName  string `gorm:"size:20" json:"shortName"`
	About      string `gorm:"type:text" json:"about"`
	Admins     []User `gorm:"many2many:organization_admins;" json:"admins,omitempty"`
	Members    []User `gorm:"many2many:organization_members;" json:"-"`
	IsOpen     bool   `gorm:"not null" json:"isOpen"`
	Slots      *int   `json:"slots,omitempty"`
	AccessCode string `gorm:"size:7" json:"-"`
	Logo       string `gorm:"size:255" json:"logo"`
}

func (Organization) TableName() string {
	return "organizations"
}

func (o *Organization) IsAdmin(userID uint) bool {
	for _, a := range o.Admins {
		if a.ID == userID {
			return true
		}
	}
	return false
}

// swagger:model
type OrganizationRequest struct {
	BaseModel
	UserID         uint          `gorm:"index;not null" json:"userId"`
	User           *User         `json:"user,omitempty"`
	OrganizationID uint          `gorm:"index;not null" json:"organizationId"`
	Organization   *Organization `json:"organization,omitempty"`
	State          string        `gorm:"size:1;default:'P';index" json:"state"`
	Reason         string        `gorm:"type:text" json:"reason"`
}

func (OrganizationRequest) TableName() string {
	return "organization_requests"
}
