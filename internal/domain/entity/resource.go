package entity

import "time"

// Record holds the identity and soft-delete columns shared by business records.
type Record struct {
	ID        string     `gorm:"type:varchar(64);primaryKey" json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	Deleted   bool       `gorm:"not null;default:false;index" json:"deleted"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// GetRecord exposes the embedded record to generic repositories.
func (r *Record) GetRecord() *Record { return r }

// Catalog is a sellable offering in one region.
type Catalog struct {
	Record
	Region        string     `gorm:"type:varchar(64);index" json:"region"`
	CatalogName   string     `gorm:"type:varchar(255);not null" json:"catalog_name"`
	LifetimeStart time.Time  `json:"lifetime_start"`
	LifetimeEnd   *time.Time `json:"lifetime_end,omitempty"`
	Expansions    Document   `json:"expansions"`
}

// TableName overrides the gorm table name.
func (Catalog) TableName() string { return "catalogs" }

// Goods is a deliverable item that catalogs bundle.
type Goods struct {
	Record
	Region     string   `gorm:"type:varchar(64);index" json:"region"`
	GoodsName  string   `gorm:"type:varchar(255);not null" json:"goods_name"`
	Expansions Document `json:"expansions"`
}

// TableName overrides the gorm table name.
func (Goods) TableName() string { return "goods" }

// CatalogContents lists the goods included in a catalog.
type CatalogContents struct {
	Record
	CatalogID  string   `gorm:"type:varchar(64);index;not null" json:"catalog_id"`
	GoodsID    string   `gorm:"type:varchar(64);index;not null" json:"goods_id"`
	GoodsNum   int      `gorm:"not null;default:1" json:"goods_num"`
	Expansions Document `json:"expansions"`
}

// TableName overrides the gorm table name.
func (CatalogContents) TableName() string { return "catalog_contents" }

// CatalogScope restricts a catalog to a tenant scope over a period.
type CatalogScope struct {
	Record
	CatalogID     string     `gorm:"type:varchar(64);index;not null" json:"catalog_id"`
	Scope         string     `gorm:"type:varchar(64);index;not null" json:"scope"`
	LifetimeStart time.Time  `json:"lifetime_start"`
	LifetimeEnd   *time.Time `json:"lifetime_end,omitempty"`
}

// TableName overrides the gorm table name.
func (CatalogScope) TableName() string { return "catalog_scopes" }

// Price is the price of a catalog for a scope over a period.
type Price struct {
	Record
	CatalogID     string     `gorm:"type:varchar(64);index;not null" json:"catalog_id"`
	Scope         string     `gorm:"type:varchar(64);index" json:"scope"`
	Price         string     `gorm:"type:varchar(32);not null" json:"price"`
	Currency      string     `gorm:"type:varchar(8)" json:"currency"`
	LifetimeStart time.Time  `json:"lifetime_start"`
	LifetimeEnd   *time.Time `json:"lifetime_end,omitempty"`
}

// TableName overrides the gorm table name.
func (Price) TableName() string { return "prices" }

// Contract records that a tenant holds a catalog.
type Contract struct {
	Record
	ProjectID        string     `gorm:"type:varchar(64);index" json:"project_id"`
	ProjectName      string     `gorm:"type:varchar(255)" json:"project_name"`
	Region           string     `gorm:"type:varchar(64)" json:"region"`
	CatalogID        string     `gorm:"type:varchar(64);index" json:"catalog_id"`
	CatalogName      string     `gorm:"type:varchar(255)" json:"catalog_name"`
	GoodsID          string     `gorm:"type:varchar(64)" json:"goods_id"`
	NumOfGoods       int        `gorm:"not null;default:1" json:"num_of_goods"`
	TicketTemplateID string     `gorm:"type:varchar(64)" json:"ticket_template_id"`
	ApplicationID    string     `gorm:"type:varchar(64);index" json:"application_id"`
	ApplicationKind  string     `gorm:"type:varchar(64)" json:"application_kind"`
	ApplicantID      string     `gorm:"type:varchar(64)" json:"applicant_id"`
	ApplicantName    string     `gorm:"type:varchar(255)" json:"applicant_name"`
	ApplicationDate  time.Time  `json:"application_date"`
	LifetimeStart    time.Time  `json:"lifetime_start"`
	ExpirationDate   *time.Time `json:"expiration_date,omitempty"`
	Expansions       Document   `json:"expansions"`
}

// TableName overrides the gorm table name.
func (Contract) TableName() string { return "contracts" }

// IsActive reports whether the contract is live at t.
func (c *Contract) IsActive(t time.Time) bool {
	if c.Deleted {
		return false
	}
	return c.ExpirationDate == nil || c.ExpirationDate.After(t)
}
