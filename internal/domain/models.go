package domain

import (
	"time"
)

// ServiceType classifies a service case and doubles as its case code prefix
type ServiceType string

const (
	ServiceTypePM      ServiceType = "PM"
	ServiceTypeCM      ServiceType = "CM"
	ServiceTypeService ServiceType = "SERVICE"
)

// Service status literals. Status is free-form in storage; classification
// compares against these two exact values and defaults everything else to pending.
const (
	CaseStatusCompleted = "Completed"
	CaseStatusCancelled = "Cancelled"
	CaseStatusPending   = "Pending"
)

// WarrantyStatus is derived from the warranty window, never stored
type WarrantyStatus string

const (
	WarrantyStatusAll        WarrantyStatus = "all"
	WarrantyStatusActive     WarrantyStatus = "active"
	WarrantyStatusNearExpiry WarrantyStatus = "near_expiry"
	WarrantyStatusExpired    WarrantyStatus = "expired"
)

// NearExpiryWindow is how close to the end date a warranty counts as near-expiry
const NearExpiryWindow = 30 * 24 * time.Hour

// TechnicianStatus represents whether a technician is available for assignment
type TechnicianStatus string

const (
	TechnicianStatusActive   TechnicianStatus = "Active"
	TechnicianStatusInactive TechnicianStatus = "Inactive"
)

// StatusOf classifies an end date against now into exactly one warranty bucket
func StatusOf(endDate time.Time, now time.Time) WarrantyStatus {
	if endDate.Before(now) {
		return WarrantyStatusExpired
	}
	if !endDate.After(now.Add(NearExpiryWindow)) {
		return WarrantyStatusNearExpiry
	}
	return WarrantyStatusActive
}

// Company represents a customer organization. Entity IDs are strings in the
// canonical model: the relational backend maps them to integer identity keys,
// the linked-record backend uses its native record ids.
type Company struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	SecondaryName string    `json:"secondaryName,omitempty"`
	TaxID         string    `json:"taxId,omitempty"`
	ContactInfo   string    `json:"contactInfo,omitempty"`
	CreatedBy     string    `json:"createdBy,omitempty"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Product is a sold unit owned by a company. Serial numbers are not
// guaranteed globally unique.
type Product struct {
	ID            string     `json:"id"`
	CompanyID     string     `json:"companyId"`
	Name          string     `json:"name"`
	SerialNumber  string     `json:"serialNumber"`
	PurchaseDate  *time.Time `json:"purchaseDate,omitempty"`
	ContactPerson string     `json:"contactPerson,omitempty"`
	Branch        string     `json:"branch,omitempty"`
	Phone         string     `json:"phone,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
}

// Warranty is a coverage window for a product. Windows for the same product
// may overlap (renewals, added MA coverage); status is always derived.
type Warranty struct {
	ID                  string    `json:"id"`
	ProductID           string    `json:"productId"`
	StartDate           time.Time `json:"startDate"`
	EndDate             time.Time `json:"endDate"`
	Type                string    `json:"type,omitempty"`
	Notes               string    `json:"notes,omitempty"`
	PlannedMaintenances int       `json:"plannedMaintenances,omitempty"`
	CreatedAt           time.Time `json:"createdAt"`
}

// ServiceCase is a service ticket. Product and warranty references are both
// optional; a case linked only to a warranty resolves its product transitively.
type ServiceCase struct {
	ID             string      `json:"id"`
	CaseCode       string      `json:"caseCode"`
	Type           ServiceType `json:"type"`
	ProductID      string      `json:"productId,omitempty"`
	WarrantyID     string      `json:"warrantyId,omitempty"`
	EntryTime      *time.Time  `json:"entryTime,omitempty"`
	ExitTime       *time.Time  `json:"exitTime,omitempty"`
	Description    string      `json:"description,omitempty"`
	TechnicianName string      `json:"technicianName,omitempty"`
	TechnicianIDs  []string    `json:"technicianIds,omitempty"`
	Status         string      `json:"status,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

// StatusBucket maps the free-form status onto the three reporting buckets
func (c *ServiceCase) StatusBucket() string {
	switch c.Status {
	case CaseStatusCompleted:
		return CaseStatusCompleted
	case CaseStatusCancelled:
		return CaseStatusCancelled
	default:
		return CaseStatusPending
	}
}

// ServicePart is a spare part consumed by a service case. Linkage is by the
// case code string, not the case's record id -- an external-system constraint.
// The full set of parts for a case is always replaced together.
type ServicePart struct {
	ID         string `json:"id"`
	CaseCode   string `json:"caseCode"`
	PartNumber string `json:"partNumber"`
	Details    string `json:"details,omitempty"`
	Quantity   int    `json:"quantity"`
}

// Technician is a service engineer
type Technician struct {
	ID       string           `json:"id"`
	Name     string           `json:"name"`
	Position string           `json:"position,omitempty"`
	Email    string           `json:"email,omitempty"`
	Phone    string           `json:"phone,omitempty"`
	Status   TechnicianStatus `json:"status"`
}

// Attachment is a stored file linked to a service case
type Attachment struct {
	ID          string    `json:"id"`
	CaseCode    string    `json:"caseCode"`
	Filename    string    `json:"filename"`
	ContentType string    `json:"contentType"`
	Size        int64     `json:"size"`
	StoragePath string    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ProductQuery carries the list filters for products
type ProductQuery struct {
	Search   string
	Status   WarrantyStatus
	Page     int
	PageSize int
}

// CaseQuery carries the list filters for service cases
type CaseQuery struct {
	Search   string
	Type     ServiceType
	Status   string
	Page     int
	PageSize int
}

// StatsFilter narrows dashboard aggregates to a company name substring
// and/or a date range
type StatsFilter struct {
	Company string
	From    *time.Time
	To      *time.Time
}

// Normalize clamps paging values to sane bounds
func (q *ProductQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}
	if q.Status == "" {
		q.Status = WarrantyStatusAll
	}
}

// Normalize clamps paging values to sane bounds
func (q *CaseQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize < 1 || q.PageSize > 100 {
		q.PageSize = 20
	}
}
