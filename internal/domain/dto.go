package domain

import "time"

// CompanyDTO is the API representation of a company
type CompanyDTO struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	SecondaryName string `json:"secondaryName,omitempty"`
	TaxID         string `json:"taxId,omitempty"`
	ContactInfo   string `json:"contactInfo,omitempty"`
	CreatedAt     string `json:"createdAt"`
}

// ProductDTO is the API representation of a product, enriched with the
// owning company name and the derived warranty status
type ProductDTO struct {
	ID             string         `json:"id"`
	CompanyID      string         `json:"companyId"`
	CompanyName    string         `json:"companyName,omitempty"`
	Name           string         `json:"name"`
	SerialNumber   string         `json:"serialNumber"`
	PurchaseDate   string         `json:"purchaseDate,omitempty"`
	ContactPerson  string         `json:"contactPerson,omitempty"`
	Branch         string         `json:"branch,omitempty"`
	Phone          string         `json:"phone,omitempty"`
	WarrantyStatus WarrantyStatus `json:"warrantyStatus"`
	NearestExpiry  string         `json:"nearestExpiry,omitempty"`
}

// PagedProducts is the paginated product listing
type PagedProducts struct {
	Data       []ProductDTO `json:"data"`
	TotalCount int          `json:"totalCount"`
	Page       int          `json:"page"`
	PageSize   int          `json:"pageSize"`
}

// WarrantyDTO is the API representation of a warranty with its derived status
type WarrantyDTO struct {
	ID                  string         `json:"id"`
	ProductID           string         `json:"productId"`
	ProductName         string         `json:"productName,omitempty"`
	SerialNumber        string         `json:"serialNumber,omitempty"`
	CompanyName         string         `json:"companyName,omitempty"`
	StartDate           string         `json:"startDate"`
	EndDate             string         `json:"endDate"`
	Type                string         `json:"type,omitempty"`
	Notes               string         `json:"notes,omitempty"`
	PlannedMaintenances int            `json:"plannedMaintenances,omitempty"`
	Status              WarrantyStatus `json:"status"`
}

// ServiceCaseDTO is the API representation of a service case
type ServiceCaseDTO struct {
	ID             string   `json:"id"`
	CaseCode       string   `json:"caseCode"`
	Type           string   `json:"type"`
	ProductID      string   `json:"productId,omitempty"`
	WarrantyID     string   `json:"warrantyId,omitempty"`
	EntryTime      string   `json:"entryTime,omitempty"`
	ExitTime       string   `json:"exitTime,omitempty"`
	Description    string   `json:"description,omitempty"`
	TechnicianName string   `json:"technicianName,omitempty"`
	TechnicianIDs  []string `json:"technicianIds,omitempty"`
	Status         string   `json:"status"`
}

// ServicePartDTO is the API representation of a spare part row
type ServicePartDTO struct {
	ID         string `json:"id"`
	CaseCode   string `json:"caseCode"`
	PartNumber string `json:"partNumber"`
	Details    string `json:"details,omitempty"`
	Quantity   int    `json:"quantity"`
}

// ServiceCaseDetail joins a case with its resolved warranty, product and
// company. Dangling references come back as nil, never as an error.
type ServiceCaseDetail struct {
	Case     ServiceCaseDTO   `json:"case"`
	Warranty *WarrantyDTO     `json:"warranty"`
	Product  *ProductDTO      `json:"product"`
	Company  *CompanyDTO      `json:"company"`
	Parts    []ServicePartDTO `json:"parts"`
}

// PagedCases is the paginated service case listing
type PagedCases struct {
	Data       []ServiceCaseDTO `json:"data"`
	TotalCount int              `json:"totalCount"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
}

// MonthCount is one bar of the monthly service histogram, keyed as "2006-01"
type MonthCount struct {
	Month string `json:"month"`
	Count int    `json:"count"`
}

// DashboardStats is the multi-entity dashboard aggregate
type DashboardStats struct {
	TotalCompanies       int            `json:"totalCompanies"`
	TotalProducts        int            `json:"totalProducts"`
	TotalWarranties      int            `json:"totalWarranties"`
	ActiveWarranties     int            `json:"activeWarranties"`
	NearExpiryWarranties int            `json:"nearExpiryWarranties"`
	ExpiredWarranties    int            `json:"expiredWarranties"`
	TotalServices        int            `json:"totalServices"`
	CompletedServices    int            `json:"completedServices"`
	CancelledServices    int            `json:"cancelledServices"`
	PendingServices      int            `json:"pendingServices"`
	ServicesByType       map[string]int `json:"servicesByType"`
	ServicesByMonth      []MonthCount   `json:"servicesByMonth"`
	ExpiringSoon         []WarrantyDTO  `json:"expiringSoon"`
}

// PartUsage is one row of the grouped parts summary. Part numbers are
// normalized (trimmed, uppercased) before grouping.
type PartUsage struct {
	PartNumber    string `json:"partNumber"`
	TotalQuantity int    `json:"totalQuantity"`
	CaseCount     int    `json:"caseCount"`
}

// PartsSummary pairs the grouped view with the raw rows backing it
type PartsSummary struct {
	Usage []PartUsage      `json:"usage"`
	Rows  []ServicePartDTO `json:"rows"`
}

// CreateWarrantyRequest is the payload for creating a warranty
type CreateWarrantyRequest struct {
	ProductID           string `json:"productId" validate:"required"`
	StartDate           string `json:"startDate" validate:"required"`
	EndDate             string `json:"endDate" validate:"required"`
	Type                string `json:"type"`
	Notes               string `json:"notes"`
	PlannedMaintenances int    `json:"plannedMaintenances" validate:"gte=0,lte=60"`
}

// CreateCaseRequest is the payload for creating a service case
type CreateCaseRequest struct {
	Type           string      `json:"type" validate:"required,oneof=PM CM SERVICE"`
	ProductID      string      `json:"productId"`
	WarrantyID     string      `json:"warrantyId"`
	EntryTime      string      `json:"entryTime"`
	ExitTime       string      `json:"exitTime"`
	Description    string      `json:"description"`
	TechnicianName string      `json:"technicianName"`
	TechnicianIDs  []string    `json:"technicianIds"`
	Status         string      `json:"status"`
	Parts          []PartInput `json:"parts"`
}

// UpdateCaseRequest is a partial update; nil pointers leave fields untouched.
// A non-nil Parts slice triggers a full replacement of the case's parts.
type UpdateCaseRequest struct {
	ProductID      *string      `json:"productId"`
	WarrantyID     *string      `json:"warrantyId"`
	EntryTime      *string      `json:"entryTime"`
	ExitTime       *string      `json:"exitTime"`
	Description    *string      `json:"description"`
	TechnicianName *string      `json:"technicianName"`
	TechnicianIDs  *[]string    `json:"technicianIds"`
	Status         *string      `json:"status"`
	Parts          *[]PartInput `json:"parts"`
}

// PartInput is one spare part row in a create/update payload
type PartInput struct {
	PartNumber string `json:"partNumber" validate:"required"`
	Details    string `json:"details"`
	Quantity   int    `json:"quantity" validate:"gte=1"`
}

// CreateCompanyRequest is the payload for creating a company
type CreateCompanyRequest struct {
	Name          string `json:"name" validate:"required,max=200"`
	SecondaryName string `json:"secondaryName" validate:"max=200"`
	TaxID         string `json:"taxId" validate:"max=50"`
	ContactInfo   string `json:"contactInfo"`
}

// CreateProductRequest is the payload for creating a product
type CreateProductRequest struct {
	CompanyID     string `json:"companyId" validate:"required"`
	Name          string `json:"name" validate:"required,max=200"`
	SerialNumber  string `json:"serialNumber" validate:"required,max=100"`
	PurchaseDate  string `json:"purchaseDate"`
	ContactPerson string `json:"contactPerson"`
	Branch        string `json:"branch"`
	Phone         string `json:"phone"`
}

// CreateTechnicianRequest is the payload for creating a technician
type CreateTechnicianRequest struct {
	Name     string `json:"name" validate:"required,max=200"`
	Position string `json:"position"`
	Email    string `json:"email" validate:"omitempty,email"`
	Phone    string `json:"phone"`
}

// ParseDate accepts the two date layouts the callers send
func ParseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", s)
}

// FormatTime renders a timestamp the way every DTO in the API does
func FormatTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05Z")
}
