package mapper

import (
	"strings"
	"time"

	"github.com/coretrack/warranty-api/internal/domain"
)

// ToCompanyDTO converts Company to CompanyDTO
func ToCompanyDTO(company *domain.Company) domain.CompanyDTO {
	return domain.CompanyDTO{
		ID:            company.ID,
		Name:          company.Name,
		SecondaryName: company.SecondaryName,
		TaxID:         company.TaxID,
		ContactInfo:   company.ContactInfo,
		CreatedAt:     domain.FormatTime(company.CreatedAt),
	}
}

// ToProductDTO converts Product to ProductDTO, deriving the warranty
// status from the product's coverage end at the given instant
func ToProductDTO(product *domain.Product, companyName string, latestExpiry *time.Time, now time.Time) domain.ProductDTO {
	dto := domain.ProductDTO{
		ID:             product.ID,
		CompanyID:      product.CompanyID,
		CompanyName:    companyName,
		Name:           product.Name,
		SerialNumber:   product.SerialNumber,
		ContactPerson:  product.ContactPerson,
		Branch:         product.Branch,
		Phone:          product.Phone,
		WarrantyStatus: domain.WarrantyStatusExpired,
	}
	if product.PurchaseDate != nil {
		dto.PurchaseDate = product.PurchaseDate.UTC().Format("2006-01-02")
	}
	if latestExpiry != nil {
		dto.WarrantyStatus = domain.StatusOf(*latestExpiry, now)
		dto.NearestExpiry = latestExpiry.UTC().Format("2006-01-02")
	}
	return dto
}

// ToWarrantyDTO converts Warranty to WarrantyDTO with its derived status
func ToWarrantyDTO(warranty *domain.Warranty, now time.Time) domain.WarrantyDTO {
	return domain.WarrantyDTO{
		ID:                  warranty.ID,
		ProductID:           warranty.ProductID,
		StartDate:           warranty.StartDate.UTC().Format("2006-01-02"),
		EndDate:             warranty.EndDate.UTC().Format("2006-01-02"),
		Type:                warranty.Type,
		Notes:               warranty.Notes,
		PlannedMaintenances: warranty.PlannedMaintenances,
		Status:              domain.StatusOf(warranty.EndDate, now),
	}
}

// ToCaseDTO converts ServiceCase to ServiceCaseDTO
func ToCaseDTO(c *domain.ServiceCase) domain.ServiceCaseDTO {
	dto := domain.ServiceCaseDTO{
		ID:             c.ID,
		CaseCode:       c.CaseCode,
		Type:           string(c.Type),
		ProductID:      c.ProductID,
		WarrantyID:     c.WarrantyID,
		Description:    c.Description,
		TechnicianName: c.TechnicianName,
		TechnicianIDs:  c.TechnicianIDs,
		Status:         c.StatusBucket(),
	}
	if c.EntryTime != nil {
		dto.EntryTime = domain.FormatTime(*c.EntryTime)
	}
	if c.ExitTime != nil {
		dto.ExitTime = domain.FormatTime(*c.ExitTime)
	}
	return dto
}

// ToPartDTO converts ServicePart to ServicePartDTO
func ToPartDTO(p *domain.ServicePart) domain.ServicePartDTO {
	return domain.ServicePartDTO{
		ID:         p.ID,
		CaseCode:   p.CaseCode,
		PartNumber: p.PartNumber,
		Details:    p.Details,
		Quantity:   p.Quantity,
	}
}

// NormalizePartNumber is the grouping key of the parts summary
func NormalizePartNumber(partNumber string) string {
	return strings.ToUpper(strings.TrimSpace(partNumber))
}

// LatestExpiry picks a product's coverage end: the latest warranty end
// date, or nil when the product has no warranties
func LatestExpiry(warranties []domain.Warranty) *time.Time {
	var latest *time.Time
	for i := range warranties {
		end := warranties[i].EndDate
		if latest == nil || end.After(*latest) {
			latest = &end
		}
	}
	return latest
}
