package relational

import (
	"strconv"
	"time"

	"github.com/coretrack/warranty-api/internal/domain"
	"gorm.io/gorm"
)

// Row types are the relational shape of the canonical entities: integer
// identity keys and foreign-key columns. Conversion to and from the domain
// model is this backend's half of the record mapper.

type companyRow struct {
	ID            uint      `gorm:"primaryKey;autoIncrement"`
	Name          string    `gorm:"type:varchar(200);not null;index"`
	SecondaryName string    `gorm:"type:varchar(200);column:secondary_name"`
	TaxID         string    `gorm:"type:varchar(50);column:tax_id;index"`
	ContactInfo   string    `gorm:"type:text;column:contact_info"`
	CreatedBy     string    `gorm:"type:varchar(100);column:created_by"`
	CreatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (companyRow) TableName() string { return "companies" }

type productRow struct {
	ID            uint       `gorm:"primaryKey;autoIncrement"`
	CompanyID     uint       `gorm:"not null;index;column:company_id"`
	Name          string     `gorm:"type:varchar(200);not null;index"`
	SerialNumber  string     `gorm:"type:varchar(100);not null;index;column:serial_number"`
	PurchaseDate  *time.Time `gorm:"column:purchase_date"`
	ContactPerson string     `gorm:"type:varchar(200);column:contact_person"`
	Branch        string     `gorm:"type:varchar(200)"`
	Phone         string     `gorm:"type:varchar(50)"`
	CreatedAt     time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt     time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (productRow) TableName() string { return "products" }

type warrantyRow struct {
	ID                  uint      `gorm:"primaryKey;autoIncrement"`
	ProductID           uint      `gorm:"not null;index;column:product_id"`
	StartDate           time.Time `gorm:"not null;column:start_date"`
	EndDate             time.Time `gorm:"not null;index;column:end_date"`
	Type                string    `gorm:"type:varchar(100)"`
	Notes               string    `gorm:"type:text"`
	PlannedMaintenances int       `gorm:"column:planned_maintenances"`
	CreatedAt           time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt           time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (warrantyRow) TableName() string { return "warranties" }

type serviceCaseRow struct {
	ID             uint       `gorm:"primaryKey;autoIncrement"`
	CaseCode       string     `gorm:"type:varchar(50);not null;uniqueIndex;column:case_code"`
	Type           string     `gorm:"type:varchar(20);not null;index"`
	ProductID      *uint      `gorm:"index;column:product_id"`
	WarrantyID     *uint      `gorm:"index;column:warranty_id"`
	EntryTime      *time.Time `gorm:"column:entry_time"`
	ExitTime       *time.Time `gorm:"column:exit_time"`
	Description    string     `gorm:"type:text"`
	TechnicianName string     `gorm:"type:varchar(200);column:technician_name"`
	TechnicianIDs  []string   `gorm:"serializer:json;column:technician_ids"`
	Status         string     `gorm:"type:varchar(50);index"`
	CreatedAt      time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time  `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (serviceCaseRow) TableName() string { return "service_cases" }

type servicePartRow struct {
	ID         uint      `gorm:"primaryKey;autoIncrement"`
	CaseCode   string    `gorm:"type:varchar(50);not null;index;column:case_code"`
	PartNumber string    `gorm:"type:varchar(100);not null;column:part_number"`
	Details    string    `gorm:"type:text"`
	Quantity   int       `gorm:"not null;default:1"`
	CreatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (servicePartRow) TableName() string { return "service_parts" }

type technicianRow struct {
	ID        uint      `gorm:"primaryKey;autoIncrement"`
	Name      string    `gorm:"type:varchar(200);not null"`
	Position  string    `gorm:"type:varchar(200)"`
	Email     string    `gorm:"type:varchar(255)"`
	Phone     string    `gorm:"type:varchar(50)"`
	Status    string    `gorm:"type:varchar(20);not null;default:'Active'"`
	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (technicianRow) TableName() string { return "technicians" }

type attachmentRow struct {
	ID          uint      `gorm:"primaryKey;autoIncrement"`
	CaseCode    string    `gorm:"type:varchar(50);not null;index;column:case_code"`
	Filename    string    `gorm:"type:varchar(255);not null"`
	ContentType string    `gorm:"type:varchar(100);column:content_type"`
	Size        int64     `gorm:"not null"`
	StoragePath string    `gorm:"type:varchar(500);not null;column:storage_path"`
	CreatedAt   time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (attachmentRow) TableName() string { return "attachments" }

// caseSequenceRow is one claimed sequence per case code prefix. Claims are
// made under a row lock so concurrent creators never share a number.
type caseSequenceRow struct {
	Prefix     string    `gorm:"type:varchar(20);primaryKey"`
	LastNumber int       `gorm:"not null;column:last_number"`
	UpdatedAt  time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"`
}

func (caseSequenceRow) TableName() string { return "case_sequences" }

func formatID(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

// parseID maps a canonical string id onto the integer identity key.
// Anything unparsable is treated as a reference to nothing.
func parseID(id string) (uint, bool) {
	if id == "" {
		return 0, false
	}
	n, err := strconv.ParseUint(id, 10, 32)
	if err != nil {
		return 0, false
	}
	return uint(n), true
}

func parseOptionalID(id string) *uint {
	if n, ok := parseID(id); ok {
		return &n
	}
	return nil
}

func formatOptionalID(id *uint) string {
	if id == nil {
		return ""
	}
	return formatID(*id)
}

func (r *companyRow) toDomain() domain.Company {
	return domain.Company{
		ID:            formatID(r.ID),
		Name:          r.Name,
		SecondaryName: r.SecondaryName,
		TaxID:         r.TaxID,
		ContactInfo:   r.ContactInfo,
		CreatedBy:     r.CreatedBy,
		CreatedAt:     r.CreatedAt,
	}
}

func companyToRow(c *domain.Company) companyRow {
	row := companyRow{
		Name:          c.Name,
		SecondaryName: c.SecondaryName,
		TaxID:         c.TaxID,
		ContactInfo:   c.ContactInfo,
		CreatedBy:     c.CreatedBy,
	}
	if id, ok := parseID(c.ID); ok {
		row.ID = id
	}
	return row
}

func (r *productRow) toDomain() domain.Product {
	return domain.Product{
		ID:            formatID(r.ID),
		CompanyID:     formatID(r.CompanyID),
		Name:          r.Name,
		SerialNumber:  r.SerialNumber,
		PurchaseDate:  r.PurchaseDate,
		ContactPerson: r.ContactPerson,
		Branch:        r.Branch,
		Phone:         r.Phone,
		CreatedAt:     r.CreatedAt,
	}
}

func productToRow(p *domain.Product) productRow {
	row := productRow{
		Name:          p.Name,
		SerialNumber:  p.SerialNumber,
		PurchaseDate:  p.PurchaseDate,
		ContactPerson: p.ContactPerson,
		Branch:        p.Branch,
		Phone:         p.Phone,
	}
	if id, ok := parseID(p.ID); ok {
		row.ID = id
	}
	if id, ok := parseID(p.CompanyID); ok {
		row.CompanyID = id
	}
	return row
}

func (r *warrantyRow) toDomain() domain.Warranty {
	return domain.Warranty{
		ID:                  formatID(r.ID),
		ProductID:           formatID(r.ProductID),
		StartDate:           r.StartDate,
		EndDate:             r.EndDate,
		Type:                r.Type,
		Notes:               r.Notes,
		PlannedMaintenances: r.PlannedMaintenances,
		CreatedAt:           r.CreatedAt,
	}
}

func warrantyToRow(w *domain.Warranty) warrantyRow {
	row := warrantyRow{
		StartDate:           w.StartDate,
		EndDate:             w.EndDate,
		Type:                w.Type,
		Notes:               w.Notes,
		PlannedMaintenances: w.PlannedMaintenances,
	}
	if id, ok := parseID(w.ID); ok {
		row.ID = id
	}
	if id, ok := parseID(w.ProductID); ok {
		row.ProductID = id
	}
	return row
}

func (r *serviceCaseRow) toDomain() domain.ServiceCase {
	return domain.ServiceCase{
		ID:             formatID(r.ID),
		CaseCode:       r.CaseCode,
		Type:           domain.ServiceType(r.Type),
		ProductID:      formatOptionalID(r.ProductID),
		WarrantyID:     formatOptionalID(r.WarrantyID),
		EntryTime:      r.EntryTime,
		ExitTime:       r.ExitTime,
		Description:    r.Description,
		TechnicianName: r.TechnicianName,
		TechnicianIDs:  r.TechnicianIDs,
		Status:         r.Status,
		CreatedAt:      r.CreatedAt,
	}
}

func caseToRow(c *domain.ServiceCase) serviceCaseRow {
	row := serviceCaseRow{
		CaseCode:       c.CaseCode,
		Type:           string(c.Type),
		ProductID:      parseOptionalID(c.ProductID),
		WarrantyID:     parseOptionalID(c.WarrantyID),
		EntryTime:      c.EntryTime,
		ExitTime:       c.ExitTime,
		Description:    c.Description,
		TechnicianName: c.TechnicianName,
		TechnicianIDs:  c.TechnicianIDs,
		Status:         c.Status,
	}
	if id, ok := parseID(c.ID); ok {
		row.ID = id
	}
	return row
}

func (r *servicePartRow) toDomain() domain.ServicePart {
	return domain.ServicePart{
		ID:         formatID(r.ID),
		CaseCode:   r.CaseCode,
		PartNumber: r.PartNumber,
		Details:    r.Details,
		Quantity:   r.Quantity,
	}
}

func partToRow(p *domain.ServicePart) servicePartRow {
	row := servicePartRow{
		CaseCode:   p.CaseCode,
		PartNumber: p.PartNumber,
		Details:    p.Details,
		Quantity:   p.Quantity,
	}
	if id, ok := parseID(p.ID); ok {
		row.ID = id
	}
	return row
}

func (r *technicianRow) toDomain() domain.Technician {
	return domain.Technician{
		ID:       formatID(r.ID),
		Name:     r.Name,
		Position: r.Position,
		Email:    r.Email,
		Phone:    r.Phone,
		Status:   domain.TechnicianStatus(r.Status),
	}
}

func technicianToRow(t *domain.Technician) technicianRow {
	row := technicianRow{
		Name:     t.Name,
		Position: t.Position,
		Email:    t.Email,
		Phone:    t.Phone,
		Status:   string(t.Status),
	}
	if id, ok := parseID(t.ID); ok {
		row.ID = id
	}
	return row
}

func (r *attachmentRow) toDomain() domain.Attachment {
	return domain.Attachment{
		ID:          formatID(r.ID),
		CaseCode:    r.CaseCode,
		Filename:    r.Filename,
		ContentType: r.ContentType,
		Size:        r.Size,
		StoragePath: r.StoragePath,
		CreatedAt:   r.CreatedAt,
	}
}

func attachmentToRow(a *domain.Attachment) attachmentRow {
	row := attachmentRow{
		CaseCode:    a.CaseCode,
		Filename:    a.Filename,
		ContentType: a.ContentType,
		Size:        a.Size,
		StoragePath: a.StoragePath,
	}
	if id, ok := parseID(a.ID); ok {
		row.ID = id
	}
	return row
}

// Migrate creates the relational schema. Used by the sqlite-backed tests;
// production schemas are managed with goose migrations.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&companyRow{},
		&productRow{},
		&warrantyRow{},
		&serviceCaseRow{},
		&servicePartRow{},
		&technicianRow{},
		&attachmentRow{},
		&caseSequenceRow{},
	)
}
