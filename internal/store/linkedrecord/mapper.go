package linkedrecord

import (
	"fmt"
	"time"

	"github.com/coretrack/warranty-api/internal/domain"
)

// Record mapper for the linked-record representation.
//
// Reads tolerate the store's historical field-name drift: each logical
// field is resolved through a fixed priority list of spellings, taking the
// first non-empty value. Linked-record fields arrive as arrays of record
// ids; the first element is the scalar foreign key. A missing link maps to
// an empty reference, never an error -- only malformed primitives (an
// unparsable date, a non-numeric quantity) produce a mapping error, which
// the caller logs and skips.
//
// Writes wrap scalar foreign keys back into single-element arrays and omit
// empty values entirely: the store cannot distinguish "unset" from
// "cleared", and sending empty strings corrupts linked fields. The literal
// strings "undefined" and "null" are legacy client artifacts and are
// treated as unset. This is a known limitation of the emulated backend.

// Field spellings in priority order. The first spelling is canonical and
// used on write.
var (
	companyNameFields      = []string{"Name"}
	companySecondaryFields = []string{"Secondary Name", "Secondary name"}
	companyTaxIDFields     = []string{"Tax ID", "TaxId"}
	companyContactFields   = []string{"Contact Info", "Contact info"}
	companyCreatorFields   = []string{"Created By"}

	productCompanyFields  = []string{"Company"}
	productNameFields     = []string{"Name"}
	productSerialFields   = []string{"Serial Number", "Serial number"}
	productPurchaseFields = []string{"Purchase Date", "Purchase date"}
	productContactFields  = []string{"Contact Person"}
	productBranchFields   = []string{"Branch"}
	productPhoneFields    = []string{"Phone"}

	warrantyProductFields = []string{"Product"}
	warrantyStartFields   = []string{"Start Date", "Start date"}
	warrantyEndFields     = []string{"End Date", "End date"}
	warrantyTypeFields    = []string{"Type"}
	warrantyNotesFields   = []string{"Notes"}
	warrantyPMCountFields = []string{"Planned Maintenances", "PM Count"}

	serviceCodeFields     = []string{"Case Code", "Case code"}
	serviceTypeFields     = []string{"Type"}
	serviceProductFields  = []string{"Product"}
	serviceWarrantyFields = []string{"Warranty"}
	serviceEntryFields    = []string{"Entry Time", "Entry time"}
	serviceExitFields     = []string{"Exit Time", "Exit time"}
	serviceDescFields     = []string{"Description"}
	serviceTechNameFields = []string{"Technician", "Technician Name"}
	serviceTechIDsFields  = []string{"Technicians"}
	serviceStatusFields   = []string{"Status"}

	partCaseCodeFields = []string{"Case Code", "Case code"}
	partNumberFields   = []string{"Part Number", "Part number"}
	partDetailsFields  = []string{"Details"}
	partQuantityFields = []string{"Quantity", "Qty"}

	attCaseCodeFields = []string{"Case Code", "Case code"}
	attFilenameFields = []string{"Filename", "File Name"}
	attContentFields  = []string{"Content Type"}
	attSizeFields     = []string{"Size"}
	attPathFields     = []string{"Storage Path"}

	techNameFields     = []string{"Name"}
	techPositionFields = []string{"Position"}
	techEmailFields    = []string{"Email"}
	techPhoneFields    = []string{"Phone"}
	techStatusFields   = []string{"Status"}
)

// Denormalized product fields maintained by the warranty write path and
// repaired by the nightly sync job. They exist so status filtering and
// expiry sorting do not recompute over every warranty on every query.
const (
	fieldWarrantyStatus = "Warranty Status"
	fieldNearestExpiry  = "Nearest Expiry"
)

func isUnset(v interface{}) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == "" || t == "undefined" || t == "null"
	default:
		return false
	}
}

// stringField resolves the first non-empty string under the given
// spellings
func stringField(fields map[string]interface{}, names []string) string {
	for _, name := range names {
		v, ok := fields[name]
		if !ok || isUnset(v) {
			continue
		}
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// linkField resolves a linked-record field to its scalar foreign key: the
// first element of the id array, or the value itself when the store holds
// a scalar. Missing and empty links resolve to "".
func linkField(fields map[string]interface{}, names []string) string {
	for _, name := range names {
		v, ok := fields[name]
		if !ok || isUnset(v) {
			continue
		}
		switch t := v.(type) {
		case []interface{}:
			if len(t) == 0 {
				continue
			}
			if s, ok := t[0].(string); ok && s != "" {
				return s
			}
		case string:
			return t
		}
	}
	return ""
}

func stringListField(fields map[string]interface{}, names []string) []string {
	for _, name := range names {
		v, ok := fields[name]
		if !ok || isUnset(v) {
			continue
		}
		arr, ok := v.([]interface{})
		if !ok {
			continue
		}
		out := make([]string, 0, len(arr))
		for _, item := range arr {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		if len(out) > 0 {
			return out
		}
	}
	return nil
}

func numberField(fields map[string]interface{}, names []string) (int, bool) {
	for _, name := range names {
		v, ok := fields[name]
		if !ok || isUnset(v) {
			continue
		}
		switch t := v.(type) {
		case float64:
			return int(t), true
		case int:
			return t, true
		case int64:
			return int(t), true
		}
	}
	return 0, false
}

// dateField parses the first non-empty date under the given spellings.
// A malformed value is a mapping error; a missing one is not.
func dateField(fields map[string]interface{}, names []string, entity, recordID string) (*time.Time, error) {
	for _, name := range names {
		v, ok := fields[name]
		if !ok || isUnset(v) {
			continue
		}
		s, ok := v.(string)
		if !ok {
			return nil, domain.NewMappingError(entity, recordID, name, fmt.Errorf("expected string date, got %T", v))
		}
		t, err := domain.ParseDate(s)
		if err != nil {
			return nil, domain.NewMappingError(entity, recordID, name, err)
		}
		return &t, nil
	}
	return nil, nil
}

// setField writes a value under its canonical spelling, omitting unset
// values entirely
func setField(fields map[string]interface{}, names []string, value interface{}) {
	if isUnset(value) {
		return
	}
	fields[names[0]] = value
}

// setLink wraps a scalar foreign key as a single-element id array
func setLink(fields map[string]interface{}, names []string, id string) {
	if isUnset(id) {
		return
	}
	fields[names[0]] = []string{id}
}

func companyToDomain(rec *record) domain.Company {
	return domain.Company{
		ID:            rec.ID,
		Name:          stringField(rec.Fields, companyNameFields),
		SecondaryName: stringField(rec.Fields, companySecondaryFields),
		TaxID:         stringField(rec.Fields, companyTaxIDFields),
		ContactInfo:   stringField(rec.Fields, companyContactFields),
		CreatedBy:     stringField(rec.Fields, companyCreatorFields),
		CreatedAt:     rec.CreatedTime,
	}
}

func companyToFields(c *domain.Company) map[string]interface{} {
	fields := map[string]interface{}{}
	setField(fields, companyNameFields, c.Name)
	setField(fields, companySecondaryFields, c.SecondaryName)
	setField(fields, companyTaxIDFields, c.TaxID)
	setField(fields, companyContactFields, c.ContactInfo)
	setField(fields, companyCreatorFields, c.CreatedBy)
	return fields
}

func productToDomain(rec *record) (domain.Product, error) {
	purchase, err := dateField(rec.Fields, productPurchaseFields, "product", rec.ID)
	if err != nil {
		return domain.Product{}, err
	}
	return domain.Product{
		ID:            rec.ID,
		CompanyID:     linkField(rec.Fields, productCompanyFields),
		Name:          stringField(rec.Fields, productNameFields),
		SerialNumber:  stringField(rec.Fields, productSerialFields),
		PurchaseDate:  purchase,
		ContactPerson: stringField(rec.Fields, productContactFields),
		Branch:        stringField(rec.Fields, productBranchFields),
		Phone:         stringField(rec.Fields, productPhoneFields),
		CreatedAt:     rec.CreatedTime,
	}, nil
}

func productToFields(p *domain.Product) map[string]interface{} {
	fields := map[string]interface{}{}
	setLink(fields, productCompanyFields, p.CompanyID)
	setField(fields, productNameFields, p.Name)
	setField(fields, productSerialFields, p.SerialNumber)
	if p.PurchaseDate != nil {
		setField(fields, productPurchaseFields, p.PurchaseDate.UTC().Format("2006-01-02"))
	}
	setField(fields, productContactFields, p.ContactPerson)
	setField(fields, productBranchFields, p.Branch)
	setField(fields, productPhoneFields, p.Phone)
	return fields
}

func warrantyToDomain(rec *record) (domain.Warranty, error) {
	start, err := dateField(rec.Fields, warrantyStartFields, "warranty", rec.ID)
	if err != nil {
		return domain.Warranty{}, err
	}
	end, err := dateField(rec.Fields, warrantyEndFields, "warranty", rec.ID)
	if err != nil {
		return domain.Warranty{}, err
	}
	w := domain.Warranty{
		ID:        rec.ID,
		ProductID: linkField(rec.Fields, warrantyProductFields),
		Type:      stringField(rec.Fields, warrantyTypeFields),
		Notes:     stringField(rec.Fields, warrantyNotesFields),
		CreatedAt: rec.CreatedTime,
	}
	if start != nil {
		w.StartDate = *start
	}
	if end != nil {
		w.EndDate = *end
	}
	if n, ok := numberField(rec.Fields, warrantyPMCountFields); ok {
		w.PlannedMaintenances = n
	}
	return w, nil
}

func warrantyToFields(w *domain.Warranty) map[string]interface{} {
	fields := map[string]interface{}{}
	setLink(fields, warrantyProductFields, w.ProductID)
	if !w.StartDate.IsZero() {
		setField(fields, warrantyStartFields, w.StartDate.UTC().Format("2006-01-02"))
	}
	if !w.EndDate.IsZero() {
		setField(fields, warrantyEndFields, w.EndDate.UTC().Format("2006-01-02"))
	}
	setField(fields, warrantyTypeFields, w.Type)
	setField(fields, warrantyNotesFields, w.Notes)
	if w.PlannedMaintenances > 0 {
		setField(fields, warrantyPMCountFields, w.PlannedMaintenances)
	}
	return fields
}

func caseToDomain(rec *record) (domain.ServiceCase, error) {
	entry, err := dateField(rec.Fields, serviceEntryFields, "service", rec.ID)
	if err != nil {
		return domain.ServiceCase{}, err
	}
	exit, err := dateField(rec.Fields, serviceExitFields, "service", rec.ID)
	if err != nil {
		return domain.ServiceCase{}, err
	}
	return domain.ServiceCase{
		ID:             rec.ID,
		CaseCode:       stringField(rec.Fields, serviceCodeFields),
		Type:           domain.ServiceType(stringField(rec.Fields, serviceTypeFields)),
		ProductID:      linkField(rec.Fields, serviceProductFields),
		WarrantyID:     linkField(rec.Fields, serviceWarrantyFields),
		EntryTime:      entry,
		ExitTime:       exit,
		Description:    stringField(rec.Fields, serviceDescFields),
		TechnicianName: stringField(rec.Fields, serviceTechNameFields),
		TechnicianIDs:  stringListField(rec.Fields, serviceTechIDsFields),
		Status:         stringField(rec.Fields, serviceStatusFields),
		CreatedAt:      rec.CreatedTime,
	}, nil
}

func caseToFields(c *domain.ServiceCase) map[string]interface{} {
	fields := map[string]interface{}{}
	setField(fields, serviceCodeFields, c.CaseCode)
	setField(fields, serviceTypeFields, string(c.Type))
	setLink(fields, serviceProductFields, c.ProductID)
	setLink(fields, serviceWarrantyFields, c.WarrantyID)
	if c.EntryTime != nil {
		setField(fields, serviceEntryFields, c.EntryTime.UTC().Format(time.RFC3339))
	}
	if c.ExitTime != nil {
		setField(fields, serviceExitFields, c.ExitTime.UTC().Format(time.RFC3339))
	}
	setField(fields, serviceDescFields, c.Description)
	setField(fields, serviceTechNameFields, c.TechnicianName)
	if len(c.TechnicianIDs) > 0 {
		fields[serviceTechIDsFields[0]] = c.TechnicianIDs
	}
	setField(fields, serviceStatusFields, c.Status)
	return fields
}

func partToDomain(rec *record) (domain.ServicePart, error) {
	p := domain.ServicePart{
		ID:         rec.ID,
		CaseCode:   stringField(rec.Fields, partCaseCodeFields),
		PartNumber: stringField(rec.Fields, partNumberFields),
		Details:    stringField(rec.Fields, partDetailsFields),
		Quantity:   1,
	}
	for _, name := range partQuantityFields {
		v, ok := rec.Fields[name]
		if !ok || isUnset(v) {
			continue
		}
		n, ok := v.(float64)
		if !ok {
			return domain.ServicePart{}, domain.NewMappingError("part", rec.ID, name, fmt.Errorf("expected number, got %T", v))
		}
		p.Quantity = int(n)
		break
	}
	return p, nil
}

func partToFields(p *domain.ServicePart) map[string]interface{} {
	fields := map[string]interface{}{}
	setField(fields, partCaseCodeFields, p.CaseCode)
	setField(fields, partNumberFields, p.PartNumber)
	setField(fields, partDetailsFields, p.Details)
	if p.Quantity > 0 {
		setField(fields, partQuantityFields, p.Quantity)
	}
	return fields
}

func attachmentToDomain(rec *record) domain.Attachment {
	a := domain.Attachment{
		ID:          rec.ID,
		CaseCode:    stringField(rec.Fields, attCaseCodeFields),
		Filename:    stringField(rec.Fields, attFilenameFields),
		ContentType: stringField(rec.Fields, attContentFields),
		StoragePath: stringField(rec.Fields, attPathFields),
		CreatedAt:   rec.CreatedTime,
	}
	if n, ok := numberField(rec.Fields, attSizeFields); ok {
		a.Size = int64(n)
	}
	return a
}

func attachmentToFields(a *domain.Attachment) map[string]interface{} {
	fields := map[string]interface{}{}
	setField(fields, attCaseCodeFields, a.CaseCode)
	setField(fields, attFilenameFields, a.Filename)
	setField(fields, attContentFields, a.ContentType)
	if a.Size > 0 {
		setField(fields, attSizeFields, a.Size)
	}
	setField(fields, attPathFields, a.StoragePath)
	return fields
}

func technicianToDomain(rec *record) domain.Technician {
	status := domain.TechnicianStatus(stringField(rec.Fields, techStatusFields))
	if status == "" {
		status = domain.TechnicianStatusActive
	}
	return domain.Technician{
		ID:       rec.ID,
		Name:     stringField(rec.Fields, techNameFields),
		Position: stringField(rec.Fields, techPositionFields),
		Email:    stringField(rec.Fields, techEmailFields),
		Phone:    stringField(rec.Fields, techPhoneFields),
		Status:   status,
	}
}

func technicianToFields(t *domain.Technician) map[string]interface{} {
	fields := map[string]interface{}{}
	setField(fields, techNameFields, t.Name)
	setField(fields, techPositionFields, t.Position)
	setField(fields, techEmailFields, t.Email)
	setField(fields, techPhoneFields, t.Phone)
	setField(fields, techStatusFields, string(t.Status))
	return fields
}
