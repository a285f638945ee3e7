// Package aggregate computes the multi-entity dashboard figures. Neither
// backend can join server-side across all five collections, so the engine
// fetches each entity set and joins in-memory, classifying fresh on every
// call -- nothing here is cached across requests.
package aggregate

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/coretrack/warranty-api/internal/domain"
	"github.com/coretrack/warranty-api/internal/mapper"
	"go.uber.org/zap"
)

// Reader is the slice of the backend contract the engine needs
type Reader interface {
	ListCompanies(ctx context.Context, query string) ([]domain.Company, error)
	AllProducts(ctx context.Context) ([]domain.Product, error)
	AllWarranties(ctx context.Context) ([]domain.Warranty, error)
	AllCases(ctx context.Context) ([]domain.ServiceCase, error)
	ListParts(ctx context.Context, caseCode string) ([]domain.ServicePart, error)
}

// Engine joins companies, products, warranties and services in-memory
type Engine struct {
	reader Reader
	logger *zap.Logger
	now    func() time.Time
}

// NewEngine creates an aggregation engine over the given backend
func NewEngine(reader Reader, logger *zap.Logger) *Engine {
	return &Engine{reader: reader, logger: logger, now: time.Now}
}

// joined is the filtered working set shared by both aggregate operations
type joined struct {
	companies    map[string]domain.Company
	products     map[string]domain.Product
	warranties   []domain.Warranty
	cases        []domain.ServiceCase
	companyScope bool
}

// load fetches and filters the working set. With a company filter active,
// products narrow to the retained companies and services without a
// resolvable product drop out; without one, dangling services stay in.
func (e *Engine) load(ctx context.Context, filter domain.StatsFilter) (*joined, error) {
	companies, err := e.reader.ListCompanies(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch companies: %w", err)
	}
	products, err := e.reader.AllProducts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch products: %w", err)
	}
	warranties, err := e.reader.AllWarranties(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch warranties: %w", err)
	}
	cases, err := e.reader.AllCases(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch services: %w", err)
	}

	j := &joined{
		companies:    make(map[string]domain.Company),
		products:     make(map[string]domain.Product),
		companyScope: filter.Company != "",
	}

	needle := strings.ToLower(filter.Company)
	for _, c := range companies {
		if j.companyScope &&
			!strings.Contains(strings.ToLower(c.Name), needle) &&
			!strings.Contains(strings.ToLower(c.SecondaryName), needle) {
			continue
		}
		j.companies[c.ID] = c
	}

	for _, p := range products {
		if j.companyScope {
			if _, ok := j.companies[p.CompanyID]; !ok {
				continue
			}
		}
		j.products[p.ID] = p
	}

	warrantyByID := make(map[string]domain.Warranty, len(warranties))
	for _, w := range warranties {
		warrantyByID[w.ID] = w
		if j.companyScope {
			// Dangling warranties survive an unfiltered view (the
			// classification only needs their dates) but not a
			// company-scoped one
			if _, ok := j.products[w.ProductID]; !ok {
				continue
			}
		}
		if filter.From != nil && w.StartDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && w.StartDate.After(*filter.To) {
			continue
		}
		j.warranties = append(j.warranties, w)
	}

	for _, c := range cases {
		productID := c.ProductID
		if productID == "" && c.WarrantyID != "" {
			// A case linked only to a warranty resolves its product
			// transitively
			if w, ok := warrantyByID[c.WarrantyID]; ok {
				productID = w.ProductID
			}
		}
		if j.companyScope {
			if _, ok := j.products[productID]; !ok {
				continue
			}
		}
		if filter.From != nil && (c.EntryTime == nil || c.EntryTime.Before(*filter.From)) {
			continue
		}
		if filter.To != nil && (c.EntryTime == nil || c.EntryTime.After(*filter.To)) {
			continue
		}
		j.cases = append(j.cases, c)
	}

	return j, nil
}

// DashboardStats computes the warranty buckets, service histograms and
// expiring-soon list for the filtered working set
func (e *Engine) DashboardStats(ctx context.Context, filter domain.StatsFilter) (*domain.DashboardStats, error) {
	j, err := e.load(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := e.now()

	stats := &domain.DashboardStats{
		TotalCompanies:  len(j.companies),
		TotalProducts:   len(j.products),
		TotalWarranties: len(j.warranties),
		TotalServices:   len(j.cases),
		ServicesByType:  make(map[string]int),
	}

	var expiring []domain.WarrantyDTO
	for i := range j.warranties {
		w := j.warranties[i]
		switch domain.StatusOf(w.EndDate, now) {
		case domain.WarrantyStatusExpired:
			stats.ExpiredWarranties++
		case domain.WarrantyStatusNearExpiry:
			stats.NearExpiryWarranties++
			dto := mapper.ToWarrantyDTO(&w, now)
			if p, ok := j.products[w.ProductID]; ok {
				dto.ProductName = p.Name
				dto.SerialNumber = p.SerialNumber
				if c, ok := j.companies[p.CompanyID]; ok {
					dto.CompanyName = c.Name
				}
			}
			expiring = append(expiring, dto)
		case domain.WarrantyStatusActive:
			stats.ActiveWarranties++
		}
	}
	sort.SliceStable(expiring, func(i, k int) bool {
		if expiring[i].EndDate != expiring[k].EndDate {
			return expiring[i].EndDate < expiring[k].EndDate
		}
		return expiring[i].ID < expiring[k].ID
	})
	stats.ExpiringSoon = expiring

	months := make(map[string]int)
	for i := range j.cases {
		c := j.cases[i]
		switch c.StatusBucket() {
		case domain.CaseStatusCompleted:
			stats.CompletedServices++
		case domain.CaseStatusCancelled:
			stats.CancelledServices++
		default:
			stats.PendingServices++
		}
		// New type strings get their own bucket automatically
		typeKey := string(c.Type)
		if typeKey == "" {
			typeKey = string(domain.ServiceTypeService)
		}
		stats.ServicesByType[typeKey]++

		if c.EntryTime != nil {
			months[c.EntryTime.UTC().Format("2006-01")]++
		}
	}

	keys := make([]string, 0, len(months))
	for k := range months {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	stats.ServicesByMonth = make([]domain.MonthCount, len(keys))
	for i, k := range keys {
		stats.ServicesByMonth[i] = domain.MonthCount{Month: k, Count: months[k]}
	}

	return stats, nil
}

// PartsSummary restricts part rows to the retained service set, then sums
// quantity grouped by normalized part number alongside the raw rows
func (e *Engine) PartsSummary(ctx context.Context, filter domain.StatsFilter) (*domain.PartsSummary, error) {
	j, err := e.load(ctx, filter)
	if err != nil {
		return nil, err
	}

	parts, err := e.reader.ListParts(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to fetch parts: %w", err)
	}

	retained := make(map[string]bool, len(j.cases))
	for _, c := range j.cases {
		if c.CaseCode != "" {
			retained[c.CaseCode] = true
		}
	}

	type usage struct {
		total int
		cases map[string]bool
	}
	grouped := make(map[string]*usage)
	var rows []domain.ServicePartDTO

	for i := range parts {
		p := parts[i]
		if !retained[p.CaseCode] {
			continue
		}
		rows = append(rows, mapper.ToPartDTO(&p))

		key := mapper.NormalizePartNumber(p.PartNumber)
		u, ok := grouped[key]
		if !ok {
			u = &usage{cases: make(map[string]bool)}
			grouped[key] = u
		}
		u.total += p.Quantity
		u.cases[p.CaseCode] = true
	}

	summary := &domain.PartsSummary{Rows: rows}
	for key, u := range grouped {
		summary.Usage = append(summary.Usage, domain.PartUsage{
			PartNumber:    key,
			TotalQuantity: u.total,
			CaseCount:     len(u.cases),
		})
	}
	sort.SliceStable(summary.Usage, func(i, k int) bool {
		if summary.Usage[i].TotalQuantity != summary.Usage[k].TotalQuantity {
			return summary.Usage[i].TotalQuantity > summary.Usage[k].TotalQuantity
		}
		return summary.Usage[i].PartNumber < summary.Usage[k].PartNumber
	})

	return summary, nil
}
