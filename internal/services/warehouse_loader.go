package services

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"insurance-etl/internal/models"
	"insurance-etl/internal/repository"
)

// WarehouseLoader rebuilds the star schema from a cleaned dataset. The fact
// table is truncated and reloaded each run; dimensions are upserted so
// surrogate keys stay stable across runs.
type WarehouseLoader struct {
	dims        *repository.DimensionRepository
	facts       *repository.FactRepository
	strictEnums bool
}

func NewWarehouseLoader(dims *repository.DimensionRepository, facts *repository.FactRepository, strictEnums bool) *WarehouseLoader {
	return &WarehouseLoader{dims: dims, facts: facts, strictEnums: strictEnums}
}

// Load writes the dimensions and fact rows for one cleaned dataset and
// returns the number of fact rows loaded.
func (l *WarehouseLoader) Load(ctx context.Context, records []models.CleanRecord) (int, error) {
	if err := l.facts.Truncate(ctx); err != nil {
		return 0, err
	}
	if err := l.loadDates(ctx, records); err != nil {
		return 0, err
	}

	addressIDs := make(map[string]int64)
	customersSeen := make(map[string]bool)
	policiesSeen := make(map[string]bool)

	loaded := 0
	for i := range records {
		rec := &records[i]

		addrID, err := l.addressID(ctx, rec, addressIDs)
		if err != nil {
			return loaded, err
		}
		if err := l.upsertCustomer(ctx, rec, addrID, customersSeen); err != nil {
			return loaded, err
		}
		if err := l.upsertPolicy(ctx, rec, policiesSeen); err != nil {
			return loaded, err
		}

		fact := buildFact(rec, addrID)
		if err := l.facts.Insert(ctx, &fact); err != nil {
			return loaded, err
		}
		loaded++
	}

	log.Printf("[WarehouseLoader] loaded %d fact rows, %d customers, %d policies, %d addresses",
		loaded, len(customersSeen), len(policiesSeen), len(addressIDs))
	return loaded, nil
}

// loadDates upserts every distinct calendar date referenced by the dataset.
func (l *WarehouseLoader) loadDates(ctx context.Context, records []models.CleanRecord) error {
	seen := make(map[int]models.DimDate)
	for i := range records {
		for _, d := range []models.NullDate{
			records[i].DOB,
			records[i].EffectiveStartDt,
			records[i].EffectiveEndDt,
			records[i].PolicyStartDt,
			records[i].PolicyEndDt,
			records[i].NextPremiumDt,
			records[i].ActualPremiumPaidDt,
		} {
			if !d.Valid {
				continue
			}
			dim := models.NewDimDate(d.Time)
			seen[dim.DateID] = dim
		}
	}

	dates := make([]models.DimDate, 0, len(seen))
	for _, dim := range seen {
		dates = append(dates, dim)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].DateID < dates[j].DateID })

	if err := l.dims.UpsertDates(ctx, dates); err != nil {
		return fmt.Errorf("failed to load date dimension: %w", err)
	}
	return nil
}

func (l *WarehouseLoader) addressID(ctx context.Context, rec *models.CleanRecord, cache map[string]int64) (int64, error) {
	addr := models.DimAddress{
		Country:         deref(rec.Country),
		Region:          string(rec.Region),
		StateOrProvince: deref(rec.StateOrProvince),
		City:            deref(rec.City),
		PostalCode:      deref(rec.PostalCode),
	}
	key := strings.Join([]string{addr.Country, addr.Region, addr.StateOrProvince, addr.City, addr.PostalCode}, "||")
	if id, ok := cache[key]; ok {
		return id, nil
	}
	id, err := l.dims.GetOrCreateAddress(ctx, addr)
	if err != nil {
		return 0, err
	}
	cache[key] = id
	return id, nil
}

func (l *WarehouseLoader) upsertCustomer(ctx context.Context, rec *models.CleanRecord, addrID int64, seen map[string]bool) error {
	if seen[rec.CustomerID] {
		return nil
	}
	seen[rec.CustomerID] = true

	cust := models.DimCustomer{
		CustomerKey:     rec.CustomerID,
		CustomerName:    rec.CustomerName,
		CustomerSegment: rec.CustomerSegment,
		MaritalStatus:   l.maritalValue(rec.MaritalStatus),
		Gender:          l.genderValue(rec.Gender),
		DOBID:           dateIDPtr(rec.DOB),
		AddressID:       &addrID,
	}
	return l.dims.UpsertCustomer(ctx, cust)
}

func (l *WarehouseLoader) upsertPolicy(ctx context.Context, rec *models.CleanRecord, seen map[string]bool) error {
	if rec.PolicyID == "" || seen[rec.PolicyID] {
		return nil
	}
	seen[rec.PolicyID] = true

	policy := models.DimPolicy{
		PolicyID:       rec.PolicyID,
		PolicyName:     rec.PolicyName,
		PolicyTypeID:   rec.PolicyTypeID,
		PolicyType:     rec.PolicyType,
		PolicyTypeDesc: rec.PolicyTypeDesc,
		PolicyTerm:     rec.PolicyTerm,
	}
	return l.dims.UpsertPolicy(ctx, policy)
}

// maritalValue applies the strict-enum mode: strict stores Unknown as NULL,
// the default keeps the Unknown token as a queryable category.
func (l *WarehouseLoader) maritalValue(m models.MaritalStatus) *models.MaritalStatus {
	if l.strictEnums && m == models.MaritalUnknown {
		return nil
	}
	return &m
}

func (l *WarehouseLoader) genderValue(g models.Gender) *models.Gender {
	if l.strictEnums && g == models.GenderUnknown {
		return nil
	}
	return &g
}

func buildFact(rec *models.CleanRecord, addrID int64) models.FactPolicyPayment {
	fact := models.FactPolicyPayment{
		CustomerKey:             rec.CustomerID,
		PolicyID:                rec.PolicyID,
		AddressID:               &addrID,
		EffectiveStartDateID:    dateIDPtr(rec.EffectiveStartDt),
		EffectiveEndDateID:      dateIDPtr(rec.EffectiveEndDt),
		PolicyStartDateID:       dateIDPtr(rec.PolicyStartDt),
		PolicyEndDateID:         dateIDPtr(rec.PolicyEndDt),
		NextPremiumDateID:       dateIDPtr(rec.NextPremiumDt),
		ActualPremiumPaidDateID: dateIDPtr(rec.ActualPremiumPaidDt),
		PremiumAmt:              rec.PremiumAmt,
		TotalPolicyAmt:          rec.TotalPolicyAmt,
		PremiumAmtPaidTillDate:  rec.PremiumPaidTillDate,
	}
	if delay, ok := rec.DaysDelay(); ok {
		fact.DaysDelay = &delay
	}
	return fact
}

func dateIDPtr(d models.NullDate) *int {
	if !d.Valid {
		return nil
	}
	id := models.DateID(d.Time)
	return &id
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
