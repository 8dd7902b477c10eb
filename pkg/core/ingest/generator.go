// Package ingest synthesises a hospital equipment fleet for development
// and demos: a registry spread across facilities, ten years of work
// order history whose failure rates follow a bathtub curve, service
// contracts matched to asset age, and PM schedules. Generation is
// deterministic for a fixed seed.
package ingest

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"gorm.io/gorm"

	"equipcost_forecast/pkg/core/calc"
	"equipcost_forecast/pkg/core/config"
	"equipcost_forecast/pkg/core/store"
	"equipcost_forecast/pkg/models"
)

// DefaultSeed keeps repeated runs reproducible when the profile does not
// pin one.
const DefaultSeed = 42

// HistoryYears is how far back generated work order history reaches.
const HistoryYears = 10

var pmOrderTypes = []string{
	models.WOTypePreventiveMaintenance,
	models.WOTypeSafetyInspection,
	models.WOTypeCalibration,
}

var technicianTypes = []string{models.TechInHouse, models.TechOEM, models.TechThirdPartyISO}

var rootCauses = []string{
	"Normal wear",
	"Component fatigue",
	"Electrical fault",
	"Software error",
	"Calibration drift",
	"User error",
	"Power surge",
	"Fluid leak",
	"Mechanical failure",
	"Sensor degradation",
	"",
}

var isoProviders = []string{"Aramark", "TRIMEDX", "Sodexo HTM", "Agiliti"}

// contractFractions is annual contract cost as a fraction of acquisition
// cost, by contract type.
var contractFractions = map[string][2]float64{
	models.ContractFullService:      {0.08, 0.12},
	models.ContractPreventiveOnly:   {0.03, 0.05},
	models.ContractPartsOnly:        {0.02, 0.04},
	models.ContractTimeAndMaterials: {0.01, 0.02},
	models.ContractPerCall:          {0.005, 0.015},
}

var pmTypeNames = map[int]string{
	1:  "monthly_inspection",
	3:  "quarterly_calibration",
	6:  "semi_annual_pm",
	12: "annual_pm",
}

// Counts reports how many rows one generation run inserted.
type Counts struct {
	Equipment   int `json:"equipment"`
	WorkOrders  int `json:"work_orders"`
	Contracts   int `json:"contracts"`
	PMSchedules int `json:"pm_schedules"`
}

// Generator builds the synthetic fleet described by a config profile.
type Generator struct {
	rng     *rand.Rand
	profile config.FleetProfile
	classes map[string]config.ClassProfile
	today   time.Time
	start   time.Time

	equipment *store.EquipmentRepo
	orders    *store.WorkOrderRepo
	contracts *store.ContractRepo
}

// NewGenerator creates a generator over conn. History runs from January 1
// ten years before asOf up to asOf.
func NewGenerator(conn *gorm.DB, profile config.FleetProfile, asOf time.Time) *Generator {
	seed := profile.Seed
	if seed == 0 {
		seed = DefaultSeed
	}
	classes := make(map[string]config.ClassProfile, len(profile.Classes))
	for _, c := range profile.Classes {
		classes[c.Name] = c
	}
	return &Generator{
		rng:       rand.New(rand.NewSource(seed)),
		profile:   profile,
		classes:   classes,
		today:     asOf,
		start:     time.Date(asOf.Year()-HistoryYears, time.January, 1, 0, 0, 0, 0, time.UTC),
		equipment: store.NewEquipmentRepo(conn),
		orders:    store.NewWorkOrderRepo(conn),
		contracts: store.NewContractRepo(conn),
	}
}

// Generate runs every stage: registry, work orders, contracts, PM
// schedules.
func (g *Generator) Generate(ctx context.Context) (Counts, error) {
	if len(g.profile.Classes) == 0 {
		return Counts{}, fmt.Errorf("fleet profile has no equipment classes")
	}

	fleet, err := g.generateEquipment(ctx)
	if err != nil {
		return Counts{}, err
	}
	counts := Counts{Equipment: len(fleet)}

	if counts.WorkOrders, err = g.generateWorkOrders(ctx, fleet); err != nil {
		return counts, err
	}
	if counts.Contracts, err = g.generateContracts(ctx, fleet); err != nil {
		return counts, err
	}
	if counts.PMSchedules, err = g.generatePMSchedules(ctx, fleet); err != nil {
		return counts, err
	}
	return counts, nil
}

// generateEquipment spreads acquisition dates over roughly fifteen years,
// clamped so every asset has history coverage, and marks assets past
// their useful life as candidates for retirement.
func (g *Generator) generateEquipment(ctx context.Context) ([]models.Equipment, error) {
	var fleet []models.Equipment
	counter := 0

	for _, class := range g.profile.Classes {
		for i := 0; i < class.Count; i++ {
			counter++
			ageYears := g.uniform(0, 15)
			acquired := g.today.AddDate(0, 0, -int(ageYears*365.25))
			if acquired.Before(g.start) {
				acquired = g.randomDate(g.start, g.start.AddDate(0, 0, 365))
			}

			manufacturer := pick(g.rng, class.Manufacturers)
			install := acquired.AddDate(0, 0, g.randInt(7, 90))
			warranty := acquired.AddDate(0, 0, 365*pick(g.rng, []int{1, 2, 3}))

			ageMonths := int(ageYears * 12)
			status := models.StatusActive
			switch {
			case ageMonths > class.UsefulLifeMonths+36:
				status = pick(g.rng, []string{
					models.StatusActive, models.StatusActive,
					models.StatusInactive, models.StatusPendingReplacement,
				})
			case ageMonths > class.UsefulLifeMonths:
				status = pick(g.rng, []string{
					models.StatusActive, models.StatusActive, models.StatusPendingReplacement,
				})
			}

			fleet = append(fleet, models.Equipment{
				AssetTag:                 fmt.Sprintf("EQ-%d-%04d", acquired.Year(), counter),
				SerialNumber:             fmt.Sprintf("SN-%s%06d", strings.ToUpper(manufacturer[:2]), g.randInt(100000, 999999)),
				EquipmentClass:           class.Name,
				Manufacturer:             manufacturer,
				ModelName:                pick(g.rng, class.Models),
				FacilityID:               pick(g.rng, g.profile.Facilities),
				Department:               pick(g.rng, g.profile.Departments),
				AcquisitionDate:          acquired,
				AcquisitionCost:          calc.Round2(g.uniform(class.CostMin, class.CostMax)),
				InstallationDate:         &install,
				WarrantyExpiration:       &warranty,
				ExpectedUsefulLifeMonths: class.UsefulLifeMonths,
				Status:                   status,
			})
		}
	}

	if err := g.equipment.CreateBatch(ctx, fleet); err != nil {
		return nil, err
	}
	return fleet, nil
}

// generateWorkOrders writes scheduled maintenance at the class PM cadence
// and corrective repairs whose spacing follows the asset's bathtub
// failure rate, with costs escalating as the asset ages.
func (g *Generator) generateWorkOrders(ctx context.Context, fleet []models.Equipment) (int, error) {
	count := 0
	var batch []models.WorkOrder

	for i := range fleet {
		eq := &fleet[i]
		class := g.classes[eq.EquipmentClass]

		start := eq.AcquisitionDate
		if eq.InstallationDate != nil {
			start = *eq.InstallationDate
		}
		if start.Before(g.start) {
			start = g.start
		}

		step := class.PMFrequencyMonths * 30
		for pmDate := start.AddDate(0, 0, step); !pmDate.After(g.today); pmDate = pmDate.AddDate(0, 0, step) {
			count++
			// The base service charge lands in the vendor column so the
			// labor/parts/vendor split still sums to the total.
			serviceCost := calc.Round2(g.uniform(class.PMCostMin, class.PMCostMax))
			parts := calc.Round2(serviceCost * g.uniform(0.1, 0.4))
			laborHours := calc.Round2(g.uniform(1, 8))
			laborCost := calc.Round2(laborHours * g.uniform(75, 150))
			completed := pmDate.AddDate(0, 0, g.randInt(0, 2))

			batch = append(batch, models.WorkOrder{
				EquipmentID:     eq.ID,
				WorkOrderNumber: fmt.Sprintf("WO-%07d", count),
				WOType:          pick(g.rng, pmOrderTypes),
				Priority:        models.PriorityScheduled,
				OpenedDate:      pmDate,
				CompletedDate:   &completed,
				Description:     fmt.Sprintf("Scheduled %s maintenance", eq.EquipmentClass),
				LaborHours:      laborHours,
				LaborCost:       laborCost,
				PartsCost:       parts,
				VendorCost:      serviceCost,
				TotalCost:       calc.Round2(laborCost + parts + serviceCost),
				DowntimeHours:   calc.Round2(g.uniform(1, 8)),
				TechnicianType:  pick(g.rng, technicianTypes),
			})
		}

		current := start
		for {
			ageYears := current.Sub(eq.AcquisitionDate).Hours() / 24 / 365.25
			annualRate := g.bathtubRepairRate(ageYears)
			daysToNext := int(365.25 / math.Max(annualRate, 0.1))
			if daysToNext = daysToNext + g.randInt(-60, 60); daysToNext < 30 {
				daysToNext = 30
			}
			current = current.AddDate(0, 0, daysToNext)
			if current.After(g.today) {
				break
			}

			count++
			ageAtRepair := current.Sub(eq.AcquisitionDate).Hours() / 24 / 365.25
			laborCost := g.escalatedCost(math.Floor(class.RepairCostMin/3), math.Floor(class.RepairCostMax/3), ageAtRepair)
			partsCost := g.escalatedPartsCost(g.uniform(class.RepairCostMin*0.3, class.RepairCostMax*0.5), ageAtRepair)
			vendorCost := 0.0
			if g.rng.Float64() < 0.3 {
				vendorCost = calc.Round2(g.uniform(500, class.RepairCostMax))
			}

			priority := g.weightedPriority()
			downtime := calc.Round2(g.uniform(2, 72))
			if priority == models.PriorityEmergency {
				downtime = calc.Round2(g.uniform(4, 168))
			}
			completed := current.AddDate(0, 0, g.randInt(0, 14))

			batch = append(batch, models.WorkOrder{
				EquipmentID:     eq.ID,
				WorkOrderNumber: fmt.Sprintf("WO-%07d", count),
				WOType:          models.WOTypeCorrectiveRepair,
				Priority:        priority,
				OpenedDate:      current,
				CompletedDate:   &completed,
				Description:     fmt.Sprintf("Corrective repair for %s", eq.EquipmentClass),
				RootCause:       pick(g.rng, rootCauses),
				LaborHours:      calc.Round2(g.uniform(2, 24)),
				LaborCost:       laborCost,
				PartsCost:       partsCost,
				VendorCost:      vendorCost,
				TotalCost:       calc.Round2(laborCost + partsCost + vendorCost),
				DowntimeHours:   downtime,
				TechnicianType:  pick(g.rng, technicianTypes),
			})
		}
	}

	if err := g.orders.CreateBatch(ctx, batch); err != nil {
		return 0, err
	}
	return count, nil
}

// generateContracts matches coverage to asset age: OEM full service while
// young, mixed OEM and ISO coverage mid-life, thin or no coverage when
// old.
func (g *Generator) generateContracts(ctx context.Context, fleet []models.Equipment) (int, error) {
	var batch []models.ServiceContract

	for i := range fleet {
		eq := &fleet[i]
		ageYears := g.today.Sub(eq.AcquisitionDate).Hours() / 24 / 365.25

		var types, providers []string
		switch {
		case ageYears <= 3:
			types = []string{models.ContractFullService}
			providers = []string{eq.Manufacturer}
		case ageYears <= 7:
			if g.rng.Float64() < 0.6 {
				types = []string{models.ContractFullService, models.ContractPreventiveOnly}
				providers = []string{eq.Manufacturer, pick(g.rng, isoProviders)}
			} else {
				types = []string{models.ContractPartsOnly}
				providers = []string{pick(g.rng, isoProviders)}
			}
		default:
			if g.rng.Float64() < 0.3 {
				continue // in-house only
			}
			if g.rng.Intn(2) == 0 {
				types = []string{models.ContractTimeAndMaterials}
			} else {
				types = []string{models.ContractPerCall}
			}
			providers = []string{pick(g.rng, []string{"TRIMEDX", "Sodexo HTM", "Agiliti", "local_iso"})}
		}

		for j, ct := range types {
			frac := contractFractions[ct]
			start := eq.AcquisitionDate.AddDate(0, 0, 365)
			if eq.WarrantyExpiration != nil {
				start = *eq.WarrantyExpiration
			}
			end := start.AddDate(0, 0, 365*pick(g.rng, []int{1, 2, 3}))

			contract := models.ServiceContract{
				EquipmentID:       eq.ID,
				ContractType:      ct,
				Provider:          providers[j],
				AnnualCost:        calc.Round2(eq.AcquisitionCost * g.uniform(frac[0], frac[1])),
				StartDate:         &start,
				EndDate:           &end,
				IncludesParts:     ct == models.ContractFullService || ct == models.ContractPartsOnly,
				IncludesLabor:     ct == models.ContractFullService,
				IncludesPM:        ct == models.ContractFullService || ct == models.ContractPreventiveOnly,
				ResponseTimeHours: pick(g.rng, []int{2, 4, 8, 24}),
			}
			if ct == models.ContractFullService {
				contract.UptimeGuaranteePct = calc.Round2(g.uniform(95.0, 99.5))
			}
			batch = append(batch, contract)
		}
	}

	if err := g.contracts.CreateBatch(ctx, batch); err != nil {
		return 0, err
	}
	return len(batch), nil
}

// generatePMSchedules gives every asset its class cadence plus an annual
// PM when the cadence is shorter than a year.
func (g *Generator) generatePMSchedules(ctx context.Context, fleet []models.Equipment) (int, error) {
	var batch []models.PMSchedule

	for i := range fleet {
		eq := &fleet[i]
		class := g.classes[eq.EquipmentClass]

		frequencies := []int{class.PMFrequencyMonths}
		if class.PMFrequencyMonths != 12 {
			frequencies = append(frequencies, 12)
		}

		for _, freq := range frequencies {
			name, ok := pmTypeNames[freq]
			if !ok {
				name = fmt.Sprintf("every_%d_months", freq)
			}
			lastDone := g.today.AddDate(0, 0, -g.randInt(1, freq*30))
			nextDue := lastDone.AddDate(0, 0, freq*30)

			batch = append(batch, models.PMSchedule{
				EquipmentID:            eq.ID,
				PMType:                 name,
				FrequencyMonths:        freq,
				EstimatedDurationHours: math.Round(g.uniform(1, 8)*10) / 10,
				EstimatedCost:          calc.Round2(g.uniform(class.PMCostMin, class.PMCostMax)),
				LastCompleted:          &lastDone,
				NextDue:                &nextDue,
			})
		}
	}

	if err := g.contracts.CreatePMSchedules(ctx, batch); err != nil {
		return 0, err
	}
	return len(batch), nil
}

// bathtubRepairRate is the annual corrective repair rate at a given age:
// elevated infant failures, a flat useful period, then wear-out climbing
// to a cap of four repairs a year.
func (g *Generator) bathtubRepairRate(ageYears float64) float64 {
	switch {
	case ageYears < 1:
		return g.uniform(0.5, 1.5)
	case ageYears < 7:
		return g.uniform(0.3, 0.8)
	default:
		return math.Min(1.0+0.3*(ageYears-7), 4.0)
	}
}

// escalatedCost draws a base repair cost and escalates it with age.
//
// FORMULA: cost = U(min, max) * (1 + 0.08*age)^1.5
func (g *Generator) escalatedCost(baseMin, baseMax, ageYears float64) float64 {
	base := g.uniform(baseMin, baseMax)
	return calc.Round2(base * math.Pow(1+0.08*ageYears, 1.5))
}

// escalatedPartsCost escalates faster than labor; parts for aging
// platforms get scarce.
//
// FORMULA: cost = base * (1 + 0.12*age)^1.3
func (g *Generator) escalatedPartsCost(base, ageYears float64) float64 {
	return calc.Round2(base * math.Pow(1+0.12*ageYears, 1.3))
}

func (g *Generator) weightedPriority() string {
	r := g.rng.Float64()
	switch {
	case r < 0.05:
		return models.PriorityEmergency
	case r < 0.20:
		return models.PriorityUrgent
	case r < 0.70:
		return models.PriorityRoutine
	default:
		return models.PriorityScheduled
	}
}

func (g *Generator) uniform(lo, hi float64) float64 {
	return lo + g.rng.Float64()*(hi-lo)
}

// randInt returns a uniform integer in [lo, hi].
func (g *Generator) randInt(lo, hi int) int {
	return lo + g.rng.Intn(hi-lo+1)
}

func (g *Generator) randomDate(start, end time.Time) time.Time {
	days := int(end.Sub(start).Hours() / 24)
	if days <= 0 {
		return start
	}
	return start.AddDate(0, 0, g.rng.Intn(days+1))
}

func pick[T any](rng *rand.Rand, items []T) T {
	return items[rng.Intn(len(items))]
}
