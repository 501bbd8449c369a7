package scoring

import "time"

// Built-in profile versions.
const (
	ProfileFase0 = "fase0-v4"
	ProfileFase1 = "fase1-v1"
)

// DefaultProfileVersion is used when a run does not name a profile.
const DefaultProfileVersion = ProfileFase0

// CAUC requirements whose pendency alone blocks the federal contribution.
var defaultGravePendencies = []string{
	"Regularidade Fiscal (RFB)",
	"Regularidade PGFN",
	"CADIN",
	"SISTN (Dívida Consolidada)",
	"LRF - Limite Pessoal Executivo",
	"Adimplência TCU",
	"Adimplência CGU",
}

var defaultModeratePendencies = []string{
	"Regularidade FGTS",
	"Regularidade Trabalhista (TST)",
	"SIOPS (Saúde)",
	"SIOPE (Educação)",
	"SICONV/TRANSFEREGOV Prestação de Contas",
	"SISTN (Garantias)",
	"LRF - Limite Pessoal Legislativo",
}

// Tax-autonomy calibration, 2020–2024 data. Steepness is 2 / empirical IQR per bracket.
// Recalibrate yearly by publishing a new profile.
func defaultSigmoid() map[PopulationBracket]SigmoidParams {
	return map[PopulationBracket]SigmoidParams{
		BracketMicro:  {Midpoint: 0.0296, Steepness: 98.6},
		BracketSmall:  {Midpoint: 0.0276, Steepness: 77.9},
		BracketMedium: {Midpoint: 0.0318, Steepness: 96.2},
		BracketLarge:  {Midpoint: 0.0228, Steepness: 306.2},
	}
}

func bandsFor(maxScore float64) []Band {
	return []Band{
		{Tier: TierCritical, Label: "Crítico", Min: 0},
		{Tier: TierHighRisk, Label: "Risco Alto", Min: maxScore * 35 / 100},
		{Tier: TierMediumRisk, Label: "Risco Médio", Min: maxScore * 55 / 100},
		{Tier: TierLowRisk, Label: "Risco Baixo", Min: maxScore * 75 / 100},
	}
}

// Fase0Profile is the SICONFI + CAUC methodology with four indicators and a full 100-point ceiling.
func Fase0Profile() ScoringProfile {
	return ScoringProfile{
		Version:     ProfileFase0,
		Description: "Fase 0: SICONFI execution, carryover and reporting plus CAUC severity",
		PublishedAt: time.Date(2026, time.February, 20, 0, 0, 0, 0, time.UTC),
		MaxScore:    100,
		Ceiling:     100,
		Indicators: []IndicatorSpec{
			{Indicator: IndicatorBudgetExecution, Weight: 31, Curve: CurveBudgetExecution, Form: FormGoodness},
			{Indicator: IndicatorCarryover, Weight: 25, Curve: CurveCarryover, Form: FormGoodness},
			{Indicator: IndicatorReportingQuality, Weight: 19, Curve: CurveReportingQuality, Form: FormGoodness},
			{Indicator: IndicatorFederalBlockage, Weight: 25, Curve: CurveBlockageSeverity, Form: FormRisk},
		},
		Override: OverrideRule{Enabled: true, Indicator: IndicatorFederalBlockage},
		Bands:    bandsFor(100),
		Curves: CurveParams{
			CarryoverKnee:   0.70,
			ReportingWindow: 5,
		},
		Pendencies: PendencyClasses{
			Grave:    append([]string(nil), defaultGravePendencies...),
			Moderate: append([]string(nil), defaultModeratePendencies...),
		},
		MaxSnapshotAgeDays: 90,
	}
}

// Fase1Profile adds the DCA cash-balance and tax-autonomy indicators. Judicial litigation and
// sanctions-registry indicators are pending, so the achievable ceiling is 75 of 100.
func Fase1Profile() ScoringProfile {
	return ScoringProfile{
		Version:     ProfileFase1,
		Description: "Fase 1: adds DCA cash balance and tax autonomy; litigation and sanctions pending",
		PublishedAt: time.Date(2026, time.February, 27, 0, 0, 0, 0, time.UTC),
		MaxScore:    100,
		Ceiling:     75,
		Indicators: []IndicatorSpec{
			{Indicator: IndicatorBudgetExecution, Weight: 15, Curve: CurveBudgetExecution, Form: FormGoodness},
			{Indicator: IndicatorCarryover, Weight: 12, Curve: CurveCarryover, Form: FormGoodness},
			{Indicator: IndicatorReportingQuality, Weight: 6, Curve: CurveReportingQuality, Form: FormGoodness},
			{Indicator: IndicatorFederalBlockage, Weight: 12, Curve: CurveBlockageSeverity, Form: FormRisk},
			{Indicator: IndicatorCashBalance, Weight: 20, Curve: CurveCashBalance, Form: FormGoodness},
			{Indicator: IndicatorTaxAutonomy, Weight: 10, Curve: CurveTaxAutonomy, Form: FormGoodness},
		},
		Override: OverrideRule{Enabled: true, Indicator: IndicatorFederalBlockage},
		Bands:    bandsFor(75),
		Pending: []PendingIndicator{
			{Name: "datajud", Weight: 15, Description: "judicial litigation against the municipality"},
			{Name: "ceis_cnep", Weight: 10, Description: "sanctions registries"},
		},
		Curves: CurveParams{
			CarryoverKnee:   0.70,
			ReportingWindow: 5,
			Sigmoid:         defaultSigmoid(),
		},
		Pendencies: PendencyClasses{
			Grave:    append([]string(nil), defaultGravePendencies...),
			Moderate: append([]string(nil), defaultModeratePendencies...),
		},
		MaxSnapshotAgeDays: 90,
	}
}

// BuiltinProfiles returns every profile shipped with the engine.
func BuiltinProfiles() []ScoringProfile {
	return []ScoringProfile{Fase0Profile(), Fase1Profile()}
}
