// internal/graduation/graduation.go

// Package graduation переводит оценку SOL-резервов пула в прогресс по
// бондинг-кривой. Порог выпуска фиксирован: 85 SOL.
package graduation

import "math"

// ThresholdSol — объем SOL, при котором токен считается выпущенным
// на полноценный AMM.
const ThresholdSol = 85.0

// Stage — дискретная стадия бондинг-кривой.
type Stage string

const (
	StageUltraEarly         Stage = "ULTRA_EARLY"
	StageEarlyMomentum      Stage = "EARLY_MOMENTUM"
	StageGrowthPhase        Stage = "GROWTH_PHASE"
	StageMomentumBuilding   Stage = "MOMENTUM_BUILDING"
	StagePreGraduation      Stage = "PRE_GRADUATION"
	StageGraduationWarning  Stage = "GRADUATION_WARNING"
	StageGraduationImminent Stage = "GRADUATION_IMMINENT"
)

// Analysis — результат анализа одного пула.
type Analysis struct {
	EstimatedSolReserves float64 `json:"estimatedSolReserves"`
	ProgressPct          float64 `json:"graduationProgressPct"`
	SolRemaining         float64 `json:"solRemaining"`
	Stage                Stage   `json:"stage"`
	Confidence           float64 `json:"confidence"`
}

// StageFor классифицирует резервы по строгой лестнице порогов.
// Границы [5, 15, 35, 55, 75, 82] разбивают [0, ∞) без зазоров.
func StageFor(reserves float64) Stage {
	switch {
	case reserves < 5:
		return StageUltraEarly
	case reserves < 15:
		return StageEarlyMomentum
	case reserves < 35:
		return StageGrowthPhase
	case reserves < 55:
		return StageMomentumBuilding
	case reserves < 75:
		return StagePreGraduation
	case reserves < 82:
		return StageGraduationWarning
	default:
		return StageGraduationImminent
	}
}

// Analyze строит анализ по оценке резервов. Прогресс сверху не
// ограничивается: значения выше 100% означают уже выпущенный пул или
// несогласованные данные, фильтровать их — дело вызывающего.
func Analyze(reserves, confidence float64) Analysis {
	return Analysis{
		EstimatedSolReserves: reserves,
		ProgressPct:          (reserves / ThresholdSol) * 100,
		SolRemaining:         math.Max(0, ThresholdSol-reserves),
		Stage:                StageFor(reserves),
		Confidence:           confidence,
	}
}
