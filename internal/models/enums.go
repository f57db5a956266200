package models

type Gender string

const (
	GenderMale    Gender = "Male"
	GenderFemale  Gender = "Female"
	GenderUnknown Gender = "Unknown"
)

type MaritalStatus string

const (
	MaritalSingle   MaritalStatus = "Single"
	MaritalMarried  MaritalStatus = "Married"
	MaritalDivorced MaritalStatus = "Divorced"
	MaritalWidowed  MaritalStatus = "Widowed"
	MaritalUnknown  MaritalStatus = "Unknown"
)

type Region string

const (
	RegionEast    Region = "East"
	RegionWest    Region = "West"
	RegionSouth   Region = "South"
	RegionCentral Region = "Central"
	RegionUnknown Region = "Unknown"
)

type FeeKind string

const (
	FeeFlat       FeeKind = "flat"
	FeePercentage FeeKind = "percentage"
)

type RunStatus string

const (
	RunPending   RunStatus = "pending"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// IsValidFeeKind checks if a fee kind is one the engine knows how to compute
func IsValidFeeKind(kind FeeKind) bool {
	switch kind {
	case FeeFlat, FeePercentage:
		return true
	default:
		return false
	}
}

// IsValidRunStatus checks if a run status is valid
func IsValidRunStatus(status RunStatus) bool {
	switch status {
	case RunPending, RunRunning, RunCompleted, RunFailed:
		return true
	default:
		return false
	}
}
