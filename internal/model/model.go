package model

import (
	"math"
	"time"
)

// Единицы крови

type BloodUnit struct {
	Code string
	Data BloodUnitData
}
type BloodUnitData struct {
	Bank           string
	Donor          string
	Group          BloodGroup
	Volume         int // сотые доли мл
	CollectionDate time.Time
	ExpirationDate time.Time
	Status         UnitStatus
	Notes          string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

type UnitStatus string

const (
	UnitStatusAvailable UnitStatus = "AVAILABLE"
	UnitStatusReserved  UnitStatus = "RESERVED"
	UnitStatusUsed      UnitStatus = "USED"
	UnitStatusExpired   UnitStatus = "EXPIRED"
)

// MaxVolume is the largest volume a unit record can hold, 999.99 ml.
const MaxVolume = 99999

const (
	// MaxRefLength bounds bank, donor and consumer references.
	MaxRefLength = 64
	// MaxCodeLength bounds tracking codes: BB-<bank>-<group>-<YYYYMMDD>-<XXXX>
	// with a bank segment of at most MaxRefLength characters.
	MaxCodeLength = 100
)

// VolumeFromML converts milliliters to the stored hundredths of a milliliter.
// Negative values become 0 and values above MaxVolume become MaxVolume+1.
func VolumeFromML(ml float64) int {
	v := math.Round(ml * 100)
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > MaxVolume:
		return MaxVolume + 1
	}
	return int(v)
}

// VolumeML returns the unit volume in milliliters.
func (d BloodUnitData) VolumeML() float64 {
	return float64(d.Volume) / 100
}

// Журнал движения единиц крови

type StockTransaction struct {
	Key  StockTransactionKey
	Data StockTransactionData
}
type StockTransactionKey struct {
	Unit      string
	Operation int64
}
type StockTransactionData struct {
	Type        TransactionType
	Timestamp   time.Time
	Source      string
	Destination string
	Notes       string
}

type TransactionType string

const (
	TransactionCollection TransactionType = "COLLECTION"
	TransactionAllocation TransactionType = "ALLOCATION"
	TransactionTransfer   TransactionType = "TRANSFER"
	TransactionDisposal   TransactionType = "DISPOSAL"
)

// Заявки на кровь

type BloodRequest struct {
	ID   int64
	Data BloodRequestData
}
type BloodRequestData struct {
	Consumer        string
	Bank            string
	Group           BloodGroup
	UnitsRequired   int
	Priority        Priority
	PatientName     string
	PatientAge      int
	PatientGender   string
	HospitalName    string
	Status          RequestStatus
	RequestedAt     time.Time
	RequiredBy      time.Time
	RespondedAt     time.Time // нулевое значение - ответа не было
	AllocatedUnits  []string
	Notes           string
	RejectionReason string
}

type Priority string

const (
	PriorityNormal    Priority = "NORMAL"
	PriorityUrgent    Priority = "URGENT"
	PriorityEmergency Priority = "EMERGENCY"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityNormal, PriorityUrgent, PriorityEmergency:
		return true
	}
	return false
}

type RequestStatus string

const (
	RequestStatusPending   RequestStatus = "PENDING"
	RequestStatusApproved  RequestStatus = "APPROVED"
	RequestStatusRejected  RequestStatus = "REJECTED"
	RequestStatusCompleted RequestStatus = "COMPLETED"
)

// Terminal reports whether no further transitions are allowed.
func (s RequestStatus) Terminal() bool {
	return s == RequestStatusRejected || s == RequestStatusCompleted
}

// Оповещения о запасах

type InventoryAlert struct {
	ID   int64
	Data InventoryAlertData
}
type InventoryAlertData struct {
	Bank        string
	Type        AlertType
	Group       BloodGroup
	Description string
	Active      bool
	CreatedAt   time.Time
	ResolvedAt  time.Time
}

type AlertType string

const (
	AlertLowStock         AlertType = "LOW_STOCK"
	AlertNearExpiry       AlertType = "NEAR_EXPIRY"
	AlertCriticalShortage AlertType = "CRITICAL_SHORTAGE"
)

// BankSummary is a verified bank together with its stock of one blood group.
type BankSummary struct {
	Bank           string
	Name           string
	Email          string
	Contact        string
	Address        string
	AvailableUnits int
}
