package ledger

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// EnergySource is one of the recognized renewable generation types.
type EnergySource string

const (
	SourceSolar      EnergySource = "Solar"
	SourceWind       EnergySource = "Wind"
	SourceHydro      EnergySource = "Hydro"
	SourceBiomass    EnergySource = "Biomass"
	SourceGeothermal EnergySource = "Geothermal"
)

// AllEnergySources lists the enumerated sources in display order.
var AllEnergySources = []EnergySource{
	SourceSolar, SourceWind, SourceHydro, SourceBiomass, SourceGeothermal,
}

// ValidEnergySource reports whether s is in the enumerated set.
func ValidEnergySource(s EnergySource) bool {
	for _, src := range AllEnergySources {
		if src == s {
			return true
		}
	}
	return false
}

// Role is a capability bitmask attached to an account address.
type Role uint8

const (
	RoleOwner Role = 1 << iota
	RoleAuditor
	RoleVerifier
)

// Has reports whether r carries all capabilities in c.
func (r Role) Has(c Role) bool {
	return r&c == c
}

// Producer is a registered renewable-energy producer. Never deleted;
// Verified flips to true at most once, via audit or owner action.
type Producer struct {
	Address          string                            `gorm:"primaryKey;size:64" json:"address"`
	Name             string                            `gorm:"not null" json:"name"`
	Location         string                            `json:"location"`
	EnergyTypes      datatypes.JSONSlice[EnergySource] `json:"energy_types"`
	TotalCapacityKW  uint64                            `gorm:"not null" json:"total_capacity_kw"`
	Verified         bool                              `gorm:"not null;default:false" json:"verified"`
	RegistrationTime time.Time                         `json:"registration_time"`
}

// AuditReport is an append-only record of an auditor's finding about a
// producer. A passing report verifies the producer in the same transaction.
type AuditReport struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	Producer  string    `gorm:"size:64;not null;index" json:"producer"`
	ReportURI string    `json:"report_uri"`
	Notes     string    `json:"notes"`
	Passed    bool      `gorm:"not null" json:"passed"`
	Timestamp time.Time `json:"timestamp"`
}

// Certificate is a claim of produced energy. TokenAmount stays zero until
// verification, which sets it exactly once together with Verified.
type Certificate struct {
	ID           uint64       `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Producer     string       `gorm:"size:64;not null;index" json:"producer"`
	EnergySource EnergySource `gorm:"size:16;not null" json:"energy_source"`
	KWHProduced  uint64       `gorm:"not null" json:"kwh_produced"`
	Location     string       `json:"location"`
	Timestamp    time.Time    `json:"timestamp"`
	Verified     bool         `gorm:"not null;default:false" json:"verified"`
	TokenAmount  *BigInt      `gorm:"type:numeric(78,0)" json:"token_amount"`
}

// ListingStatus is the lifecycle state of a marketplace listing.
type ListingStatus string

const (
	ListingActive    ListingStatus = "ACTIVE"
	ListingSold      ListingStatus = "SOLD"
	ListingCancelled ListingStatus = "CANCELLED"
)

// Listing is an offer to sell tokens at a fixed per-token price. Listings
// are a permanent audit trail: they leave ACTIVE exactly once and are
// never deleted.
type Listing struct {
	ID             uint64        `gorm:"primaryKey;autoIncrement:false" json:"id"`
	Seller         string        `gorm:"size:64;not null;index" json:"seller"`
	TokenAmount    *BigInt       `gorm:"type:numeric(78,0)" json:"token_amount"`
	PricePerToken  *BigInt       `gorm:"type:numeric(78,0)" json:"price_per_token"`
	EnergySource   EnergySource  `gorm:"size:16;not null" json:"energy_source"`
	KWHRepresented uint64        `gorm:"not null" json:"kwh_represented"`
	Timestamp      time.Time     `json:"timestamp"`
	Status         ListingStatus `gorm:"size:16;not null" json:"status"`
}

// Active reports whether the listing can still be bought or cancelled.
func (l *Listing) Active() bool {
	return l.Status == ListingActive
}

// TotalPrice is tokenAmount * pricePerToken scaled back to base units.
func (l *Listing) TotalPrice() *BigInt {
	return l.TokenAmount.Mul(l.PricePerToken).DivBase()
}

// Balance is a token balance row keyed by account address.
type Balance struct {
	Address string  `gorm:"primaryKey;size:64" json:"address"`
	Amount  *BigInt `gorm:"type:numeric(78,0)" json:"amount"`
}

// Allowance is a standard (owner, spender) approval row.
type Allowance struct {
	Owner   string  `gorm:"primaryKey;size:64" json:"owner"`
	Spender string  `gorm:"primaryKey;size:64" json:"spender"`
	Amount  *BigInt `gorm:"type:numeric(78,0)" json:"amount"`
}

// Proceed is the payment value owed to a seller from completed sales.
type Proceed struct {
	Address string  `gorm:"primaryKey;size:64" json:"address"`
	Amount  *BigInt `gorm:"type:numeric(78,0)" json:"amount"`
}

// RoleGrant persists the capability set of an address.
type RoleGrant struct {
	Address string `gorm:"primaryKey;size:64" json:"address"`
	Role    Role   `gorm:"not null" json:"role"`
}

// Counter is a monotonic id source stored with the data it numbers, so
// increments commit atomically with entity creation.
type Counter struct {
	Name  string `gorm:"primaryKey;size:32"`
	Value uint64 `gorm:"not null"`
}

// Meta holds singleton ledger settings: owner address, market controller
// address, total supply.
type Meta struct {
	Key   string `gorm:"primaryKey;size:32"`
	Value string `gorm:"not null"`
}

// Counter and meta keys.
const (
	CounterCertificates = "certificates"
	CounterListings     = "listings"

	MetaOwner            = "owner"
	MetaMarketController = "market_controller"
	MetaTotalSupply      = "total_supply"
)

// MarketStat is a cached aggregate row refreshed by the stats worker.
type MarketStat struct {
	Name      string    `gorm:"primaryKey;size:32" db:"name" json:"name"`
	Value     string    `gorm:"not null" db:"value" json:"value"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}
