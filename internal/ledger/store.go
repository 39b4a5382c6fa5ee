package ledger

import "context"

// Tx is a transactional view of ledger state. Mutating methods are only
// legal inside Store.Update; inside Store.View they return ErrReadOnly
// (memory store) or fail at commit (postgres store).
//
// Accessors return copies; mutations go through the Put/Set methods so
// both stores can track what a transaction touched.
type Tx interface {
	// Producers
	Producer(addr string) (*Producer, error)
	PutProducer(p *Producer) error
	EachProducer(fn func(p *Producer) error) error

	// Audit log (append-only)
	AppendAuditReport(r *AuditReport) error
	AuditReportsFor(producer string) ([]*AuditReport, error)

	// Certificates
	Certificate(id uint64) (*Certificate, error)
	PutCertificate(c *Certificate) error
	NextCertificateID() (uint64, error)
	EachCertificate(fn func(c *Certificate) error) error

	// Listings
	Listing(id uint64) (*Listing, error)
	PutListing(l *Listing) error
	NextListingID() (uint64, error)
	EachListing(fn func(l *Listing) error) error

	// Balances and allowances
	Balance(addr string) (*BigInt, error)
	SetBalance(addr string, amount *BigInt) error
	Allowance(owner, spender string) (*BigInt, error)
	SetAllowance(owner, spender string, amount *BigInt) error
	TotalSupply() (*BigInt, error)
	SetTotalSupply(amount *BigInt) error

	// Sale proceeds owed to sellers, in payment base units. The payment
	// rail itself is a collaborator; the ledger only keeps the book.
	Proceeds(addr string) (*BigInt, error)
	SetProceeds(addr string, amount *BigInt) error

	// Roles and settings
	Role(addr string) (Role, error)
	GrantRole(addr string, role Role) error
	Owner() (string, error)
	SetOwner(addr string) error
	MarketController() (string, error)
	SetMarketController(addr string) error
}

// Store is the durable transactional state under the ledger. Update runs
// fn in a serializable write transaction: all mutations apply on nil
// return and none apply on error. View runs fn against a consistent
// snapshot and never blocks behind an Update in progress longer than the
// bounded transaction itself.
type Store interface {
	Update(ctx context.Context, fn func(tx Tx) error) error
	View(ctx context.Context, fn func(tx Tx) error) error
	Close() error
}
