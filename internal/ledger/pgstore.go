package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// PgStore is the durable Store over postgres. Update transactions run at
// SERIALIZABLE and take row locks on the entities they read, so two
// concurrent purchases of one listing serialize on the listing row.
type PgStore struct {
	db *gorm.DB
}

// OpenPg connects to postgres and migrates the ledger schema.
func OpenPg(dsn string) (*PgStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := db.AutoMigrate(
		&Producer{}, &AuditReport{}, &Certificate{}, &Listing{},
		&Balance{}, &Allowance{}, &Proceed{}, &RoleGrant{}, &Counter{}, &Meta{},
		&MarketStat{},
	); err != nil {
		return nil, fmt.Errorf("migrate ledger schema: %w", err)
	}
	return &PgStore{db: db}, nil
}

func (s *PgStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgTx{db: tx})
	}, &sql.TxOptions{Isolation: sql.LevelSerializable})
}

func (s *PgStore) View(ctx context.Context, fn func(tx Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&pgTx{db: tx, readOnly: true})
	}, &sql.TxOptions{Isolation: sql.LevelRepeatableRead, ReadOnly: true})
}

func (s *PgStore) Close() error {
	db, err := s.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

type pgTx struct {
	db       *gorm.DB
	readOnly bool
}

// locked adds FOR UPDATE inside write transactions so reads pin the rows
// an operation is about to change.
func (t *pgTx) locked() *gorm.DB {
	if t.readOnly {
		return t.db
	}
	return t.db.Clauses(clause.Locking{Strength: "UPDATE"})
}

func (t *pgTx) upsert(value interface{}) error {
	if t.readOnly {
		return errReadOnly
	}
	return t.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(value).Error
}

func (t *pgTx) Producer(addr string) (*Producer, error) {
	var p Producer
	err := t.locked().First(&p, "address = ?", addr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("producer %s: %w", addr, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *pgTx) PutProducer(p *Producer) error {
	return t.upsert(p)
}

func (t *pgTx) EachProducer(fn func(p *Producer) error) error {
	var producers []Producer
	if err := t.db.Order("registration_time").Find(&producers).Error; err != nil {
		return err
	}
	for i := range producers {
		if err := fn(&producers[i]); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) AppendAuditReport(r *AuditReport) error {
	if t.readOnly {
		return errReadOnly
	}
	return t.db.Create(r).Error
}

func (t *pgTx) AuditReportsFor(producer string) ([]*AuditReport, error) {
	var reports []*AuditReport
	err := t.db.Where("producer = ?", producer).Order("timestamp").Find(&reports).Error
	return reports, err
}

func (t *pgTx) Certificate(id uint64) (*Certificate, error) {
	var c Certificate
	err := t.locked().First(&c, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("certificate %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (t *pgTx) PutCertificate(c *Certificate) error {
	return t.upsert(c)
}

func (t *pgTx) NextCertificateID() (uint64, error) {
	return t.nextID(CounterCertificates)
}

func (t *pgTx) EachCertificate(fn func(c *Certificate) error) error {
	var certs []Certificate
	if err := t.db.Order("id").Find(&certs).Error; err != nil {
		return err
	}
	for i := range certs {
		if err := fn(&certs[i]); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) Listing(id uint64) (*Listing, error) {
	var l Listing
	err := t.locked().First(&l, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("listing %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return &l, nil
}

func (t *pgTx) PutListing(l *Listing) error {
	return t.upsert(l)
}

func (t *pgTx) NextListingID() (uint64, error) {
	return t.nextID(CounterListings)
}

func (t *pgTx) EachListing(fn func(l *Listing) error) error {
	var listings []Listing
	if err := t.db.Order("id").Find(&listings).Error; err != nil {
		return err
	}
	for i := range listings {
		if err := fn(&listings[i]); err != nil {
			return err
		}
	}
	return nil
}

func (t *pgTx) nextID(counter string) (uint64, error) {
	if t.readOnly {
		return 0, errReadOnly
	}
	var c Counter
	err := t.locked().First(&c, "name = ?", counter).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c = Counter{Name: counter, Value: 1}
		if err := t.db.Create(&c).Error; err != nil {
			return 0, err
		}
		return 1, nil
	}
	if err != nil {
		return 0, err
	}
	c.Value++
	if err := t.db.Save(&c).Error; err != nil {
		return 0, err
	}
	return c.Value, nil
}

func (t *pgTx) Balance(addr string) (*BigInt, error) {
	var b Balance
	err := t.locked().First(&b, "address = ?", addr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Zero(), nil
	}
	if err != nil {
		return nil, err
	}
	return b.Amount, nil
}

func (t *pgTx) SetBalance(addr string, amount *BigInt) error {
	return t.upsert(&Balance{Address: addr, Amount: amount.Clone()})
}

func (t *pgTx) Allowance(owner, spender string) (*BigInt, error) {
	var a Allowance
	err := t.locked().First(&a, "owner = ? AND spender = ?", owner, spender).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Zero(), nil
	}
	if err != nil {
		return nil, err
	}
	return a.Amount, nil
}

func (t *pgTx) SetAllowance(owner, spender string, amount *BigInt) error {
	return t.upsert(&Allowance{Owner: owner, Spender: spender, Amount: amount.Clone()})
}

func (t *pgTx) Proceeds(addr string) (*BigInt, error) {
	var p Proceed
	err := t.locked().First(&p, "address = ?", addr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Zero(), nil
	}
	if err != nil {
		return nil, err
	}
	return p.Amount, nil
}

func (t *pgTx) SetProceeds(addr string, amount *BigInt) error {
	return t.upsert(&Proceed{Address: addr, Amount: amount.Clone()})
}

func (t *pgTx) TotalSupply() (*BigInt, error) {
	v, err := t.meta(MetaTotalSupply)
	if err != nil {
		return nil, err
	}
	if v == "" {
		return Zero(), nil
	}
	return ParseAmount(v)
}

func (t *pgTx) SetTotalSupply(amount *BigInt) error {
	return t.setMeta(MetaTotalSupply, amount.String())
}

func (t *pgTx) Role(addr string) (Role, error) {
	var g RoleGrant
	err := t.locked().First(&g, "address = ?", addr).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return g.Role, nil
}

func (t *pgTx) GrantRole(addr string, role Role) error {
	cur, err := t.Role(addr)
	if err != nil {
		return err
	}
	return t.upsert(&RoleGrant{Address: addr, Role: cur | role})
}

func (t *pgTx) Owner() (string, error) {
	return t.meta(MetaOwner)
}

func (t *pgTx) SetOwner(addr string) error {
	return t.setMeta(MetaOwner, addr)
}

func (t *pgTx) MarketController() (string, error) {
	return t.meta(MetaMarketController)
}

func (t *pgTx) SetMarketController(addr string) error {
	return t.setMeta(MetaMarketController, addr)
}

func (t *pgTx) meta(key string) (string, error) {
	var m Meta
	err := t.locked().First(&m, "key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return m.Value, nil
}

func (t *pgTx) setMeta(key, value string) error {
	return t.upsert(&Meta{Key: key, Value: value})
}
