package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

var errReadOnly = errors.New("mutation inside read-only transaction")

type allowanceKey struct {
	owner   string
	spender string
}

// memState is the full ledger state held by the in-memory store.
type memState struct {
	producers        map[string]*Producer
	auditReports     []*AuditReport
	certificates     map[uint64]*Certificate
	listings         map[uint64]*Listing
	balances         map[string]*BigInt
	allowances       map[allowanceKey]*BigInt
	proceeds         map[string]*BigInt
	roles            map[string]Role
	counters         map[string]uint64
	totalSupply      *BigInt
	owner            string
	marketController string
}

// MemStore is an in-memory Store used by tests and single-process dev
// deployments. A single RWMutex gives Update transactions serializable
// isolation; View transactions share the read lock.
type MemStore struct {
	mu    sync.RWMutex
	state memState
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		state: memState{
			producers:    make(map[string]*Producer),
			certificates: make(map[uint64]*Certificate),
			listings:     make(map[uint64]*Listing),
			balances:     make(map[string]*BigInt),
			allowances:   make(map[allowanceKey]*BigInt),
			proceeds:     make(map[string]*BigInt),
			roles:        make(map[string]Role),
			counters:     make(map[string]uint64),
			totalSupply:  Zero(),
		},
	}
}

// Update runs fn under the write lock. Mutations are staged in an
// overlay and applied only when fn returns nil, so a failed operation
// leaves no partial state behind.
func (s *MemStore) Update(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := newMemTx(&s.state, false)
	if err := fn(tx); err != nil {
		return err
	}
	tx.commit(&s.state)
	return nil
}

// View runs fn under the read lock against the current state.
func (s *MemStore) View(ctx context.Context, fn func(tx Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(newMemTx(&s.state, true))
}

// Close implements Store.
func (s *MemStore) Close() error {
	return nil
}

// memTx stages writes in overlay maps; reads consult the overlay first.
type memTx struct {
	base     *memState
	readOnly bool

	producers    map[string]*Producer
	auditAppends []*AuditReport
	certificates map[uint64]*Certificate
	listings     map[uint64]*Listing
	balances     map[string]*BigInt
	allowances   map[allowanceKey]*BigInt
	proceeds     map[string]*BigInt
	roles        map[string]Role
	counters     map[string]uint64
	totalSupply  *BigInt
	owner        *string
	marketCtrl   *string
}

func newMemTx(base *memState, readOnly bool) *memTx {
	return &memTx{
		base:         base,
		readOnly:     readOnly,
		producers:    make(map[string]*Producer),
		certificates: make(map[uint64]*Certificate),
		listings:     make(map[uint64]*Listing),
		balances:     make(map[string]*BigInt),
		allowances:   make(map[allowanceKey]*BigInt),
		proceeds:     make(map[string]*BigInt),
		roles:        make(map[string]Role),
		counters:     make(map[string]uint64),
	}
}

func (t *memTx) commit(state *memState) {
	for addr, p := range t.producers {
		state.producers[addr] = p
	}
	state.auditReports = append(state.auditReports, t.auditAppends...)
	for id, c := range t.certificates {
		state.certificates[id] = c
	}
	for id, l := range t.listings {
		state.listings[id] = l
	}
	for addr, b := range t.balances {
		state.balances[addr] = b
	}
	for k, a := range t.allowances {
		state.allowances[k] = a
	}
	for addr, p := range t.proceeds {
		state.proceeds[addr] = p
	}
	for addr, r := range t.roles {
		state.roles[addr] = r
	}
	for name, v := range t.counters {
		state.counters[name] = v
	}
	if t.totalSupply != nil {
		state.totalSupply = t.totalSupply
	}
	if t.owner != nil {
		state.owner = *t.owner
	}
	if t.marketCtrl != nil {
		state.marketController = *t.marketCtrl
	}
}

func cloneProducer(p *Producer) *Producer {
	cp := *p
	cp.EnergyTypes = append(cp.EnergyTypes[:0:0], p.EnergyTypes...)
	return &cp
}

func cloneCertificate(c *Certificate) *Certificate {
	cc := *c
	if c.TokenAmount != nil {
		cc.TokenAmount = c.TokenAmount.Clone()
	}
	return &cc
}

func cloneListing(l *Listing) *Listing {
	cl := *l
	cl.TokenAmount = l.TokenAmount.Clone()
	cl.PricePerToken = l.PricePerToken.Clone()
	return &cl
}

func (t *memTx) Producer(addr string) (*Producer, error) {
	if p, ok := t.producers[addr]; ok {
		return cloneProducer(p), nil
	}
	if p, ok := t.base.producers[addr]; ok {
		return cloneProducer(p), nil
	}
	return nil, fmt.Errorf("producer %s: %w", addr, ErrNotFound)
}

func (t *memTx) PutProducer(p *Producer) error {
	if t.readOnly {
		return errReadOnly
	}
	t.producers[p.Address] = cloneProducer(p)
	return nil
}

func (t *memTx) EachProducer(fn func(p *Producer) error) error {
	for addr, p := range t.base.producers {
		if _, overridden := t.producers[addr]; overridden {
			continue
		}
		if err := fn(cloneProducer(p)); err != nil {
			return err
		}
	}
	for _, p := range t.producers {
		if err := fn(cloneProducer(p)); err != nil {
			return err
		}
	}
	return nil
}

func (t *memTx) AppendAuditReport(r *AuditReport) error {
	if t.readOnly {
		return errReadOnly
	}
	cp := *r
	t.auditAppends = append(t.auditAppends, &cp)
	return nil
}

func (t *memTx) AuditReportsFor(producer string) ([]*AuditReport, error) {
	var out []*AuditReport
	for _, r := range t.base.auditReports {
		if r.Producer == producer {
			cp := *r
			out = append(out, &cp)
		}
	}
	for _, r := range t.auditAppends {
		if r.Producer == producer {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (t *memTx) Certificate(id uint64) (*Certificate, error) {
	if c, ok := t.certificates[id]; ok {
		return cloneCertificate(c), nil
	}
	if c, ok := t.base.certificates[id]; ok {
		return cloneCertificate(c), nil
	}
	return nil, fmt.Errorf("certificate %d: %w", id, ErrNotFound)
}

func (t *memTx) PutCertificate(c *Certificate) error {
	if t.readOnly {
		return errReadOnly
	}
	t.certificates[c.ID] = cloneCertificate(c)
	return nil
}

func (t *memTx) NextCertificateID() (uint64, error) {
	return t.nextID(CounterCertificates)
}

func (t *memTx) EachCertificate(fn func(c *Certificate) error) error {
	for id, c := range t.base.certificates {
		if _, overridden := t.certificates[id]; overridden {
			continue
		}
		if err := fn(cloneCertificate(c)); err != nil {
			return err
		}
	}
	for _, c := range t.certificates {
		if err := fn(cloneCertificate(c)); err != nil {
			return err
		}
	}
	return nil
}

func (t *memTx) Listing(id uint64) (*Listing, error) {
	if l, ok := t.listings[id]; ok {
		return cloneListing(l), nil
	}
	if l, ok := t.base.listings[id]; ok {
		return cloneListing(l), nil
	}
	return nil, fmt.Errorf("listing %d: %w", id, ErrNotFound)
}

func (t *memTx) PutListing(l *Listing) error {
	if t.readOnly {
		return errReadOnly
	}
	t.listings[l.ID] = cloneListing(l)
	return nil
}

func (t *memTx) NextListingID() (uint64, error) {
	return t.nextID(CounterListings)
}

func (t *memTx) EachListing(fn func(l *Listing) error) error {
	for id, l := range t.base.listings {
		if _, overridden := t.listings[id]; overridden {
			continue
		}
		if err := fn(cloneListing(l)); err != nil {
			return err
		}
	}
	for _, l := range t.listings {
		if err := fn(cloneListing(l)); err != nil {
			return err
		}
	}
	return nil
}

func (t *memTx) nextID(counter string) (uint64, error) {
	if t.readOnly {
		return 0, errReadOnly
	}
	cur, ok := t.counters[counter]
	if !ok {
		cur = t.base.counters[counter]
	}
	next := cur + 1
	t.counters[counter] = next
	return next, nil
}

func (t *memTx) Balance(addr string) (*BigInt, error) {
	if b, ok := t.balances[addr]; ok {
		return b.Clone(), nil
	}
	if b, ok := t.base.balances[addr]; ok {
		return b.Clone(), nil
	}
	return Zero(), nil
}

func (t *memTx) SetBalance(addr string, amount *BigInt) error {
	if t.readOnly {
		return errReadOnly
	}
	t.balances[addr] = amount.Clone()
	return nil
}

func (t *memTx) Allowance(owner, spender string) (*BigInt, error) {
	k := allowanceKey{owner, spender}
	if a, ok := t.allowances[k]; ok {
		return a.Clone(), nil
	}
	if a, ok := t.base.allowances[k]; ok {
		return a.Clone(), nil
	}
	return Zero(), nil
}

func (t *memTx) SetAllowance(owner, spender string, amount *BigInt) error {
	if t.readOnly {
		return errReadOnly
	}
	t.allowances[allowanceKey{owner, spender}] = amount.Clone()
	return nil
}

func (t *memTx) Proceeds(addr string) (*BigInt, error) {
	if p, ok := t.proceeds[addr]; ok {
		return p.Clone(), nil
	}
	if p, ok := t.base.proceeds[addr]; ok {
		return p.Clone(), nil
	}
	return Zero(), nil
}

func (t *memTx) SetProceeds(addr string, amount *BigInt) error {
	if t.readOnly {
		return errReadOnly
	}
	t.proceeds[addr] = amount.Clone()
	return nil
}

func (t *memTx) TotalSupply() (*BigInt, error) {
	if t.totalSupply != nil {
		return t.totalSupply.Clone(), nil
	}
	return t.base.totalSupply.Clone(), nil
}

func (t *memTx) SetTotalSupply(amount *BigInt) error {
	if t.readOnly {
		return errReadOnly
	}
	t.totalSupply = amount.Clone()
	return nil
}

func (t *memTx) Role(addr string) (Role, error) {
	if r, ok := t.roles[addr]; ok {
		return r, nil
	}
	return t.base.roles[addr], nil
}

func (t *memTx) GrantRole(addr string, role Role) error {
	if t.readOnly {
		return errReadOnly
	}
	cur, _ := t.Role(addr)
	t.roles[addr] = cur | role
	return nil
}

func (t *memTx) Owner() (string, error) {
	if t.owner != nil {
		return *t.owner, nil
	}
	return t.base.owner, nil
}

func (t *memTx) SetOwner(addr string) error {
	if t.readOnly {
		return errReadOnly
	}
	t.owner = &addr
	return nil
}

func (t *memTx) MarketController() (string, error) {
	if t.marketCtrl != nil {
		return *t.marketCtrl, nil
	}
	return t.base.marketController, nil
}

func (t *memTx) SetMarketController(addr string) error {
	if t.readOnly {
		return errReadOnly
	}
	t.marketCtrl = &addr
	return nil
}
