package certification

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"energy-market/energy-ledger-backend/internal/ledger"
	"energy-market/energy-ledger-backend/internal/notifications"
	"energy-market/energy-ledger-backend/internal/registry"
	"energy-market/energy-ledger-backend/internal/token"
	"energy-market/energy-ledger-backend/pkg/workflows"
)

// Narrowed error kinds. Each wraps a base ledger error so callers can
// match either the specific or the general kind.
var (
	ErrNotAnAuditor        = fmt.Errorf("caller is not an authorized auditor: %w", ledger.ErrUnauthorized)
	ErrProducerNotVerified = fmt.Errorf("producer is not verified: %w", ledger.ErrUnauthorized)
	ErrUnknownEnergySource = fmt.Errorf("unknown energy source: %w", ledger.ErrInvalidArgument)
	ErrInvalidAmount       = fmt.Errorf("amount must be positive: %w", ledger.ErrInvalidArgument)
)

// Requests

type SubmitCertificateRequest struct {
	EnergySource ledger.EnergySource `json:"energy_source"`
	KWHProduced  uint64              `json:"kwh_produced"`
	Location     string              `json:"location"`
}

type FileAuditReportRequest struct {
	Producer  string `json:"producer"`
	ReportURI string `json:"report_uri"`
	Notes     string `json:"notes"`
	Passed    bool   `json:"passed"`
}

// Service is the certification engine: certificate submission, audit
// filing, and the verify-and-mint join.
type Service interface {
	SubmitCertificate(ctx context.Context, producer string, req SubmitCertificateRequest) (*ledger.Certificate, error)
	VerifyCertificate(ctx context.Context, caller string, certID uint64, mintAmount *ledger.BigInt) (*ledger.Certificate, error)
	FileAuditReport(ctx context.Context, caller string, req FileAuditReportRequest) (*ledger.AuditReport, error)
	VerifyProducer(ctx context.Context, caller, producer string) error
	GetCertificate(ctx context.Context, id uint64) (*ledger.Certificate, error)
	AuditReports(ctx context.Context, producer string) ([]*ledger.AuditReport, error)
}

type service struct {
	store     ledger.Store
	logger    *zap.Logger
	publisher notifications.Publisher
	certSM    *workflows.StateMachine
}

// NewService creates the certification service.
func NewService(store ledger.Store, logger *zap.Logger, publisher notifications.Publisher) Service {
	return &service{
		store:     store,
		logger:    logger,
		publisher: publisher,
		certSM:    workflows.NewCertificateStateMachine(),
	}
}

func certStatus(c *ledger.Certificate) string {
	if c.Verified {
		return "VERIFIED"
	}
	return "PENDING"
}

// SubmitCertificate records a production claim for a verified producer.
// Only verified producers may submit; the submission itself mints nothing.
func (s *service) SubmitCertificate(ctx context.Context, producer string, req SubmitCertificateRequest) (*ledger.Certificate, error) {
	if req.KWHProduced == 0 {
		return nil, ErrInvalidAmount
	}
	if !ledger.ValidEnergySource(req.EnergySource) {
		return nil, fmt.Errorf("%q: %w", req.EnergySource, ErrUnknownEnergySource)
	}
	if req.Location == "" {
		return nil, fmt.Errorf("%w: location is required", ledger.ErrInvalidArgument)
	}

	var cert *ledger.Certificate
	err := s.store.Update(ctx, func(tx ledger.Tx) error {
		p, err := tx.Producer(producer)
		if err != nil {
			return err
		}
		if !p.Verified {
			return fmt.Errorf("producer %s: %w", producer, ErrProducerNotVerified)
		}
		id, err := tx.NextCertificateID()
		if err != nil {
			return err
		}
		cert = &ledger.Certificate{
			ID:           id,
			Producer:     producer,
			EnergySource: req.EnergySource,
			KWHProduced:  req.KWHProduced,
			Location:     req.Location,
			Timestamp:    time.Now().UTC(),
			TokenAmount:  ledger.Zero(),
		}
		return tx.PutCertificate(cert)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("certificate submitted",
		zap.Uint64("id", cert.ID),
		zap.String("producer", producer),
		zap.Uint64("kwh", req.KWHProduced))
	s.publisher.Publish(notifications.NewEvent(notifications.EventCertificateSubmitted, cert))
	return cert, nil
}

// VerifyCertificate marks the certificate verified and mints mintAmount
// to its producer in one transaction. This is the system's single point
// of monetary creation: a verification never commits without its mint.
// Retrying an interrupted call finds the certificate already verified
// and fails with ErrAlreadyVerified instead of minting again.
func (s *service) VerifyCertificate(ctx context.Context, caller string, certID uint64, mintAmount *ledger.BigInt) (*ledger.Certificate, error) {
	if mintAmount == nil || mintAmount.Sign() <= 0 {
		return nil, ErrInvalidAmount
	}

	var cert *ledger.Certificate
	err := s.store.Update(ctx, func(tx ledger.Tx) error {
		if err := registry.CanVerify(tx, caller); err != nil {
			return err
		}
		c, err := tx.Certificate(certID)
		if err != nil {
			return err
		}
		if !s.certSM.CanTransition(certStatus(c), "VERIFIED") {
			return fmt.Errorf("certificate %d: %w", certID, ledger.ErrAlreadyVerified)
		}
		c.Verified = true
		c.TokenAmount = mintAmount.Clone()
		if err := tx.PutCertificate(c); err != nil {
			return err
		}
		if err := token.MintTx(tx, c.Producer, mintAmount); err != nil {
			return err
		}
		cert = c
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("certificate verified",
		zap.Uint64("id", certID),
		zap.String("producer", cert.Producer),
		zap.String("minted", mintAmount.String()),
		zap.String("verified_by", caller))
	s.publisher.Publish(notifications.NewEvent(notifications.EventCertificateVerified, cert))
	return cert, nil
}

// FileAuditReport appends an audit finding; a passing report verifies
// the producer in the same transaction.
func (s *service) FileAuditReport(ctx context.Context, caller string, req FileAuditReportRequest) (*ledger.AuditReport, error) {
	if req.Producer == "" {
		return nil, fmt.Errorf("%w: producer address is required", ledger.ErrInvalidArgument)
	}

	report := &ledger.AuditReport{
		ID:        uuid.New(),
		Producer:  req.Producer,
		ReportURI: req.ReportURI,
		Notes:     req.Notes,
		Passed:    req.Passed,
		Timestamp: time.Now().UTC(),
	}

	var verified bool
	err := s.store.Update(ctx, func(tx ledger.Tx) error {
		if err := registry.Authorize(tx, caller, ledger.RoleAuditor); err != nil {
			return fmt.Errorf("%s: %w", caller, ErrNotAnAuditor)
		}
		p, err := tx.Producer(req.Producer)
		if err != nil {
			return err
		}
		if err := tx.AppendAuditReport(report); err != nil {
			return err
		}
		if req.Passed && !p.Verified {
			p.Verified = true
			if err := tx.PutProducer(p); err != nil {
				return err
			}
			verified = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("audit report filed",
		zap.String("producer", req.Producer),
		zap.Bool("passed", req.Passed),
		zap.String("auditor", caller))
	if verified {
		s.publisher.Publish(notifications.NewEvent(notifications.EventProducerVerified,
			map[string]string{"producer": req.Producer}))
	}
	return report, nil
}

// VerifyProducer is the owner-only shortcut used by bootstrap flows. It
// verifies without an audit trail entry, so it stays narrower-privileged
// than FileAuditReport.
func (s *service) VerifyProducer(ctx context.Context, caller, producer string) error {
	err := s.store.Update(ctx, func(tx ledger.Tx) error {
		if err := registry.Authorize(tx, caller, ledger.RoleOwner); err != nil {
			return err
		}
		p, err := tx.Producer(producer)
		if err != nil {
			return err
		}
		if !p.Verified {
			p.Verified = true
			return tx.PutProducer(p)
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info("producer verified directly", zap.String("producer", producer))
	s.publisher.Publish(notifications.NewEvent(notifications.EventProducerVerified,
		map[string]string{"producer": producer}))
	return nil
}

func (s *service) GetCertificate(ctx context.Context, id uint64) (*ledger.Certificate, error) {
	var cert *ledger.Certificate
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		c, err := tx.Certificate(id)
		if err != nil {
			return err
		}
		cert = c
		return nil
	})
	return cert, err
}

func (s *service) AuditReports(ctx context.Context, producer string) ([]*ledger.AuditReport, error) {
	var reports []*ledger.AuditReport
	err := s.store.View(ctx, func(tx ledger.Tx) error {
		r, err := tx.AuditReportsFor(producer)
		if err != nil {
			return err
		}
		reports = r
		return nil
	})
	return reports, err
}
