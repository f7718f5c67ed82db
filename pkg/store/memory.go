package store

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"p9e.in/veritrace/models"
	"p9e.in/veritrace/pkg/certificate"
	"p9e.in/veritrace/pkg/declaration"
)

// Memory is a process-local Repository used when DB_DSN is empty.
type Memory struct {
	mu           sync.RWMutex
	users        map[uuid.UUID]models.User
	declarations map[string][]models.Declaration
	certificates map[string][]models.Certificate
}

func NewMemory() *Memory {
	return &Memory{
		users:        make(map[uuid.UUID]models.User),
		declarations: make(map[string][]models.Declaration),
		certificates: make(map[string][]models.Certificate),
	}
}

func (m *Memory) UpsertUser(_ context.Context, u *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for id, existing := range m.users {
		if existing.Email == u.Email {
			existing.CompanyName = u.CompanyName
			existing.AuthMethod = u.AuthMethod
			m.users[id] = existing
			*u = existing
			return nil
		}
	}
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) User(_ context.Context, id string) (models.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return models.User{}, ErrNotFound
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[uid]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (m *Memory) SaveDeclaration(_ context.Context, owner string, rec declaration.Record) error {
	row, err := models.DeclarationFromRecord(owner, rec)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.declarations[owner] = append(m.declarations[owner], row)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Declaration(_ context.Context, owner, id string) (declaration.Record, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, row := range m.declarations[owner] {
		if row.ID == id {
			return row.Record()
		}
	}
	return declaration.Record{}, ErrNotFound
}

// newest first
func (m *Memory) sortedDeclarations(owner string) []models.Declaration {
	rows := append([]models.Declaration(nil), m.declarations[owner]...)
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].SubmittedAt.Time().After(rows[j].SubmittedAt.Time())
	})
	return rows
}

func (m *Memory) LatestDeclaration(_ context.Context, owner string) (declaration.Record, error) {
	m.mu.RLock()
	rows := m.sortedDeclarations(owner)
	m.mu.RUnlock()
	if len(rows) == 0 {
		return declaration.Record{}, ErrNotFound
	}
	return rows[0].Record()
}

func (m *Memory) Declarations(_ context.Context, owner string) ([]declaration.Record, error) {
	m.mu.RLock()
	rows := m.sortedDeclarations(owner)
	m.mu.RUnlock()

	out := make([]declaration.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.Record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (m *Memory) SaveCertificate(_ context.Context, owner string, c certificate.Certificate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.certificates[owner] {
		if existing.DeclarationID == c.DeclarationID {
			return nil
		}
	}
	m.certificates[owner] = append(m.certificates[owner], models.CertificateFromDomain(owner, c))
	return nil
}

func (m *Memory) SaveSubmission(_ context.Context, owner string, rec declaration.Record, c certificate.Certificate) error {
	row, err := models.DeclarationFromRecord(owner, rec)
	if err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.declarations[owner] = append(m.declarations[owner], row)
	for _, existing := range m.certificates[owner] {
		if existing.DeclarationID == c.DeclarationID {
			return nil
		}
	}
	m.certificates[owner] = append(m.certificates[owner], models.CertificateFromDomain(owner, c))
	return nil
}

func (m *Memory) Certificate(_ context.Context, owner, declarationID string) (certificate.Certificate, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.certificates[owner] {
		if c.DeclarationID == declarationID {
			return c.Domain(), nil
		}
	}
	return certificate.Certificate{}, ErrNotFound
}

func (m *Memory) Issued(ctx context.Context, owner string) ([]certificate.Issued, error) {
	m.mu.RLock()
	certs := append([]models.Certificate(nil), m.certificates[owner]...)
	m.mu.RUnlock()

	sort.SliceStable(certs, func(i, j int) bool {
		return certs[i].IssuedDate.After(certs[j].IssuedDate)
	})

	out := []certificate.Issued{}
	for _, c := range certs {
		rec, err := m.Declaration(ctx, owner, c.DeclarationID)
		if err != nil {
			continue
		}
		out = append(out, certificate.Issued{Certificate: c.Domain(), Declaration: rec})
	}
	return out, nil
}
