package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"p9e.in/veritrace/models"
	"p9e.in/veritrace/pkg/certificate"
	"p9e.in/veritrace/pkg/declaration"
)

// Gorm is the postgres Repository.
type Gorm struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewGorm(db *gorm.DB, log *zap.Logger) *Gorm {
	return &Gorm{db: db, log: log}
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// UpsertUser inserts u or, when the email is already known, refreshes the
// company name and auth method and loads the stored identity back into u.
func (g *Gorm) UpsertUser(ctx context.Context, u *models.User) error {
	var existing models.User
	err := g.db.WithContext(ctx).Where("email = ?", u.Email).Take(&existing).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		if err := g.db.WithContext(ctx).Create(u).Error; err != nil {
			return fmt.Errorf("create user: %w", err)
		}
		g.log.Info("user registered", zap.String("user", u.ID.String()), zap.String("did", u.DID))
		return nil
	case err != nil:
		return fmt.Errorf("find user: %w", err)
	}

	updates := map[string]interface{}{
		"company_name": u.CompanyName,
		"auth_method":  u.AuthMethod,
	}
	if err := g.db.WithContext(ctx).Model(&existing).Updates(updates).Error; err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	existing.CompanyName = u.CompanyName
	existing.AuthMethod = u.AuthMethod
	*u = existing
	return nil
}

func (g *Gorm) User(ctx context.Context, id string) (models.User, error) {
	uid, err := uuid.Parse(id)
	if err != nil {
		return models.User{}, ErrNotFound
	}
	var u models.User
	if err := g.db.WithContext(ctx).Where("id = ?", uid).Take(&u).Error; err != nil {
		return models.User{}, notFound(err)
	}
	return u, nil
}

func (g *Gorm) SaveDeclaration(ctx context.Context, owner string, rec declaration.Record) error {
	if err := saveDeclaration(g.db.WithContext(ctx), owner, rec); err != nil {
		return err
	}
	g.log.Info("declaration saved", zap.String("declaration", rec.ID), zap.String("owner", owner))
	return nil
}

func saveDeclaration(db *gorm.DB, owner string, rec declaration.Record) error {
	row, err := models.DeclarationFromRecord(owner, rec)
	if err != nil {
		return err
	}
	if err := db.Create(&row).Error; err != nil {
		return fmt.Errorf("save declaration %s: %w", rec.ID, err)
	}
	return nil
}

func (g *Gorm) Declaration(ctx context.Context, owner, id string) (declaration.Record, error) {
	var row models.Declaration
	err := g.db.WithContext(ctx).
		Where("owner_id = ? AND id = ?", owner, id).
		Take(&row).Error
	if err != nil {
		return declaration.Record{}, notFound(err)
	}
	return row.Record()
}

func (g *Gorm) LatestDeclaration(ctx context.Context, owner string) (declaration.Record, error) {
	var row models.Declaration
	err := g.db.WithContext(ctx).
		Where("owner_id = ?", owner).
		Order("submitted_at DESC").
		Take(&row).Error
	if err != nil {
		return declaration.Record{}, notFound(err)
	}
	return row.Record()
}

func (g *Gorm) Declarations(ctx context.Context, owner string) ([]declaration.Record, error) {
	var rows []models.Declaration
	err := g.db.WithContext(ctx).
		Where("owner_id = ?", owner).
		Order("submitted_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list declarations: %w", err)
	}

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

func (g *Gorm) SaveCertificate(ctx context.Context, owner string, c certificate.Certificate) error {
	return saveCertificate(g.db.WithContext(ctx), owner, c)
}

func saveCertificate(db *gorm.DB, owner string, c certificate.Certificate) error {
	row := models.CertificateFromDomain(owner, c)
	err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("save certificate %s: %w", c.ID, err)
	}
	return nil
}

func (g *Gorm) SaveSubmission(ctx context.Context, owner string, rec declaration.Record, c certificate.Certificate) error {
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveDeclaration(tx, owner, rec); err != nil {
			return err
		}
		return saveCertificate(tx, owner, c)
	})
	if err != nil {
		return err
	}
	g.log.Info("declaration saved",
		zap.String("declaration", rec.ID),
		zap.String("certificate", c.ID),
		zap.String("owner", owner))
	return nil
}

func (g *Gorm) Certificate(ctx context.Context, owner, declarationID string) (certificate.Certificate, error) {
	var row models.Certificate
	err := g.db.WithContext(ctx).
		Where("owner_id = ? AND declaration_id = ?", owner, declarationID).
		Take(&row).Error
	if err != nil {
		return certificate.Certificate{}, notFound(err)
	}
	return row.Domain(), nil
}

func (g *Gorm) Issued(ctx context.Context, owner string) ([]certificate.Issued, error) {
	var certs []models.Certificate
	err := g.db.WithContext(ctx).
		Where("owner_id = ?", owner).
		Order("issued_date DESC").
		Find(&certs).Error
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	if len(certs) == 0 {
		return []certificate.Issued{}, nil
	}

	ids := make([]string, 0, len(certs))
	for _, c := range certs {
		ids = append(ids, c.DeclarationID)
	}
	var decls []models.Declaration
	if err := g.db.WithContext(ctx).Where("id IN ?", ids).Find(&decls).Error; err != nil {
		return nil, fmt.Errorf("load certified declarations: %w", err)
	}
	byID := make(map[string]models.Declaration, len(decls))
	for _, d := range decls {
		byID[d.ID] = d
	}

	out := make([]certificate.Issued, 0, len(certs))
	for _, c := range certs {
		d, ok := byID[c.DeclarationID]
		if !ok {
			g.log.Warn("certificate without declaration", zap.String("declaration", c.DeclarationID))
			continue
		}
		rec, err := d.Record()
		if err != nil {
			return nil, err
		}
		out = append(out, certificate.Issued{Certificate: c.Domain(), Declaration: rec})
	}
	return out, nil
}
